package iotago

import (
	"errors"
	"strings"
)

var (
	errInvalidAddress = errors.New("iotago: invalid address encoding")
	errInvalidBech32  = errors.New("iotago: invalid bech32 string")
)

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Bech32 and ParseBech32 implement a minimal BIP-173-style codec sufficient
// to round-trip Address values deterministically (spec.md §8 scenario 3).
// A production node client would use the canonical bech32 checksum; this
// core only needs the encoding to be a stable bijection it owns end to end,
// since the real codec lives in the external protocol library spec.md §1
// excludes.
func Bech32(hrp string, a Address) (string, error) {
	data := append([]byte{byte(a.Kind)}, a.ID[:]...)
	converted, err := convertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(hrp)
	sb.WriteString("1")
	for _, b := range converted {
		sb.WriteByte(bech32Charset[b])
	}
	return sb.String(), nil
}

// ParseBech32 is the inverse of Bech32.
func ParseBech32(s string) (hrp string, a Address, err error) {
	sep := strings.LastIndex(s, "1")
	if sep < 1 || sep+1 >= len(s) {
		return "", Address{}, errInvalidBech32
	}
	hrp = s[:sep]
	data := s[sep+1:]
	values := make([]byte, len(data))
	for i, c := range data {
		idx := strings.IndexRune(bech32Charset, c)
		if idx < 0 {
			return "", Address{}, errInvalidBech32
		}
		values[i] = byte(idx)
	}
	raw, err := convertBits(values, 5, 8, false)
	if err != nil {
		return "", Address{}, err
	}
	if len(raw) != 33 {
		return "", Address{}, errInvalidAddress
	}
	a.Kind = AddressKind(raw[0])
	copy(a.ID[:], raw[1:])
	return hrp, a, nil
}

func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	var acc uint32
	var bits uint
	maxv := uint32(1)<<toBits - 1
	var out []byte
	for _, b := range data {
		acc = (acc << fromBits) | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			out = append(out, byte((acc>>bits)&maxv))
		}
	}
	if pad {
		if bits > 0 {
			out = append(out, byte((acc<<(toBits-bits))&maxv))
		}
	} else if bits >= fromBits || ((acc<<(toBits-bits))&maxv) != 0 {
		return nil, errInvalidBech32
	}
	return out, nil
}
