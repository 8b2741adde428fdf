// Package iotago models the protocol types spec.md §1 places out of scope
// ("the cryptographic signer... the protocol block/output serialization
// library... we specify only the contracts the core draws from them"). The
// wallet core only needs these types to exist with stable shapes and a
// bech32/hex address codec (spec.md §8 scenario 3); the real binary
// encoding (varint-length-prefixed serialization) belongs to the external
// protocol library this package stands in for. Ed25519 address ids are
// derived here with BLAKE2b-256.
package iotago

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// AddressKind distinguishes the three address forms the spec relies on.
type AddressKind uint8

const (
	AddressEd25519 AddressKind = iota
	AddressAlias
	AddressNFT
)

// Address is a bech32-decoded wallet address: the kind byte plus the
// 32-byte identifier (an ed25519 pubkey hash, alias id, or nft id).
type Address struct {
	Kind AddressKind
	ID   [32]byte
}

// Bech32 HRP (human-readable part) choices used across spec.md §8.
const (
	HRPShimmer = "smr"
	HRPTestnet = "rms"
)

// String renders the bech32 form for the given HRP. The wallet core always
// carries the HRP alongside an Address (AccountAddress, ClientOptions) so
// String is only a convenience for logging/tests; on-wire encoding goes
// through Bech32 below.
func (a Address) String() string {
	s, _ := Bech32(HRPShimmer, a)
	return s
}

// Hex renders "0x" + kind byte + id, matching spec.md §8 scenario 3's
// hex form.
func (a Address) Hex() string {
	buf := make([]byte, 0, 1+len(a.ID))
	buf = append(buf, byte(a.Kind))
	buf = append(buf, a.ID[:]...)
	return "0x" + hex.EncodeToString(buf)
}

// AddressFromHex parses the Hex() form back into an Address.
func AddressFromHex(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	if len(raw) != 33 {
		return Address{}, errInvalidAddress
	}
	var a Address
	a.Kind = AddressKind(raw[0])
	copy(a.ID[:], raw[1:])
	return a, nil
}

// Ed25519AddressFromPublicKey derives the address id as blake2b-256 of the
// raw public key, the standard ed25519-address derivation for this family
// of ledgers.
func Ed25519AddressFromPublicKey(pubKey []byte) Address {
	h := blake2b.Sum256(pubKey)
	return Address{Kind: AddressEd25519, ID: h}
}
