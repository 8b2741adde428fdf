package iotago

import "encoding/binary"

// TaggedDataPayload is an optional application payload carried alongside a
// transaction essence (spec.md §4.3 TransactionOptions.tagged_data_payload).
type TaggedDataPayload struct {
	Tag  []byte
	Data []byte
}

// TransactionEssence is the signable body of a transaction: the consumed
// inputs, the produced outputs, the network id they're bound to, and an
// optional tagged-data payload (spec.md §4.3 step 7).
type TransactionEssence struct {
	NetworkID uint64
	Inputs    []OutputID
	Outputs   []Output
	Payload   *TaggedDataPayload
}

// UnlockBlockType distinguishes a fresh signature unlock from a reference
// to an earlier one (protocol-level input deduplication when two inputs
// share an unlock address).
type UnlockBlockType uint8

const (
	UnlockBlockSignature UnlockBlockType = iota
	UnlockBlockReference
)

type UnlockBlock struct {
	Type      UnlockBlockType
	Signature []byte // ed25519 signature + public key, opaque to the core
	Reference uint16 // index of the earlier unlock block this one reuses
}

// Transaction is the signed payload ready for block submission.
type Transaction struct {
	Essence      TransactionEssence
	UnlockBlocks []UnlockBlock
}

// BlockID identifies a submitted block.
type BlockID [32]byte

// Block wraps a transaction payload with the tip selection the node client
// fills in at submission time (spec.md §4.3 step 8).
type Block struct {
	ProtocolVersion byte
	Parents         []BlockID
	Payload         *Transaction
	Nonce           uint64
}

// InclusionState mirrors the three states a TransactionRecord tracks
// (spec.md §3, TransactionRecord.inclusion_state).
type InclusionState int

const (
	InclusionPending InclusionState = iota
	InclusionConfirmed
	InclusionConflicting
)

// SigningBytes returns a deterministic byte encoding of the essence for the
// signer to sign over. This stands in for the real protocol's
// length-prefixed binary serialization (out of scope per package doc); it
// only needs to be stable and collision-resistant across the fields that
// change the essence's meaning.
func (e TransactionEssence) SigningBytes() []byte {
	var buf []byte
	var tmp [8]byte

	binary.BigEndian.PutUint64(tmp[:], e.NetworkID)
	buf = append(buf, tmp[:]...)

	binary.BigEndian.PutUint32(tmp[:4], uint32(len(e.Inputs)))
	buf = append(buf, tmp[:4]...)
	for _, id := range e.Inputs {
		buf = append(buf, id[:]...)
	}

	binary.BigEndian.PutUint32(tmp[:4], uint32(len(e.Outputs)))
	buf = append(buf, tmp[:4]...)
	for _, out := range e.Outputs {
		buf = append(buf, byte(out.Kind()))
		binary.BigEndian.PutUint64(tmp[:], out.Amount())
		buf = append(buf, tmp[:]...)
		for _, nt := range out.NativeTokens() {
			buf = append(buf, nt.ID[:]...)
			binary.BigEndian.PutUint64(tmp[:], nt.Amount)
			buf = append(buf, tmp[:]...)
		}
		if raw, err := MarshalOutput(out); err == nil {
			buf = append(buf, raw...)
		}
	}

	if e.Payload != nil {
		binary.BigEndian.PutUint32(tmp[:4], uint32(len(e.Payload.Tag)))
		buf = append(buf, tmp[:4]...)
		buf = append(buf, e.Payload.Tag...)
		buf = append(buf, e.Payload.Data...)
	}
	return buf
}

func (s InclusionState) String() string {
	switch s {
	case InclusionConfirmed:
		return "Confirmed"
	case InclusionConflicting:
		return "Conflicting"
	default:
		return "Pending"
	}
}
