package iotago

import (
	"encoding/hex"
	"encoding/json"
)

// This file gives every fixed-size identifier a hex-string JSON form
// instead of the default byte-array-of-numbers encoding, so that
// internal/manager's account persistence (spec.md §6.3: "values... must
// round-trip exactly") produces readable, compact records. The real
// protocol serialization library this package stands in for (spec.md §1)
// would use its own length-prefixed binary form; JSON is this stand-in's
// choice for a storage-friendly encoding.

func marshalHex(b []byte) ([]byte, error) { return json.Marshal(hex.EncodeToString(b)) }

func unmarshalHex(data []byte, out []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	copy(out, raw)
	return nil
}

func (a Address) MarshalJSON() ([]byte, error) { return json.Marshal(a.Hex()) }

func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	addr, err := AddressFromHex(s)
	if err != nil {
		return err
	}
	*a = addr
	return nil
}

func (id OutputID) MarshalJSON() ([]byte, error) { return marshalHex(id[:]) }
func (id *OutputID) UnmarshalJSON(data []byte) error { return unmarshalHex(data, id[:]) }

func (id TransactionID) MarshalJSON() ([]byte, error)   { return marshalHex(id[:]) }
func (id *TransactionID) UnmarshalJSON(data []byte) error { return unmarshalHex(data, id[:]) }

func (id AliasID) MarshalJSON() ([]byte, error)   { return marshalHex(id[:]) }
func (id *AliasID) UnmarshalJSON(data []byte) error { return unmarshalHex(data, id[:]) }

func (id FoundryID) MarshalJSON() ([]byte, error)   { return marshalHex(id[:]) }
func (id *FoundryID) UnmarshalJSON(data []byte) error { return unmarshalHex(data, id[:]) }

func (id NFTID) MarshalJSON() ([]byte, error)   { return marshalHex(id[:]) }
func (id *NFTID) UnmarshalJSON(data []byte) error { return unmarshalHex(data, id[:]) }

func (id TokenID) MarshalJSON() ([]byte, error)   { return marshalHex(id[:]) }
func (id *TokenID) UnmarshalJSON(data []byte) error { return unmarshalHex(data, id[:]) }

func (id BlockID) MarshalJSON() ([]byte, error)   { return marshalHex(id[:]) }
func (id *BlockID) UnmarshalJSON(data []byte) error { return unmarshalHex(data, id[:]) }
