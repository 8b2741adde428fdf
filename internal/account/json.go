package account

import (
	"encoding/json"

	"github.com/iotaledger/wallet.go/iotago"
)

// OutputData and InputSnapshot carry an iotago.Output through an
// interface-typed field, which encoding/json cannot unmarshal without help.
// Each gets a wire struct that swaps the interface field for a tagged
// json.RawMessage built on iotago.MarshalOutput/UnmarshalOutput, the same
// pattern internal/manager relies on to persist a whole account.Snapshot
// with a plain json.Marshal. TransactionRecord and IncomingTransactionRecord
// have no wire struct of their own: their iotago.Transaction goes through
// iotago.TransactionEssence's own codec and their inputs through
// InputSnapshot's.

type outputDataWire struct {
	OutputID  iotago.OutputID `json:"output_id"`
	Output    json.RawMessage `json:"output"`
	Metadata  OutputMetadata  `json:"metadata"`
	Address   iotago.Address  `json:"address"`
	NetworkID uint64          `json:"network_id"`
	IsSpent   bool            `json:"is_spent"`
	Remainder bool            `json:"remainder"`
	Chain     *Chain          `json:"chain,omitempty"`
}

func (d OutputData) MarshalJSON() ([]byte, error) {
	raw, err := iotago.MarshalOutput(d.Output)
	if err != nil {
		return nil, err
	}
	return json.Marshal(outputDataWire{
		OutputID:  d.OutputID,
		Output:    raw,
		Metadata:  d.Metadata,
		Address:   d.Address,
		NetworkID: d.NetworkID,
		IsSpent:   d.IsSpent,
		Remainder: d.Remainder,
		Chain:     d.Chain,
	})
}

func (d *OutputData) UnmarshalJSON(data []byte) error {
	var w outputDataWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := iotago.UnmarshalOutput(w.Output)
	if err != nil {
		return err
	}
	d.OutputID = w.OutputID
	d.Output = out
	d.Metadata = w.Metadata
	d.Address = w.Address
	d.NetworkID = w.NetworkID
	d.IsSpent = w.IsSpent
	d.Remainder = w.Remainder
	d.Chain = w.Chain
	return nil
}

type inputSnapshotWire struct {
	OutputID iotago.OutputID `json:"output_id"`
	Output   json.RawMessage `json:"output"`
}

func (s InputSnapshot) MarshalJSON() ([]byte, error) {
	raw, err := iotago.MarshalOutput(s.Output)
	if err != nil {
		return nil, err
	}
	return json.Marshal(inputSnapshotWire{OutputID: s.OutputID, Output: raw})
}

func (s *InputSnapshot) UnmarshalJSON(data []byte) error {
	var w inputSnapshotWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out, err := iotago.UnmarshalOutput(w.Output)
	if err != nil {
		return err
	}
	s.OutputID = w.OutputID
	s.Output = out
	return nil
}
