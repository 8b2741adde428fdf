package iotago

import "encoding/json"

// TransactionEssence embeds Outputs []Output, the same interface-slice
// problem output_codec.go solves for Output itself; this wraps that same
// tagged encoding so a TransactionEssence (and therefore a Transaction)
// round-trips through encoding/json.

type essenceWire struct {
	NetworkID uint64              `json:"network_id"`
	Inputs    []OutputID          `json:"inputs"`
	Outputs   []json.RawMessage   `json:"outputs"`
	Payload   *TaggedDataPayload  `json:"payload,omitempty"`
}

func (e TransactionEssence) MarshalJSON() ([]byte, error) {
	outputs := make([]json.RawMessage, 0, len(e.Outputs))
	for _, o := range e.Outputs {
		raw, err := MarshalOutput(o)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, raw)
	}
	return json.Marshal(essenceWire{
		NetworkID: e.NetworkID,
		Inputs:    e.Inputs,
		Outputs:   outputs,
		Payload:   e.Payload,
	})
}

func (e *TransactionEssence) UnmarshalJSON(data []byte) error {
	var w essenceWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	outputs := make([]Output, 0, len(w.Outputs))
	for _, raw := range w.Outputs {
		o, err := UnmarshalOutput(raw)
		if err != nil {
			return err
		}
		outputs = append(outputs, o)
	}
	e.NetworkID = w.NetworkID
	e.Inputs = w.Inputs
	e.Outputs = outputs
	e.Payload = w.Payload
	return nil
}
