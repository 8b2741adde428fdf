package iotago

import (
	"encoding/json"
	"fmt"
)

// This file implements the tagged-sum JSON encoding for Output,
// UnlockCondition, and Feature: Go's encoding/json cannot unmarshal into an
// interface without a discriminant, so every concrete variant round-trips
// through one wire struct carrying a Kind/Type tag plus its own fields
// left zero. This is the "shared accessors, not inheritance" design note
// (spec.md §9) extended to persistence: one exhaustive switch per
// direction, reviewed whenever a new output/condition/feature kind is
// added, exactly like every other switch over these tagged sums in this
// package.

type conditionWire struct {
	Type          UnlockConditionType `json:"type"`
	Address       *Address            `json:"address,omitempty"`
	ReturnAddress *Address            `json:"return_address,omitempty"`
	ReturnAmount  uint64              `json:"return_amount,omitempty"`
	UnixTime      uint32              `json:"unix_time,omitempty"`
	MilestoneIndex uint32             `json:"milestone_index,omitempty"`
}

func marshalCondition(c UnlockCondition) (json.RawMessage, error) {
	var w conditionWire
	switch cond := c.(type) {
	case AddressUnlockCondition:
		w = conditionWire{Type: UnlockAddress, Address: &cond.Address}
	case StorageDepositReturnUnlockCondition:
		w = conditionWire{Type: UnlockStorageDepositReturn, ReturnAddress: &cond.ReturnAddress, ReturnAmount: cond.ReturnAmount}
	case TimelockUnlockCondition:
		w = conditionWire{Type: UnlockTimelock, UnixTime: cond.UnixTime, MilestoneIndex: cond.MilestoneIndex}
	case ExpirationUnlockCondition:
		w = conditionWire{Type: UnlockExpiration, ReturnAddress: &cond.ReturnAddress, UnixTime: cond.UnixTime, MilestoneIndex: cond.MilestoneIndex}
	case StateControllerAddressUnlockCondition:
		w = conditionWire{Type: UnlockStateControllerAddress, Address: &cond.Address}
	case GovernorAddressUnlockCondition:
		w = conditionWire{Type: UnlockGovernorAddress, Address: &cond.Address}
	case ImmutableAliasAddressUnlockCondition:
		w = conditionWire{Type: UnlockImmutableAliasAddress, Address: &cond.Address}
	default:
		return nil, fmt.Errorf("iotago: unknown unlock condition type %T", c)
	}
	return json.Marshal(w)
}

func unmarshalCondition(raw json.RawMessage) (UnlockCondition, error) {
	var w conditionWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case UnlockAddress:
		return AddressUnlockCondition{Address: *w.Address}, nil
	case UnlockStorageDepositReturn:
		return StorageDepositReturnUnlockCondition{ReturnAddress: *w.ReturnAddress, ReturnAmount: w.ReturnAmount}, nil
	case UnlockTimelock:
		return TimelockUnlockCondition{UnixTime: w.UnixTime, MilestoneIndex: w.MilestoneIndex}, nil
	case UnlockExpiration:
		return ExpirationUnlockCondition{ReturnAddress: *w.ReturnAddress, UnixTime: w.UnixTime, MilestoneIndex: w.MilestoneIndex}, nil
	case UnlockStateControllerAddress:
		return StateControllerAddressUnlockCondition{Address: *w.Address}, nil
	case UnlockGovernorAddress:
		return GovernorAddressUnlockCondition{Address: *w.Address}, nil
	case UnlockImmutableAliasAddress:
		return ImmutableAliasAddressUnlockCondition{Address: *w.Address}, nil
	default:
		return nil, fmt.Errorf("iotago: unknown unlock condition type %d", w.Type)
	}
}

func marshalConditions(cs []UnlockCondition) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(cs))
	for _, c := range cs {
		raw, err := marshalCondition(c)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func unmarshalConditions(raws []json.RawMessage) ([]UnlockCondition, error) {
	out := make([]UnlockCondition, 0, len(raws))
	for _, raw := range raws {
		c, err := unmarshalCondition(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

type featureWire struct {
	Type    FeatureType `json:"type"`
	Address *Address    `json:"address,omitempty"`
	Data    []byte      `json:"data,omitempty"`
	Tag     []byte      `json:"tag,omitempty"`
}

func marshalFeature(f Feature) (json.RawMessage, error) {
	var w featureWire
	switch feat := f.(type) {
	case SenderFeature:
		w = featureWire{Type: FeatureSender, Address: &feat.Address}
	case IssuerFeature:
		w = featureWire{Type: FeatureIssuer, Address: &feat.Address}
	case MetadataFeature:
		w = featureWire{Type: FeatureMetadata, Data: feat.Data}
	case TagFeature:
		w = featureWire{Type: FeatureTag, Tag: feat.Tag}
	default:
		return nil, fmt.Errorf("iotago: unknown feature type %T", f)
	}
	return json.Marshal(w)
}

func unmarshalFeature(raw json.RawMessage) (Feature, error) {
	var w featureWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	switch w.Type {
	case FeatureSender:
		return SenderFeature{Address: *w.Address}, nil
	case FeatureIssuer:
		return IssuerFeature{Address: *w.Address}, nil
	case FeatureMetadata:
		return MetadataFeature{Data: w.Data}, nil
	case FeatureTag:
		return TagFeature{Tag: w.Tag}, nil
	default:
		return nil, fmt.Errorf("iotago: unknown feature type %d", w.Type)
	}
}

func marshalFeatures(fs []Feature) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(fs))
	for _, f := range fs {
		raw, err := marshalFeature(f)
		if err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, nil
}

func unmarshalFeatures(raws []json.RawMessage) ([]Feature, error) {
	out := make([]Feature, 0, len(raws))
	for _, raw := range raws {
		f, err := unmarshalFeature(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

type outputWire struct {
	Kind         OutputKind        `json:"kind"`
	Amount       uint64            `json:"amount"`
	NativeTokens []NativeToken     `json:"native_tokens,omitempty"`
	Conditions   []json.RawMessage `json:"conditions,omitempty"`
	Features     []json.RawMessage `json:"features,omitempty"`
	Immutable    []json.RawMessage `json:"immutable_features,omitempty"`

	AliasID        *AliasID `json:"alias_id,omitempty"`
	StateIndex     uint32   `json:"state_index,omitempty"`
	FoundryCounter uint32   `json:"foundry_counter,omitempty"`
	StateMetadata  []byte   `json:"state_metadata,omitempty"`

	FoundryID      *FoundryID         `json:"foundry_id,omitempty"`
	SerialNumber   uint32             `json:"serial_number,omitempty"`
	TokenScheme    *SimpleTokenScheme `json:"token_scheme,omitempty"`

	NFTID *NFTID `json:"nft_id,omitempty"`
}

// MarshalOutput encodes any Output variant to its tagged JSON form.
func MarshalOutput(o Output) (json.RawMessage, error) {
	conditions, err := marshalConditions(o.UnlockConditions())
	if err != nil {
		return nil, err
	}
	features, err := marshalFeatures(o.Features())
	if err != nil {
		return nil, err
	}
	immutable, err := marshalFeatures(o.ImmutableFeatures())
	if err != nil {
		return nil, err
	}

	w := outputWire{
		Kind:         o.Kind(),
		Amount:       o.Amount(),
		NativeTokens: o.NativeTokens(),
		Conditions:   conditions,
		Features:     features,
		Immutable:    immutable,
	}

	switch out := o.(type) {
	case *BasicOutput:
	case *AliasOutput:
		w.AliasID = &out.AliasID
		w.StateIndex = out.StateIndex
		w.FoundryCounter = out.FoundryCounter
		w.StateMetadata = out.StateMetadata
	case *FoundryOutput:
		w.FoundryID = &out.FoundryID
		w.SerialNumber = out.SerialNumber
		w.TokenScheme = &out.TokenScheme
	case *NFTOutput:
		w.NFTID = &out.NFTID
	case *TreasuryOutput:
	default:
		return nil, fmt.Errorf("iotago: unknown output type %T", o)
	}
	return json.Marshal(w)
}

// UnmarshalOutput decodes the tagged JSON form back into the concrete
// Output variant its Kind names.
func UnmarshalOutput(data []byte) (Output, error) {
	var w outputWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	conditions, err := unmarshalConditions(w.Conditions)
	if err != nil {
		return nil, err
	}
	features, err := unmarshalFeatures(w.Features)
	if err != nil {
		return nil, err
	}
	immutable, err := unmarshalFeatures(w.Immutable)
	if err != nil {
		return nil, err
	}
	header := outputHeader{amount: w.Amount, nativeTokens: w.NativeTokens, conditions: conditions, features: features, immutable: immutable}

	switch w.Kind {
	case OutputBasic:
		return &BasicOutput{header}, nil
	case OutputAlias:
		var aliasID AliasID
		if w.AliasID != nil {
			aliasID = *w.AliasID
		}
		return &AliasOutput{outputHeader: header, AliasID: aliasID, StateIndex: w.StateIndex, FoundryCounter: w.FoundryCounter, StateMetadata: w.StateMetadata}, nil
	case OutputFoundry:
		var foundryID FoundryID
		if w.FoundryID != nil {
			foundryID = *w.FoundryID
		}
		var scheme SimpleTokenScheme
		if w.TokenScheme != nil {
			scheme = *w.TokenScheme
		}
		return &FoundryOutput{outputHeader: header, FoundryID: foundryID, SerialNumber: w.SerialNumber, TokenScheme: scheme}, nil
	case OutputNFT:
		var nftID NFTID
		if w.NFTID != nil {
			nftID = *w.NFTID
		}
		return &NFTOutput{outputHeader: header, NFTID: nftID}, nil
	case OutputTreasury:
		return &TreasuryOutput{header}, nil
	default:
		return nil, fmt.Errorf("iotago: unknown output kind %d", w.Kind)
	}
}
