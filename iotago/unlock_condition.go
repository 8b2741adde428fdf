package iotago

// UnlockConditionType is the discriminant for the unlock-condition tagged
// sum (Glossary: "Unlock condition").
type UnlockConditionType uint8

const (
	UnlockAddress UnlockConditionType = iota
	UnlockStorageDepositReturn
	UnlockTimelock
	UnlockExpiration
	UnlockStateControllerAddress
	UnlockGovernorAddress
	UnlockImmutableAliasAddress
)

type UnlockCondition interface {
	Type() UnlockConditionType
}

// AddressUnlockCondition is the ordinary "this address can spend it"
// condition.
type AddressUnlockCondition struct{ Address Address }

func (AddressUnlockCondition) Type() UnlockConditionType { return UnlockAddress }

// StorageDepositReturnUnlockCondition requires the spending transaction to
// return ReturnAmount to ReturnAddress (spec.md §4.3 step 6, micro-tx
// handling).
type StorageDepositReturnUnlockCondition struct {
	ReturnAddress Address
	ReturnAmount  uint64
}

func (StorageDepositReturnUnlockCondition) Type() UnlockConditionType {
	return UnlockStorageDepositReturn
}

// TimelockUnlockCondition blocks spending until the given timestamp and/or
// milestone index. A zero value in either field means "no constraint"
// (spec.md §4.4, claim eligibility predicate).
type TimelockUnlockCondition struct {
	UnixTime       uint32
	MilestoneIndex uint32
}

func (TimelockUnlockCondition) Type() UnlockConditionType { return UnlockTimelock }

// ExpirationUnlockCondition switches the effective unlock address from the
// ordinary AddressUnlockCondition to ReturnAddress once the timestamp
// and/or milestone passes (spec.md §4.4 claim eligibility predicate).
type ExpirationUnlockCondition struct {
	ReturnAddress  Address
	UnixTime       uint32
	MilestoneIndex uint32
}

func (ExpirationUnlockCondition) Type() UnlockConditionType { return UnlockExpiration }

// StateControllerAddressUnlockCondition / GovernorAddressUnlockCondition
// gate alias-output state/governance transitions.
type StateControllerAddressUnlockCondition struct{ Address Address }

func (StateControllerAddressUnlockCondition) Type() UnlockConditionType {
	return UnlockStateControllerAddress
}

type GovernorAddressUnlockCondition struct{ Address Address }

func (GovernorAddressUnlockCondition) Type() UnlockConditionType { return UnlockGovernorAddress }

// ImmutableAliasAddressUnlockCondition ties a foundry output to its
// controlling alias.
type ImmutableAliasAddressUnlockCondition struct{ Address Address }

func (ImmutableAliasAddressUnlockCondition) Type() UnlockConditionType {
	return UnlockImmutableAliasAddress
}

// FeatureType is the discriminant for the feature tagged sum (Glossary:
// "Feature").
type FeatureType uint8

const (
	FeatureSender FeatureType = iota
	FeatureIssuer
	FeatureMetadata
	FeatureTag
)

type Feature interface {
	Type() FeatureType
}

type SenderFeature struct{ Address Address }

func (SenderFeature) Type() FeatureType { return FeatureSender }

type IssuerFeature struct{ Address Address }

func (IssuerFeature) Type() FeatureType { return FeatureIssuer }

type MetadataFeature struct{ Data []byte }

func (MetadataFeature) Type() FeatureType { return FeatureMetadata }

type TagFeature struct{ Tag []byte }

func (TagFeature) Type() FeatureType { return FeatureTag }
