package iotago

// OutputKind is the tagged-sum discriminant for the output hierarchy. Per
// DESIGN_NOTES (spec.md §9): model Basic/Alias/Foundry/NFT/Treasury as a
// tagged sum with shared accessors, not inheritance, and make every switch
// over Kind exhaustive so the compiler flags call sites when a new kind is
// added.
type OutputKind uint8

const (
	OutputBasic OutputKind = iota
	OutputAlias
	OutputFoundry
	OutputNFT
	OutputTreasury
)

// OutputID identifies an output by its creating transaction id and index.
type OutputID [34]byte

func NewOutputID(txID TransactionID, index uint16) OutputID {
	var id OutputID
	copy(id[:32], txID[:])
	id[32] = byte(index)
	id[33] = byte(index >> 8)
	return id
}

func (id OutputID) TransactionID() TransactionID {
	var tx TransactionID
	copy(tx[:], id[:32])
	return tx
}

func (id OutputID) Index() uint16 { return uint16(id[32]) | uint16(id[33])<<8 }

type TransactionID [32]byte

type AliasID [32]byte
type FoundryID [38]byte
type NFTID [32]byte
type TokenID [38]byte

// NativeToken is an on-chain fungible token carried alongside base coin in
// any output (Glossary: "Native token").
type NativeToken struct {
	ID     TokenID
	Amount uint64
}

// Output is the shared interface every output kind satisfies. Accessors are
// shared, never inherited: each concrete type stores its own header fields.
type Output interface {
	Kind() OutputKind
	Amount() uint64
	NativeTokens() []NativeToken
	UnlockConditions() []UnlockCondition
	Features() []Feature
	ImmutableFeatures() []Feature
}

// outputHeader is embedded (not inherited from) by every concrete output;
// it exists purely to avoid repeating the five shared accessor fields.
type outputHeader struct {
	amount       uint64
	nativeTokens []NativeToken
	conditions   []UnlockCondition
	features     []Feature
	immutable    []Feature
}

func (h outputHeader) Amount() uint64                  { return h.amount }
func (h outputHeader) NativeTokens() []NativeToken      { return h.nativeTokens }
func (h outputHeader) UnlockConditions() []UnlockCondition { return h.conditions }
func (h outputHeader) Features() []Feature             { return h.features }
func (h outputHeader) ImmutableFeatures() []Feature     { return h.immutable }

// HasTag reports whether out carries a TagFeature equal to tag, shared by
// every package that needs to recognize a tagged output (e.g. the
// participation tag marking a voting output, spec.md §4.5) without each
// reimplementing the feature-list scan.
func HasTag(out Output, tag string) bool {
	for _, f := range out.Features() {
		if t, ok := f.(TagFeature); ok && string(t.Tag) == tag {
			return true
		}
	}
	return false
}

// BasicOutput is the simplest value-bearing output (Glossary).
type BasicOutput struct{ outputHeader }

func (BasicOutput) Kind() OutputKind { return OutputBasic }

func NewBasicOutput(amount uint64, conditions []UnlockCondition, features []Feature, tokens []NativeToken) *BasicOutput {
	return &BasicOutput{outputHeader{amount: amount, conditions: conditions, features: features, nativeTokens: tokens}}
}

// AliasOutput is a stateful output controlled by two addresses
// (state-controller, governor); required owner of foundry outputs.
type AliasOutput struct {
	outputHeader
	AliasID        AliasID
	StateIndex     uint32
	FoundryCounter uint32
	StateMetadata  []byte
}

func (AliasOutput) Kind() OutputKind { return OutputAlias }

// NewAliasOutput builds an alias output. aliasID is the zero value until
// the protocol assigns one at the output's own output id (spec.md §4.4
// CreateAliasOutput: "a fresh alias output with a null alias_id").
func NewAliasOutput(amount uint64, aliasID AliasID, stateIndex, foundryCounter uint32, stateMetadata []byte, conditions []UnlockCondition, features, immutable []Feature) *AliasOutput {
	return &AliasOutput{
		outputHeader:   outputHeader{amount: amount, conditions: conditions, features: features, immutable: immutable},
		AliasID:        aliasID,
		StateIndex:     stateIndex,
		FoundryCounter: foundryCounter,
		StateMetadata:  stateMetadata,
	}
}

// FoundryOutput is controlled by an alias and defines a native-token
// supply schedule (Glossary).
type FoundryOutput struct {
	outputHeader
	FoundryID         FoundryID
	SerialNumber      uint32
	TokenScheme       SimpleTokenScheme
}

func (FoundryOutput) Kind() OutputKind { return OutputFoundry }

// NewFoundryOutput builds a foundry output carrying the given supply
// schedule (spec.md §4.4 MintNativeToken/IncreaseNativeTokenSupply).
func NewFoundryOutput(amount uint64, foundryID FoundryID, serialNumber uint32, scheme SimpleTokenScheme, conditions []UnlockCondition, features, immutable []Feature) *FoundryOutput {
	return &FoundryOutput{
		outputHeader: outputHeader{amount: amount, conditions: conditions, features: features, immutable: immutable},
		FoundryID:    foundryID,
		SerialNumber: serialNumber,
		TokenScheme:  scheme,
	}
}

// SimpleTokenScheme is the supply-schedule carried by a foundry.
type SimpleTokenScheme struct {
	MintedTokens  uint64
	MeltedTokens  uint64
	MaximumSupply uint64
}

// CirculatingSupply returns minted-minus-melted, the live circulating
// supply tracked by spec.md §4.4's mint/melt operations.
func (s SimpleTokenScheme) CirculatingSupply() uint64 { return s.MintedTokens - s.MeltedTokens }

// NFTOutput is a non-fungible output with a stable per-identity id.
type NFTOutput struct {
	outputHeader
	NFTID NFTID
}

func (NFTOutput) Kind() OutputKind { return OutputNFT }

// NewNFTOutput builds an NFT output. nftID is the zero value until the
// protocol assigns one at the output's own output id (spec.md §4.4
// MintNfts: "nft_id = null (assigned by protocol at output-id)").
func NewNFTOutput(amount uint64, nftID NFTID, conditions []UnlockCondition, features, immutable []Feature, tokens []NativeToken) *NFTOutput {
	return &NFTOutput{
		outputHeader: outputHeader{amount: amount, conditions: conditions, features: features, immutable: immutable, nativeTokens: tokens},
		NFTID:        nftID,
	}
}

// TreasuryOutput funds protocol-level mana rewards; the wallet core never
// constructs one but must be able to ignore it if an indexer ever returns
// one in a generic query (hence it is still part of the tagged sum so
// exhaustive switches compile without a default case masking the omission).
type TreasuryOutput struct{ outputHeader }

func (TreasuryOutput) Kind() OutputKind { return OutputTreasury }
