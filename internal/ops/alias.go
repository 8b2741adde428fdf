package ops

import (
	"context"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/walleterr"
)

// AliasOutputParams configures CreateAliasOutput (spec.md §4.4).
type AliasOutputParams struct {
	StateMetadata []byte
	Governor      *iotago.Address // defaults to the account's first address
	StateController *iotago.Address // defaults to Governor
}

// CreateAliasOutput builds a fresh alias output with a null alias_id,
// the required prerequisite for native-token operations (spec.md §4.4).
func (s *Service) CreateAliasOutput(ctx context.Context, p AliasOutputParams, opts txbuilder.Options) (*account.TransactionRecord, error) {
	owner, err := s.ownerAddress()
	if err != nil {
		return nil, err
	}
	governor := owner
	if p.Governor != nil {
		governor = *p.Governor
	}
	stateController := governor
	if p.StateController != nil {
		stateController = *p.StateController
	}

	deposit := basicDepositEstimate(s.Builder.Rent, 2, len(p.StateMetadata))
	out := iotago.NewAliasOutput(deposit, iotago.AliasID{}, 0, 0, p.StateMetadata, []iotago.UnlockCondition{
		iotago.StateControllerAddressUnlockCondition{Address: stateController},
		iotago.GovernorAddressUnlockCondition{Address: governor},
	}, nil, nil)
	return s.send(ctx, []iotago.Output{out}, opts)
}

// selfAliasAddress is the all-zero placeholder a not-yet-assigned alias id
// resolves to within the same transaction that creates it — the same
// "new alias/NFT referenced by null id" convention the real protocol uses
// so a foundry can be minted in the alias's very first transaction.
func selfAliasAddress() iotago.Address {
	return iotago.Address{Kind: iotago.AddressAlias}
}

// MintNativeTokenParams configures MintNativeToken (spec.md §4.4). AliasID
// nil means "create the controlling alias in this same transaction".
type MintNativeTokenParams struct {
	AliasID          *iotago.AliasID
	CirculatingSupply uint64
	MaximumSupply     uint64
	FoundryMetadata   []byte
}

// MintNativeToken builds the alias state transition, a new foundry output
// minting the circulating supply, and a basic output carrying the minted
// tokens to an account address (spec.md §4.4). If params.AliasID is nil, a
// new alias is created in the same transaction using the self-reference
// convention described on selfAliasAddress.
func (s *Service) MintNativeToken(ctx context.Context, p MintNativeTokenParams, opts txbuilder.Options) (*account.TransactionRecord, error) {
	if p.CirculatingSupply > p.MaximumSupply {
		return nil, walleterr.New(walleterr.KindMintingFailed, "circulating supply exceeds maximum supply")
	}

	owner, err := s.ownerAddress()
	if err != nil {
		return nil, err
	}

	var (
		newAliasID       iotago.AliasID
		newStateIndex    uint32
		newFoundryCount  uint32 = 1
		stateMetadata    []byte
		aliasConditions  []iotago.UnlockCondition
		governingAddress = selfAliasAddress()
	)

	if p.AliasID != nil {
		aliasOD, err := s.findAlias(*p.AliasID)
		if err != nil {
			return nil, err
		}
		src := aliasOD.Output.(*iotago.AliasOutput)
		newAliasID = src.AliasID
		newStateIndex = src.StateIndex + 1
		newFoundryCount = src.FoundryCounter + 1
		stateMetadata = src.StateMetadata
		aliasConditions = src.UnlockConditions()
		governingAddress = iotago.Address{Kind: iotago.AddressAlias, ID: src.AliasID}
		opts.MandatoryInputs = append(opts.MandatoryInputs, aliasOD.OutputID)
	} else {
		aliasConditions = []iotago.UnlockCondition{
			iotago.StateControllerAddressUnlockCondition{Address: owner},
			iotago.GovernorAddressUnlockCondition{Address: owner},
		}
	}

	aliasDeposit := basicDepositEstimate(s.Builder.Rent, 2, len(stateMetadata))
	aliasOut := iotago.NewAliasOutput(aliasDeposit, newAliasID, newStateIndex, newFoundryCount, stateMetadata, aliasConditions, nil, nil)

	scheme := iotago.SimpleTokenScheme{MintedTokens: p.CirculatingSupply, MaximumSupply: p.MaximumSupply}
	var foundryID iotago.FoundryID
	copy(foundryID[:32], newAliasID[:])
	foundryID[32] = byte(newFoundryCount)

	foundryDeposit := basicDepositEstimate(s.Builder.Rent, 1, len(p.FoundryMetadata))
	foundryOut := iotago.NewFoundryOutput(foundryDeposit, foundryID, newFoundryCount, scheme, []iotago.UnlockCondition{
		iotago.ImmutableAliasAddressUnlockCondition{Address: governingAddress},
	}, nil, nil)

	var tokenID iotago.TokenID
	copy(tokenID[:], foundryID[:])
	mintedOut := iotago.NewBasicOutput(basicDepositEstimate(s.Builder.Rent, 1, 0), []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: owner},
	}, nil, []iotago.NativeToken{{ID: tokenID, Amount: p.CirculatingSupply}})

	return s.send(ctx, []iotago.Output{aliasOut, foundryOut, mintedOut}, opts)
}

// IncreaseNativeTokenSupply locates the foundry and mints additional
// supply, carrying the new tokens to an account address (spec.md §4.4).
func (s *Service) IncreaseNativeTokenSupply(ctx context.Context, tokenID iotago.TokenID, amount uint64, opts txbuilder.Options) (*account.TransactionRecord, error) {
	return s.transitionFoundrySupply(ctx, tokenID, int64(amount), opts)
}

// DecreaseNativeTokenSupply melts supply: the foundry transition decreases
// circulating supply by consuming native tokens from an input (spec.md
// §4.4). The caller's account must hold at least amount of tokenID among
// its unspent outputs; input selection in internal/txbuilder picks them up
// via the native-token targets passed through selectInputs.
func (s *Service) DecreaseNativeTokenSupply(ctx context.Context, tokenID iotago.TokenID, amount uint64, opts txbuilder.Options) (*account.TransactionRecord, error) {
	return s.transitionFoundrySupply(ctx, tokenID, -int64(amount), opts)
}

func (s *Service) transitionFoundrySupply(ctx context.Context, tokenID iotago.TokenID, delta int64, opts txbuilder.Options) (*account.TransactionRecord, error) {
	foundryOD, err := s.findFoundry(tokenID)
	if err != nil {
		return nil, err
	}
	src := foundryOD.Output.(*iotago.FoundryOutput)

	scheme := src.TokenScheme
	if delta >= 0 {
		scheme.MintedTokens += uint64(delta)
		if scheme.CirculatingSupply() > scheme.MaximumSupply {
			return nil, walleterr.New(walleterr.KindMintingFailed, "mint would exceed maximum supply")
		}
	} else {
		burn := uint64(-delta)
		if burn > scheme.CirculatingSupply() {
			return nil, walleterr.New(walleterr.KindBurningOrMelting, "melt amount exceeds circulating supply")
		}
		scheme.MeltedTokens += burn
	}

	newFoundry := iotago.NewFoundryOutput(src.Amount(), src.FoundryID, src.SerialNumber, scheme, src.UnlockConditions(), src.Features(), src.ImmutableFeatures())
	opts.MandatoryInputs = append(opts.MandatoryInputs, foundryOD.OutputID)

	outputs := []iotago.Output{newFoundry}
	if delta > 0 {
		owner, err := s.ownerAddress()
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, iotago.NewBasicOutput(basicDepositEstimate(s.Builder.Rent, 1, 0), []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: owner},
		}, nil, []iotago.NativeToken{{ID: tokenID, Amount: uint64(delta)}}))
	} else {
		// Melt: the foundry output alone carries no native tokens, so the
		// melted amount must be pulled in as input and destroyed rather
		// than reappear anywhere in the transaction (spec.md §4.3 step 4:
		// "with equality when burning is not requested" — here burning is
		// requested, so inputs must exceed outputs by exactly this much).
		if opts.BurnNativeTokens == nil {
			opts.BurnNativeTokens = make(map[iotago.TokenID]uint64)
		}
		opts.BurnNativeTokens[tokenID] += uint64(-delta)
	}
	return s.send(ctx, outputs, opts)
}

// DestroyFoundry requires the foundry's circulating supply to be zero;
// its deposit returns to the controlling alias (spec.md §4.4). The rebuilt
// alias output carries no native tokens: any held by the consumed foundry
// or alias go to Send's remainder output.
func (s *Service) DestroyFoundry(ctx context.Context, tokenID iotago.TokenID, opts txbuilder.Options) (*account.TransactionRecord, error) {
	foundryOD, err := s.findFoundry(tokenID)
	if err != nil {
		return nil, err
	}
	src := foundryOD.Output.(*iotago.FoundryOutput)
	if src.TokenScheme.CirculatingSupply() != 0 {
		return nil, walleterr.New(walleterr.KindBurningOrMelting, "foundry still has circulating supply")
	}

	var governingAlias iotago.AliasID
	for _, c := range src.UnlockConditions() {
		if immAlias, ok := c.(iotago.ImmutableAliasAddressUnlockCondition); ok {
			governingAlias = immAlias.Address.ID
		}
	}
	aliasOD, err := s.findAlias(governingAlias)
	if err != nil {
		return nil, err
	}
	aliasSrc := aliasOD.Output.(*iotago.AliasOutput)
	newAlias := iotago.NewAliasOutput(
		aliasSrc.Amount()+src.Amount(),
		aliasSrc.AliasID, aliasSrc.StateIndex+1, aliasSrc.FoundryCounter,
		aliasSrc.StateMetadata, aliasSrc.UnlockConditions(), aliasSrc.Features(), aliasSrc.ImmutableFeatures(),
	)

	opts.MandatoryInputs = append(opts.MandatoryInputs, foundryOD.OutputID, aliasOD.OutputID)
	return s.send(ctx, []iotago.Output{newAlias}, opts)
}

// DestroyAlias requires the alias to own no foundry outputs currently;
// its amount and tokens sweep to the governor address (spec.md §4.4).
func (s *Service) DestroyAlias(ctx context.Context, aliasID iotago.AliasID, opts txbuilder.Options) (*account.TransactionRecord, error) {
	aliasOD, err := s.findAlias(aliasID)
	if err != nil {
		return nil, err
	}
	src := aliasOD.Output.(*iotago.AliasOutput)
	if src.FoundryCounter > 0 {
		if foundryOutstanding := s.findUnspentByKind(iotago.OutputFoundry, func(od *account.OutputData) bool {
			f := od.Output.(*iotago.FoundryOutput)
			for _, c := range f.UnlockConditions() {
				if imm, ok := c.(iotago.ImmutableAliasAddressUnlockCondition); ok && imm.Address.ID == aliasID {
					return true
				}
			}
			return false
		}); foundryOutstanding != nil {
			return nil, walleterr.New(walleterr.KindBurningOrMelting, "alias still owns at least one foundry output")
		}
	}

	var governor iotago.Address
	for _, c := range src.UnlockConditions() {
		if gov, ok := c.(iotago.GovernorAddressUnlockCondition); ok {
			governor = gov.Address
		}
	}

	sweep := iotago.NewBasicOutput(src.Amount(), []iotago.UnlockCondition{
		iotago.AddressUnlockCondition{Address: governor},
	}, nil, src.NativeTokens())

	opts.MandatoryInputs = append(opts.MandatoryInputs, aliasOD.OutputID)
	return s.send(ctx, []iotago.Output{sweep}, opts)
}
