package ops

import (
	"context"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/walleterr"
)

// AmountTarget is one (address, amount) pair for SendAmount.
type AmountTarget struct {
	Address iotago.Address
	Amount  uint64
}

// SendAmount builds one basic output per target, address-unlock-condition
// only (spec.md §4.4 SendAmount). A target below the minimum storage
// deposit is handled by the shared micro-amount policy in
// txbuilder.Builder.Send: rejected unless opts.AllowMicroAmount is set, in
// which case it is auto-upgraded to carry a storage-deposit-return and
// expiration (spec.md §4.3 step 6).
func (s *Service) SendAmount(ctx context.Context, targets []AmountTarget, opts txbuilder.Options) (*account.TransactionRecord, error) {
	outputs := make([]iotago.Output, 0, len(targets))
	for _, t := range targets {
		outputs = append(outputs, iotago.NewBasicOutput(t.Amount, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: t.Address},
		}, nil, nil))
	}
	return s.send(ctx, outputs, opts)
}

// MicroTarget is one micro-transaction target: amount below the minimum
// storage deposit, carried by a storage-deposit-return unlock condition
// plus an expiration that lets the sender reclaim it if never claimed
// (spec.md §4.4 SendMicroTransaction).
type MicroTarget struct {
	Address         iotago.Address
	Amount          uint64
	ReturnAddress   iotago.Address
	ExpirationUnix  uint32
}

// SendMicroTransaction builds outputs under the micro-transaction policy:
// the output itself carries the minimum storage deposit (so it is valid on
// its own), with a StorageDepositReturnUnlockCondition obligating the
// recipient to return that deposit, and an ExpirationUnlockCondition
// letting the sender reclaim the whole output if it's never claimed. Like
// every other path that produces a storage-deposit-return output (spec.md
// §4.3 step 6), this requires opts.AllowMicroAmount; without it the call
// fails InsufficientFunds rather than silently going through the
// SDR-wrapped path.
func (s *Service) SendMicroTransaction(ctx context.Context, targets []MicroTarget, opts txbuilder.Options) (*account.TransactionRecord, error) {
	if !opts.AllowMicroAmount {
		var total uint64
		for _, t := range targets {
			total += t.Amount
		}
		return nil, &walleterr.InsufficientFundsError{Available: total, Required: s.Builder.Rent.MinStorageDeposit(33, 0) * uint64(len(targets))}
	}

	rent := s.Builder.Rent
	outputs := make([]iotago.Output, 0, len(targets))
	for _, t := range targets {
		deposit := basicDepositEstimate(rent, 3, 0)
		amount := t.Amount
		if amount < deposit {
			amount = deposit
		}
		outputs = append(outputs, iotago.NewBasicOutput(amount, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: t.Address},
			iotago.StorageDepositReturnUnlockCondition{ReturnAddress: t.ReturnAddress, ReturnAmount: deposit},
			iotago.ExpirationUnlockCondition{ReturnAddress: t.ReturnAddress, UnixTime: t.ExpirationUnix},
		}, nil, nil))
	}
	return s.send(ctx, outputs, opts)
}

// NativeTokenTarget is one native-token transfer target. An expiration
// unlock condition returning to ReturnAddress is added only when
// ExpirationUnix is non-zero; the zero value adds none.
type NativeTokenTarget struct {
	Address        iotago.Address
	Tokens         []iotago.NativeToken
	ReturnAddress  iotago.Address
	ExpirationUnix uint32
}

// SendNativeTokens builds basic outputs carrying native tokens (spec.md
// §4.4 SendNativeTokens).
func (s *Service) SendNativeTokens(ctx context.Context, targets []NativeTokenTarget, opts txbuilder.Options) (*account.TransactionRecord, error) {
	rent := s.Builder.Rent
	outputs := make([]iotago.Output, 0, len(targets))
	for _, t := range targets {
		conditions := []iotago.UnlockCondition{iotago.AddressUnlockCondition{Address: t.Address}}
		if t.ExpirationUnix != 0 {
			conditions = append(conditions, iotago.ExpirationUnlockCondition{ReturnAddress: t.ReturnAddress, UnixTime: t.ExpirationUnix})
		}
		deposit := basicDepositEstimate(rent, len(conditions), 0)
		outputs = append(outputs, iotago.NewBasicOutput(deposit, conditions, nil, t.Tokens))
	}
	return s.send(ctx, outputs, opts)
}

// SendNft moves each named NFT to its target address, resolving nft_id to
// the unspent NFT output the account currently owns (spec.md §4.4 SendNft).
func (s *Service) SendNft(ctx context.Context, targets map[iotago.NFTID]iotago.Address, opts txbuilder.Options) (*account.TransactionRecord, error) {
	outputs := make([]iotago.Output, 0, len(targets))
	for nftID, to := range targets {
		od, err := s.findNFT(nftID)
		if err != nil {
			return nil, err
		}
		src := od.Output.(*iotago.NFTOutput)
		outputs = append(outputs, iotago.NewNFTOutput(src.Amount(), src.NFTID, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: to},
		}, src.Features(), src.ImmutableFeatures(), src.NativeTokens()))
		opts.MandatoryInputs = append(opts.MandatoryInputs, od.OutputID)
	}
	return s.send(ctx, outputs, opts)
}
