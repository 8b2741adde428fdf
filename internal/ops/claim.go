package ops

import (
	"context"
	"sort"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/walleterr"
)

// ClaimableKind narrows ClaimOutputs to a reason for claiming, mirroring
// the original's OutputsToClaim enum (SPEC_FULL.md §7, spec.md §8 scenario
// 6: "claim_outputs(OutputsToClaim::MicroTransactions)").
type ClaimableKind int

const (
	ClaimAll ClaimableKind = iota
	ClaimMicroTransactions
	ClaimNativeTokens
	ClaimNFTOutputs
)

// ClaimOutputs claims every unlockable-now output gated by an extra unlock
// condition (storage-deposit return, expiration, timelock) that the
// account doesn't already own outright, batching up to
// params.DefaultClaimBatchSize inputs per resulting transaction because a
// claimed storage-deposit-return output requires an additional return
// output (spec.md §4.4 ClaimOutputs).
func (s *Service) ClaimOutputs(ctx context.Context, kind ClaimableKind, opts txbuilder.Options) ([]*account.TransactionRecord, error) {
	claimable := s.claimableOutputs(kind)
	if len(claimable) == 0 {
		return nil, &walleterr.NoOutputsToConsolidateError{Available: 0, Threshold: 0}
	}

	var records []*account.TransactionRecord
	for start := 0; start < len(claimable); start += params.DefaultClaimBatchSize {
		end := start + params.DefaultClaimBatchSize
		if end > len(claimable) {
			end = len(claimable)
		}
		rec, err := s.claimBatch(ctx, claimable[start:end], opts)
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// claimBatch requires the batch's outputs as mandatory inputs and produces
// only the storage-deposit-return payback outputs the batch obligates;
// internal/txbuilder.Builder.Send's own remainder step consolidates
// whatever is left over into one output at an account address, so this
// function never needs to compute the consolidated amount itself (spec.md
// §4.4: "emit one remainder output consolidating the lot").
func (s *Service) claimBatch(ctx context.Context, batch []*account.OutputData, opts txbuilder.Options) (*account.TransactionRecord, error) {
	returnTotals := make(map[iotago.Address]uint64)
	for _, od := range batch {
		for _, c := range od.Output.UnlockConditions() {
			if sdr, ok := c.(iotago.StorageDepositReturnUnlockCondition); ok {
				returnTotals[sdr.ReturnAddress] += sdr.ReturnAmount
			}
		}
		opts.MandatoryInputs = append(opts.MandatoryInputs, od.OutputID)
	}

	var outputs []iotago.Output
	for addr, amt := range returnTotals {
		outputs = append(outputs, iotago.NewBasicOutput(amt, []iotago.UnlockCondition{
			iotago.AddressUnlockCondition{Address: addr},
		}, nil, nil))
	}
	return s.send(ctx, outputs, opts)
}

// claimableOutputs scans unspent, unlocked outputs for ones gated by a
// condition beyond a plain address unlock that are unlockable now by this
// account, filtered to kind, in deterministic output-id order.
func (s *Service) claimableOutputs(kind ClaimableKind) []*account.OutputData {
	owners := s.Builder.OwnerAddresses()
	currentTime, currentMilestone := s.Builder.Now()

	var out []*account.OutputData
	for _, od := range s.Account.UnspentOutputs(account.Filter{}) {
		if s.Account.IsOutputLocked(od.OutputID) {
			continue
		}
		if iotago.HasTag(od.Output, params.ParticipationTag) {
			continue
		}
		if !hasClaimGatingCondition(od.Output) {
			continue
		}
		if !matchesClaimKind(od.Output, kind) {
			continue
		}
		if !txbuilder.UnlockableNow(od.Output, owners, currentTime, currentMilestone) {
			continue
		}
		out = append(out, od)
	}
	sort.Slice(out, func(i, j int) bool { return lessOutputID(out[i].OutputID, out[j].OutputID) })
	return out
}

func hasClaimGatingCondition(out iotago.Output) bool {
	for _, c := range out.UnlockConditions() {
		switch c.Type() {
		case iotago.UnlockStorageDepositReturn, iotago.UnlockExpiration, iotago.UnlockTimelock:
			return true
		}
	}
	return false
}

func matchesClaimKind(out iotago.Output, kind ClaimableKind) bool {
	switch kind {
	case ClaimMicroTransactions:
		for _, c := range out.UnlockConditions() {
			if c.Type() == iotago.UnlockStorageDepositReturn {
				return true
			}
		}
		return false
	case ClaimNativeTokens:
		return len(out.NativeTokens()) > 0
	case ClaimNFTOutputs:
		return out.Kind() == iotago.OutputNFT
	default:
		return true
	}
}

func lessOutputID(a, b iotago.OutputID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
