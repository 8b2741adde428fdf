package txbuilder

import (
	"sort"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/walleterr"
)

// UnlockableNow and UnlockableForever implement the claim eligibility
// predicate of spec.md §4.4, shared by input selection, ClaimOutputs, and
// account.Balance; the predicate itself lives in package iotago (it only
// touches output/unlock-condition types) so that package can evaluate it
// too without importing internal/txbuilder.
var (
	UnlockableNow     = iotago.UnlockableNow
	UnlockableForever = iotago.UnlockableForever
)

// selectInputs runs spec.md §4.3 step 4 over pool, a set of candidate
// unspent outputs already filtered to ones unlockable now. mandatory must
// all be present in the chosen set (spec.md §4.3 step 3); additional inputs
// are added, smallest output-id first for reproducibility, until the target
// base-coin and native-token amounts are met.
func selectInputs(pool []*account.OutputData, mandatory []*account.OutputData, targetBase uint64, targetTokens map[iotago.TokenID]uint64) ([]*account.OutputData, error) {
	sort.Slice(pool, func(i, j int) bool { return lessOutputID(pool[i].OutputID, pool[j].OutputID) })

	chosen := make([]*account.OutputData, 0, len(mandatory))
	chosenIDs := make(map[iotago.OutputID]bool)
	for _, od := range mandatory {
		chosen = append(chosen, od)
		chosenIDs[od.OutputID] = true
	}

	sumBase, sumTokens := sumOutputs(chosen)

	needsMore := func() bool {
		if sumBase < targetBase {
			return true
		}
		for id, want := range targetTokens {
			if sumTokens[id] < want {
				return true
			}
		}
		return false
	}

	for _, od := range pool {
		if !needsMore() {
			break
		}
		if chosenIDs[od.OutputID] {
			continue
		}
		chosen = append(chosen, od)
		chosenIDs[od.OutputID] = true
		sumBase, sumTokens = sumOutputs(chosen)
	}

	if sumBase < targetBase {
		return nil, &walleterr.InsufficientFundsError{Available: sumBase, Required: targetBase}
	}
	for id, want := range targetTokens {
		if sumTokens[id] < want {
			return nil, &walleterr.InsufficientFundsError{Available: sumTokens[id], Required: want}
		}
	}

	if len(chosen) > params.MaxInputs {
		return nil, &walleterr.ConsolidationRequiredError{InputCount: len(chosen), MaxInputs: params.MaxInputs}
	}
	return chosen, nil
}

func sumOutputs(outputs []*account.OutputData) (uint64, map[iotago.TokenID]uint64) {
	var base uint64
	tokens := make(map[iotago.TokenID]uint64)
	for _, od := range outputs {
		base += od.Output.Amount()
		for _, nt := range od.Output.NativeTokens() {
			tokens[nt.ID] += nt.Amount
		}
	}
	return base, tokens
}

func lessOutputID(a, b iotago.OutputID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
