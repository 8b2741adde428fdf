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

// ConsolidateOutputs sweeps every address holding more basic outputs than
// threshold (or, when force is set, every address with two or more) into
// one basic output per address, chunked to respect params.MaxInputs
// (spec.md §4.4 ConsolidateOutputs).
func (s *Service) ConsolidateOutputs(ctx context.Context, force bool, threshold int, opts txbuilder.Options) ([]*account.TransactionRecord, error) {
	if threshold <= 0 {
		threshold = s.Account.Options().OutputConsolidationThreshold
	}

	owners := s.Builder.OwnerAddresses()
	currentTime, currentMilestone := s.Builder.Now()

	byAddress := make(map[iotago.Address][]*account.OutputData)
	total := 0
	for _, od := range s.Account.UnspentOutputs(account.Filter{OutputTypes: []iotago.OutputKind{iotago.OutputBasic}}) {
		if s.Account.IsOutputLocked(od.OutputID) {
			continue
		}
		if iotago.HasTag(od.Output, params.ParticipationTag) {
			continue
		}
		if !txbuilder.UnlockableNow(od.Output, owners, currentTime, currentMilestone) {
			continue
		}
		byAddress[od.Address] = append(byAddress[od.Address], od)
		total++
	}

	var addrs []iotago.Address
	for a := range byAddress {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Hex() < addrs[j].Hex() })

	var records []*account.TransactionRecord
	for _, addr := range addrs {
		outs := byAddress[addr]
		if !force && len(outs) <= threshold {
			continue
		}
		sort.Slice(outs, func(i, j int) bool { return lessOutputID(outs[i].OutputID, outs[j].OutputID) })

		maxPerBatch := params.MaxInputs - 1
		for start := 0; start < len(outs); start += maxPerBatch {
			end := start + maxPerBatch
			if end > len(outs) {
				end = len(outs)
			}
			batch := outs[start:end]
			if len(batch) < 2 {
				continue
			}
			rec, err := s.consolidateBatch(ctx, addr, batch, opts)
			if err != nil {
				return records, err
			}
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		return nil, &walleterr.NoOutputsToConsolidateError{Available: total, Threshold: threshold}
	}
	return records, nil
}

func (s *Service) consolidateBatch(ctx context.Context, addr iotago.Address, batch []*account.OutputData, opts txbuilder.Options) (*account.TransactionRecord, error) {
	for _, od := range batch {
		opts.MandatoryInputs = append(opts.MandatoryInputs, od.OutputID)
	}
	opts.RemainderValueStrategy = txbuilder.CustomAddress
	opts.CustomRemainderAddress = &addr
	return s.send(ctx, nil, opts)
}
