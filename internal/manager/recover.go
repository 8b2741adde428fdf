package manager

import (
	"context"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/sync"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/storage"
)

// RecoverAccountsOptions is spec.md §4.6's recover_accounts argument set.
type RecoverAccountsOptions struct {
	AccountStartIndex uint32
	AccountGapLimit   int
	AddressGapLimit   int
	SyncOptions       sync.Options
}

// RecoverAccounts scans accounts breadth-first from AccountStartIndex,
// stopping once AccountGapLimit consecutive accounts are found to hold no
// unspent outputs and no recorded transactions after generating
// AddressGapLimit lookahead addresses for each, and registering every
// account that has either (spec.md §4.6 recover_accounts).
func (m *Manager) RecoverAccounts(ctx context.Context, opts RecoverAccountsOptions) ([]*account.Account, error) {
	if opts.AccountGapLimit <= 0 {
		opts.AccountGapLimit = params.DefaultAccountGapLimit
	}
	if opts.AddressGapLimit <= 0 {
		opts.AddressGapLimit = params.DefaultAddressGapLimit
	}

	var recovered []*account.Account
	emptyStreak := 0
	for index := opts.AccountStartIndex; emptyStreak < opts.AccountGapLimit; index++ {
		acc, err := m.recoverOneAccount(ctx, index, opts)
		if err != nil {
			return recovered, err
		}
		if acc == nil {
			emptyStreak++
			continue
		}
		emptyStreak = 0
		recovered = append(recovered, acc)
	}
	return recovered, nil
}

// recoverOneAccount probes a single account index: it wires a transient
// account (not yet registered with the manager), generates the address
// gap-limit's worth of lookahead addresses, and syncs. If the account holds
// unspent outputs or has recorded transactions it is registered and
// returned; otherwise its probe state is discarded (including its stored
// record) and nil is returned so the caller can advance its empty streak.
func (m *Manager) recoverOneAccount(ctx context.Context, index uint32, opts RecoverAccountsOptions) (*account.Account, error) {
	m.mu.RLock()
	if _, exists := m.accounts[index]; exists {
		m.mu.RUnlock()
		return m.accounts[index].account, nil
	}
	m.mu.RUnlock()

	acc := account.New(index, "", m.coinType, account.DefaultOptions, m.persisterFor(index))
	ma := m.wire(acc)

	if _, err := acc.GenerateAddresses(opts.AddressGapLimit, false, m.deriveFn(acc)); err != nil {
		return nil, err
	}
	if _, err := acc.GenerateAddresses(opts.AddressGapLimit, true, m.deriveFn(acc)); err != nil {
		return nil, err
	}

	syncOpts := opts.SyncOptions
	syncOpts.SyncAllAddresses = true
	if _, err := ma.engine.Sync(ctx, syncOpts); err != nil {
		return nil, err
	}

	if len(acc.UnspentOutputs(account.Filter{})) == 0 && len(acc.Transactions()) == 0 {
		if m.store != nil {
			if err := m.store.Delete(storage.AccountKey(index)); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}

	m.mu.Lock()
	m.accounts[index] = ma
	m.mu.Unlock()
	return acc, nil
}
