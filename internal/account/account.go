package account

import (
	"time"

	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/walleterr"
)

// snapshotLocked builds the persisted Snapshot form of the account. Callers must
// already hold at least a read lock.
func (a *Account) snapshotLocked() *Snapshot {
	return &Snapshot{
		Index:                a.index,
		Alias:                a.alias,
		CoinType:             a.coinType,
		PublicAddresses:      a.publicAddresses,
		InternalAddresses:    a.internalAddresses,
		Outputs:              a.outputs,
		UnspentOutputs:       a.unspentOutputs,
		Transactions:         a.transactions,
		PendingTransactions:  a.pendingTransactions,
		IncomingTransactions: a.incomingTransactions,
		LockedOutputs:        a.lockedOutputs,
		Options:              a.options,
	}
}

// Snapshot returns the persisted form of the account's current state, for
// callers (e.g. the backup driver) that need it outside the normal
// persist-on-mutation path.
func (a *Account) Snapshot() *Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked()
}

// persistLocked persists the current state, honoring Options.SkipPersistence
// (SPEC_FULL.md §9.1). Callers must hold the write lock.
func (a *Account) persistLocked() error {
	if a.options.SkipPersistence || a.persist == nil {
		return nil
	}
	if err := a.persist(a.snapshotLocked()); err != nil {
		return walleterr.Wrap(walleterr.KindStorage, err, "failed to persist account")
	}
	return nil
}

// Addresses returns every address (public and internal) generated for this
// account, per spec.md §4.1.
func (a *Account) Addresses() []AddressRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AddressRecord, 0, len(a.publicAddresses)+len(a.internalAddresses))
	out = append(out, a.publicAddresses...)
	out = append(out, a.internalAddresses...)
	return out
}

// PublicAddresses returns only the non-change addresses, in key-index order.
func (a *Account) PublicAddresses() []AddressRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AddressRecord, len(a.publicAddresses))
	copy(out, a.publicAddresses)
	return out
}

// AddressesWithUnspentOutputs returns the subset of addresses that currently
// own at least one unspent output, per spec.md §4.1.
func (a *Account) AddressesWithUnspentOutputs() []AddressRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()

	withBalance := make(map[string]bool)
	for _, od := range a.unspentOutputs {
		withBalance[od.Address.Hex()] = true
	}

	var out []AddressRecord
	for _, ar := range a.publicAddresses {
		if withBalance[ar.Address.Hex()] {
			out = append(out, ar)
		}
	}
	for _, ar := range a.internalAddresses {
		if withBalance[ar.Address.Hex()] {
			out = append(out, ar)
		}
	}
	return out
}

// Outputs returns every known output matching filter, per spec.md §4.1.
func (a *Account) Outputs(filter Filter) []*OutputData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*OutputData
	for id, od := range a.outputs {
		if filter.matches(id, od.Output.Kind()) {
			out = append(out, od)
		}
	}
	return out
}

// UnspentOutputs returns every unspent output matching filter.
func (a *Account) UnspentOutputs(filter Filter) []*OutputData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []*OutputData
	for id, od := range a.unspentOutputs {
		if filter.matches(id, od.Output.Kind()) {
			out = append(out, od)
		}
	}
	return out
}

// Transactions returns every transaction this account originated.
func (a *Account) Transactions() []*TransactionRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*TransactionRecord, 0, len(a.transactions))
	for _, tr := range a.transactions {
		out = append(out, tr)
	}
	return out
}

// PendingTransactions returns transactions not yet confirmed or conflicting.
func (a *Account) PendingTransactions() []*TransactionRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*TransactionRecord, 0, len(a.pendingTransactions))
	for _, tr := range a.pendingTransactions {
		out = append(out, tr)
	}
	return out
}

// IncomingTransactions returns the incoming-transaction index.
func (a *Account) IncomingTransactions() []*IncomingTransactionRecord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*IncomingTransactionRecord, 0, len(a.incomingTransactions))
	for _, tr := range a.incomingTransactions {
		out = append(out, tr)
	}
	return out
}

// IsOutputLocked reports whether an output is currently reserved by an
// in-flight transaction (spec.md §5 "locked outputs").
func (a *Account) IsOutputLocked(id iotago.OutputID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, locked := a.lockedOutputs[id]
	return locked
}

// LockOutputs marks the given outputs as reserved, persisting the change.
// Used by internal/txbuilder immediately after input selection so a second
// concurrent send cannot pick the same inputs (spec.md §5).
func (a *Account) LockOutputs(ids ...iotago.OutputID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		a.lockedOutputs[id] = struct{}{}
	}
	return a.persistLocked()
}

// UnlockOutputs releases a prior reservation, e.g. after a transaction is
// confirmed, rejected, or its build failed before submission.
func (a *Account) UnlockOutputs(ids ...iotago.OutputID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, id := range ids {
		delete(a.lockedOutputs, id)
	}
	return a.persistLocked()
}

// SetAlias renames the account (spec.md §4.1 set_alias).
func (a *Account) SetAlias(alias string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alias = alias
	return a.persistLocked()
}

// Options returns a copy of the account's options.
func (a *Account) Options() Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.options
}

// SetOptions replaces the account's options (e.g. to change the
// consolidation threshold), persisting the change.
func (a *Account) SetOptions(opts Options) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.options = opts
	return a.persistLocked()
}

// GenerateAddresses appends n newly derived addresses (public, or internal
// when internal is true) and persists the updated address lists, per
// spec.md §4.1 generate_addresses. Derivation itself is delegated to the
// caller-supplied deriveFn (internal/manager wires the configured Signer).
func (a *Account) GenerateAddresses(n int, internal bool, deriveFn func(keyIndex uint32, internal bool) (iotago.Address, error)) ([]AddressRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	list := &a.publicAddresses
	if internal {
		list = &a.internalAddresses
	}
	startIndex := uint32(len(*list))

	generated := make([]AddressRecord, 0, n)
	for i := 0; i < n; i++ {
		keyIndex := startIndex + uint32(i)
		addr, err := deriveFn(keyIndex, internal)
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindNodeClient, err, "address generation failed")
		}
		rec := AddressRecord{Address: addr, KeyIndex: keyIndex, Internal: internal}
		generated = append(generated, rec)
		*list = append(*list, rec)
	}
	if err := a.persistLocked(); err != nil {
		return nil, err
	}
	return generated, nil
}

// ApplySyncResult merges freshly-fetched output state into the account
// (internal/sync's sole write path into the account), marking any output no
// longer present among unspent outputs as spent and moving it out of
// UnspentOutputs, and persists the result in one locked section per
// spec.md §4.1/§5.
func (a *Account) ApplySyncResult(newOutputs []*OutputData, spentOutputIDs []iotago.OutputID) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, od := range newOutputs {
		a.outputs[od.OutputID] = od
		if !od.IsSpent {
			a.unspentOutputs[od.OutputID] = od
		}
	}
	for _, id := range spentOutputIDs {
		if od, ok := a.outputs[id]; ok {
			od.IsSpent = true
		}
		delete(a.unspentOutputs, id)
		delete(a.lockedOutputs, id)
	}
	return a.persistLocked()
}

// RecordPendingTransaction registers a transaction this account just built
// and submitted, per spec.md §4.4 send operations.
func (a *Account) RecordPendingTransaction(tr *TransactionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transactions[tr.TransactionID] = tr
	a.pendingTransactions[tr.TransactionID] = tr
	return a.persistLocked()
}

// ResolveTransaction updates a transaction's inclusion state once sync
// observes a block's metadata, removing it from PendingTransactions when it
// leaves the Pending state (spec.md §4.2 conflict/confirmation handling).
func (a *Account) ResolveTransaction(id iotago.TransactionID, state iotago.InclusionState, blockID *iotago.BlockID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	tr, ok := a.transactions[id]
	if !ok {
		return walleterr.New(walleterr.KindMissingParameter, "unknown transaction id")
	}
	tr.InclusionState = state
	tr.BlockID = blockID
	if state != iotago.InclusionPending {
		delete(a.pendingTransactions, id)
	}
	return a.persistLocked()
}

// RecordIncomingTransaction indexes an incoming transaction discovered
// during sync, honoring Options.PersistIncomingTransactions.
func (a *Account) RecordIncomingTransaction(tr *IncomingTransactionRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.options.PersistIncomingTransactions {
		return nil
	}
	a.incomingTransactions[tr.TransactionID] = tr
	return a.persistLocked()
}

// Balance aggregates the account's current unspent outputs into the summary
// shape spec.md §4.1 balance() returns.
type Balance struct {
	BaseCoin                 uint64
	NativeTokens             map[iotago.TokenID]uint64
	Aliases                  []iotago.AliasID
	Foundries                []iotago.FoundryID
	NFTs                     []iotago.NFTID
	PotentiallyLockedOutputs int
}

// Balance computes the account's balance over its current unspent outputs
// (spec.md §4.1 balance(), invariant 6: grouped sum of unspent outputs that
// are not locked, not voting outputs, and currently unlockable by this
// account). Outputs excluded from the sum for being locked are still
// counted in PotentiallyLockedOutputs as a diagnostic.
func (a *Account) Balance() Balance {
	a.mu.RLock()
	defer a.mu.RUnlock()

	owners := make(map[iotago.Address]bool, len(a.publicAddresses)+len(a.internalAddresses))
	for _, ar := range a.publicAddresses {
		owners[ar.Address] = true
	}
	for _, ar := range a.internalAddresses {
		owners[ar.Address] = true
	}
	currentTime := uint32(time.Now().Unix())

	bal := Balance{NativeTokens: make(map[iotago.TokenID]uint64)}
	for id, od := range a.unspentOutputs {
		_, locked := a.lockedOutputs[id]
		if locked {
			bal.PotentiallyLockedOutputs++
			continue
		}
		if iotago.HasTag(od.Output, params.ParticipationTag) {
			continue
		}
		if !iotago.UnlockableNow(od.Output, owners, currentTime, 0) {
			continue
		}

		bal.BaseCoin += od.Output.Amount()
		for _, nt := range od.Output.NativeTokens() {
			bal.NativeTokens[nt.ID] += nt.Amount
		}
		switch out := od.Output.(type) {
		case *iotago.AliasOutput:
			bal.Aliases = append(bal.Aliases, out.AliasID)
		case *iotago.FoundryOutput:
			bal.Foundries = append(bal.Foundries, out.FoundryID)
		case *iotago.NFTOutput:
			bal.NFTs = append(bal.NFTs, out.NFTID)
		}
	}
	return bal
}
