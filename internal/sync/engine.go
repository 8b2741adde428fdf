package sync

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"
	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/internal/eventbus"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.Sync)

// outputIDJob is one unit of indexer work handed to the fetch pool: "list
// the output ids of this kind owned by this address."
type outputIDJob struct {
	address iotago.Address
	kind    iotago.OutputKind
}

type outputIDResult struct {
	job job
	ids []iotago.OutputID
	err error
}

type job = outputIDJob

// Engine drives one account's synchronization against a node, per
// spec.md §4.2. It owns two caches named in SPEC_FULL.md's DOMAIN STACK: an
// LRU of foundry immutable metadata (token scheme), read through by the
// step 7 backfill pass for foundries the account doesn't itself own, and a
// fastcache-backed per-(address,kind) cache of the milestone index as of
// the last successful indexer query, which lets ForceSync=false passes skip
// a query outright when the node hasn't produced a new milestone since.
type Engine struct {
	acc    *account.Account
	node   client.NodeClient
	bus    eventbus.Bus

	foundryCache *lru.Cache
	seenDigests  *fastcache.Cache

	concurrency int

	running  int32
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New builds a sync engine for acc. bus may be nil, in which case domain
// events are simply not published.
func New(acc *account.Account, node client.NodeClient, bus eventbus.Bus) *Engine {
	foundryCache, _ := lru.New(256)
	return &Engine{
		acc:          acc,
		node:         node,
		bus:          bus,
		foundryCache: foundryCache,
		seenDigests:  fastcache.New(4 * 1024 * 1024),
		concurrency:  8,
	}
}

func (e *Engine) publish(kind eventbus.EventKind, payload interface{}) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(eventbus.Event{AccountIndex: e.acc.Index(), Kind: kind, Payload: payload})
}

// Sync runs one synchronization pass and returns the account's resulting
// balance, per spec.md §4.2.
func (e *Engine) Sync(ctx context.Context, opts Options) (account.Balance, error) {
	defer syncDurationTimer.UpdateSince(time.Now())

	addresses := e.resolveAddresses(opts)

	newOutputs, spentIDs, err := e.syncOutputs(ctx, addresses, opts)
	if err != nil {
		syncErrorMeter.Mark(1)
		return account.Balance{}, err
	}
	newOutputMeter.Mark(int64(len(newOutputs)))
	spentOutputMeter.Mark(int64(len(spentIDs)))

	if opts.SyncIncomingTransactions {
		e.syncIncomingTransactions(ctx, newOutputs)
	}

	if err := e.acc.ApplySyncResult(newOutputs, spentIDs); err != nil {
		return account.Balance{}, err
	}

	for _, od := range newOutputs {
		e.publish(eventbus.EventNewOutput, od.OutputID)
	}
	for _, id := range spentIDs {
		e.publish(eventbus.EventSpentOutput, id)
	}

	if opts.SyncPendingTransactions {
		if err := e.reconcilePendingTransactions(ctx); err != nil {
			logger.Warnw("failed to reconcile pending transactions", "err", err)
		}
	}

	if opts.SyncNativeTokenFoundries {
		e.backfillFoundryMetadata(ctx)
	}

	bal := e.acc.Balance()
	e.publish(eventbus.EventBalanceChange, bal)

	threshold := opts.OutputConsolidationThreshold
	if threshold == 0 {
		threshold = e.acc.Options().OutputConsolidationThreshold
	}
	if threshold > 0 && len(e.acc.UnspentOutputs(account.Filter{})) > threshold {
		logger.Infow("unspent output count exceeds consolidation threshold",
			"accountIndex", e.acc.Index(), "count", len(e.acc.UnspentOutputs(account.Filter{})), "threshold", threshold)
	}

	return bal, nil
}

func (e *Engine) resolveAddresses(opts Options) []iotago.Address {
	if len(opts.Addresses) > 0 {
		addrs := make([]iotago.Address, 0, len(opts.Addresses))
		for _, hexAddr := range opts.Addresses {
			a, err := iotago.AddressFromHex(hexAddr)
			if err != nil {
				logger.Warnw("skipping unparseable address in sync options", "address", hexAddr, "err", err)
				continue
			}
			addrs = append(addrs, a)
		}
		return addrs
	}

	var records []account.AddressRecord
	if opts.SyncAllAddresses {
		records = e.acc.Addresses()
	} else {
		records = e.acc.AddressesWithUnspentOutputs()
	}
	addrs := make([]iotago.Address, 0, len(records))
	for _, r := range records {
		addrs = append(addrs, r.Address)
	}
	return addrs
}

// outputKinds is the set of indexer queries issued per address, honoring
// SyncOnlyMostBasicOutputs and SyncAliasesAndNFTs.
func outputKinds(opts Options) []iotago.OutputKind {
	if opts.SyncOnlyMostBasicOutputs {
		return []iotago.OutputKind{iotago.OutputBasic}
	}
	kinds := []iotago.OutputKind{iotago.OutputBasic, iotago.OutputFoundry}
	if opts.SyncAliasesAndNFTs {
		kinds = append(kinds, iotago.OutputAlias, iotago.OutputNFT)
	}
	return kinds
}

// syncOutputs runs the indexer fan-out over a bounded worker pool (the
// concurrency pattern follows the teacher's work.CpuAgent channel-driven
// dispatch, generalized from one mining job at a time to many independent
// per-address/per-kind indexer queries in flight), fetches full output data
// for anything new, and returns the new OutputData plus the ids of
// previously-unspent outputs that disappeared from the indexer (spent).
func (e *Engine) syncOutputs(ctx context.Context, addresses []iotago.Address, opts Options) ([]*account.OutputData, []iotago.OutputID, error) {
	milestoneIndex := e.currentMilestoneIndex(ctx)

	jobs := make(chan outputIDJob)
	results := make(chan outputIDResult)

	var wg sync.WaitGroup
	workers := e.concurrency
	if workers > len(addresses)*4+1 {
		workers = len(addresses)*4 + 1
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				ids, err := e.fetchOutputIDs(ctx, j)
				results <- outputIDResult{job: j, ids: ids, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, addr := range addresses {
			for _, kind := range outputKinds(opts) {
				if !opts.ForceSync && e.unchangedSinceLastPass(addr, kind, milestoneIndex) {
					continue
				}
				jobs <- outputIDJob{address: addr, kind: kind}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	knownUnspent := make(map[iotago.OutputID]bool)
	for _, od := range e.acc.UnspentOutputs(account.Filter{}) {
		knownUnspent[od.OutputID] = true
	}

	queried := make(map[string]bool)
	owner := make(map[iotago.OutputID]iotago.Address)
	var allNewIDs []iotago.OutputID
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = walleterr.Wrap(walleterr.KindNodeClient, r.err, "indexer query failed")
			}
			continue
		}
		e.recordDigest(r.job.address, r.job.kind, milestoneIndex)
		queried[string(digestKey(r.job.address, r.job.kind))] = true
		for _, id := range r.ids {
			delete(knownUnspent, id)
			owner[id] = r.job.address
		}
		allNewIDs = append(allNewIDs, r.ids...)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}

	toFetch := e.idsNotYetKnown(allNewIDs)
	outputs, err := e.fetchOutputs(ctx, toFetch)
	if err != nil {
		return nil, nil, err
	}
	for _, od := range outputs {
		od.Address = owner[od.OutputID]
	}
	for _, od := range e.acc.UnspentOutputs(account.Filter{}) {
		if !queried[string(digestKey(od.Address, od.Output.Kind()))] {
			delete(knownUnspent, od.OutputID)
		}
	}

	spentIDs := make([]iotago.OutputID, 0, len(knownUnspent))
	for id := range knownUnspent {
		spentIDs = append(spentIDs, id)
	}
	return outputs, spentIDs, nil
}

func (e *Engine) idsNotYetKnown(ids []iotago.OutputID) []iotago.OutputID {
	known := make(map[iotago.OutputID]bool)
	for _, od := range e.acc.Outputs(account.Filter{}) {
		known[od.OutputID] = true
	}
	var out []iotago.OutputID
	for _, id := range ids {
		if !known[id] {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) fetchOutputIDs(ctx context.Context, j outputIDJob) ([]iotago.OutputID, error) {
	q := client.OutputQuery{Address: &j.address}
	var page client.OutputIDPage
	var err error
	switch j.kind {
	case iotago.OutputBasic:
		page, err = e.node.BasicOutputIDs(ctx, q)
	case iotago.OutputAlias:
		page, err = e.node.AliasOutputIDs(ctx, q)
	case iotago.OutputFoundry:
		page, err = e.node.FoundryOutputIDs(ctx, q)
	case iotago.OutputNFT:
		page, err = e.node.NFTOutputIDs(ctx, q)
	default:
		return nil, fmt.Errorf("sync: unsupported output kind %d", j.kind)
	}
	if err != nil {
		return nil, err
	}

	ids := page.OutputIDs
	for page.NextCursor != "" {
		q.Cursor = page.NextCursor
		switch j.kind {
		case iotago.OutputBasic:
			page, err = e.node.BasicOutputIDs(ctx, q)
		case iotago.OutputAlias:
			page, err = e.node.AliasOutputIDs(ctx, q)
		case iotago.OutputFoundry:
			page, err = e.node.FoundryOutputIDs(ctx, q)
		case iotago.OutputNFT:
			page, err = e.node.NFTOutputIDs(ctx, q)
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.OutputIDs...)
	}
	return ids, nil
}

// fetchOutputs pages ids through GetOutputs in params.OutputIDFetchBatchSize
// batches and converts each response into an account.OutputData, warming the
// foundry metadata cache for any FoundryOutput it encounters.
func (e *Engine) fetchOutputs(ctx context.Context, ids []iotago.OutputID) ([]*account.OutputData, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []*account.OutputData
	batchSize := params.OutputIDFetchBatchSize
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		resp, err := e.node.GetOutputs(ctx, ids[start:end])
		if err != nil {
			return nil, walleterr.Wrap(walleterr.KindNodeClient, err, "failed to fetch outputs")
		}
		for _, r := range resp {
			if fo, ok := r.Output.(*iotago.FoundryOutput); ok {
				e.foundryCache.Add(fo.FoundryID, fo.TokenScheme)
			}
			out = append(out, &account.OutputData{
				OutputID: r.OutputID,
				Output:   r.Output,
				IsSpent:  r.IsSpent,
				Metadata: account.OutputMetadata{
					BlockID:            r.BlockID,
					MilestoneIndex:     r.MilestoneIndex,
					MilestoneTimestamp: r.MilestoneTimestamp,
					IsSpent:            r.IsSpent,
					TransactionIDSpent: r.TransactionIDSpent,
				},
			})
		}
	}
	return out, nil
}

func (e *Engine) syncIncomingTransactions(ctx context.Context, newOutputs []*account.OutputData) {
	for _, od := range newOutputs {
		txID := od.OutputID.TransactionID()
		block, err := e.node.GetBlock(ctx, iotago.BlockID(txID))
		if err != nil {
			logger.Debugw("could not fetch originating block for incoming transaction", "err", err)
			continue
		}
		if block.Payload == nil {
			continue
		}
		if err := e.acc.RecordIncomingTransaction(&account.IncomingTransactionRecord{
			TransactionID: txID,
			Payload:       *block.Payload,
		}); err != nil {
			logger.Warnw("failed to record incoming transaction", "err", err)
		}
	}
}

// reconcilePendingTransactions polls node.GetBlockMetadata for every
// pending transaction's block and resolves it once no longer pending
// (spec.md §4.2 step 6).
func (e *Engine) reconcilePendingTransactions(ctx context.Context) error {
	for _, tr := range e.acc.PendingTransactions() {
		if tr.BlockID == nil {
			continue
		}
		meta, err := e.node.GetBlockMetadata(ctx, *tr.BlockID)
		if err != nil {
			logger.Debugw("failed to fetch block metadata", "err", err)
			continue
		}
		if meta.Inclusion == iotago.InclusionPending {
			continue
		}
		if err := e.acc.ResolveTransaction(tr.TransactionID, meta.Inclusion, tr.BlockID); err != nil {
			return err
		}
		if meta.Inclusion == iotago.InclusionConfirmed {
			e.publish(eventbus.EventTransactionConfirmed, tr.TransactionID)
		} else if meta.Inclusion == iotago.InclusionConflicting {
			e.publish(eventbus.EventTransactionConflicting, tr.TransactionID)
		}
	}
	return nil
}

func digestKey(addr iotago.Address, kind iotago.OutputKind) []byte {
	key := addr.Hex() + fmt.Sprintf(":%d", kind)
	return []byte(key)
}

// currentMilestoneIndex fetches the node's latest milestone index, the
// independent "has anything possibly changed" signal unchangedSinceLastPass
// needs. A zero return (including on a failed Info call) means unknown and
// must never be cached as if it were a real index, or every subsequent pass
// would wrongly believe nothing changed.
func (e *Engine) currentMilestoneIndex(ctx context.Context) uint32 {
	info, err := e.node.Info(ctx)
	if err != nil {
		logger.Debugw("failed to fetch node info for sync digest cache", "err", err)
		return 0
	}
	return info.LatestMilestoneIndex
}

// unchangedSinceLastPass reports whether this address/kind was already
// queried at the given milestone index, letting ForceSync=false passes skip
// the indexer call entirely: nothing can have changed for this address
// since the last query if the node hasn't moved past that milestone.
func (e *Engine) unchangedSinceLastPass(addr iotago.Address, kind iotago.OutputKind, milestoneIndex uint32) bool {
	if milestoneIndex == 0 {
		return false
	}
	stored := e.seenDigests.Get(nil, digestKey(addr, kind))
	if len(stored) != 4 {
		return false
	}
	return binary.BigEndian.Uint32(stored) == milestoneIndex
}

func (e *Engine) recordDigest(addr iotago.Address, kind iotago.OutputKind, milestoneIndex uint32) {
	if milestoneIndex == 0 {
		return
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], milestoneIndex)
	e.seenDigests.Set(digestKey(addr, kind), buf[:])
}

// backfillFoundryMetadata implements spec.md §4.2 step 7: for every
// distinct native token the account currently holds, make sure the
// immutable token scheme of its governing foundry is cached, fetching it
// from the node on a cache miss. The foundry backing a token the account
// holds need not be one the account itself owns, so this can't reuse the
// per-address indexer pass in syncOutputs — it looks the foundry up
// directly by its derived id.
func (e *Engine) backfillFoundryMetadata(ctx context.Context) {
	seen := make(map[iotago.FoundryID]bool)
	for _, od := range e.acc.UnspentOutputs(account.Filter{}) {
		for _, nt := range od.Output.NativeTokens() {
			foundryID := iotago.FoundryID(nt.ID)
			if seen[foundryID] {
				continue
			}
			seen[foundryID] = true
			if _, ok := e.foundryCache.Get(foundryID); ok {
				continue
			}
			resp, found, err := e.node.FoundryOutputByID(ctx, foundryID)
			if err != nil {
				logger.Debugw("failed to backfill foundry metadata", "foundryID", foundryID, "err", err)
				continue
			}
			if !found {
				continue
			}
			fo, ok := resp.Output.(*iotago.FoundryOutput)
			if !ok {
				continue
			}
			e.foundryCache.Add(foundryID, fo.TokenScheme)
		}
	}
}

// StartBackgroundSyncing launches a ticker-driven loop that calls Sync every
// interval until StopBackgroundSyncing is called, per spec.md §4.6
// start_background_syncing. Mirrors the teacher's work.CpuAgent atomic
// start/stop guard so double-start and double-stop are no-ops.
func (e *Engine) StartBackgroundSyncing(interval time.Duration, opts Options) {
	if !atomic.CompareAndSwapInt32(&e.running, 0, 1) {
		return
	}
	if interval <= 0 {
		interval = BackgroundInterval
	}
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				if _, err := e.Sync(ctx, opts); err != nil {
					logger.Warnw("background sync pass failed", "accountIndex", e.acc.Index(), "err", err)
				}
				cancel()
			}
		}
	}()
}

// StopBackgroundSyncing stops a previously started background loop and
// waits for the current pass, if any, to finish.
func (e *Engine) StopBackgroundSyncing() {
	if !atomic.CompareAndSwapInt32(&e.running, 1, 0) {
		return
	}
	close(e.stopCh)
	e.wg.Wait()
}
