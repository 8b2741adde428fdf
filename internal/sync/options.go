// Package sync implements the account synchronization engine of spec.md
// §4.2: for each address the account owns, query the node indexer for
// current output ids, diff against what the account already knows, fetch
// full output data for anything new, and reconcile pending transactions
// against block inclusion state. The background-syncing lifecycle follows
// the teacher's work.CpuAgent Start()/Stop() shape (atomic running flag plus
// a stop channel), generalized from "mine on demand" to "poll the node on an
// interval".
package sync

import "time"

// Options controls one sync pass (spec.md §4.2 SyncOptions).
type Options struct {
	// Addresses restricts the pass to these addresses; empty means the
	// account's addresses holding unspent outputs, or every generated
	// address when SyncAllAddresses is set. A pass generates no lookahead
	// addresses.
	Addresses []string

	// ForceSync bypasses the dedup cache and re-fetches every address's
	// output ids even if nothing has changed since the last pass.
	ForceSync bool

	// SyncAllAddresses also walks addresses with no recorded activity yet,
	// not just ones already holding a balance.
	SyncAllAddresses bool

	// SyncIncomingTransactions additionally resolves and records the
	// transaction that produced each newly seen output (spec.md §4.2
	// step 5, Account.PersistIncomingTransactions gate).
	SyncIncomingTransactions bool

	// SyncOnlyMostBasicOutputs skips alias/foundry/NFT indexer queries
	// entirely, useful for a cheap balance-only refresh. Overrides
	// SyncAliasesAndNFTs.
	SyncOnlyMostBasicOutputs bool

	// SyncAliasesAndNFTs additionally queries the alias and NFT indexer
	// endpoints per address (spec.md §4.2 SyncOptions.sync_aliases_and_nfts).
	// Has no effect when SyncOnlyMostBasicOutputs is set.
	SyncAliasesAndNFTs bool

	// SyncNativeTokenFoundries runs the foundry-metadata backfill pass
	// (spec.md §4.2 step 7): for every native token the account holds whose
	// governing foundry isn't already cached, fetch that foundry output and
	// cache its immutable token scheme. Off by default because it costs one
	// extra node round trip per distinct foundry the account has never seen.
	SyncNativeTokenFoundries bool

	// SyncPendingTransactions reconciles outstanding pending transactions
	// against block inclusion state (spec.md §4.2 step 6).
	SyncPendingTransactions bool

	// OutputConsolidationThreshold overrides the account's configured
	// threshold for this pass's automatic-consolidation check.
	OutputConsolidationThreshold int
}

// DefaultOptions matches spec.md §4.2's documented defaults.
var DefaultOptions = Options{
	SyncAllAddresses:         false,
	SyncIncomingTransactions: false,
	ForceSync:                false,
	SyncAliasesAndNFTs:       true,
	SyncNativeTokenFoundries: false,
	SyncPendingTransactions:  true,
}

// BackgroundInterval is the default polling period for StartBackgroundSyncing.
const BackgroundInterval = 30 * time.Second
