// Package client specifies the node-client contract (spec.md §6.2) and
// provides one concrete implementation wrapping an RPC transport, following
// the teacher's client/bridge_client.go pattern of thin methods that each
// issue one named CallContext. A go-redis response cache sits in front of
// the rarely-changing calls (Info) to cut node round trips during sync.
package client

import (
	"context"
	"time"

	"github.com/iotaledger/wallet.go/iotago"
)

// OutputQuery is the indexer predicate from spec.md §6.2: filters over
// unlock conditions (address, governor, state-controller, has-expiration,
// has-timelock, has-storage-deposit-return).
type OutputQuery struct {
	Address                    *iotago.Address
	GovernorAddress             *iotago.Address
	StateControllerAddress      *iotago.Address
	HasExpiration               *bool
	HasTimelock                 *bool
	HasStorageDepositReturn     *bool
	Cursor                      string
}

// OutputIDPage is one page of indexer results, cursor-paginated like the
// real IOTA indexer API.
type OutputIDPage struct {
	OutputIDs  []iotago.OutputID
	NextCursor string
}

// OutputResponse wraps an output with the metadata spec.md §3's OutputData
// needs (block id, milestone, spent flag).
type OutputResponse struct {
	OutputID          iotago.OutputID
	Output            iotago.Output
	BlockID           iotago.BlockID
	MilestoneIndex    uint32
	MilestoneTimestamp uint32
	IsSpent           bool
	TransactionIDSpent iotago.TransactionID
}

// BlockMetadata reports a block's inclusion state for pending-transaction
// reconciliation (spec.md §4.2 step 6).
type BlockMetadata struct {
	BlockID             iotago.BlockID
	Inclusion           iotago.InclusionState
	ReferencedByMilestone uint32
	ConflictReason      string
}

// NodeInfo is the subset of get_info() the core consults (spec.md §6.2).
type NodeInfo struct {
	LatestMilestoneIndex     uint32
	LatestMilestoneTimestamp int64
	RentStructure            RentStructure
	TokenSupply              uint64
	Bech32HRP                string
	NetworkName              string
}

type RentStructure struct {
	VByteCost       uint64
	VByteFactorData uint64
	VByteFactorKey  uint64
}

// ClientOptions configures the node set and per-API behavior an account
// manager hands to its NodeClient (spec.md §4.6 set_client_options, §5
// "Per-node-API timeouts come from ClientOptions.api_timeout[api]").
type ClientOptions struct {
	Nodes           []string
	PrimaryNode     string
	NetworkName     string
	LocalPoW        bool
	NodeSyncEnabled bool
	APITimeout      map[string]time.Duration
}

// DefaultClientOptions matches the teacher's habit of a conservative,
// documented zero-value-safe default set.
var DefaultClientOptions = ClientOptions{
	NodeSyncEnabled: true,
	APITimeout: map[string]time.Duration{
		"default": 15 * time.Second,
	},
}

// NodeClient is the contract spec.md §6.2 requires.
type NodeClient interface {
	BasicOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error)
	AliasOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error)
	FoundryOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error)
	NFTOutputIDs(ctx context.Context, q OutputQuery) (OutputIDPage, error)

	GetOutputs(ctx context.Context, ids []iotago.OutputID) ([]OutputResponse, error)

	// FoundryOutputByID looks up a foundry output by its derived (alias,
	// serial number) id directly, the indexer's single-item foundry lookup
	// rather than the owning-address query FoundryOutputIDs issues. found is
	// false when no such foundry exists (destroyed, or never minted).
	FoundryOutputByID(ctx context.Context, id iotago.FoundryID) (OutputResponse, bool, error)

	GetBlock(ctx context.Context, id iotago.BlockID) (*iotago.Block, error)
	PostBlock(ctx context.Context, block *iotago.Block) (iotago.BlockID, error)
	GetBlockMetadata(ctx context.Context, id iotago.BlockID) (BlockMetadata, error)
	RetryUntilIncluded(ctx context.Context, id iotago.BlockID, interval time.Duration, maxAttempts int) (iotago.BlockID, error)

	Info(ctx context.Context) (NodeInfo, error)
	RequestFundsFromFaucet(ctx context.Context, url string, addr iotago.Address) error
}
