// Package account implements the per-account state model from spec.md §3
// and the read/mutate operations of spec.md §4.1. An Account is a shared,
// interior-mutable record: reads take its RWMutex for reading, mutations
// take it for writing, and every write section ends by persisting the full
// record, matching spec.md §4.1 and the concurrency rules of spec.md §5.
package account

import (
	"sync"

	"github.com/iotaledger/wallet.go/iotago"
)

// AddressRecord is one entry of the public or internal address list
// (spec.md §3 "Address record").
type AddressRecord struct {
	Address  iotago.Address
	KeyIndex uint32
	Internal bool
}

// OutputData is the full record kept for every output ever seen for this
// account's addresses (spec.md §3).
type OutputData struct {
	OutputID  iotago.OutputID
	Output    iotago.Output
	Metadata  OutputMetadata
	Address   iotago.Address // the account address that unlocks it
	NetworkID uint64
	IsSpent   bool
	Remainder bool // created as remainder of a transaction we originated
	Chain     *Chain
}

// Chain is the derivation path an output's owning address was generated
// at, when known (spec.md §3 OutputData.chain).
type Chain struct {
	CoinType     uint32
	AccountIndex uint32
	Internal     bool
	KeyIndex     uint32
}

// OutputMetadata is the subset of node-reported metadata the account keeps.
type OutputMetadata struct {
	BlockID            iotago.BlockID
	MilestoneIndex     uint32
	MilestoneTimestamp uint32
	IsSpent            bool
	TransactionIDSpent iotago.TransactionID
}

// TransactionRecord is an outgoing transaction this account originated
// (spec.md §3).
type TransactionRecord struct {
	TransactionID   iotago.TransactionID
	Payload         iotago.Transaction
	BlockID         *iotago.BlockID
	InclusionState  iotago.InclusionState
	TimestampUnix   int64
	NetworkID       uint64
	Incoming        bool
	Inputs          []InputSnapshot
	Note            string
}

// InputSnapshot records the pre-spend shape of an input this transaction
// consumed, for provenance/debugging.
type InputSnapshot struct {
	OutputID iotago.OutputID
	Output   iotago.Output
}

// IncomingTransactionRecord indexes incoming transactions referenced by
// unspent outputs, for provenance (spec.md §3).
type IncomingTransactionRecord struct {
	TransactionID iotago.TransactionID
	Payload       iotago.Transaction
	Inputs        []InputSnapshot
}

// Options is the embedded AccountOptions block of spec.md §3.
type Options struct {
	OutputConsolidationThreshold int
	SyncSpentOutputs             bool
	PersistIncomingTransactions  bool
	// SkipPersistence controls whether this account's mutations are
	// written to storage at all. This is the Open Question resolved in
	// SPEC_FULL.md §9.1: we use "SkipPersistence", not "skipPersistance".
	SkipPersistence bool
}

// DefaultOptions matches the teacher's habit of a conservative, documented
// zero-value-safe default set.
var DefaultOptions = Options{
	OutputConsolidationThreshold: 100,
	SyncSpentOutputs:             false,
	PersistIncomingTransactions:  true,
}

// Filter narrows output/transaction listing (spec.md §4.1).
type Filter struct {
	LowerBoundOutputID *iotago.OutputID
	UpperBoundOutputID *iotago.OutputID
	OutputTypes        []iotago.OutputKind
}

func (f Filter) matches(id iotago.OutputID, kind iotago.OutputKind) bool {
	if f.LowerBoundOutputID != nil && lessOutputID(id, *f.LowerBoundOutputID) {
		return false
	}
	if f.UpperBoundOutputID != nil && lessOutputID(*f.UpperBoundOutputID, id) {
		return false
	}
	if len(f.OutputTypes) > 0 {
		found := false
		for _, k := range f.OutputTypes {
			if k == kind {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func lessOutputID(a, b iotago.OutputID) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Persister is called with the full account snapshot every time a mutating
// section commits, per spec.md §4.1 ("every exclusive-locked section...
// MUST end by persisting the full account record"). The account package
// does not know about storage encoding; internal/manager supplies this.
type Persister func(snapshot *Snapshot) error

// Snapshot is the serializable shape of an Account, handed to Persister
// and used to rehydrate on load.
type Snapshot struct {
	Index                uint32
	Alias                string
	CoinType             uint32
	PublicAddresses      []AddressRecord
	InternalAddresses    []AddressRecord
	Outputs              map[iotago.OutputID]*OutputData
	UnspentOutputs       map[iotago.OutputID]*OutputData
	Transactions         map[iotago.TransactionID]*TransactionRecord
	PendingTransactions  map[iotago.TransactionID]*TransactionRecord
	IncomingTransactions map[iotago.TransactionID]*IncomingTransactionRecord
	LockedOutputs        map[iotago.OutputID]struct{}
	Options              Options
}

// Account is the shared, interior-mutable per-account record (spec.md §4.1).
type Account struct {
	mu sync.RWMutex

	index    uint32
	alias    string
	coinType uint32

	publicAddresses   []AddressRecord
	internalAddresses []AddressRecord

	outputs              map[iotago.OutputID]*OutputData
	unspentOutputs       map[iotago.OutputID]*OutputData
	transactions         map[iotago.TransactionID]*TransactionRecord
	pendingTransactions  map[iotago.TransactionID]*TransactionRecord
	incomingTransactions map[iotago.TransactionID]*IncomingTransactionRecord
	lockedOutputs        map[iotago.OutputID]struct{}

	options   Options
	persist   Persister
}

// New constructs an empty account at the given index, used by the account
// manager when creating or recovering an account.
func New(index uint32, alias string, coinType uint32, opts Options, persist Persister) *Account {
	return &Account{
		index:                index,
		alias:                alias,
		coinType:             coinType,
		outputs:              make(map[iotago.OutputID]*OutputData),
		unspentOutputs:       make(map[iotago.OutputID]*OutputData),
		transactions:         make(map[iotago.TransactionID]*TransactionRecord),
		pendingTransactions:  make(map[iotago.TransactionID]*TransactionRecord),
		incomingTransactions: make(map[iotago.TransactionID]*IncomingTransactionRecord),
		lockedOutputs:        make(map[iotago.OutputID]struct{}),
		options:              opts,
		persist:              persist,
	}
}

// FromSnapshot rehydrates an Account from a persisted Snapshot.
func FromSnapshot(s *Snapshot, persist Persister) *Account {
	a := &Account{
		index:                s.Index,
		alias:                s.Alias,
		coinType:             s.CoinType,
		publicAddresses:      s.PublicAddresses,
		internalAddresses:    s.InternalAddresses,
		outputs:              s.Outputs,
		unspentOutputs:       s.UnspentOutputs,
		transactions:         s.Transactions,
		pendingTransactions:  s.PendingTransactions,
		incomingTransactions: s.IncomingTransactions,
		lockedOutputs:        s.LockedOutputs,
		options:              s.Options,
		persist:              persist,
	}
	if a.outputs == nil {
		a.outputs = make(map[iotago.OutputID]*OutputData)
	}
	if a.unspentOutputs == nil {
		a.unspentOutputs = make(map[iotago.OutputID]*OutputData)
	}
	if a.transactions == nil {
		a.transactions = make(map[iotago.TransactionID]*TransactionRecord)
	}
	if a.pendingTransactions == nil {
		a.pendingTransactions = make(map[iotago.TransactionID]*TransactionRecord)
	}
	if a.incomingTransactions == nil {
		a.incomingTransactions = make(map[iotago.TransactionID]*IncomingTransactionRecord)
	}
	if a.lockedOutputs == nil {
		a.lockedOutputs = make(map[iotago.OutputID]struct{})
	}
	return a
}

func (a *Account) Index() uint32  { return a.index }
func (a *Account) CoinType() uint32 { return a.coinType }

func (a *Account) Alias() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.alias
}
