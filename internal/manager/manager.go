// Package manager implements the account manager of spec.md §4.6: the
// container owning every account, the shared signer/node-client/storage
// collaborators, and the manager-wide background-sync task. It mirrors the
// teacher's blockchain manager shape (one struct holding every subsystem
// plus a map of per-entity handles guarded by its own lock, looked up only
// for the duration of the lookup, never held across a per-account call —
// spec.md §5's "account manager holds a mapping... behind its own lock;
// this lock is held only for the lookup").
package manager

import (
	"context"
	"encoding/json"
	"sort"
	stdsync "sync"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/internal/client"
	"github.com/iotaledger/wallet.go/internal/eventbus"
	"github.com/iotaledger/wallet.go/internal/ops"
	"github.com/iotaledger/wallet.go/internal/sync"
	"github.com/iotaledger/wallet.go/internal/txbuilder"
	"github.com/iotaledger/wallet.go/internal/voting"
	"github.com/iotaledger/wallet.go/iotago"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/params"
	"github.com/iotaledger/wallet.go/signer"
	"github.com/iotaledger/wallet.go/storage"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.Manager)

// managedAccount bundles the account state with the subsystems the manager
// wires over it: the sync engine, the transaction builder, the high-level
// operations façade, and the voting service, all sharing the one Account.
type managedAccount struct {
	account *account.Account
	engine  *sync.Engine
	builder *txbuilder.Builder
	ops     *ops.Service
	voting  *voting.Service
}

// Options configures a new Manager (spec.md §4.6, §3 ClientOptions entity).
type Options struct {
	Signer         signer.Signer
	Node           client.NodeClient
	Storage        storage.Storage
	Bus            eventbus.Bus // optional
	VotingClient   voting.Client // optional
	CoinType       uint32
	NetworkID      uint64
	ClientOptions  client.ClientOptions
	Rent           params.RentStructure
}

// Manager owns the set of accounts, keyed by index, plus the collaborators
// every account's Builder/Engine/Service shares (spec.md §4.6).
type Manager struct {
	signerImpl signer.Signer
	node       client.NodeClient
	store      storage.Storage
	bus        eventbus.Bus
	votingCli  voting.Client

	mu            stdsync.RWMutex
	coinType      uint32
	networkID     uint64
	clientOptions client.ClientOptions
	rent          params.RentStructure
	accounts      map[uint32]*managedAccount

	bg *backgroundSyncer
}

// New constructs a Manager and loads any accounts already present in
// storage, running pending schema migrations first (SPEC_FULL.md §7).
func New(opts Options) (*Manager, error) {
	m := &Manager{
		signerImpl:    opts.Signer,
		node:          opts.Node,
		store:         opts.Storage,
		bus:           opts.Bus,
		votingCli:     opts.VotingClient,
		coinType:      opts.CoinType,
		networkID:     opts.NetworkID,
		clientOptions: opts.ClientOptions,
		rent:          opts.Rent,
		accounts:      make(map[uint32]*managedAccount),
	}
	if m.rent == (params.RentStructure{}) {
		m.rent = params.DefaultRentStructure
	}
	m.bg = newBackgroundSyncer(m)

	if m.store != nil {
		if err := runMigrations(m.store); err != nil {
			return nil, walleterr.Wrap(walleterr.KindStorage, err, "storage migration failed")
		}
		if err := m.loadAccounts(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) loadAccounts() error {
	var loadErr error
	err := m.store.Iterate([]byte("account:"), func(key, value []byte) bool {
		var snap account.Snapshot
		if err := json.Unmarshal(value, &snap); err != nil {
			loadErr = walleterr.Wrap(walleterr.KindStorage, err, "failed to decode stored account")
			return false
		}
		m.accounts[snap.Index] = m.wire(account.FromSnapshot(&snap, m.persisterFor(snap.Index)))
		return true
	})
	if err != nil {
		return walleterr.Wrap(walleterr.KindStorage, err, "failed to enumerate stored accounts")
	}
	return loadErr
}

// persisterFor returns the account.Persister that JSON-encodes a snapshot
// and writes it under its well-known key (spec.md §6.3).
func (m *Manager) persisterFor(index uint32) account.Persister {
	return func(snapshot *account.Snapshot) error {
		if m.store == nil {
			return nil
		}
		raw, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		return m.store.Put(storage.AccountKey(index), raw)
	}
}

// wire builds the sync/builder/ops/voting subsystems around acc, sharing
// the manager's signer/node/bus/storage collaborators.
func (m *Manager) wire(acc *account.Account) *managedAccount {
	engine := sync.New(acc, m.node, m.bus)
	builder := &txbuilder.Builder{
		Account:   acc,
		Node:      m.node,
		Signer:    m.signerImpl,
		Bus:       m.bus,
		NetworkID: m.networkID,
		Rent:      m.rent,
		PreSync: func(ctx context.Context) error {
			_, err := engine.Sync(ctx, sync.DefaultOptions)
			return err
		},
		DeriveRemainderAddress: func() (iotago.Address, error) {
			recs, err := acc.GenerateAddresses(1, true, m.deriveFn(acc))
			if err != nil {
				return iotago.Address{}, err
			}
			return recs[0].Address, nil
		},
	}
	return &managedAccount{
		account: acc,
		engine:  engine,
		builder: builder,
		ops:     ops.New(acc, builder),
		voting:  voting.New(acc, builder, m.store, m.votingCli),
	}
}

func (m *Manager) deriveFn(acc *account.Account) func(keyIndex uint32, internal bool) (iotago.Address, error) {
	return func(keyIndex uint32, internal bool) (iotago.Address, error) {
		return m.signerImpl.GenerateAddress(context.Background(), acc.Index(), internal, keyIndex)
	}
}

// CreateAccountOptions is spec.md §4.6's create_account argument object.
type CreateAccountOptions struct {
	Alias    string
	CoinType uint32 // zero means "use the manager's established coin type"
}

// CreateAccount allocates the next free index, enforces alias uniqueness
// and the shared-coin-type invariant, and generates the account's first
// public address so every high-level operation has an owner address to
// work with immediately (spec.md §4.6 create_account; spec.md §3 invariant
// 4).
func (m *Manager) CreateAccount(ctx context.Context, opts CreateAccountOptions) (*account.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	coinType := opts.CoinType
	if coinType == 0 {
		coinType = m.coinType
	}
	if len(m.accounts) > 0 && coinType != m.coinType {
		return nil, &walleterr.InvalidCoinTypeError{Expected: m.coinType, Got: coinType}
	}
	if len(m.accounts) == 0 && m.coinType == 0 {
		m.coinType = coinType
	}

	if opts.Alias != "" {
		for _, ma := range m.accounts {
			if ma.account.Alias() == opts.Alias {
				return nil, &walleterr.AccountAliasExistsError{Alias: opts.Alias}
			}
		}
	}

	index := uint32(0)
	for existing := range m.accounts {
		if existing+1 > index {
			index = existing + 1
		}
	}
	if len(m.accounts) == 0 {
		index = 0
	}

	acc := account.New(index, opts.Alias, coinType, account.DefaultOptions, m.persisterFor(index))
	ma := m.wire(acc)
	if _, err := acc.GenerateAddresses(1, false, m.deriveFn(acc)); err != nil {
		return nil, err
	}
	m.accounts[index] = ma
	return acc, nil
}

// GetAccount resolves ref (a decimal index or an alias) to the account it
// names (spec.md §4.6 get_account).
func (m *Manager) GetAccount(ref string) (*account.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, ma := range m.accounts {
		if ma.account.Alias() == ref {
			return ma.account, nil
		}
	}
	if idx, ok := parseIndex(ref); ok {
		if ma, ok := m.accounts[idx]; ok {
			return ma.account, nil
		}
	}
	return nil, &walleterr.AccountNotFoundError{Ref: ref}
}

// GetAccounts returns every account, ordered by index.
func (m *Manager) GetAccounts() []*account.Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	indices := make([]uint32, 0, len(m.accounts))
	for idx := range m.accounts {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	out := make([]*account.Account, 0, len(indices))
	for _, idx := range indices {
		out = append(out, m.accounts[idx].account)
	}
	return out
}

// RemoveLatestAccount drops the highest-index account, failing
// LatestAccountEmpty if it still holds any unspent outputs (spec.md §4.6,
// §7 error kind latest-account-is-empty named for the inverse check this
// guards).
func (m *Manager) RemoveLatestAccount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.accounts) == 0 {
		return walleterr.New(walleterr.KindAccountNotFound, "no accounts to remove")
	}
	latest := uint32(0)
	for idx := range m.accounts {
		if idx > latest {
			latest = idx
		}
	}
	ma := m.accounts[latest]
	if len(ma.account.UnspentOutputs(account.Filter{})) > 0 {
		return walleterr.New(walleterr.KindLatestAccountEmpty, "latest account still holds unspent outputs")
	}
	delete(m.accounts, latest)
	if m.store != nil {
		return m.store.Delete(storage.AccountKey(latest))
	}
	return nil
}

// SetClientOptions replaces the stored node set returned by ClientOptions
// and written into backups (spec.md §4.1/§4.6 set_client_options). It does
// not reconfigure the NodeClient the accounts are wired to, does not
// invalidate the node-info cache, and does not re-sync.
func (m *Manager) SetClientOptions(opts client.ClientOptions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientOptions = opts
}

func (m *Manager) ClientOptions() client.ClientOptions {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clientOptions
}

// SignerStatus surfaces the wired signer's optional hardware-wallet status
// (SPEC_FULL.md §7 supplemented feature; spec.md §6.1 GetStatus).
func (m *Manager) SignerStatus(ctx context.Context) (signer.Status, error) {
	return m.signerImpl.GetStatus(ctx)
}

func (m *Manager) managed(index uint32) (*managedAccount, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ma, ok := m.accounts[index]
	return ma, ok
}

// Sync runs one sync pass for the named account via its wired engine
// (spec.md §4.2), exposed here because the engine itself is unexported.
func (m *Manager) Sync(ctx context.Context, index uint32, opts sync.Options) (account.Balance, error) {
	ma, ok := m.managed(index)
	if !ok {
		return account.Balance{}, &walleterr.AccountNotFoundError{Ref: storage.AccountKeyString(index)}
	}
	return ma.engine.Sync(ctx, opts)
}

// Ops returns the high-level operations façade wired over the named
// account's Builder (spec.md §4.4).
func (m *Manager) Ops(index uint32) (*ops.Service, error) {
	ma, ok := m.managed(index)
	if !ok {
		return nil, &walleterr.AccountNotFoundError{Ref: storage.AccountKeyString(index)}
	}
	return ma.ops, nil
}

// Voting returns the voting service wired over the named account (spec.md
// §4.5).
func (m *Manager) Voting(index uint32) (*voting.Service, error) {
	ma, ok := m.managed(index)
	if !ok {
		return nil, &walleterr.AccountNotFoundError{Ref: storage.AccountKeyString(index)}
	}
	return ma.voting, nil
}

func parseIndex(s string) (uint32, bool) {
	if s == "" {
		return 0, false
	}
	var v uint32
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + uint32(r-'0')
	}
	return v, true
}
