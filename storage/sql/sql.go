// Package sql implements the optional relational reporting backend
// SPEC_FULL.md §4 adds alongside the badger/goleveldb key-value store: a
// flattened, queryable transaction-history table for export/reporting
// tooling that doesn't want to walk the opaque storage.Storage blobs.
// It is a write-behind mirror, never the system of record — account state
// still lives and is restored from storage.Storage; this package only
// makes that history easy to SELECT from.
package sql

import (
	"encoding/hex"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/mysql"

	"github.com/iotaledger/wallet.go/internal/account"
	"github.com/iotaledger/wallet.go/log"
	"github.com/iotaledger/wallet.go/walleterr"
)

var logger = log.NewModuleLogger(log.Storage)

// TransactionRow is one exported transaction, denormalized for reporting
// queries (by account, by inclusion state, by time range).
type TransactionRow struct {
	ID              uint   `gorm:"primary_key"`
	AccountIndex    uint32 `gorm:"index"`
	TransactionID   string `gorm:"size:64;unique_index"`
	BlockID         string `gorm:"size:64"`
	InclusionState  int
	TimestampUnix   int64 `gorm:"index"`
	NetworkID       uint64
	Incoming        bool
	Note            string
	CreatedAt       time.Time
}

func (TransactionRow) TableName() string { return "wallet_transactions" }

// Store wraps a *gorm.DB connection to a MySQL-compatible reporting
// database (SPEC_FULL.md §4: jinzhu/gorm + go-sql-driver/mysql).
type Store struct {
	db *gorm.DB
}

// Open connects to dsn (a standard go-sql-driver/mysql DSN) and ensures the
// reporting schema exists.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open("mysql", dsn)
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStorage, err, "failed to open sql reporting store")
	}
	if err := db.AutoMigrate(&TransactionRow{}).Error; err != nil {
		db.Close()
		return nil, walleterr.Wrap(walleterr.KindStorage, err, "failed to migrate sql reporting schema")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// RecordTransaction upserts tr into the reporting table, keyed by its
// transaction id. Failures here are reporting-layer failures only; they
// never roll back the wallet-core transaction they describe.
func (s *Store) RecordTransaction(accountIndex uint32, tr *account.TransactionRecord) error {
	row := TransactionRow{
		AccountIndex:   accountIndex,
		TransactionID:  hex.EncodeToString(tr.TransactionID[:]),
		InclusionState: int(tr.InclusionState),
		TimestampUnix:  tr.TimestampUnix,
		NetworkID:      tr.NetworkID,
		Incoming:       tr.Incoming,
		Note:           tr.Note,
	}
	if tr.BlockID != nil {
		row.BlockID = hex.EncodeToString(tr.BlockID[:])
	}

	err := s.db.Where(TransactionRow{TransactionID: row.TransactionID}).
		Assign(row).
		FirstOrCreate(&TransactionRow{}).Error
	if err != nil {
		return walleterr.Wrap(walleterr.KindStorage, err, "failed to record transaction in sql reporting store")
	}
	return nil
}

// ListTransactions returns every reported transaction for accountIndex,
// most recent first.
func (s *Store) ListTransactions(accountIndex uint32) ([]TransactionRow, error) {
	var rows []TransactionRow
	err := s.db.Where("account_index = ?", accountIndex).Order("timestamp_unix desc").Find(&rows).Error
	if err != nil {
		return nil, walleterr.Wrap(walleterr.KindStorage, err, "failed to list transactions from sql reporting store")
	}
	return rows, nil
}
