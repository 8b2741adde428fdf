// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.

// Package database supplies the raw key-value backends behind the wallet
// storage contract (spec.md §6.3): one DBManager-shaped Database interface
// with badger and goleveldb implementations, following the teacher's
// storage/database package split (db_manager.go / badger_database.go /
// leveldb_database.go), generalized away from chain-accessor methods down
// to the plain get/put/delete/batch/iterate surface the wallet actually
// needs.
package database

import "github.com/iotaledger/wallet.go/log"

var logger = log.NewModuleLogger(log.Storage)

// DBType selects a backend (spec.md §6.3 doesn't mandate one; the teacher
// repo supports both badger and goleveldb, so we keep both wired per
// SPEC_FULL.md §4).
type DBType string

const (
	BadgerDB   DBType = "badger"
	LevelDB    DBType = "leveldb"
	MemoryDB   DBType = "memory"
)

// Database is the shared backend interface, matching the teacher's
// badgerDB/levelDB method sets (Type/Path/Put/Has/Get/Delete/Close/
// NewBatch/Meter) minus the blockchain-specific accessors.
type Database interface {
	Type() DBType
	Path() string

	Put(key, value []byte) error
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error

	NewIterator(prefix []byte) Iterator
	NewBatch() Batch

	Meter(prefix string)
	Close()
}

// Iterator walks all keys sharing a prefix, used by storage.Storage's
// Iterate and similar multi-key reads.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Release()
}

// Batch accumulates writes for one atomic commit, per spec.md §6.3's
// durability requirement ("all writes must be durable before the
// corresponding in-memory mutation is acknowledged").
type Batch interface {
	Put(key, value []byte) error
	Delete(key []byte) error
	Write() error
	ValueSize() int
	Reset()
}

// NewTable returns a Database that transparently prefixes every key, used
// to give each logical keyspace (accounts/events/participation) its own
// namespace within one physical backend.
func NewTable(db Database, prefix string) Database {
	return &table{db: db, prefix: prefix}
}

type table struct {
	db     Database
	prefix string
}

func (t *table) Type() DBType { return t.db.Type() }
func (t *table) Path() string { return t.db.Path() }

func (t *table) Put(key, value []byte) error { return t.db.Put(append([]byte(t.prefix), key...), value) }
func (t *table) Has(key []byte) (bool, error) { return t.db.Has(append([]byte(t.prefix), key...)) }
func (t *table) Get(key []byte) ([]byte, error) { return t.db.Get(append([]byte(t.prefix), key...)) }
func (t *table) Delete(key []byte) error      { return t.db.Delete(append([]byte(t.prefix), key...)) }

func (t *table) NewIterator(prefix []byte) Iterator {
	return t.db.NewIterator(append([]byte(t.prefix), prefix...))
}

func (t *table) NewBatch() Batch { return &tableBatch{batch: t.db.NewBatch(), prefix: t.prefix} }
func (t *table) Meter(prefix string) { t.db.Meter(prefix) }
func (t *table) Close()              {} // never closes the underlying shared DB

type tableBatch struct {
	batch  Batch
	prefix string
}

func (tb *tableBatch) Put(key, value []byte) error { return tb.batch.Put(append([]byte(tb.prefix), key...), value) }
func (tb *tableBatch) Delete(key []byte) error      { return tb.batch.Delete(append([]byte(tb.prefix), key...)) }
func (tb *tableBatch) Write() error                 { return tb.batch.Write() }
func (tb *tableBatch) ValueSize() int                { return tb.batch.ValueSize() }
func (tb *tableBatch) Reset()                        { tb.batch.Reset() }
