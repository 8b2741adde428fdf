// Copyright 2015 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package database

import (
	"sync"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var OpenFileLimit = 64

type levelDB struct {
	fn string      // directory, for reporting
	db *leveldb.DB // LevelDB instance

	compTimeMeter  metrics.Meter
	compReadMeter  metrics.Meter
	compWriteMeter metrics.Meter
	diskReadMeter  metrics.Meter
	diskWriteMeter metrics.Meter

	quitLock sync.Mutex
	quitChan chan chan error
}

func getLDBOptions(ldbCacheSize, numHandles int) *opt.Options {
	return &opt.Options{
		OpenFilesCacheCapacity: numHandles,
		BlockCacheCapacity:     ldbCacheSize / 2 * opt.MiB,
		WriteBuffer:            ldbCacheSize / 4 * opt.MiB, // Two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
		DisableBufferPool:      true,
	}
}

// NewLDBDatabase opens (and recovers if corrupted) a goleveldb store — the
// alternate backend behind the wallet storage contract (spec.md §6.3).
func NewLDBDatabase(file string, ldbCacheSize, numHandles int) (*levelDB, error) {
	if ldbCacheSize < 16 {
		ldbCacheSize = 16
	}
	if numHandles < 16 {
		numHandles = 16
	}
	logger.Infow("allocating leveldb", "file", file, "writeBufferSize", ldbCacheSize, "numHandles", numHandles)

	db, err := leveldb.OpenFile(file, getLDBOptions(ldbCacheSize, numHandles))
	if _, corrupted := err.(*errors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &levelDB{fn: file, db: db}, nil
}

func (db *levelDB) Type() DBType { return LevelDB }
func (db *levelDB) Path() string { return db.fn }

func (db *levelDB) Put(key []byte, value []byte) error { return db.db.Put(key, value, nil) }
func (db *levelDB) Has(key []byte) (bool, error)        { return db.db.Has(key, nil) }
func (db *levelDB) Get(key []byte) ([]byte, error) {
	v, err := db.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}
func (db *levelDB) Delete(key []byte) error             { return db.db.Delete(key, nil) }

type levelDBIterator struct{ it iterator.Iterator }

func (db *levelDB) NewIterator(prefix []byte) Iterator {
	return &levelDBIterator{it: db.db.NewIterator(util.BytesPrefix(prefix), nil)}
}

func (it *levelDBIterator) Next() bool    { return it.it.Next() }
func (it *levelDBIterator) Key() []byte   { return it.it.Key() }
func (it *levelDBIterator) Value() []byte { return it.it.Value() }
func (it *levelDBIterator) Release()      { it.it.Release() }

func (db *levelDB) Close() {
	db.quitLock.Lock()
	defer db.quitLock.Unlock()

	if db.quitChan != nil {
		errc := make(chan error)
		db.quitChan <- errc
		if err := <-errc; err != nil {
			logger.Errorw("leveldb metrics collection failed to stop cleanly", "err", err)
		}
		db.quitChan = nil
	}
	if err := db.db.Close(); err != nil {
		logger.Errorw("failed to close leveldb database", "err", err)
	}
}

// Meter wires the teacher's go-metrics idiom: periodic compaction/IO
// counters registered under prefix, reported through the global go-metrics
// registry that cmd/walletd exposes over Prometheus.
func (db *levelDB) Meter(prefix string) {
	db.compTimeMeter = metrics.NewRegisteredMeter(prefix+"compaction/time", nil)
	db.compReadMeter = metrics.NewRegisteredMeter(prefix+"compaction/read", nil)
	db.compWriteMeter = metrics.NewRegisteredMeter(prefix+"compaction/write", nil)
	db.diskReadMeter = metrics.NewRegisteredMeter(prefix+"disk/read", nil)
	db.diskWriteMeter = metrics.NewRegisteredMeter(prefix+"disk/write", nil)

	db.quitLock.Lock()
	db.quitChan = make(chan chan error)
	db.quitLock.Unlock()

	go db.meter(3 * time.Second)
}

func (db *levelDB) meter(refresh time.Duration) {
	s := new(leveldb.DBStats)

	var prevCompRead, prevCompWrite int64
	var prevCompTime time.Duration
	var prevRead, prevWrite uint64

	var (
		errc chan error
		merr error
	)

hasError:
	for {
		merr = db.db.Stats(s)
		if merr != nil {
			break
		}

		var currCompRead, currCompWrite int64
		var currCompTime time.Duration
		for i := 0; i < len(s.LevelDurations); i++ {
			currCompTime += s.LevelDurations[i]
			currCompRead += s.LevelRead[i]
			currCompWrite += s.LevelWrite[i]
		}

		db.compTimeMeter.Mark(int64(currCompTime.Seconds() - prevCompTime.Seconds()))
		db.compReadMeter.Mark(currCompRead - prevCompRead)
		db.compWriteMeter.Mark(currCompWrite - prevCompWrite)
		prevCompTime, prevCompRead, prevCompWrite = currCompTime, currCompRead, currCompWrite

		currRead, currWrite := s.IORead, s.IOWrite
		db.diskReadMeter.Mark(int64(currRead - prevRead))
		db.diskWriteMeter.Mark(int64(currWrite - prevWrite))
		prevRead, prevWrite = currRead, currWrite

		select {
		case errc = <-db.quitChan:
			break hasError
		case <-time.After(refresh):
		}
	}

	if errc == nil {
		errc = <-db.quitChan
	}
	errc <- merr
}

func (db *levelDB) NewBatch() Batch { return &ldbBatch{db: db.db, b: new(leveldb.Batch)} }

type ldbBatch struct {
	db   *leveldb.DB
	b    *leveldb.Batch
	size int
}

func (b *ldbBatch) Put(key, value []byte) error {
	b.b.Put(key, value)
	b.size += len(value)
	return nil
}

func (b *ldbBatch) Delete(key []byte) error {
	b.b.Delete(key)
	b.size += len(key)
	return nil
}

func (b *ldbBatch) Write() error  { return b.db.Write(b.b, nil) }
func (b *ldbBatch) ValueSize() int { return b.size }
func (b *ldbBatch) Reset() {
	b.b.Reset()
	b.size = 0
}
