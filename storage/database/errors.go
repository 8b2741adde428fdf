package database

import "errors"

// ErrNotFound is returned by Get when the key doesn't exist, normalized
// across backends (badger.ErrKeyNotFound, leveldb.ErrNotFound, and the
// in-memory map all surface as this).
var ErrNotFound = errors.New("database: not found")
