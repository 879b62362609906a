// Package store provides durable and in-memory key-value backends for the
// cdp engine's position state, and an EngineState implementation atop
// either one.
package store

import (
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// ErrNotFound is returned by Get when the key has no recorded value.
var ErrNotFound = errors.New("store: key not found")

// Database is a generic key-value store, so the engine's persistence layer
// can run against an in-memory map in tests and a durable backend in
// production without changing any caller.
type Database interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Close() error
}

// MemDB is an in-memory Database, for tests.
type MemDB struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemDB constructs an empty in-memory database.
func NewMemDB() *MemDB {
	return &MemDB{data: make(map[string][]byte)}
}

// Put implements Database.
func (db *MemDB) Put(key, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	db.data[string(key)] = cp
	return nil
}

// Get implements Database.
func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Close implements Database.
func (db *MemDB) Close() error { return nil }

// LevelDB is a persistent Database backed by goleveldb, for production
// deployments that need the engine's position state to survive a restart.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB opens (or creates) a LevelDB database at path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put implements Database.
func (ldb *LevelDB) Put(key, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get implements Database.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Close implements Database.
func (ldb *LevelDB) Close() error {
	return ldb.db.Close()
}
