package storage

import (
	"bytes"
	"errors"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/tidwall/btree"
)

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// IterFunc is invoked for every key visited by Iterate. Returning false stops
// the iteration. Key and value slices are owned by the callee.
type IterFunc func(key, value []byte) (bool, error)

// Database is a generic interface for an ordered key-value store.
// This allows the engine to use any database backend (in-memory or persistent).
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	Delete(key []byte) error
	// Iterate visits keys carrying prefix in ascending byte order, starting
	// at start (inclusive) when it is non-nil.
	Iterate(prefix, start []byte, fn IterFunc) error
	NewBatch() Batch
	Close() // A way to gracefully shut down the database connection.
}

// Batch buffers writes that are applied to the backing store in one step.
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)
	Write() error
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// --- In-Memory DB (for testing) ---

type MemDB struct {
	mu   sync.RWMutex
	data *btree.Map[string, []byte]
}

func NewMemDB() *MemDB {
	return &MemDB{
		data: btree.NewMap[string, []byte](32),
	}
}

func (db *MemDB) Put(key []byte, value []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.Set(string(key), clone(value))
	return nil
}

func (db *MemDB) Get(key []byte) ([]byte, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	value, ok := db.data.Get(string(key))
	if !ok {
		return nil, ErrNotFound
	}
	return clone(value), nil
}

func (db *MemDB) Has(key []byte) (bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.data.Get(string(key))
	return ok, nil
}

func (db *MemDB) Delete(key []byte) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.data.Delete(string(key))
	return nil
}

func (db *MemDB) Iterate(prefix, start []byte, fn IterFunc) error {
	db.mu.RLock()
	pivot := prefix
	if start != nil && bytes.Compare(start, prefix) > 0 {
		pivot = start
	}
	type kv struct{ key, value []byte }
	var entries []kv
	db.data.Ascend(string(pivot), func(key string, value []byte) bool {
		if !bytes.HasPrefix([]byte(key), prefix) {
			return false
		}
		entries = append(entries, kv{key: []byte(key), value: clone(value)})
		return true
	})
	db.mu.RUnlock()

	// The snapshot lets fn write to the database without deadlocking.
	for _, entry := range entries {
		more, err := fn(entry.key, entry.value)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (db *MemDB) NewBatch() Batch {
	return &memBatch{db: db}
}

// Close satisfies the Database interface for MemDB.
func (db *MemDB) Close() {
	// Nothing to close for an in-memory database.
}

type memOp struct {
	key    string
	value  []byte
	delete bool
}

type memBatch struct {
	db  *MemDB
	ops []memOp
}

func (b *memBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memOp{key: string(key), value: clone(value)})
}

func (b *memBatch) Delete(key []byte) {
	b.ops = append(b.ops, memOp{key: string(key), delete: true})
}

func (b *memBatch) Write() error {
	b.db.mu.Lock()
	defer b.db.mu.Unlock()
	for _, op := range b.ops {
		if op.delete {
			b.db.data.Delete(op.key)
			continue
		}
		b.db.data.Set(op.key, op.value)
	}
	b.ops = nil
	return nil
}

// --- Persistent DB ---

// LevelDB is a persistent key-value store using LevelDB.
type LevelDB struct {
	db *leveldb.DB
}

// NewLevelDB creates or opens a LevelDB database at the specified path.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &LevelDB{db: db}, nil
}

// Put inserts or updates a key-value pair.
func (ldb *LevelDB) Put(key []byte, value []byte) error {
	return ldb.db.Put(key, value, nil)
}

// Get retrieves a value for a given key.
func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := ldb.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

// Has reports whether the key exists.
func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, nil)
}

// Delete removes the key. Deleting a missing key is not an error.
func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, nil)
}

// Iterate walks the keys under prefix in ascending order.
func (ldb *LevelDB) Iterate(prefix, start []byte, fn IterFunc) error {
	it := ldb.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer it.Release()

	var ok bool
	if start != nil && bytes.Compare(start, prefix) > 0 {
		ok = it.Seek(start)
	} else {
		ok = it.First()
	}
	for ; ok; ok = it.Next() {
		more, err := fn(clone(it.Key()), clone(it.Value()))
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return it.Error()
}

// NewBatch returns a write batch applied atomically by LevelDB.
func (ldb *LevelDB) NewBatch() Batch {
	return &levelBatch{db: ldb.db, batch: new(leveldb.Batch)}
}

// Close closes the database connection.
func (ldb *LevelDB) Close() {
	ldb.db.Close()
}

type levelBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *levelBatch) Put(key, value []byte) { b.batch.Put(key, value) }

func (b *levelBatch) Delete(key []byte) { b.batch.Delete(key) }

func (b *levelBatch) Write() error {
	if err := b.db.Write(b.batch, nil); err != nil {
		return err
	}
	b.batch.Reset()
	return nil
}
