package storage

import (
	"bytes"
	"sync"

	"github.com/tidwall/btree"
)

type cacheEntry struct {
	value   []byte
	deleted bool
}

// CacheDB buffers writes on top of a parent database. Reads observe the
// buffered writes; nothing reaches the parent until Commit. Discard drops the
// buffer, which is how a failed execution leaves no trace.
type CacheDB struct {
	parent Database

	mu    sync.RWMutex
	dirty *btree.Map[string, cacheEntry]
}

// NewCacheDB wraps parent in a write buffer.
func NewCacheDB(parent Database) *CacheDB {
	return &CacheDB{parent: parent, dirty: btree.NewMap[string, cacheEntry](32)}
}

func (c *CacheDB) Put(key []byte, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty.Set(string(key), cacheEntry{value: clone(value)})
	return nil
}

func (c *CacheDB) Get(key []byte) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.dirty.Get(string(key))
	c.mu.RUnlock()
	if ok {
		if entry.deleted {
			return nil, ErrNotFound
		}
		return clone(entry.value), nil
	}
	return c.parent.Get(key)
}

func (c *CacheDB) Has(key []byte) (bool, error) {
	c.mu.RLock()
	entry, ok := c.dirty.Get(string(key))
	c.mu.RUnlock()
	if ok {
		return !entry.deleted, nil
	}
	return c.parent.Has(key)
}

func (c *CacheDB) Delete(key []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty.Set(string(key), cacheEntry{deleted: true})
	return nil
}

// Iterate merges the buffered writes with the parent's ordered view.
func (c *CacheDB) Iterate(prefix, start []byte, fn IterFunc) error {
	pivot := prefix
	if start != nil && bytes.Compare(start, prefix) > 0 {
		pivot = start
	}

	type pending struct {
		key   []byte
		entry cacheEntry
	}
	var overlay []pending
	c.mu.RLock()
	c.dirty.Ascend(string(pivot), func(key string, entry cacheEntry) bool {
		if !bytes.HasPrefix([]byte(key), prefix) {
			return false
		}
		overlay = append(overlay, pending{key: []byte(key), entry: entry})
		return true
	})
	c.mu.RUnlock()

	stopped := false
	next := 0
	// emitOverlay yields buffered keys strictly below limit (all when nil).
	emitOverlay := func(limit []byte) error {
		for next < len(overlay) && !stopped {
			item := overlay[next]
			if limit != nil && bytes.Compare(item.key, limit) >= 0 {
				return nil
			}
			next++
			if item.entry.deleted {
				continue
			}
			more, err := fn(clone(item.key), clone(item.entry.value))
			if err != nil {
				return err
			}
			stopped = !more
		}
		return nil
	}

	err := c.parent.Iterate(prefix, start, func(key, value []byte) (bool, error) {
		if err := emitOverlay(key); err != nil {
			return false, err
		}
		if stopped {
			return false, nil
		}
		if next < len(overlay) && bytes.Equal(overlay[next].key, key) {
			item := overlay[next]
			next++
			if item.entry.deleted {
				return true, nil
			}
			more, err := fn(key, clone(item.entry.value))
			stopped = !more
			return more, err
		}
		more, err := fn(key, value)
		stopped = !more
		return more, err
	})
	if err != nil {
		return err
	}
	if stopped {
		return nil
	}
	return emitOverlay(nil)
}

// NewBatch returns a batch that writes into the buffer, not the parent.
func (c *CacheDB) NewBatch() Batch {
	return &cacheBatch{cache: c}
}

// Commit flushes the buffered writes to the parent in a single batch.
func (c *CacheDB) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dirty.Len() == 0 {
		return nil
	}
	batch := c.parent.NewBatch()
	c.dirty.Scan(func(key string, entry cacheEntry) bool {
		if entry.deleted {
			batch.Delete([]byte(key))
		} else {
			batch.Put([]byte(key), entry.value)
		}
		return true
	})
	if err := batch.Write(); err != nil {
		return err
	}
	c.dirty = btree.NewMap[string, cacheEntry](32)
	return nil
}

// Discard drops every buffered write.
func (c *CacheDB) Discard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirty = btree.NewMap[string, cacheEntry](32)
}

// Close is a no-op; the parent owns the underlying handle.
func (c *CacheDB) Close() {}

type cacheBatch struct {
	cache *CacheDB
	ops   []memOp
}

func (b *cacheBatch) Put(key, value []byte) {
	b.ops = append(b.ops, memOp{key: string(key), value: clone(value)})
}

func (b *cacheBatch) Delete(key []byte) {
	b.ops = append(b.ops, memOp{key: string(key), delete: true})
}

func (b *cacheBatch) Write() error {
	b.cache.mu.Lock()
	defer b.cache.mu.Unlock()
	for _, op := range b.ops {
		b.cache.dirty.Set(op.key, cacheEntry{value: op.value, deleted: op.delete})
	}
	b.ops = nil
	return nil
}
