package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, db Database, prefix, start []byte) []string {
	t.Helper()
	var keys []string
	err := db.Iterate(prefix, start, func(key, value []byte) (bool, error) {
		keys = append(keys, string(key))
		return true, nil
	})
	require.NoError(t, err)
	return keys
}

func seed(t *testing.T, db Database) {
	t.Helper()
	for _, key := range []string{"b/2", "a/1", "b/1", "b/3", "c/1"} {
		require.NoError(t, db.Put([]byte(key), []byte("v:"+key)))
	}
}

func TestMemDBOrderedPrefixIteration(t *testing.T) {
	db := NewMemDB()
	seed(t, db)

	require.Equal(t, []string{"b/1", "b/2", "b/3"}, collect(t, db, []byte("b/"), nil))
	require.Equal(t, []string{"b/2", "b/3"}, collect(t, db, []byte("b/"), []byte("b/2")))
	require.Equal(t, []string{"a/1", "b/1", "b/2", "b/3", "c/1"}, collect(t, db, nil, nil))

	_, err := db.Get([]byte("missing"))
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.Delete([]byte("b/2")))
	ok, err := db.Has([]byte("b/2"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemDBIterateStopsEarly(t *testing.T) {
	db := NewMemDB()
	seed(t, db)

	var seen int
	err := db.Iterate([]byte("b/"), nil, func(key, value []byte) (bool, error) {
		seen++
		return seen < 2, nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, seen)
}

func TestLevelDBPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	db1, err := NewLevelDB(dir)
	require.NoError(t, err)
	seed(t, db1)
	batch := db1.NewBatch()
	batch.Put([]byte("b/4"), []byte("v:b/4"))
	batch.Delete([]byte("b/1"))
	require.NoError(t, batch.Write())
	db1.Close()

	db2, err := NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	require.Equal(t, []string{"b/2", "b/3", "b/4"}, collect(t, db2, []byte("b/"), nil))
	require.Equal(t, []string{"b/3", "b/4"}, collect(t, db2, []byte("b/"), []byte("b/3")))

	value, err := db2.Get([]byte("c/1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v:c/1"), value)

	_, err = db2.Get([]byte("b/1"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCacheDBMergesOverlay(t *testing.T) {
	parent := NewMemDB()
	seed(t, parent)

	cache := NewCacheDB(parent)
	require.NoError(t, cache.Put([]byte("b/0"), []byte("new")))
	require.NoError(t, cache.Put([]byte("b/2"), []byte("updated")))
	require.NoError(t, cache.Delete([]byte("b/3")))
	require.NoError(t, cache.Put([]byte("b/9"), []byte("tail")))

	require.Equal(t, []string{"b/0", "b/1", "b/2", "b/9"}, collect(t, cache, []byte("b/"), nil))
	require.Equal(t, []string{"b/2", "b/9"}, collect(t, cache, []byte("b/"), []byte("b/2")))

	value, err := cache.Get([]byte("b/2"))
	require.NoError(t, err)
	require.Equal(t, []byte("updated"), value)

	_, err = cache.Get([]byte("b/3"))
	require.ErrorIs(t, err, ErrNotFound)

	// Parent untouched until commit.
	require.Equal(t, []string{"b/1", "b/2", "b/3"}, collect(t, parent, []byte("b/"), nil))
}

func TestCacheDBCommitAndDiscard(t *testing.T) {
	parent := NewMemDB()
	seed(t, parent)

	cache := NewCacheDB(parent)
	require.NoError(t, cache.Delete([]byte("a/1")))
	cache.Discard()
	ok, err := cache.Has([]byte("a/1"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, cache.Put([]byte("d/1"), []byte("x")))
	require.NoError(t, cache.Delete([]byte("c/1")))
	require.NoError(t, cache.Commit())

	require.Equal(t, []string{"a/1", "b/1", "b/2", "b/3", "d/1"}, collect(t, parent, nil, nil))
}
