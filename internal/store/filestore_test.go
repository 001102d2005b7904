package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestFileStore(t *testing.T) {
	t.Run("get on missing record returns ErrNotFound", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		rec := &testRecord{}
		err = fs.Get("missing", rec)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put and get roundtrip", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, fs.Put("rec", &testRecord{Name: "a", Value: 1.5}))

		got := &testRecord{}
		require.NoError(t, fs.Get("rec", got))
		assert.Equal(t, "a", got.Name)
		assert.Equal(t, 1.5, got.Value)
	})

	t.Run("put overwrites", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, fs.Put("rec", &testRecord{Value: 1}))
		require.NoError(t, fs.Put("rec", &testRecord{Value: 2}))

		got := &testRecord{}
		require.NoError(t, fs.Get("rec", got))
		assert.Equal(t, 2.0, got.Value)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, fs.Put("rec", &testRecord{}))
		require.NoError(t, fs.Delete("rec"))
		require.NoError(t, fs.Delete("rec"))

		err = fs.Get("rec", &testRecord{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list returns record names", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, fs.Put("a", &testRecord{}))
		require.NoError(t, fs.Put("b", &testRecord{}))

		names, err := fs.List()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b"}, names)
	})

	t.Run("corrupt record surfaces a storage error", func(t *testing.T) {
		dir := t.TempDir()
		fs, err := NewFileStore(dir)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.json"), []byte("{not json"), 0o644))

		err = fs.Get("rec", &testRecord{})
		require.Error(t, err)
		var storeErr *Error
		assert.ErrorAs(t, err, &storeErr)
	})
}

func TestFileStoreCommit(t *testing.T) {
	t.Run("applies writes and deletes together", func(t *testing.T) {
		fs, err := NewFileStore(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, fs.Put("old", &testRecord{Value: 1}))

		err = fs.Commit(Batch{
			Put: map[string]interface{}{
				"a": &testRecord{Value: 2},
				"b": &testRecord{Value: 3},
			},
			Delete: []string{"old"},
		})
		require.NoError(t, err)

		got := &testRecord{}
		require.NoError(t, fs.Get("a", got))
		assert.Equal(t, 2.0, got.Value)
		require.NoError(t, fs.Get("b", got))
		assert.Equal(t, 3.0, got.Value)
		assert.ErrorIs(t, fs.Get("old", got), ErrNotFound)
	})

	t.Run("leaves no journal behind", func(t *testing.T) {
		dir := t.TempDir()
		fs, err := NewFileStore(dir)
		require.NoError(t, err)

		require.NoError(t, fs.Commit(Batch{Put: map[string]interface{}{"a": &testRecord{}}}))

		_, err = os.Stat(filepath.Join(dir, journalName))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("pending journal is replayed on open", func(t *testing.T) {
		dir := t.TempDir()
		fs, err := NewFileStore(dir)
		require.NoError(t, err)
		require.NoError(t, fs.Put("stale", &testRecord{Value: 1}))

		// Simulate a crash after the journal landed but before it was applied.
		recData, err := json.Marshal(&testRecord{Value: 7})
		require.NoError(t, err)
		journalData, err := json.Marshal(&journal{
			Put:    map[string]json.RawMessage{"fresh": recData},
			Delete: []string{"stale"},
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, journalName), journalData, 0o644))

		recovered, err := NewFileStore(dir)
		require.NoError(t, err)

		got := &testRecord{}
		require.NoError(t, recovered.Get("fresh", got))
		assert.Equal(t, 7.0, got.Value)
		assert.ErrorIs(t, recovered.Get("stale", got), ErrNotFound)

		_, err = os.Stat(filepath.Join(dir, journalName))
		assert.True(t, os.IsNotExist(err))
	})
}

func TestMemoryStore(t *testing.T) {
	t.Run("behaves like the file store", func(t *testing.T) {
		ms := NewMemoryStore()

		assert.ErrorIs(t, ms.Get("missing", &testRecord{}), ErrNotFound)

		require.NoError(t, ms.Put("rec", &testRecord{Value: 4}))
		got := &testRecord{}
		require.NoError(t, ms.Get("rec", got))
		assert.Equal(t, 4.0, got.Value)

		require.NoError(t, ms.Commit(Batch{
			Put:    map[string]interface{}{"other": &testRecord{Value: 5}},
			Delete: []string{"rec"},
		}))
		assert.ErrorIs(t, ms.Get("rec", got), ErrNotFound)
		require.NoError(t, ms.Get("other", got))
		assert.Equal(t, 5.0, got.Value)

		names, err := ms.List()
		require.NoError(t, err)
		assert.Equal(t, []string{"other"}, names)
	})
}
