package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amedina/polypilot/internal/registry"
)

func TestRegistry_MarkAndContains(t *testing.T) {
	r := registry.New(registry.NewMemoryStore())
	ctx := context.Background()
	r.Load(ctx)

	assert.False(t, r.Contains("ev-1"))
	require.NoError(t, r.MarkSeen(ctx, "ev-1"))
	assert.True(t, r.Contains("ev-1"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_MarkSeenIdempotent(t *testing.T) {
	r := registry.New(registry.NewMemoryStore())
	ctx := context.Background()
	r.Load(ctx)

	require.NoError(t, r.MarkSeen(ctx, "ev-1"))
	require.NoError(t, r.MarkSeen(ctx, "ev-1"))
	assert.Equal(t, 1, r.Len())
}

// flakyStore falla el siguiente Save y después delega en el store interno.
type flakyStore struct {
	inner    registry.Store
	failNext bool
}

func (f *flakyStore) Load(ctx context.Context) ([]string, error) {
	return f.inner.Load(ctx)
}

func (f *flakyStore) Save(ctx context.Context, ids []string) error {
	if f.failNext {
		f.failNext = false
		return errors.New("disk full")
	}
	return f.inner.Save(ctx, ids)
}

func TestRegistry_FailedSaveIsRetriable(t *testing.T) {
	inner := registry.NewMemoryStore()
	store := &flakyStore{inner: inner, failNext: true}
	r := registry.New(store)
	ctx := context.Background()
	r.Load(ctx)

	// el primer intento falla y NO deja el id en memoria
	require.Error(t, r.MarkSeen(ctx, "ev-1"))
	assert.False(t, r.Contains("ev-1"))

	// el reintento vuelve a escribir y esta vez persiste de verdad
	require.NoError(t, r.MarkSeen(ctx, "ev-1"))
	assert.True(t, r.Contains("ev-1"))

	ids, err := inner.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "ev-1")
}

func TestRegistry_RejectsEmptyID(t *testing.T) {
	r := registry.New(registry.NewMemoryStore())
	assert.Error(t, r.MarkSeen(context.Background(), ""))
}

func TestRegistry_SurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	ctx := context.Background()

	r1 := registry.New(registry.NewFileStore(path))
	r1.Load(ctx)
	require.NoError(t, r1.MarkSeen(ctx, "ev-1"))
	require.NoError(t, r1.MarkSeen(ctx, "ev-2"))

	// proceso nuevo sobre el mismo fichero
	r2 := registry.New(registry.NewFileStore(path))
	r2.Load(ctx)
	assert.True(t, r2.Contains("ev-1"))
	assert.True(t, r2.Contains("ev-2"))
	assert.False(t, r2.Contains("ev-3"))
}

func TestFileStore_MissingFileIsEmptySet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")
	ids, err := registry.NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStore_CorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	// el store reporta el error...
	_, err := registry.NewFileStore(path).Load(context.Background())
	assert.Error(t, err)

	// ...y el registry lo degrada a conjunto vacío sin fallar
	r := registry.New(registry.NewFileStore(path))
	r.Load(context.Background())
	assert.Equal(t, 0, r.Len())

	// y puede volver a escribir por encima del fichero corrupto
	require.NoError(t, r.MarkSeen(context.Background(), "ev-1"))
	r2 := registry.New(registry.NewFileStore(path))
	r2.Load(context.Background())
	assert.True(t, r2.Contains("ev-1"))
}

func TestFileStore_WritesSortedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	store := registry.NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []string{"c", "a", "b"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var ids []string
	require.NoError(t, json.Unmarshal(data, &ids))
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestFileStore_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seen.json")
	store := registry.NewFileStore(path)

	require.NoError(t, store.Save(context.Background(), []string{"ev-1"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "seen.json", entries[0].Name())
}
