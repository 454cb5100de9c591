package rag

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embedded(seq int, text string, vec ...float32) EmbeddedChunk {
	return EmbeddedChunk{
		DocumentChunk: DocumentChunk{Text: text, SourceOffset: seq * 10, SequenceIndex: seq},
		Vector:        vec,
	}
}

func TestLocalStore_ReplaceThenLoad(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "vector_index")

	store := NewLocalStore(dir)
	chunks := []EmbeddedChunk{
		embedded(0, "alpha", 1, 0, 0),
		embedded(1, "beta", 0, 1, 0),
		embedded(2, "gamma", 0, 0, 1),
	}
	require.NoError(t, store.Replace(ctx, chunks))
	assert.Equal(t, 3, store.Len())
	assert.True(t, store.Exists())
	assert.FileExists(t, filepath.Join(dir, "index.db"))
	assert.NoFileExists(t, filepath.Join(dir, "index.db.tmp"))

	reopened := NewLocalStore(dir)
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, 3, reopened.Len())
	assert.Equal(t, store.BuildID(), reopened.BuildID())
	assert.NotEmpty(t, reopened.BuildID())
	assert.Equal(t, chunks, reopened.chunks)
}

func TestLocalStore_ReplaceOverwrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store := NewLocalStore(dir)
	require.NoError(t, store.Replace(ctx, []EmbeddedChunk{embedded(0, "a", 1, 0), embedded(1, "b", 0, 1)}))
	firstBuild := store.BuildID()
	require.NoError(t, store.Replace(ctx, []EmbeddedChunk{embedded(0, "c", 1, 1)}))

	reopened := NewLocalStore(dir)
	require.NoError(t, reopened.Load(ctx))
	assert.Equal(t, 1, reopened.Len())
	assert.NotEqual(t, firstBuild, reopened.BuildID())
	assert.Equal(t, "c", reopened.chunks[0].Text)
}

func TestLocalStore_LoadMissing(t *testing.T) {
	ctx := context.Background()

	err := NewLocalStore(filepath.Join(t.TempDir(), "absent")).Load(ctx)
	assert.True(t, errors.Is(err, ErrIndexNotFound), "got %v", err)

	err = NewLocalStore(t.TempDir()).Load(ctx)
	assert.True(t, errors.Is(err, ErrIndexNotFound), "empty directory: got %v", err)
}

func TestLocalStore_LoadCorrupt(t *testing.T) {
	ctx := context.Background()

	t.Run("directory without index file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644))
		err := NewLocalStore(dir).Load(ctx)
		assert.True(t, errors.Is(err, ErrCorruptIndex), "got %v", err)
	})

	t.Run("garbage index file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index.db"), []byte("definitely not sqlite"), 0o644))
		err := NewLocalStore(dir).Load(ctx)
		assert.True(t, errors.Is(err, ErrCorruptIndex), "got %v", err)
	})

	t.Run("missing rows", func(t *testing.T) {
		dir := t.TempDir()
		store := NewLocalStore(dir)
		require.NoError(t, store.Replace(ctx, []EmbeddedChunk{embedded(0, "a", 1, 0), embedded(1, "b", 0, 1)}))

		db, err := sql.Open("sqlite", filepath.Join(dir, "index.db"))
		require.NoError(t, err)
		_, err = db.Exec(`DELETE FROM chunks WHERE seq = 1`)
		require.NoError(t, err)
		require.NoError(t, db.Close())

		err = NewLocalStore(dir).Load(ctx)
		assert.True(t, errors.Is(err, ErrCorruptIndex), "got %v", err)
	})
}

func TestLocalStore_ReplaceValidation(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	err := store.Replace(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrEmptyRecords))

	err = store.Replace(context.Background(), []EmbeddedChunk{embedded(0, "a", 1, 0), embedded(1, "b", 1)})
	assert.True(t, errors.Is(err, ErrInvalidDimension))
}

func TestLocalStore_SearchOrdersByScoreThenSequence(t *testing.T) {
	ctx := context.Background()
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Replace(ctx, []EmbeddedChunk{
		embedded(0, "east", 1, 0),
		embedded(1, "north", 0, 1),
		embedded(2, "also east", 2, 0),
		embedded(3, "north east", 1, 1),
	}))

	results, err := store.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].SequenceIndex)
	assert.Equal(t, 2, results[1].SequenceIndex)
	assert.Equal(t, 3, results[2].SequenceIndex)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, results[2].Score, 1e-3)

	_, err = store.Search(ctx, []float32{1, 0, 0}, 3)
	assert.True(t, errors.Is(err, ErrInvalidDimension))
}

func TestLocalStore_SearchBeforeLoad(t *testing.T) {
	_, err := NewLocalStore(t.TempDir()).Search(context.Background(), []float32{1}, 1)
	assert.True(t, errors.Is(err, ErrIndexNotReady))
}

func TestFloat32BlobRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	assert.Equal(t, in, bytesToFloat32s(float32sToBytes(in)))
}
