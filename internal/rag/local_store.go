package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	// DefaultIndexDir is the well-known directory holding the local index.
	DefaultIndexDir = "vector_index"

	indexFileName = "index.db"
)

// LocalStore implements VectorStore on a SQLite file inside a directory. The whole index
// is kept in memory for brute-force cosine search; SQLite is only the durable copy.
//
// Replace writes to a temporary file and renames it into place, so a crash mid-build never
// leaves a half-written index.db behind. The manifest row count is checked on Load.
type LocalStore struct {
	dir       string
	dimension int
	buildID   string
	chunks    []EmbeddedChunk
}

// NewLocalStore creates a store rooted at dir. Nothing is read or written until
// Replace or Load is called.
func NewLocalStore(dir string) *LocalStore {
	if dir == "" {
		dir = DefaultIndexDir
	}
	return &LocalStore{dir: dir}
}

// Location returns the index directory.
func (s *LocalStore) Location() string {
	return s.dir
}

// Len returns the number of chunks loaded in memory.
func (s *LocalStore) Len() int {
	return len(s.chunks)
}

// BuildID identifies the build that produced the loaded index.
func (s *LocalStore) BuildID() string {
	return s.buildID
}

// Exists reports whether the index directory exists and is not empty. This is the
// "already built" signal checked at startup.
func (s *LocalStore) Exists() bool {
	entries, err := os.ReadDir(s.dir)
	return err == nil && len(entries) > 0
}

// Replace persists chunks, overwriting any existing index.
func (s *LocalStore) Replace(ctx context.Context, chunks []EmbeddedChunk) error {
	if len(chunks) == 0 {
		return ErrEmptyRecords
	}
	dim := len(chunks[0].Vector)
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidDimension)
	}
	for _, c := range chunks {
		if len(c.Vector) != dim {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d", ErrInvalidDimension, c.SequenceIndex, len(c.Vector), dim)
		}
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	finalPath := filepath.Join(s.dir, indexFileName)
	tmpPath := finalPath + ".tmp"
	_ = os.Remove(tmpPath)

	buildID := uuid.NewString()
	if err := writeIndexFile(ctx, tmpPath, buildID, dim, chunks); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move index into place: %w", err)
	}

	s.dimension = dim
	s.buildID = buildID
	s.chunks = make([]EmbeddedChunk, len(chunks))
	copy(s.chunks, chunks)
	return nil
}

func writeIndexFile(ctx context.Context, path, buildID string, dim int, chunks []EmbeddedChunk) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open index database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, indexSchema); err != nil {
		return fmt.Errorf("failed to initialize index schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (seq, source_offset, text, vector) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.SequenceIndex, c.SourceOffset, c.Text, float32sToBytes(c.Vector)); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrInsertFailed, c.SequenceIndex, err)
		}
	}

	meta := map[string]string{
		"build_id":    buildID,
		"dimension":   strconv.Itoa(dim),
		"chunk_count": strconv.Itoa(len(chunks)),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("failed to write manifest: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

const indexSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS chunks (
	seq           INTEGER PRIMARY KEY,
	source_offset INTEGER NOT NULL,
	text          TEXT NOT NULL,
	vector        BLOB NOT NULL
);
`

// Load reads the persisted index into memory.
func (s *LocalStore) Load(ctx context.Context) error {
	if !s.Exists() {
		return ErrIndexNotFound
	}

	path := filepath.Join(s.dir, indexFileName)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s has no %s", ErrCorruptIndex, s.dir, indexFileName)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	defer db.Close()

	meta, err := readManifest(ctx, db)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	dim, err := strconv.Atoi(meta["dimension"])
	if err != nil || dim <= 0 {
		return fmt.Errorf("%w: bad dimension %q", ErrCorruptIndex, meta["dimension"])
	}
	want, err := strconv.Atoi(meta["chunk_count"])
	if err != nil || want <= 0 {
		return fmt.Errorf("%w: bad chunk count %q", ErrCorruptIndex, meta["chunk_count"])
	}

	chunks, err := readChunks(ctx, db, dim)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptIndex, err)
	}
	if len(chunks) != want {
		return fmt.Errorf("%w: manifest lists %d chunks, found %d", ErrCorruptIndex, want, len(chunks))
	}

	s.dimension = dim
	s.buildID = meta["build_id"]
	s.chunks = chunks
	return nil
}

func readManifest(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func readChunks(ctx context.Context, db *sql.DB, dim int) ([]EmbeddedChunk, error) {
	rows, err := db.QueryContext(ctx, `SELECT seq, source_offset, text, vector FROM chunks ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("read chunks: %w", err)
	}
	defer rows.Close()

	var chunks []EmbeddedChunk
	for rows.Next() {
		var c EmbeddedChunk
		var blob []byte
		if err := rows.Scan(&c.SequenceIndex, &c.SourceOffset, &c.Text, &blob); err != nil {
			return nil, fmt.Errorf("read chunk: %w", err)
		}
		if len(blob) != dim*4 {
			return nil, fmt.Errorf("chunk %d: vector has %d bytes, expected %d", c.SequenceIndex, len(blob), dim*4)
		}
		c.Vector = bytesToFloat32s(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Search scores every chunk by cosine similarity. Ties keep sequence order.
func (s *LocalStore) Search(ctx context.Context, query []float32, topK int) ([]RetrievedChunk, error) {
	if len(s.chunks) == 0 {
		return nil, ErrIndexNotReady
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, s.dimension, len(query))
	}
	if topK <= 0 {
		return []RetrievedChunk{}, nil
	}

	results := make([]RetrievedChunk, len(s.chunks))
	for i, c := range s.chunks {
		results[i] = RetrievedChunk{EmbeddedChunk: c, Score: cosineSimilarity(query, c.Vector)}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Close drops the in-memory copy. The files on disk are untouched.
func (s *LocalStore) Close() error {
	s.chunks = nil
	return nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func float32sToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

func bytesToFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}
