package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for vector store operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrEmptyRecords     = errors.New("no records provided for insertion")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

// MilvusConfig holds configuration for Milvus connection and collection
type MilvusConfig struct {
	Address        string // Milvus server address (e.g., "localhost:19530")
	CollectionName string // Name of the collection
	Dimension      int    // Vector dimension (e.g., 1536 for text-embedding-3-small)

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
	Ef             int // HNSW search ef (default: 64)
}

// DefaultMilvusConfig returns the configuration used when only an address is known
func DefaultMilvusConfig() MilvusConfig {
	return MilvusConfig{
		Address:        "localhost:19530",
		CollectionName: "scribe_chunks",
		Dimension:      1536,
		M:              16,
		EfConstruction: 256,
		Ef:             64,
	}
}

// MilvusStore implements VectorStore using a Milvus collection. Replace drops and
// recreates the collection, so a collection always holds exactly one document. The build
// id is kept in the collection description.
type MilvusStore struct {
	client  client.Client
	config  MilvusConfig
	count   int
	buildID string
}

// NewMilvusStore connects to Milvus. The collection is not touched until Replace or Load.
func NewMilvusStore(ctx context.Context, config MilvusConfig) (*MilvusStore, error) {
	if config.Dimension <= 0 {
		return nil, ErrInvalidDimension
	}
	if config.M <= 0 {
		config.M = 16
	}
	if config.EfConstruction <= 0 {
		config.EfConstruction = 256
	}
	if config.Ef <= 0 {
		config.Ef = 64
	}

	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	return &MilvusStore{
		client: c,
		config: config,
	}, nil
}

// Location returns the Milvus address and collection name
func (m *MilvusStore) Location() string {
	return m.config.Address + "/" + m.config.CollectionName
}

// Len returns the number of chunks in the collection as of the last Replace or Load
func (m *MilvusStore) Len() int {
	return m.count
}

// BuildID identifies the build that produced the collection.
func (m *MilvusStore) BuildID() string {
	return m.buildID
}

// createCollection creates the chunk collection with its HNSW index and loads it
func (m *MilvusStore) createCollection(ctx context.Context, buildID string) error {
	schema := &entity.Schema{
		CollectionName: m.config.CollectionName,
		Description:    buildID,
		AutoID:         true,
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
				AutoID:     true,
			},
			{
				Name:     "seq",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "source_offset",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "embedding",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", m.config.Dimension),
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(entity.COSINE, m.config.M, m.config.EfConstruction)
	if err != nil {
		return fmt.Errorf("failed to create index config: %w", err)
	}

	if err := m.client.CreateIndex(ctx, m.config.CollectionName, "embedding", idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}

	return nil
}

// Replace drops the collection, recreates it and inserts chunks
func (m *MilvusStore) Replace(ctx context.Context, chunks []EmbeddedChunk) error {
	if len(chunks) == 0 {
		return ErrEmptyRecords
	}

	seqs := make([]int64, len(chunks))
	offsets := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	for i, c := range chunks {
		if len(c.Vector) != m.config.Dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d", ErrInvalidDimension, c.SequenceIndex, len(c.Vector), m.config.Dimension)
		}
		seqs[i] = int64(c.SequenceIndex)
		offsets[i] = int64(c.SourceOffset)
		texts[i] = c.Text
		embeddings[i] = c.Vector
	}

	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if has {
		if err := m.client.DropCollection(ctx, m.config.CollectionName); err != nil {
			return fmt.Errorf("failed to drop collection: %w", err)
		}
	}
	m.count = 0
	m.buildID = ""

	buildID := uuid.NewString()
	if err := m.createCollection(ctx, buildID); err != nil {
		return err
	}

	columns := []entity.Column{
		entity.NewColumnInt64("seq", seqs),
		entity.NewColumnInt64("source_offset", offsets),
		entity.NewColumnVarChar("text", texts),
		entity.NewColumnFloatVector("embedding", m.config.Dimension, embeddings),
	}

	if _, err := m.client.Insert(ctx, m.config.CollectionName, "", columns...); err != nil {
		return fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	// Flush to ensure data is persisted
	if err := m.client.Flush(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("failed to flush data: %w", err)
	}

	m.count = len(chunks)
	m.buildID = buildID
	return nil
}

// Load checks that the collection exists and holds rows, and loads it for search
func (m *MilvusStore) Load(ctx context.Context) error {
	has, err := m.client.HasCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if !has {
		return ErrIndexNotFound
	}

	stats, err := m.client.GetCollectionStatistics(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("%w: failed to get stats: %v", ErrCorruptIndex, err)
	}
	rows, err := strconv.Atoi(stats["row_count"])
	if err != nil {
		return fmt.Errorf("%w: bad row count %q", ErrCorruptIndex, stats["row_count"])
	}
	// Replace never creates an empty collection, so one is left over from a failed build.
	if rows == 0 {
		return fmt.Errorf("%w: collection %s is empty", ErrCorruptIndex, m.config.CollectionName)
	}

	coll, err := m.client.DescribeCollection(ctx, m.config.CollectionName)
	if err != nil {
		return fmt.Errorf("%w: failed to describe collection: %v", ErrCorruptIndex, err)
	}

	if err := m.client.LoadCollection(ctx, m.config.CollectionName, false); err != nil {
		return fmt.Errorf("%w: failed to load collection: %v", ErrCorruptIndex, err)
	}

	m.count = rows
	if coll.Schema != nil {
		m.buildID = coll.Schema.Description
	}
	return nil
}

// Search performs top-K cosine similarity search over the collection
func (m *MilvusStore) Search(ctx context.Context, queryVector []float32, topK int) ([]RetrievedChunk, error) {
	if m.count == 0 {
		return nil, ErrIndexNotReady
	}
	if len(queryVector) != m.config.Dimension {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, m.config.Dimension, len(queryVector))
	}
	if topK <= 0 {
		return []RetrievedChunk{}, nil
	}

	sp, err := entity.NewIndexHNSWSearchParam(m.config.Ef)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	vectors := []entity.Vector{entity.FloatVector(queryVector)}
	outputFields := []string{"seq", "source_offset", "text"}

	results, err := m.client.Search(
		ctx,
		m.config.CollectionName,
		nil, // partition names
		"",
		outputFields,
		vectors,
		"embedding",
		entity.COSINE,
		topK,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if len(results) == 0 {
		return []RetrievedChunk{}, nil
	}

	chunks := make([]RetrievedChunk, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		chunk, err := chunkFromColumns(results[0].Fields, i)
		if err != nil {
			return nil, err
		}
		if i < len(results[0].Scores) {
			chunk.Score = results[0].Scores[i]
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// chunkFromColumns reads row i of the search output fields.
func chunkFromColumns(fields []entity.Column, i int) (RetrievedChunk, error) {
	var chunk RetrievedChunk
	for _, field := range fields {
		switch field.Name() {
		case "seq", "source_offset":
			col, ok := field.(*entity.ColumnInt64)
			if !ok || i >= col.Len() {
				return RetrievedChunk{}, fmt.Errorf("%w: unexpected %s column %T", ErrSearchFailed, field.Name(), field)
			}
			if field.Name() == "seq" {
				chunk.SequenceIndex = int(col.Data()[i])
			} else {
				chunk.SourceOffset = int(col.Data()[i])
			}
		case "text":
			col, ok := field.(*entity.ColumnVarChar)
			if !ok || i >= col.Len() {
				return RetrievedChunk{}, fmt.Errorf("%w: unexpected text column %T", ErrSearchFailed, field)
			}
			chunk.Text = col.Data()[i]
		}
	}
	return chunk, nil
}

// Close releases resources and closes the Milvus connection
func (m *MilvusStore) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
