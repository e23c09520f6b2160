package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

// Field names for the policy chunk collection.
const (
	FieldID        = "id"
	FieldSourceID  = "source_id"
	FieldOrdinal   = "ordinal"
	FieldText      = "text"
	FieldMetadata  = "metadata"
	FieldCreatedAt = "created_at"
	FieldEmbedding = "embedding"
)

const (
	// DefaultCollection holds the indexed policy document chunks.
	DefaultCollection = "policy_chunks"

	maxIDLength   = "255"
	maxTextLength = "65535"
)

// MilvusStore implements core.VectorStore on top of a Milvus collection.
type MilvusStore struct {
	client       *milvusclient.Client
	collection   string
	embeddingDim int
}

// NewMilvusStore connects to Milvus and ensures the chunk collection exists
// and is loaded for search.
func NewMilvusStore(ctx context.Context, addr, collection string, embeddingDim int) (*MilvusStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if embeddingDim <= 0 {
		embeddingDim = core.DefaultEmbeddingDim
	}

	logger.Info("Connecting to Milvus at %s (collection %s, dim %d)", addr, collection, embeddingDim)

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{Address: addr})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	s := &MilvusStore{
		client:       c,
		collection:   collection,
		embeddingDim: embeddingDim,
	}
	if err := s.ensureCollection(ctx); err != nil {
		c.Close(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MilvusStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Policy document chunks for retrieval",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{"max_length": maxIDLength},
				},
				{
					Name:       FieldSourceID,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": maxIDLength},
				},
				{
					Name:     FieldOrdinal,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       FieldText,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": maxTextLength},
				},
				{
					Name:     FieldMetadata,
					DataType: entity.FieldTypeJSON,
				},
				{
					Name:     FieldCreatedAt,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       FieldEmbedding,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{"dim": fmt.Sprintf("%d", s.embeddingDim)},
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(s.collection, schema)
		if err := s.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		idx := index.NewHNSWIndex(entity.IP, 16, 200)
		indexOpt := milvusclient.NewCreateIndexOption(s.collection, FieldEmbedding, idx)
		if _, err := s.client.CreateIndex(ctx, indexOpt); err != nil {
			return fmt.Errorf("failed to create index on embedding field: %w", err)
		}

		logger.Info("Created collection %s with HNSW index", s.collection)
	}

	loadOpt := milvusclient.NewLoadCollectionOption(s.collection)
	if _, err := s.client.LoadCollection(ctx, loadOpt); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}
	return nil
}

// NearestNeighbors searches the collection for the k most similar chunks.
func (s *MilvusStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]core.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}

	searchOpt := milvusclient.NewSearchOption(s.collection, k, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldEmbedding).
		WithOutputFields(FieldID, FieldSourceID, FieldOrdinal, FieldText, FieldMetadata, FieldCreatedAt)

	results, err := s.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	if len(results) == 0 || results[0].ResultCount == 0 {
		return []core.ScoredChunk{}, nil
	}

	rs := results[0]
	out := make([]core.ScoredChunk, 0, rs.ResultCount)

	for i := 0; i < rs.ResultCount; i++ {
		chunk := core.Chunk{}

		if rs.IDs != nil {
			if id, err := rs.IDs.GetAsString(i); err == nil {
				chunk.ID = id
			}
		}
		if col := rs.GetColumn(FieldSourceID); col != nil {
			if v, err := col.GetAsString(i); err == nil {
				chunk.SourceID = v
			}
		}
		if col := rs.GetColumn(FieldOrdinal); col != nil {
			if v, err := col.GetAsInt64(i); err == nil {
				chunk.Ordinal = int(v)
			}
		}
		if col := rs.GetColumn(FieldText); col != nil {
			if v, err := col.GetAsString(i); err == nil {
				chunk.Text = v
			}
		}
		if col := rs.GetColumn(FieldCreatedAt); col != nil {
			if v, err := col.GetAsInt64(i); err == nil {
				chunk.CreatedAt = v
			}
		}
		if metaCol, ok := rs.GetColumn(FieldMetadata).(*column.ColumnJSONBytes); ok && i < len(metaCol.Data()) {
			var metadata map[string]interface{}
			if err := json.Unmarshal(metaCol.Data()[i], &metadata); err == nil {
				chunk.Metadata = metadata
			}
		}

		score := float32(0)
		if i < len(rs.Scores) {
			score = rs.Scores[i]
		}

		out = append(out, core.ScoredChunk{Chunk: chunk, Score: score})
	}

	return out, nil
}

// ReplaceSource swaps the stored chunk set for a source id: delete by
// expression, then insert the new columns. Re-running with the same input
// leaves exactly one chunk set behind.
func (s *MilvusStore) ReplaceSource(ctx context.Context, sourceID string, chunks []core.Chunk) error {
	if sourceID == "" {
		return fmt.Errorf("source id must not be empty")
	}

	// %q escapes quotes and backslashes so the id cannot break out of the
	// string literal in the filter expression.
	expr := fmt.Sprintf(`%s == %q`, FieldSourceID, sourceID)
	deleteOpt := milvusclient.NewDeleteOption(s.collection).WithExpr(expr)
	if _, err := s.client.Delete(ctx, deleteOpt); err != nil {
		return fmt.Errorf("failed to delete prior chunks for source %s: %w", sourceID, err)
	}

	if len(chunks) == 0 {
		logger.Info("Removed source %s from index (no replacement chunks)", sourceID)
		return nil
	}

	now := time.Now().Unix()
	ids := make([]string, len(chunks))
	sourceIDs := make([]string, len(chunks))
	ordinals := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	metadatas := make([][]byte, len(chunks))
	createdAts := make([]int64, len(chunks))
	vectors := make([][]float32, len(chunks))

	for i, ch := range chunks {
		if len(ch.Embedding) != s.embeddingDim {
			return fmt.Errorf("chunk %s has embedding dim %d, index expects %d", ch.ID, len(ch.Embedding), s.embeddingDim)
		}
		ids[i] = ch.ID
		sourceIDs[i] = ch.SourceID
		ordinals[i] = int64(ch.Ordinal)
		texts[i] = ch.Text
		metaBytes := []byte("{}")
		if ch.Metadata != nil {
			if b, err := json.Marshal(ch.Metadata); err == nil {
				metaBytes = b
			}
		}
		metadatas[i] = metaBytes
		createdAt := ch.CreatedAt
		if createdAt == 0 {
			createdAt = now
		}
		createdAts[i] = createdAt
		vectors[i] = ch.Embedding
	}

	insertOpt := milvusclient.NewColumnBasedInsertOption(s.collection,
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldSourceID, sourceIDs),
		column.NewColumnInt64(FieldOrdinal, ordinals),
		column.NewColumnVarChar(FieldText, texts),
		column.NewColumnJSONBytes(FieldMetadata, metadatas),
		column.NewColumnInt64(FieldCreatedAt, createdAts),
		column.NewColumnFloatVector(FieldEmbedding, s.embeddingDim, vectors),
	)
	if _, err := s.client.Insert(ctx, insertOpt); err != nil {
		return fmt.Errorf("failed to insert chunks for source %s: %w", sourceID, err)
	}

	if _, err := s.client.Flush(ctx, milvusclient.NewFlushOption(s.collection)); err != nil {
		return fmt.Errorf("failed to flush collection after ingesting %s: %w", sourceID, err)
	}

	logger.Info("Replaced source %s with %d chunks", sourceID, len(chunks))
	return nil
}

// Ping checks that Milvus still answers metadata requests.
func (s *MilvusStore) Ping(ctx context.Context) error {
	if _, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection)); err != nil {
		return fmt.Errorf("milvus unreachable: %w", err)
	}
	return nil
}

// Close closes the connection to Milvus.
func (s *MilvusStore) Close() error {
	return s.client.Close(context.Background())
}
