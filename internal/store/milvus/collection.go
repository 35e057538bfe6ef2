package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/marvinh/rag-assistant/internal/logger"
)

// ensureCollection creates the documents collection, its vector index
// and loads it into memory. Safe to call on every startup.
func (s *Store) ensureCollection(ctx context.Context) error {
	has, err := s.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", s.collection, err)
	}

	if !has {
		logger.Info("Creating collection %s", s.collection)

		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Document chunks with embeddings for retrieval",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					TypeParams: map[string]string{"max_length": "255"},
				},
				{
					Name:       FieldText,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "65535"},
				},
				{
					Name:       FieldSource,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "255"},
				},
				{
					Name:     FieldPage,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       FieldCategory,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "255"},
				},
				{
					Name:       FieldEmbedding,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{"dim": strconv.Itoa(s.embeddingDim)},
				},
			},
		}

		err = s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema))
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", s.collection, err)
		}

		vectorIdx := index.NewHNSWIndex(entity.COSINE, 16, 200)
		indexTask, err := s.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(s.collection, FieldEmbedding, vectorIdx))
		if err != nil {
			return fmt.Errorf("failed to create index on %s: %w", s.collection, err)
		}
		if err := indexTask.Await(ctx); err != nil {
			return fmt.Errorf("failed to wait for index on %s: %w", s.collection, err)
		}
	}

	loadTask, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection %s to load: %w", s.collection, err)
	}

	logger.Info("Collection %s ready", s.collection)
	return nil
}
