// Package milvus wraps the Milvus SDK with the collection layout used by the
// indexing pipeline: caller-supplied string primary keys so writes are
// idempotent, and one partition per corpus namespace.
package milvus

import (
	"context"
	"fmt"
	"strconv"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	milvusopts "github.com/kart-io/abhyasam/pkg/options/milvus"
)

// Client wraps the Milvus SDK client.
type Client struct {
	client *milvusclient.Client
	opts   *milvusopts.Options
}

// New creates a new Milvus client.
func New(opts *milvusopts.Options) (*Client, error) {
	if opts == nil {
		return nil, fmt.Errorf("milvus options is nil")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:  opts.Address,
		Username: opts.Username,
		Password: opts.Password,
		DBName:   opts.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to milvus: %w", err)
	}

	return &Client{
		client: c,
		opts:   opts,
	}, nil
}

// Close closes the Milvus client connection.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// RawClient returns the underlying Milvus client.
func (c *Client) RawClient() *milvusclient.Client {
	return c.client
}

// CollectionSchema defines the schema for a vector collection.
type CollectionSchema struct {
	Name        string
	Description string
	Dimension   int
	// IDMaxLen bounds the VarChar primary key.
	IDMaxLen   int
	MetaFields []MetaField
}

// MetaField defines a metadata field in the collection.
type MetaField struct {
	Name     string
	DataType entity.FieldType
	MaxLen   int // For VARCHAR type
}

// EnsureCollection creates the collection if it does not exist yet.
// The primary key is a caller-supplied VarChar so identical chunk IDs
// overwrite prior rows on upsert.
func (c *Client) EnsureCollection(ctx context.Context, schema *CollectionSchema) error {
	exists, err := c.client.HasCollection(ctx, milvusclient.NewHasCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	idMaxLen := schema.IDMaxLen
	if idMaxLen <= 0 {
		idMaxLen = 128
	}

	collSchema := entity.NewSchema().
		WithName(schema.Name).
		WithDescription(schema.Description)

	collSchema.WithField(
		entity.NewField().
			WithName("id").
			WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(int64(idMaxLen)).
			WithIsPrimaryKey(true),
	)

	collSchema.WithField(
		entity.NewField().
			WithName("embedding").
			WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(schema.Dimension)),
	)

	for _, f := range schema.MetaFields {
		field := entity.NewField().
			WithName(f.Name).
			WithDataType(f.DataType)
		if f.DataType == entity.FieldTypeVarChar && f.MaxLen > 0 {
			field.WithMaxLength(int64(f.MaxLen))
		}
		collSchema.WithField(field)
	}

	if err := c.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(schema.Name, collSchema)); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Cosine metric matches how retrieval scores are interpreted downstream.
	idx := index.NewIvfFlatIndex(entity.COSINE, 128)
	createIdxTask, err := c.client.CreateIndex(ctx, milvusclient.NewCreateIndexOption(schema.Name, "embedding", idx))
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if err := createIdxTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for index creation: %w", err)
	}

	loadTask, err := c.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(schema.Name))
	if err != nil {
		return fmt.Errorf("failed to load collection: %w", err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for collection loading: %w", err)
	}

	return nil
}

// EnsurePartition creates the partition if it does not exist yet.
func (c *Client) EnsurePartition(ctx context.Context, collectionName, partition string) error {
	if partition == "" {
		return nil
	}
	exists, err := c.client.HasPartition(ctx, milvusclient.NewHasPartitionOption(collectionName, partition))
	if err != nil {
		return fmt.Errorf("failed to check partition existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := c.client.CreatePartition(ctx, milvusclient.NewCreatePartitionOption(collectionName, partition)); err != nil {
		return fmt.Errorf("failed to create partition: %w", err)
	}
	return nil
}

// UpsertData represents rows written to a collection in one call.
// All slices must have the same length.
type UpsertData struct {
	IDs        []string
	Embeddings [][]float32
	Metadata   map[string][]any
}

// Upsert writes rows, overwriting any existing rows with the same IDs.
func (c *Client) Upsert(ctx context.Context, collectionName, partition string, data *UpsertData) error {
	if len(data.IDs) == 0 {
		return nil
	}
	if len(data.Embeddings) != len(data.IDs) {
		return fmt.Errorf("ids/embeddings length mismatch: %d != %d", len(data.IDs), len(data.Embeddings))
	}

	columns := make([]column.Column, 0, len(data.Metadata)+2)
	columns = append(columns, column.NewColumnVarChar("id", data.IDs))
	columns = append(columns, column.NewColumnFloatVector("embedding", len(data.Embeddings[0]), data.Embeddings))

	for name, values := range data.Metadata {
		if len(values) != len(data.IDs) {
			return fmt.Errorf("metadata field %s length mismatch: %d != %d", name, len(values), len(data.IDs))
		}
		switch values[0].(type) {
		case string:
			strVals := make([]string, len(values))
			for i, val := range values {
				strVals[i] = val.(string)
			}
			columns = append(columns, column.NewColumnVarChar(name, strVals))
		case int64:
			intVals := make([]int64, len(values))
			for i, val := range values {
				intVals[i] = val.(int64)
			}
			columns = append(columns, column.NewColumnInt64(name, intVals))
		default:
			return fmt.Errorf("unsupported metadata type %T for field %s", values[0], name)
		}
	}

	opt := milvusclient.NewColumnBasedInsertOption(collectionName, columns...)
	if partition != "" {
		opt = opt.WithPartition(partition)
	}
	if _, err := c.client.Upsert(ctx, opt); err != nil {
		return fmt.Errorf("failed to upsert data: %w", err)
	}

	// Flush so a sync pass is immediately visible to retrieval.
	flushTask, err := c.client.Flush(ctx, milvusclient.NewFlushOption(collectionName))
	if err != nil {
		return fmt.Errorf("failed to flush collection: %w", err)
	}
	if err := flushTask.Await(ctx); err != nil {
		return fmt.Errorf("failed to wait for flush: %w", err)
	}

	return nil
}

// SearchParams controls a vector similarity search.
type SearchParams struct {
	Vector       []float32
	TopK         int
	Partition    string
	Filter       string
	OutputFields []string
	// WithVectors also returns the stored embeddings, needed for re-ranking.
	WithVectors bool
}

// SearchResult represents a single search result.
type SearchResult struct {
	ID        string
	Score     float32
	Metadata  map[string]any
	Embedding []float32
}

// Search performs a vector similarity search.
func (c *Client) Search(ctx context.Context, collectionName string, params *SearchParams) ([]SearchResult, error) {
	outputFields := params.OutputFields
	if params.WithVectors {
		outputFields = append(append([]string{}, outputFields...), "embedding")
	}

	opt := milvusclient.NewSearchOption(
		collectionName,
		params.TopK,
		[]entity.Vector{entity.FloatVector(params.Vector)},
	).WithANNSField("embedding").
		WithSearchParam("nprobe", "16").
		WithOutputFields(outputFields...)
	if params.Partition != "" {
		opt = opt.WithPartitions(params.Partition)
	}
	if params.Filter != "" {
		opt = opt.WithFilter(params.Filter)
	}

	results, err := c.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	if len(results) == 0 {
		return []SearchResult{}, nil
	}

	searchResults := make([]SearchResult, 0, results[0].ResultCount)
	for i := 0; i < results[0].ResultCount; i++ {
		result := SearchResult{
			Score:    results[0].Scores[i],
			Metadata: make(map[string]any),
		}

		if idCol, ok := results[0].IDs.(*column.ColumnVarChar); ok {
			result.ID = idCol.Data()[i]
		}

		for _, field := range results[0].Fields {
			switch col := field.(type) {
			case *column.ColumnVarChar:
				result.Metadata[col.Name()] = col.Data()[i]
			case *column.ColumnInt64:
				result.Metadata[col.Name()] = col.Data()[i]
			case *column.ColumnFloatVector:
				if col.Name() == "embedding" {
					result.Embedding = col.Data()[i]
				}
			}
		}

		searchResults = append(searchResults, result)
	}

	return searchResults, nil
}

// DeleteByFilter deletes all rows matching the boolean expression.
func (c *Client) DeleteByFilter(ctx context.Context, collectionName, partition, expr string) error {
	opt := milvusclient.NewDeleteOption(collectionName).WithExpr(expr)
	if partition != "" {
		opt = opt.WithPartition(partition)
	}
	if _, err := c.client.Delete(ctx, opt); err != nil {
		return fmt.Errorf("failed to delete by filter: %w", err)
	}
	return nil
}

// DropCollection drops a collection.
func (c *Client) DropCollection(ctx context.Context, collectionName string) error {
	if err := c.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(collectionName)); err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	return nil
}

// GetCollectionStats returns the number of entities in a collection.
func (c *Client) GetCollectionStats(ctx context.Context, collectionName string) (int64, error) {
	stats, err := c.client.GetCollectionStats(ctx, milvusclient.NewGetCollectionStatsOption(collectionName))
	if err != nil {
		return 0, fmt.Errorf("failed to get collection stats: %w", err)
	}

	if val, ok := stats["row_count"]; ok {
		return strconv.ParseInt(val, 10, 64)
	}
	return 0, nil
}
