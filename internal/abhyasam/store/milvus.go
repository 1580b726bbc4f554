package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/abhyasam/pkg/component/milvus"
)

// MilvusStore 实现基于 Milvus 的向量存储。
// 每个语料命名空间对应集合中的一个分区。
type MilvusStore struct {
	client     *milvus.Client
	collection string
	partition  string
	dimension  int
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client, collection, partition string, dimension int) *MilvusStore {
	return &MilvusStore{
		client:     client,
		collection: collection,
		partition:  partition,
		dimension:  dimension,
	}
}

// Init 确保集合、索引与分区就绪。
func (s *MilvusStore) Init(ctx context.Context) error {
	schema := &milvus.CollectionSchema{
		Name:        s.collection,
		Description: "workspace notes knowledge base",
		Dimension:   s.dimension,
		IDMaxLen:    160,
		MetaFields: []milvus.MetaField{
			{Name: "source", DataType: entity.FieldTypeVarChar, MaxLen: 32},
			{Name: "page_id", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "page_title", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "chunk_seq", DataType: entity.FieldTypeInt64},
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
		},
	}
	if err := s.client.EnsureCollection(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}
	if err := s.client.EnsurePartition(ctx, s.collection, s.partition); err != nil {
		return fmt.Errorf("failed to ensure partition: %w", err)
	}
	return nil
}

// Upsert 幂等写入文本块。相同 ID 的行被覆盖，使页面重建索引可重复执行。
func (s *MilvusStore) Upsert(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"source":     make([]any, len(chunks)),
		"page_id":    make([]any, len(chunks)),
		"page_title": make([]any, len(chunks)),
		"chunk_seq":  make([]any, len(chunks)),
		"content":    make([]any, len(chunks)),
	}

	for i, chunk := range chunks {
		ids[i] = chunk.ID
		embeddings[i] = chunk.Embedding
		metadata["source"][i] = chunk.Source
		metadata["page_id"][i] = chunk.PageID
		metadata["page_title"][i] = chunk.PageTitle
		metadata["chunk_seq"][i] = chunk.Seq
		metadata["content"][i] = chunk.Content
	}

	data := &milvus.UpsertData{
		IDs:        ids,
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	if err := s.client.Upsert(ctx, s.collection, s.partition, data); err != nil {
		return fmt.Errorf("failed to upsert into milvus: %w", err)
	}
	return nil
}

// DeleteByPage 删除某页面的全部向量，页面更新时先删后写。
func (s *MilvusStore) DeleteByPage(ctx context.Context, pageID string) error {
	expr := buildFilterExpr(map[string]string{"page_id": pageID})
	if err := s.client.DeleteByFilter(ctx, s.collection, s.partition, expr); err != nil {
		return fmt.Errorf("failed to delete page vectors: %w", err)
	}
	return nil
}

// Search 带元数据过滤的向量相似度搜索。
func (s *MilvusStore) Search(ctx context.Context, q *Query) ([]*Hit, error) {
	params := &milvus.SearchParams{
		Vector:       q.Embedding,
		TopK:         q.K,
		Partition:    s.partition,
		Filter:       buildFilterExpr(q.Filter),
		OutputFields: []string{"page_id", "page_title", "content"},
		WithVectors:  q.WithVectors,
	}

	results, err := s.client.Search(ctx, s.collection, params)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	hits := make([]*Hit, 0, len(results))
	for _, r := range results {
		hit := &Hit{
			ID:        r.ID,
			Score:     r.Score,
			Embedding: r.Embedding,
		}
		if v, ok := r.Metadata["page_id"].(string); ok {
			hit.PageID = v
		}
		if v, ok := r.Metadata["page_title"].(string); ok {
			hit.PageTitle = v
		}
		if v, ok := r.Metadata["content"].(string); ok {
			hit.Content = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Stats 返回集合中的行数。
func (s *MilvusStore) Stats(ctx context.Context) (int64, error) {
	return s.client.GetCollectionStats(ctx, s.collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// buildFilterExpr 将等值过滤条件编译为 Milvus 布尔表达式。
// 键按字典序排列，保证同一过滤条件生成同一表达式。
func buildFilterExpr(filter map[string]string) string {
	if len(filter) == 0 {
		return ""
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	terms := make([]string, 0, len(keys))
	for _, k := range keys {
		v := strings.ReplaceAll(filter[k], `"`, `\"`)
		terms = append(terms, fmt.Sprintf(`%s == "%s"`, k, v))
	}
	return strings.Join(terms, " and ")
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
