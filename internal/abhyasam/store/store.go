package store

import (
	"context"
)

// Chunk 表示一个待写入的文本块。ID 由调用方根据页面 ID 与块序号
// 确定性生成，重复写入同一 ID 会覆盖旧行。
type Chunk struct {
	// ID 文本块 ID。
	ID string
	// PageID 所属页面 ID。
	PageID string
	// PageTitle 页面标题。
	PageTitle string
	// Seq 块在页面内的序号。
	Seq int64
	// Source 语料来源标识。
	Source string
	// Content 文本内容。
	Content string
	// Embedding 嵌入向量。
	Embedding []float32
}

// Hit 表示一条检索结果。
type Hit struct {
	// ID 文本块 ID。
	ID string
	// PageID 所属页面 ID。
	PageID string
	// PageTitle 页面标题。
	PageTitle string
	// Content 文本内容。
	Content string
	// Score 相似度分数。
	Score float32
	// Embedding 嵌入向量，仅在请求时返回，用于多样性重排。
	Embedding []float32
}

// Query 描述一次相似度检索。
type Query struct {
	// Embedding 查询向量。
	Embedding []float32
	// K 返回的结果数量。
	K int
	// Filter 元数据等值过滤条件，多个条件按 AND 连接。
	Filter map[string]string
	// WithVectors 为 true 时结果中携带存储的嵌入向量。
	WithVectors bool
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// Init 确保集合与分区就绪。
	Init(ctx context.Context) error

	// Upsert 幂等写入文本块。
	Upsert(ctx context.Context, chunks []*Chunk) error

	// DeleteByPage 删除某页面的全部向量。
	DeleteByPage(ctx context.Context, pageID string) error

	// Search 带过滤的向量相似度搜索。
	Search(ctx context.Context, q *Query) ([]*Hit, error)

	// Stats 返回集合中的行数。
	Stats(ctx context.Context) (int64, error)

	// Close 关闭连接。
	Close(ctx context.Context) error
}
