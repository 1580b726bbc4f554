package biz

import (
	"context"
	"fmt"

	"github.com/kart-io/logger"

	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/internal/notion"
	"github.com/kart-io/abhyasam/internal/pkg/snapshot"
	"github.com/kart-io/abhyasam/internal/pkg/textutil"
	"github.com/kart-io/abhyasam/pkg/llm"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

// Source 抽象文档源，便于测试替换。
type Source interface {
	// SearchPages 列出全部页面的元数据。
	SearchPages(ctx context.Context) ([]notion.Page, error)
	// GetPageContent 获取页面渲染后的纯文本内容。
	GetPageContent(ctx context.Context, pageID string) (string, error)
}

// SyncerConfig 同步器配置。
type SyncerConfig struct {
	// ChunkSize 文本块大小（Unicode 字符数）。
	ChunkSize int
	// ChunkOverlap 块重叠大小。
	ChunkOverlap int
	// Source 语料来源标识，写入每个块的元数据。
	Source string
}

// SyncResult 汇总一次同步的结果。
type SyncResult struct {
	// Pages 源端页面总数。
	Pages int `json:"pages"`
	// Unchanged 内容未变化、跳过的页面数。
	Unchanged int `json:"unchanged"`
	// Indexed 重新写入索引的页面数。
	Indexed int `json:"indexed"`
	// Failed 处理失败的页面数。
	Failed int `json:"failed"`
}

// Syncer 将源端页面同步到向量索引，并维护变更检测快照。
type Syncer struct {
	source        Source
	snapshots     *snapshot.Store
	vectors       store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *SyncerConfig
}

// NewSyncer 创建同步器实例。
func NewSyncer(
	source Source,
	snapshots *snapshot.Store,
	vectors store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	config *SyncerConfig,
) *Syncer {
	return &Syncer{
		source:        source,
		snapshots:     snapshots,
		vectors:       vectors,
		embedProvider: embedProvider,
		config:        config,
	}
}

// Sync 执行一次同步。force 为 true 时全量刷新所有页面。
// 单个页面的失败只影响该页面，其余页面继续处理。
func (s *Syncer) Sync(ctx context.Context, force bool) (*SyncResult, error) {
	pages, err := s.source.SearchPages(ctx)
	if err != nil {
		return nil, err
	}

	prev, err := s.snapshots.Load()
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	result := &SyncResult{Pages: len(pages)}
	next := make([]snapshot.Record, 0, len(pages))

	for _, page := range pages {
		change := snapshot.Classify(prev, page.ID, page.LastEditedTime, force)
		if change == snapshot.Unchanged {
			result.Unchanged++
			next = append(next, prev[page.ID])
			continue
		}

		logger.Infow("indexing page", "page_id", page.ID, "title", page.Title, "change", change.String())

		content, err := s.source.GetPageContent(ctx, page.ID)
		if err != nil {
			// 部分获取的内容不可信，丢弃并保留旧快照记录等待下次重试。
			logger.Warnw("failed to fetch page content", "page_id", page.ID, "error", err.Error())
			result.Failed++
			if old, ok := prev[page.ID]; ok {
				next = append(next, old)
			}
			continue
		}

		if err := s.indexPage(ctx, &page, content); err != nil {
			logger.Warnw("failed to index page", "page_id", page.ID, "error", err.Error())
			result.Failed++
			if old, ok := prev[page.ID]; ok {
				next = append(next, old)
			}
			continue
		}

		result.Indexed++
		next = append(next, snapshot.Record{
			ID:             page.ID,
			Title:          page.Title,
			Content:        content,
			LastEditedTime: page.LastEditedTime,
		})
	}

	if err := s.snapshots.Save(next); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	logger.Infow("sync finished",
		"pages", result.Pages,
		"unchanged", result.Unchanged,
		"indexed", result.Indexed,
		"failed", result.Failed,
	)
	return result, nil
}

// indexPage 重建单个页面的索引：先删后写，写入使用确定性 ID，
// 同一页面内容重复同步会覆盖而不是累积。
func (s *Syncer) indexPage(ctx context.Context, page *notion.Page, content string) error {
	texts, err := textutil.SplitText(content, s.config.ChunkSize, s.config.ChunkOverlap)
	if err != nil {
		return errors.ErrInvalidConfiguration.WithCause(err)
	}

	if err := s.vectors.DeleteByPage(ctx, page.ID); err != nil {
		return err
	}
	if len(texts) == 0 {
		return nil
	}

	embeddings, err := s.embedProvider.Embed(ctx, texts)
	if err != nil {
		return errors.ErrEmbeddingUnavailable.WithCause(err)
	}
	if len(embeddings) != len(texts) {
		return errors.ErrEmbeddingUnavailable.WithCause(
			fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(texts), len(embeddings)))
	}

	chunks := make([]*store.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = &store.Chunk{
			ID:        chunkID(page.ID, i),
			PageID:    page.ID,
			PageTitle: page.Title,
			Seq:       int64(i),
			Source:    s.config.Source,
			Content:   text,
			Embedding: embeddings[i],
		}
	}

	return s.vectors.Upsert(ctx, chunks)
}

// chunkID 生成确定性的文本块主键。
func chunkID(pageID string, seq int) string {
	return fmt.Sprintf("%s#chunk#%d", pageID, seq)
}
