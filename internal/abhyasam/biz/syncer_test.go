package biz

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/abhyasam/internal/notion"
	"github.com/kart-io/abhyasam/internal/pkg/snapshot"
)

func newTestSyncer(t *testing.T, source *mockSource, vectors *mockVectorStore) (*Syncer, *snapshot.Store) {
	t.Helper()
	snapshots := snapshot.NewStore(filepath.Join(t.TempDir(), "cached_pages.json"))
	syncer := NewSyncer(source, snapshots, vectors, &mockEmbedder{}, &SyncerConfig{
		ChunkSize:    100,
		ChunkOverlap: 10,
		Source:       "notion",
	})
	return syncer, snapshots
}

func TestSync_NewPagesAreIndexed(t *testing.T) {
	source := &mockSource{
		pages: []notion.Page{
			{ID: "p1", Title: "Scheduling", LastEditedTime: "2025-01-01T00:00:00.000Z"},
			{ID: "p2", Title: "Storage", LastEditedTime: "2025-01-02T00:00:00.000Z"},
		},
		content: map[string]string{
			"p1": "taints and tolerations",
			"p2": "persistent volume claims",
		},
	}
	vectors := &mockVectorStore{}
	syncer, snapshots := newTestSyncer(t, source, vectors)

	result, err := syncer.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Pages: 2, Indexed: 2}, result)

	// 每个页面先删后写
	assert.Equal(t, []string{"p1", "p2"}, vectors.deleted)
	require.Len(t, vectors.upserts, 2)
	assert.Equal(t, "p1#chunk#0", vectors.upserts[0][0].ID)
	assert.Equal(t, "notion", vectors.upserts[0][0].Source)
	assert.Equal(t, "Scheduling", vectors.upserts[0][0].PageTitle)

	// 快照记录了内容与时间戳
	records, err := snapshots.Load()
	require.NoError(t, err)
	assert.Equal(t, "taints and tolerations", records["p1"].Content)
}

func TestSync_UnchangedPagesAreSkipped(t *testing.T) {
	source := &mockSource{
		pages: []notion.Page{
			{ID: "p1", Title: "Scheduling", LastEditedTime: "2025-01-01T00:00:00.000Z"},
		},
		content: map[string]string{"p1": "taints"},
	}
	vectors := &mockVectorStore{}
	syncer, _ := newTestSyncer(t, source, vectors)

	_, err := syncer.Sync(context.Background(), false)
	require.NoError(t, err)

	result, err := syncer.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Pages: 1, Unchanged: 1}, result)
	// 第二次同步没有新的写入
	assert.Len(t, vectors.upserts, 1)
}

func TestSync_ForceReindexesEverything(t *testing.T) {
	source := &mockSource{
		pages: []notion.Page{
			{ID: "p1", Title: "Scheduling", LastEditedTime: "2025-01-01T00:00:00.000Z"},
		},
		content: map[string]string{"p1": "taints"},
	}
	vectors := &mockVectorStore{}
	syncer, _ := newTestSyncer(t, source, vectors)

	_, err := syncer.Sync(context.Background(), false)
	require.NoError(t, err)

	result, err := syncer.Sync(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Pages: 1, Indexed: 1}, result)
	assert.Len(t, vectors.upserts, 2)

	// 重复索引使用相同的确定性 ID，重写而非累积
	assert.Equal(t, vectors.upserts[0][0].ID, vectors.upserts[1][0].ID)
}

func TestSync_ContentFetchFailureKeepsOldRecord(t *testing.T) {
	source := &mockSource{
		pages: []notion.Page{
			{ID: "p1", Title: "Scheduling", LastEditedTime: "2025-01-01T00:00:00.000Z"},
		},
		content: map[string]string{"p1": "taints"},
	}
	vectors := &mockVectorStore{}
	syncer, snapshots := newTestSyncer(t, source, vectors)

	_, err := syncer.Sync(context.Background(), false)
	require.NoError(t, err)

	// 页面更新了，但内容获取失败
	source.pages[0].LastEditedTime = "2025-02-01T00:00:00.000Z"
	source.contentErr = map[string]error{"p1": stderrors.New("blocks endpoint 502")}

	result, err := syncer.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Pages: 1, Failed: 1}, result)

	// 旧快照记录保留，下次同步会重试该页面
	records, err := snapshots.Load()
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01T00:00:00.000Z", records["p1"].LastEditedTime)
}

func TestSync_EmbeddingFailureAbortsPageOnly(t *testing.T) {
	source := &mockSource{
		pages: []notion.Page{
			{ID: "p1", Title: "A", LastEditedTime: "t1"},
			{ID: "p2", Title: "B", LastEditedTime: "t2"},
		},
		content: map[string]string{"p1": "alpha", "p2": "beta"},
	}
	vectors := &mockVectorStore{}
	snapshots := snapshot.NewStore(filepath.Join(t.TempDir(), "cached_pages.json"))
	embedder := &mockEmbedder{fail: true}
	syncer := NewSyncer(source, snapshots, vectors, embedder, &SyncerConfig{
		ChunkSize: 100, ChunkOverlap: 10, Source: "notion",
	})

	result, err := syncer.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{Pages: 2, Failed: 2}, result)
	assert.Empty(t, vectors.upserts)
}

func TestSync_SourceFailureSurfaces(t *testing.T) {
	source := &mockSource{searchErr: stderrors.New("search endpoint 503")}
	syncer, _ := newTestSyncer(t, source, &mockVectorStore{})

	_, err := syncer.Sync(context.Background(), false)
	assert.Error(t, err)
}
