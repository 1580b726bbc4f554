package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

func newTestRetriever(vectors *mockVectorStore, embedder *mockEmbedder) *Retriever {
	return NewRetriever(vectors, embedder, &RetrieverConfig{
		TopK:      3,
		FetchK:    5,
		MMRLambda: 0.25,
		Source:    "notion",
	})
}

func TestRetrieve_DefaultFilterAndK(t *testing.T) {
	vectors := &mockVectorStore{hits: []*store.Hit{
		{ID: "a", Content: "one"},
		{ID: "b", Content: "two"},
		{ID: "c", Content: "three"},
	}}
	retriever := newTestRetriever(vectors, &mockEmbedder{})

	hits, err := retriever.Retrieve(context.Background(), "pods", nil)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	require.Len(t, vectors.queries, 1)
	assert.Equal(t, 3, vectors.queries[0].K)
	assert.Equal(t, map[string]string{"source": "notion"}, vectors.queries[0].Filter)
	assert.False(t, vectors.queries[0].WithVectors)
}

func TestRetrieve_PerCallK(t *testing.T) {
	vectors := &mockVectorStore{hits: []*store.Hit{{ID: "a"}, {ID: "b"}}}
	retriever := newTestRetriever(vectors, &mockEmbedder{})

	_, err := retriever.Retrieve(context.Background(), "pods", &RetrieveOptions{K: 40})
	require.NoError(t, err)
	_, err = retriever.Retrieve(context.Background(), "pods", nil)
	require.NoError(t, err)

	// 每次调用的 k 独立，互不影响
	require.Len(t, vectors.queries, 2)
	assert.Equal(t, 40, vectors.queries[0].K)
	assert.Equal(t, 3, vectors.queries[1].K)
}

func TestRetrieve_ExtraFilterMergesWithDefault(t *testing.T) {
	vectors := &mockVectorStore{}
	retriever := newTestRetriever(vectors, &mockEmbedder{})

	_, err := retriever.Retrieve(context.Background(), "pods", &RetrieveOptions{
		Filter: map[string]string{"page_id": "p1"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"source": "notion", "page_id": "p1"}, vectors.queries[0].Filter)
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	retriever := newTestRetriever(&mockVectorStore{}, &mockEmbedder{fail: true})

	_, err := retriever.Retrieve(context.Background(), "pods", nil)
	require.Error(t, err)
	assert.True(t, errors.ErrEmbeddingUnavailable.Is(err))
}

func TestRetrieve_MMRPrefersDiverseResults(t *testing.T) {
	// 候选 a 与 b 几乎相同，c 与它们正交。MMR 选两个时应取 a 和 c。
	vectors := &mockVectorStore{hits: []*store.Hit{
		{ID: "a", Content: "one", Embedding: []float32{1, 0, 0}},
		{ID: "b", Content: "near-duplicate of one", Embedding: []float32{0.99, 0.01, 0}},
		{ID: "c", Content: "different", Embedding: []float32{0, 1, 0}},
	}}
	embedder := &mockEmbedder{vectors: map[string][]float32{"pods": {1, 0, 0}}}
	retriever := newTestRetriever(vectors, embedder)

	hits, err := retriever.Retrieve(context.Background(), "pods", &RetrieveOptions{K: 2, Mode: ModeMMR})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)

	// MMR 模式请求候选集携带向量
	require.Len(t, vectors.queries, 1)
	assert.True(t, vectors.queries[0].WithVectors)
	assert.Equal(t, 5, vectors.queries[0].K)
}

func TestMMRSelect_FewCandidatesReturnedAsIs(t *testing.T) {
	candidates := []*store.Hit{{ID: "a"}, {ID: "b"}}
	selected := mmrSelect([]float32{1, 0}, candidates, 5, 0.25)
	assert.Equal(t, candidates, selected)
}
