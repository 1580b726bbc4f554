package biz

import (
	"context"

	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/internal/pkg/textutil"
	"github.com/kart-io/abhyasam/pkg/llm"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

// RetrieveMode 检索模式。
type RetrieveMode string

const (
	// ModeSimilarity 按相似度取 top-k。
	ModeSimilarity RetrieveMode = "similarity"
	// ModeMMR 先取较大候选集，再按最大边际相关性重排，兼顾多样性。
	ModeMMR RetrieveMode = "mmr"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 默认返回的结果数量。
	TopK int
	// FetchK MMR 模式下的候选集大小。
	FetchK int
	// MMRLambda 相关性与多样性的权衡系数，取值 [0, 1]，越大越偏向相关性。
	MMRLambda float64
	// Source 默认过滤的语料来源。
	Source string
}

// RetrieveOptions 控制单次检索。所有字段按调用传入，不修改检索器自身状态。
type RetrieveOptions struct {
	// K 返回数量，为 0 时使用默认 TopK。
	K int
	// Mode 检索模式，为空时使用相似度模式。
	Mode RetrieveMode
	// Filter 额外的等值过滤条件，与默认来源过滤合并。
	Filter map[string]string
}

// Retriever 负责向量检索。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
	}
}

// Retrieve 执行一次检索。
func (r *Retriever) Retrieve(ctx context.Context, query string, opts *RetrieveOptions) ([]*store.Hit, error) {
	if opts == nil {
		opts = &RetrieveOptions{}
	}

	k := opts.K
	if k <= 0 {
		k = r.config.TopK
	}

	embedding, err := r.embedProvider.EmbedSingle(ctx, query)
	if err != nil {
		return nil, errors.ErrEmbeddingUnavailable.WithCause(err)
	}

	filter := map[string]string{"source": r.config.Source}
	for key, val := range opts.Filter {
		filter[key] = val
	}

	if opts.Mode == ModeMMR {
		return r.retrieveMMR(ctx, embedding, k, filter)
	}

	hits, err := r.store.Search(ctx, &store.Query{
		Embedding: embedding,
		K:         k,
		Filter:    filter,
	})
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}
	return hits, nil
}

// retrieveMMR 取较大候选集后贪心重排。每一步选择
// lambda*sim(q,d) - (1-lambda)*max(sim(d, selected)) 最大的候选。
func (r *Retriever) retrieveMMR(ctx context.Context, queryVec []float32, k int, filter map[string]string) ([]*store.Hit, error) {
	fetchK := r.config.FetchK
	if fetchK < k {
		fetchK = k
	}

	candidates, err := r.store.Search(ctx, &store.Query{
		Embedding:   queryVec,
		K:           fetchK,
		Filter:      filter,
		WithVectors: true,
	})
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}

	return mmrSelect(queryVec, candidates, k, r.config.MMRLambda), nil
}

func mmrSelect(queryVec []float32, candidates []*store.Hit, k int, lambda float64) []*store.Hit {
	if len(candidates) <= k {
		return candidates
	}

	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		relevance[i] = textutil.CosineSimilarity(queryVec, c.Embedding)
	}

	selected := make([]*store.Hit, 0, k)
	picked := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestScore := 0.0
		for i, c := range candidates {
			if picked[i] {
				continue
			}

			maxSim := 0.0
			for _, sel := range selected {
				if sim := textutil.CosineSimilarity(c.Embedding, sel.Embedding); sim > maxSim {
					maxSim = sim
				}
			}

			score := lambda*relevance[i] - (1-lambda)*maxSim
			if bestIdx == -1 || score > bestScore {
				bestIdx = i
				bestScore = score
			}
		}
		if bestIdx == -1 {
			break
		}
		picked[bestIdx] = true
		selected = append(selected, candidates[bestIdx])
	}

	return selected
}
