package biz

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/internal/notion"
	"github.com/kart-io/abhyasam/pkg/llm"
)

// mockSource 返回预置页面与内容。
type mockSource struct {
	pages      []notion.Page
	content    map[string]string
	contentErr map[string]error
	searchErr  error
}

func (m *mockSource) SearchPages(_ context.Context) ([]notion.Page, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.pages, nil
}

func (m *mockSource) GetPageContent(_ context.Context, pageID string) (string, error) {
	if err, ok := m.contentErr[pageID]; ok {
		return "", err
	}
	return m.content[pageID], nil
}

// mockVectorStore 记录写入与删除，检索返回预置结果。
type mockVectorStore struct {
	hits      []*store.Hit
	queries   []*store.Query
	upserts   [][]*store.Chunk
	deleted   []string
	rows      int64
	searchErr error
	upsertErr error
}

func (m *mockVectorStore) Init(_ context.Context) error { return nil }

func (m *mockVectorStore) Upsert(_ context.Context, chunks []*store.Chunk) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, chunks)
	return nil
}

func (m *mockVectorStore) DeleteByPage(_ context.Context, pageID string) error {
	m.deleted = append(m.deleted, pageID)
	return nil
}

func (m *mockVectorStore) Search(_ context.Context, q *store.Query) ([]*store.Hit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	m.queries = append(m.queries, q)
	if q.K < len(m.hits) {
		return m.hits[:q.K], nil
	}
	return m.hits, nil
}

func (m *mockVectorStore) Stats(_ context.Context) (int64, error) { return m.rows, nil }

func (m *mockVectorStore) Close(_ context.Context) error { return nil }

// mockEmbedder 生成确定性向量，可注入失败。
type mockEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.fail {
		return nil, stderrors.New("embedding endpoint down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) EmbedSingle(_ context.Context, text string) ([]float32, error) {
	if m.fail {
		return nil, stderrors.New("embedding endpoint down")
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	// 兜底向量，长度与预置向量一致即可
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) Name() string { return "mock-embed" }

// mockChatProvider 按队列返回固定回复，并记录收到的提示。
type mockChatProvider struct {
	responses []string
	prompts   []string
	chats     [][]llm.Message
	err       error
}

func (m *mockChatProvider) pop() (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("mock chat provider has no responses left")
	}
	r := m.responses[0]
	m.responses = m.responses[1:]
	return r, nil
}

func (m *mockChatProvider) Chat(_ context.Context, messages []llm.Message) (string, error) {
	m.chats = append(m.chats, messages)
	return m.pop()
}

func (m *mockChatProvider) Generate(_ context.Context, prompt, systemPrompt string) (string, error) {
	m.prompts = append(m.prompts, systemPrompt+"\n"+prompt)
	return m.pop()
}

func (m *mockChatProvider) Name() string { return "mock-chat" }
