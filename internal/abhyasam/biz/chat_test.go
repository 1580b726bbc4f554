package biz

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/abhyasam/internal/abhyasam/session"
	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/pkg/llm"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

func newTestChat(vectors *mockVectorStore, provider *mockChatProvider, historyLimit int) *Chat {
	retriever := newTestRetriever(vectors, &mockEmbedder{})
	return NewChat(retriever, provider, session.NewMemoryStore(), &ChatConfig{HistoryLimit: historyLimit})
}

func TestChat_ContextAndSources(t *testing.T) {
	vectors := &mockVectorStore{hits: []*store.Hit{
		{ID: "c1", PageID: "p1", PageTitle: "Scheduling", Content: "taints repel pods"},
		{ID: "c2", PageID: "p1", PageTitle: "Scheduling", Content: "tolerations allow them"},
		{ID: "c3", PageID: "p2", PageTitle: "Storage", Content: "PVCs bind to PVs"},
	}}
	provider := &mockChatProvider{responses: []string{"Taints repel pods unless tolerated."}}
	chat := newTestChat(vectors, provider, 10)

	result, err := chat.Ask(context.Background(), "s1", "what do taints do?", nil)
	require.NoError(t, err)
	assert.Equal(t, "Taints repel pods unless tolerated.", result.Answer)

	// 来源按页面去重
	assert.Equal(t, []ChatSource{
		{PageID: "p1", PageTitle: "Scheduling"},
		{PageID: "p2", PageTitle: "Storage"},
	}, result.Sources)

	// 最后一条用户消息携带检索到的笔记和问题
	require.Len(t, provider.chats, 1)
	messages := provider.chats[0]
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	last := messages[len(messages)-1]
	assert.Contains(t, last.Content, "taints repel pods")
	assert.Contains(t, last.Content, "[Scheduling]")
	assert.Contains(t, last.Content, "Question: what do taints do?")
}

func TestChat_HistoryWindow(t *testing.T) {
	vectors := &mockVectorStore{hits: []*store.Hit{{ID: "c1", PageID: "p1", Content: "note"}}}
	provider := &mockChatProvider{}
	chat := newTestChat(vectors, provider, 2)

	for i := 1; i <= 3; i++ {
		provider.responses = []string{fmt.Sprintf("answer %d", i)}
		_, err := chat.Ask(context.Background(), "s1", fmt.Sprintf("question %d", i), nil)
		require.NoError(t, err)
	}

	// 第三次调用只携带最近两轮历史
	require.Len(t, provider.chats, 3)
	third := provider.chats[2]
	// system + 2 轮历史 (question/answer) + 当前问题
	require.Len(t, third, 6)
	assert.Equal(t, "question 1", third[1].Content)
	assert.Equal(t, "answer 1", third[2].Content)
	assert.Equal(t, "question 2", third[3].Content)

	// 第四次调用历史应只剩 2、3 两轮
	provider.responses = []string{"answer 4"}
	_, err := chat.Ask(context.Background(), "s1", "question 4", nil)
	require.NoError(t, err)
	fourth := provider.chats[3]
	require.Len(t, fourth, 6)
	assert.Equal(t, "question 2", fourth[1].Content)
	assert.Equal(t, "question 3", fourth[3].Content)
}

func TestChat_SessionsAreIsolated(t *testing.T) {
	vectors := &mockVectorStore{hits: []*store.Hit{{ID: "c1", Content: "note"}}}
	provider := &mockChatProvider{responses: []string{"a1"}}
	chat := newTestChat(vectors, provider, 10)

	_, err := chat.Ask(context.Background(), "alice", "q1", nil)
	require.NoError(t, err)

	provider.responses = []string{"a2"}
	_, err = chat.Ask(context.Background(), "bob", "q2", nil)
	require.NoError(t, err)

	// bob 的消息列表不应包含 alice 的历史
	bob := provider.chats[1]
	for _, msg := range bob {
		assert.False(t, strings.Contains(msg.Content, "a1"), "leaked history: %s", msg.Content)
	}
}

func TestChat_LLMFailure(t *testing.T) {
	vectors := &mockVectorStore{hits: []*store.Hit{{ID: "c1", Content: "note"}}}
	provider := &mockChatProvider{err: assert.AnError}
	chat := newTestChat(vectors, provider, 10)

	_, err := chat.Ask(context.Background(), "s1", "q", nil)
	require.Error(t, err)
	assert.True(t, errors.ErrLLMUnavailable.Is(err))
}

func TestChat_Reset(t *testing.T) {
	vectors := &mockVectorStore{hits: []*store.Hit{{ID: "c1", Content: "note"}}}
	provider := &mockChatProvider{responses: []string{"a1"}}
	chat := newTestChat(vectors, provider, 10)

	_, err := chat.Ask(context.Background(), "s1", "q1", nil)
	require.NoError(t, err)
	require.NoError(t, chat.Reset(context.Background(), "s1"))

	provider.responses = []string{"a2"}
	_, err = chat.Ask(context.Background(), "s1", "q2", nil)
	require.NoError(t, err)

	// 重置后没有历史，消息列表只有 system + 当前问题
	assert.Len(t, provider.chats[1], 2)
}
