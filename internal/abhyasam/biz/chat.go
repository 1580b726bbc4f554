package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/kart-io/abhyasam/internal/abhyasam/session"
	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/pkg/llm"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

const chatSystemPrompt = "You are a helpful study assistant. Answer using only the provided notes. " +
	"If the notes do not contain the answer, say so instead of guessing."

// ChatConfig 问答配置。
type ChatConfig struct {
	// HistoryLimit 每个会话保留的最近问答轮数。
	HistoryLimit int
}

// ChatSource 标识答案引用的页面。
type ChatSource struct {
	PageID    string `json:"page_id"`
	PageTitle string `json:"page_title"`
}

// ChatResult 一次问答的结果。
type ChatResult struct {
	Answer  string       `json:"answer"`
	Sources []ChatSource `json:"sources"`
}

type chatExchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type chatHistory struct {
	Exchanges []chatExchange `json:"exchanges"`
}

// Chat 基于检索上下文回答问题，并维护会话级滚动历史。
type Chat struct {
	retriever    *Retriever
	chatProvider llm.ChatProvider
	sessions     session.Store
	config       *ChatConfig
}

// NewChat 创建问答实例。
func NewChat(retriever *Retriever, chatProvider llm.ChatProvider, sessions session.Store, config *ChatConfig) *Chat {
	return &Chat{
		retriever:    retriever,
		chatProvider: chatProvider,
		sessions:     sessions,
		config:       config,
	}
}

func chatKey(sessionID string) string { return sessionID + "_chat" }

// Ask 回答一个问题。检索参数按调用传入，不影响其他请求。
func (c *Chat) Ask(ctx context.Context, sessionID, question string, opts *RetrieveOptions) (*ChatResult, error) {
	hits, err := c.retriever.Retrieve(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	var result *ChatResult
	err = c.sessions.Update(ctx, chatKey(sessionID), func() error {
		var history chatHistory
		if err := c.sessions.Get(ctx, chatKey(sessionID), &history); err != nil && !errors.ErrSessionNotFound.Is(err) {
			return err
		}

		messages := buildChatMessages(question, hits, history.Exchanges)
		answer, err := c.chatProvider.Chat(ctx, messages)
		if err != nil {
			return errors.ErrLLMUnavailable.WithCause(err)
		}

		history.Exchanges = append(history.Exchanges, chatExchange{Question: question, Answer: answer})
		if limit := c.config.HistoryLimit; limit > 0 && len(history.Exchanges) > limit {
			history.Exchanges = history.Exchanges[len(history.Exchanges)-limit:]
		}
		if err := c.sessions.Put(ctx, chatKey(sessionID), &history); err != nil {
			return err
		}

		result = &ChatResult{Answer: answer, Sources: collectSources(hits)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Reset 清空一个会话的历史。
func (c *Chat) Reset(ctx context.Context, sessionID string) error {
	return c.sessions.Delete(ctx, chatKey(sessionID))
}

// buildChatMessages 组装消息列表：系统提示、历史轮次、携带上下文的当前问题。
func buildChatMessages(question string, hits []*store.Hit, exchanges []chatExchange) []llm.Message {
	messages := make([]llm.Message, 0, len(exchanges)*2+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: chatSystemPrompt})

	for _, ex := range exchanges {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: ex.Question},
			llm.Message{Role: llm.RoleAssistant, Content: ex.Answer},
		)
	}

	var sb strings.Builder
	sb.WriteString("Notes:\n")
	for _, hit := range hits {
		fmt.Fprintf(&sb, "[%s]\n%s\n\n", hit.PageTitle, hit.Content)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: sb.String()})
	return messages
}

// collectSources 按页面去重收集引用来源，保持检索顺序。
func collectSources(hits []*store.Hit) []ChatSource {
	seen := make(map[string]bool, len(hits))
	sources := make([]ChatSource, 0, len(hits))
	for _, hit := range hits {
		if seen[hit.PageID] {
			continue
		}
		seen[hit.PageID] = true
		sources = append(sources, ChatSource{PageID: hit.PageID, PageTitle: hit.PageTitle})
	}
	return sources
}
