package biz

import (
	"context"
	"sort"

	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/internal/pkg/snapshot"
	"github.com/kart-io/abhyasam/pkg/llm"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

// PageInfo 页面下拉列表项。
type PageInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Service 定义知识库服务门面。
type Service interface {
	// Sync 同步源端页面到向量索引。
	Sync(ctx context.Context, force bool) (*SyncResult, error)
	// Pages 列出已同步的页面。
	Pages(ctx context.Context) ([]PageInfo, error)
	// Ask 基于笔记回答问题。
	Ask(ctx context.Context, sessionID, question string, opts *RetrieveOptions) (*ChatResult, error)
	// StartQuiz 开始交互式测验。filter 可将出题范围限定到特定页面。
	StartQuiz(ctx context.Context, sessionID, topic string, n int, filter map[string]string) (*QuizQuestion, error)
	// AnswerQuiz 提交当前问题的答案。
	AnswerQuiz(ctx context.Context, sessionID, answer string) (*QuizFeedback, error)
	// GenerateMCQ 批量生成选择题工件。
	GenerateMCQ(ctx context.Context, topic string, batches, perBatch int, filter map[string]string) (int, error)
	// Questions 返回已持久化的选择题。
	Questions(ctx context.Context) ([]MCQ, error)
	// Stats 返回索引统计信息。
	Stats(ctx context.Context) (map[string]any, error)
}

// StudyService 组合各业务组件实现 Service。
type StudyService struct {
	syncer    *Syncer
	chat      *Chat
	quiz      *Quiz
	mcq       *MCQGenerator
	snapshots *snapshot.Store
	vectors   store.VectorStore
	embedName string
	chatName  string
}

// NewStudyService 创建服务门面。
func NewStudyService(
	syncer *Syncer,
	chat *Chat,
	quiz *Quiz,
	mcq *MCQGenerator,
	snapshots *snapshot.Store,
	vectors store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
) *StudyService {
	return &StudyService{
		syncer:    syncer,
		chat:      chat,
		quiz:      quiz,
		mcq:       mcq,
		snapshots: snapshots,
		vectors:   vectors,
		embedName: embedProvider.Name(),
		chatName:  chatProvider.Name(),
	}
}

// Sync 同步源端页面到向量索引。
func (s *StudyService) Sync(ctx context.Context, force bool) (*SyncResult, error) {
	return s.syncer.Sync(ctx, force)
}

// Pages 从快照列出已同步的页面，按标题排序。
func (s *StudyService) Pages(_ context.Context) ([]PageInfo, error) {
	records, err := s.snapshots.Load()
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	pages := make([]PageInfo, 0, len(records))
	for _, r := range records {
		pages = append(pages, PageInfo{ID: r.ID, Title: r.Title})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Title < pages[j].Title })
	return pages, nil
}

// Ask 基于笔记回答问题。
func (s *StudyService) Ask(ctx context.Context, sessionID, question string, opts *RetrieveOptions) (*ChatResult, error) {
	return s.chat.Ask(ctx, sessionID, question, opts)
}

// StartQuiz 开始交互式测验。
func (s *StudyService) StartQuiz(ctx context.Context, sessionID, topic string, n int, filter map[string]string) (*QuizQuestion, error) {
	return s.quiz.Start(ctx, sessionID, topic, n, filter)
}

// AnswerQuiz 提交当前问题的答案。
func (s *StudyService) AnswerQuiz(ctx context.Context, sessionID, answer string) (*QuizFeedback, error) {
	return s.quiz.Answer(ctx, sessionID, answer)
}

// GenerateMCQ 批量生成选择题工件。
func (s *StudyService) GenerateMCQ(ctx context.Context, topic string, batches, perBatch int, filter map[string]string) (int, error) {
	return s.mcq.Generate(ctx, topic, batches, perBatch, filter)
}

// Questions 返回已持久化的选择题。
func (s *StudyService) Questions(_ context.Context) ([]MCQ, error) {
	return s.mcq.Questions()
}

// Stats 返回索引统计信息。
func (s *StudyService) Stats(ctx context.Context) (map[string]any, error) {
	rows, err := s.vectors.Stats(ctx)
	if err != nil {
		return nil, errors.ErrVectorStore.WithCause(err)
	}

	records, err := s.snapshots.Load()
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}

	return map[string]any{
		"vector_rows":        rows,
		"pages":              len(records),
		"embedding_provider": s.embedName,
		"chat_provider":      s.chatName,
	}, nil
}

var _ Service = (*StudyService)(nil)
