package biz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/abhyasam/internal/abhyasam/session"
	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
)

func newTestQuiz(vectors *mockVectorStore, chat *mockChatProvider) *Quiz {
	retriever := newTestRetriever(vectors, &mockEmbedder{})
	return NewQuiz(retriever, chat, session.NewMemoryStore())
}

func quizVectors(n int) *mockVectorStore {
	hits := make([]*store.Hit, n)
	for i := range hits {
		hits[i] = &store.Hit{ID: string(rune('a' + i)), Content: "note content " + string(rune('a'+i))}
	}
	return &mockVectorStore{hits: hits}
}

func TestQuiz_FullRound(t *testing.T) {
	ctx := context.Background()
	vectors := quizVectors(4)
	chat := &mockChatProvider{responses: []string{"What is a pod?"}}
	quiz := newTestQuiz(vectors, chat)

	q1, err := quiz.Start(ctx, "s1", "kubernetes", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, "What is a pod?", q1.Question)
	assert.Equal(t, 1, q1.Index)
	assert.Equal(t, 2, q1.Total)

	// 候选集取 max(20, 2n)，按 MMR 模式携带向量检索
	require.Len(t, vectors.queries, 1)
	assert.Equal(t, 20, vectors.queries[0].K)
	assert.True(t, vectors.queries[0].WithVectors)

	// 第一次作答：评分 + 下一题
	chat.responses = []string{`{"score": 8, "feedback": "solid answer"}`, "What is a service?"}
	fb, err := quiz.Answer(ctx, "s1", "a pod is the smallest deployable unit")
	require.NoError(t, err)
	assert.Equal(t, 8.0, fb.Score)
	assert.Equal(t, "solid answer", fb.Feedback)
	assert.Equal(t, "What is a service?", fb.NextQuestion)
	assert.Equal(t, 2, fb.Index)
	assert.False(t, fb.Done)

	// 最后一次作答：模型输出不可解析按 0 分处理，返回总结并清除状态
	chat.responses = []string{"I would rate this a B+"}
	fb, err = quiz.Answer(ctx, "s1", "no idea")
	require.NoError(t, err)
	assert.Equal(t, 0.0, fb.Score)
	assert.Equal(t, "Error parsing evaluation.", fb.Feedback)
	assert.True(t, fb.Done)
	assert.Equal(t, "Quiz complete! Average score: 4.0/10", fb.Summary)

	// 完成后再作答视为无活动会话
	_, err = quiz.Answer(ctx, "s1", "anything")
	require.Error(t, err)
	assert.True(t, errors.ErrNoActiveSession.Is(err))
}

func TestQuiz_StartValidation(t *testing.T) {
	quiz := newTestQuiz(quizVectors(4), &mockChatProvider{})

	_, err := quiz.Start(context.Background(), "s1", "kubernetes", 0, nil)
	require.Error(t, err)
	assert.True(t, errors.ErrInvalidParam.Is(err))
}

func TestQuiz_InsufficientContent(t *testing.T) {
	quiz := newTestQuiz(quizVectors(1), &mockChatProvider{})

	_, err := quiz.Start(context.Background(), "s1", "obscure topic", 3, nil)
	require.Error(t, err)
	assert.True(t, errors.ErrInsufficientContent.Is(err))
}

func TestQuiz_AnswerWithoutSession(t *testing.T) {
	quiz := newTestQuiz(quizVectors(4), &mockChatProvider{})

	_, err := quiz.Answer(context.Background(), "nobody", "42")
	require.Error(t, err)
	assert.True(t, errors.ErrNoActiveSession.Is(err))
}

func TestQuiz_EvalJSONEmbeddedInProse(t *testing.T) {
	ctx := context.Background()
	chat := &mockChatProvider{responses: []string{"Q1"}}
	quiz := newTestQuiz(quizVectors(4), chat)

	_, err := quiz.Start(ctx, "s1", "kubernetes", 1, nil)
	require.NoError(t, err)

	// 模型在 JSON 外加了客套话，仍应解析成功
	chat.responses = []string{`Sure! Here is my grade: {"score": 10, "feedback": "perfect"} Hope that helps.`}
	fb, err := quiz.Answer(ctx, "s1", "great answer")
	require.NoError(t, err)
	assert.Equal(t, 10.0, fb.Score)
	assert.Equal(t, "perfect", fb.Feedback)
	assert.Equal(t, "Quiz complete! Average score: 10.0/10", fb.Summary)
}

func TestQuiz_ScoreClamped(t *testing.T) {
	ctx := context.Background()
	chat := &mockChatProvider{responses: []string{"Q1"}}
	quiz := newTestQuiz(quizVectors(4), chat)

	_, err := quiz.Start(ctx, "s1", "kubernetes", 1, nil)
	require.NoError(t, err)

	chat.responses = []string{`{"score": 15, "feedback": "overeager grader"}`}
	fb, err := quiz.Answer(ctx, "s1", "answer")
	require.NoError(t, err)
	assert.Equal(t, 10.0, fb.Score)
}

func TestQuiz_StartScopedToPage(t *testing.T) {
	vectors := quizVectors(4)
	quiz := newTestQuiz(vectors, &mockChatProvider{responses: []string{"Q1"}})

	_, err := quiz.Start(context.Background(), "s1", "kubernetes", 1, map[string]string{"page_id": "p1"})
	require.NoError(t, err)

	// 过滤条件与默认来源过滤一起下发到向量检索
	require.Len(t, vectors.queries, 1)
	assert.Equal(t, map[string]string{"source": "notion", "page_id": "p1"}, vectors.queries[0].Filter)
}

func TestQuiz_EvalLLMFailureKeepsQuestion(t *testing.T) {
	ctx := context.Background()
	chat := &mockChatProvider{responses: []string{"Q1"}}
	quiz := newTestQuiz(quizVectors(4), chat)

	_, err := quiz.Start(ctx, "s1", "kubernetes", 1, nil)
	require.NoError(t, err)

	// 评分调用失败向上返回错误，不推进状态、不销毁会话
	chat.err = assert.AnError
	_, err = quiz.Answer(ctx, "s1", "my answer")
	require.Error(t, err)
	assert.True(t, errors.ErrLLMUnavailable.Is(err))

	// 模型恢复后同一问题可重新作答并正常完成
	chat.err = nil
	chat.responses = []string{`{"score": 7, "feedback": "close enough"}`}
	fb, err := quiz.Answer(ctx, "s1", "my answer")
	require.NoError(t, err)
	assert.Equal(t, 7.0, fb.Score)
	assert.True(t, fb.Done)
	assert.Equal(t, "Quiz complete! Average score: 7.0/10", fb.Summary)
}

func TestQuiz_LLMFailureOnStart(t *testing.T) {
	chat := &mockChatProvider{err: assert.AnError}
	quiz := newTestQuiz(quizVectors(4), chat)

	_, err := quiz.Start(context.Background(), "s1", "kubernetes", 1, nil)
	require.Error(t, err)
	assert.True(t, errors.ErrLLMUnavailable.Is(err))
}
