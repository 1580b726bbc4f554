package biz

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/kart-io/logger"

	"github.com/kart-io/abhyasam/internal/abhyasam/session"
	"github.com/kart-io/abhyasam/internal/pkg/textutil"
	"github.com/kart-io/abhyasam/pkg/llm"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
	"github.com/kart-io/abhyasam/pkg/utils/json"
)

const (
	// quizCandidateFloor 候选块数量下限，保证抽样有足够余量。
	quizCandidateFloor = 20

	evalFallbackFeedback = "Error parsing evaluation."

	questionSystemPrompt = "You are a quiz master. Ask one clear, answerable question " +
		"about the given study notes. Reply with the question only."

	evalSystemPrompt = "You grade quiz answers. Reply with strict JSON only, no prose: " +
		`{"score": <integer 0-10>, "feedback": "<one or two sentences>"}`
)

// QuizConfig 测验配置。
type QuizConfig struct{}

// QuizQuestion 开始测验或进入下一题时返回的问题。
type QuizQuestion struct {
	Question string `json:"question"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`
}

// QuizFeedback 对一次作答的反馈。
type QuizFeedback struct {
	Feedback     string  `json:"feedback"`
	Score        float64 `json:"score"`
	NextQuestion string  `json:"next_question,omitempty"`
	Index        int     `json:"index,omitempty"`
	Done         bool    `json:"done"`
	Summary      string  `json:"summary,omitempty"`
}

// quizState 进行中的测验状态。Index 为已提出的问题数。
type quizState struct {
	Topic     string            `json:"topic"`
	Filter    map[string]string `json:"filter,omitempty"`
	Chunks    []string          `json:"chunks"`
	Questions []string          `json:"questions"`
	Scores    []float64         `json:"scores"`
	Index     int               `json:"index"`
}

// Quiz 驱动交互式测验：从笔记中抽取材料，逐题提问并评分。
type Quiz struct {
	retriever    *Retriever
	chatProvider llm.ChatProvider
	sessions     session.Store
}

// NewQuiz 创建测验实例。
func NewQuiz(retriever *Retriever, chatProvider llm.ChatProvider, sessions session.Store) *Quiz {
	return &Quiz{
		retriever:    retriever,
		chatProvider: chatProvider,
		sessions:     sessions,
	}
}

func quizKey(sessionID string) string { return sessionID + "_quiz" }

// Start 开始一次测验：按 MMR 检索候选材料，抽样 n 块，提出第一个问题。
// filter 可将测验范围限定到特定页面。已有的同会话测验会被覆盖。
func (q *Quiz) Start(ctx context.Context, sessionID, topic string, n int, filter map[string]string) (*QuizQuestion, error) {
	if n < 1 {
		return nil, errors.ErrInvalidParam.WithMessage("question count must be at least 1")
	}

	candidateK := quizCandidateFloor
	if 2*n > candidateK {
		candidateK = 2 * n
	}

	hits, err := q.retriever.Retrieve(ctx, topic, &RetrieveOptions{
		K:      candidateK,
		Mode:   ModeMMR,
		Filter: filter,
	})
	if err != nil {
		return nil, err
	}

	var usable []string
	for _, hit := range hits {
		if hit.Content != "" {
			usable = append(usable, hit.Content)
		}
	}
	if len(usable) < n {
		return nil, errors.ErrInsufficientContent.WithMessagef(
			"need %d chunks about %q, found %d", n, topic, len(usable))
	}

	rand.Shuffle(len(usable), func(i, j int) {
		usable[i], usable[j] = usable[j], usable[i]
	})
	chunks := usable[:n]

	first, err := q.generateQuestion(ctx, topic, chunks[0])
	if err != nil {
		return nil, err
	}

	state := &quizState{
		Topic:     topic,
		Filter:    filter,
		Chunks:    chunks,
		Questions: []string{first},
		Index:     1,
	}
	err = q.sessions.Update(ctx, quizKey(sessionID), func() error {
		return q.sessions.Put(ctx, quizKey(sessionID), state)
	})
	if err != nil {
		return nil, err
	}

	return &QuizQuestion{Question: first, Index: 1, Total: n}, nil
}

// Answer 评估当前问题的作答。最后一题作答后返回总结并清除测验状态。
func (q *Quiz) Answer(ctx context.Context, sessionID, answer string) (*QuizFeedback, error) {
	var result *QuizFeedback

	err := q.sessions.Update(ctx, quizKey(sessionID), func() error {
		var state quizState
		if err := q.sessions.Get(ctx, quizKey(sessionID), &state); err != nil {
			if errors.ErrSessionNotFound.Is(err) {
				return errors.ErrNoActiveSession
			}
			return err
		}

		current := state.Index - 1
		score, feedback, err := q.evaluateAnswer(ctx, state.Questions[current], state.Chunks[current], answer)
		if err != nil {
			// 状态未推进，当前问题可重新作答。
			return err
		}
		state.Scores = append(state.Scores, score)

		if state.Index >= len(state.Chunks) {
			var total float64
			for _, s := range state.Scores {
				total += s
			}
			avg := total / float64(len(state.Scores))

			if err := q.sessions.Delete(ctx, quizKey(sessionID)); err != nil {
				return err
			}
			result = &QuizFeedback{
				Feedback: feedback,
				Score:    score,
				Done:     true,
				Summary:  fmt.Sprintf("Quiz complete! Average score: %.1f/10", avg),
			}
			return nil
		}

		next, err := q.generateQuestion(ctx, state.Topic, state.Chunks[state.Index])
		if err != nil {
			return err
		}
		state.Questions = append(state.Questions, next)
		state.Index++
		if err := q.sessions.Put(ctx, quizKey(sessionID), &state); err != nil {
			return err
		}

		result = &QuizFeedback{
			Feedback:     feedback,
			Score:        score,
			NextQuestion: next,
			Index:        state.Index,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Abort 放弃进行中的测验。
func (q *Quiz) Abort(ctx context.Context, sessionID string) error {
	return q.sessions.Delete(ctx, quizKey(sessionID))
}

func (q *Quiz) generateQuestion(ctx context.Context, topic, chunk string) (string, error) {
	prompt := fmt.Sprintf("Topic: %s\n\nStudy notes:\n%s\n\nAsk one quiz question about these notes.", topic, chunk)
	question, err := q.chatProvider.Generate(ctx, prompt, questionSystemPrompt)
	if err != nil {
		return "", errors.ErrLLMUnavailable.WithCause(err)
	}
	return question, nil
}

// evaluateAnswer 让模型按严格 JSON 评分。模型调用失败向上返回错误；
// 模型有回复但输出不可解析时按 0 分处理并给出固定反馈。
func (q *Quiz) evaluateAnswer(ctx context.Context, question, chunk, answer string) (float64, string, error) {
	prompt := fmt.Sprintf(
		"Reference notes:\n%s\n\nQuestion: %s\n\nStudent answer: %s\n\nGrade the answer.",
		chunk, question, answer,
	)

	raw, err := q.chatProvider.Generate(ctx, prompt, evalSystemPrompt)
	if err != nil {
		return 0, "", errors.ErrLLMUnavailable.WithCause(err)
	}

	obj, err := textutil.ExtractJSONObject(raw)
	if err != nil {
		logger.Warnw("evaluation output missing JSON", "output", textutil.TruncateString(raw, 200))
		return 0, evalFallbackFeedback, nil
	}

	var eval struct {
		Score    float64 `json:"score"`
		Feedback string  `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(obj), &eval); err != nil {
		logger.Warnw("evaluation output is not valid JSON", "error", err.Error())
		return 0, evalFallbackFeedback, nil
	}

	if eval.Score < 0 {
		eval.Score = 0
	}
	if eval.Score > 10 {
		eval.Score = 10
	}
	return eval.Score, eval.Feedback, nil
}
