package biz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kart-io/logger"

	"github.com/kart-io/abhyasam/internal/pkg/textutil"
	"github.com/kart-io/abhyasam/pkg/llm"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
	"github.com/kart-io/abhyasam/pkg/utils/json"
)

const (
	// mcqCap 单次生成任务累计的题目上限。
	mcqCap = 30

	questionsFileName = "questions.json"

	mcqSystemPrompt = "You write multiple-choice questions from study notes. " +
		"Reply with a strict JSON array only, no prose. Each element: " +
		`{"question": "...", "options": {"A": "...", "B": "...", "C": "...", "D": "..."}, "answer": "A"}`
)

// MCQ 一道四选一选择题。
type MCQ struct {
	Question string            `json:"question"`
	Options  map[string]string `json:"options"`
	Answer   string            `json:"answer"`
}

// MCQGenerator 批量生成选择题并持久化为 JSON 工件。
type MCQGenerator struct {
	retriever    *Retriever
	chatProvider llm.ChatProvider
	dataDir      string
}

// NewMCQGenerator 创建选择题生成器。
func NewMCQGenerator(retriever *Retriever, chatProvider llm.ChatProvider, dataDir string) *MCQGenerator {
	return &MCQGenerator{
		retriever:    retriever,
		chatProvider: chatProvider,
		dataDir:      dataDir,
	}
}

// Generate 分批生成选择题：每批独立检索上下文并调用模型，
// 校验后累积，达到上限即停止，最终原子写入工件文件。返回题目总数。
func (g *MCQGenerator) Generate(ctx context.Context, topic string, batches, perBatch int, filter map[string]string) (int, error) {
	if batches < 1 || perBatch < 1 {
		return 0, errors.ErrInvalidParam.WithMessage("batches and per-batch count must be at least 1")
	}

	var questions []MCQ
	for b := 0; b < batches && len(questions) < mcqCap; b++ {
		hits, err := g.retriever.Retrieve(ctx, topic, &RetrieveOptions{Mode: ModeMMR, Filter: filter})
		if err != nil {
			return 0, err
		}

		var contextBlock string
		for _, hit := range hits {
			contextBlock += hit.Content + "\n\n"
		}

		prompt := fmt.Sprintf(
			"Study notes:\n%s\nWrite %d multiple-choice questions about %q based on these notes.",
			contextBlock, perBatch, topic,
		)
		raw, err := g.chatProvider.Generate(ctx, prompt, mcqSystemPrompt)
		if err != nil {
			return 0, errors.ErrLLMUnavailable.WithCause(err)
		}

		batch, err := parseMCQBatch(raw)
		if err != nil {
			return 0, err
		}

		for _, mcq := range batch {
			if len(questions) >= mcqCap {
				break
			}
			questions = append(questions, mcq)
		}
		logger.Infow("generated question batch", "batch", b+1, "accepted", len(batch), "total", len(questions))
	}

	if len(questions) == 0 {
		return 0, errors.ErrMalformedModelOutput.WithMessage("model produced no valid questions")
	}

	if err := g.save(questions); err != nil {
		return 0, errors.ErrInternal.WithCause(err)
	}
	return len(questions), nil
}

// Questions 读取已持久化的题目工件。文件不存在视为空。
func (g *MCQGenerator) Questions() ([]MCQ, error) {
	data, err := os.ReadFile(filepath.Join(g.dataDir, questionsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return []MCQ{}, nil
		}
		return nil, errors.ErrInternal.WithCause(err)
	}

	var questions []MCQ
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return questions, nil
}

// parseMCQBatch 解析一批模型输出。数组整体不可解析按 MalformedModelOutput
// 处理；个别不合规的题目跳过。
func parseMCQBatch(raw string) ([]MCQ, error) {
	arr, err := textutil.ExtractJSONArray(raw)
	if err != nil {
		return nil, errors.ErrMalformedModelOutput.WithCause(err)
	}

	var batch []MCQ
	if err := json.Unmarshal([]byte(arr), &batch); err != nil {
		return nil, errors.ErrMalformedModelOutput.WithCause(err)
	}

	valid := batch[:0]
	for _, mcq := range batch {
		if validMCQ(&mcq) {
			valid = append(valid, mcq)
		}
	}
	return valid, nil
}

func validMCQ(m *MCQ) bool {
	if m.Question == "" || len(m.Options) != 4 {
		return false
	}
	for _, key := range []string{"A", "B", "C", "D"} {
		if m.Options[key] == "" {
			return false
		}
	}
	return m.Options[m.Answer] != ""
}

func (g *MCQGenerator) save(questions []MCQ) error {
	if err := os.MkdirAll(g.dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode questions: %w", err)
	}

	tmp, err := os.CreateTemp(g.dataDir, ".questions-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write questions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close questions file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(g.dataDir, questionsFileName)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to replace questions file: %w", err)
	}
	return nil
}
