// Package handler provides the HTTP handlers for the study service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/abhyasam/internal/abhyasam/biz"
	"github.com/kart-io/abhyasam/internal/abhyasam/middleware"
	"github.com/kart-io/abhyasam/pkg/utils/errors"
	"github.com/kart-io/abhyasam/pkg/utils/response"
)

// Timeouts per endpoint class. Sync walks the whole corpus; chat and quiz
// each make one or two model calls.
const (
	syncTimeout = 10 * time.Minute
	chatTimeout = 60 * time.Second
	mcqTimeout  = 5 * time.Minute
)

// Handler handles study service HTTP requests.
type Handler struct {
	service biz.Service
}

// New creates a Handler.
func New(service biz.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, response.Success(data).
		WithRequestID(middleware.GetRequestID(c)).
		WithTimestamp(time.Now().UnixMilli()))
}

func (h *Handler) fail(c *gin.Context, err error) {
	e := errors.FromError(err)
	c.JSON(e.HTTPStatus(), response.Err(e).
		WithRequestID(middleware.GetRequestID(c)).
		WithTimestamp(time.Now().UnixMilli()))
}

func (h *Handler) bindError(c *gin.Context, err error) {
	h.fail(c, errors.ErrInvalidParam.WithCause(err))
}

// SyncRequest triggers a corpus sync.
type SyncRequest struct {
	Force bool `json:"force"`
}

// Sync synchronizes source pages into the vector index.
func (h *Handler) Sync(c *gin.Context) {
	var req SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.bindError(c, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), syncTimeout)
	defer cancel()

	result, err := h.service.Sync(ctx, req.Force)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, result)
}

// Pages lists synced pages for dropdowns.
func (h *Handler) Pages(c *gin.Context) {
	pages, err := h.service.Pages(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, pages)
}

// ChatRequest asks a question against the notes.
type ChatRequest struct {
	SessionID string            `json:"session_id" binding:"required"`
	Question  string            `json:"question" binding:"required"`
	K         int               `json:"k"`
	Mode      string            `json:"mode"`
	Filter    map[string]string `json:"filter"`
}

// Chat answers a question using retrieved notes and session history.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	result, err := h.service.Ask(ctx, req.SessionID, req.Question, &biz.RetrieveOptions{
		K:      req.K,
		Mode:   biz.RetrieveMode(req.Mode),
		Filter: req.Filter,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, result)
}

// QuizStartRequest starts a quiz session. Filter optionally scopes the
// question material, e.g. {"page_id": "..."} for a single page.
type QuizStartRequest struct {
	SessionID string            `json:"session_id" binding:"required"`
	Topic     string            `json:"topic" binding:"required"`
	Count     int               `json:"count" binding:"required"`
	Filter    map[string]string `json:"filter"`
}

// QuizStart starts an interactive quiz.
func (h *Handler) QuizStart(c *gin.Context) {
	var req QuizStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	question, err := h.service.StartQuiz(ctx, req.SessionID, req.Topic, req.Count, req.Filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, question)
}

// QuizAnswerRequest submits an answer to the current quiz question.
type QuizAnswerRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Answer    string `json:"answer" binding:"required"`
}

// QuizAnswer grades an answer and advances the quiz.
func (h *Handler) QuizAnswer(c *gin.Context) {
	var req QuizAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), chatTimeout)
	defer cancel()

	feedback, err := h.service.AnswerQuiz(ctx, req.SessionID, req.Answer)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, feedback)
}

// QuizGenerateRequest generates a batch MCQ artifact.
type QuizGenerateRequest struct {
	Topic    string            `json:"topic" binding:"required"`
	Batches  int               `json:"batches" binding:"required"`
	PerBatch int               `json:"per_batch" binding:"required"`
	Filter   map[string]string `json:"filter"`
}

// QuizGenerate generates multiple-choice questions in batches.
func (h *Handler) QuizGenerate(c *gin.Context) {
	var req QuizGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), mcqTimeout)
	defer cancel()

	count, err := h.service.GenerateMCQ(ctx, req.Topic, req.Batches, req.PerBatch, req.Filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, gin.H{"count": count})
}

// QuizQuestions returns the persisted MCQ artifact.
func (h *Handler) QuizQuestions(c *gin.Context) {
	questions, err := h.service.Questions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, questions)
}

// Stats returns index statistics.
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, stats)
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
