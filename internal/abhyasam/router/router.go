// Package router wires the study service routes onto a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/abhyasam/internal/abhyasam/handler"
	"github.com/kart-io/abhyasam/internal/abhyasam/middleware"
)

// Register installs middleware and routes.
func Register(engine *gin.Engine, h *handler.Handler) {
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.AccessLog(),
		middleware.CORS(),
	)

	engine.GET("/healthz", h.Healthz)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/sync", h.Sync)
		v1.GET("/pages", h.Pages)
		v1.POST("/chat", h.Chat)
		v1.GET("/stats", h.Stats)

		quiz := v1.Group("/quiz")
		{
			quiz.POST("/start", h.QuizStart)
			quiz.POST("/answer", h.QuizAnswer)
			quiz.POST("/generate", h.QuizGenerate)
			quiz.GET("/questions", h.QuizQuestions)
		}
	}

	logger.Info("HTTP routes registered")
}
