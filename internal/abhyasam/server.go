// Package abhyasam assembles the study service: source sync, retrieval-based
// chat, and quiz generation over a workspace-notes corpus.
package abhyasam

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/abhyasam/internal/abhyasam/biz"
	"github.com/kart-io/abhyasam/internal/abhyasam/handler"
	"github.com/kart-io/abhyasam/internal/abhyasam/router"
	"github.com/kart-io/abhyasam/internal/abhyasam/session"
	"github.com/kart-io/abhyasam/internal/abhyasam/store"
	"github.com/kart-io/abhyasam/internal/notion"
	"github.com/kart-io/abhyasam/internal/pkg/snapshot"
	"github.com/kart-io/abhyasam/pkg/app"
	"github.com/kart-io/abhyasam/pkg/component/milvus"
	"github.com/kart-io/abhyasam/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/abhyasam/pkg/llm/huggingface"
	_ "github.com/kart-io/abhyasam/pkg/llm/ollama"
	_ "github.com/kart-io/abhyasam/pkg/llm/openai"

	httpopts "github.com/kart-io/abhyasam/pkg/options/http"
	llmopts "github.com/kart-io/abhyasam/pkg/options/llm"
	logopts "github.com/kart-io/abhyasam/pkg/options/logger"
	milvusopts "github.com/kart-io/abhyasam/pkg/options/milvus"
	notionopts "github.com/kart-io/abhyasam/pkg/options/notion"
	redisopts "github.com/kart-io/abhyasam/pkg/options/redis"
	revisionopts "github.com/kart-io/abhyasam/pkg/options/revision"
)

// Name is the name of the application.
const Name = "abhyasam"

// sessionTTL bounds how long idle chat and quiz state survives in Redis.
const sessionTTL = 24 * time.Hour

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	RedisOptions     *redisopts.Options
	NotionOptions    *notionopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	RevisionOptions  *revisionopts.Options
}

// Server represents the study service server.
type Server struct {
	httpServer      *http.Server
	shutdownTimeout time.Duration
	cleanup         []func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting study service...")

	var cleanup []func()

	// 2. 初始化 Milvus 客户端与向量存储
	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	cleanup = append(cleanup, func() { _ = milvusClient.Close(context.Background()) })

	vectorStore := store.NewMilvusStore(
		milvusClient,
		cfg.RevisionOptions.Collection,
		cfg.RevisionOptions.Namespace,
		cfg.RevisionOptions.Dimension,
	)
	if err := vectorStore.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	logger.Infow("Vector store initialized",
		"collection", cfg.RevisionOptions.Collection,
		"namespace", cfg.RevisionOptions.Namespace,
	)

	// 3. 初始化会话存储。Redis 不可用时回退到内存实现。
	var sessions session.Store
	if cfg.RedisOptions.Enabled {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisOptions, sessionTTL)
		if err != nil {
			logger.Warnw("failed to connect to redis, falling back to in-memory sessions",
				"addr", cfg.RedisOptions.Addr(), "error", err.Error())
			sessions = session.NewMemoryStore()
		} else {
			logger.Infow("Redis session store initialized", "addr", cfg.RedisOptions.Addr())
			sessions = redisStore
		}
	} else {
		sessions = session.NewMemoryStore()
		logger.Info("Using in-memory session store")
	}
	cleanup = append(cleanup, func() { _ = sessions.Close() })

	// 4. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 5. 初始化源客户端与快照
	sourceClient := notion.NewClient(cfg.NotionOptions)
	snapshots := snapshot.NewStore(cfg.RevisionOptions.SnapshotPath)

	// 6. 初始化 Biz 层
	syncer := biz.NewSyncer(sourceClient, snapshots, vectorStore, embedProvider, &biz.SyncerConfig{
		ChunkSize:    cfg.RevisionOptions.ChunkSize,
		ChunkOverlap: cfg.RevisionOptions.ChunkOverlap,
		Source:       "notion",
	})
	retriever := biz.NewRetriever(vectorStore, embedProvider, &biz.RetrieverConfig{
		TopK:      cfg.RevisionOptions.TopK,
		FetchK:    cfg.RevisionOptions.FetchK,
		MMRLambda: cfg.RevisionOptions.MMRLambda,
		Source:    "notion",
	})
	chat := biz.NewChat(retriever, chatProvider, sessions, &biz.ChatConfig{
		HistoryLimit: cfg.RevisionOptions.HistoryLimit,
	})
	quiz := biz.NewQuiz(retriever, chatProvider, sessions)
	mcq := biz.NewMCQGenerator(retriever, chatProvider, cfg.RevisionOptions.DataDir)

	service := biz.NewStudyService(syncer, chat, quiz, mcq, snapshots, vectorStore, embedProvider, chatProvider)
	logger.Info("Service layer initialized")

	// 7. 初始化 HTTP 服务器
	gin.SetMode(cfg.HTTPOptions.Mode)
	engine := gin.New()
	router.Register(engine, handler.New(service))

	httpServer := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Infow("Study service is ready", "addr", cfg.HTTPOptions.Addr)
	return &Server{
		httpServer:      httpServer,
		shutdownTimeout: cfg.HTTPOptions.ShutdownTimeout,
		cleanup:         cleanup,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		for i := len(s.cleanup) - 1; i >= 0; i-- {
			s.cleanup[i]()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
