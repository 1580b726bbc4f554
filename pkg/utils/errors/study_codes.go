package errors

import "net/http"

// Common errors shared by all components.
var (
	// ErrInvalidParam indicates a malformed or missing request parameter.
	ErrInvalidParam = New(
		MakeCode(ServiceCommon, CategoryRequest, 1),
		http.StatusBadRequest,
		"Invalid parameter",
		"参数无效",
	)

	// ErrInternal is the fallback for unclassified failures.
	ErrInternal = New(
		MakeCode(ServiceCommon, CategoryInternal, 1),
		http.StatusInternalServerError,
		"Internal server error",
		"服务器内部错误",
	)

	// ErrTimeout indicates the operation exceeded its deadline.
	ErrTimeout = New(
		MakeCode(ServiceCommon, CategoryTimeout, 1),
		http.StatusGatewayTimeout,
		"Request timeout",
		"请求超时",
	)

	// ErrInvalidConfiguration indicates a component was constructed or invoked
	// with parameters that violate its contract.
	ErrInvalidConfiguration = New(
		MakeCode(ServiceCommon, CategoryConfig, 1),
		http.StatusInternalServerError,
		"Invalid configuration",
		"配置无效",
	)
)

// Source client errors.
var (
	// ErrSourceUnavailable indicates the workspace-notes API could not be
	// reached or answered with a failure.
	ErrSourceUnavailable = New(
		MakeCode(ServiceSource, CategoryNetwork, 1),
		http.StatusBadGateway,
		"Document source unavailable",
		"文档源不可用",
	)
)

// Index and retrieval errors.
var (
	// ErrEmbeddingUnavailable indicates the embedding provider failed.
	ErrEmbeddingUnavailable = New(
		MakeCode(ServiceIndex, CategoryNetwork, 1),
		http.StatusBadGateway,
		"Embedding provider unavailable",
		"向量化服务不可用",
	)

	// ErrVectorStore indicates the vector store rejected an operation.
	ErrVectorStore = New(
		MakeCode(ServiceIndex, CategoryInternal, 1),
		http.StatusInternalServerError,
		"Vector store operation failed",
		"向量存储操作失败",
	)

	// ErrLLMUnavailable indicates the chat model failed or was unreachable.
	ErrLLMUnavailable = New(
		MakeCode(ServiceRetrieval, CategoryNetwork, 1),
		http.StatusBadGateway,
		"Language model unavailable",
		"大模型服务不可用",
	)
)

// Quiz errors.
var (
	// ErrInsufficientContent indicates the corpus cannot supply enough
	// distinct chunks for the requested question count.
	ErrInsufficientContent = New(
		MakeCode(ServiceQuiz, CategoryResource, 1),
		http.StatusUnprocessableEntity,
		"Not enough indexed content for the requested quiz",
		"索引内容不足以生成测验",
	)

	// ErrNoActiveSession indicates a quiz answer arrived for a session with
	// no quiz in progress.
	ErrNoActiveSession = New(
		MakeCode(ServiceQuiz, CategoryConflict, 1),
		http.StatusConflict,
		"No active quiz for this session",
		"该会话没有进行中的测验",
	)

	// ErrMalformedModelOutput indicates the model returned output that does
	// not match the requested structure.
	ErrMalformedModelOutput = New(
		MakeCode(ServiceQuiz, CategoryInternal, 1),
		http.StatusBadGateway,
		"Model returned malformed output",
		"模型输出格式错误",
	)
)

// Session store errors.
var (
	// ErrSessionNotFound indicates the session key does not exist.
	ErrSessionNotFound = New(
		MakeCode(ServiceSession, CategoryResource, 1),
		http.StatusNotFound,
		"Session not found",
		"会话不存在",
	)

	// ErrSessionStore indicates the backing store failed.
	ErrSessionStore = New(
		MakeCode(ServiceSession, CategoryInternal, 1),
		http.StatusInternalServerError,
		"Session store operation failed",
		"会话存储操作失败",
	)
)
