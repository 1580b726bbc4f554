package errors

// Service codes (AA)
const (
	// ServiceCommon is for common/base errors shared by all components.
	ServiceCommon = 0

	// ServiceSource is for the workspace-notes source client.
	ServiceSource = 20

	// ServiceIndex is for chunking, embedding, and index writing.
	ServiceIndex = 21

	// ServiceRetrieval is for retrieval and chat.
	ServiceRetrieval = 22

	// ServiceQuiz is for the quiz orchestrator and question generation.
	ServiceQuiz = 23

	// ServiceSession is for the session store.
	ServiceSession = 24
)

// Category codes (BB)
const (
	// CategorySuccess indicates successful operation.
	CategorySuccess = 0

	// CategoryRequest indicates request/validation errors.
	CategoryRequest = 1

	// CategoryResource indicates resource not found errors.
	CategoryResource = 4

	// CategoryConflict indicates resource conflict errors.
	CategoryConflict = 5

	// CategoryInternal indicates internal server errors.
	CategoryInternal = 7

	// CategoryNetwork indicates network/upstream errors.
	CategoryNetwork = 10

	// CategoryTimeout indicates timeout errors.
	CategoryTimeout = 11

	// CategoryConfig indicates configuration errors.
	CategoryConfig = 12
)

// MakeCode creates an error code from service, category, and sequence.
// Format: AABBCCC where AA=service, BB=category, CCC=sequence
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode parses an error code into service, category, and sequence.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code % 100000) / 1000
	sequence = code % 1000
	return
}

// GetCategory returns the category code from an error code.
func GetCategory(code int) int {
	return (code % 100000) / 1000
}

// IsClientError checks if the error code indicates a client error (4xx).
func IsClientError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryRequest && category <= CategoryConflict
}

// IsServerError checks if the error code indicates a server error (5xx).
func IsServerError(code int) bool {
	category := GetCategory(code)
	return category >= CategoryInternal && category <= CategoryConfig
}
