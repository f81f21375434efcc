package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/makan/internal/domain"
	searchuc "github.com/kailas-cloud/makan/internal/usecase/search"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeNotFound               ErrorCode = "not_found"
	CodeMethodNotAllowed       ErrorCode = "method_not_allowed"
	CodePlaceNotFound          ErrorCode = "place_not_found"
	CodeReindexInProgress      ErrorCode = "reindex_in_progress"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeTimeout                ErrorCode = "timeout"
	CodeUnavailable            ErrorCode = "unavailable"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// domainErrorHandlers is checked in order; the first match writes the response.
var domainErrorHandlers = []errorHandler{
	sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodePlaceNotFound),
	sentinelHandler(domain.ErrEmptyQuery, http.StatusBadRequest, CodeValidationFailed),
	sentinelHandler(searchuc.ErrClosed, http.StatusServiceUnavailable, CodeUnavailable),
	sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, CodeTimeout),
	sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
	sentinelHandler(domain.ErrWorker, http.StatusBadGateway, CodeEmbeddingProviderError),
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrEmptyQuery,
		searchuc.ErrClosed,
		domain.ErrGenerateTimeout,
		domain.ErrSearchTimeout,
		domain.ErrTimeout,
		domain.ErrEmbeddingProviderError,
		domain.ErrWorker,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
