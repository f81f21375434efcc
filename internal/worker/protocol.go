package worker

import "github.com/kailas-cloud/makan/internal/domain"

// MessageType tags every message that crosses the worker boundary.
type MessageType string

// Client → worker.
const (
	TypeGenerateEmbeddings MessageType = "GENERATE_EMBEDDINGS"
	TypeSearchQuery        MessageType = "SEARCH_QUERY"
	TypeHealthCheck        MessageType = "HEALTH_CHECK"
)

// Worker → client.
const (
	TypeEmbeddingsReady     MessageType = "EMBEDDINGS_READY"
	TypeSearchResults       MessageType = "SEARCH_RESULTS"
	TypeError               MessageType = "ERROR"
	TypeHealthCheckResponse MessageType = "HEALTH_CHECK_RESPONSE"
)

// Request is a message posted to the worker.
type Request struct {
	Type      MessageType
	Documents []domain.SearchableDocument // GENERATE_EMBEDDINGS
	Query     string                      // SEARCH_QUERY
	TopK      int                         // SEARCH_QUERY
	RequestID string                      // SEARCH_QUERY, HEALTH_CHECK
}

// Response is a message emitted by the worker.
// Vectors never travel back: EMBEDDINGS_READY only carries the cached count.
type Response struct {
	Type      MessageType
	Count     int      // EMBEDDINGS_READY
	Results   []string // SEARCH_RESULTS, most similar first
	Error     string   // ERROR
	Ready     bool     // HEALTH_CHECK_RESPONSE: model loaded
	RequestID string
}

// GenerateEmbeddings builds a GENERATE_EMBEDDINGS request.
func GenerateEmbeddings(docs []domain.SearchableDocument) Request {
	return Request{Type: TypeGenerateEmbeddings, Documents: docs}
}

// SearchQuery builds a SEARCH_QUERY request.
func SearchQuery(requestID, query string, topK int) Request {
	return Request{Type: TypeSearchQuery, Query: query, TopK: topK, RequestID: requestID}
}

// HealthCheck builds a HEALTH_CHECK request.
func HealthCheck(requestID string) Request {
	return Request{Type: TypeHealthCheck, RequestID: requestID}
}
