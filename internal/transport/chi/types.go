package chi

import "encoding/json"

// ErrorCode is a machine-readable error category.
type ErrorCode string

// Error codes returned by the gateway.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeIndexNotFound          ErrorCode = "index_not_found"
	ErrorCodeTimeout                ErrorCode = "timeout"
	ErrorCodeServiceError           ErrorCode = "service_error"
	ErrorCodeNotSupported           ErrorCode = "not_supported"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// KNNProbe is one vector probe. Exactly one of Vector and Text is set; Text
// is embedded by the configured provider.
type KNNProbe struct {
	Field  string          `json:"field"`
	Vector json.RawMessage `json:"vector,omitempty"`
	Text   string          `json:"text,omitempty"`
	K      int             `json:"k,omitempty"`
	Boost  float64         `json:"boost,omitempty"`
}

// HighlightRequest asks for match fragments.
type HighlightRequest struct {
	Style  string   `json:"style,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// Primary clause names for QueryRequest.Primary.
const (
	PrimaryQuery = "query"
	PrimaryKNN   = "knn"
)

// QueryRequest is the body of POST /v1/indexes/{name}/query. Query holds a
// bleve query in its JSON form.
type QueryRequest struct {
	Query            json.RawMessage   `json:"query,omitempty"`
	KNN              []KNNProbe        `json:"knn,omitempty"`
	KNNOperator      string            `json:"knn_operator,omitempty"`
	Primary          string            `json:"primary,omitempty"`
	Limit            int               `json:"limit,omitempty"`
	Skip             int               `json:"skip,omitempty"`
	Fields           []string          `json:"fields,omitempty"`
	Explain          bool              `json:"explain,omitempty"`
	IncludeLocations bool              `json:"include_locations,omitempty"`
	Highlight        *HighlightRequest `json:"highlight,omitempty"`
	QueryTimeoutMS   int               `json:"query_timeout_ms,omitempty"`
}

// WaitRequest is the body of POST /v1/indexes/{name}/wait: a query plus
// the acceptance condition and polling bounds.
type WaitRequest struct {
	QueryRequest
	ExpectRows  *int `json:"expect_rows,omitempty"`
	MinRows     *int `json:"min_rows,omitempty"`
	TimeoutMS   int  `json:"timeout_ms,omitempty"`
	IntervalMS  int  `json:"interval_ms,omitempty"`
	MaxAttempts int  `json:"max_attempts,omitempty"`
}

// LocationResponse is one matched term occurrence.
type LocationResponse struct {
	Field          string   `json:"field"`
	Term           string   `json:"term"`
	Position       uint64   `json:"pos"`
	Start          uint64   `json:"start"`
	End            uint64   `json:"end"`
	ArrayPositions []uint64 `json:"array_positions,omitempty"`
}

// RowResponse is one ranked hit.
type RowResponse struct {
	Index       string              `json:"index"`
	ID          string              `json:"id"`
	Score       float64             `json:"score"`
	Locations   []LocationResponse  `json:"locations,omitempty"`
	Fragments   map[string][]string `json:"fragments,omitempty"`
	Fields      map[string]any      `json:"fields,omitempty"`
	Explanation json.RawMessage     `json:"explanation,omitempty"`
}

// StatusResponse reports partition outcomes.
type StatusResponse struct {
	Total      int               `json:"total"`
	Successful int               `json:"successful"`
	Failed     int               `json:"failed"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// MetaResponse is per-response metadata.
type MetaResponse struct {
	TookMS          float64        `json:"took_ms"`
	TotalHits       uint64         `json:"total_hits"`
	MaxScore        float64        `json:"max_score"`
	Status          StatusResponse `json:"status"`
	ClientContextID string         `json:"client_context_id,omitempty"`
}

// QueryResponse is the reply of the query and wait endpoints.
type QueryResponse struct {
	Rows []RowResponse `json:"rows"`
	Meta MetaResponse  `json:"meta"`
}

// IndexResponse is an index definition.
type IndexResponse struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	SourceType string          `json:"sourceType,omitempty"`
	SourceName string          `json:"sourceName,omitempty"`
	UUID       string          `json:"uuid,omitempty"`
	Params     json.RawMessage `json:"params,omitempty"`
}

// IndexListResponse is the reply of GET /v1/indexes.
type IndexListResponse struct {
	Items []IndexResponse `json:"items"`
}

// DocumentRequest is one source document.
type DocumentRequest struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// WriteDocumentsRequest is the body of POST /v1/sources/{source}/documents.
type WriteDocumentsRequest struct {
	Documents []DocumentRequest `json:"documents"`
}

// WriteDocumentsResponse acknowledges accepted documents.
type WriteDocumentsResponse struct {
	Accepted int `json:"accepted"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Version string            `json:"version"`
}
