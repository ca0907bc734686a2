package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	domdoc "github.com/kailas-cloud/vecsearch/internal/domain/document"
	domindex "github.com/kailas-cloud/vecsearch/internal/domain/index"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
	logpkg "github.com/kailas-cloud/vecsearch/internal/logger"
	healthuc "github.com/kailas-cloud/vecsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
	"github.com/kailas-cloud/vecsearch/internal/version"
)

const maxBodyBytes = 8 << 20

// IndexService manages index definitions.
type IndexService interface {
	Upsert(ctx context.Context, def domindex.Definition) error
	Get(ctx context.Context, name string) (domindex.Definition, error)
	List(ctx context.Context) ([]domindex.Definition, error)
	Drop(ctx context.Context, name string) error
}

// SearchService executes and polls search requests.
type SearchService interface {
	Execute(ctx context.Context, index string, req request.Request, opts request.Options) (*result.Set, error)
	Poll(
		ctx context.Context, index string, req request.Request, opts request.Options,
		policy searchuc.Policy, accept searchuc.Predicate,
	) (*result.Set, error)
}

// DocumentService writes source documents.
type DocumentService interface {
	Write(ctx context.Context, source string, docs []domdoc.Document) error
}

// Prober embeds query text into vector probes.
type Prober interface {
	VectorQuery(ctx context.Context, field, text string) (vector.Query, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the search gateway API.
type Server struct {
	indexes       IndexService
	search        SearchService
	documents     DocumentService
	prober        Prober
	health        HealthChecker
	poll          searchuc.Policy
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// Deps groups the gateway's collaborators. Documents and Prober are
// optional: without them the matching features answer 501.
type Deps struct {
	Indexes   IndexService
	Search    SearchService
	Documents DocumentService
	Prober    Prober
	Health    HealthChecker
	Poll      searchuc.Policy
	Logger    *zap.Logger
}

// NewServer creates the gateway API server.
func NewServer(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	poll := d.Poll
	if poll == (searchuc.Policy{}) {
		poll = searchuc.DefaultPolicy()
	}
	s := &Server{
		indexes:   d.Indexes,
		search:    d.Search,
		documents: d.Documents,
		prober:    d.Prober,
		health:    d.Health,
		poll:      poll,
		logger:    logger,
	}
	// Timeout goes first: a poll timeout also unwraps to the last swallowed error.
	s.errorHandlers = []errorHandler{
		timeoutHandler,
		sentinelHandler(context.DeadlineExceeded, http.StatusGatewayTimeout, ErrorCodeTimeout),
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, ErrorCodeIndexNotFound),
		sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, ErrorCodeNotSupported),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, ErrorCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrService, http.StatusBadGateway, ErrorCodeServiceError),
	}
	return s
}

// Routes registers the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/v1/indexes", s.ListIndexes)
	r.Put("/v1/indexes/{name}", s.UpsertIndex)
	r.Get("/v1/indexes/{name}", s.GetIndex)
	r.Delete("/v1/indexes/{name}", s.DropIndex)
	r.Post("/v1/indexes/{name}/query", s.Query)
	r.Post("/v1/indexes/{name}/wait", s.Wait)
	r.Post("/v1/sources/{source}/documents", s.WriteDocuments)
}

// UpsertIndex handles PUT /v1/indexes/{name}.
func (s *Server) UpsertIndex(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathParam(w, r, "name")
	if !ok {
		return
	}
	var body IndexResponse
	if !s.decode(w, r, &body) {
		return
	}
	if body.Name != "" && body.Name != name {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("body name %q does not match path name %q", body.Name, name))
		return
	}

	def := domindex.Definition{
		Name:       name,
		Type:       body.Type,
		SourceType: body.SourceType,
		SourceName: body.SourceName,
		UUID:       body.UUID,
		Params:     body.Params,
	}
	if err := s.indexes.Upsert(r.Context(), def); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	stored, err := s.indexes.Get(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexToResponse(stored))
}

// GetIndex handles GET /v1/indexes/{name}.
func (s *Server) GetIndex(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathParam(w, r, "name")
	if !ok {
		return
	}
	def, err := s.indexes.Get(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, indexToResponse(def))
}

// ListIndexes handles GET /v1/indexes. The optional type query parameter
// filters by index type.
func (s *Server) ListIndexes(w http.ResponseWriter, r *http.Request) {
	var typ *string
	if err := runtime.BindQueryParameter("form", true, false, "type", r.URL.Query(), &typ); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "invalid type parameter: "+err.Error())
		return
	}

	defs, err := s.indexes.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]IndexResponse, 0, len(defs))
	for _, d := range defs {
		if typ != nil && d.Type != *typ {
			continue
		}
		items = append(items, indexToResponse(d))
	}
	writeJSON(w, http.StatusOK, IndexListResponse{Items: items})
}

// DropIndex handles DELETE /v1/indexes/{name}.
func (s *Server) DropIndex(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathParam(w, r, "name")
	if !ok {
		return
	}
	if err := s.indexes.Drop(r.Context(), name); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Query handles POST /v1/indexes/{name}/query: one round trip, no retries.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathParam(w, r, "name")
	if !ok {
		return
	}
	var body QueryRequest
	if !s.decode(w, r, &body) {
		return
	}
	req, opts, err := s.buildRequest(r.Context(), &body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	set, err := s.search.Execute(r.Context(), name, req, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setToResponse(set))
}

// Wait handles POST /v1/indexes/{name}/wait: re-issues the query until the
// row condition holds or the deadline passes.
func (s *Server) Wait(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathParam(w, r, "name")
	if !ok {
		return
	}
	var body WaitRequest
	if !s.decode(w, r, &body) {
		return
	}
	accept, err := predicateFrom(&body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	req, opts, err := s.buildRequest(r.Context(), &body.QueryRequest)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	policy := s.poll
	if body.TimeoutMS > 0 {
		policy.Timeout = time.Duration(body.TimeoutMS) * time.Millisecond
	}
	if body.IntervalMS > 0 {
		policy.Interval = time.Duration(body.IntervalMS) * time.Millisecond
	}
	if body.MaxAttempts > 0 {
		policy.MaxAttempts = body.MaxAttempts
	}

	set, err := s.search.Poll(r.Context(), name, req, opts, policy, accept)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, setToResponse(set))
}

// WriteDocuments handles POST /v1/sources/{source}/documents.
func (s *Server) WriteDocuments(w http.ResponseWriter, r *http.Request) {
	source, ok := s.pathParam(w, r, "source")
	if !ok {
		return
	}
	if s.documents == nil {
		writeError(w, http.StatusNotImplemented, ErrorCodeNotSupported, "backend does not accept document writes")
		return
	}
	var body WriteDocumentsRequest
	if !s.decode(w, r, &body) {
		return
	}
	docs := make([]domdoc.Document, len(body.Documents))
	for i, d := range body.Documents {
		doc, err := domdoc.New(d.ID, d.Fields)
		if err != nil {
			s.handleDomainError(w, r, fmt.Errorf("document %d: %w", i, err))
			return
		}
		docs[i] = doc
	}
	if err := s.documents.Write(r.Context(), source, docs); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, WriteDocumentsResponse{Accepted: len(docs)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Version: version.Version,
	})
}

// pathParam binds a required simple-style path parameter.
func (s *Server) pathParam(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", param, gochi.URLParam(r, param), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("invalid format for parameter %s: %s", param, err))
		return "", false
	}
	return value, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
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

// safeDomainMessage returns a client-facing message without exposing backend
// internals. Input errors are the caller's own and are returned verbatim.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidArgument) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrTimeout,
		context.DeadlineExceeded,
		domain.ErrIndexNotFound,
		domain.ErrNotSupported,
		domain.ErrEmbeddingProviderError,
		domain.ErrService,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

// timeoutHandler reports poll timeouts with attempt details.
func timeoutHandler(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, domain.ErrTimeout) {
		return false
	}
	resp := ErrorResponse{Code: ErrorCodeTimeout, Message: domain.ErrTimeout.Error()}
	var pe *searchuc.PollError
	if errors.As(err, &pe) {
		resp.Details = map[string]any{
			"attempts":   pe.Attempts,
			"last_rows":  pe.LastRows,
			"elapsed_ms": pe.Elapsed.Milliseconds(),
		}
	}
	writeJSON(w, http.StatusGatewayTimeout, resp)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		logger.Debug("client went away", zap.Error(err))
		return
	}
	for _, h := range s.errorHandlers {
		if h(w, err) {
			logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
