package fts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kailas-cloud/vecsearch/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

const defaultTimeout = 30 * time.Second

// Config holds connection parameters for a full-text search REST endpoint.
type Config struct {
	URL        string
	Username   string
	Password   string
	HTTPClient *http.Client
}

// Store implements db.Store over the FTS REST API.
type Store struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewStore creates a REST store. URL must be absolute, e.g. http://localhost:8094.
func NewStore(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q", cfg.URL)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Store{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: hc,
	}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.call(ctx, db.OpPing, http.MethodGet, "/api/ping", nil, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases idle connections.
func (s *Store) Close() {
	s.httpClient.CloseIdleConnections()
}

// WaitForReady polls Ping until the service responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for search service: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// call performs one JSON round trip. in and out may be nil.
func (s *Store) call(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &db.Error{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &db.Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if isIndexNotFound(resp.StatusCode, respBody) {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: op, Err: &db.StatusError{Status: resp.StatusCode, Body: errorMessage(respBody)}}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &db.Error{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// isIndexNotFound recognises both the 404 and the 400 "index not found" replies.
func isIndexNotFound(status int, body []byte) bool {
	if status == http.StatusNotFound {
		return true
	}
	return status == http.StatusBadRequest &&
		strings.Contains(strings.ToLower(string(body)), "index not found")
}

type errorReply struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func errorMessage(body []byte) string {
	var r errorReply
	if err := json.Unmarshal(body, &r); err == nil && r.Error != "" {
		return r.Error
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	return msg
}

// statusOK checks the {"status":"ok"} envelope.
func statusOK(op, status string) error {
	if status == "" || strings.EqualFold(status, "ok") {
		return nil
	}
	return &db.Error{Op: op, Err: errors.New("service reported status " + status)}
}
