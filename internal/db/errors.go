package db

import (
	"errors"
	"strconv"
)

// Sentinel errors for backend operations.
var (
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrNotSupported  = errors.New("db: not supported")
)

// Op constants name the backend command for error context.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpList        = "FT._LIST"
	OpSearch      = "FT.SEARCH"
	OpHSet        = "HSET"
	OpHGetAll     = "HGETALL"
	OpDel         = "DEL"

	OpPutIndex    = "PUT /api/index"
	OpGetIndex    = "GET /api/index"
	OpDeleteIndex = "DELETE /api/index"
	OpQuery       = "POST /api/index/query"
	OpPing        = "GET /api/ping"

	OpBleveOpen   = "bleve.Open"
	OpBleveIndex  = "bleve.Index"
	OpBleveSearch = "bleve.Search"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// StatusError is returned by HTTP backends for non-2xx responses.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return "unexpected status " + strconv.Itoa(e.Status)
	}
	return "unexpected status " + strconv.Itoa(e.Status) + ": " + e.Body
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
