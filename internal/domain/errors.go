package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals malformed input rejected before any network call.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClauseConflict signals an attempt to augment a request with a clause of the kind it already has.
	ErrClauseConflict = fmt.Errorf("%w: clause conflict", ErrInvalidArgument)
	// ErrClauseType signals a value that is not a usable lexical or vector clause.
	ErrClauseType = fmt.Errorf("%w: unsupported clause type", ErrInvalidArgument)
	// ErrIndexNotFound signals that the named index does not exist on the service.
	ErrIndexNotFound = errors.New("index not found")
	// ErrService signals a transport failure or a server-side rejection.
	ErrService = errors.New("search service error")
	// ErrTimeout signals that a polling deadline elapsed before the acceptance predicate held.
	ErrTimeout = errors.New("timeout")
	// ErrNotSupported signals a clause or option the configured backend cannot execute.
	ErrNotSupported = errors.New("not supported by backend")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// ServiceError wraps ErrService with the HTTP-like status reported by the backend.
type ServiceError struct {
	Status int
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %v", ErrService.Error(), e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrService.Error(), e.Err)
}

// Unwrap exposes both ErrService and the underlying cause.
func (e *ServiceError) Unwrap() []error { return []error{ErrService, e.Err} }

// NewServiceError wraps a backend failure as a service error.
func NewServiceError(status int, err error) error {
	return &ServiceError{Status: status, Err: err}
}
