package vecsearch

import (
	"github.com/kailas-cloud/vecsearch/internal/domain"
	searchuc "github.com/kailas-cloud/vecsearch/internal/usecase/search"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument        = domain.ErrInvalidArgument
	ErrClauseConflict         = domain.ErrClauseConflict
	ErrClauseType             = domain.ErrClauseType
	ErrIndexNotFound          = domain.ErrIndexNotFound
	ErrService                = domain.ErrService
	ErrTimeout                = domain.ErrTimeout
	ErrNotSupported           = domain.ErrNotSupported
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)

// ServiceError carries the status the backend reported. It matches ErrService.
type ServiceError = domain.ServiceError

// PollError is returned by WaitUntil when the deadline or attempt budget runs
// out. It matches ErrTimeout and, when set, the last swallowed error.
type PollError = searchuc.PollError
