package vecsearch

import (
	"context"
	"fmt"
	"time"
)

// SearchService runs requests against one index.
type SearchService struct {
	index string
	svc   searchUseCase
	poll  Policy
	obs   *observer
}

// Execute performs exactly one round trip.
func (s *SearchService) Execute(
	ctx context.Context, req SearchRequest, opts SearchOptions,
) (_ *ResultSet, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.execute", start, err, "index", s.index, "kind", req.Kind()) }()

	set, err := s.svc.Execute(ctx, s.index, req, opts)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return set, nil
}

// WaitUntil re-issues req with the client's default policy until accept
// holds. See WaitUntilWithPolicy.
func (s *SearchService) WaitUntil(
	ctx context.Context, req SearchRequest, opts SearchOptions, accept Predicate,
) (*ResultSet, error) {
	return s.WaitUntilWithPolicy(ctx, req, opts, s.poll, accept)
}

// WaitUntilWithPolicy re-issues req unchanged until accept holds. Transient
// backend errors and a missing index are retried; bad input aborts at once.
// When the policy runs out the error is a *PollError matching ErrTimeout.
func (s *SearchService) WaitUntilWithPolicy(
	ctx context.Context, req SearchRequest, opts SearchOptions, policy Policy, accept Predicate,
) (_ *ResultSet, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search.wait", start, err, "index", s.index, "kind", req.Kind()) }()

	set, err := s.svc.Poll(ctx, s.index, req, opts, policy, accept)
	if err != nil {
		return nil, fmt.Errorf("wait: %w", err)
	}
	return set, nil
}

// WaitForCount waits until req returns exactly n rows.
func (s *SearchService) WaitForCount(
	ctx context.Context, req SearchRequest, opts SearchOptions, n int,
) (*ResultSet, error) {
	return s.WaitUntil(ctx, req, opts, RowCountEquals(n))
}
