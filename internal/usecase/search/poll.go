package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/metrics"
)

// Poll defaults.
const (
	DefaultPollInterval = 100 * time.Millisecond
	DefaultPollTimeout  = 60 * time.Second
)

// Policy bounds a polling loop. Timeout 0 relies on the caller's context;
// MaxAttempts 0 means unbounded.
type Policy struct {
	Interval    time.Duration
	Timeout     time.Duration
	MaxAttempts int
}

// DefaultPolicy polls every 100ms for up to a minute.
func DefaultPolicy() Policy {
	return Policy{Interval: DefaultPollInterval, Timeout: DefaultPollTimeout}
}

func (p Policy) normalize() (Policy, error) {
	if p.Interval < 0 || p.Timeout < 0 || p.MaxAttempts < 0 {
		return Policy{}, fmt.Errorf("%w: poll interval, timeout and max attempts must be >= 0", domain.ErrInvalidArgument)
	}
	if p.Interval == 0 {
		p.Interval = DefaultPollInterval
	}
	return p, nil
}

// Predicate decides whether a result set is acceptable.
type Predicate func(*result.Set) bool

// RowCountEquals accepts sets with exactly n rows.
func RowCountEquals(n int) Predicate {
	return func(s *result.Set) bool { return s.Len() == n }
}

// RowCountAtLeast accepts sets with n or more rows.
func RowCountAtLeast(n int) Predicate {
	return func(s *result.Set) bool { return s.Len() >= n }
}

// PollError reports a polling loop that ran out of time or attempts.
// It unwraps to domain.ErrTimeout and to the last swallowed error.
type PollError struct {
	Index    string
	Attempts int
	// LastRows is the row count of the last successful attempt, -1 if none succeeded.
	LastRows int
	Elapsed  time.Duration
	LastErr  error
}

func (e *PollError) Error() string {
	msg := fmt.Sprintf("%s: polling %s gave up after %d attempts in %s (last row count %d)",
		domain.ErrTimeout.Error(), e.Index, e.Attempts, e.Elapsed.Round(time.Millisecond), e.LastRows)
	if e.LastErr != nil {
		msg += ": last error: " + e.LastErr.Error()
	}
	return msg
}

// Unwrap exposes domain.ErrTimeout and the last swallowed error.
func (e *PollError) Unwrap() []error {
	if e.LastErr != nil {
		return []error{domain.ErrTimeout, e.LastErr}
	}
	return []error{domain.ErrTimeout}
}

// transient reports errors a polling loop retries: the index may not be
// visible yet and the service may be briefly unavailable.
func transient(err error) bool {
	return errors.Is(err, domain.ErrService) || errors.Is(err, domain.ErrIndexNotFound)
}

// Poll re-issues the identical request until accept holds, the policy runs
// out or ctx ends. Transient failures are logged and retried; invalid
// arguments abort at once. A deadline on ctx is reported as *PollError like
// the policy timeout; cancellation returns ctx's error unchanged.
func (s *Service) Poll(
	ctx context.Context, index string,
	req request.Request, opts request.Options,
	policy Policy, accept Predicate,
) (*result.Set, error) {
	if accept == nil {
		return nil, fmt.Errorf("%w: acceptance predicate is required", domain.ErrInvalidArgument)
	}
	norm, err := validate(index, req, opts)
	if err != nil {
		return nil, err
	}
	if policy, err = policy.normalize(); err != nil {
		return nil, err
	}

	pollCtx := ctx
	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	start := time.Now()
	attempts, lastRows := 0, -1
	var lastErr error

	giveUp := func() error {
		s.metrics.Observe(metrics.PollTimeout, attempts)
		pe := &PollError{
			Index:    index,
			Attempts: attempts,
			LastRows: lastRows,
			Elapsed:  time.Since(start),
			LastErr:  lastErr,
		}
		s.logger.Warn("poll timed out",
			zap.String("index", index),
			zap.Int("attempts", attempts),
			zap.Int("last_rows", lastRows),
			zap.Duration("elapsed", pe.Elapsed),
			zap.Error(lastErr),
		)
		return pe
	}

	// A deadline on the caller's context ends the poll like the policy
	// timeout does; cancellation is passed through unchanged.
	stop := func(ctxErr error) error {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return giveUp()
		}
		s.metrics.Observe(metrics.PollCanceled, attempts)
		return ctxErr
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		attempts++
		set, err := s.execute(pollCtx, index, req, norm)
		switch {
		case err == nil:
			lastRows, lastErr = set.Len(), nil
			if accept(set) {
				s.metrics.Observe(metrics.PollAccepted, attempts)
				return set, nil
			}
		case ctx.Err() != nil:
			return nil, stop(ctx.Err())
		case pollCtx.Err() != nil:
			lastErr = err
			return nil, giveUp()
		case transient(err):
			lastErr = err
			s.logger.Debug("poll attempt failed, retrying",
				zap.String("index", index),
				zap.Int("attempt", attempts),
				zap.Int("last_rows", lastRows),
				zap.Error(err),
			)
		default:
			s.metrics.Observe(metrics.PollAborted, attempts)
			return nil, err
		}

		if policy.MaxAttempts > 0 && attempts >= policy.MaxAttempts {
			return nil, giveUp()
		}

		timer.Reset(policy.Interval)
		select {
		case <-ctx.Done():
			return nil, stop(ctx.Err())
		case <-pollCtx.Done():
			return nil, giveUp()
		case <-timer.C:
		}
	}
}
