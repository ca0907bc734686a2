package search

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/vecsearch/internal/domain"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/result"
	"github.com/kailas-cloud/vecsearch/internal/domain/search/vector"
	"github.com/kailas-cloud/vecsearch/internal/metrics"
)

type searchCall struct {
	index           string
	req             request.Request
	opts            request.Options
	clientContextID string
}

type reply struct {
	rows int
	err  error
}

// scriptedRepo replays replies in order and repeats the last one.
type scriptedRepo struct {
	mu      sync.Mutex
	replies []reply
	calls   []searchCall
	onCall  func(n int)
}

func (r *scriptedRepo) Search(
	_ context.Context, index string, req request.Request, opts request.Options, clientContextID string,
) (*result.Set, error) {
	r.mu.Lock()
	r.calls = append(r.calls, searchCall{index: index, req: req, opts: opts, clientContextID: clientContextID})
	n := len(r.calls)
	rep := reply{}
	if len(r.replies) > 0 {
		rep = r.replies[min(n, len(r.replies))-1]
	}
	r.mu.Unlock()

	if r.onCall != nil {
		r.onCall(n)
	}
	if rep.err != nil {
		return nil, rep.err
	}
	set := &result.Set{Rows: make([]result.Row, rep.rows)}
	for i := range set.Rows {
		set.Rows[i] = result.Row{Index: index, ID: fmt.Sprintf("doc-%d", i)}
	}
	return set, nil
}

func (r *scriptedRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestService(t *testing.T, repo Repository) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	pm, err := metrics.NewPoll(reg)
	if err != nil {
		t.Fatalf("NewPoll: %v", err)
	}
	return New(repo, nil, pm), reg
}

// pollOutcomes reads vecsearch_poll_outcomes_total for one outcome.
func pollOutcomes(t *testing.T, reg *prometheus.Registry, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "vecsearch_poll_outcomes_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func lexicalRequest(t *testing.T) request.Request {
	t.Helper()
	mq := query.NewMatchQuery("ocean")
	mq.SetField("description")
	req, err := request.NewLexical(mq)
	if err != nil {
		t.Fatalf("NewLexical: %v", err)
	}
	return req
}

func fastPolicy() Policy {
	return Policy{Interval: 5 * time.Millisecond, Timeout: time.Second}
}

func TestExecute_Validation(t *testing.T) {
	repo := &scriptedRepo{}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	tests := []struct {
		name  string
		index string
		req   request.Request
		opts  request.Options
	}{
		{"empty index", "", lexicalRequest(t), request.Options{}},
		{"zero request", "hotels", request.Request{}, request.Options{}},
		{"negative limit", "hotels", lexicalRequest(t), request.Options{Limit: -1}},
		{"limit above max", "hotels", lexicalRequest(t), request.Options{Limit: request.MaxLimit + 1}},
		{"negative skip", "hotels", lexicalRequest(t), request.Options{Skip: -3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Execute(ctx, tc.index, tc.req, tc.opts); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
	if repo.callCount() != 0 {
		t.Errorf("invalid requests must not reach the backend, got %d calls", repo.callCount())
	}
}

func TestExecute_SingleRoundTrip(t *testing.T) {
	repo := &scriptedRepo{replies: []reply{{rows: 2}}}
	svc, _ := newTestService(t, repo)

	set, err := svc.Execute(context.Background(), "hotels", lexicalRequest(t), request.Options{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if set.Len() != 2 {
		t.Errorf("expected 2 rows, got %d", set.Len())
	}
	if repo.callCount() != 1 {
		t.Fatalf("expected one round trip, got %d", repo.callCount())
	}
	call := repo.calls[0]
	if call.opts.Limit != request.DefaultLimit {
		t.Errorf("expected default limit %d, got %d", request.DefaultLimit, call.opts.Limit)
	}
	if call.clientContextID == "" {
		t.Error("expected a client context id")
	}
}

func TestExecute_ErrorsKeepCategory(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"index not found", domain.ErrIndexNotFound, domain.ErrIndexNotFound},
		{"service", domain.NewServiceError(503, errors.New("unavailable")), domain.ErrService},
		{"not supported", domain.ErrNotSupported, domain.ErrNotSupported},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t, &scriptedRepo{replies: []reply{{err: tc.err}}})
			_, err := svc.Execute(context.Background(), "hotels", lexicalRequest(t), request.Options{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPoll_AcceptsAfterTransientFailures(t *testing.T) {
	repo := &scriptedRepo{replies: []reply{
		{err: domain.ErrIndexNotFound},
		{err: domain.NewServiceError(503, errors.New("warming up"))},
		{rows: 1},
		{rows: 3},
	}}
	svc, reg := newTestService(t, repo)
	opts := request.Options{Limit: 5, Fields: []string{"name"}}

	set, err := svc.Poll(context.Background(), "hotels", lexicalRequest(t), opts, fastPolicy(), RowCountEquals(3))
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if set.Len() != 3 {
		t.Errorf("expected 3 rows, got %d", set.Len())
	}
	if repo.callCount() != 4 {
		t.Errorf("expected 4 attempts, got %d", repo.callCount())
	}
	if v := pollOutcomes(t, reg, metrics.PollAccepted); v != 1 {
		t.Errorf("expected one accepted loop, got %f", v)
	}
}

func TestPoll_ReissuesUnmodifiedRequest(t *testing.T) {
	repo := &scriptedRepo{replies: []reply{{rows: 0}, {rows: 0}, {rows: 2}}}
	svc, _ := newTestService(t, repo)
	req := lexicalRequest(t)
	opts := request.Options{Limit: 5, Skip: 1, Explain: true}

	if _, err := svc.Poll(context.Background(), "hotels", req, opts, fastPolicy(), RowCountAtLeast(2)); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	ids := map[string]bool{}
	for i, call := range repo.calls {
		if call.index != "hotels" || !call.req.Equivalent(req) {
			t.Errorf("attempt %d: request changed", i)
		}
		if !reflect.DeepEqual(call.opts, repo.calls[0].opts) {
			t.Errorf("attempt %d: options changed: %+v", i, call.opts)
		}
		ids[call.clientContextID] = true
	}
	if len(ids) != len(repo.calls) {
		t.Errorf("expected a fresh client context id per attempt, got %d ids for %d attempts", len(ids), len(repo.calls))
	}
}

func TestPoll_TimeoutReturnsPollError(t *testing.T) {
	repo := &scriptedRepo{replies: []reply{{rows: 1}, {err: domain.NewServiceError(502, errors.New("bad gateway"))}}}
	svc, reg := newTestService(t, repo)
	policy := Policy{Interval: 5 * time.Millisecond, Timeout: 60 * time.Millisecond}

	start := time.Now()
	_, err := svc.Poll(context.Background(), "hotels", lexicalRequest(t), request.Options{}, policy, RowCountEquals(5))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("poll overran its timeout: %s", elapsed)
	}
	var pe *PollError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PollError, got %T", err)
	}
	if pe.Index != "hotels" || pe.Attempts < 2 {
		t.Errorf("unexpected poll error %+v", pe)
	}
	if pe.LastRows != 1 {
		t.Errorf("expected last row count 1, got %d", pe.LastRows)
	}
	if !errors.Is(err, domain.ErrService) {
		t.Error("expected the last swallowed service error to be reachable")
	}
	if v := pollOutcomes(t, reg, metrics.PollTimeout); v != 1 {
		t.Errorf("expected one timed out loop, got %f", v)
	}
}

func TestPoll_MaxAttempts(t *testing.T) {
	repo := &scriptedRepo{replies: []reply{{rows: 0}}}
	svc, _ := newTestService(t, repo)
	policy := Policy{Interval: time.Millisecond, MaxAttempts: 3}

	_, err := svc.Poll(context.Background(), "hotels", lexicalRequest(t), request.Options{}, policy, RowCountEquals(1))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if repo.callCount() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", repo.callCount())
	}
}

func TestPoll_CallerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := &scriptedRepo{replies: []reply{{rows: 0}}, onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	svc, reg := newTestService(t, repo)

	_, err := svc.Poll(ctx, "hotels", lexicalRequest(t), request.Options{}, fastPolicy(), RowCountEquals(1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, domain.ErrTimeout) {
		t.Error("caller cancellation must not be reported as a timeout")
	}
	if v := pollOutcomes(t, reg, metrics.PollCanceled); v != 1 {
		t.Errorf("expected one canceled loop, got %f", v)
	}
}

func TestPoll_CallerDeadlineReturnsPollError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	repo := &scriptedRepo{replies: []reply{{rows: 1}}}
	svc, reg := newTestService(t, repo)

	_, err := svc.Poll(ctx, "hotels", lexicalRequest(t), request.Options{},
		Policy{Interval: 5 * time.Millisecond}, RowCountEquals(5))
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	var pe *PollError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PollError, got %T", err)
	}
	if pe.Attempts < 2 || pe.LastRows != 1 {
		t.Errorf("unexpected poll error %+v", pe)
	}
	if v := pollOutcomes(t, reg, metrics.PollTimeout); v != 1 {
		t.Errorf("expected one timed out loop, got %f", v)
	}
	if v := pollOutcomes(t, reg, metrics.PollCanceled); v != 0 {
		t.Errorf("a deadline must not count as cancellation, got %f", v)
	}
}

func TestPoll_AbortsOnInvalidArgument(t *testing.T) {
	repo := &scriptedRepo{replies: []reply{{err: fmt.Errorf("%w: unknown field", domain.ErrInvalidArgument)}}}
	svc, _ := newTestService(t, repo)

	_, err := svc.Poll(context.Background(), "hotels", lexicalRequest(t), request.Options{}, fastPolicy(), RowCountEquals(1))
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	if repo.callCount() != 1 {
		t.Errorf("expected a single attempt, got %d", repo.callCount())
	}
}

func TestPoll_InvalidInput(t *testing.T) {
	repo := &scriptedRepo{}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()
	req := lexicalRequest(t)

	if _, err := svc.Poll(ctx, "hotels", req, request.Options{}, fastPolicy(), nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("nil predicate: expected ErrInvalidArgument, got %v", err)
	}
	bad := Policy{Interval: -time.Second}
	if _, err := svc.Poll(ctx, "hotels", req, request.Options{}, bad, RowCountEquals(1)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("negative interval: expected ErrInvalidArgument, got %v", err)
	}
	if repo.callCount() != 0 {
		t.Errorf("expected no backend calls, got %d", repo.callCount())
	}
}

func TestPollError_Message(t *testing.T) {
	pe := &PollError{Index: "hotels", Attempts: 4, LastRows: -1, Elapsed: 1500 * time.Millisecond}
	want := "timeout: polling hotels gave up after 4 attempts in 1.5s (last row count -1)"
	if pe.Error() != want {
		t.Errorf("got %q, want %q", pe.Error(), want)
	}
	if errors.Is(pe, domain.ErrService) {
		t.Error("poll error without a last error must not match ErrService")
	}
}

func TestPredicates(t *testing.T) {
	set := &result.Set{Rows: make([]result.Row, 3)}
	if !RowCountEquals(3)(set) || RowCountEquals(2)(set) {
		t.Error("RowCountEquals mismatch")
	}
	if !RowCountAtLeast(2)(set) || RowCountAtLeast(4)(set) {
		t.Error("RowCountAtLeast mismatch")
	}
	if !RowCountEquals(0)(nil) {
		t.Error("nil set has zero rows")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.Interval != DefaultPollInterval || p.Timeout != DefaultPollTimeout || p.MaxAttempts != 0 {
		t.Errorf("unexpected default policy %+v", p)
	}
	n, err := Policy{}.normalize()
	if err != nil || n.Interval != DefaultPollInterval {
		t.Errorf("zero interval should default, got %+v, %v", n, err)
	}
}

func mustVector(t *testing.T, v ...float32) vector.Query {
	t.Helper()
	q, err := vector.NewQuery("embedding", v)
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	return q
}
