package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// fakeQueue is a RunQueue double. Pending jobs are handed out in order; acks
// and ensure-group calls are recorded.
type fakeQueue struct {
	mu           sync.Mutex
	pending      []*model.RunJob
	stale        []*model.RunJob
	acked        []string
	ensureCalls  int
	enqueued     []*model.RunJob
	claimFn      func(ctx context.Context, consumer string, block time.Duration) (*model.RunJob, error)
	ensureFn     func(ctx context.Context) error
	ackFn        func(ctx context.Context, deliveryID string) error
	claimStaleFn func(ctx context.Context, consumer string, minIdle time.Duration) (*model.RunJob, error)
}

func (q *fakeQueue) Enqueue(_ context.Context, runID, testID string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job := &model.RunJob{RunID: runID, TestID: testID, DeliveryID: "1-0"}
	q.enqueued = append(q.enqueued, job)
	return job.DeliveryID, nil
}

func (q *fakeQueue) EnsureGroup(ctx context.Context) error {
	q.mu.Lock()
	q.ensureCalls++
	q.mu.Unlock()
	if q.ensureFn != nil {
		return q.ensureFn(ctx)
	}
	return nil
}

func (q *fakeQueue) Claim(ctx context.Context, consumer string, block time.Duration) (*model.RunJob, error) {
	if q.claimFn != nil {
		return q.claimFn(ctx, consumer, block)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	job := q.pending[0]
	q.pending = q.pending[1:]
	return job, nil
}

func (q *fakeQueue) ClaimStale(ctx context.Context, consumer string, minIdle time.Duration) (*model.RunJob, error) {
	if q.claimStaleFn != nil {
		return q.claimStaleFn(ctx, consumer, minIdle)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.stale) == 0 {
		return nil, nil
	}
	job := q.stale[0]
	q.stale = q.stale[1:]
	return job, nil
}

func (q *fakeQueue) Ack(ctx context.Context, deliveryID string) error {
	if q.ackFn != nil {
		return q.ackFn(ctx, deliveryID)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, deliveryID)
	return nil
}

func (q *fakeQueue) ackedIDs() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.acked...)
}

// fakeRunRepo is a RunRepository double recording terminal writes.
type fakeRunRepo struct {
	mu          sync.Mutex
	runs        map[string]*model.TestRun
	failures    []core.FailRunParams
	completions []model.RunCompletion
	getByIDFn   func(ctx context.Context, runID string) (*model.TestRun, error)
	failRunFn   func(ctx context.Context, p core.FailRunParams) error
	findStuckFn func(ctx context.Context, maxAge time.Duration) ([]string, error)
}

func (r *fakeRunRepo) CreateQueued(_ context.Context, runID, testID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = make(map[string]*model.TestRun)
	}
	r.runs[runID] = &model.TestRun{ID: runID, TestID: testID, Status: model.RunStatusQueued}
	return nil
}

func (r *fakeRunRepo) GetByID(ctx context.Context, runID string) (*model.TestRun, error) {
	if r.getByIDFn != nil {
		return r.getByIDFn(ctx, runID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, model.ErrRunNotFound
	}
	return run, nil
}

func (r *fakeRunRepo) MarkRunning(_ context.Context, runID string, startedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if run, ok := r.runs[runID]; ok {
		run.Status = model.RunStatusRunning
		run.StartedAt = &startedAt
	}
	return nil
}

func (r *fakeRunRepo) Complete(_ context.Context, c model.RunCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, c)
	return nil
}

func (r *fakeRunRepo) FailRun(ctx context.Context, p core.FailRunParams) error {
	if r.failRunFn != nil {
		return r.failRunFn(ctx, p)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, p)
	return nil
}

func (r *fakeRunRepo) FindStuck(ctx context.Context, maxAge time.Duration) ([]string, error) {
	if r.findStuckFn != nil {
		return r.findStuckFn(ctx, maxAge)
	}
	return nil, nil
}

func (r *fakeRunRepo) failedRuns() []core.FailRunParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.FailRunParams(nil), r.failures...)
}

// fakeTestRepo is a TestRepository double.
type fakeTestRepo struct {
	tests     map[string]*model.Test
	getByIDFn func(ctx context.Context, testID string) (*model.Test, error)
}

func (r *fakeTestRepo) GetByID(ctx context.Context, testID string) (*model.Test, error) {
	if r.getByIDFn != nil {
		return r.getByIDFn(ctx, testID)
	}
	test, ok := r.tests[testID]
	if !ok {
		return nil, model.ErrTestNotFound
	}
	return test, nil
}

func (r *fakeTestRepo) Exists(_ context.Context, testID string) (bool, error) {
	_, ok := r.tests[testID]
	return ok, nil
}

// appendedEvent is one recorded EventLog.Append call.
type appendedEvent struct {
	runID string
	typ   model.EventType
	data  map[string]any
}

// fakeEventLog is an EventLog double. Appends are recorded; reads serve the
// seeded per-run event slices filtered by cursor.
type fakeEventLog struct {
	mu          sync.Mutex
	appends     []appendedEvent
	byRun       map[string][]model.RunEvent
	appendFn    func(ctx context.Context, runID string, t model.EventType, data any) (string, error)
	readAfterFn func(ctx context.Context, runID, afterID string, count int) ([]model.RunEvent, error)
}

func (l *fakeEventLog) Append(ctx context.Context, runID string, t model.EventType, data any) (string, error) {
	if l.appendFn != nil {
		return l.appendFn(ctx, runID, t, data)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m, _ := data.(map[string]any)
	l.appends = append(l.appends, appendedEvent{runID: runID, typ: t, data: m})
	return "1-0", nil
}

func (l *fakeEventLog) ReadAfter(ctx context.Context, runID, afterID string, count int) ([]model.RunEvent, error) {
	if l.readAfterFn != nil {
		return l.readAfterFn(ctx, runID, afterID, count)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.RunEvent
	for _, e := range l.byRun[runID] {
		if afterID != "" && afterID != "0" && e.ID <= afterID {
			continue
		}
		out = append(out, e)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

func (l *fakeEventLog) appended() []appendedEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]appendedEvent(nil), l.appends...)
}

func (l *fakeEventLog) ofType(t model.EventType) []appendedEvent {
	var out []appendedEvent
	for _, e := range l.appended() {
		if e.typ == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeExecutor is a RunExecutor double returning scripted errors per attempt.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   int
	results []error
	fn      func(ctx context.Context, runID string, test *model.Test) error
}

func (e *fakeExecutor) Execute(ctx context.Context, runID string, test *model.Test) error {
	if e.fn != nil {
		return e.fn(ctx, runID, test)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var err error
	if e.calls < len(e.results) {
		err = e.results[e.calls]
	}
	e.calls++
	return err
}

func (e *fakeExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}
