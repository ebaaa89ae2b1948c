package agent

import (
	"context"
	"sync"
	"time"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
)

// fakePage is a function-field PageDriver double. Unset fields succeed with
// zero values.
type fakePage struct {
	navigateFn   func(ctx context.Context, url string) error
	clickFn      func(ctx context.Context, target core.Target) error
	fillFn       func(ctx context.Context, target core.Target, value string) error
	contentFn    func(ctx context.Context) (string, error)
	screenshotFn func(ctx context.Context) (string, error)
	closeFn      func(ctx context.Context) error

	mu     sync.Mutex
	closed bool
}

func (f *fakePage) Navigate(ctx context.Context, url string) error {
	if f.navigateFn != nil {
		return f.navigateFn(ctx, url)
	}
	return nil
}

func (f *fakePage) Click(ctx context.Context, target core.Target) error {
	if f.clickFn != nil {
		return f.clickFn(ctx, target)
	}
	return nil
}

func (f *fakePage) Fill(ctx context.Context, target core.Target, value string) error {
	if f.fillFn != nil {
		return f.fillFn(ctx, target, value)
	}
	return nil
}

func (f *fakePage) Content(ctx context.Context) (string, error) {
	if f.contentFn != nil {
		return f.contentFn(ctx)
	}
	return "", nil
}

func (f *fakePage) Screenshot(ctx context.Context) (string, error) {
	if f.screenshotFn != nil {
		return f.screenshotFn(ctx)
	}
	return "aGVsbG8=", nil
}

func (f *fakePage) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if f.closeFn != nil {
		return f.closeFn(ctx)
	}
	return nil
}

func (f *fakePage) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// recordedEvent captures one EventLog.Append call.
type recordedEvent struct {
	RunID string
	Type  model.EventType
	Data  map[string]any
}

// fakeEventLog records appended events in order.
type fakeEventLog struct {
	mu       sync.Mutex
	events   []recordedEvent
	appendFn func(ctx context.Context, runID string, t model.EventType, data any) (string, error)
}

func (f *fakeEventLog) Append(ctx context.Context, runID string, t model.EventType, data any) (string, error) {
	if f.appendFn != nil {
		return f.appendFn(ctx, runID, t, data)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := data.(map[string]any)
	f.events = append(f.events, recordedEvent{RunID: runID, Type: t, Data: m})
	return "0-1", nil
}

func (f *fakeEventLog) ReadAfter(context.Context, string, string, int) ([]model.RunEvent, error) {
	return nil, nil
}

func (f *fakeEventLog) recorded() []recordedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]recordedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeEventLog) ofType(t model.EventType) []recordedEvent {
	var out []recordedEvent
	for _, e := range f.recorded() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fakeRunRepo is a function-field RunRepository double that records terminal
// writes.
type fakeRunRepo struct {
	mu          sync.Mutex
	running     []string
	completions []model.RunCompletion
	failures    []core.FailRunParams

	markRunningFn func(ctx context.Context, runID string, startedAt time.Time) error
	completeFn    func(ctx context.Context, c model.RunCompletion) error
	failRunFn     func(ctx context.Context, p core.FailRunParams) error
}

func (f *fakeRunRepo) CreateQueued(context.Context, string, string) error { return nil }

func (f *fakeRunRepo) GetByID(context.Context, string) (*model.TestRun, error) {
	return nil, model.ErrRunNotFound
}

func (f *fakeRunRepo) MarkRunning(ctx context.Context, runID string, startedAt time.Time) error {
	if f.markRunningFn != nil {
		return f.markRunningFn(ctx, runID, startedAt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = append(f.running, runID)
	return nil
}

func (f *fakeRunRepo) Complete(ctx context.Context, c model.RunCompletion) error {
	if f.completeFn != nil {
		return f.completeFn(ctx, c)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completions = append(f.completions, c)
	return nil
}

func (f *fakeRunRepo) FailRun(ctx context.Context, p core.FailRunParams) error {
	if f.failRunFn != nil {
		return f.failRunFn(ctx, p)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, p)
	return nil
}

func (f *fakeRunRepo) FindStuck(context.Context, time.Duration) ([]string, error) {
	return nil, nil
}

func (f *fakeRunRepo) lastCompletion() *model.RunCompletion {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.completions) == 0 {
		return nil
	}
	c := f.completions[len(f.completions)-1]
	return &c
}
