// Package httpx provides the HTTP API for submitting test runs and reading
// their results and event streams.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/agenticqa/runner/internal/core"
	"github.com/agenticqa/runner/internal/domain/model"
	"github.com/agenticqa/runner/internal/service"
)

// RunHandlers provides HTTP handlers for test run operations.
type RunHandlers struct {
	Runs     core.RunRepository
	Tests    core.TestRepository
	Queue    core.RunQueue
	Streamer *service.Streamer
	Logger   *slog.Logger
}

// createRunRequest is the body of POST /api/v1/test/run.
type createRunRequest struct {
	TestID string `json:"test_id"`
}

// createRunResponse acknowledges an accepted run. Execution is asynchronous;
// poll the results endpoint or follow the event stream.
type createRunResponse struct {
	RunID  string          `json:"run_id"`
	Status model.RunStatus `json:"status"`
}

// runResponse is the JSON shape of a run record.
type runResponse struct {
	ID          string             `json:"id"`
	TestID      string             `json:"test_id"`
	Status      model.RunStatus    `json:"status"`
	StartedAt   *time.Time         `json:"started_at,omitempty"`
	CompletedAt *time.Time         `json:"completed_at,omitempty"`
	DurationMs  *int64             `json:"duration_ms,omitempty"`
	Screenshots []model.Screenshot `json:"screenshots"`
	StepResults []model.StepResult `json:"step_results"`
	Error       string             `json:"error,omitempty"`
	ErrorStep   *int               `json:"error_step,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func toRunResponse(run *model.TestRun) runResponse {
	return runResponse{
		ID:          run.ID,
		TestID:      run.TestID,
		Status:      run.Status,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
		DurationMs:  run.DurationMs,
		Screenshots: run.Screenshots,
		StepResults: run.StepResults,
		Error:       run.Error,
		ErrorStep:   run.ErrorStep,
		CreatedAt:   run.CreatedAt,
	}
}

// CreateRun handles HTTP requests to enqueue a new test run.
func (h *RunHandlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.TestID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Err: errors.New("test_id is required")},
		)
		return
	}

	exists, err := h.Tests.Exists(r.Context(), req.TestID)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "create_failed", Err: errors.New("failed to create run")})
		return
	}
	if !exists {
		WriteError(
			w,
			ErrorParams{Code: http.StatusNotFound, ErrCode: "test_not_found", Err: errors.New("test not found")},
		)
		return
	}

	runID := uuid.NewString()
	if err := h.Runs.CreateQueued(r.Context(), runID, req.TestID); err != nil {
		// The existence check raced a concurrent delete.
		if errors.Is(err, model.ErrTestNotFound) {
			WriteError(
				w,
				ErrorParams{Code: http.StatusNotFound, ErrCode: "test_not_found", Err: errors.New("test not found")},
			)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "create_failed", Err: errors.New("failed to create run")})
		return
	}

	if _, err := h.Queue.Enqueue(r.Context(), runID, req.TestID); err != nil {
		// The run row exists but no worker will ever pick it up; surface the
		// queue outage instead of leaving the client polling a dead run.
		h.logError(r, "enqueue failed", err)
		WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "queue_unavailable", Err: errors.New("run queue unavailable")})
		return
	}

	WriteJSON(w, http.StatusAccepted, createRunResponse{RunID: runID, Status: model.RunStatusQueued})
}

// GetRun handles HTTP requests to fetch a run record.
func (h *RunHandlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if runID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("run id is required")},
		)
		return
	}

	run, err := h.Runs.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			WriteError(
				w,
				ErrorParams{Code: http.StatusNotFound, ErrCode: "run_not_found", Err: errors.New("run not found")},
			)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "get_run_failed", Err: errors.New("failed to get run")})
		return
	}

	WriteJSON(w, http.StatusOK, toRunResponse(run))
}

// streamEventPayload is the data field of one SSE frame.
type streamEventPayload struct {
	Type      model.EventType `json:"type"`
	Timestamp float64         `json:"timestamp"`
	Data      any             `json:"data"`
}

// StreamRun streams a run's event log as Server-Sent Events. History is
// replayed first (from Last-Event-ID when the client reconnects), then live
// events until the terminal event closes the stream.
func (h *RunHandlers) StreamRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("run_id")
	if runID == "" {
		WriteError(
			w,
			ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_path", Err: errors.New("run id is required")},
		)
		return
	}

	// Resolve the run before committing to the SSE content type so unknown
	// runs still get a JSON 404.
	if _, err := h.Runs.GetByID(r.Context(), runID); err != nil {
		if errors.Is(err, model.ErrRunNotFound) {
			WriteError(
				w,
				ErrorParams{Code: http.StatusNotFound, ErrCode: "run_not_found", Err: errors.New("run not found")},
			)
			return
		}
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "stream_failed", Err: errors.New("failed to open stream")})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "stream_unsupported", Err: errors.New("streaming not supported")})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Tell intermediary proxies not to buffer the stream.
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	afterID := r.Header.Get("Last-Event-ID")

	err := h.Streamer.Stream(r.Context(), runID, afterID, func(event model.RunEvent) error {
		return writeSSEFrame(w, flusher, event)
	})
	if err != nil && r.Context().Err() == nil {
		// The SSE response is already committed; all we can do is log and
		// drop the connection so the client reconnects with Last-Event-ID.
		h.logError(r, "event stream aborted", err)
	}
}

// writeSSEFrame writes one event as an SSE frame and flushes it.
func writeSSEFrame(w http.ResponseWriter, flusher http.Flusher, event model.RunEvent) error {
	payload := streamEventPayload{
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Data:      event.Data,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\nid: %s\ndata: %s\n\n", event.Type, event.ID, data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func (h *RunHandlers) logError(r *http.Request, msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
}
