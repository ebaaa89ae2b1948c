package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agenticqa/runner/internal/domain/model"
)

// DefaultEventKeyPrefix prefixes per-run event stream keys.
const DefaultEventKeyPrefix = "run_events:"

// EventLogOptions configures an EventLog.
type EventLogOptions struct {
	Client redis.UniversalClient // Required
	// KeyPrefix defaults to DefaultEventKeyPrefix. The run id is appended.
	KeyPrefix string
	// MaxLen caps each run's stream length with approximate trimming.
	// Zero means no cap.
	MaxLen int64
}

// EventLog is the append-only per-run event log. One stream per run; entry
// ids are the resumption cursor handed to stream consumers.
type EventLog struct {
	client    redis.UniversalClient
	keyPrefix string
	maxLen    int64
	now       func() time.Time
}

// NewEventLog constructs an EventLog.
func NewEventLog(opts EventLogOptions) (*EventLog, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultEventKeyPrefix
	}
	return &EventLog{
		client:    opts.Client,
		keyPrefix: prefix,
		maxLen:    opts.MaxLen,
		now:       time.Now,
	}, nil
}

func (l *EventLog) key(runID string) string {
	return l.keyPrefix + runID
}

// Append adds one event to the run's stream and returns the assigned entry
// id. Data is serialized to JSON; the timestamp is epoch seconds.
func (l *EventLog) Append(ctx context.Context, runID string, eventType model.EventType, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal event data: %w", err)
	}
	ts := float64(l.now().UnixNano()) / float64(time.Second)
	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.key(runID),
		MaxLen: l.maxLen,
		Approx: l.maxLen > 0,
		Values: map[string]any{
			"type":      string(eventType),
			"timestamp": strconv.FormatFloat(ts, 'f', 6, 64),
			"data":      string(payload),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("append %s event for run %s: %w", eventType, runID, err)
	}
	return id, nil
}

// ReadAfter returns up to count events with ids strictly greater than
// afterID, in id order. Pass "0" to read from the start. The call never
// blocks; an empty slice means no new events yet.
func (l *EventLog) ReadAfter(ctx context.Context, runID, afterID string, count int) ([]model.RunEvent, error) {
	if afterID == "" {
		afterID = "0"
	}
	streams, err := l.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{l.key(runID), afterID},
		Count:   int64(count),
		Block:   -1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read events for run %s: %w", runID, err)
	}

	var events []model.RunEvent
	for _, s := range streams {
		for _, msg := range s.Messages {
			events = append(events, eventFromMessage(msg))
		}
	}
	return events, nil
}

func eventFromMessage(msg redis.XMessage) model.RunEvent {
	e := model.RunEvent{ID: msg.ID}
	if t, ok := msg.Values["type"].(string); ok {
		e.Type = model.EventType(t)
	}
	if raw, ok := msg.Values["timestamp"].(string); ok {
		if ts, err := strconv.ParseFloat(raw, 64); err == nil {
			e.Timestamp = ts
		}
	}
	if d, ok := msg.Values["data"].(string); ok {
		e.Data = json.RawMessage(d)
	}
	return e
}
