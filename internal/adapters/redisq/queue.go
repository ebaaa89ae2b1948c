// Package redisq implements the durable run queue and the per-run event log
// on Redis streams.
package redisq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agenticqa/runner/internal/domain/model"
)

const (
	// DefaultStream is the queue stream key.
	DefaultStream = "runs:queue"
	// DefaultGroup is the consumer group all workers join.
	DefaultGroup = "run-workers"
)

// QueueOptions configures a Queue.
type QueueOptions struct {
	Client redis.UniversalClient // Required
	Stream string                // Optional: defaults to DefaultStream
	Group  string                // Optional: defaults to DefaultGroup
	Logger *slog.Logger
}

// Queue is the run job queue. Jobs are stream entries; consumer-group
// delivery gives each entry to exactly one claiming worker, and unacked
// entries stay pending until reclaimed or acked.
type Queue struct {
	client redis.UniversalClient
	stream string
	group  string
	logger *slog.Logger
}

// NewQueue constructs a Queue.
func NewQueue(opts QueueOptions) (*Queue, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	stream := opts.Stream
	if stream == "" {
		stream = DefaultStream
	}
	group := opts.Group
	if group == "" {
		group = DefaultGroup
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		client: opts.Client,
		stream: stream,
		group:  group,
		logger: logger.With("component", "run_queue"),
	}, nil
}

// Enqueue appends a run job to the queue stream and returns its entry id.
func (q *Queue) Enqueue(ctx context.Context, runID, testID string) (string, error) {
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{
			"run_id":  runID,
			"test_id": testID,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("enqueue run %s: %w", runID, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group, creating the stream alongside it
// when absent. An already existing group is not an error, so every worker can
// call this at startup.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", q.group, err)
	}
	return nil
}

// Claim blocks up to block waiting for a new job delivered to this consumer.
// Returns nil with no error when the window elapses without a job.
func (q *Queue) Claim(ctx context.Context, consumer string, block time.Duration) (*model.RunJob, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	for _, s := range streams {
		for _, msg := range s.Messages {
			return jobFromMessage(msg)
		}
	}
	return nil, nil
}

// ClaimStale transfers one pending entry that has been idle longer than
// minIdle to this consumer. Used to recover jobs whose claiming worker died
// before acking. Returns nil when nothing is reclaimable.
func (q *Queue) ClaimStale(ctx context.Context, consumer string, minIdle time.Duration) (*model.RunJob, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim stale job: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}
	job, err := jobFromMessage(msgs[0])
	if err != nil {
		return nil, err
	}
	q.logger.InfoContext(ctx, "reclaimed stale job",
		"delivery_id", job.DeliveryID, "run_id", job.RunID, "consumer", consumer)
	return job, nil
}

// Ack acknowledges a delivery. Acking an already acked or unknown id is a
// no-op, which makes the worker's ack-after-terminal path idempotent.
func (q *Queue) Ack(ctx context.Context, deliveryID string) error {
	if err := q.client.XAck(ctx, q.stream, q.group, deliveryID).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", deliveryID, err)
	}
	return nil
}

func jobFromMessage(msg redis.XMessage) (*model.RunJob, error) {
	runID, _ := msg.Values["run_id"].(string)
	testID, _ := msg.Values["test_id"].(string)
	if runID == "" || testID == "" {
		return nil, fmt.Errorf("malformed queue entry %s", msg.ID)
	}
	return &model.RunJob{RunID: runID, TestID: testID, DeliveryID: msg.ID}, nil
}
