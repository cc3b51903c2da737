package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/finsight/finsight/pkg/models"
)

const taskTypeAnalyze = "analysis:run"

// Priorities map to weighted asynq queues. Weights are advisory: a busy high
// queue can still be interleaved with low, so nothing starves.
var queueWeights = map[string]int{
	"high":    6,
	"default": 3,
	"low":     1,
}

type taskPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// AsynqBroker implements Broker on Redis via hibiken/asynq. The same value
// also runs the consume side in the worker binary (Serve).
type AsynqBroker struct {
	client       *asynq.Client
	server       *asynq.Server
	redis        *redis.Client
	opt          asynq.RedisClientOpt
	probeTimeout time.Duration
	taskTimeout  time.Duration
	concurrency  int
}

// NewAsynqBroker connects to Redis at redisURL. Construction only parses the
// URL; an unreachable Redis is reported by Probe, not here.
func NewAsynqBroker(redisURL string, probeTimeout, taskTimeout time.Duration, concurrency int) (*AsynqBroker, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	clientOpt, ok := opt.(asynq.RedisClientOpt)
	if !ok {
		return nil, fmt.Errorf("unsupported redis connection type %T", opt)
	}

	ropt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	return &AsynqBroker{
		client:       asynq.NewClient(clientOpt),
		redis:        redis.NewClient(ropt),
		opt:          clientOpt,
		probeTimeout: probeTimeout,
		taskTimeout:  taskTimeout,
		concurrency:  concurrency,
	}, nil
}

func (b *AsynqBroker) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, b.probeTimeout)
	defer cancel()
	return b.redis.Ping(ctx).Err()
}

func (b *AsynqBroker) Dispatch(ctx context.Context, jobID uuid.UUID, priority string) error {
	body, err := json.Marshal(taskPayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal task payload: %w", err)
	}

	task := asynq.NewTask(taskTypeAnalyze, body)
	_, err = b.client.EnqueueContext(ctx, task,
		asynq.Queue(queueFor(priority)),
		asynq.MaxRetry(1),
		asynq.Timeout(b.taskTimeout),
	)
	if err != nil {
		return fmt.Errorf("enqueue job %s: %w", jobID, err)
	}
	return nil
}

// Serve runs the consume loop: one Handler invocation per delivered job id.
// Delivery is at-least-once; the handler's expected-status guard makes
// duplicates harmless. Blocks until Shutdown or a signal stops the server.
func (b *AsynqBroker) Serve(handler Handler) error {
	b.server = asynq.NewServer(b.opt, asynq.Config{
		Concurrency: b.concurrency,
		Queues:      queueWeights,
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(taskTypeAnalyze, func(ctx context.Context, task *asynq.Task) error {
		var payload taskPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal task payload: %w", err)
		}
		if payload.JobID == uuid.Nil {
			return fmt.Errorf("missing job id in payload")
		}
		return handler(ctx, payload.JobID)
	})

	slog.Info("broker consume loop starting", "concurrency", b.concurrency)
	if err := b.server.Run(mux); err != nil && err != asynq.ErrServerClosed {
		return fmt.Errorf("run broker server: %w", err)
	}
	return nil
}

// Shutdown stops the consume loop (if running) and closes connections.
func (b *AsynqBroker) Shutdown() {
	if b.server != nil {
		b.server.Shutdown()
	}
	_ = b.client.Close()
	_ = b.redis.Close()
}

func queueFor(priority string) string {
	switch priority {
	case models.PriorityHigh:
		return "high"
	case models.PriorityMedium:
		return "default"
	default:
		return "low"
	}
}

var _ Broker = (*AsynqBroker)(nil)
