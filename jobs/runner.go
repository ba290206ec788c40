package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xdose/go-ingest/adapters/gojob"
	"github.com/xdose/go-ingest/core"
)

// Runner drains the job queue and routes deliveries to their handlers.
type Runner struct {
	Dequeuer core.JobDequeuer
	Sweeper  *PaymentSweeper
	Logger   core.Logger
	Metrics  core.MetricsRecorder

	// NackDelay spaces out retries for deliveries that fail.
	NackDelay time.Duration
}

func NewRunner(dequeuer core.JobDequeuer, sweeper *PaymentSweeper, logger core.Logger) (*Runner, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("jobs: dequeuer is required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("jobs: payment sweeper is required")
	}
	return &Runner{
		Dequeuer:  dequeuer,
		Sweeper:   sweeper,
		Logger:    logger,
		NackDelay: 30 * time.Second,
	}, nil
}

// Run consumes deliveries until the context is canceled. Dequeue errors other
// than cancellation are logged and the loop keeps going.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.Dequeuer == nil {
		return fmt.Errorf("jobs: runner is not configured")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		delivery, err := r.Dequeuer.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			core.LogWarn(ctx, r.Logger, "dequeue failed", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		if delivery == nil {
			continue
		}

		r.handle(ctx, delivery)
	}
}

// RunOnce consumes a single delivery. Used by tests and one-shot CLI runs.
func (r *Runner) RunOnce(ctx context.Context) error {
	if r == nil || r.Dequeuer == nil {
		return fmt.Errorf("jobs: runner is not configured")
	}
	delivery, err := r.Dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return nil
	}
	r.handle(ctx, delivery)
	return nil
}

func (r *Runner) handle(ctx context.Context, delivery core.JobDelivery) {
	msg := delivery.Message()
	if msg == nil {
		_ = delivery.Nack(ctx, core.JobNackOptions{
			Requeue: false,
			Reason:  "empty execution message",
		})
		return
	}

	var err error
	switch msg.JobID {
	case gojob.JobIDPaymentSweep:
		_, err = r.Sweeper.SweepOnce(ctx)
	default:
		core.LogWarn(ctx, r.Logger, "unknown job id, dropping delivery", map[string]any{
			"job_id": msg.JobID,
		})
		_ = delivery.Nack(ctx, core.JobNackOptions{
			Requeue: false,
			Reason:  "unknown job id",
		})
		return
	}

	if err != nil {
		core.LogError(ctx, r.Logger, "job execution failed", map[string]any{
			"job_id": msg.JobID,
			"error":  err.Error(),
		})
		r.count(ctx, "jobs.failed", msg.JobID)
		_ = delivery.Nack(ctx, core.JobNackOptions{
			Delay:   r.nackDelay(),
			Requeue: true,
			Reason:  err.Error(),
		})
		return
	}

	r.count(ctx, "jobs.completed", msg.JobID)
	if ackErr := delivery.Ack(ctx); ackErr != nil {
		core.LogWarn(ctx, r.Logger, "job ack failed", map[string]any{
			"job_id": msg.JobID,
			"error":  ackErr.Error(),
		})
	}
}

func (r *Runner) count(ctx context.Context, name string, jobID string) {
	if r.Metrics == nil {
		return
	}
	r.Metrics.IncCounter(ctx, name, 1, map[string]string{"job_id": jobID})
}

func (r *Runner) nackDelay() time.Duration {
	if r.NackDelay > 0 {
		return r.NackDelay
	}
	return 30 * time.Second
}
