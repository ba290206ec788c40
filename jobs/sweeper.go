package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/xdose/go-ingest/adapters/gojob"
	"github.com/xdose/go-ingest/command"
	"github.com/xdose/go-ingest/core"
	"github.com/xdose/go-ingest/providers/nowpayments"
)

// PaymentGateway is the slice of the gateway client the sweeper needs.
type PaymentGateway interface {
	GetPayment(ctx context.Context, paymentID string) (nowpayments.PaymentDetails, error)
}

// PaymentSweeper reconciles payments whose IPN callbacks never arrived. It
// polls the gateway for every stale non-terminal row and applies the same
// transition logic the webhook path uses.
type PaymentSweeper struct {
	Payments   core.PaymentStore
	Gateway    PaymentGateway
	Dispatcher command.Dispatcher
	Logger     core.Logger

	// StaleAfter is how long a row may sit untouched before it is polled.
	StaleAfter time.Duration
	BatchSize  int
	Now        func() time.Time
}

func NewPaymentSweeper(
	payments core.PaymentStore,
	gateway PaymentGateway,
	dispatcher command.Dispatcher,
	logger core.Logger,
) (*PaymentSweeper, error) {
	if payments == nil {
		return nil, fmt.Errorf("jobs: payment store is required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("jobs: payment gateway is required")
	}
	return &PaymentSweeper{
		Payments:   payments,
		Gateway:    gateway,
		Dispatcher: dispatcher,
		Logger:     logger,
		StaleAfter: 15 * time.Minute,
		BatchSize:  50,
	}, nil
}

// SweepOnce processes a single batch and returns how many rows changed.
// Per-payment failures are logged and skipped so one flaky gateway lookup
// cannot stall the rest of the batch.
func (s *PaymentSweeper) SweepOnce(ctx context.Context) (int, error) {
	if s == nil || s.Payments == nil || s.Gateway == nil {
		return 0, fmt.Errorf("jobs: payment sweeper is not configured")
	}

	cutoff := s.timestamp().Add(-s.staleAfter())
	stale, err := s.Payments.ListStale(ctx, cutoff, s.batchSize())
	if err != nil {
		return 0, fmt.Errorf("jobs: list stale payments: %w", err)
	}

	changed := 0
	for _, payment := range stale {
		updated, sweepErr := s.sweepPayment(ctx, payment)
		if sweepErr != nil {
			core.LogWarn(ctx, s.Logger, "payment sweep entry failed", map[string]any{
				"payment_id": payment.PaymentID,
				"error":      sweepErr.Error(),
			})
			continue
		}
		if updated {
			changed++
		}
	}
	return changed, nil
}

func (s *PaymentSweeper) sweepPayment(ctx context.Context, payment core.Payment) (bool, error) {
	details, err := s.Gateway.GetPayment(ctx, payment.PaymentID)
	if err != nil {
		return false, err
	}

	status, err := core.ParsePaymentStatus(details.PaymentStatus)
	if err != nil {
		core.LogDebug(ctx, s.Logger, "gateway reported unrecognized status", map[string]any{
			"payment_id": payment.PaymentID,
			"status":     details.PaymentStatus,
		})
		return false, nil
	}
	if status == payment.Status {
		return false, nil
	}

	if _, err := s.Payments.UpdateStatus(ctx, payment.PaymentID, status); err != nil {
		return false, err
	}
	if err := s.dispatchTransition(ctx, payment.PaymentID, status); err != nil {
		return true, err
	}

	core.LogInfo(ctx, s.Logger, "stale payment reconciled", map[string]any{
		"payment_id": payment.PaymentID,
		"from":       string(payment.Status),
		"to":         string(status),
	})
	return true, nil
}

func (s *PaymentSweeper) dispatchTransition(ctx context.Context, paymentID string, status core.PaymentStatus) error {
	if s.Dispatcher == nil {
		return nil
	}
	switch status {
	case core.PaymentStatusConfirmed:
		return s.Dispatcher.GrantAccess(ctx, command.GrantAccessMessage{PaymentID: paymentID})
	case core.PaymentStatusFinished:
		return s.Dispatcher.FinalizePayment(ctx, command.FinalizePaymentMessage{PaymentID: paymentID})
	case core.PaymentStatusFailed, core.PaymentStatusExpired:
		return s.Dispatcher.ClosePayment(ctx, command.ClosePaymentMessage{PaymentID: paymentID, Status: status})
	}
	return nil
}

func (s *PaymentSweeper) timestamp() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *PaymentSweeper) staleAfter() time.Duration {
	if s.StaleAfter > 0 {
		return s.StaleAfter
	}
	return 15 * time.Minute
}

func (s *PaymentSweeper) batchSize() int {
	if s.BatchSize > 0 {
		return s.BatchSize
	}
	return 50
}

// EnqueueSweep pushes a sweep request onto the queue. The idempotency key
// coarsens the timestamp so overlapping schedulers collapse to one job.
func EnqueueSweep(ctx context.Context, enqueuer core.JobEnqueuer, at time.Time) error {
	if enqueuer == nil {
		return fmt.Errorf("jobs: enqueuer is required")
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return enqueuer.Enqueue(ctx, &core.JobExecutionMessage{
		JobID:          gojob.JobIDPaymentSweep,
		IdempotencyKey: fmt.Sprintf("%s:%d", gojob.JobIDPaymentSweep, at.UTC().Truncate(time.Minute).Unix()),
		DedupPolicy:    "drop",
	})
}
