package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xdose/go-ingest/core"
)

// Lifecycle owns the side effects of terminal payment states: granting the
// supporter access on success and closing the row on failure. Every method is
// idempotent so re-delivered notifications and queue retries are harmless.
type Lifecycle struct {
	payments core.PaymentStore
	grants   core.GrantStore
	logger   core.Logger
	now      func() time.Time
}

func NewLifecycle(payments core.PaymentStore, grants core.GrantStore, logger core.Logger) (*Lifecycle, error) {
	if payments == nil {
		return nil, fmt.Errorf("payments: payment store is required")
	}
	if grants == nil {
		return nil, fmt.Errorf("payments: grant store is required")
	}
	return &Lifecycle{
		payments: payments,
		grants:   grants,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// GrantAccess materializes the purchase for the supporter. The grant amount
// is the fiat price, not the crypto pay amount, so creator earnings stay in
// one currency.
func (l *Lifecycle) GrantAccess(ctx context.Context, paymentID string) (core.AccessGrant, error) {
	payment, err := l.lookup(ctx, paymentID)
	if err != nil {
		return core.AccessGrant{}, err
	}
	grant, err := l.grants.Create(ctx, core.CreateGrantInput{
		CreatorID: payment.CreatorID,
		PaymentID: payment.PaymentID,
		Kind:      payment.Kind,
		Amount:    payment.PriceAmount,
		Currency:  payment.PriceCurrency,
	})
	if err != nil {
		return core.AccessGrant{}, core.WrapInternalError(err, "payments: create access grant")
	}
	core.LogInfo(ctx, l.logger, "access granted", map[string]any{
		"payment_id": payment.PaymentID,
		"creator_id": payment.CreatorID,
		"kind":       payment.Kind,
	})
	return grant, nil
}

// FinalizePayment grants access and stamps the finalized timestamp. A row
// that is already finalized is left untouched.
func (l *Lifecycle) FinalizePayment(ctx context.Context, paymentID string) error {
	payment, err := l.lookup(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.FinalizedAt != nil {
		core.LogDebug(ctx, l.logger, "payment already finalized", map[string]any{
			"payment_id": payment.PaymentID,
		})
		return nil
	}

	if _, err := l.GrantAccess(ctx, payment.PaymentID); err != nil {
		return err
	}
	if _, err := l.payments.MarkFinalized(ctx, payment.PaymentID, l.timestamp()); err != nil {
		return core.WrapInternalError(err, "payments: mark payment finalized")
	}
	return nil
}

// ClosePayment records a terminal failure state. Non-terminal statuses are
// rejected so the close path cannot be abused to rewind a finished payment.
func (l *Lifecycle) ClosePayment(ctx context.Context, paymentID string, status core.PaymentStatus) error {
	if !status.Terminal() || status == core.PaymentStatusFinished {
		return core.NewBadInputError(fmt.Sprintf("payments: %q is not a closing status", status))
	}
	if _, err := l.lookup(ctx, paymentID); err != nil {
		return err
	}
	if _, err := l.payments.UpdateStatus(ctx, paymentID, status); err != nil {
		return core.WrapInternalError(err, "payments: close payment")
	}
	core.LogInfo(ctx, l.logger, "payment closed", map[string]any{
		"payment_id": paymentID,
		"status":     string(status),
	})
	return nil
}

func (l *Lifecycle) lookup(ctx context.Context, paymentID string) (core.Payment, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return core.Payment{}, core.NewBadInputError("payments: payment id is required")
	}
	payment, err := l.payments.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return core.Payment{}, core.WrapInternalError(err, "payments: load payment")
	}
	return payment, nil
}

func (l *Lifecycle) timestamp() time.Time {
	if l.now != nil {
		return l.now().UTC()
	}
	return time.Now().UTC()
}
