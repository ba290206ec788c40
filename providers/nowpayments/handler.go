package nowpayments

import (
	"context"
	"net/http"

	"github.com/xdose/go-ingest/command"
	"github.com/xdose/go-ingest/core"
)

// WebhookHandler applies verified IPN callbacks onto payment rows and
// dispatches lifecycle commands when a payment is confirmed or reaches a
// terminal state.
type WebhookHandler struct {
	Payments   core.PaymentStore
	Dispatcher command.Dispatcher
	Logger     core.Logger
}

func NewWebhookHandler(payments core.PaymentStore, dispatcher command.Dispatcher, logger core.Logger) *WebhookHandler {
	return &WebhookHandler{Payments: payments, Dispatcher: dispatcher, Logger: logger}
}

func (h *WebhookHandler) Handle(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if h == nil || h.Payments == nil {
		return internalResult(nil), core.NewInternalError("nowpayments: payment store is required")
	}

	notification, err := ParseNotification(req.Body)
	if err != nil {
		return internalResult(nil), err
	}

	metadata := map[string]any{
		"event_type":  "payment." + notification.RawStatus,
		"external_id": notification.PaymentID,
	}

	status, known := notification.Status()
	if !known {
		// The gateway adds statuses over time. Acknowledge without writing
		// so the closed status column never sees an unexpected value.
		core.LogWarn(ctx, h.Logger, "unrecognized payment status acknowledged", map[string]any{
			"provider_id": req.ProviderID,
			"payment_id":  notification.PaymentID,
			"status":      notification.RawStatus,
		})
		return successResult(metadata), nil
	}

	affected, err := h.Payments.UpdateStatus(ctx, notification.PaymentID, status)
	if err != nil {
		return internalResult(metadata), core.WrapInternalError(err, "nowpayments: update payment status")
	}
	if affected == 0 {
		core.LogWarn(ctx, h.Logger, "ipn matched no tracked payment", map[string]any{
			"provider_id": req.ProviderID,
			"payment_id":  notification.PaymentID,
			"order_id":    notification.OrderID,
			"status":      string(status),
		})
		return successResult(metadata), nil
	}

	if err := h.dispatchTransition(ctx, notification.PaymentID, status); err != nil {
		return internalResult(metadata), err
	}

	core.LogInfo(ctx, h.Logger, "payment status reconciled", map[string]any{
		"provider_id": req.ProviderID,
		"payment_id":  notification.PaymentID,
		"status":      string(status),
	})
	return successResult(metadata), nil
}

func (h *WebhookHandler) dispatchTransition(ctx context.Context, paymentID string, status core.PaymentStatus) error {
	if h.Dispatcher == nil {
		return nil
	}
	switch status {
	case core.PaymentStatusConfirmed:
		// Access opens as soon as the chain confirms; finalization waits for
		// the finished callback. The grant store keeps this idempotent.
		if err := h.Dispatcher.GrantAccess(ctx, command.GrantAccessMessage{PaymentID: paymentID}); err != nil {
			return core.WrapInternalError(err, "nowpayments: grant access")
		}
	case core.PaymentStatusFinished:
		if err := h.Dispatcher.FinalizePayment(ctx, command.FinalizePaymentMessage{PaymentID: paymentID}); err != nil {
			return core.WrapInternalError(err, "nowpayments: finalize payment")
		}
	case core.PaymentStatusFailed, core.PaymentStatusExpired:
		msg := command.ClosePaymentMessage{PaymentID: paymentID, Status: status}
		if err := h.Dispatcher.ClosePayment(ctx, msg); err != nil {
			return core.WrapInternalError(err, "nowpayments: close payment")
		}
	}
	return nil
}

func successResult(metadata map[string]any) core.InboundResult {
	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Response:   map[string]any{"success": true},
		Metadata:   metadata,
	}
}

func internalResult(metadata map[string]any) core.InboundResult {
	return core.InboundResult{
		Accepted:   false,
		StatusCode: http.StatusInternalServerError,
		Response:   map[string]any{"error": "Internal server error"},
		Metadata:   metadata,
	}
}
