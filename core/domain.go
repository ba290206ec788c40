package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidVideoStatus   = errors.New("core: invalid video status")
	ErrInvalidPaymentStatus = errors.New("core: invalid payment status")
	ErrInvalidOrderID       = errors.New("core: invalid order id")
)

// VideoStatus tracks a video asset through the hosting provider's pipeline.
// Rows are seeded pending by the upload endpoint; webhooks move them to a
// terminal state.
type VideoStatus string

const (
	VideoStatusPending VideoStatus = "pending"
	VideoStatusReady   VideoStatus = "ready"
	VideoStatusErrored VideoStatus = "errored"
)

func ParseVideoStatus(value string) (VideoStatus, error) {
	status := VideoStatus(strings.TrimSpace(strings.ToLower(value)))
	switch status {
	case VideoStatusPending, VideoStatusReady, VideoStatusErrored:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidVideoStatus, value)
}

func (s VideoStatus) Terminal() bool {
	return s == VideoStatusReady || s == VideoStatusErrored
}

// PaymentStatus mirrors the payment gateway's IPN status vocabulary. The
// store's status column is a closed enum, so values outside this set must
// never be written (the gateway occasionally introduces new states).
type PaymentStatus string

const (
	PaymentStatusWaiting       PaymentStatus = "waiting"
	PaymentStatusConfirming    PaymentStatus = "confirming"
	PaymentStatusConfirmed     PaymentStatus = "confirmed"
	PaymentStatusSending       PaymentStatus = "sending"
	PaymentStatusPartiallyPaid PaymentStatus = "partially_paid"
	PaymentStatusFinished      PaymentStatus = "finished"
	PaymentStatusFailed        PaymentStatus = "failed"
	PaymentStatusExpired       PaymentStatus = "expired"
)

func ParsePaymentStatus(value string) (PaymentStatus, error) {
	status := PaymentStatus(strings.TrimSpace(strings.ToLower(value)))
	switch status {
	case PaymentStatusWaiting, PaymentStatusConfirming, PaymentStatusConfirmed,
		PaymentStatusSending, PaymentStatusPartiallyPaid, PaymentStatusFinished,
		PaymentStatusFailed, PaymentStatusExpired:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, value)
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusFinished || s == PaymentStatusFailed || s == PaymentStatusExpired
}

type Video struct {
	ID         string
	UserID     string
	Title      string
	UploadID   string
	AssetID    string
	PlaybackID string
	Status     VideoStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Payment struct {
	ID            string
	PaymentID     string
	OrderID       string
	CreatorID     string
	Kind          string
	Status        PaymentStatus
	PayAmount     float64
	PayCurrency   string
	PriceAmount   float64
	PriceCurrency string
	PurchaseID    string
	FinalizedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// WebhookEvent is an insert-only audit row for every accepted delivery.
type WebhookEvent struct {
	ID         string
	ProviderID string
	EventType  string
	ExternalID string
	Status     string
	Payload    []byte
	CreatedAt  time.Time
}

// AccessGrant records what a confirmed payment unlocked for a supporter.
type AccessGrant struct {
	ID        string
	CreatorID string
	PaymentID string
	Kind      string
	Amount    float64
	Currency  string
	CreatedAt time.Time
}

const orderIDPrefix = "xdose"

// OrderRef is the correlation encoded into the gateway order id:
// xdose_<unix-ms>_<creatorID>_<kind>.
type OrderRef struct {
	IssuedAt  time.Time
	CreatorID string
	Kind      string
}

func (r OrderRef) OrderID() string {
	issued := r.IssuedAt
	if issued.IsZero() {
		issued = time.Now()
	}
	kind := strings.TrimSpace(r.Kind)
	if kind == "" {
		kind = "unknown"
	}
	return fmt.Sprintf("%s_%d_%s_%s", orderIDPrefix, issued.UnixMilli(), strings.TrimSpace(r.CreatorID), kind)
}

func ParseOrderID(orderID string) (OrderRef, error) {
	parts := strings.Split(strings.TrimSpace(orderID), "_")
	if len(parts) < 3 || parts[0] != orderIDPrefix {
		return OrderRef{}, fmt.Errorf("%w: %q", ErrInvalidOrderID, orderID)
	}
	millis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return OrderRef{}, fmt.Errorf("%w: %q", ErrInvalidOrderID, orderID)
	}
	if strings.TrimSpace(parts[2]) == "" {
		return OrderRef{}, fmt.Errorf("%w: %q", ErrInvalidOrderID, orderID)
	}
	ref := OrderRef{
		IssuedAt:  time.UnixMilli(millis).UTC(),
		CreatorID: parts[2],
		Kind:      "unknown",
	}
	if len(parts) > 3 && strings.TrimSpace(parts[3]) != "" {
		ref.Kind = parts[3]
	}
	return ref, nil
}
