package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// InboundRequest carries one webhook delivery through verification and
// handling. Body is the exact raw bytes read off the wire; re-serializing a
// parsed form would invalidate the signature.
type InboundRequest struct {
	ProviderID string
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type InboundResult struct {
	Accepted   bool
	StatusCode int
	Response   map[string]any
	Metadata   map[string]any
}

type CreateVideoInput struct {
	UserID   string
	Title    string
	UploadID string
}

// VideoStore reconciles asset callbacks onto tracked video rows. The update
// methods return rows affected: zero matches is not an error, the caller
// acknowledges the delivery regardless.
type VideoStore interface {
	Create(ctx context.Context, in CreateVideoInput) (Video, error)
	Get(ctx context.Context, id string) (Video, error)
	GetByAssetID(ctx context.Context, assetID string) (Video, error)
	AttachAssetByUploadID(
		ctx context.Context,
		uploadID string,
		assetID string,
		status VideoStatus,
		playbackID string,
	) (int64, error)
	UpdateStatusByAssetID(
		ctx context.Context,
		assetID string,
		status VideoStatus,
		playbackID string,
	) (int64, error)
}

type CreatePaymentInput struct {
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
}

type PaymentStore interface {
	Create(ctx context.Context, in CreatePaymentInput) (Payment, error)
	GetByPaymentID(ctx context.Context, paymentID string) (Payment, error)
	UpdateStatus(ctx context.Context, paymentID string, status PaymentStatus) (int64, error)
	MarkFinalized(ctx context.Context, paymentID string, finalizedAt time.Time) (int64, error)
	ListStale(ctx context.Context, olderThan time.Time, limit int) ([]Payment, error)
}

type WebhookEventStore interface {
	Record(ctx context.Context, event WebhookEvent) error
}

type CreateGrantInput struct {
	CreatorID string
	PaymentID string
	Kind      string
	Amount    float64
	Currency  string
}

type GrantStore interface {
	Create(ctx context.Context, in CreateGrantInput) (AccessGrant, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// Job contracts decouple enqueue/consume call sites from the queue library;
// adapters/gojob maps them onto go-job.
type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}
