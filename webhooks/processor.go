package webhooks

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xdose/go-ingest/core"
)

// Handler applies one verified delivery to the tracked records.
type Handler interface {
	Handle(ctx context.Context, req core.InboundRequest) (core.InboundResult, error)
}

// Processor runs one webhook delivery through verify -> handle -> audit.
// Deliveries are stateless: no dedupe window, no internal retry. Retry
// responsibility stays with the sender via HTTP status semantics, so the
// handler must only signal failure for genuinely transient conditions.
type Processor struct {
	Template ProviderWebhookTemplate
	Handler  Handler
	Events   core.WebhookEventStore
	Logger   core.Logger
	Now      func() time.Time
}

func NewProcessor(template ProviderWebhookTemplate, handler Handler) *Processor {
	return &Processor{
		Template: template,
		Handler:  handler,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (p *Processor) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil || p.Handler == nil {
		return core.InboundResult{}, core.NewInternalError("webhooks: processor requires a handler")
	}

	providerID := strings.TrimSpace(p.Template.ProviderID)
	if providerID == "" {
		return core.InboundResult{}, core.NewInternalError("webhooks: provider id is required")
	}
	req.ProviderID = providerID

	if p.Template.Verifier != nil {
		if err := p.Template.Verifier.Verify(ctx, req); err != nil {
			core.LogWarn(ctx, p.Logger, "webhook signature rejected", map[string]any{
				"provider_id": providerID,
			})
			return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusUnauthorized,
				Response:   map[string]any{"error": "Invalid signature"},
				Metadata: map[string]any{
					"provider_id": providerID,
					"rejected":    true,
				},
			}, core.WrapAuthError(err, "webhooks: request verification failed")
		}
	}

	result, err := p.Handler.Handle(ctx, req)
	p.recordEvent(ctx, req, result, err)
	if err != nil {
		return result, err
	}

	result.Metadata = ensureMetadata(result.Metadata)
	result.Metadata["provider_id"] = providerID
	return result, nil
}

// recordEvent appends an audit row, best effort. A failed audit write never
// turns an acknowledged delivery into a sender-visible failure.
func (p *Processor) recordEvent(ctx context.Context, req core.InboundRequest, result core.InboundResult, handleErr error) {
	if p.Events == nil {
		return
	}
	status := "accepted"
	if handleErr != nil || !result.Accepted {
		status = "rejected"
	}
	event := core.WebhookEvent{
		ID:         uuid.NewString(),
		ProviderID: req.ProviderID,
		EventType:  metadataString(result.Metadata, "event_type"),
		ExternalID: metadataString(result.Metadata, "external_id"),
		Status:     status,
		Payload:    append([]byte(nil), req.Body...),
		CreatedAt:  p.now(),
	}
	if err := p.Events.Record(ctx, event); err != nil {
		core.LogError(ctx, p.Logger, "webhook audit record failed", map[string]any{
			"provider_id": req.ProviderID,
			"error":       err.Error(),
		})
	}
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return metadata
}

func metadataString(metadata map[string]any, key string) string {
	if len(metadata) == 0 {
		return ""
	}
	value := strings.TrimSpace(fmt.Sprint(metadata[key]))
	if value == "<nil>" {
		return ""
	}
	return value
}
