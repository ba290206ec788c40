package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/xdose/go-ingest/core"
)

// WebhookEventStore is the insert-only audit trail for verified deliveries.
type WebhookEventStore struct {
	db   *bun.DB
	repo repository.Repository[*webhookEventRecord]
}

func (s *WebhookEventStore) Record(ctx context.Context, event core.WebhookEvent) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	if strings.TrimSpace(event.ProviderID) == "" {
		return fmt.Errorf("sqlstore: provider id is required")
	}

	id := strings.TrimSpace(event.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.repo.Create(ctx, &webhookEventRecord{
		ID:         id,
		ProviderID: strings.TrimSpace(event.ProviderID),
		EventType:  strings.TrimSpace(event.EventType),
		ExternalID: strings.TrimSpace(event.ExternalID),
		Status:     strings.TrimSpace(event.Status),
		Payload:    event.Payload,
		CreatedAt:  createdAt,
	})
	return err
}

// ListRecent returns the newest audit rows for a provider, most recent first.
func (s *WebhookEventStore) ListRecent(ctx context.Context, providerID string, limit int) ([]core.WebhookEvent, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: webhook event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(limit, 0),
	}
	if providerID = strings.TrimSpace(providerID); providerID != "" {
		selectors = append(selectors, repository.SelectBy("provider_id", "=", providerID))
	}

	records, _, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return nil, err
	}

	out := make([]core.WebhookEvent, 0, len(records))
	for _, record := range records {
		out = append(out, core.WebhookEvent{
			ID:         record.ID,
			ProviderID: record.ProviderID,
			EventType:  record.EventType,
			ExternalID: record.ExternalID,
			Status:     record.Status,
			Payload:    record.Payload,
			CreatedAt:  record.CreatedAt,
		})
	}
	return out, nil
}
