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

type GrantStore struct {
	db   *bun.DB
	repo repository.Repository[*accessGrantRecord]
}

func (s *GrantStore) Create(ctx context.Context, in core.CreateGrantInput) (core.AccessGrant, error) {
	if s == nil || s.repo == nil {
		return core.AccessGrant{}, fmt.Errorf("sqlstore: grant store is not configured")
	}
	if strings.TrimSpace(in.CreatorID) == "" {
		return core.AccessGrant{}, fmt.Errorf("sqlstore: creator id is required")
	}
	if strings.TrimSpace(in.PaymentID) == "" {
		return core.AccessGrant{}, fmt.Errorf("sqlstore: payment id is required")
	}

	// One grant per payment. The unique index on payment_id backs this up;
	// re-running finalization reuses the existing row.
	existing, _, err := s.repo.List(ctx,
		repository.SelectBy("payment_id", "=", strings.TrimSpace(in.PaymentID)),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.AccessGrant{}, err
	}
	if len(existing) > 0 {
		return existing[0].toDomain(), nil
	}

	record := &accessGrantRecord{
		ID:        uuid.NewString(),
		CreatorID: strings.TrimSpace(in.CreatorID),
		PaymentID: strings.TrimSpace(in.PaymentID),
		Kind:      strings.TrimSpace(in.Kind),
		Amount:    in.Amount,
		Currency:  strings.TrimSpace(in.Currency),
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.AccessGrant{}, err
	}
	return created.toDomain(), nil
}
