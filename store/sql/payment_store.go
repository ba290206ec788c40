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

type PaymentStore struct {
	db   *bun.DB
	repo repository.Repository[*paymentRecord]
}

func (s *PaymentStore) Create(ctx context.Context, in core.CreatePaymentInput) (core.Payment, error) {
	if s == nil || s.repo == nil {
		return core.Payment{}, fmt.Errorf("sqlstore: payment store is not configured")
	}
	if strings.TrimSpace(in.PaymentID) == "" {
		return core.Payment{}, fmt.Errorf("sqlstore: payment id is required")
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return core.Payment{}, fmt.Errorf("sqlstore: order id is required")
	}
	if strings.TrimSpace(in.CreatorID) == "" {
		return core.Payment{}, fmt.Errorf("sqlstore: creator id is required")
	}

	status := in.Status
	if strings.TrimSpace(string(status)) == "" {
		status = core.PaymentStatusWaiting
	}

	now := time.Now().UTC()
	record := &paymentRecord{
		ID:            uuid.NewString(),
		PaymentID:     strings.TrimSpace(in.PaymentID),
		OrderID:       strings.TrimSpace(in.OrderID),
		CreatorID:     strings.TrimSpace(in.CreatorID),
		Kind:          strings.TrimSpace(in.Kind),
		Status:        string(status),
		PayAmount:     in.PayAmount,
		PayCurrency:   strings.TrimSpace(in.PayCurrency),
		PriceAmount:   in.PriceAmount,
		PriceCurrency: strings.TrimSpace(in.PriceCurrency),
		PurchaseID:    strings.TrimSpace(in.PurchaseID),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Payment{}, err
	}
	return created.toDomain(), nil
}

func (s *PaymentStore) GetByPaymentID(ctx context.Context, paymentID string) (core.Payment, error) {
	if s == nil || s.repo == nil {
		return core.Payment{}, fmt.Errorf("sqlstore: payment store is not configured")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return core.Payment{}, fmt.Errorf("sqlstore: payment id is required")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("payment_id", "=", paymentID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.Payment{}, err
	}
	if len(records) == 0 {
		return core.Payment{}, fmt.Errorf("sqlstore: payment not found for gateway id %q", paymentID)
	}
	return records[0].toDomain(), nil
}

func (s *PaymentStore) UpdateStatus(ctx context.Context, paymentID string, status core.PaymentStatus) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: payment store is not configured")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return 0, fmt.Errorf("sqlstore: payment id is required")
	}

	res, err := s.db.NewUpdate().
		Model((*paymentRecord)(nil)).
		Set("status = ?", string(status)).
		Set("updated_at = ?", time.Now().UTC()).
		Where("payment_id = ?", paymentID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

func (s *PaymentStore) MarkFinalized(ctx context.Context, paymentID string, finalizedAt time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: payment store is not configured")
	}
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return 0, fmt.Errorf("sqlstore: payment id is required")
	}
	if finalizedAt.IsZero() {
		finalizedAt = time.Now().UTC()
	}

	res, err := s.db.NewUpdate().
		Model((*paymentRecord)(nil)).
		Set("status = ?", string(core.PaymentStatusFinished)).
		Set("finalized_at = ?", finalizedAt.UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("payment_id = ?", paymentID).
		Where("finalized_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}

// ListStale returns non-terminal payments that have not been touched since
// the cutoff; the sweep job polls the gateway for each one.
func (s *PaymentStore) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]core.Payment, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: payment store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	var records []*paymentRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("status IN (?)", bun.In([]string{
			string(core.PaymentStatusWaiting),
			string(core.PaymentStatusConfirming),
			string(core.PaymentStatusConfirmed),
			string(core.PaymentStatusSending),
			string(core.PaymentStatusPartiallyPaid),
		})).
		Where("updated_at < ?", olderThan.UTC()).
		OrderExpr("updated_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.Payment, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}
