package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/xdose/go-ingest/core"
)

type videoRecord struct {
	bun.BaseModel `bun:"table:videos,alias:v"`

	ID         string    `bun:"id,pk"`
	UserID     string    `bun:"user_id,notnull"`
	Title      string    `bun:"title"`
	UploadID   string    `bun:"upload_id"`
	AssetID    string    `bun:"asset_id"`
	PlaybackID string    `bun:"playback_id"`
	Status     string    `bun:"status,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *videoRecord) toDomain() core.Video {
	if r == nil {
		return core.Video{}
	}
	return core.Video{
		ID:         r.ID,
		UserID:     r.UserID,
		Title:      r.Title,
		UploadID:   r.UploadID,
		AssetID:    r.AssetID,
		PlaybackID: r.PlaybackID,
		Status:     core.VideoStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

type paymentRecord struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID            string     `bun:"id,pk"`
	PaymentID     string     `bun:"payment_id,notnull"`
	OrderID       string     `bun:"order_id,notnull"`
	CreatorID     string     `bun:"creator_id,notnull"`
	Kind          string     `bun:"kind,notnull"`
	Status        string     `bun:"status,notnull"`
	PayAmount     float64    `bun:"pay_amount"`
	PayCurrency   string     `bun:"pay_currency"`
	PriceAmount   float64    `bun:"price_amount"`
	PriceCurrency string     `bun:"price_currency"`
	PurchaseID    string     `bun:"purchase_id"`
	FinalizedAt   *time.Time `bun:"finalized_at,nullzero"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func (r *paymentRecord) toDomain() core.Payment {
	if r == nil {
		return core.Payment{}
	}
	return core.Payment{
		ID:            r.ID,
		PaymentID:     r.PaymentID,
		OrderID:       r.OrderID,
		CreatorID:     r.CreatorID,
		Kind:          r.Kind,
		Status:        core.PaymentStatus(r.Status),
		PayAmount:     r.PayAmount,
		PayCurrency:   r.PayCurrency,
		PriceAmount:   r.PriceAmount,
		PriceCurrency: r.PriceCurrency,
		PurchaseID:    r.PurchaseID,
		FinalizedAt:   r.FinalizedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:webhook_events,alias:we"`

	ID         string    `bun:"id,pk"`
	ProviderID string    `bun:"provider_id,notnull"`
	EventType  string    `bun:"event_type"`
	ExternalID string    `bun:"external_id"`
	Status     string    `bun:"status,notnull"`
	Payload    []byte    `bun:"payload"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type accessGrantRecord struct {
	bun.BaseModel `bun:"table:access_grants,alias:ag"`

	ID        string    `bun:"id,pk"`
	CreatorID string    `bun:"creator_id,notnull"`
	PaymentID string    `bun:"payment_id,notnull"`
	Kind      string    `bun:"kind,notnull"`
	Amount    float64   `bun:"amount"`
	Currency  string    `bun:"currency"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (r *accessGrantRecord) toDomain() core.AccessGrant {
	if r == nil {
		return core.AccessGrant{}
	}
	return core.AccessGrant{
		ID:        r.ID,
		CreatorID: r.CreatorID,
		PaymentID: r.PaymentID,
		Kind:      r.Kind,
		Amount:    r.Amount,
		Currency:  r.Currency,
		CreatedAt: r.CreatedAt,
	}
}
