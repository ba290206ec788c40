package sqlstore

import "github.com/xdose/go-ingest/core"

var (
	_ core.VideoStore        = (*VideoStore)(nil)
	_ core.PaymentStore      = (*PaymentStore)(nil)
	_ core.WebhookEventStore = (*WebhookEventStore)(nil)
	_ core.GrantStore        = (*GrantStore)(nil)
)
