package nowpayments

import (
	"strings"

	"github.com/xdose/go-ingest/core"
	"github.com/xdose/go-ingest/webhooks"
)

const ProviderID = "nowpayments"

type Config struct {
	APIKey      string
	IPNSecret   string
	BaseURL     string
	CallbackURL string
}

func ConfigFromCore(cfg core.NowPaymentsConfig) Config {
	return Config{
		APIKey:      strings.TrimSpace(cfg.APIKey),
		IPNSecret:   strings.TrimSpace(cfg.IPNSecret),
		BaseURL:     strings.TrimSpace(cfg.BaseURL),
		CallbackURL: strings.TrimSpace(cfg.CallbackURL),
	}
}

func NewWebhookTemplate(cfg Config) webhooks.ProviderWebhookTemplate {
	template := webhooks.NewNowPaymentsWebhookTemplate(cfg.IPNSecret)
	template.ProviderID = ProviderID
	return template
}
