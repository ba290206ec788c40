package mux

import (
	"strings"

	"github.com/xdose/go-ingest/core"
	"github.com/xdose/go-ingest/webhooks"
)

const ProviderID = "mux"

type Config struct {
	TokenID       string
	TokenSecret   string
	WebhookSecret string
	BaseURL       string
}

func ConfigFromCore(cfg core.MuxConfig) Config {
	return Config{
		TokenID:       strings.TrimSpace(cfg.TokenID),
		TokenSecret:   strings.TrimSpace(cfg.TokenSecret),
		WebhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		BaseURL:       strings.TrimSpace(cfg.BaseURL),
	}
}

func NewWebhookTemplate(cfg Config) webhooks.ProviderWebhookTemplate {
	template := webhooks.NewMuxWebhookTemplate(cfg.WebhookSecret)
	template.ProviderID = ProviderID
	return template
}
