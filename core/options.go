package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded < runtime, so a secret passed at
// construction always wins over one read from the environment.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	server := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Server.Addr) != "" {
		server["addr"] = cfg.Server.Addr
	}
	if includeZero || cfg.Server.ShutdownTimeout > 0 {
		server["shutdown_timeout"] = cfg.Server.ShutdownTimeout
	}
	if len(server) > 0 {
		layer["server"] = server
	}

	database := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Database.Driver) != "" {
		database["driver"] = cfg.Database.Driver
	}
	if includeZero || strings.TrimSpace(cfg.Database.DSN) != "" {
		database["dsn"] = cfg.Database.DSN
	}
	if includeZero || cfg.Database.Debug {
		database["debug"] = cfg.Database.Debug
	}
	if len(database) > 0 {
		layer["database"] = database
	}

	mux := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Mux.TokenID) != "" {
		mux["token_id"] = cfg.Mux.TokenID
	}
	if includeZero || strings.TrimSpace(cfg.Mux.TokenSecret) != "" {
		mux["token_secret"] = cfg.Mux.TokenSecret
	}
	if includeZero || strings.TrimSpace(cfg.Mux.WebhookSecret) != "" {
		mux["webhook_secret"] = cfg.Mux.WebhookSecret
	}
	if includeZero || strings.TrimSpace(cfg.Mux.BaseURL) != "" {
		mux["base_url"] = cfg.Mux.BaseURL
	}
	if len(mux) > 0 {
		layer["mux"] = mux
	}

	nowpayments := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.NowPayments.APIKey) != "" {
		nowpayments["api_key"] = cfg.NowPayments.APIKey
	}
	if includeZero || strings.TrimSpace(cfg.NowPayments.IPNSecret) != "" {
		nowpayments["ipn_secret"] = cfg.NowPayments.IPNSecret
	}
	if includeZero || strings.TrimSpace(cfg.NowPayments.BaseURL) != "" {
		nowpayments["base_url"] = cfg.NowPayments.BaseURL
	}
	if includeZero || strings.TrimSpace(cfg.NowPayments.CallbackURL) != "" {
		nowpayments["callback_url"] = cfg.NowPayments.CallbackURL
	}
	if len(nowpayments) > 0 {
		layer["nowpayments"] = nowpayments
	}

	return layer
}
