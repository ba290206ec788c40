package core

import (
	"fmt"
	"strings"
	"time"
)

type ServerConfig struct {
	Addr            string        `koanf:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
	Debug  bool   `koanf:"debug" mapstructure:"debug"`
}

type MuxConfig struct {
	TokenID       string `koanf:"token_id" mapstructure:"token_id"`
	TokenSecret   string `koanf:"token_secret" mapstructure:"token_secret"`
	WebhookSecret string `koanf:"webhook_secret" mapstructure:"webhook_secret"`
	BaseURL       string `koanf:"base_url" mapstructure:"base_url"`
}

type NowPaymentsConfig struct {
	APIKey      string `koanf:"api_key" mapstructure:"api_key"`
	IPNSecret   string `koanf:"ipn_secret" mapstructure:"ipn_secret"`
	BaseURL     string `koanf:"base_url" mapstructure:"base_url"`
	CallbackURL string `koanf:"callback_url" mapstructure:"callback_url"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	Server      ServerConfig      `koanf:"server" mapstructure:"server"`
	Database    DatabaseConfig    `koanf:"database" mapstructure:"database"`
	Mux         MuxConfig         `koanf:"mux" mapstructure:"mux"`
	NowPayments NowPaymentsConfig `koanf:"nowpayments" mapstructure:"nowpayments"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "ingest",
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			DSN:    "file:ingest.db?_foreign_keys=on",
		},
		Mux: MuxConfig{
			BaseURL: "https://api.mux.com",
		},
		NowPayments: NowPaymentsConfig{
			BaseURL: "https://api.nowpayments.io/v1",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("core: server.addr is required")
	}
	if strings.TrimSpace(c.Database.Driver) == "" {
		return fmt.Errorf("core: database.driver is required")
	}
	return nil
}
