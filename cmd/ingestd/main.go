package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/xdose/go-ingest/adapters/gojob"
	"github.com/xdose/go-ingest/command"
	"github.com/xdose/go-ingest/core"
	"github.com/xdose/go-ingest/httpapi"
	"github.com/xdose/go-ingest/jobs"
	ingestmigrations "github.com/xdose/go-ingest/migrations"
	"github.com/xdose/go-ingest/payments"
	"github.com/xdose/go-ingest/providers/mux"
	"github.com/xdose/go-ingest/providers/nowpayments"
	sqlstore "github.com/xdose/go-ingest/store/sql"
	"github.com/xdose/go-ingest/webhooks"
)

const sweepInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ingestd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A missing .env file is fine; the environment may be set by the host.
	_ = godotenv.Load()

	provider := core.NewCfgxConfigProvider(core.StaticRawConfigLoader{Values: envConfigValues()})
	loaded, err := provider.Load(ctx, core.DefaultConfig())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	runtime, err := runtimeOverrides(os.Args[1:])
	if err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	cfg, err := core.GoOptionsResolver{}.Resolve(core.DefaultConfig(), loaded, runtime)
	if err != nil {
		return fmt.Errorf("resolve config: %w", err)
	}

	loggerProvider, logger := glog.Resolve(cfg.ServiceName, nil, nil)
	logger = glog.Ensure(logger)
	if loggerProvider != nil {
		if named := loggerProvider.GetLogger(cfg.ServiceName); named != nil {
			logger = glog.Ensure(named)
		}
	}

	client, err := openPersistence(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		return fmt.Errorf("build stores: %w", err)
	}

	cacheService, err := repositorycache.NewCacheService(repositorycache.DefaultConfig())
	if err != nil {
		return fmt.Errorf("build cache service: %w", err)
	}
	videos, err := sqlstore.NewCachedVideoStore(factory.VideoStore(), cacheService)
	if err != nil {
		return fmt.Errorf("build cached video store: %w", err)
	}
	paymentStore := factory.PaymentStore()

	lifecycle, err := payments.NewLifecycle(paymentStore, factory.GrantStore(), logger)
	if err != nil {
		return fmt.Errorf("build payment lifecycle: %w", err)
	}
	subscriptions := command.Subscribe(lifecycle)
	defer func() {
		for _, subscription := range subscriptions {
			subscription.Unsubscribe()
		}
	}()
	dispatcher := command.BusDispatcher{}

	muxProcessor := webhooks.NewProcessor(
		webhooks.NewMuxWebhookTemplate(cfg.Mux.WebhookSecret),
		mux.NewWebhookHandler(videos, logger),
	)
	muxProcessor.Events = factory.WebhookEventStore()
	muxProcessor.Logger = logger

	paymentProcessor := webhooks.NewProcessor(
		webhooks.NewNowPaymentsWebhookTemplate(cfg.NowPayments.IPNSecret),
		nowpayments.NewWebhookHandler(paymentStore, dispatcher, logger),
	)
	paymentProcessor.Events = factory.WebhookEventStore()
	paymentProcessor.Logger = logger

	deps := httpapi.Dependencies{
		MuxWebhooks:     muxProcessor,
		PaymentWebhooks: paymentProcessor,
		Videos:          videos,
		Payments:        paymentStore,
		Logger:          logger,
	}

	if strings.TrimSpace(cfg.Mux.TokenID) != "" {
		muxClient, clientErr := mux.NewClient(mux.ConfigFromCore(cfg.Mux))
		if clientErr != nil {
			return fmt.Errorf("build video provider client: %w", clientErr)
		}
		deps.Uploads = muxClient
	} else {
		core.LogWarn(ctx, logger, "video provider credentials missing, upload endpoint disabled", nil)
	}

	var gatewayClient *nowpayments.Client
	if strings.TrimSpace(cfg.NowPayments.APIKey) != "" {
		gatewayClient, err = nowpayments.NewClient(nowpayments.ConfigFromCore(cfg.NowPayments))
		if err != nil {
			return fmt.Errorf("build payment gateway client: %w", err)
		}
		deps.Gateway = gatewayClient
	} else {
		core.LogWarn(ctx, logger, "payment gateway credentials missing, payment endpoints disabled", nil)
	}

	if gatewayClient != nil {
		policy := gojob.RetryPolicy{
			MaxAttempts: 5,
			MaxDelay:    2 * time.Minute,
		}
		queue := jobs.NewMemoryQueue(64, policy)
		defer queue.Close()
		enqueuer := gojob.NewEnqueuerAdapter(queue)
		dequeuer := gojob.NewDequeuerAdapter(queue, policy)

		sweeper, sweepErr := jobs.NewPaymentSweeper(paymentStore, gatewayClient, dispatcher, logger)
		if sweepErr != nil {
			return fmt.Errorf("build payment sweeper: %w", sweepErr)
		}
		runner, runErr := jobs.NewRunner(dequeuer, sweeper, logger)
		if runErr != nil {
			return fmt.Errorf("build job runner: %w", runErr)
		}

		go func() {
			_ = runner.Run(ctx)
		}()
		go scheduleSweeps(ctx, enqueuer, logger)
	}

	server, err := httpapi.NewServer(cfg.Server, deps)
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}
	return server.Run(ctx)
}

func openPersistence(ctx context.Context, cfg core.DatabaseConfig) (*persistence.Client, error) {
	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.Driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(persistenceConfig{cfg: cfg}, sqlDB, dialectFor(cfg.Driver))
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("build persistence client: %w", err)
	}

	dialect := ingestmigrations.DialectSQLite
	if cfg.Driver == "postgres" {
		dialect = ingestmigrations.DialectPostgres
	}
	err = ingestmigrations.Apply(ctx, func(_ context.Context, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, dialect)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("register migrations: %w", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return client, nil
}

func dialectFor(driver string) schema.Dialect {
	if driver == "postgres" {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

// runtimeOverrides parses command line flags into the highest-precedence
// config layer: flags win over the environment, which wins over defaults.
func runtimeOverrides(args []string) (core.Config, error) {
	flags := flag.NewFlagSet("ingestd", flag.ContinueOnError)
	addr := flags.String("addr", "", "listen address")
	driver := flags.String("db-driver", "", "database driver")
	dsn := flags.String("db-dsn", "", "database DSN")
	if err := flags.Parse(args); err != nil {
		return core.Config{}, err
	}

	var cfg core.Config
	cfg.Server.Addr = strings.TrimSpace(*addr)
	cfg.Database.Driver = strings.TrimSpace(*driver)
	cfg.Database.DSN = strings.TrimSpace(*dsn)
	return cfg, nil
}

func scheduleSweeps(ctx context.Context, enqueuer core.JobEnqueuer, logger core.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			if err := jobs.EnqueueSweep(ctx, enqueuer, at); err != nil {
				core.LogWarn(ctx, logger, "enqueue payment sweep failed", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}
}

type persistenceConfig struct {
	cfg core.DatabaseConfig
}

func (c persistenceConfig) GetDebug() bool {
	return c.cfg.Debug
}

func (c persistenceConfig) GetDriver() string {
	return c.cfg.Driver
}

func (c persistenceConfig) GetServer() string {
	return c.cfg.DSN
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "go-ingest"
}

// envConfigValues maps INGEST_* environment variables onto the nested config
// shape. Secrets never get logged from here.
func envConfigValues() map[string]any {
	values := map[string]any{}
	setIfPresent(values, "service_name", "INGEST_SERVICE_NAME")

	server := map[string]any{}
	setIfPresent(server, "addr", "INGEST_SERVER_ADDR")
	if raw := strings.TrimSpace(os.Getenv("INGEST_SERVER_SHUTDOWN_TIMEOUT")); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			server["shutdown_timeout"] = parsed
		}
	}
	if len(server) > 0 {
		values["server"] = server
	}

	database := map[string]any{}
	setIfPresent(database, "driver", "INGEST_DATABASE_DRIVER")
	setIfPresent(database, "dsn", "INGEST_DATABASE_DSN")
	if raw := strings.TrimSpace(os.Getenv("INGEST_DATABASE_DEBUG")); raw != "" {
		database["debug"] = strings.EqualFold(raw, "true") || raw == "1"
	}
	if len(database) > 0 {
		values["database"] = database
	}

	muxValues := map[string]any{}
	setIfPresent(muxValues, "token_id", "INGEST_MUX_TOKEN_ID")
	setIfPresent(muxValues, "token_secret", "INGEST_MUX_TOKEN_SECRET")
	setIfPresent(muxValues, "webhook_secret", "INGEST_MUX_WEBHOOK_SECRET")
	setIfPresent(muxValues, "base_url", "INGEST_MUX_BASE_URL")
	if len(muxValues) > 0 {
		values["mux"] = muxValues
	}

	gateway := map[string]any{}
	setIfPresent(gateway, "api_key", "INGEST_NOWPAYMENTS_API_KEY")
	setIfPresent(gateway, "ipn_secret", "INGEST_NOWPAYMENTS_IPN_SECRET")
	setIfPresent(gateway, "base_url", "INGEST_NOWPAYMENTS_BASE_URL")
	setIfPresent(gateway, "callback_url", "INGEST_NOWPAYMENTS_CALLBACK_URL")
	if len(gateway) > 0 {
		values["nowpayments"] = gateway
	}

	return values
}

func setIfPresent(target map[string]any, key string, envName string) {
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		target[key] = value
	}
}
