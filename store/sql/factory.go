package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db *bun.DB

	videoStore        *VideoStore
	paymentStore      *PaymentStore
	webhookEventStore *WebhookEventStore
	grantStore        *GrantStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.videoStore != nil && f.paymentStore != nil {
		return nil
	}
	return f.initStores()
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) VideoStore() *VideoStore {
	if f == nil {
		return nil
	}
	return f.videoStore
}

func (f *RepositoryFactory) PaymentStore() *PaymentStore {
	if f == nil {
		return nil
	}
	return f.paymentStore
}

func (f *RepositoryFactory) WebhookEventStore() *WebhookEventStore {
	if f == nil {
		return nil
	}
	return f.webhookEventStore
}

func (f *RepositoryFactory) GrantStore() *GrantStore {
	if f == nil {
		return nil
	}
	return f.grantStore
}

func (f *RepositoryFactory) initStores() error {
	videoRepo := repository.NewRepository[*videoRecord](f.db, videoHandlers())
	if validator, ok := videoRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid video repository wiring: %w", err)
		}
	}

	paymentRepo := repository.NewRepository[*paymentRecord](f.db, paymentHandlers())
	if validator, ok := paymentRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid payment repository wiring: %w", err)
		}
	}

	f.videoStore = &VideoStore{
		db:   f.db,
		repo: videoRepo,
	}
	f.paymentStore = &PaymentStore{
		db:   f.db,
		repo: paymentRepo,
	}
	f.webhookEventStore = &WebhookEventStore{
		db:   f.db,
		repo: repository.NewRepository[*webhookEventRecord](f.db, webhookEventHandlers()),
	}
	f.grantStore = &GrantStore{
		db:   f.db,
		repo: repository.NewRepository[*accessGrantRecord](f.db, accessGrantHandlers()),
	}
	return nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
