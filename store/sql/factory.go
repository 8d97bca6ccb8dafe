package sqlstore

import (
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-hostbridge/core"
	"github.com/uptrace/bun"
)

// RepositoryFactory assembles the SQL-backed stores from a persistence
// client or a raw bun handle.
type RepositoryFactory struct {
	db *bun.DB

	usageStore   *UsageStore
	balanceStore *BalanceStore
}

func NewRepositoryFactory() *RepositoryFactory {
	return &RepositoryFactory{}
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory()
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.usageStore != nil && f.balanceStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) UsageStore() core.UsageSink {
	if f == nil || f.usageStore == nil {
		return nil
	}
	return f.usageStore
}

func (f *RepositoryFactory) BalanceStore() core.BalanceStore {
	if f == nil || f.balanceStore == nil {
		return nil
	}
	return f.balanceStore
}

// UsagePruner exposes the retention side of the usage store for the
// background prune job.
func (f *RepositoryFactory) UsagePruner() core.UsageRetentionPruner {
	if f == nil || f.usageStore == nil {
		return nil
	}
	return f.usageStore
}

func (f *RepositoryFactory) initStores() error {
	usageStore, err := NewUsageStore(f.db)
	if err != nil {
		return err
	}
	f.usageStore = usageStore

	balanceStore, err := NewBalanceStore(f.db)
	if err != nil {
		return err
	}
	f.balanceStore = balanceStore
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
