package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/Welison92/luestilo-backoffice/internal/domain"
	"github.com/Welison92/luestilo-backoffice/internal/storage/fsstore"
	"github.com/Welison92/luestilo-backoffice/internal/storage/memory"
	"github.com/Welison92/luestilo-backoffice/internal/storage/postgres"
)

// Repositories объединяет все хранилища приложения.
type Repositories struct {
	Products domain.ProductRepository
	Clients  domain.ClientRepository
	Users    domain.UserRepository
	Orders   domain.OrderRepository
	Sessions domain.SessionRepository
	History  domain.HistoryRepository
	Outbox   domain.OutboxRepository

	// Store — подключение к postgres; nil для memory-драйвера.
	Store *postgres.Store
}

// Close освобождает подключение к базе, если оно было открыто.
func (r *Repositories) Close() error {
	if r.Store == nil {
		return nil
	}
	return r.Store.Close()
}

// initStorage создаёт набор репозиториев для выбранного драйвера.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*Repositories, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory:
		logger.Info("using in-memory storage")
		products := memory.NewProductRepository()
		return &Repositories{
			Products: products,
			Clients:  memory.NewClientRepository(),
			Users:    memory.NewUserRepository(),
			Orders:   memory.NewOrderRepository(products),
			Sessions: memory.NewSessionRepository(),
			History:  memory.NewHistoryRepository(),
			Outbox:   memory.NewOutboxRepository(),
		}, nil

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}

		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
			logger.Info("postgres schema is up to date")
		}

		logger.Info("using postgres storage")
		return &Repositories{
			Products: postgres.NewProductRepository(store),
			Clients:  postgres.NewClientRepository(store),
			Users:    postgres.NewUserRepository(store),
			Orders:   postgres.NewOrderRepository(store),
			Sessions: postgres.NewSessionRepository(store),
			History:  postgres.NewHistoryRepository(store),
			Outbox:   postgres.NewOutboxRepository(store),
			Store:    store,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// initFileStore создаёт файловое хранилище изображений товаров.
func initFileStore(cfg Config) (*fsstore.Store, error) {
	if cfg.StaticDir == "" {
		return nil, fmt.Errorf("static dir is not configured")
	}
	return fsstore.New(cfg.StaticDir, "/static"), nil
}
