// Package bootstrap turns a Config into a ready event store and ticket
// service.  Both the HTTP server and ticketctl start through it so they
// always agree on storage and concurrency settings.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-ticket-vault/internal/config"
	"github.com/iliyamo/event-ticket-vault/internal/database"
	"github.com/iliyamo/event-ticket-vault/internal/lock"
	"github.com/iliyamo/event-ticket-vault/internal/logger"
	"github.com/iliyamo/event-ticket-vault/internal/queue"
	"github.com/iliyamo/event-ticket-vault/internal/repository"
	"github.com/iliyamo/event-ticket-vault/internal/repository/postgres"
	"github.com/iliyamo/event-ticket-vault/internal/service"
)

// Store is an opened event store with its health probe and cleanup.
type Store struct {
	service.EventStore
	Ping  func(ctx context.Context) error // nil for the in-memory store
	Close func()
}

// OpenStore connects the backend selected by cfg.StoreDriver and makes
// sure its schema exists.
func OpenStore(ctx context.Context, cfg config.Config) (*Store, error) {
	defer logger.LogExecutionTime(ctx, time.Now(), "open "+cfg.StoreDriver+" store")
	switch cfg.StoreDriver {
	case config.DriverMySQL:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		repo := repository.NewEventRepo(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Store{EventStore: repo, Ping: db.PingContext, Close: func() { _ = db.Close() }}, nil

	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewEventRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &Store{EventStore: repo, Ping: pool.Ping, Close: pool.Close}, nil

	case config.DriverMemory:
		logger.Warnf(ctx, "using in-memory event store; data is lost on exit")
		return &Store{EventStore: repository.NewMemoryEventRepo(), Close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// NewService builds the ticket service.  With a Redis client, mutations
// are serialised across replicas; without one, only within this process.
// pub may be nil.
func NewService(cfg config.Config, store service.EventStore, rdb *redis.Client, pub *queue.Publisher) *service.TicketService {
	var locker lock.Locker
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, cfg.LockWait)
	} else {
		locker = lock.NewLocalLocker(cfg.LockWait)
	}
	opts := []service.Option{
		service.WithLocker(locker),
		service.WithMaxRetries(cfg.CASMaxRetries),
		service.WithMaxTickets(cfg.MaxTicketsPerEvent),
		service.WithDigest(cfg.DefaultDigest),
	}
	if pub != nil {
		opts = append(opts, service.WithPublisher(pub))
	}
	return service.NewTicketService(store, opts...)
}
