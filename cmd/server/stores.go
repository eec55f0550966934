package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/starter/pkg/config"
	"github.com/dmitrymomot/starter/pkg/logger"
	"github.com/dmitrymomot/starter/pkg/mongo"
	"github.com/dmitrymomot/starter/pkg/pg"
	"github.com/dmitrymomot/starter/pkg/ratelimiter"
	"github.com/dmitrymomot/starter/pkg/redis"
	"github.com/dmitrymomot/starter/pkg/session"
	accountsvc "github.com/dmitrymomot/starter/svc/account"
)

type healthcheck = func(context.Context) error

type userStore struct {
	store  accountsvc.Store
	checks []healthcheck
	close  func(context.Context)
}

// openUserStore connects the credential store selected by driver and
// prepares its schema.
func openUserStore(ctx context.Context, driver string, log *slog.Logger) (*userStore, error) {
	switch driver {
	case "memory", "":
		log.WarnContext(ctx, "using in-memory credential store; accounts are lost on restart")
		return &userStore{store: accountsvc.NewMemoryStore(), close: func(context.Context) {}}, nil

	case "mongo":
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		db, err := mongo.ConnectDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		store := accountsvc.NewMongoStore(db, accountsvc.DefaultMongoCollection)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, err
		}
		return &userStore{
			store:  store,
			checks: []healthcheck{mongo.Healthcheck(db.Client())},
			close: func(ctx context.Context) {
				if err := db.Client().Disconnect(ctx); err != nil {
					log.ErrorContext(ctx, "failed to disconnect mongodb", logger.Error(err))
				}
			},
		}, nil

	case "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, accountsvc.Migrations, accountsvc.MigrationsDir, cfg, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &userStore{
			store:  accountsvc.NewPostgresStore(pool),
			checks: []healthcheck{pg.Healthcheck(pool)},
			close:  func(context.Context) { pool.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q: expected memory, mongo or postgres", driver)
}

// redisBackend connects on first use so deployments without Redis never
// dial it.
type redisBackend struct {
	client *goredis.Client
	log    *slog.Logger
}

func (b *redisBackend) get(ctx context.Context) (*goredis.Client, error) {
	if b.client != nil {
		return b.client, nil
	}
	var cfg redis.Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.client = client
	return client, nil
}

func (b *redisBackend) checks() []healthcheck {
	if b.client == nil {
		return nil
	}
	return []healthcheck{redis.Healthcheck(b.client)}
}

func (b *redisBackend) close(ctx context.Context) {
	if b.client == nil {
		return
	}
	if err := b.client.Close(); err != nil {
		b.log.ErrorContext(ctx, "failed to close redis client", logger.Error(err))
	}
}

type closer interface{ Close() error }

func openSessionStore(ctx context.Context, cfg session.Config, rb *redisBackend) (session.Store, error) {
	switch cfg.Store {
	case "memory", "":
		return session.NewMemoryStore(cfg.CleanupInterval), nil
	case "redis":
		client, err := rb.get(ctx)
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(client, cfg.KeyPrefix), nil
	}
	return nil, fmt.Errorf("unknown SESSION_STORE %q: expected memory or redis", cfg.Store)
}

func openRateLimitStore(ctx context.Context, cfg ratelimiter.Config, rb *redisBackend) (ratelimiter.Store, error) {
	switch cfg.Store {
	case "memory", "":
		return ratelimiter.NewMemoryStore(time.Hour), nil
	case "redis":
		client, err := rb.get(ctx)
		if err != nil {
			return nil, err
		}
		return ratelimiter.NewRedisStore(client, cfg.KeyPrefix), nil
	}
	return nil, fmt.Errorf("unknown RATE_LIMIT_STORE %q: expected memory or redis", cfg.Store)
}
