package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/quotakit/pkg/config"
	"github.com/dmitrymomot/quotakit/pkg/httpserver"
	"github.com/dmitrymomot/quotakit/pkg/logger"
	"github.com/dmitrymomot/quotakit/pkg/mongo"
	"github.com/dmitrymomot/quotakit/pkg/pg"
	"github.com/dmitrymomot/quotakit/pkg/quota"
	"github.com/dmitrymomot/quotakit/pkg/redis"
	"github.com/dmitrymomot/quotakit/pkg/wallet"
	"github.com/dmitrymomot/quotakit/pkg/wallet/mongostore"
	"github.com/dmitrymomot/quotakit/pkg/wallet/pgstore"
	"github.com/dmitrymomot/quotakit/pkg/wallet/redisstore"
)

// backend is an opened wallet store together with its readiness probes and
// cleanup.
type backend struct {
	store  wallet.Store
	probes map[string]httpserver.Probe
	close  func(context.Context) error
}

func openBackend(ctx context.Context, app appConfig, qcfg quota.Config, log *slog.Logger) (*backend, error) {
	name, err := app.backend()
	if err != nil {
		return nil, err
	}
	log = log.With(logger.Backend(name))

	switch name {
	case backendPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("postgres config: %w", err)
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := pg.MigrateFS(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
			pool.Close()
			return nil, err
		}
		log.InfoContext(ctx, "wallet store ready")
		return &backend{
			store:  pgstore.New(pool),
			probes: map[string]httpserver.Probe{"postgres": pg.Healthcheck(pool)},
			close: func(context.Context) error {
				pool.Close()
				return nil
			},
		}, nil

	case backendRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("redis config: %w", err)
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.InfoContext(ctx, "wallet store ready")
		return &backend{
			store:  redisstore.New(client, redisstore.WithKeyPrefix(cfg.KeyPrefix)),
			probes: map[string]httpserver.Probe{"redis": redis.Healthcheck(client)},
			close:  func(context.Context) error { return client.Close() },
		}, nil

	case backendMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, fmt.Errorf("mongo config: %w", err)
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		coll := client.Database(cfg.Database).Collection(app.MongoCollection)
		log.InfoContext(ctx, "wallet store ready")
		return &backend{
			store:  mongostore.New(coll, mongostore.WithRetryPolicy(qcfg.RetryPolicy())),
			probes: map[string]httpserver.Probe{"mongo": mongo.Healthcheck(client)},
			close:  client.Disconnect,
		}, nil

	default:
		log.WarnContext(ctx, "using the in-memory wallet store; state is lost on restart")
		return &backend{
			store:  wallet.NewMemoryStore(),
			probes: map[string]httpserver.Probe{},
			close:  func(context.Context) error { return nil },
		}, nil
	}
}
