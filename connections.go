package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-reservation/internal/clock"
	"ms-reservation/internal/config"
	"ms-reservation/internal/database/migrations"
	"ms-reservation/internal/logger"
	"ms-reservation/internal/reservation/cache"
)

const (
	connectRetries    = 5
	connectRetryDelay = 2 * time.Second
)

// openDatabase connects to the configured driver and brings the schema up to
// date.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	switch cfg.Driver {
	case "sqlite":
		return openSQLite(ctx, cfg, log)
	case "postgres":
		return openPostgres(cfg, log)
	default:
		log.Fatal("CONFIG", fmt.Sprintf("unsupported DB_DRIVER %q (want postgres or sqlite)", cfg.Driver))
		return nil
	}
}

func openPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error

	for i := 0; i < connectRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, connectRetries))
		sqldb, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(connectRetryDelay)
			continue
		}

		if err = sqldb.Ping(); err == nil {
			break
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		sqldb.Close()
		if i < connectRetries-1 {
			time.Sleep(connectRetryDelay)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", connectRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)
	log.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if cfg.AutoMigrate {
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.MigrationsDir,
			AutoMigrate:   cfg.AutoMigrate,
			SeedData:      cfg.SeedData,
		}, log)
		if err := runner.RunMigrations(); err != nil {
			log.Fatal("MIGRATE", fmt.Sprintf("Migrations failed: %v", err))
		}
		log.Info("MIGRATE", "✅ Database schema up to date")
	}
	return bunDB
}

// openSQLite is the single-node development mode. One connection keeps
// writers serialized.
func openSQLite(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLiteDSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to open SQLite: %v", err))
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	if err := migrations.EnsureSchema(ctx, bunDB, cfg.SeedData); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to prepare SQLite schema: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("✅ SQLite ready at %s", cfg.SQLiteDSN))
	return bunDB
}

// openCache returns the availability cache and, for the redis backend, the
// client to close on shutdown. An unreachable Redis falls back to memory.
func openCache(ctx context.Context, cfg *config.Config, clk clock.Clock, log *logger.Logger) (cache.Cache, *redis.Client) {
	if cfg.Cache.Backend != "redis" {
		log.Info("CACHE", fmt.Sprintf("Using in-memory availability cache (ttl %s)", cfg.Cache.TTL))
		return cache.NewMemoryCache(clk, cfg.Cache.TTL), nil
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("CACHE", fmt.Sprintf("Redis unavailable at %s, falling back to in-memory cache: %v", cfg.Redis.Addr, err))
		client.Close()
		return cache.NewMemoryCache(clk, cfg.Cache.TTL), nil
	}
	log.Info("CACHE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, client.Options().DB))
	return cache.NewRedisCache(client, clk, cfg.Cache.TTL, log), client
}
