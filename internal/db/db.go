package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/senyabanana/rfq-service/internal/repository"
	"github.com/senyabanana/rfq-service/internal/repository/memory"
	"github.com/senyabanana/rfq-service/internal/router/config"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// InitDb инициализирует подключение к базе данных и возвращает пул соединений.
func InitDb(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	databaseURL := cfg.DSN()
	if databaseURL == "" {
		return nil, fmt.Errorf("one or more database connection environment variables are missing")
	}

	dbPool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return dbPool, nil
}

// RunMigrations применяет миграции из migrationURL к базе dbSource.
func RunMigrations(migrationURL, dbSource string) error {
	migration, err := migrate.New(migrationURL, dbSource)
	if err != nil {
		return fmt.Errorf("cannot create a new migrate instance: %w", err)
	}
	defer migration.Close()

	if err = migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrate up: %w", err)
	}
	log.Info().Str("source", migrationURL).Msg("db migrated successfully")
	return nil
}

// OpenStore открывает хранилище по STORAGE_DRIVER. Для postgres перед
// открытием применяются миграции. Возвращаемая функция освобождает ресурсы.
func OpenStore(ctx context.Context, cfg config.Config, runMigrations bool) (repository.Store, func(), error) {
	switch cfg.StorageDriver {
	case "memory":
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	case "postgres":
		if runMigrations {
			if err := RunMigrations(cfg.MigrationURL, cfg.DSN()); err != nil {
				return nil, nil, err
			}
		}
		pool, err := InitDb(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
