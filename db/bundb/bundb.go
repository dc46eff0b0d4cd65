package bundb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	competitionmigrations "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories/migrations"
	"github.com/compstaff/compstaff/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// DBService holds the connection pool and the repositories built on it.
type DBService struct {
	CompetitionDB competitiondb.Repository
	db            *bun.DB
}

// GetDB returns the underlying database connection pool.
func (dbService *DBService) GetDB() *bun.DB {
	return dbService.db
}

// Close closes the connection pool.
func (dbService *DBService) Close() error {
	return dbService.db.Close()
}

// NewBunDBService connects to Postgres and builds the repositories.
func NewBunDBService(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*DBService, error) {
	logger.InfoContext(ctx, "Connecting to PostgreSQL")

	sqldb, err := pgConn(ctx, cfg.DSN)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to PostgreSQL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := bunDB(sqldb)
	db.RegisterModel((*competitiondb.Competition)(nil))

	return &DBService{
		CompetitionDB: competitiondb.NewRepository(db),
		db:            db,
	}, nil
}

// Migrators returns one bun migrator per module, keyed by module name.
func Migrators(db *bun.DB) map[string]*migrate.Migrator {
	return map[string]*migrate.Migrator{
		"competition": migrate.NewMigrator(db, competitionmigrations.Migrations),
	}
}

// bunDB returns a new bun.DB for given sql.DB connection pool.
func bunDB(sqldb *sql.DB) *bun.DB {
	return bun.NewDB(sqldb, pgdialect.New())
}

func pgConn(ctx context.Context, dsn string) (*sql.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return sqldb, nil
}

// NewTestDBService wraps an already opened database, as integration tests do.
func NewTestDBService(db *bun.DB) *DBService {
	return &DBService{
		CompetitionDB: competitiondb.NewRepository(db),
		db:            db,
	}
}
