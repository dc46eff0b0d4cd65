// Package testenv starts the containers integration tests run against.
package testenv

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/compstaff/compstaff/config"
	"github.com/compstaff/compstaff/db/bundb"
	"github.com/compstaff/compstaff/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// TestEnvironment holds all resources needed for integration testing
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	NatsContainer *nats.NATSContainer
	DSN           string
	NatsURL       string
	DB            *bun.DB
	DBService     *bundb.DBService
	Config        *config.Config
}

// Options selects the containers to start.
type Options struct {
	Nats bool
}

// New starts Postgres (and NATS when asked), runs every migration and
// returns the environment. Call Close when done.
func New(opts Options) (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())
	env := &TestEnvironment{Ctx: ctx, CancelContext: cancel}

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}
	env.PgContainer = pgContainer
	env.DSN = dsn

	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		env.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	env.DB = bun.NewDB(sqlDB, pgdialect.New())
	env.DBService = bundb.NewTestDBService(env.DB)

	if err := RunMigrations(ctx, env.DB, dsn); err != nil {
		env.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	env.Config = &config.Config{
		Postgres: config.PostgresConfig{DSN: dsn},
		Queue:    config.QueueConfig{Enabled: true, MaxWorkers: 2},
	}

	if opts.Nats {
		natsContainer, natsURL, err := containers.SetupNatsContainer(ctx)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to setup nats container: %w", err)
		}
		env.NatsContainer = natsContainer
		env.NatsURL = natsURL
		env.Config.NATS.URL = natsURL
	}

	return env, nil
}

// Close releases connections and terminates the containers.
func (env *TestEnvironment) Close() {
	if env.DB != nil {
		if err := env.DB.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if env.NatsContainer != nil {
		if err := env.NatsContainer.Terminate(ctx); err != nil {
			log.Printf("Error terminating NATS container: %v", err)
		}
	}
	if env.PgContainer != nil {
		if err := env.PgContainer.Terminate(ctx); err != nil {
			log.Printf("Error terminating PostgreSQL container: %v", err)
		}
	}
	env.CancelContext()
}
