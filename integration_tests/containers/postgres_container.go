package containers

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pgImage    = "postgres:16-alpine"
	pgDatabase = "compstaff"
	pgUser     = "compstaff"
	pgPassword = "compstaff"
)

// SetupPostgresContainer starts Postgres and returns it with a TLS-free DSN
// usable by both bun's pgdriver and pgx.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	dsn := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", pgUser, pgPassword, net.JoinHostPort(host, port.Port()), pgDatabase)
	}

	pg, err := postgres.Run(ctx, pgImage,
		postgres.WithDatabase(pgDatabase),
		postgres.WithUsername(pgUser),
		postgres.WithPassword(pgPassword),
		testcontainers.WithWaitStrategy(wait.ForSQL("5432/tcp", "pgx", dsn).WithStartupTimeout(45*time.Second)),
	)
	if err != nil {
		if pg != nil {
			_ = pg.Terminate(ctx)
		}
		return nil, "", fmt.Errorf("start postgres: %w", err)
	}

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pg.Terminate(ctx)
		return nil, "", fmt.Errorf("postgres connection string: %w", err)
	}
	return pg, connStr, nil
}
