package main

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	competitionqueue "github.com/compstaff/compstaff/app/modules/competition/infrastructure/queue"
	"github.com/compstaff/compstaff/config"
	"github.com/compstaff/compstaff/db/bundb"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

type migrationTarget struct {
	dsn       string
	migrators map[string]*migrate.Migrator
	close     func() error
}

// moduleNames returns the migrator keys in a stable order.
func (t *migrationTarget) moduleNames() []string {
	names := make([]string, 0, len(t.migrators))
	for name := range t.migrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func openMigrationTarget(c *cli.Context) (*migrationTarget, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.LevelWarn}))
	dbService, err := bundb.NewBunDBService(c.Context, cfg.Postgres, logger)
	if err != nil {
		return nil, err
	}
	return &migrationTarget{
		dsn:       cfg.Postgres.DSN,
		migrators: bundb.Migrators(dbService.GetDB()),
		close:     dbService.Close,
	}, nil
}

// withMigrationTarget opens the database for the duration of fn.
func withMigrationTarget(fn func(ctx context.Context, c *cli.Context, t *migrationTarget) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		t, err := openMigrationTarget(c)
		if err != nil {
			return err
		}
		defer t.close()
		return fn(c.Context, c, t)
	}
}

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrationTarget(func(ctx context.Context, c *cli.Context, t *migrationTarget) error {
					for _, name := range t.moduleNames() {
						if err := t.migrators[name].Init(ctx); err != nil {
							return fmt.Errorf("failed to initialize migrations for module %s: %w", name, err)
						}
						fmt.Fprintf(c.App.Writer, "Initialized migrations for module: %s\n", name)
					}
					return nil
				}),
			},
			{
				Name:  "up",
				Usage: "apply module and queue migrations",
				Action: withMigrationTarget(func(ctx context.Context, c *cli.Context, t *migrationTarget) error {
					for _, name := range t.moduleNames() {
						migrator := t.migrators[name]
						if err := migrator.Init(ctx); err != nil {
							return fmt.Errorf("failed to initialize migrations for module %s: %w", name, err)
						}
						if err := migrator.Lock(ctx); err != nil {
							return err
						}
						group, err := migrator.Migrate(ctx)
						unlockErr := migrator.Unlock(ctx)
						if err != nil {
							return fmt.Errorf("failed to migrate module %s: %w", name, err)
						}
						if unlockErr != nil {
							return unlockErr
						}
						if group.IsZero() {
							fmt.Fprintf(c.App.Writer, "No new migrations to run for module: %s\n", name)
						} else {
							fmt.Fprintf(c.App.Writer, "Migrated module: %s to %s\n", name, group)
						}
					}

					versions, err := competitionqueue.Migrate(ctx, t.dsn)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "Queue migrations applied: %v\n", versions)
					return nil
				}),
			},
			{
				Name:  "down",
				Usage: "rollback the last migration group of every module",
				Action: withMigrationTarget(func(ctx context.Context, c *cli.Context, t *migrationTarget) error {
					for _, name := range t.moduleNames() {
						group, err := t.migrators[name].Rollback(ctx)
						if err != nil {
							return fmt.Errorf("failed to roll back module %s: %w", name, err)
						}
						if group.IsZero() {
							fmt.Fprintf(c.App.Writer, "No groups to roll back for module: %s\n", name)
						} else {
							fmt.Fprintf(c.App.Writer, "Rolled back module: %s to %s\n", name, group)
						}
					}
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrationTarget(func(ctx context.Context, c *cli.Context, t *migrationTarget) error {
					for _, name := range t.moduleNames() {
						ms, err := t.migrators[name].MigrationsWithStatus(ctx)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "Migrations for module: %s\n", name)
						fmt.Fprintf(c.App.Writer, "  %s\n", ms)
						fmt.Fprintf(c.App.Writer, "  Applied: %s\n", ms.Applied())
						fmt.Fprintf(c.App.Writer, "  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				}),
			},
		},
	}
}
