package testenv

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	competitionqueue "github.com/compstaff/compstaff/app/modules/competition/infrastructure/queue"
	"github.com/compstaff/compstaff/db/bundb"
	"github.com/uptrace/bun"
)

// appTables are truncated between tests.
var appTables = []string{"competitions"}

// RunMigrations applies every module migration and the River queue
// migrations.
func RunMigrations(ctx context.Context, db *bun.DB, dsn string) error {
	migrators := bundb.Migrators(db)
	names := make([]string, 0, len(migrators))
	for name := range migrators {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		migrator := migrators[name]
		if err := migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to initialize %s migration tables: %w", name, err)
		}
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", name, err)
		}
		if group.IsZero() {
			log.Printf("No %s migrations to run", name)
		} else {
			log.Printf("Ran %s migrations group #%d", name, group.ID)
		}
	}

	if _, err := competitionqueue.Migrate(ctx, dsn); err != nil {
		return err
	}
	log.Println("All migrations ran successfully")
	return nil
}

// CleanupRiverJobs deletes all jobs from the River queue
func CleanupRiverJobs(ctx context.Context, db bun.IDB) error {
	_, err := db.ExecContext(ctx, "DELETE FROM river_job")
	return err
}

// CleanupDatabase truncates all application tables and River jobs.
func CleanupDatabase(ctx context.Context, db bun.IDB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(appTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	if err := CleanupRiverJobs(ctx, db); err != nil {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}
