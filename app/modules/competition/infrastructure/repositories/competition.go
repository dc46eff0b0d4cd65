package competitiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	// ErrNotFound is returned when a competition is not stored.
	ErrNotFound = errors.New("competition not found")
	// ErrAlreadyExists is returned when creating a competition whose id is taken.
	ErrAlreadyExists = errors.New("competition already exists")
	// ErrRevisionConflict is returned when the stored revision is not the expected one.
	ErrRevisionConflict = errors.New("competition was modified concurrently")
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new competition repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Get retrieves a competition by id.
func (r *Impl) Get(ctx context.Context, db bun.IDB, id string) (*Competition, error) {
	db = r.resolveDB(db)
	comp := new(Competition)
	err := db.NewSelect().
		Model(comp).
		Where("c.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}
	return comp, nil
}

// List returns every stored competition, most recently updated first.
func (r *Impl) List(ctx context.Context, db bun.IDB) ([]Summary, error) {
	db = r.resolveDB(db)
	var out []Summary
	err := db.NewSelect().
		Model((*Competition)(nil)).
		Column("id", "name", "revision", "updated_at").
		OrderExpr("updated_at DESC").
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitions: %w", err)
	}
	return out, nil
}

// Create stores a new competition with a fresh revision.
func (r *Impl) Create(ctx context.Context, db bun.IDB, comp *Competition) error {
	db = r.resolveDB(db)
	now := time.Now()
	comp.Revision = uuid.New()
	comp.CreatedAt = now
	comp.UpdatedAt = now
	_, err := db.NewInsert().
		Model(comp).
		Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to create competition: %w", err)
	}
	return nil
}

// Update replaces the stored document and name, assigning a new revision,
// only while the stored revision equals expected.
func (r *Impl) Update(ctx context.Context, db bun.IDB, comp *Competition, expected uuid.UUID) error {
	db = r.resolveDB(db)
	comp.Revision = uuid.New()
	comp.UpdatedAt = time.Now()
	result, err := db.NewUpdate().
		Model(comp).
		Column("name", "revision", "document", "updated_at").
		Where("c.id = ?", comp.ID).
		Where("c.revision = ?", expected).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update competition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		comp.Revision = expected
		exists, err := db.NewSelect().Model((*Competition)(nil)).Where("c.id = ?", comp.ID).Exists(ctx)
		if err != nil {
			return fmt.Errorf("failed to check competition: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrRevisionConflict
	}
	return nil
}

// Delete removes a competition.
func (r *Impl) Delete(ctx context.Context, db bun.IDB, id string) error {
	db = r.resolveDB(db)
	result, err := db.NewDelete().
		Model((*Competition)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete competition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
