package competitiondb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository defines the contract for competition document persistence.
type Repository interface {
	// Get retrieves a competition by id.
	Get(ctx context.Context, db bun.IDB, id string) (*Competition, error)

	// List returns every stored competition, most recently updated first.
	List(ctx context.Context, db bun.IDB) ([]Summary, error)

	// Create stores a new competition.
	Create(ctx context.Context, db bun.IDB, comp *Competition) error

	// Update replaces a competition if its stored revision is expected.
	Update(ctx context.Context, db bun.IDB, comp *Competition, expected uuid.UUID) error

	// Delete removes a competition.
	Delete(ctx context.Context, db bun.IDB, id string) error
}
