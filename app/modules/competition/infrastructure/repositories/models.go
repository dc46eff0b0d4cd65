package competitiondb

import (
	"time"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Competition is a stored competition document. Revision changes on every
// write and guards concurrent updates.
type Competition struct {
	bun.BaseModel `bun:"table:competitions,alias:c"`

	ID        string                `bun:"id,pk,type:varchar(64)" json:"id"`
	Name      string                `bun:"name,notnull" json:"name"`
	Revision  uuid.UUID             `bun:"revision,type:uuid,notnull" json:"revision"`
	Document  comptypes.Competition `bun:"document,type:jsonb,notnull" json:"document"`
	CreatedAt time.Time             `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time             `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Summary is a listing row without the document body.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Revision  uuid.UUID `json:"revision"`
	UpdatedAt time.Time `json:"updated_at"`
}
