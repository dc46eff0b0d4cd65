// Package generators runs recipes of assignment strategies over a round.
package generators

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// Built-in generator ids.
const (
	CompetingAssignmentsFromStaffAssignmentsID      = "CompetingAssignmentsFromStaffAssignments"
	CompetingAssignmentsForDelegatesAndOrganizersID = "CompetingAssignmentsForDelegatesAndOrganizers"
	CompetingAssignmentsForEveryoneID               = "CompetingAssignmentsForEveryone"
	JudgeAssignmentsFromCompetingAssignmentsID      = "JudgeAssignmentsFromCompetingAssignments"
)

var (
	ErrUnknownGenerator   = errors.New("unknown generator")
	ErrDuplicateGenerator = errors.New("generator already registered")
)

// Request is what a generator sees for one step of a pipeline run.
type Request struct {
	Competition *comptypes.Competition
	Index       *schedule.Index
	RoundCode   string
	// Persons is the step's resolved cluster.
	Persons []comptypes.Person
	// Groups is the step's activity scope.
	Groups []schedule.FlatActivity
	// RoundGroups is every group of the round, regardless of scope.
	RoundGroups []schedule.FlatActivity
	// InFlight is everything earlier steps of this run produced.
	InFlight []persons.InFlightAssignment
	Logger   *slog.Logger
}

// Query looks at the person's committed assignments in this round plus the
// run's in-flight records.
func (r Request) Query() persons.Query {
	return persons.NewQuery(
		persons.WithGroupIDs(schedule.GroupIDs(r.RoundGroups)),
		persons.WithOverlay(r.InFlight),
	)
}

func (r Request) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// Generator is one assignment strategy.
type Generator interface {
	ID() string
	Description() string
	// Validate returns true when there is nothing to do and the step is skipped.
	Validate(req Request) bool
	Generate(req Request) ([]persons.InFlightAssignment, error)
}

// Registry maps generator ids to implementations.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]Generator
	order      []string
}

func NewRegistry() *Registry {
	return &Registry{generators: make(map[string]Generator)}
}

// Register adds g. Ids must be unique.
func (r *Registry) Register(g Generator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.generators[g.ID()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateGenerator, g.ID())
	}
	r.generators[g.ID()] = g
	r.order = append(r.order, g.ID())
	return nil
}

func (r *Registry) Get(id string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.generators[id]
	return g, ok
}

// List returns generators in registration order.
func (r *Registry) List() []Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Generator, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.generators[id])
	}
	return out
}

// DefaultRegistry returns a registry holding the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, g := range []Generator{
		CompetingAssignmentsFromStaffAssignments{},
		CompetingAssignmentsForDelegatesAndOrganizers{},
		CompetingAssignmentsForEveryone{},
		JudgeAssignmentsFromCompetingAssignments{},
	} {
		// ids are distinct constants
		_ = r.Register(g)
	}
	return r
}

func competitorFor(registrantID, activityID int) persons.InFlightAssignment {
	return persons.InFlightAssignment{
		RegistrantID: registrantID,
		Assignment: comptypes.Assignment{
			ActivityID:     activityID,
			AssignmentCode: comptypes.AssignmentCompetitor,
		},
	}
}
