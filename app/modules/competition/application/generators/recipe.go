package generators

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Cluster names the base population of a step.
type Cluster string

const (
	// ClusterPersonsInRound is everyone who should be in the round.
	ClusterPersonsInRound Cluster = "personsInRound"
	// ClusterEveryone is every person on the document.
	ClusterEveryone Cluster = "everyone"
)

// Scope selects which of the round's groups a step may assign into.
type Scope string

const (
	ScopeAllGroups       Scope = "all-groups"
	ScopeAllButLastGroup Scope = "all-but-last-group"
)

// DefaultRecipeID identifies DefaultRecipe.
const DefaultRecipeID = "default"

// ClusterOptions narrows a cluster. Nil fields do not filter.
type ClusterOptions struct {
	HasStaffAssignment *bool    `json:"hasStaffAssignment,omitempty" yaml:"has_staff_assignment,omitempty"`
	FirstTimer         *bool    `json:"firstTimer,omitempty" yaml:"first_timer,omitempty"`
	Roles              []string `json:"roles,omitempty" yaml:"roles,omitempty"`
}

// Constraint is descriptive metadata shown next to a step. It is never
// evaluated.
type Constraint struct {
	Name   string  `json:"name" yaml:"name"`
	Weight float64 `json:"weight" yaml:"weight"`
}

// Step is one generator invocation within a recipe.
type Step struct {
	Cluster        Cluster        `json:"cluster" yaml:"cluster"`
	ClusterOptions ClusterOptions `json:"clusterOptions" yaml:"cluster_options"`
	ActivityScope  Scope          `json:"activityScope" yaml:"activity_scope"`
	GeneratorID    string         `json:"generatorId" yaml:"generator"`
	Constraints    []Constraint   `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Recipe is an ordered list of steps.
type Recipe struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

var ErrUnknownRecipe = errors.New("unknown recipe")

// DefaultRecipe runs the four built-in strategies in order.
func DefaultRecipe() Recipe {
	step := func(id string) Step {
		return Step{Cluster: ClusterPersonsInRound, ActivityScope: ScopeAllGroups, GeneratorID: id}
	}
	return Recipe{
		ID:          DefaultRecipeID,
		Name:        "Default",
		Description: "Competitors from staff, supervisors, everyone balanced, then judges",
		Steps: []Step{
			step(CompetingAssignmentsFromStaffAssignmentsID),
			step(CompetingAssignmentsForDelegatesAndOrganizersID),
			step(CompetingAssignmentsForEveryoneID),
			step(JudgeAssignmentsFromCompetingAssignmentsID),
		},
	}
}

// Validate checks that every step names a registered generator and uses a
// known cluster and scope.
func (r Recipe) Validate(registry *Registry) error {
	if r.ID == "" {
		return errors.New("recipe id is required")
	}
	for i, s := range r.Steps {
		if _, ok := registry.Get(s.GeneratorID); !ok {
			return fmt.Errorf("recipe %s step %d: %w: %q", r.ID, i, ErrUnknownGenerator, s.GeneratorID)
		}
		switch s.Cluster {
		case "", ClusterPersonsInRound, ClusterEveryone:
		default:
			return fmt.Errorf("recipe %s step %d: unknown cluster %q", r.ID, i, s.Cluster)
		}
		switch s.ActivityScope {
		case "", ScopeAllGroups, ScopeAllButLastGroup:
		default:
			return fmt.Errorf("recipe %s step %d: unknown activity scope %q", r.ID, i, s.ActivityScope)
		}
	}
	return nil
}

// RecipeBook holds the recipes a deployment offers, keyed by id.
type RecipeBook struct {
	mu        sync.RWMutex
	recipes   map[string]Recipe
	defaultID string
}

// NewRecipeBook returns a book holding DefaultRecipe plus extra. Later
// recipes replace earlier ones with the same id.
func NewRecipeBook(extra ...Recipe) *RecipeBook {
	b := &RecipeBook{
		recipes:   map[string]Recipe{DefaultRecipeID: DefaultRecipe()},
		defaultID: DefaultRecipeID,
	}
	for _, r := range extra {
		b.recipes[r.ID] = r
	}
	return b
}

// Get resolves id; an empty id means the book's default recipe.
func (b *RecipeBook) Get(id string) (Recipe, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if id == "" {
		id = b.defaultID
	}
	r, ok := b.recipes[id]
	if !ok {
		return Recipe{}, fmt.Errorf("%w: %s", ErrUnknownRecipe, id)
	}
	return r, nil
}

// SetDefault makes id the recipe used when a request names none.
func (b *RecipeBook) SetDefault(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.recipes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecipe, id)
	}
	b.defaultID = id
	return nil
}

func (b *RecipeBook) Put(r Recipe) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recipes[r.ID] = r
}

// IDs returns the known recipe ids, sorted.
func (b *RecipeBook) IDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.recipes))
	for id := range b.recipes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
