package generators

import (
	"fmt"
	"log/slog"

	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/compstaff/compstaff/app/observability/attr"
)

// StepReport is the outcome of one recipe step.
type StepReport struct {
	StepIndex   int    `json:"stepIndex"`
	GeneratorID string `json:"generatorId"`
	Skipped     bool   `json:"skipped"`
	Reason      string `json:"reason,omitempty"`
	Produced    int    `json:"produced"`
}

// Result is a finished pipeline run. Competition already has Assignments
// merged in.
type Result struct {
	Competition comptypes.Competition        `json:"competition"`
	Assignments []persons.InFlightAssignment `json:"-"`
	Steps       []StepReport                 `json:"steps"`
}

// Produced returns how many assignments the run produced in total.
func (r Result) Produced() int {
	return len(r.Assignments)
}

// Runner executes recipes against a registry.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
}

func NewRunner(registry *Registry, logger *slog.Logger) *Runner {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{registry: registry, logger: logger}
}

// Run executes recipe for roundCode. Steps run strictly in order, each seeing
// what earlier steps produced; the merge into the roster happens once, after
// the last step. A round without groups is a precondition failure.
func (r *Runner) Run(comp comptypes.Competition, roundCode string, recipe Recipe) (Result, error) {
	if err := recipe.Validate(r.registry); err != nil {
		return Result{Competition: comp}, err
	}
	if _, err := comptypes.ValidateActivityCode(roundCode); err != nil {
		return Result{Competition: comp}, err
	}

	ix := schedule.NewIndex(&comp)
	roundGroups := ix.GroupActivitiesByRound(roundCode)
	if len(roundGroups) == 0 {
		return Result{Competition: comp}, &comptypes.PreconditionError{
			Code:    comptypes.ErrCodeNoGroups,
			Message: fmt.Sprintf("round %s has no groups", roundCode),
		}
	}

	log := r.logger.With(attr.RoundCode(roundCode), attr.String("recipe_id", recipe.ID))
	var inFlight []persons.InFlightAssignment
	reports := make([]StepReport, 0, len(recipe.Steps))

	for i, step := range recipe.Steps {
		gen, _ := r.registry.Get(step.GeneratorID)
		req := Request{
			Competition: &comp,
			Index:       ix,
			RoundCode:   roundCode,
			Groups:      scopeGroups(roundGroups, step.ActivityScope),
			RoundGroups: roundGroups,
			InFlight:    inFlight,
			Logger:      log.With(attr.GeneratorID(gen.ID())),
		}
		req.Persons = r.cluster(req, step)

		report := StepReport{StepIndex: i, GeneratorID: gen.ID()}
		if gen.Validate(req) {
			report.Skipped = true
			report.Reason = "nothing to do"
			log.Debug("Skipping step", attr.Int("step", i), attr.GeneratorID(gen.ID()))
			reports = append(reports, report)
			continue
		}

		produced, err := gen.Generate(req)
		if err != nil {
			report.Skipped = true
			report.Reason = err.Error()
			log.Warn("Step failed, continuing with next step",
				attr.Int("step", i),
				attr.GeneratorID(gen.ID()),
				attr.Error(err),
			)
			reports = append(reports, report)
			continue
		}
		report.Produced = len(produced)
		inFlight = append(inFlight, produced...)
		reports = append(reports, report)

		log.Info("Step produced assignments",
			attr.Int("step", i),
			attr.GeneratorID(gen.ID()),
			attr.Int("produced", len(produced)),
		)
	}

	merged, unknown := persons.MergeAssignments(comp, inFlight)
	if unknown > 0 {
		log.Warn("Dropped assignments for unknown registrants", attr.Int("count", unknown))
	}
	return Result{Competition: merged, Assignments: inFlight, Steps: reports}, nil
}

func (r *Runner) cluster(req Request, step Step) []comptypes.Person {
	base := req.Competition.Persons
	if step.Cluster != ClusterEveryone {
		base = persons.PersonsForRound(req.Competition, req.RoundCode)
	}

	var preds []persons.Predicate
	opts := step.ClusterOptions
	if opts.HasStaffAssignment != nil {
		want := *opts.HasStaffAssignment
		has := req.Query().HasAssignment(persons.IsStaff)
		preds = append(preds, func(p comptypes.Person) bool { return has(p) == want })
	}
	if opts.FirstTimer != nil {
		want := *opts.FirstTimer
		preds = append(preds, func(p comptypes.Person) bool { return persons.IsFirstTimer(p) == want })
	}
	if len(opts.Roles) > 0 {
		preds = append(preds, persons.HasAnyRole(opts.Roles...))
	}
	return persons.Filter(base, preds...)
}

func scopeGroups(groups []schedule.FlatActivity, scope Scope) []schedule.FlatActivity {
	if scope != ScopeAllButLastGroup {
		return groups
	}
	last := 0
	for _, g := range groups {
		last = max(last, g.Code().GroupNumber)
	}
	var out []schedule.FlatActivity
	for _, g := range groups {
		if g.Code().GroupNumber != last {
			out = append(out, g)
		}
	}
	return out
}
