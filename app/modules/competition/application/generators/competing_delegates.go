package generators

import (
	"cmp"
	"slices"

	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// CompetingAssignmentsForDelegatesAndOrganizers spreads supervisory staff
// over group numbers, at most one per number, latest groups first.
type CompetingAssignmentsForDelegatesAndOrganizers struct{}

func (CompetingAssignmentsForDelegatesAndOrganizers) ID() string {
	return CompetingAssignmentsForDelegatesAndOrganizersID
}

func (CompetingAssignmentsForDelegatesAndOrganizers) Description() string {
	return "One organizer or delegate per group number, starting with the last group"
}

func (g CompetingAssignmentsForDelegatesAndOrganizers) candidates(req Request) []comptypes.Person {
	q := req.Query()
	out := persons.Filter(req.Persons,
		persons.IsOrganizerOrDelegate,
		q.DoesNotHaveAssignment(persons.IsCompetitor),
	)
	slices.SortStableFunc(out, func(a, b comptypes.Person) int {
		return cmp.Compare(a.Name, b.Name)
	})
	persons.SortBySeed(req.Competition, out, req.RoundCode)
	return out
}

func (g CompetingAssignmentsForDelegatesAndOrganizers) Validate(req Request) bool {
	return len(req.Groups) == 0 || len(g.candidates(req)) == 0
}

// slots returns one activity per distinct group number, highest number first.
// Where several rooms share a number, the lowest activity id stands for it.
func slots(groups []schedule.FlatActivity) []schedule.FlatActivity {
	byNumber := make(map[int]schedule.FlatActivity)
	for _, grp := range groups {
		n := grp.Code().GroupNumber
		if cur, ok := byNumber[n]; !ok || grp.ID < cur.ID {
			byNumber[n] = grp
		}
	}
	out := make([]schedule.FlatActivity, 0, len(byNumber))
	for _, grp := range byNumber {
		out = append(out, grp)
	}
	slices.SortFunc(out, func(a, b schedule.FlatActivity) int {
		return cmp.Compare(b.Code().GroupNumber, a.Code().GroupNumber)
	})
	return out
}

func (g CompetingAssignmentsForDelegatesAndOrganizers) Generate(req Request) ([]persons.InFlightAssignment, error) {
	people := g.candidates(req)
	targets := slots(req.Groups)

	n := min(len(people), len(targets))
	out := make([]persons.InFlightAssignment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, competitorFor(people[i].RegistrantID, targets[i].ID))
	}
	return out, nil
}
