package generators

import (
	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/compstaff/compstaff/app/observability/attr"
)

// CompetingAssignmentsFromStaffAssignments gives staff who are not yet
// competing a competing group that they do not staff.
type CompetingAssignmentsFromStaffAssignments struct{}

func (CompetingAssignmentsFromStaffAssignments) ID() string {
	return CompetingAssignmentsFromStaffAssignmentsID
}

func (CompetingAssignmentsFromStaffAssignments) Description() string {
	return "Competing assignments for people already staffing this round"
}

func (g CompetingAssignmentsFromStaffAssignments) candidates(req Request) []comptypes.Person {
	q := req.Query()
	return persons.Filter(req.Persons,
		q.HasAssignment(persons.IsStaff),
		q.DoesNotHaveAssignment(persons.IsCompetitor),
	)
}

func (g CompetingAssignmentsFromStaffAssignments) Validate(req Request) bool {
	return len(req.Groups) == 0 || len(g.candidates(req)) == 0
}

func (g CompetingAssignmentsFromStaffAssignments) Generate(req Request) ([]persons.InFlightAssignment, error) {
	log := req.logger()
	q := req.Query()

	groups := append([]schedule.FlatActivity(nil), req.Groups...)
	schedule.SortGroups(groups)

	var out []persons.InFlightAssignment
	for _, p := range g.candidates(req) {
		staffed := make(map[int]bool)
		for _, a := range q.FilterAssignments(persons.IsStaff)(p) {
			if act, ok := req.Index.ByID(a.ActivityID); ok {
				staffed[act.Code().GroupNumber] = true
			}
		}

		target := 0
		for _, grp := range groups {
			if !staffed[grp.Code().GroupNumber] {
				target = grp.ID
				break
			}
		}
		if target == 0 {
			log.Warn("No group left to compete in without staffing it",
				attr.RoundCode(req.RoundCode),
				attr.RegistrantID(p.RegistrantID),
			)
			continue
		}
		out = append(out, competitorFor(p.RegistrantID, target))
	}
	return out, nil
}
