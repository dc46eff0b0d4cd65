package generators

import (
	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// CompetingAssignmentsForEveryone places every remaining person, in seed
// order, into whichever group currently has the fewest competitors.
type CompetingAssignmentsForEveryone struct{}

func (CompetingAssignmentsForEveryone) ID() string {
	return CompetingAssignmentsForEveryoneID
}

func (CompetingAssignmentsForEveryone) Description() string {
	return "Balanced competing assignments for everyone still unassigned"
}

func (g CompetingAssignmentsForEveryone) candidates(req Request) []comptypes.Person {
	q := req.Query()
	out := persons.Filter(req.Persons, q.DoesNotHaveAssignment(persons.IsCompetitor))
	persons.SortBySeed(req.Competition, out, req.RoundCode)
	return out
}

func (g CompetingAssignmentsForEveryone) Validate(req Request) bool {
	return len(req.Groups) == 0 || len(g.candidates(req)) == 0
}

func (g CompetingAssignmentsForEveryone) Generate(req Request) ([]persons.InFlightAssignment, error) {
	if len(req.Groups) == 0 {
		return nil, nil
	}
	q := req.Query()

	counts := make(map[int]int, len(req.Groups))
	for _, grp := range req.Groups {
		counts[grp.ID] = 0
	}
	for _, p := range req.Competition.Persons {
		for _, a := range q.FilterAssignments(persons.IsCompetitor)(p) {
			if _, ok := counts[a.ActivityID]; ok {
				counts[a.ActivityID]++
			}
		}
	}

	var out []persons.InFlightAssignment
	for _, p := range g.candidates(req) {
		target := smallestGroup(counts)
		counts[target]++
		out = append(out, competitorFor(p.RegistrantID, target))
	}
	return out, nil
}

// smallestGroup returns the id with the lowest count, lowest id on ties.
func smallestGroup(counts map[int]int) int {
	best, bestCount := 0, 0
	for id, c := range counts {
		if best == 0 || c < bestCount || (c == bestCount && id < best) {
			best, bestCount = id, c
		}
	}
	return best
}
