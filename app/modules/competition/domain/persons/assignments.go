package persons

import (
	"slices"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// UpsertAssignment returns p with a replacing any assignment to the same
// activity, or appended when there is none.
func UpsertAssignment(p comptypes.Person, a comptypes.Assignment) comptypes.Person {
	out := p.Clone()
	for i := range out.Assignments {
		if out.Assignments[i].ActivityID == a.ActivityID {
			out.Assignments[i] = a.Clone()
			return out
		}
	}
	out.Assignments = append(out.Assignments, a.Clone())
	return out
}

// MergeAssignments folds in-flight records into a new document. Records for
// unknown registrants are ignored and counted in the second return value.
func MergeAssignments(comp comptypes.Competition, records []InFlightAssignment) (comptypes.Competition, int) {
	out := comp.Clone()
	unknown := 0
	for _, rec := range records {
		p, ok := out.FindPerson(rec.RegistrantID)
		if !ok {
			unknown++
			continue
		}
		*p = UpsertAssignment(*p, rec.Assignment)
	}
	return out, unknown
}

// RemoveAssignments returns a new document without any assignment to the
// given activity ids, and how many were removed.
func RemoveAssignments(comp comptypes.Competition, activityIDs []int) (comptypes.Competition, int) {
	out := comp.Clone()
	removed := 0
	for i := range out.Persons {
		before := len(out.Persons[i].Assignments)
		out.Persons[i].Assignments = slices.DeleteFunc(out.Persons[i].Assignments, func(a comptypes.Assignment) bool {
			return slices.Contains(activityIDs, a.ActivityID)
		})
		removed += before - len(out.Persons[i].Assignments)
	}
	return out, removed
}
