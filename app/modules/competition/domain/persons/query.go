// Package persons answers questions about people and their assignments,
// both committed ones on the document and in-flight ones produced during a
// generator run.
package persons

import (
	"strings"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// InFlightAssignment is an assignment decided during a pipeline run but not
// yet merged into the roster.
type InFlightAssignment struct {
	RegistrantID int
	Assignment   comptypes.Assignment
}

// AssignmentTest is a predicate over a single assignment.
type AssignmentTest func(comptypes.Assignment) bool

// QueryOption configures a Query.
type QueryOption func(*Query)

// WithOverlay makes the query consider the person's in-flight records.
func WithOverlay(overlay []InFlightAssignment) QueryOption {
	return func(q *Query) {
		q.overlay = make(map[int][]comptypes.Assignment)
		for _, rec := range overlay {
			q.overlay[rec.RegistrantID] = append(q.overlay[rec.RegistrantID], rec.Assignment)
		}
	}
}

// WithGroupIDs restricts committed assignments to the given activity ids.
func WithGroupIDs(ids []int) QueryOption {
	return func(q *Query) {
		q.groupIDs = make(map[int]bool, len(ids))
		for _, id := range ids {
			q.groupIDs[id] = true
		}
	}
}

// Query selects which of a person's assignments predicates look at.
//
// With a group-id restriction, committed assignments whose activity is in the
// set are considered. With an overlay, the person's in-flight records are
// considered. With both, the two sources are combined. With neither, every
// committed assignment is considered.
type Query struct {
	overlay  map[int][]comptypes.Assignment
	groupIDs map[int]bool
}

// NewQuery builds a Query from options.
func NewQuery(opts ...QueryOption) Query {
	var q Query
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// Assignments returns the assignments the query considers for p.
func (q Query) Assignments(p comptypes.Person) []comptypes.Assignment {
	switch {
	case q.groupIDs == nil && q.overlay == nil:
		return p.Assignments
	case q.groupIDs == nil:
		return q.overlay[p.RegistrantID]
	}

	var out []comptypes.Assignment
	for _, a := range p.Assignments {
		if q.groupIDs[a.ActivityID] {
			out = append(out, a)
		}
	}
	if q.overlay != nil {
		out = append(out, q.overlay[p.RegistrantID]...)
	}
	return out
}

// HasAssignment reports whether any considered assignment passes test.
func (q Query) HasAssignment(test AssignmentTest) func(comptypes.Person) bool {
	return func(p comptypes.Person) bool {
		for _, a := range q.Assignments(p) {
			if test(a) {
				return true
			}
		}
		return false
	}
}

// DoesNotHaveAssignment is the negation of HasAssignment.
func (q Query) DoesNotHaveAssignment(test AssignmentTest) func(comptypes.Person) bool {
	has := q.HasAssignment(test)
	return func(p comptypes.Person) bool {
		return !has(p)
	}
}

// FilterAssignments returns the considered assignments that pass test.
func (q Query) FilterAssignments(test AssignmentTest) func(comptypes.Person) []comptypes.Assignment {
	return func(p comptypes.Person) []comptypes.Assignment {
		var out []comptypes.Assignment
		for _, a := range q.Assignments(p) {
			if test(a) {
				out = append(out, a)
			}
		}
		return out
	}
}

// IsCompetitor matches competing assignments.
func IsCompetitor(a comptypes.Assignment) bool {
	return a.AssignmentCode == comptypes.AssignmentCompetitor
}

// IsStaff matches any staff-<role> assignment.
func IsStaff(a comptypes.Assignment) bool {
	return strings.HasPrefix(a.AssignmentCode, comptypes.AssignmentStaffPrefix)
}

// IsAssignmentCode matches one exact assignment code.
func IsAssignmentCode(code string) AssignmentTest {
	return func(a comptypes.Assignment) bool {
		return a.AssignmentCode == code
	}
}

// InActivities matches assignments to any of the given activity ids.
func InActivities(ids ...int) AssignmentTest {
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(a comptypes.Assignment) bool {
		return set[a.ActivityID]
	}
}

// All combines tests with logical and.
func All(tests ...AssignmentTest) AssignmentTest {
	return func(a comptypes.Assignment) bool {
		for _, t := range tests {
			if !t(a) {
				return false
			}
		}
		return true
	}
}
