package persons

import (
	"slices"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// Predicate selects persons.
type Predicate func(comptypes.Person) bool

// Filter returns the persons matching every predicate, in input order.
func Filter(people []comptypes.Person, preds ...Predicate) []comptypes.Person {
	var out []comptypes.Person
	for _, p := range people {
		ok := true
		for _, pred := range preds {
			if !pred(p) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, p)
		}
	}
	return out
}

// IsRegisteredFor matches accepted registrations that include eventID.
func IsRegisteredFor(eventID string) Predicate {
	return func(p comptypes.Person) bool {
		return p.Registration != nil &&
			p.Registration.Status == comptypes.RegistrationAccepted &&
			slices.Contains(p.Registration.EventIDs, eventID)
	}
}

// IsOrganizerOrDelegate matches supervisory staff.
func IsOrganizerOrDelegate(p comptypes.Person) bool {
	return p.HasRole(comptypes.RoleOrganizer, comptypes.RoleDelegate, comptypes.RoleTraineeDelegate)
}

// IsFirstTimer matches persons without a competitor id.
func IsFirstTimer(p comptypes.Person) bool {
	return p.WcaID == ""
}

// HasAnyRole matches persons holding one of roles.
func HasAnyRole(roles ...string) Predicate {
	return func(p comptypes.Person) bool {
		return p.HasRole(roles...)
	}
}

// ShouldBeInRound decides who belongs in a round. Published results are
// authoritative; without them, round 1 is everyone registered for the event
// and later rounds are nobody yet.
func ShouldBeInRound(comp *comptypes.Competition, roundCode string) Predicate {
	code := comptypes.ParseActivityCode(roundCode)
	if round, ok := comp.FindRound(roundCode); ok && len(round.Results) > 0 {
		in := make(map[int]bool, len(round.Results))
		for _, r := range round.Results {
			in[r.PersonID] = true
		}
		return func(p comptypes.Person) bool {
			return in[p.RegistrantID]
		}
	}
	if code.RoundNumber <= 1 {
		return IsRegisteredFor(code.EventID)
	}
	return func(comptypes.Person) bool { return false }
}

// PersonsForRound returns the persons who should be in roundCode.
func PersonsForRound(comp *comptypes.Competition, roundCode string) []comptypes.Person {
	return Filter(comp.Persons, ShouldBeInRound(comp, roundCode))
}
