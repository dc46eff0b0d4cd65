package persons

import (
	"cmp"
	"slices"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// ByPROrResult returns the seeding comparator for a round: psych sheet order
// for round 1, previous-round ranking afterwards.
func ByPROrResult(comp *comptypes.Competition, eventID string, roundNumber int) func(a, b comptypes.Person) int {
	if roundNumber <= 1 {
		return byPsychSheet(eventID)
	}
	prev, ok := comp.FindRound(comptypes.RoundActivityCode(eventID, roundNumber-1))
	if !ok || len(prev.Results) == 0 {
		return func(a, b comptypes.Person) int { return 0 }
	}
	ranking := make(map[int]int, len(prev.Results))
	for _, r := range prev.Results {
		if r.Ranking > 0 {
			ranking[r.PersonID] = r.Ranking
		}
	}
	return func(a, b comptypes.Person) int {
		ra, okA := ranking[a.RegistrantID]
		rb, okB := ranking[b.RegistrantID]
		switch {
		case okA && okB:
			return cmp.Compare(ra, rb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	}
}

func byPsychSheet(eventID string) func(a, b comptypes.Person) int {
	return func(a, b comptypes.Person) int {
		hasA, hasB := a.WcaID != "", b.WcaID != ""
		if hasA != hasB {
			if hasA {
				return -1
			}
			return 1
		}
		if !hasA {
			return 0
		}
		if c, ok := compareRanking(a, b, eventID, comptypes.ResultAverage); ok {
			return c
		}
		if c, ok := compareRanking(a, b, eventID, comptypes.ResultSingle); ok {
			return c
		}
		return 0
	}
}

func compareRanking(a, b comptypes.Person, eventID, resultType string) (int, bool) {
	pa, okA := a.PersonalBest(eventID, resultType)
	pb, okB := b.PersonalBest(eventID, resultType)
	if !okA || !okB {
		return 0, false
	}
	return cmp.Compare(pa.WorldRanking, pb.WorldRanking), true
}

// SortBySeed stable-sorts people in place by seed for the given round code.
func SortBySeed(comp *comptypes.Competition, people []comptypes.Person, roundCode string) {
	code := comptypes.ParseActivityCode(roundCode)
	slices.SortStableFunc(people, ByPROrResult(comp, code.EventID, code.RoundNumber))
}
