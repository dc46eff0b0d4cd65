package persons

import (
	"testing"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/compstaff/compstaff/integration_tests/testutils"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func person(id int, assignments ...comptypes.Assignment) comptypes.Person {
	return comptypes.Person{RegistrantID: id, Name: "P", Assignments: assignments}
}

func competing(activityID int) comptypes.Assignment {
	return comptypes.Assignment{ActivityID: activityID, AssignmentCode: comptypes.AssignmentCompetitor}
}

func judging(activityID int) comptypes.Assignment {
	return comptypes.Assignment{ActivityID: activityID, AssignmentCode: comptypes.AssignmentStaffJudge}
}

func TestQuerySources(t *testing.T) {
	p := person(1, competing(2), judging(20))
	overlay := []InFlightAssignment{
		{RegistrantID: 1, Assignment: judging(3)},
		{RegistrantID: 2, Assignment: competing(4)},
	}

	tests := []struct {
		name string
		opts []QueryOption
		want []int
	}{
		{name: "committed only", want: []int{2, 20}},
		{name: "group restriction", opts: []QueryOption{WithGroupIDs([]int{2, 3})}, want: []int{2}},
		{name: "overlay only", opts: []QueryOption{WithOverlay(overlay)}, want: []int{3}},
		{name: "both", opts: []QueryOption{WithGroupIDs([]int{2, 3}), WithOverlay(overlay)}, want: []int{2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []int
			for _, a := range NewQuery(tt.opts...).Assignments(p) {
				got = append(got, a.ActivityID)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestQueryPredicates(t *testing.T) {
	q := NewQuery(WithGroupIDs([]int{2, 3}), WithOverlay([]InFlightAssignment{{RegistrantID: 1, Assignment: judging(3)}}))
	p := person(1, competing(2))

	require.True(t, q.HasAssignment(IsCompetitor)(p))
	require.True(t, q.HasAssignment(IsStaff)(p))
	require.False(t, q.DoesNotHaveAssignment(IsStaff)(p))
	require.True(t, q.DoesNotHaveAssignment(IsAssignmentCode(comptypes.AssignmentStaffRunner))(p))
	require.Len(t, q.FilterAssignments(All(IsStaff, InActivities(3)))(p), 1)
	require.Empty(t, q.FilterAssignments(InActivities(99))(p))
}

func roundCompetition() comptypes.Competition {
	reg := func(events ...string) *comptypes.Registration {
		return &comptypes.Registration{Status: comptypes.RegistrationAccepted, EventIDs: events}
	}
	return comptypes.Competition{
		Events: []comptypes.Event{{ID: "333", Rounds: []comptypes.Round{
			{ID: "333-r1", Results: []comptypes.Result{{PersonID: 1, Ranking: 3}, {PersonID: 2, Ranking: 1}, {PersonID: 3, Ranking: 2}}},
			{ID: "333-r2", Results: []comptypes.Result{{PersonID: 2}, {PersonID: 3}}},
			{ID: "333-r3"},
		}}, {ID: "444", Rounds: []comptypes.Round{{ID: "444-r1"}, {ID: "444-r2"}}}},
		Persons: []comptypes.Person{
			{RegistrantID: 1, Name: "Ann", WcaID: "2019ANNA01", Registration: reg("333", "444")},
			{RegistrantID: 2, Name: "Bob", Registration: reg("444")},
			{RegistrantID: 3, Name: "Cy", WcaID: "2015CYCY01", Registration: &comptypes.Registration{Status: comptypes.RegistrationPending, EventIDs: []string{"444"}}},
			{RegistrantID: 4, Name: "Dee", WcaID: "2010DEED01", Roles: []string{comptypes.RoleOrganizer}, Registration: reg("444")},
		},
	}
}

func ids(people []comptypes.Person) []int {
	out := make([]int, len(people))
	for i, p := range people {
		out[i] = p.RegistrantID
	}
	return out
}

func TestPersonsForRound(t *testing.T) {
	comp := roundCompetition()

	require.Equal(t, []int{1, 2, 3}, ids(PersonsForRound(&comp, "333-r1")), "results are authoritative")
	require.Equal(t, []int{2, 3}, ids(PersonsForRound(&comp, "333-r2")))
	require.Empty(t, PersonsForRound(&comp, "333-r3"), "later round without results is empty")
	require.Equal(t, []int{1, 2, 4}, ids(PersonsForRound(&comp, "444-r1")), "pending registration excluded")
	require.Empty(t, PersonsForRound(&comp, "444-r2"))

	require.Equal(t, []int{4}, ids(Filter(comp.Persons, IsOrganizerOrDelegate)))
	require.Equal(t, []int{2}, ids(Filter(comp.Persons, IsFirstTimer)))
}

func TestSortBySeedFromPreviousRound(t *testing.T) {
	comp := roundCompetition()
	people := []comptypes.Person{person(4), person(1), person(3), person(2)}
	SortBySeed(&comp, people, "333-r2")
	require.Equal(t, []int{2, 3, 1, 4}, ids(people), "unranked persons sort last")

	people = []comptypes.Person{person(4), person(1), person(3)}
	SortBySeed(&comp, people, "444-r2")
	require.Equal(t, []int{4, 1, 3}, ids(people), "no previous results keeps input order")
}

func TestSortBySeedPsychSheet(t *testing.T) {
	pb := func(typ string, rank int) comptypes.PersonalBest {
		return comptypes.PersonalBest{EventID: "333", Type: typ, WorldRanking: rank}
	}
	people := []comptypes.Person{
		{RegistrantID: 1},
		{RegistrantID: 2, WcaID: "X", PersonalBests: []comptypes.PersonalBest{pb(comptypes.ResultSingle, 50)}},
		{RegistrantID: 3, WcaID: "Y", PersonalBests: []comptypes.PersonalBest{pb(comptypes.ResultSingle, 90), pb(comptypes.ResultAverage, 10)}},
		{RegistrantID: 4, WcaID: "Z", PersonalBests: []comptypes.PersonalBest{pb(comptypes.ResultSingle, 5), pb(comptypes.ResultAverage, 40)}},
		{RegistrantID: 5, WcaID: "W", PersonalBests: []comptypes.PersonalBest{pb(comptypes.ResultSingle, 20)}},
	}
	comp := comptypes.Competition{}
	SortBySeed(&comp, people, "333-r1")
	require.Equal(t, 1, people[len(people)-1].RegistrantID, "persons without an id come last")

	cmpFn := ByPROrResult(&comp, "333", 1)
	byID := map[int]comptypes.Person{}
	for _, p := range people {
		byID[p.RegistrantID] = p
	}
	require.Negative(t, cmpFn(byID[3], byID[4]), "average ranking wins when both have one")
	require.Negative(t, cmpFn(byID[5], byID[2]), "single ranking otherwise")
	require.Zero(t, cmpFn(byID[1], comptypes.Person{RegistrantID: 9}))
}

func TestMergeAndRemoveAssignments(t *testing.T) {
	comp := comptypes.Competition{Persons: []comptypes.Person{person(1, judging(5)), person(2)}}

	merged, unknown := MergeAssignments(comp, []InFlightAssignment{
		{RegistrantID: 1, Assignment: competing(5)},
		{RegistrantID: 1, Assignment: competing(6)},
		{RegistrantID: 2, Assignment: judging(6)},
		{RegistrantID: 9, Assignment: judging(6)},
	})
	require.Equal(t, 1, unknown)
	want := []comptypes.Person{
		person(1, competing(5), competing(6)),
		person(2, judging(6)),
	}
	if diff := cmp.Diff(want, merged.Persons); diff != "" {
		t.Fatalf("merged persons mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, comp.Persons[1].Assignments, 0, "input untouched")

	removed, n := RemoveAssignments(merged, []int{6})
	require.Equal(t, 2, n)
	require.Len(t, removed.Persons[0].Assignments, 1)
	require.Empty(t, removed.Persons[1].Assignments)
}

func TestQueryOverGeneratedRoster(t *testing.T) {
	gen := testutils.NewTestDataGenerator(7)
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Events: []string{"333"}, Groups: 3, Persons: 40, FirstTimer: 5})

	people := PersonsForRound(&comp, "333-r1")
	require.Len(t, people, 40)
	require.Len(t, Filter(people, IsFirstTimer), 8)

	SortBySeed(&comp, people, "333-r1")
	for _, p := range people[len(people)-8:] {
		require.True(t, IsFirstTimer(p))
	}
}
