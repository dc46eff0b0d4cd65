package generators

import (
	"fmt"
	"testing"

	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/compstaff/compstaff/integration_tests/testutils"
	"github.com/stretchr/testify/require"
)

func recipeOf(steps ...Step) Recipe {
	return Recipe{ID: "test", Steps: steps}
}

func stepFor(id string) Step {
	return Step{Cluster: ClusterPersonsInRound, ActivityScope: ScopeAllGroups, GeneratorID: id}
}

func competitorCounts(comp comptypes.Competition, roundCode string) map[int]int {
	ix := schedule.NewIndex(&comp)
	counts := make(map[int]int)
	for _, g := range ix.GroupActivitiesByRound(roundCode) {
		counts[g.ID] = 0
	}
	for _, p := range comp.Persons {
		for _, a := range p.Assignments {
			if _, ok := counts[a.ActivityID]; ok && persons.IsCompetitor(a) {
				counts[a.ActivityID]++
			}
		}
	}
	return counts
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	var ids []string
	for _, g := range r.List() {
		ids = append(ids, g.ID())
		require.NotEmpty(t, g.Description())
	}
	require.Equal(t, []string{
		CompetingAssignmentsFromStaffAssignmentsID,
		CompetingAssignmentsForDelegatesAndOrganizersID,
		CompetingAssignmentsForEveryoneID,
		JudgeAssignmentsFromCompetingAssignmentsID,
	}, ids)

	err := r.Register(CompetingAssignmentsForEveryone{})
	require.ErrorIs(t, err, ErrDuplicateGenerator)

	require.NoError(t, DefaultRecipe().Validate(r))
}

func TestRecipeBook(t *testing.T) {
	book := NewRecipeBook(Recipe{ID: "judges-only", Steps: []Step{stepFor(JudgeAssignmentsFromCompetingAssignmentsID)}})

	r, err := book.Get("")
	require.NoError(t, err)
	require.Equal(t, DefaultRecipeID, r.ID)

	_, err = book.Get("missing")
	require.ErrorIs(t, err, ErrUnknownRecipe)
	require.Equal(t, []string{"default", "judges-only"}, book.IDs())

	require.NoError(t, book.SetDefault("judges-only"))
	r, err = book.Get("")
	require.NoError(t, err)
	require.Equal(t, "judges-only", r.ID)
	require.ErrorIs(t, book.SetDefault("missing"), ErrUnknownRecipe)
}

func TestRunnerRejectsBadInput(t *testing.T) {
	gen := testutils.NewTestDataGenerator(1)
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Groups: 2, Persons: 5})
	runner := NewRunner(nil, nil)

	_, err := runner.Run(comp, "333-r1", recipeOf(stepFor("NoSuchGenerator")))
	require.ErrorIs(t, err, ErrUnknownGenerator)

	_, err = runner.Run(comp, "444-r1", DefaultRecipe())
	var perr *comptypes.PreconditionError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, comptypes.ErrCodeNoGroups, perr.Code)

	bad := recipeOf(Step{GeneratorID: CompetingAssignmentsForEveryoneID, ActivityScope: "some-groups"})
	_, err = runner.Run(comp, "333-r1", bad)
	require.Error(t, err)
}

func TestCompetingAssignmentsForEveryoneBalances(t *testing.T) {
	for seed := int64(1); seed <= 6; seed++ {
		gen := testutils.NewTestDataGenerator(seed)
		opts := testutils.CompetitionOptions{
			Events:  []string{"333", "222"},
			Rooms:   int(seed%2) + 1,
			Groups:  int(seed%4) + 2,
			Persons: 13 + int(seed)*7,
		}
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			comp := gen.GenerateCompetition(opts)
			res, err := NewRunner(nil, nil).Run(comp, "333-r1", recipeOf(stepFor(CompetingAssignmentsForEveryoneID)))
			require.NoError(t, err)
			require.Equal(t, opts.Persons, res.Produced())

			counts := competitorCounts(res.Competition, "333-r1")
			lo, hi := opts.Persons, 0
			for _, c := range counts {
				lo, hi = min(lo, c), max(hi, c)
			}
			require.LessOrEqual(t, hi-lo, 1, "group sizes %v", counts)
			require.Empty(t, competitorCountsNonZero(res.Competition, "222-r1"), "other rounds untouched")
		})
	}
}

func competitorCountsNonZero(comp comptypes.Competition, roundCode string) map[int]int {
	out := make(map[int]int)
	for id, c := range competitorCounts(comp, roundCode) {
		if c > 0 {
			out[id] = c
		}
	}
	return out
}

func TestCompetingAssignmentsForEveryoneSeedsFromExistingCounts(t *testing.T) {
	gen := testutils.NewTestDataGenerator(3)
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Groups: 3, Persons: 7})
	// groups are activities 2, 3 and 4; two people already compete in group 1
	comp.Persons[0].Assignments = []comptypes.Assignment{{ActivityID: 2, AssignmentCode: comptypes.AssignmentCompetitor}}
	comp.Persons[1].Assignments = []comptypes.Assignment{{ActivityID: 2, AssignmentCode: comptypes.AssignmentCompetitor}}

	res, err := NewRunner(nil, nil).Run(comp, "333-r1", recipeOf(stepFor(CompetingAssignmentsForEveryoneID)))
	require.NoError(t, err)
	require.Equal(t, 5, res.Produced())
	require.Equal(t, map[int]int{2: 3, 3: 2, 4: 2}, competitorCounts(res.Competition, "333-r1"))
}

func TestDefaultRecipeIsIdempotent(t *testing.T) {
	tests := []struct {
		seed int64
		opts testutils.CompetitionOptions
	}{
		{seed: 10, opts: testutils.CompetitionOptions{Rooms: 1, Groups: 3, Persons: 30, Delegates: 2, FirstTimer: 4}},
		{seed: 11, opts: testutils.CompetitionOptions{Rooms: 2, Groups: 3, Persons: 30, Delegates: 2, FirstTimer: 4}},
		{seed: 12, opts: testutils.CompetitionOptions{Rooms: 1, Groups: 3, Persons: 30, Delegates: 2, FirstTimer: 4}},
		{seed: 13, opts: testutils.CompetitionOptions{Rooms: 2, Groups: 3, Persons: 30, Delegates: 2, FirstTimer: 4}},
		// one group per room: nobody ever has a group to judge
		{seed: 14, opts: testutils.CompetitionOptions{Rooms: 2, Groups: 1, Persons: 12, Delegates: 1}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("seed_%d", tt.seed), func(t *testing.T) {
			comp := testutils.NewTestDataGenerator(tt.seed).GenerateCompetition(tt.opts)

			runner := NewRunner(DefaultRegistry(), nil)
			first, err := runner.Run(comp, "333-r1", DefaultRecipe())
			require.NoError(t, err)
			require.NotZero(t, first.Produced())

			second, err := runner.Run(first.Competition, "333-r1", DefaultRecipe())
			require.NoError(t, err)
			require.Zero(t, second.Produced())
			for _, step := range second.Steps {
				require.True(t, step.Skipped, "step %s", step.GeneratorID)
			}
		})
	}
}

func TestJudgesNeverJudgeTheirOwnGroup(t *testing.T) {
	gen := testutils.NewTestDataGenerator(99)
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Rooms: 2, Groups: 4, Persons: 50, Delegates: 3})

	res, err := NewRunner(nil, nil).Run(comp, "333-r1", DefaultRecipe())
	require.NoError(t, err)

	ix := schedule.NewIndex(&res.Competition)
	judges := 0
	for _, p := range res.Competition.Persons {
		var competing, judging []int
		for _, a := range p.Assignments {
			switch a.AssignmentCode {
			case comptypes.AssignmentCompetitor:
				competing = append(competing, a.ActivityID)
			case comptypes.AssignmentStaffJudge:
				judging = append(judging, a.ActivityID)
			}
		}
		require.Len(t, competing, 1, "person %d", p.RegistrantID)
		if persons.IsOrganizerOrDelegate(p) {
			require.Empty(t, judging)
			continue
		}
		require.Len(t, judging, 1)
		require.NotEqual(t, competing[0], judging[0])

		next, err := ix.NextGroup(competing[0])
		require.NoError(t, err)
		require.Equal(t, next.ID, judging[0])
		judges++
	}
	require.Equal(t, 47, judges)
}

func TestDelegatesTakeLatestGroupsFirst(t *testing.T) {
	gen := testutils.NewTestDataGenerator(5)
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Rooms: 2, Groups: 3, Persons: 12, Delegates: 2})

	res, err := NewRunner(nil, nil).Run(comp, "333-r1", recipeOf(stepFor(CompetingAssignmentsForDelegatesAndOrganizersID)))
	require.NoError(t, err)
	require.Len(t, res.Assignments, 2)

	ix := schedule.NewIndex(&res.Competition)
	delegates := persons.Filter(comp.Persons, persons.IsOrganizerOrDelegate)
	persons.SortBySeed(&comp, delegates, "333-r1")

	first, _ := ix.ByID(res.Assignments[0].Assignment.ActivityID)
	second, _ := ix.ByID(res.Assignments[1].Assignment.ActivityID)
	require.Equal(t, delegates[0].RegistrantID, res.Assignments[0].RegistrantID)
	require.Equal(t, 3, first.Code().GroupNumber)
	require.Equal(t, 2, second.Code().GroupNumber)
	require.Equal(t, 1, first.RoomID, "lowest activity id stands for the group number")
}

func TestCompetingFromStaffAvoidsStaffedGroupNumbers(t *testing.T) {
	gen := testutils.NewTestDataGenerator(8)
	// room A: round 1 with groups 2, 3, 4; room B: round 5 with groups 6, 7, 8
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Rooms: 2, Groups: 3, Persons: 4})
	staff := func(ids ...int) []comptypes.Assignment {
		var out []comptypes.Assignment
		for _, id := range ids {
			out = append(out, comptypes.Assignment{ActivityID: id, AssignmentCode: comptypes.AssignmentStaffScrambler})
		}
		return out
	}
	comp.Persons[0].Assignments = staff(2)
	comp.Persons[1].Assignments = staff(2, 7)
	comp.Persons[2].Assignments = staff(2, 3, 8)

	res, err := NewRunner(nil, nil).Run(comp, "333-r1", recipeOf(stepFor(CompetingAssignmentsFromStaffAssignmentsID)))
	require.NoError(t, err)
	require.Equal(t, []persons.InFlightAssignment{
		competitorFor(1, 3),
		competitorFor(2, 4),
	}, res.Assignments)
}

func TestStepOptions(t *testing.T) {
	gen := testutils.NewTestDataGenerator(21)
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Groups: 3, Persons: 20, FirstTimer: 4})
	yes := true

	res, err := NewRunner(nil, nil).Run(comp, "333-r1", recipeOf(
		Step{
			ActivityScope:  ScopeAllButLastGroup,
			GeneratorID:    CompetingAssignmentsForEveryoneID,
			ClusterOptions: ClusterOptions{FirstTimer: &yes},
			Constraints:    []Constraint{{Name: "spread first timers", Weight: 0.5}},
		},
		stepFor(JudgeAssignmentsFromCompetingAssignmentsID),
	))
	require.NoError(t, err)
	require.Len(t, res.Steps, 2)
	require.Equal(t, 5, res.Steps[0].Produced)
	require.Equal(t, 5, res.Steps[1].Produced, "judges see the first step's in-flight assignments")

	counts := competitorCounts(res.Competition, "333-r1")
	require.Zero(t, counts[4], "last group excluded from scope")
	for _, rec := range res.Assignments {
		p, _ := res.Competition.FindPerson(rec.RegistrantID)
		require.True(t, persons.IsFirstTimer(*p))
	}
}

func TestJudgesSkipSingleGroupRooms(t *testing.T) {
	gen := testutils.NewTestDataGenerator(2)
	comp := gen.GenerateCompetition(testutils.CompetitionOptions{Rooms: 2, Groups: 1, Persons: 6})

	res, err := NewRunner(nil, nil).Run(comp, "333-r1", DefaultRecipe())
	require.NoError(t, err)
	require.Equal(t, 6, res.Produced(), "only competing assignments")
	require.Equal(t, JudgeAssignmentsFromCompetingAssignmentsID, res.Steps[3].GeneratorID)
	require.True(t, res.Steps[3].Skipped)
	require.Equal(t, 0, res.Steps[3].Produced)
}
