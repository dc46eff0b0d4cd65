package generators

import (
	"log/slog"
	"slices"

	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/compstaff/compstaff/app/observability/attr"
)

// JudgeAssignmentsFromCompetingAssignments has each plain competitor judge
// the group after their own in the same room.
type JudgeAssignmentsFromCompetingAssignments struct{}

func (JudgeAssignmentsFromCompetingAssignments) ID() string {
	return JudgeAssignmentsFromCompetingAssignmentsID
}

func (JudgeAssignmentsFromCompetingAssignments) Description() string {
	return "Judge the group following your competing group"
}

func (g JudgeAssignmentsFromCompetingAssignments) candidates(req Request) []comptypes.Person {
	q := req.Query()
	return persons.Filter(req.Persons,
		q.HasAssignment(persons.IsCompetitor),
		q.DoesNotHaveAssignment(persons.IsStaff),
		func(p comptypes.Person) bool { return !persons.IsOrganizerOrDelegate(p) },
	)
}

func (g JudgeAssignmentsFromCompetingAssignments) groupToJudge(req Request, p comptypes.Person, log *slog.Logger) (schedule.FlatActivity, bool) {
	competing := req.Query().FilterAssignments(persons.IsCompetitor)(p)
	if len(competing) == 0 {
		return schedule.FlatActivity{}, false
	}
	activityID := competing[0].ActivityID

	next, err := req.Index.NextGroup(activityID)
	if err != nil {
		log.Warn("Could not resolve group to judge",
			attr.RoundCode(req.RoundCode),
			attr.RegistrantID(p.RegistrantID),
			attr.ActivityID(activityID),
			attr.Error(err),
		)
		return schedule.FlatActivity{}, false
	}
	if next.ID == activityID {
		log.Info("Only one group in room, not assigning judge",
			attr.RoundCode(req.RoundCode),
			attr.RegistrantID(p.RegistrantID),
			attr.ActivityID(activityID),
		)
		return schedule.FlatActivity{}, false
	}
	return next, true
}

// Validate skips the step unless some candidate competes in a group that
// has a later group in the same room.
func (g JudgeAssignmentsFromCompetingAssignments) Validate(req Request) bool {
	if len(req.RoundGroups) < 2 {
		return true
	}
	quiet := slog.New(slog.DiscardHandler)
	return !slices.ContainsFunc(g.candidates(req), func(p comptypes.Person) bool {
		_, ok := g.groupToJudge(req, p, quiet)
		return ok
	})
}

func (g JudgeAssignmentsFromCompetingAssignments) Generate(req Request) ([]persons.InFlightAssignment, error) {
	log := req.logger()

	var out []persons.InFlightAssignment
	for _, p := range g.candidates(req) {
		if next, ok := g.groupToJudge(req, p, log); ok {
			out = append(out, judgeFor(p.RegistrantID, next))
		}
	}
	return out, nil
}

func judgeFor(registrantID int, group schedule.FlatActivity) persons.InFlightAssignment {
	return persons.InFlightAssignment{
		RegistrantID: registrantID,
		Assignment: comptypes.Assignment{
			ActivityID:     group.ID,
			AssignmentCode: comptypes.AssignmentStaffJudge,
		},
	}
}
