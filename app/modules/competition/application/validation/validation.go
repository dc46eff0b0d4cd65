// Package validation inspects a finished competition document and reports
// structural and scheduling problems. It never modifies the document.
package validation

import (
	"fmt"

	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// Check produces the findings of one kind.
type Check func(comp *comptypes.Competition, ix *schedule.Index) []comptypes.Report

// Conflict is a pair of a person's assignments whose activities overlap.
type Conflict struct {
	ActivityID          int    `json:"activityId"`
	OtherActivityID     int    `json:"otherActivityId"`
	ActivityCode        string `json:"activityCode"`
	OtherCode           string `json:"otherActivityCode"`
	AssignmentCode      string `json:"assignmentCode"`
	OtherAssignmentCode string `json:"otherAssignmentCode"`
}

// DefaultChecks is every check Validate runs, in report order.
func DefaultChecks() []Check {
	return []Check{
		EventsWithoutRounds,
		RoundsWithoutAdvancement,
		RoundsWithoutActivities,
		AssignmentsWithoutActivity,
		ScheduleConflicts,
	}
}

// Validate runs checks, or DefaultChecks when none are given.
func Validate(comp comptypes.Competition, checks ...Check) []comptypes.Report {
	if len(checks) == 0 {
		checks = DefaultChecks()
	}
	ix := schedule.NewIndex(&comp)
	var reports []comptypes.Report
	for _, check := range checks {
		reports = append(reports, check(&comp, ix)...)
	}
	return reports
}

func EventsWithoutRounds(comp *comptypes.Competition, _ *schedule.Index) []comptypes.Report {
	var out []comptypes.Report
	for _, ev := range comp.Events {
		if len(ev.Rounds) > 0 {
			continue
		}
		out = append(out, comptypes.Report{
			Type:    comptypes.ReportNoRoundsForEvent,
			Key:     ev.ID,
			Message: fmt.Sprintf("event %s has no rounds", ev.ID),
			Data:    map[string]any{"eventId": ev.ID},
		})
	}
	return out
}

// RoundsWithoutAdvancement reports every round but the last of an event that
// has no advancement condition.
func RoundsWithoutAdvancement(comp *comptypes.Competition, _ *schedule.Index) []comptypes.Report {
	var out []comptypes.Report
	for _, ev := range comp.Events {
		for i, round := range ev.Rounds {
			if i == len(ev.Rounds)-1 || round.AdvancementCondition != nil {
				continue
			}
			out = append(out, comptypes.Report{
				Type:    comptypes.ReportMissingAdvancementCondition,
				Key:     round.ID,
				Message: fmt.Sprintf("round %s does not say who advances", round.ID),
				Data:    map[string]any{"roundId": round.ID},
			})
		}
	}
	return out
}

func RoundsWithoutActivities(comp *comptypes.Competition, ix *schedule.Index) []comptypes.Report {
	var out []comptypes.Report
	for _, ev := range comp.Events {
		for _, round := range ev.Rounds {
			if len(ix.RoundActivities(round.ID)) > 0 {
				continue
			}
			out = append(out, comptypes.Report{
				Type:    comptypes.ReportNoScheduleActivitiesForRound,
				Key:     round.ID,
				Message: fmt.Sprintf("round %s is not on the schedule", round.ID),
				Data:    map[string]any{"roundId": round.ID},
			})
		}
	}
	return out
}

// AssignmentsWithoutActivity reports each (person, activity id) pair whose
// activity is not in the schedule, once.
func AssignmentsWithoutActivity(comp *comptypes.Competition, ix *schedule.Index) []comptypes.Report {
	var out []comptypes.Report
	for _, p := range comp.Persons {
		seen := make(map[int]bool)
		for _, a := range p.Assignments {
			if ix.Has(a.ActivityID) || seen[a.ActivityID] {
				continue
			}
			seen[a.ActivityID] = true
			out = append(out, comptypes.Report{
				Type:    comptypes.ReportMissingActivityForAssignment,
				Key:     fmt.Sprintf("%d/%d", p.RegistrantID, a.ActivityID),
				Message: fmt.Sprintf("%s is assigned to activity %d, which does not exist", p.Name, a.ActivityID),
				Data: map[string]any{
					"registrantId":   p.RegistrantID,
					"activityId":     a.ActivityID,
					"assignmentCode": a.AssignmentCode,
				},
			})
		}
	}
	return out
}

// ScheduleConflicts bundles every overlapping pair of a person's
// assignments into one report per person. Two assignments on the same
// activity always conflict. Activities that merely touch do not.
func ScheduleConflicts(comp *comptypes.Competition, ix *schedule.Index) []comptypes.Report {
	type assigned struct {
		code string
		act  schedule.FlatActivity
	}

	var out []comptypes.Report
	for _, p := range comp.Persons {
		var held []assigned
		for _, a := range p.Assignments {
			if act, ok := ix.ByID(a.ActivityID); ok {
				held = append(held, assigned{code: a.AssignmentCode, act: act})
			}
		}

		var conflicts []Conflict
		for i := range held {
			for j := i + 1; j < len(held); j++ {
				a, b := held[i], held[j]
				if a.act.ID != b.act.ID && !a.act.Overlaps(b.act.Activity) {
					continue
				}
				conflicts = append(conflicts, Conflict{
					ActivityID:          a.act.ID,
					OtherActivityID:     b.act.ID,
					ActivityCode:        a.act.ActivityCode,
					OtherCode:           b.act.ActivityCode,
					AssignmentCode:      a.code,
					OtherAssignmentCode: b.code,
				})
			}
		}
		if len(conflicts) == 0 {
			continue
		}
		out = append(out, comptypes.Report{
			Type:    comptypes.ReportPersonAssignmentScheduleConflict,
			Key:     fmt.Sprintf("%d", p.RegistrantID),
			Message: fmt.Sprintf("%s has %d overlapping assignments", p.Name, len(conflicts)),
			Data: map[string]any{
				"registrantId": p.RegistrantID,
				"conflicts":    conflicts,
			},
		})
	}
	return out
}
