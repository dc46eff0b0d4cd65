package schedule

import (
	"fmt"
	"slices"
	"time"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// GroupRequest asks for group GroupNumber to exist under the round activity
// RoundActivityID.
type GroupRequest struct {
	RoundActivityID int
	GroupNumber     int
}

// CreateGroupsResult describes what CreateGroups changed.
type CreateGroupsResult struct {
	Created    []comptypes.Activity
	RemovedIDs []int
}

// CreateGroupActivity builds group groupNumber of round. Times are copied from
// the round and are expected to be rebalanced afterwards.
func CreateGroupActivity(id int, round comptypes.Activity, groupNumber int) comptypes.Activity {
	code := comptypes.ParseActivityCode(round.ActivityCode)
	return comptypes.Activity{
		ID:           id,
		Name:         fmt.Sprintf("%s, Group %d", round.Name, groupNumber),
		ActivityCode: comptypes.GroupActivityCode(code.EventID, code.RoundNumber, groupNumber),
		StartTime:    round.StartTime,
		EndTime:      round.EndTime,
	}
}

// UpdateChildActivities returns a new document in which the room-level
// activity activityID has been replaced by update(activity).
func UpdateChildActivities(comp comptypes.Competition, activityID int, update func(comptypes.Activity) comptypes.Activity) (comptypes.Competition, error) {
	out := comp.Clone()
	for v := range out.Schedule.Venues {
		for r := range out.Schedule.Venues[v].Rooms {
			acts := out.Schedule.Venues[v].Rooms[r].Activities
			for i := range acts {
				if acts[i].ID == activityID {
					acts[i] = update(acts[i])
					return out, nil
				}
			}
		}
	}
	return comp, &comptypes.ResolutionError{
		Code:    comptypes.ErrCodeActivityNotFound,
		Message: fmt.Sprintf("round activity %d", activityID),
		Err:     comptypes.ErrActivityNotFound,
	}
}

// RebalanceGroupTimes returns round with its children ordered by group number
// and each given an equal contiguous slice of the round's time span. The
// slices partition [StartTime, EndTime] exactly.
func RebalanceGroupTimes(round comptypes.Activity) comptypes.Activity {
	out := round.Clone()
	n := len(out.ChildActivities)
	if n == 0 {
		return out
	}
	slices.SortStableFunc(out.ChildActivities, func(a, b comptypes.Activity) int {
		ga, gb := comptypes.ParseActivityCode(a.ActivityCode).GroupNumber, comptypes.ParseActivityCode(b.ActivityCode).GroupNumber
		if ga != gb {
			return ga - gb
		}
		return a.ID - b.ID
	})

	span := int64(out.EndTime.Sub(out.StartTime))
	boundary := func(i int) time.Time {
		return out.StartTime.Add(time.Duration(span * int64(i) / int64(n)))
	}
	for i := range out.ChildActivities {
		out.ChildActivities[i].StartTime = boundary(i)
		out.ChildActivities[i].EndTime = boundary(i + 1)
	}
	return out
}

// AddGroups creates every requested group that does not already exist,
// allocating fresh ids in request order, then rebalances each touched round
// activity. Requests naming an unknown round activity are returned as errors
// alongside the partially updated document.
func AddGroups(comp comptypes.Competition, requests []GroupRequest) (comptypes.Competition, []comptypes.Activity, []error) {
	ix := NewIndex(&comp)
	nextID := ix.NextID()

	pending := make(map[int][]comptypes.Activity)
	var touched []int
	var created []comptypes.Activity
	var errs []error
	seen := make(map[GroupRequest]bool)

	for _, req := range requests {
		if seen[req] {
			continue
		}
		seen[req] = true

		round, ok := ix.ByID(req.RoundActivityID)
		if !ok || round.Depth != 0 {
			errs = append(errs, &comptypes.ResolutionError{
				Code:    comptypes.ErrCodeActivityNotFound,
				Message: fmt.Sprintf("round activity %d for group %d", req.RoundActivityID, req.GroupNumber),
				Err:     comptypes.ErrActivityNotFound,
			})
			continue
		}
		if hasGroup(round.Activity, req.GroupNumber) {
			continue
		}
		group := CreateGroupActivity(nextID, round.Activity, req.GroupNumber)
		nextID++
		if _, ok := pending[round.ID]; !ok {
			touched = append(touched, round.ID)
		}
		pending[round.ID] = append(pending[round.ID], group)
		created = append(created, group)
	}

	out := comp
	for _, roundID := range touched {
		groups := pending[roundID]
		var err error
		out, err = UpdateChildActivities(out, roundID, func(round comptypes.Activity) comptypes.Activity {
			round.ChildActivities = append(slices.Clone(round.ChildActivities), groups...)
			return RebalanceGroupTimes(round)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}

	// Report created groups with their final, rebalanced times.
	final := NewIndex(&out)
	for i, g := range created {
		if a, ok := final.ByID(g.ID); ok {
			created[i] = a.Activity
		}
	}
	return out, created, errs
}

// CreateGroups makes every round activity of roundCode hold exactly groups
// 1..count, removing higher-numbered groups, rebalancing times and recording
// the count in the groups extension.
func CreateGroups(comp comptypes.Competition, roundCode string, count int) (comptypes.Competition, CreateGroupsResult, error) {
	if count < 1 {
		return comp, CreateGroupsResult{}, &comptypes.PreconditionError{
			Code:    comptypes.ErrCodeNoGroups,
			Message: fmt.Sprintf("group count must be positive, got %d", count),
		}
	}
	ix := NewIndex(&comp)
	rounds := ix.RoundActivities(roundCode)
	if len(rounds) == 0 {
		return comp, CreateGroupsResult{}, &comptypes.ResolutionError{
			Code:    comptypes.ErrCodeActivityNotFound,
			Message: fmt.Sprintf("no round activities for %s", roundCode),
			Err:     comptypes.ErrActivityNotFound,
		}
	}

	var result CreateGroupsResult
	var requests []GroupRequest
	out := comp
	for _, round := range rounds {
		for g := 1; g <= count; g++ {
			requests = append(requests, GroupRequest{RoundActivityID: round.ID, GroupNumber: g})
		}
		var extErr error
		next, err := UpdateChildActivities(out, round.ID, func(a comptypes.Activity) comptypes.Activity {
			kept := a.ChildActivities[:0:0]
			for _, child := range a.ChildActivities {
				if comptypes.ParseActivityCode(child.ActivityCode).GroupNumber > count {
					result.RemovedIDs = append(result.RemovedIDs, child.ID)
					continue
				}
				kept = append(kept, child)
			}
			a.ChildActivities = kept
			a.Extensions, extErr = comptypes.SetExtensionData(a.Extensions, comptypes.ExtensionGroups, comptypes.DefaultNamespace, comptypes.GroupsConfig{Groups: count})
			return RebalanceGroupTimes(a)
		})
		if err == nil {
			err = extErr
		}
		if err != nil {
			return comp, CreateGroupsResult{}, fmt.Errorf("update round activity %d: %w", round.ID, err)
		}
		out = next
	}

	out, created, errs := AddGroups(out, requests)
	if len(errs) > 0 {
		return comp, CreateGroupsResult{}, errs[0]
	}
	result.Created = created
	return out, result, nil
}

func hasGroup(round comptypes.Activity, groupNumber int) bool {
	for _, child := range round.ChildActivities {
		if comptypes.ParseActivityCode(child.ActivityCode).GroupNumber == groupNumber {
			return true
		}
	}
	return false
}
