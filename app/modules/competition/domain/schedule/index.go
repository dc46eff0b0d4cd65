// Package schedule indexes the venue → room → activity tree and produces
// new trees for group creation and time rebalancing. Nothing here mutates
// the document it was given.
package schedule

import (
	"slices"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// FlatActivity is an activity annotated with its position in the tree.
// ParentID is a lookup annotation (0 for round activities), never ownership.
type FlatActivity struct {
	comptypes.Activity
	ParentID int
	RoomID   int
	VenueID  int
	Depth    int
}

// Code returns the parsed activity code.
func (a FlatActivity) Code() comptypes.ActivityCode {
	return comptypes.ParseActivityCode(a.ActivityCode)
}

// RoomRef is a room together with the venue that owns it.
type RoomRef struct {
	VenueID  int
	Timezone string
	comptypes.Room
}

// Index is built once per document snapshot and must be rebuilt whenever a
// new document value is produced.
type Index struct {
	activities []FlatActivity
	byID       map[int]int
	rooms      []RoomRef
	maxID      int
}

// NewIndex flattens every activity at every depth.
func NewIndex(comp *comptypes.Competition) *Index {
	ix := &Index{byID: make(map[int]int)}
	for _, venue := range comp.Schedule.Venues {
		for _, room := range venue.Rooms {
			ix.rooms = append(ix.rooms, RoomRef{VenueID: venue.ID, Timezone: venue.Timezone, Room: room})
			for _, act := range room.Activities {
				ix.add(act, 0, room.ID, venue.ID, 0)
			}
		}
	}
	return ix
}

func (ix *Index) add(act comptypes.Activity, parentID, roomID, venueID, depth int) {
	ix.byID[act.ID] = len(ix.activities)
	ix.activities = append(ix.activities, FlatActivity{
		Activity: act,
		ParentID: parentID,
		RoomID:   roomID,
		VenueID:  venueID,
		Depth:    depth,
	})
	ix.maxID = max(ix.maxID, act.ID)
	for _, child := range act.ChildActivities {
		ix.add(child, act.ID, roomID, venueID, depth+1)
	}
}

// Activities returns every activity in tree order.
func (ix *Index) Activities() []FlatActivity {
	return slices.Clone(ix.activities)
}

// Rooms returns every room in tree order.
func (ix *Index) Rooms() []RoomRef {
	return slices.Clone(ix.rooms)
}

// Room returns the room with the given id.
func (ix *Index) Room(roomID int) (RoomRef, bool) {
	for _, r := range ix.rooms {
		if r.ID == roomID {
			return r, true
		}
	}
	return RoomRef{}, false
}

// ByID resolves an activity by id.
func (ix *Index) ByID(id int) (FlatActivity, bool) {
	i, ok := ix.byID[id]
	if !ok {
		return FlatActivity{}, false
	}
	return ix.activities[i], true
}

// Has reports whether an activity id exists.
func (ix *Index) Has(id int) bool {
	_, ok := ix.byID[id]
	return ok
}

// Parent resolves an activity's parent.
func (ix *Index) Parent(a FlatActivity) (FlatActivity, bool) {
	if a.ParentID == 0 {
		return FlatActivity{}, false
	}
	return ix.ByID(a.ParentID)
}

// ByCode returns every activity whose code equals code.
func (ix *Index) ByCode(code string) []FlatActivity {
	var out []FlatActivity
	for _, a := range ix.activities {
		if a.ActivityCode == code {
			out = append(out, a)
		}
	}
	return out
}

// NextID returns max(existing ids)+1.
func (ix *Index) NextID() int {
	return ix.maxID + 1
}

// RoundActivities returns the room-level activities of a round.
func (ix *Index) RoundActivities(roundCode string) []FlatActivity {
	var out []FlatActivity
	for _, a := range ix.activities {
		if a.Depth == 0 && a.ActivityCode == roundCode {
			out = append(out, a)
		}
	}
	return out
}

// RoundActivityInRoom returns the round activity held by the given room.
func (ix *Index) RoundActivityInRoom(roundCode string, roomID int) (FlatActivity, bool) {
	for _, a := range ix.RoundActivities(roundCode) {
		if a.RoomID == roomID {
			return a, true
		}
	}
	return FlatActivity{}, false
}

// GroupActivitiesByRound returns the group activities of a round across all
// rooms, ordered by group number then id.
func (ix *Index) GroupActivitiesByRound(roundCode string) []FlatActivity {
	roundIDs := make(map[int]bool)
	for _, a := range ix.RoundActivities(roundCode) {
		roundIDs[a.ID] = true
	}
	var out []FlatActivity
	for _, a := range ix.activities {
		if roundIDs[a.ParentID] && a.Code().GroupNumber > 0 {
			out = append(out, a)
		}
	}
	SortGroups(out)
	return out
}

// GroupIDs returns the ids of the given activities.
func GroupIDs(groups []FlatActivity) []int {
	ids := make([]int, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}

// RoomsForRound returns the rooms hosting a round activity of roundCode.
func (ix *Index) RoomsForRound(roundCode string) []RoomRef {
	var out []RoomRef
	for _, a := range ix.RoundActivities(roundCode) {
		if r, ok := ix.Room(a.RoomID); ok {
			out = append(out, r)
		}
	}
	return out
}

// Siblings returns the children of a's parent, a included.
func (ix *Index) Siblings(a FlatActivity) []FlatActivity {
	var out []FlatActivity
	for _, other := range ix.activities {
		if other.ParentID == a.ParentID && other.RoomID == a.RoomID && other.Depth == a.Depth {
			out = append(out, other)
		}
	}
	return out
}

// SortGroups orders activities by group number, then id.
func SortGroups(groups []FlatActivity) {
	slices.SortStableFunc(groups, func(a, b FlatActivity) int {
		if d := a.Code().GroupNumber - b.Code().GroupNumber; d != 0 {
			return d
		}
		return a.ID - b.ID
	})
}

// FindAllActivities flattens the document's schedule.
func FindAllActivities(comp *comptypes.Competition) []FlatActivity {
	return NewIndex(comp).Activities()
}

// GenerateNextID returns the next free activity id.
func GenerateNextID(comp *comptypes.Competition) int {
	return NewIndex(comp).NextID()
}

// FindRoundActivitiesByID returns the round activities of roundCode.
func FindRoundActivitiesByID(comp *comptypes.Competition, roundCode string) []FlatActivity {
	return NewIndex(comp).RoundActivities(roundCode)
}

// FindGroupActivitiesByRound returns the group activities of roundCode.
func FindGroupActivitiesByRound(comp *comptypes.Competition, roundCode string) []FlatActivity {
	return NewIndex(comp).GroupActivitiesByRound(roundCode)
}
