package schedule

import (
	"fmt"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// NextGroupNumber is the circular successor of n among groups 1..size.
func NextGroupNumber(n, size int) int {
	return n%size + 1
}

// PreviousGroupNumber is the circular predecessor of n among groups 1..size.
func PreviousGroupNumber(n, size int) int {
	return (n-2+size)%size + 1
}

// NextGroup returns the group that follows activityID in the same room.
func (ix *Index) NextGroup(activityID int) (FlatActivity, error) {
	return ix.rotate(activityID, NextGroupNumber)
}

// PreviousGroup returns the group that precedes activityID in the same room.
func (ix *Index) PreviousGroup(activityID int) (FlatActivity, error) {
	return ix.rotate(activityID, PreviousGroupNumber)
}

func (ix *Index) rotate(activityID int, step func(n, size int) int) (FlatActivity, error) {
	a, ok := ix.ByID(activityID)
	if !ok {
		return FlatActivity{}, &comptypes.ResolutionError{
			Code:    comptypes.ErrCodeActivityNotFound,
			Message: fmt.Sprintf("activity %d", activityID),
			Err:     comptypes.ErrActivityNotFound,
		}
	}
	parent, ok := ix.Parent(a)
	if !ok {
		return FlatActivity{}, &comptypes.ResolutionError{
			Code:    comptypes.ErrCodeActivityNotFound,
			Message: fmt.Sprintf("activity %d has no parent round activity", activityID),
			Err:     comptypes.ErrActivityNotFound,
		}
	}
	n := a.Code().GroupNumber
	size := len(parent.ChildActivities)
	if n < 1 || size == 0 {
		return FlatActivity{}, &comptypes.ResolutionError{
			Code:    comptypes.ErrCodeNoGroups,
			Message: fmt.Sprintf("activity %d (%s) is not a numbered group", activityID, a.ActivityCode),
		}
	}

	target := step(n, size)
	for _, sibling := range ix.Siblings(a) {
		if sibling.Code().GroupNumber == target {
			return sibling, nil
		}
	}
	return FlatActivity{}, &comptypes.ResolutionError{
		Code:    comptypes.ErrCodeActivityNotFound,
		Message: fmt.Sprintf("group %d of %s in room %d", target, parent.ActivityCode, a.RoomID),
		Err:     comptypes.ErrActivityNotFound,
	}
}
