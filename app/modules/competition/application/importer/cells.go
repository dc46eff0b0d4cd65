package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
)

// Stage is a room that can host an event.
type Stage struct {
	ID   int
	Name string
}

// CompetingCell is a parsed competing value. RoomID is 0 when the stage is
// left for the caller to resolve.
type CompetingCell struct {
	RoomID      int
	GroupNumber int
}

// StaffToken is one parsed entry of a staff cell.
type StaffToken struct {
	AssignmentCode string
	GroupNumber    int
}

var (
	bareGroupPattern     = regexp.MustCompile(`^(\d+)$`)
	prefixedGroupPattern = regexp.MustCompile(`^([A-Za-z]+)\s*(\d+)$`)
	staffTokenPattern    = regexp.MustCompile(`^([RSJrsj]?)(\d+)$`)
	staffSeparators      = regexp.MustCompile(`[,;\s]+`)
)

var staffCodes = map[string]string{
	"":  comptypes.AssignmentStaffJudge,
	"j": comptypes.AssignmentStaffJudge,
	"s": comptypes.AssignmentStaffScrambler,
	"r": comptypes.AssignmentStaffRunner,
}

// ParseCompetingCell parses "<group>" or "<StagePrefix><group>".
//
// A bare number resolves to the only stage when there is one. With more than
// two stages it is ambiguous. With exactly two it parses without a room and
// the caller decides.
func ParseCompetingCell(cell string, stages []Stage) (CompetingCell, error) {
	cell = strings.TrimSpace(cell)

	if m := bareGroupPattern.FindStringSubmatch(cell); m != nil {
		group, err := groupNumber(cell, m[1])
		if err != nil {
			return CompetingCell{}, err
		}
		switch {
		case len(stages) == 0:
			return CompetingCell{}, &comptypes.ResolutionError{
				Code:    comptypes.ErrCodeNoStage,
				Message: fmt.Sprintf("no stage to place %q in", cell),
			}
		case len(stages) == 1:
			return CompetingCell{RoomID: stages[0].ID, GroupNumber: group}, nil
		case len(stages) > 2:
			return CompetingCell{}, &comptypes.ParseError{
				Code:    comptypes.ErrCodeAmbiguousStage,
				Input:   cell,
				Message: fmt.Sprintf("group without stage prefix is ambiguous across %d stages", len(stages)),
			}
		}
		return CompetingCell{GroupNumber: group}, nil
	}

	if m := prefixedGroupPattern.FindStringSubmatch(cell); m != nil {
		group, err := groupNumber(cell, m[2])
		if err != nil {
			return CompetingCell{}, err
		}
		stage, err := matchStage(cell, m[1], stages)
		if err != nil {
			return CompetingCell{}, err
		}
		return CompetingCell{RoomID: stage.ID, GroupNumber: group}, nil
	}

	return CompetingCell{}, &comptypes.ParseError{
		Code:    comptypes.ErrCodeMalformedCell,
		Input:   cell,
		Message: "competing value must be a group number, optionally prefixed by a stage",
	}
}

// matchStage resolves a prefix against full stage names first, then against
// the individual words of each name.
func matchStage(cell, prefix string, stages []Stage) (Stage, error) {
	prefix = strings.ToLower(prefix)

	byName := filterStages(stages, func(s Stage) bool {
		return strings.HasPrefix(strings.ToLower(s.Name), prefix)
	})
	if len(byName) == 0 {
		byName = filterStages(stages, func(s Stage) bool {
			for _, word := range strings.Fields(strings.ToLower(s.Name)) {
				if strings.HasPrefix(word, prefix) {
					return true
				}
			}
			return false
		})
	}

	switch len(byName) {
	case 1:
		return byName[0], nil
	case 0:
		return Stage{}, &comptypes.ParseError{
			Code:    comptypes.ErrCodeUnknownStage,
			Input:   cell,
			Message: fmt.Sprintf("no stage matches %q", prefix),
		}
	}
	return Stage{}, &comptypes.ParseError{
		Code:    comptypes.ErrCodeAmbiguousStage,
		Input:   cell,
		Message: fmt.Sprintf("%d stages match %q", len(byName), prefix),
	}
}

func filterStages(stages []Stage, keep func(Stage) bool) []Stage {
	var out []Stage
	for _, s := range stages {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

// ParseStaffCell splits a staff cell into tokens. A bare number means judge;
// R, S and J prefixes mean runner, scrambler and judge. Bad tokens are
// returned as errors alongside the good ones.
func ParseStaffCell(cell string) ([]StaffToken, []error) {
	var tokens []StaffToken
	var errs []error
	for _, raw := range staffSeparators.Split(strings.TrimSpace(cell), -1) {
		if raw == "" {
			continue
		}
		m := staffTokenPattern.FindStringSubmatch(raw)
		if m == nil {
			errs = append(errs, &comptypes.ParseError{
				Code:    comptypes.ErrCodeMalformedCell,
				Input:   raw,
				Message: "staff entry must be a group number, optionally prefixed by R, S or J",
			})
			continue
		}
		group, err := groupNumber(raw, m[2])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tokens = append(tokens, StaffToken{
			AssignmentCode: staffCodes[strings.ToLower(m[1])],
			GroupNumber:    group,
		})
	}
	return tokens, errs
}

func groupNumber(cell, digits string) (int, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 0, &comptypes.ParseError{
			Code:    comptypes.ErrCodeMalformedCell,
			Input:   cell,
			Message: "group number must be a positive integer",
			Err:     err,
		}
	}
	return n, nil
}
