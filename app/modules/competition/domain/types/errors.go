package comptypes

import (
	"errors"
	"fmt"
)

// Error codes carried by the structured errors below.
const (
	ErrCodeMalformedActivityCode = "MALFORMED_ACTIVITY_CODE"
	ErrCodeMalformedCell         = "MALFORMED_CELL"
	ErrCodeAmbiguousStage        = "AMBIGUOUS_STAGE"
	ErrCodeUnknownStage          = "UNKNOWN_STAGE"
	ErrCodeNoStage               = "NO_STAGE"
	ErrCodeActivityNotFound      = "ACTIVITY_NOT_FOUND"
	ErrCodeRoundNotFound         = "ROUND_NOT_FOUND"
	ErrCodePersonNotFound        = "PERSON_NOT_FOUND"
	ErrCodeNoGroups              = "NO_GROUPS"
	ErrCodeNothingToDo           = "NOTHING_TO_DO"
)

var (
	// ErrActivityNotFound indicates an activity id or code is absent from the schedule.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrRoundNotFound indicates a round code that no event declares.
	ErrRoundNotFound = errors.New("round not found")
)

// ParseError is returned for malformed activity codes and import cells.
// The offending record is skipped; processing continues.
type ParseError struct {
	Code    string
	Input   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %q: %v", e.Message, e.Input, e.Err)
	}
	return fmt.Sprintf("%s %q", e.Message, e.Input)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ResolutionError is returned when a reference (email, activity, stage)
// cannot be resolved against the document.
type ResolutionError struct {
	Code    string
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// PreconditionError marks a round or step that was skipped.
type PreconditionError struct {
	Code    string
	Message string
}

func (e *PreconditionError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}
