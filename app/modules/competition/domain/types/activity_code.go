package comptypes

import (
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// ActivityCode is the parsed form of "event[-rN][-gN][-aN]".
// A zero number means the segment is not specified; valid numbers start at 1.
type ActivityCode struct {
	EventID       string
	RoundNumber   int
	GroupNumber   int
	AttemptNumber int
}

var (
	activityCodePattern = regexp.MustCompile(`^(\w+)(?:-r(\d+))?(?:-g(\d+))?(?:-a(\d+))?$`)

	// well-formed codes only; malformed input never grows it
	activityCodeCache sync.Map
)

// ParseActivityCode parses an activity code. It fails closed: a malformed
// string yields a code carrying only the event id.
func ParseActivityCode(s string) ActivityCode {
	if cached, ok := activityCodeCache.Load(s); ok {
		return cached.(ActivityCode)
	}
	code, ok := parseActivityCode(s)
	if ok {
		activityCodeCache.Store(s, code)
	}
	return code
}

// parseActivityCode reports whether s matched the code pattern with every
// number in range.
func parseActivityCode(s string) (ActivityCode, bool) {
	m := activityCodePattern.FindStringSubmatch(s)
	if m == nil {
		eventID, _, _ := strings.Cut(s, "-")
		return ActivityCode{EventID: eventID}, false
	}

	code := ActivityCode{EventID: m[1]}
	fields := []*int{&code.RoundNumber, &code.GroupNumber, &code.AttemptNumber}
	for i, f := range fields {
		raw := m[i+2]
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return ActivityCode{EventID: m[1]}, false
		}
		*f = n
	}
	return code, true
}

// ValidateActivityCode is the strict counterpart of ParseActivityCode.
func ValidateActivityCode(s string) (ActivityCode, error) {
	code := ParseActivityCode(s)
	if code.String() != s {
		return code, &ParseError{Code: ErrCodeMalformedActivityCode, Input: s, Message: "malformed activity code"}
	}
	return code, nil
}

// CreateActivityCode builds the string form of a code.
func CreateActivityCode(code ActivityCode) string {
	var b strings.Builder
	b.WriteString(code.EventID)
	if code.RoundNumber > 0 {
		b.WriteString("-r")
		b.WriteString(strconv.Itoa(code.RoundNumber))
	}
	if code.GroupNumber > 0 {
		b.WriteString("-g")
		b.WriteString(strconv.Itoa(code.GroupNumber))
	}
	if code.AttemptNumber > 0 {
		b.WriteString("-a")
		b.WriteString(strconv.Itoa(code.AttemptNumber))
	}
	return b.String()
}

func (c ActivityCode) String() string {
	return CreateActivityCode(c)
}

// RoundCode returns the code of the round this code belongs to.
func (c ActivityCode) RoundCode() string {
	return CreateActivityCode(ActivityCode{EventID: c.EventID, RoundNumber: c.RoundNumber})
}

// IsChildOf reports whether every specified field of parent matches child.
func IsChildOf(parent, child ActivityCode) bool {
	if parent.EventID != child.EventID {
		return false
	}
	if parent.RoundNumber > 0 && parent.RoundNumber != child.RoundNumber {
		return false
	}
	if parent.GroupNumber > 0 && parent.GroupNumber != child.GroupNumber {
		return false
	}
	if parent.AttemptNumber > 0 && parent.AttemptNumber != child.AttemptNumber {
		return false
	}
	return true
}

// IsCodeChildOf is IsChildOf over raw strings.
func IsCodeChildOf(parent, child string) bool {
	return IsChildOf(ParseActivityCode(parent), ParseActivityCode(child))
}

// distributedAttemptEvents hold one attempt per group activity.
var distributedAttemptEvents = map[string]bool{
	"333fm":  true,
	"333mbf": true,
}

// IsDistributedAttemptEvent reports whether group codes carry an "-a1" suffix.
func IsDistributedAttemptEvent(eventID string) bool {
	return distributedAttemptEvents[eventID]
}

// GroupActivityCode synthesizes the code of a group activity.
func GroupActivityCode(eventID string, roundNumber, groupNumber int) string {
	code := ActivityCode{EventID: eventID, RoundNumber: roundNumber, GroupNumber: groupNumber}
	if IsDistributedAttemptEvent(eventID) {
		code.AttemptNumber = 1
	}
	return code.String()
}

// RoundActivityCode returns "<event>-r<N>".
func RoundActivityCode(eventID string, roundNumber int) string {
	return ActivityCode{EventID: eventID, RoundNumber: roundNumber}.String()
}
