package comptime

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/compstaff/compstaff/app/observability/attr"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

// ErrNotInFuture is returned when the parsed time has already passed.
var ErrNotInFuture = errors.New("scheduled time must be in the future")

// Clock abstracts the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FakeClock returns NowFn() or the system time when unset.
type FakeClock struct {
	NowFn func() time.Time
}

func (f *FakeClock) Now() time.Time {
	if f.NowFn != nil {
		return f.NowFn()
	}
	return time.Now()
}

var compactTimePattern = regexp.MustCompile(`\b(\d{1,2})(\d{2})(am|pm)\b`)

// absoluteLayouts are tried before natural language parsing.
var absoluteLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 at 15:04",
}

// TimeParser turns operator input such as "tomorrow at 9am" into an instant
// in a venue's timezone.
type TimeParser struct {
	logger *slog.Logger
	parser *when.Parser
}

func NewTimeParser(logger *slog.Logger) *TimeParser {
	if logger == nil {
		logger = slog.Default()
	}
	w := when.New(nil)
	w.Add(en.All...)
	return &TimeParser{logger: logger, parser: w}
}

// VenueLocation returns the timezone of the first venue, or UTC when the
// document declares none.
func VenueLocation(comp comptypes.Competition) (*time.Location, error) {
	for _, v := range comp.Schedule.Venues {
		if v.Timezone == "" {
			continue
		}
		loc, err := time.LoadLocation(v.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to load venue timezone %q: %w", v.Timezone, err)
		}
		return loc, nil
	}
	return time.UTC, nil
}

// ParseScheduleTime parses input relative to clock in loc and returns the
// instant in UTC. RFC 3339 timestamps are accepted verbatim.
func (tp *TimeParser) ParseScheduleTime(input string, loc *time.Location, clock Clock) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, errors.New("scheduled time is required")
	}
	now := clock.Now().In(loc)

	if t, err := time.Parse(time.RFC3339, input); err == nil {
		return checkFuture(t, now)
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, input, loc); err == nil {
			return checkFuture(t, now)
		}
	}

	normalized := strings.ToLower(input)
	normalized = strings.ReplaceAll(normalized, "today ", "today at ")
	// "932am" -> "9:32 am"
	normalized = compactTimePattern.ReplaceAllString(normalized, "$1:$2 $3")

	r, err := tp.parser.Parse(normalized, now)
	if err != nil {
		tp.logger.Warn("Failed to parse time input", attr.String("input", normalized), attr.Error(err))
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize time format: %q", input)
	}

	parsed := r.Time.In(loc)
	tp.logger.Debug("Parsed schedule time",
		attr.String("input", normalized),
		attr.String("parsed_time", parsed.Format(time.RFC3339)),
	)
	return checkFuture(parsed, now)
}

func checkFuture(t, now time.Time) (time.Time, error) {
	t = t.Truncate(time.Minute)
	if t.Before(now.Truncate(time.Minute)) {
		return time.Time{}, fmt.Errorf("%w (parsed: %s, now: %s)", ErrNotInFuture, t.Format(time.RFC3339), now.Format(time.RFC3339))
	}
	return t.UTC(), nil
}
