package comptypes

import (
	"slices"
	"time"
)

// Assignment codes used on Person.Assignments.
const (
	AssignmentCompetitor     = "competitor"
	AssignmentStaffPrefix    = "staff-"
	AssignmentStaffJudge     = "staff-judge"
	AssignmentStaffScrambler = "staff-scrambler"
	AssignmentStaffRunner    = "staff-runner"
)

// Registration statuses.
const (
	RegistrationAccepted = "accepted"
	RegistrationPending  = "pending"
	RegistrationDeleted  = "deleted"
)

// Person roles that mark supervisory staff.
const (
	RoleDelegate        = "delegate"
	RoleTraineeDelegate = "trainee-delegate"
	RoleOrganizer       = "organizer"
)

// Personal best result types.
const (
	ResultSingle  = "single"
	ResultAverage = "average"
)

// Competition is the full schedule document the engine operates on.
type Competition struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	ShortName  string      `json:"shortName,omitempty"`
	Persons    []Person    `json:"persons"`
	Events     []Event     `json:"events"`
	Schedule   Schedule    `json:"schedule"`
	Extensions []Extension `json:"extensions,omitempty"`
}

// Schedule is the root of the venue → room → activity tree.
type Schedule struct {
	StartDate    string  `json:"startDate,omitempty"`
	NumberOfDays int     `json:"numberOfDays,omitempty"`
	Venues       []Venue `json:"venues"`
}

type Venue struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Timezone   string      `json:"timezone,omitempty"`
	Rooms      []Room      `json:"rooms"`
	Extensions []Extension `json:"extensions,omitempty"`
}

// Room is a stage. Its activities are round activities.
type Room struct {
	ID         int         `json:"id"`
	Name       string      `json:"name"`
	Color      string      `json:"color,omitempty"`
	Activities []Activity  `json:"activities"`
	Extensions []Extension `json:"extensions,omitempty"`
}

// Activity is a time-boxed node of the schedule. Ids are unique across the
// whole competition.
type Activity struct {
	ID              int         `json:"id"`
	Name            string      `json:"name"`
	ActivityCode    string      `json:"activityCode"`
	StartTime       time.Time   `json:"startTime"`
	EndTime         time.Time   `json:"endTime"`
	ChildActivities []Activity  `json:"childActivities"`
	Extensions      []Extension `json:"extensions,omitempty"`
}

// Overlaps reports whether the two activities' time ranges intersect.
func (a Activity) Overlaps(b Activity) bool {
	return a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
}

type Person struct {
	RegistrantID  int            `json:"registrantId"`
	Name          string         `json:"name"`
	WcaID         string         `json:"wcaId,omitempty"`
	WcaUserID     int            `json:"wcaUserId,omitempty"`
	Email         string         `json:"email,omitempty"`
	CountryIso2   string         `json:"countryIso2,omitempty"`
	Roles         []string       `json:"roles,omitempty"`
	Registration  *Registration  `json:"registration,omitempty"`
	Assignments   []Assignment   `json:"assignments"`
	PersonalBests []PersonalBest `json:"personalBests,omitempty"`
	Extensions    []Extension    `json:"extensions,omitempty"`
}

// HasRole reports whether the person holds any of the given roles.
func (p Person) HasRole(roles ...string) bool {
	for _, r := range p.Roles {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}

// PersonalBest returns the person's best of the given type for an event.
func (p Person) PersonalBest(eventID, resultType string) (PersonalBest, bool) {
	for _, pb := range p.PersonalBests {
		if pb.EventID == eventID && pb.Type == resultType {
			return pb, true
		}
	}
	return PersonalBest{}, false
}

type Registration struct {
	WcaRegistrationID int      `json:"wcaRegistrationId,omitempty"`
	Status            string   `json:"status"`
	EventIDs          []string `json:"eventIds"`
	IsCompeting       bool     `json:"isCompeting"`
}

// Assignment links a person to an activity. StationNumber is optional.
type Assignment struct {
	ActivityID     int    `json:"activityId"`
	AssignmentCode string `json:"assignmentCode"`
	StationNumber  *int   `json:"stationNumber,omitempty"`
}

type PersonalBest struct {
	EventID            string `json:"eventId"`
	Best               int    `json:"best"`
	WorldRanking       int    `json:"worldRanking"`
	ContinentalRanking int    `json:"continentalRanking,omitempty"`
	NationalRanking    int    `json:"nationalRanking,omitempty"`
	Type               string `json:"type"`
}

type Event struct {
	ID         string      `json:"id"`
	Rounds     []Round     `json:"rounds"`
	Extensions []Extension `json:"extensions,omitempty"`
}

// Round is keyed by its activity code (e.g. "333-r1").
type Round struct {
	ID                   string                `json:"id"`
	Format               string                `json:"format"`
	TimeLimit            *TimeLimit            `json:"timeLimit,omitempty"`
	Cutoff               *Cutoff               `json:"cutoff,omitempty"`
	AdvancementCondition *AdvancementCondition `json:"advancementCondition,omitempty"`
	ScrambleSetCount     int                   `json:"scrambleSetCount,omitempty"`
	Results              []Result              `json:"results,omitempty"`
	Extensions           []Extension           `json:"extensions,omitempty"`
}

type TimeLimit struct {
	Centiseconds       int      `json:"centiseconds"`
	CumulativeRoundIDs []string `json:"cumulativeRoundIds"`
}

type Cutoff struct {
	NumberOfAttempts int `json:"numberOfAttempts"`
	AttemptResult    int `json:"attemptResult"`
}

type AdvancementCondition struct {
	Type  string `json:"type"`
	Level int    `json:"level"`
}

// Result is one person's published outcome in a round.
type Result struct {
	PersonID int `json:"personId"`
	Ranking  int `json:"ranking,omitempty"`
	Best     int `json:"best,omitempty"`
	Average  int `json:"average,omitempty"`
}

// FindEvent returns the event with the given id.
func (c *Competition) FindEvent(eventID string) (*Event, bool) {
	for i := range c.Events {
		if c.Events[i].ID == eventID {
			return &c.Events[i], true
		}
	}
	return nil, false
}

// FindRound resolves a round by its code.
func (c *Competition) FindRound(roundCode string) (*Round, bool) {
	code := ParseActivityCode(roundCode)
	ev, ok := c.FindEvent(code.EventID)
	if !ok {
		return nil, false
	}
	for i := range ev.Rounds {
		if ev.Rounds[i].ID == roundCode {
			return &ev.Rounds[i], true
		}
	}
	return nil, false
}

// FindPerson returns the person with the given registrant id.
func (c *Competition) FindPerson(registrantID int) (*Person, bool) {
	for i := range c.Persons {
		if c.Persons[i].RegistrantID == registrantID {
			return &c.Persons[i], true
		}
	}
	return nil, false
}

// EventIndex returns the position of the event in the competition, or
// len(Events) when unknown so unknown events sort last.
func (c *Competition) EventIndex(eventID string) int {
	for i, ev := range c.Events {
		if ev.ID == eventID {
			return i
		}
	}
	return len(c.Events)
}

// Clone returns a deep copy of the document.
func (c Competition) Clone() Competition {
	out := c
	out.Persons = cloneSlice(c.Persons, Person.Clone)
	out.Events = cloneSlice(c.Events, Event.Clone)
	out.Schedule = c.Schedule.Clone()
	out.Extensions = cloneExtensions(c.Extensions)
	return out
}

func (s Schedule) Clone() Schedule {
	out := s
	out.Venues = cloneSlice(s.Venues, Venue.Clone)
	return out
}

func (v Venue) Clone() Venue {
	out := v
	out.Rooms = cloneSlice(v.Rooms, Room.Clone)
	out.Extensions = cloneExtensions(v.Extensions)
	return out
}

func (r Room) Clone() Room {
	out := r
	out.Activities = cloneSlice(r.Activities, Activity.Clone)
	out.Extensions = cloneExtensions(r.Extensions)
	return out
}

func (a Activity) Clone() Activity {
	out := a
	out.ChildActivities = cloneSlice(a.ChildActivities, Activity.Clone)
	out.Extensions = cloneExtensions(a.Extensions)
	return out
}

func (p Person) Clone() Person {
	out := p
	out.Roles = slices.Clone(p.Roles)
	if p.Registration != nil {
		reg := *p.Registration
		reg.EventIDs = slices.Clone(p.Registration.EventIDs)
		out.Registration = &reg
	}
	out.Assignments = cloneSlice(p.Assignments, Assignment.Clone)
	out.PersonalBests = slices.Clone(p.PersonalBests)
	out.Extensions = cloneExtensions(p.Extensions)
	return out
}

func (a Assignment) Clone() Assignment {
	out := a
	if a.StationNumber != nil {
		n := *a.StationNumber
		out.StationNumber = &n
	}
	return out
}

func (e Event) Clone() Event {
	out := e
	out.Rounds = cloneSlice(e.Rounds, Round.Clone)
	out.Extensions = cloneExtensions(e.Extensions)
	return out
}

func (r Round) Clone() Round {
	out := r
	if r.TimeLimit != nil {
		tl := *r.TimeLimit
		tl.CumulativeRoundIDs = slices.Clone(r.TimeLimit.CumulativeRoundIDs)
		out.TimeLimit = &tl
	}
	if r.Cutoff != nil {
		c := *r.Cutoff
		out.Cutoff = &c
	}
	if r.AdvancementCondition != nil {
		ac := *r.AdvancementCondition
		out.AdvancementCondition = &ac
	}
	out.Results = slices.Clone(r.Results)
	out.Extensions = cloneExtensions(r.Extensions)
	return out
}

func cloneSlice[T any](in []T, clone func(T) T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	for i, v := range in {
		out[i] = clone(v)
	}
	return out
}
