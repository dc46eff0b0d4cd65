package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/google/uuid"
)

// TestDataGenerator provides methods to create competition documents for tests
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  int64
}

// NewTestDataGenerator creates a new test data generator with optional seed
func NewTestDataGenerator(seed ...int64) *TestDataGenerator {
	var s int64
	if len(seed) > 0 {
		s = seed[0]
	} else {
		s = time.Now().UnixNano()
	}

	return &TestDataGenerator{
		faker: gofakeit.New(uint64(s)),
		seed:  s,
	}
}

// Seed returns the seed the generator was created with.
func (g *TestDataGenerator) Seed() int64 {
	return g.seed
}

// CompetitionOptions shapes a generated competition.
type CompetitionOptions struct {
	Events     []string
	Rounds     int
	Rooms      int
	Groups     int
	Persons    int
	Delegates  int
	FirstTimer int // one in FirstTimer persons has no competitor id; 0 disables
	Start      time.Time
}

// GeneratePersons creates count persons registered for events, with
// personal bests for every event.
func (g *TestDataGenerator) GeneratePersons(count int, events []string) []comptypes.Person {
	persons := make([]comptypes.Person, count)
	for i := 0; i < count; i++ {
		p := comptypes.Person{
			RegistrantID: i + 1,
			Name:         g.faker.Name(),
			WcaID:        fmt.Sprintf("20%02d%s%02d", g.faker.Number(10, 25), g.faker.LetterN(4), i%100),
			WcaUserID:    g.faker.Number(1000, 999999),
			Email:        fmt.Sprintf("%d.%s", i+1, g.faker.Email()),
			CountryIso2:  g.faker.CountryAbr(),
			Registration: &comptypes.Registration{
				WcaRegistrationID: g.faker.Number(1, 1000000),
				Status:            comptypes.RegistrationAccepted,
				EventIDs:          append([]string(nil), events...),
				IsCompeting:       true,
			},
			Assignments: []comptypes.Assignment{},
		}
		for _, ev := range events {
			single := g.faker.Number(1, 50000)
			p.PersonalBests = append(p.PersonalBests,
				comptypes.PersonalBest{EventID: ev, Type: comptypes.ResultSingle, Best: g.faker.Number(500, 6000), WorldRanking: single},
				comptypes.PersonalBest{EventID: ev, Type: comptypes.ResultAverage, Best: g.faker.Number(600, 7000), WorldRanking: single + g.faker.Number(0, 500)},
			)
		}
		persons[i] = p
	}
	return persons
}

// GenerateCompetition creates a document with one venue, opts.Rooms rooms,
// every round of every event held in every room with opts.Groups groups.
func (g *TestDataGenerator) GenerateCompetition(opts CompetitionOptions) comptypes.Competition {
	if len(opts.Events) == 0 {
		opts.Events = []string{"333"}
	}
	opts.Rounds = max(opts.Rounds, 1)
	opts.Rooms = max(opts.Rooms, 1)
	opts.Groups = max(opts.Groups, 1)
	if opts.Start.IsZero() {
		opts.Start = time.Date(2026, 6, 6, 9, 0, 0, 0, time.UTC)
	}

	comp := comptypes.Competition{
		ID:   "Test" + uuid.NewString()[:8],
		Name: g.faker.Company() + " Open",
	}

	rooms := make([]comptypes.Room, opts.Rooms)
	for r := range rooms {
		rooms[r] = comptypes.Room{ID: r + 1, Name: fmt.Sprintf("Stage %c", 'A'+r), Color: g.faker.HexColor()}
	}

	nextID := 1
	slot := opts.Start
	for _, ev := range opts.Events {
		event := comptypes.Event{ID: ev}
		for rn := 1; rn <= opts.Rounds; rn++ {
			round := comptypes.Round{ID: comptypes.RoundActivityCode(ev, rn), Format: "a"}
			if rn < opts.Rounds {
				round.AdvancementCondition = &comptypes.AdvancementCondition{Type: "percent", Level: 75}
			}
			event.Rounds = append(event.Rounds, round)

			for r := range rooms {
				act := comptypes.Activity{
					ID:           nextID,
					Name:         fmt.Sprintf("%s Round %d", ev, rn),
					ActivityCode: round.ID,
					StartTime:    slot,
					EndTime:      slot.Add(time.Duration(opts.Groups) * 20 * time.Minute),
				}
				nextID++
				for gn := 1; gn <= opts.Groups; gn++ {
					start := slot.Add(time.Duration(gn-1) * 20 * time.Minute)
					act.ChildActivities = append(act.ChildActivities, comptypes.Activity{
						ID:           nextID,
						Name:         fmt.Sprintf("%s, Group %d", act.Name, gn),
						ActivityCode: comptypes.GroupActivityCode(ev, rn, gn),
						StartTime:    start,
						EndTime:      start.Add(20 * time.Minute),
					})
					nextID++
				}
				rooms[r].Activities = append(rooms[r].Activities, act)
			}
			slot = slot.Add(time.Duration(opts.Groups)*20*time.Minute + 10*time.Minute)
		}
		comp.Events = append(comp.Events, event)
	}

	comp.Schedule = comptypes.Schedule{
		StartDate:    opts.Start.Format(time.DateOnly),
		NumberOfDays: 1,
		Venues:       []comptypes.Venue{{ID: 1, Name: g.faker.City() + " Hall", Timezone: "UTC", Rooms: rooms}},
	}

	comp.Persons = g.GeneratePersons(opts.Persons, opts.Events)
	for i := 0; i < opts.Delegates && i < len(comp.Persons); i++ {
		comp.Persons[i].Roles = []string{comptypes.RoleDelegate}
	}
	if opts.FirstTimer > 0 {
		for i := range comp.Persons {
			if (i+1)%opts.FirstTimer == 0 {
				comp.Persons[i].WcaID = ""
			}
		}
	}
	return comp
}
