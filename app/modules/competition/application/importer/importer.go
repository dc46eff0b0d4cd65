// Package importer reconciles a tabular assignment sheet into a competition
// document: cells become candidate assignments, missing groups are created
// and retimed, and the result is upserted into the roster.
package importer

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/compstaff/compstaff/app/modules/competition/application/importer/parsers"
	"github.com/compstaff/compstaff/app/modules/competition/domain/persons"
	"github.com/compstaff/compstaff/app/modules/competition/domain/schedule"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	"github.com/compstaff/compstaff/app/observability/attr"
)

const (
	// EmailColumn is the key column every sheet must carry.
	EmailColumn = "email"
	// StaffColumnSuffix names the sibling staff column of an event.
	StaffColumnSuffix = "-staff"
)

// ErrNoTable is returned when Apply or Check is called without a sheet.
var ErrNoTable = errors.New("import table is required")

// Candidate is one parsed cell token before its activity id is known.
// RoomID is 0 until the stage is resolved.
type Candidate struct {
	Row            int
	RegistrantID   int
	EventID        string
	GroupNumber    int
	ActivityCode   string
	AssignmentCode string
	RoomID         int
}

// Result is a finished import.
type Result struct {
	Competition   comptypes.Competition        `json:"competition"`
	Assignments   []persons.InFlightAssignment `json:"assignments"`
	CreatedGroups []comptypes.Activity         `json:"createdGroups"`
	Reports       []comptypes.Report           `json:"reports"`
}

// Importer applies assignment sheets. The zero value is not usable; use New.
type Importer struct {
	logger *slog.Logger
}

// New returns an Importer logging to logger, or nowhere when nil.
func New(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{logger: logger}
}

// Check returns the advisory findings for table without changing anything.
func Check(comp comptypes.Competition, table *parsers.Table) []comptypes.Report {
	return New(nil).Check(comp, table)
}

// Apply reconciles table into comp.
func Apply(comp comptypes.Competition, table *parsers.Table) (Result, error) {
	return New(nil).Apply(comp, table)
}

// Check reports a missing email column, rows without an email, emails that
// match nobody, and registered persons with an empty competing cell.
func (im *Importer) Check(comp comptypes.Competition, table *parsers.Table) []comptypes.Report {
	if table == nil {
		return nil
	}
	emailCol := table.Column(EmailColumn)
	if emailCol < 0 {
		return []comptypes.Report{{
			Type:    comptypes.ReportMissingEmailColumn,
			Key:     EmailColumn,
			Message: "sheet has no email column",
		}}
	}

	byEmail := personsByEmail(comp)
	var reports []comptypes.Report
	for i, row := range table.Rows {
		rowNum := i + 2
		email := table.Value(row, emailCol)
		if email == "" {
			reports = append(reports, comptypes.Report{
				Type:    comptypes.ReportRowMissingEmail,
				Key:     fmt.Sprintf("row:%d", rowNum),
				Message: fmt.Sprintf("row %d has no email", rowNum),
				Data:    map[string]any{"row": rowNum},
			})
			continue
		}
		p, ok := byEmail[strings.ToLower(email)]
		if !ok {
			reports = append(reports, comptypes.Report{
				Type:    comptypes.ReportUnknownEmail,
				Key:     strings.ToLower(email),
				Message: fmt.Sprintf("no person with email %s", email),
				Data:    map[string]any{"row": rowNum, "email": email},
			})
			continue
		}
		for _, ev := range comp.Events {
			col := table.Column(ev.ID)
			if col < 0 || table.Value(row, col) != "" || !persons.IsRegisteredFor(ev.ID)(p) {
				continue
			}
			reports = append(reports, comptypes.Report{
				Type:    comptypes.ReportMissingCompetitorValue,
				Key:     fmt.Sprintf("%d/%s", p.RegistrantID, ev.ID),
				Message: fmt.Sprintf("%s is registered for %s but has no group", p.Name, ev.ID),
				Data:    map[string]any{"row": rowNum, "registrantId": p.RegistrantID, "eventId": ev.ID},
			})
		}
	}
	return reports
}

// Apply parses every competing and staff cell, creates groups the sheet
// references but the schedule lacks, retimes the affected rounds and upserts
// the assignments. Bad cells become reports; they never abort the import.
func (im *Importer) Apply(comp comptypes.Competition, table *parsers.Table) (Result, error) {
	if table == nil {
		return Result{Competition: comp}, ErrNoTable
	}
	res := Result{Competition: comp, Reports: im.Check(comp, table)}
	emailCol := table.Column(EmailColumn)
	if emailCol < 0 {
		return res, nil
	}

	ix := schedule.NewIndex(&comp)
	byEmail := personsByEmail(comp)
	var competing, staff []Candidate

	for _, ev := range comp.Events {
		col := table.Column(ev.ID)
		staffCol := table.Column(ev.ID + StaffColumnSuffix)
		if col < 0 && staffCol < 0 {
			continue
		}
		stages := stagesFor(ix, comptypes.RoundActivityCode(ev.ID, 1))
		log := im.logger.With(attr.String("event_id", ev.ID))

		for i, row := range table.Rows {
			p, ok := byEmail[strings.ToLower(table.Value(row, emailCol))]
			if !ok {
				continue
			}
			base := Candidate{Row: i + 2, RegistrantID: p.RegistrantID, EventID: ev.ID}

			if cell := table.Value(row, col); cell != "" {
				parsed, err := ParseCompetingCell(cell, stages)
				if err != nil {
					log.Warn("Skipping competing cell", attr.RegistrantID(p.RegistrantID), attr.Error(err))
					res.Reports = append(res.Reports, cellReport(comptypes.ReportInvalidCompetingCell, base, cell, err))
				} else {
					c := base
					c.GroupNumber = parsed.GroupNumber
					c.RoomID = parsed.RoomID
					c.ActivityCode = comptypes.GroupActivityCode(ev.ID, 1, parsed.GroupNumber)
					c.AssignmentCode = comptypes.AssignmentCompetitor
					competing = append(competing, c)
				}
			}

			if cell := table.Value(row, staffCol); cell != "" {
				tokens, errs := ParseStaffCell(cell)
				for _, err := range errs {
					log.Warn("Skipping staff entry", attr.RegistrantID(p.RegistrantID), attr.Error(err))
					res.Reports = append(res.Reports, cellReport(comptypes.ReportInvalidStaffCell, base, cell, err))
				}
				for _, tok := range tokens {
					c := base
					c.GroupNumber = tok.GroupNumber
					c.ActivityCode = comptypes.GroupActivityCode(ev.ID, 1, tok.GroupNumber)
					c.AssignmentCode = tok.AssignmentCode
					staff = append(staff, c)
				}
			}
		}
	}

	competing, unresolved := resolveBareCompeting(ix, competing)
	res.Reports = append(res.Reports, unresolved...)
	staff, unresolved = resolveStaffRooms(ix, comp, competing, staff)
	res.Reports = append(res.Reports, unresolved...)

	// Competitors are resolved ahead of staff.
	candidates := slices.Concat(competing, staff)
	next, created, missing := im.createMissingGroups(comp, ix, candidates)
	res.Reports = append(res.Reports, missing...)
	res.CreatedGroups = created

	final := schedule.NewIndex(&next)
	for _, c := range candidates {
		group, ok := groupInRoom(final, c.ActivityCode, c.RoomID)
		if !ok {
			continue
		}
		res.Assignments = append(res.Assignments, persons.InFlightAssignment{
			RegistrantID: c.RegistrantID,
			Assignment:   comptypes.Assignment{ActivityID: group.ID, AssignmentCode: c.AssignmentCode},
		})
	}
	res.Competition, _ = persons.MergeAssignments(next, res.Assignments)

	im.logger.Info("Applied assignment import",
		attr.Int("assignments", len(res.Assignments)),
		attr.Int("created_groups", len(res.CreatedGroups)),
		attr.Int("reports", len(res.Reports)),
	)
	return res, nil
}

type missingGroup struct {
	code            string
	roomID          int
	eventIndex      int
	groupNumber     int
	roundActivityID int
}

// createMissingGroups records every (code, room) absent from the schedule
// once, orders them by event then group number, and creates them.
func (im *Importer) createMissingGroups(comp comptypes.Competition, ix *schedule.Index, candidates []Candidate) (comptypes.Competition, []comptypes.Activity, []comptypes.Report) {
	type key struct {
		code   string
		roomID int
	}
	seen := make(map[key]bool)
	var missing []missingGroup
	var reports []comptypes.Report

	for _, c := range candidates {
		k := key{c.ActivityCode, c.RoomID}
		if seen[k] {
			continue
		}
		seen[k] = true
		if _, ok := groupInRoom(ix, c.ActivityCode, c.RoomID); ok {
			continue
		}
		roundCode := comptypes.RoundActivityCode(c.EventID, 1)
		round, ok := ix.RoundActivityInRoom(roundCode, c.RoomID)
		if !ok {
			reports = append(reports, comptypes.Report{
				Type:    comptypes.ReportMissingRoundActivity,
				Key:     fmt.Sprintf("%s/%d", roundCode, c.RoomID),
				Message: fmt.Sprintf("room %d has no %s activity to hold %s", c.RoomID, roundCode, c.ActivityCode),
				Data:    map[string]any{"roundCode": roundCode, "roomId": c.RoomID, "activityCode": c.ActivityCode},
			})
			continue
		}
		missing = append(missing, missingGroup{
			code:            c.ActivityCode,
			roomID:          c.RoomID,
			eventIndex:      comp.EventIndex(c.EventID),
			groupNumber:     c.GroupNumber,
			roundActivityID: round.ID,
		})
	}
	if len(missing) == 0 {
		return comp, nil, reports
	}

	slices.SortStableFunc(missing, func(a, b missingGroup) int {
		return cmp.Or(
			cmp.Compare(a.eventIndex, b.eventIndex),
			cmp.Compare(a.groupNumber, b.groupNumber),
			cmp.Compare(a.roomID, b.roomID),
		)
	})
	requests := make([]schedule.GroupRequest, len(missing))
	for i, m := range missing {
		requests[i] = schedule.GroupRequest{RoundActivityID: m.roundActivityID, GroupNumber: m.groupNumber}
	}

	out, created, errs := schedule.AddGroups(comp, requests)
	for _, err := range errs {
		im.logger.Error("Failed to create group", attr.Error(err))
	}
	for _, g := range created {
		im.logger.Debug("Created group", attr.ActivityID(g.ID), attr.String("activity_code", g.ActivityCode))
	}
	return out, created, reports
}

// resolveBareCompeting places bare group numbers parsed without a room on
// the first stage that already holds that group.
func resolveBareCompeting(ix *schedule.Index, candidates []Candidate) ([]Candidate, []comptypes.Report) {
	var out []Candidate
	var reports []comptypes.Report
	for _, c := range candidates {
		if c.RoomID == 0 {
			for _, stage := range stagesFor(ix, comptypes.RoundActivityCode(c.EventID, 1)) {
				if _, ok := groupInRoom(ix, c.ActivityCode, stage.ID); ok {
					c.RoomID = stage.ID
					break
				}
			}
		}
		if c.RoomID == 0 {
			reports = append(reports, unresolvedReport(c))
			continue
		}
		out = append(out, c)
	}
	return out, reports
}

// resolveStaffRooms places staff tokens on the only stage, or else on the
// stage where the person competes in the same event.
func resolveStaffRooms(ix *schedule.Index, comp comptypes.Competition, competing, staff []Candidate) ([]Candidate, []comptypes.Report) {
	type key struct {
		registrantID int
		eventID      string
	}
	competingRoom := make(map[key]int)
	for _, c := range competing {
		if _, ok := competingRoom[key{c.RegistrantID, c.EventID}]; !ok {
			competingRoom[key{c.RegistrantID, c.EventID}] = c.RoomID
		}
	}

	var out []Candidate
	var reports []comptypes.Report
	for _, c := range staff {
		roundCode := comptypes.RoundActivityCode(c.EventID, 1)
		if stages := stagesFor(ix, roundCode); len(stages) == 1 {
			c.RoomID = stages[0].ID
		} else if room, ok := competingRoom[key{c.RegistrantID, c.EventID}]; ok {
			c.RoomID = room
		} else {
			c.RoomID = committedCompetingRoom(ix, comp, c.RegistrantID, roundCode)
		}
		if c.RoomID == 0 {
			reports = append(reports, unresolvedReport(c))
			continue
		}
		out = append(out, c)
	}
	return out, reports
}

func committedCompetingRoom(ix *schedule.Index, comp comptypes.Competition, registrantID int, roundCode string) int {
	p, ok := comp.FindPerson(registrantID)
	if !ok {
		return 0
	}
	for _, a := range p.Assignments {
		if !persons.IsCompetitor(a) {
			continue
		}
		act, ok := ix.ByID(a.ActivityID)
		if ok && act.Code().RoundCode() == roundCode {
			return act.RoomID
		}
	}
	return 0
}

// stagesFor returns the rooms holding roundCode, or every room when none do.
func stagesFor(ix *schedule.Index, roundCode string) []Stage {
	rooms := ix.RoomsForRound(roundCode)
	if len(rooms) == 0 {
		rooms = ix.Rooms()
	}
	stages := make([]Stage, len(rooms))
	for i, r := range rooms {
		stages[i] = Stage{ID: r.ID, Name: r.Name}
	}
	return stages
}

func groupInRoom(ix *schedule.Index, code string, roomID int) (schedule.FlatActivity, bool) {
	for _, a := range ix.ByCode(code) {
		if a.RoomID == roomID && a.Depth > 0 {
			return a, true
		}
	}
	return schedule.FlatActivity{}, false
}

func personsByEmail(comp comptypes.Competition) map[string]comptypes.Person {
	out := make(map[string]comptypes.Person, len(comp.Persons))
	for _, p := range comp.Persons {
		if p.Email != "" {
			out[strings.ToLower(strings.TrimSpace(p.Email))] = p
		}
	}
	return out
}

func cellReport(t comptypes.ReportType, c Candidate, cell string, err error) comptypes.Report {
	data := map[string]any{"row": c.Row, "registrantId": c.RegistrantID, "eventId": c.EventID, "cell": cell}
	var perr *comptypes.ParseError
	var rerr *comptypes.ResolutionError
	switch {
	case errors.As(err, &perr):
		data["code"] = perr.Code
	case errors.As(err, &rerr):
		data["code"] = rerr.Code
	}
	return comptypes.Report{
		Type:    t,
		Key:     fmt.Sprintf("%d/%s", c.RegistrantID, c.EventID),
		Message: err.Error(),
		Data:    data,
	}
}

func unresolvedReport(c Candidate) comptypes.Report {
	return comptypes.Report{
		Type:    comptypes.ReportUnresolvedStage,
		Key:     fmt.Sprintf("%d/%s", c.RegistrantID, c.ActivityCode),
		Message: fmt.Sprintf("cannot tell which stage %s belongs to", c.ActivityCode),
		Data: map[string]any{
			"row":            c.Row,
			"registrantId":   c.RegistrantID,
			"activityCode":   c.ActivityCode,
			"assignmentCode": c.AssignmentCode,
		},
	}
}
