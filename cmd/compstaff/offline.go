package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	competitionservice "github.com/compstaff/compstaff/app/modules/competition/application"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	"github.com/compstaff/compstaff/app/observability"
	"github.com/compstaff/compstaff/config"
	"github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	inFlagName    = "in"
	outFlagName   = "out"
	roundFlagName = "round"
)

func inFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     inFlagName,
		Aliases:  []string{"i"},
		Usage:    "competition JSON document to read",
		Required: true,
	}
}

func outFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    outFlagName,
		Aliases: []string{"o"},
		Usage:   "where to write the updated document (default: stdout)",
	}
}

func roundFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     roundFlagName,
		Aliases:  []string{"r"},
		Usage:    "round activity code, e.g. 333-r1",
		Required: true,
	}
}

func verboseFlag() cli.Flag {
	return &cli.BoolFlag{Name: "verbose", Usage: "log engine decisions to stderr"}
}

// offlineSession runs service operations against a document file held in a
// memory repository.
type offlineSession struct {
	service *competitionservice.CompetitionService
	repo    *competitiondb.MemoryRepository
	compID  string
	stdout  io.Writer
	stderr  io.Writer
}

func newOfflineSession(c *cli.Context) (*offlineSession, error) {
	cfg, err := offlineConfig(c)
	if err != nil {
		return nil, err
	}
	recipes, err := config.LoadRecipes(cfg)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(c.String(inFlagName))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	var doc comptypes.Competition
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	if doc.ID == "" {
		return nil, competitionservice.ErrMissingID
	}

	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))

	repo := competitiondb.NewMemoryRepository()
	service := competitionservice.NewCompetitionService(
		repo,
		logger,
		observability.NewNoopMetrics(),
		noop.NewTracerProvider().Tracer("compstaff-cli"),
		nil,
		nil,
		recipes,
	)
	if _, err := service.SaveCompetition(c.Context, doc, ""); err != nil {
		return nil, err
	}

	return &offlineSession{
		service: service,
		repo:    repo,
		compID:  doc.ID,
		stdout:  c.App.Writer,
		stderr:  c.App.ErrWriter,
	}, nil
}

// writeDocument writes the stored document to path, or stdout when empty.
func (s *offlineSession) writeDocument(ctx context.Context, path string) error {
	row, err := s.repo.Get(ctx, nil, s.compID)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(row.Document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	body = append(body, '\n')
	if path == "" {
		_, err = s.stdout.Write(body)
		return err
	}
	return os.WriteFile(path, body, 0o644)
}

// summary prints v as indented JSON to stderr, keeping stdout for the
// document.
func (s *offlineSession) summary(v any) error {
	enc := json.NewEncoder(s.stderr)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newGenerateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "run a recipe for one round of a document file",
		Flags: []cli.Flag{
			inFlag(), outFlag(), roundFlag(), verboseFlag(),
			&cli.StringFlag{Name: "recipe", Usage: "recipe id (default: engine.default_recipe)"},
		},
		Action: func(c *cli.Context) error {
			s, err := newOfflineSession(c)
			if err != nil {
				return err
			}
			res, err := s.service.GenerateAssignments(c.Context, s.compID, c.String(roundFlagName), c.String("recipe"))
			if err != nil {
				return err
			}
			if err := s.summary(res); err != nil {
				return err
			}
			return s.writeDocument(c.Context, c.String(outFlagName))
		},
	}
}

func newGroupsCommand() *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "rebuild the groups of one round to a given count",
		Flags: []cli.Flag{
			inFlag(), outFlag(), roundFlag(), verboseFlag(),
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: "groups per room (default: engine.default_group_count)"},
		},
		Action: func(c *cli.Context) error {
			s, err := newOfflineSession(c)
			if err != nil {
				return err
			}
			count := c.Int("count")
			if count <= 0 {
				cfg, err := offlineConfig(c)
				if err != nil {
					return err
				}
				count = max(cfg.Engine.DefaultGroupCount, 1)
			}
			res, err := s.service.CreateGroups(c.Context, s.compID, c.String(roundFlagName), count)
			if err != nil {
				return err
			}
			if err := s.summary(res); err != nil {
				return err
			}
			return s.writeDocument(c.Context, c.String(outFlagName))
		},
	}
}

func newResetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "remove every assignment on the groups of one round",
		Flags: []cli.Flag{inFlag(), outFlag(), roundFlag(), verboseFlag()},
		Action: func(c *cli.Context) error {
			s, err := newOfflineSession(c)
			if err != nil {
				return err
			}
			res, err := s.service.ResetRound(c.Context, s.compID, c.String(roundFlagName))
			if err != nil {
				return err
			}
			if err := s.summary(res); err != nil {
				return err
			}
			return s.writeDocument(c.Context, c.String(outFlagName))
		},
	}
}

func newImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "apply a CSV or XLSX assignment sheet to a document file",
		Flags: []cli.Flag{
			inFlag(), outFlag(), verboseFlag(),
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "assignment sheet (.csv or .xlsx)", Required: true},
			&cli.BoolFlag{Name: "preview", Usage: "only report problems, do not write the document"},
		},
		Action: func(c *cli.Context) error {
			s, err := newOfflineSession(c)
			if err != nil {
				return err
			}
			sheet := c.String("file")
			data, err := os.ReadFile(sheet)
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}
			name := filepath.Base(sheet)

			if c.Bool("preview") {
				reports, err := s.service.PreviewImport(c.Context, s.compID, name, data)
				if err != nil {
					return err
				}
				return s.summary(map[string]any{"reports": nonNil(reports)})
			}

			res, err := s.service.ApplyImport(c.Context, s.compID, name, data)
			if err != nil {
				return err
			}
			if err := s.summary(res); err != nil {
				return err
			}
			return s.writeDocument(c.Context, c.String(outFlagName))
		},
	}
}

func newValidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check a document file for structural problems",
		Flags: []cli.Flag{
			inFlag(), verboseFlag(),
			&cli.BoolFlag{Name: "strict", Usage: "exit with an error when any report is raised"},
		},
		Action: func(c *cli.Context) error {
			s, err := newOfflineSession(c)
			if err != nil {
				return err
			}
			reports, err := s.service.ValidateCompetition(c.Context, s.compID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(s.stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"reports": nonNil(reports)}); err != nil {
				return err
			}
			if c.Bool("strict") && len(reports) > 0 {
				return fmt.Errorf("%d problem(s) found", len(reports))
			}
			return nil
		},
	}
}

func nonNil(reports []comptypes.Report) []comptypes.Report {
	if reports == nil {
		return []comptypes.Report{}
	}
	return reports
}
