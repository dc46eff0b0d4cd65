package competitionservice

import (
	"context"
	"fmt"

	"github.com/compstaff/compstaff/app/modules/competition/application/importer/parsers"
	"github.com/compstaff/compstaff/app/modules/competition/application/validation"
	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitionevents "github.com/compstaff/compstaff/app/modules/competition/events"
	"github.com/compstaff/compstaff/app/observability/attr"
	"github.com/compstaff/compstaff/app/results"
	"github.com/uptrace/bun"
)

// parseImportFile picks a parser by filename and reads data into a table.
func (s *CompetitionService) parseImportFile(filename string, data []byte) (*parsers.Table, error) {
	parser, err := s.parsers.GetParser(filename)
	if err != nil {
		return nil, err
	}
	table, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImportFile, err)
	}
	return table, nil
}

// PreviewImport returns the advisory reports an import of the file would
// raise without changing the stored document.
func (s *CompetitionService) PreviewImport(ctx context.Context, compID, filename string, data []byte) ([]comptypes.Report, error) {
	previewTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]comptypes.Report, error], error) {
		table, err := s.parseImportFile(filename, data)
		if err != nil {
			return failureOrError[[]comptypes.Report](err, "parse import file")
		}
		row, err := s.repo.Get(ctx, db, compID)
		if err != nil {
			return failureOrError[[]comptypes.Report](err, "get competition")
		}
		return results.SuccessResult[[]comptypes.Report, error](s.importer.Check(row.Document, table)), nil
	}

	result, err := withTelemetry(s, ctx, "PreviewImport", compID, func(ctx context.Context) (results.OperationResult[[]comptypes.Report, error], error) {
		return runInTx(s, ctx, previewTx)
	})
	return unwrapResult(result, err)
}

// ApplyImport reconciles the stored document with the file and stores the
// result. Problems with individual rows come back as reports.
func (s *CompetitionService) ApplyImport(ctx context.Context, compID, filename string, data []byte) (*ImportResult, error) {
	applyTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[*ImportResult, error], error) {
		return s.applyImportLogic(ctx, db, compID, filename, data)
	}

	result, err := withTelemetry(s, ctx, "ApplyImport", compID, func(ctx context.Context) (results.OperationResult[*ImportResult, error], error) {
		return runInTx(s, ctx, applyTx)
	})
	out, err := unwrapResult(result, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, competitionevents.ImportAppliedV1, competitionevents.ImportAppliedPayloadV1{
		CompetitionID: out.CompetitionID,
		Revision:      out.Revision,
		Assignments:   out.Assignments,
		CreatedGroups: len(out.CreatedGroups),
		Reports:       len(out.Reports),
	})
	return out, nil
}

func (s *CompetitionService) applyImportLogic(ctx context.Context, db bun.IDB, compID, filename string, data []byte) (results.OperationResult[*ImportResult, error], error) {
	table, err := s.parseImportFile(filename, data)
	if err != nil {
		return failureOrError[*ImportResult](err, "parse import file")
	}

	row, err := s.repo.Get(ctx, db, compID)
	if err != nil {
		return failureOrError[*ImportResult](err, "get competition")
	}

	applied, err := s.importer.Apply(row.Document, table)
	if err != nil {
		return failureOrError[*ImportResult](err, "apply import")
	}

	if err := s.store(ctx, db, row, applied.Competition); err != nil {
		return failureOrError[*ImportResult](err, "store competition")
	}
	s.recordReports(ctx, applied.Reports)

	return results.SuccessResult[*ImportResult, error](&ImportResult{
		CompetitionID: compID,
		Revision:      row.Revision.String(),
		Assignments:   len(applied.Assignments),
		CreatedGroups: applied.CreatedGroups,
		Reports:       applied.Reports,
	}), nil
}

// ValidateCompetition runs every consistency check over the stored document.
func (s *CompetitionService) ValidateCompetition(ctx context.Context, compID string) ([]comptypes.Report, error) {
	validateTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]comptypes.Report, error], error) {
		row, err := s.repo.Get(ctx, db, compID)
		if err != nil {
			return failureOrError[[]comptypes.Report](err, "get competition")
		}
		reports := validation.Validate(row.Document)
		s.recordReports(ctx, reports)
		s.logger.InfoContext(ctx, "Validated competition",
			attr.ExtractCorrelationID(ctx),
			attr.CompetitionID(compID),
			attr.Int("reports", len(reports)),
		)
		return results.SuccessResult[[]comptypes.Report, error](reports), nil
	}

	result, err := withTelemetry(s, ctx, "ValidateCompetition", compID, func(ctx context.Context) (results.OperationResult[[]comptypes.Report, error], error) {
		return runInTx(s, ctx, validateTx)
	})
	reports, err := unwrapResult(result, err)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, competitionevents.ValidatedV1, competitionevents.ValidatedPayloadV1{
		CompetitionID: compID,
		Reports:       reports,
	})
	return reports, nil
}
