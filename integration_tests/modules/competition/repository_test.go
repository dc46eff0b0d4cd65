package competition_test

import (
	"testing"

	comptypes "github.com/compstaff/compstaff/app/modules/competition/domain/types"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	"github.com/compstaff/compstaff/integration_tests/testutils"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := cleanDB(t)
	repo := env.DBService.CompetitionDB

	gen := testutils.NewTestDataGenerator(42)
	doc := gen.GenerateCompetition(testutils.CompetitionOptions{Groups: 3, Rooms: 2, Persons: 10})
	doc.Persons[0].Assignments = []comptypes.Assignment{{ActivityID: 2, AssignmentCode: comptypes.AssignmentCompetitor}}

	row := &competitiondb.Competition{ID: doc.ID, Name: doc.Name, Document: doc}
	require.NoError(t, repo.Create(ctx, nil, row))
	require.NotEqual(t, uuid.Nil, row.Revision)

	got, err := repo.Get(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, row.Revision, got.Revision)
	if diff := cmp.Diff(doc, got.Document, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("stored document differs (-want +got):\n%s", diff)
	}

	dup := &competitiondb.Competition{ID: doc.ID, Name: "again", Document: doc}
	require.ErrorIs(t, repo.Create(ctx, nil, dup), competitiondb.ErrAlreadyExists)
}

func TestRepositoryOptimisticUpdate(t *testing.T) {
	ctx := cleanDB(t)
	repo := env.DBService.CompetitionDB

	doc := comptypes.Competition{ID: "Open2026", Name: "Open 2026"}
	row := &competitiondb.Competition{ID: doc.ID, Name: doc.Name, Document: doc}
	require.NoError(t, repo.Create(ctx, nil, row))
	first := row.Revision

	row.Name = "Open 2026 Final"
	row.Document.Name = row.Name
	require.NoError(t, repo.Update(ctx, nil, row, first))
	require.NotEqual(t, first, row.Revision)

	stale := &competitiondb.Competition{ID: doc.ID, Name: "lost", Document: doc}
	require.ErrorIs(t, repo.Update(ctx, nil, stale, first), competitiondb.ErrRevisionConflict)
	assert.Equal(t, first, stale.Revision, "a rejected update keeps the caller's revision")

	missing := &competitiondb.Competition{ID: "Nope2026", Document: comptypes.Competition{ID: "Nope2026"}}
	require.ErrorIs(t, repo.Update(ctx, nil, missing, first), competitiondb.ErrNotFound)

	got, err := repo.Get(ctx, nil, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open 2026 Final", got.Document.Name)
}

func TestRepositoryListAndDelete(t *testing.T) {
	ctx := cleanDB(t)
	repo := env.DBService.CompetitionDB

	for _, id := range []string{"Spring2026", "Summer2026"} {
		require.NoError(t, repo.Create(ctx, nil, &competitiondb.Competition{ID: id, Name: id, Document: comptypes.Competition{ID: id}}))
	}

	list, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{"Spring2026", "Summer2026"}, ids)

	require.NoError(t, repo.Delete(ctx, nil, "Spring2026"))
	require.ErrorIs(t, repo.Delete(ctx, nil, "Spring2026"), competitiondb.ErrNotFound)
	_, err = repo.Get(ctx, nil, "Spring2026")
	require.ErrorIs(t, err, competitiondb.ErrNotFound)
}
