package competitionservice

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	competitiondb "github.com/compstaff/compstaff/app/modules/competition/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Competition Repo
// ------------------------

type FakeCompetitionRepo struct {
	trace []string

	GetFunc    func(ctx context.Context, db bun.IDB, id string) (*competitiondb.Competition, error)
	ListFunc   func(ctx context.Context, db bun.IDB) ([]competitiondb.Summary, error)
	CreateFunc func(ctx context.Context, db bun.IDB, comp *competitiondb.Competition) error
	UpdateFunc func(ctx context.Context, db bun.IDB, comp *competitiondb.Competition, expected uuid.UUID) error
	DeleteFunc func(ctx context.Context, db bun.IDB, id string) error
}

func NewFakeCompetitionRepo() *FakeCompetitionRepo {
	return &FakeCompetitionRepo{
		trace: []string{},
	}
}

func (f *FakeCompetitionRepo) record(step string) {
	f.trace = append(f.trace, step)
}

// --- Repository Interface Implementation ---

func (f *FakeCompetitionRepo) Get(ctx context.Context, db bun.IDB, id string) (*competitiondb.Competition, error) {
	f.record("Get")
	if f.GetFunc != nil {
		return f.GetFunc(ctx, db, id)
	}
	return nil, competitiondb.ErrNotFound
}

func (f *FakeCompetitionRepo) List(ctx context.Context, db bun.IDB) ([]competitiondb.Summary, error) {
	f.record("List")
	if f.ListFunc != nil {
		return f.ListFunc(ctx, db)
	}
	return nil, nil
}

func (f *FakeCompetitionRepo) Create(ctx context.Context, db bun.IDB, comp *competitiondb.Competition) error {
	f.record("Create")
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, db, comp)
	}
	return nil
}

func (f *FakeCompetitionRepo) Update(ctx context.Context, db bun.IDB, comp *competitiondb.Competition, expected uuid.UUID) error {
	f.record("Update")
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, db, comp, expected)
	}
	return nil
}

func (f *FakeCompetitionRepo) Delete(ctx context.Context, db bun.IDB, id string) error {
	f.record("Delete")
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, db, id)
	}
	return nil
}

// --- Accessors for assertions ---

func (f *FakeCompetitionRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// Ensure the fake actually satisfies the interface
var _ competitiondb.Repository = (*FakeCompetitionRepo)(nil)

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	Topics []string
}

func (p *FakePublisher) Publish(topic string, messages ...*message.Message) error {
	for range messages {
		p.Topics = append(p.Topics, topic)
	}
	return nil
}

func (p *FakePublisher) Close() error { return nil }

var _ message.Publisher = (*FakePublisher)(nil)
