package mcp

import (
	"context"
	"time"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/progress"
	"github.com/meltforce/liftlog/internal/store"
)

// DataSource abstracts where the MCP tools read from. Local (in-process
// store) and HTTPClient (remote via REST API) both satisfy it.
type DataSource interface {
	Exercises(ctx context.Context) ([]string, error)
	Progress(ctx context.Context, exercise string) (progress.Progress, error)
	Summary(ctx context.Context) (progress.Summary, error)
	RecentSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// Local serves tool queries straight from the session store.
type Local struct {
	store *store.Store
	loc   *time.Location
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = (*Local)(nil)

// NewLocal creates a DataSource over st. Summary days are taken in loc.
func NewLocal(st *store.Store, loc *time.Location) *Local {
	if loc == nil {
		loc = time.UTC
	}
	return &Local{store: st, loc: loc}
}

func (l *Local) Exercises(_ context.Context) ([]string, error) {
	return progress.Catalog(l.store.All()), nil
}

func (l *Local) Progress(_ context.Context, exercise string) (progress.Progress, error) {
	return progress.DeriveIn(l.store.All(), exercise, l.loc), nil
}

func (l *Local) Summary(_ context.Context) (progress.Summary, error) {
	return progress.SummarizeIn(l.store.All(), l.loc), nil
}

func (l *Local) RecentSessions(_ context.Context, limit int) ([]models.Session, error) {
	return l.store.Recent(limit), nil
}
