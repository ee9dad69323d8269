package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/models"
)

// Sink receives converted sessions. *store.Store satisfies it.
type Sink interface {
	ImportSessions(ctx context.Context, sessions []models.Session) (int, error)
}

// Provider imports Alpha Progression CSV exports into the session collection.
type Provider struct {
	sink Sink
	loc  *time.Location
	log  *slog.Logger
}

// NewProvider creates a provider. Workout times are read in loc (UTC when nil).
func NewProvider(sink Sink, loc *time.Location, log *slog.Logger) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{sink: sink, loc: loc, log: log}
}

// Ingest parses r and appends the converted sessions. With dryRun set the
// sessions are converted and counted but nothing is written.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, dryRun bool) (*ingest.Result, error) {
	workouts, err := ParseIn(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	result := &ingest.Result{WorkoutsReceived: len(workouts), DryRun: dryRun}
	sessions, convErr := Convert(workouts, result)
	if convErr != nil {
		for _, e := range multierr.Errors(convErr) {
			result.Rejected = append(result.Rejected, e.Error())
		}
		result.SessionsRejected = len(result.Rejected)
		p.log.Warn("alpha import rejected workouts", "count", result.SessionsRejected, "error", convErr)
	}

	if dryRun {
		result.Message = fmt.Sprintf("dry run: %d sessions ready to import", len(sessions))
		return result, nil
	}

	if len(sessions) > 0 {
		added, err := p.sink.ImportSessions(ctx, sessions)
		if err != nil {
			return nil, fmt.Errorf("importing sessions: %w", err)
		}
		result.SessionsImported = added
		result.SessionsSkipped = len(sessions) - added
	}

	p.log.Info("alpha import complete",
		"workouts", result.WorkoutsReceived,
		"imported", result.SessionsImported,
		"skipped", result.SessionsSkipped,
		"rejected", result.SessionsRejected,
	)
	return result, nil
}

// Convert maps parsed workouts onto sessions. Warm-up sets are dropped.
// Workouts left without any working set, or with a negative or non-finite
// weight, are rejected; the returned error
// combines one entry per rejected workout and the valid sessions are still
// returned. result, when non-nil, receives set counts.
func Convert(workouts []Workout, result *ingest.Result) ([]models.Session, error) {
	if result == nil {
		result = &ingest.Result{}
	}

	var errs error
	sessions := make([]models.Session, 0, len(workouts))
	for _, w := range workouts {
		session := models.Session{
			ID:        uuid.NewString(),
			Date:      w.Date,
			Category:  InferCategory(w.Name),
			Note:      w.Name,
			Exercises: []models.ExerciseEntry{},
		}

		for _, ex := range w.Exercises {
			entry := models.ExerciseEntry{
				ID:   uuid.NewString(),
				Name: ex.Name,
				Sets: []models.SetEntry{},
			}
			for _, set := range ex.Sets {
				result.SetsReceived++
				if set.Warmup {
					result.WarmupsDropped++
					continue
				}
				entry.Sets = append(entry.Sets, models.SetEntry{
					ID:     uuid.NewString(),
					Reps:   set.Reps,
					Weight: set.Weight,
				})
			}
			if len(entry.Sets) > 0 {
				session.Exercises = append(session.Exercises, entry)
			}
		}

		if len(session.Exercises) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("workout %q on %s: no working sets",
				w.Name, w.Date.Format("2006-01-02 15:04")))
			continue
		}
		if err := session.Validate(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("workout %q on %s: %w",
				w.Name, w.Date.Format("2006-01-02 15:04"), err))
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, errs
}

// InferCategory reads the day type from the first segment of a workout
// name such as "Legs · Day 2 · Week 4 · Push-Pull-Legs". Program names
// after the first segment are ignored.
func InferCategory(name string) models.Category {
	head, _, _ := strings.Cut(name, "·")
	head = strings.ToLower(strings.TrimSpace(head))

	switch {
	case strings.Contains(head, "full body"), strings.Contains(head, "fullbody"):
		return models.CategoryFullBody
	case strings.Contains(head, "upper"):
		return models.CategoryUpper
	case strings.Contains(head, "lower"):
		return models.CategoryLower
	case strings.Contains(head, "push"):
		return models.CategoryPush
	case strings.Contains(head, "pull"):
		return models.CategoryPull
	case strings.Contains(head, "leg"):
		return models.CategoryLegs
	case strings.Contains(head, "cardio"):
		return models.CategoryCardio
	default:
		return models.CategoryOther
	}
}
