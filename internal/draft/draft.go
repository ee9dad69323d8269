// Package draft holds the in-progress exercise list a user edits before the
// session is finalized.
package draft

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/models"
)

var (
	// ErrNotFound is returned when an exercise or set ID is not in the draft.
	ErrNotFound = errors.New("draft entry not found")
	// ErrInvalidSet is returned for negative reps or weight.
	ErrInvalidSet = models.ErrInvalidSet
)

// Draft is the mutable, unsaved exercise list. It is owned by a single
// editing flow and is not safe for concurrent use.
type Draft struct {
	exercises []models.ExerciseEntry
}

// New returns an empty draft.
func New() *Draft {
	return &Draft{}
}

// AddExercise appends an exercise with no sets and returns its ID.
func (d *Draft) AddExercise(name string) string {
	id := uuid.NewString()
	d.exercises = append(d.exercises, models.ExerciseEntry{
		ID:   id,
		Name: name,
		Sets: []models.SetEntry{},
	})
	return id
}

// RenameExercise changes the name of an exercise.
func (d *Draft) RenameExercise(exerciseID, name string) error {
	ex, err := d.exercise(exerciseID)
	if err != nil {
		return err
	}
	ex.Name = name
	return nil
}

// RemoveExercise drops an exercise and its sets.
func (d *Draft) RemoveExercise(exerciseID string) error {
	for i := range d.exercises {
		if d.exercises[i].ID == exerciseID {
			d.exercises = append(d.exercises[:i], d.exercises[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// AddSet appends a set to an exercise and returns the set ID.
func (d *Draft) AddSet(exerciseID string, reps int, weight float64) (string, error) {
	if !models.ValidSet(reps, weight) {
		return "", ErrInvalidSet
	}
	ex, err := d.exercise(exerciseID)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	ex.Sets = append(ex.Sets, models.SetEntry{ID: id, Reps: reps, Weight: weight})
	return id, nil
}

// UpdateSet edits a set in place.
func (d *Draft) UpdateSet(exerciseID, setID string, reps int, weight float64) error {
	if !models.ValidSet(reps, weight) {
		return ErrInvalidSet
	}
	ex, err := d.exercise(exerciseID)
	if err != nil {
		return err
	}
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			ex.Sets[i].Reps = reps
			ex.Sets[i].Weight = weight
			return nil
		}
	}
	return ErrNotFound
}

// RemoveSet drops a set from an exercise.
func (d *Draft) RemoveSet(exerciseID, setID string) error {
	ex, err := d.exercise(exerciseID)
	if err != nil {
		return err
	}
	for i := range ex.Sets {
		if ex.Sets[i].ID == setID {
			ex.Sets = append(ex.Sets[:i], ex.Sets[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Exercises returns a copy of the current exercise list.
func (d *Draft) Exercises() []models.ExerciseEntry {
	out := make([]models.ExerciseEntry, len(d.exercises))
	for i, ex := range d.exercises {
		out[i] = ex.Clone()
	}
	return out
}

// Len returns the number of exercises in the draft.
func (d *Draft) Len() int {
	return len(d.exercises)
}

// Reset discards everything in the draft.
func (d *Draft) Reset() {
	d.exercises = nil
}

// Finalize turns the draft into a Session dated at and clears the draft.
// An empty draft is a no-op: it returns false and leaves the draft as is.
//
// Exercises without sets are kept; progress derivation skips them.
func (d *Draft) Finalize(category models.Category, note string, at time.Time) (models.Session, bool) {
	if len(d.exercises) == 0 {
		return models.Session{}, false
	}

	s := models.Session{
		ID:        uuid.NewString(),
		Date:      at,
		Category:  category,
		Exercises: d.Exercises(),
		Note:      note,
	}
	d.Reset()
	return s, true
}

func (d *Draft) exercise(id string) (*models.ExerciseEntry, error) {
	for i := range d.exercises {
		if d.exercises[i].ID == id {
			return &d.exercises[i], nil
		}
	}
	return nil, ErrNotFound
}
