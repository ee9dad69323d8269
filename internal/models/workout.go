package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSet is returned for a set whose reps or weight is negative or
// whose weight is not a finite number.
var ErrInvalidSet = errors.New("reps and weight must be non-negative numbers")

// Category is the workout-day type a session is tagged with.
type Category string

const (
	CategoryPush     Category = "push"
	CategoryPull     Category = "pull"
	CategoryLegs     Category = "legs"
	CategoryUpper    Category = "upper"
	CategoryLower    Category = "lower"
	CategoryFullBody Category = "full_body"
	CategoryCardio   Category = "cardio"
	CategoryOther    Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryPush, CategoryPull, CategoryLegs, CategoryUpper,
	CategoryLower, CategoryFullBody, CategoryCardio, CategoryOther,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// SetEntry is one performed set.
type SetEntry struct {
	ID     string  `json:"id"`
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

// ExerciseEntry is one exercise performed within a session.
// Sets are kept in the order they were performed.
type ExerciseEntry struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Sets []SetEntry `json:"sets"`
}

// Session is one finalized workout. Date is the origin of truth for
// chronological ordering.
type Session struct {
	ID        string          `json:"id"`
	Date      time.Time       `json:"date"`
	Category  Category        `json:"category"`
	Exercises []ExerciseEntry `json:"exercises"`
	Note      string          `json:"note,omitempty"`
}

// ValidSet reports whether reps and weight can be stored.
func ValidSet(reps int, weight float64) bool {
	return reps >= 0 && weight >= 0 && !math.IsInf(weight, 0) && !math.IsNaN(weight)
}

// Validate checks every set of the session.
func (s Session) Validate() error {
	for _, ex := range s.Exercises {
		for i, set := range ex.Sets {
			if !ValidSet(set.Reps, set.Weight) {
				return fmt.Errorf("exercise %q set %d (reps %d, weight %v): %w",
					ex.Name, i+1, set.Reps, set.Weight, ErrInvalidSet)
			}
		}
	}
	return nil
}

// ProgressPoint is a per-session metric snapshot for one exercise.
// It is derived on demand and never stored.
type ProgressPoint struct {
	Label     string    `json:"label"`
	Date      time.Time `json:"date"`
	MaxWeight float64   `json:"max_weight"`
	Volume    float64   `json:"volume"`
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Exercises = make([]ExerciseEntry, len(s.Exercises))
	for i, ex := range s.Exercises {
		out.Exercises[i] = ex.Clone()
	}
	return out
}

// Clone returns a deep copy of the exercise entry.
func (e ExerciseEntry) Clone() ExerciseEntry {
	out := e
	out.Sets = append([]SetEntry(nil), e.Sets...)
	if out.Sets == nil {
		out.Sets = []SetEntry{}
	}
	return out
}
