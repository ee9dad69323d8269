// Package progress derives charting and summary data from the session history.
// Every function here is a pure function of its inputs.
package progress

import (
	"sort"
	"time"

	"github.com/meltforce/liftlog/internal/models"
)

// LabelLayout is the display format of ProgressPoint.Label (day/month).
const LabelLayout = "02/01"

// Progress is the derived time series for one exercise.
type Progress struct {
	Exercise string                 `json:"exercise"`
	Points   []models.ProgressPoint `json:"points"`
	// Skipped counts matching sessions left out because the matched entry
	// had no sets, so no max weight exists for it.
	Skipped int `json:"skipped"`
}

// Derive builds the progress series for exercise from sessions, with point
// labels taken in UTC.
//
// A session contributes one point when one of its entries has exactly the
// given name (case-sensitive). When several entries share the name only the
// first one is used. Points are ordered by session date ascending; sessions
// with the same date keep their collection order.
func Derive(sessions []models.Session, exercise string) Progress {
	return DeriveIn(sessions, exercise, time.UTC)
}

// DeriveIn is Derive with point labels formatted in loc. A nil loc means UTC.
func DeriveIn(sessions []models.Session, exercise string, loc *time.Location) Progress {
	if loc == nil {
		loc = time.UTC
	}
	p := Progress{Exercise: exercise, Points: []models.ProgressPoint{}}
	if exercise == "" {
		return p
	}

	for _, s := range sessions {
		entry, ok := firstMatch(s, exercise)
		if !ok {
			continue
		}
		if len(entry.Sets) == 0 {
			p.Skipped++
			continue
		}
		maxWeight, volume := setMetrics(entry.Sets)
		p.Points = append(p.Points, models.ProgressPoint{
			Label:     s.Date.In(loc).Format(LabelLayout),
			Date:      s.Date,
			MaxWeight: maxWeight,
			Volume:    volume,
		})
	}

	sort.SliceStable(p.Points, func(i, j int) bool {
		return p.Points[i].Date.Before(p.Points[j].Date)
	})
	return p
}

func firstMatch(s models.Session, name string) (models.ExerciseEntry, bool) {
	for _, ex := range s.Exercises {
		if ex.Name == name {
			return ex, true
		}
	}
	return models.ExerciseEntry{}, false
}

// setMetrics returns the heaviest weight and the volume (sum of reps * weight).
// sets must not be empty.
func setMetrics(sets []models.SetEntry) (maxWeight, volume float64) {
	maxWeight = sets[0].Weight
	for _, set := range sets {
		if set.Weight > maxWeight {
			maxWeight = set.Weight
		}
		volume += float64(set.Reps) * set.Weight
	}
	return maxWeight, volume
}
