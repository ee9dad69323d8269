package progress

import (
	"time"

	"github.com/meltforce/liftlog/internal/models"
)

// Summary holds cross-session counters.
type Summary struct {
	TotalSessions int                     `json:"total_sessions"`
	DistinctDays  int                     `json:"distinct_days"`
	TotalSets     int                     `json:"total_sets"`
	TotalVolume   float64                 `json:"total_volume"`
	ByCategory    map[models.Category]int `json:"by_category"`
	FirstSession  *time.Time              `json:"first_session,omitempty"`
	LastSession   *time.Time              `json:"last_session,omitempty"`
	Timezone      string                  `json:"timezone"`
}

// Summarize computes the summary with calendar days taken in UTC.
func Summarize(sessions []models.Session) Summary {
	return SummarizeIn(sessions, time.UTC)
}

// SummarizeIn computes the summary with calendar days taken in loc.
// A nil loc means UTC.
func SummarizeIn(sessions []models.Session, loc *time.Location) Summary {
	if loc == nil {
		loc = time.UTC
	}

	sum := Summary{
		TotalSessions: len(sessions),
		ByCategory:    make(map[models.Category]int),
		Timezone:      loc.String(),
	}

	days := make(map[string]struct{})
	for _, s := range sessions {
		days[s.Date.In(loc).Format("2006-01-02")] = struct{}{}
		sum.ByCategory[s.Category]++

		for _, ex := range s.Exercises {
			sum.TotalSets += len(ex.Sets)
			for _, set := range ex.Sets {
				sum.TotalVolume += float64(set.Reps) * set.Weight
			}
		}

		if sum.FirstSession == nil || s.Date.Before(*sum.FirstSession) {
			d := s.Date
			sum.FirstSession = &d
		}
		if sum.LastSession == nil || s.Date.After(*sum.LastSession) {
			d := s.Date
			sum.LastSession = &d
		}
	}
	sum.DistinctDays = len(days)

	return sum
}
