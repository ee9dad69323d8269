package progress

import (
	"sort"

	"github.com/meltforce/liftlog/internal/models"
)

// Catalog returns the distinct exercise names seen across sessions, sorted
// ascending. Names are compared exactly, the same way Derive matches them:
// "Squat" and "squat " are two different exercises.
func Catalog(sessions []models.Session) []string {
	seen := make(map[string]struct{})
	names := []string{}
	for _, s := range sessions {
		for _, ex := range s.Exercises {
			if _, ok := seen[ex.Name]; ok {
				continue
			}
			seen[ex.Name] = struct{}{}
			names = append(names, ex.Name)
		}
	}
	sort.Strings(names)
	return names
}
