package analysis

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/meltforce/liftlog/internal/models"
)

// DefaultHistorySize is how many recent sessions are sent for analysis.
const DefaultHistorySize = 10

const promptTemplate = `Actúa como un entrenador personal experto en fuerza e hipertrofia.
A continuación tienes el historial de mis últimos entrenamientos en formato JSON
(fecha, tipo de día, ejercicios, series con repeticiones y peso en kg):

%s

Analiza mi progreso y responde en español, en formato Markdown y en un máximo de dos párrafos:
1. Indica si estoy aplicando sobrecarga progresiva (más peso, más repeticiones o más volumen) en los ejercicios principales.
2. Detecta cualquier estancamiento y propón estrategias concretas para superarlo.
Sé directo y motivador.`

// promptSession is the trimmed view of a session sent to the model.
type promptSession struct {
	Date      string           `json:"fecha"`
	Category  models.Category  `json:"tipo"`
	Exercises []promptExercise `json:"ejercicios"`
	Note      string           `json:"nota,omitempty"`
}

type promptExercise struct {
	Name string      `json:"nombre"`
	Sets []promptSet `json:"series"`
}

type promptSet struct {
	Reps   int     `json:"reps"`
	Weight float64 `json:"kg"`
}

// BuildPrompt embeds the n most recent sessions in the analysis instructions.
func BuildPrompt(sessions []models.Session, n int) (string, error) {
	recent := append([]models.Session(nil), sessions...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if n >= 0 && n < len(recent) {
		recent = recent[:n]
	}

	view := make([]promptSession, 0, len(recent))
	for _, s := range recent {
		ps := promptSession{
			Date:      s.Date.UTC().Format("2006-01-02"),
			Category:  s.Category,
			Note:      s.Note,
			Exercises: make([]promptExercise, 0, len(s.Exercises)),
		}
		for _, ex := range s.Exercises {
			pe := promptExercise{Name: ex.Name, Sets: make([]promptSet, 0, len(ex.Sets))}
			for _, set := range ex.Sets {
				pe.Sets = append(pe.Sets, promptSet{Reps: set.Reps, Weight: set.Weight})
			}
			ps.Exercises = append(ps.Exercises, pe)
		}
		view = append(view, ps)
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding history: %w", err)
	}
	return fmt.Sprintf(promptTemplate, data), nil
}
