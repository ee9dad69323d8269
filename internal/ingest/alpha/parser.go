package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Workout is one session block of an Alpha Progression CSV export.
type Workout struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []Exercise
}

// Exercise is a numbered exercise inside a workout.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// Set is a working set or a warm-up set.
type Set struct {
	Number int
	Weight float64
	// BodyweightPlus marks "+N" notation: Weight is load added to bodyweight.
	BodyweightPlus bool
	Reps           int
	RIR            float64
	Warmup         bool
}

var (
	// "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	workoutHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	setRowRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	columnHeaderRe = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// Parse reads an export with workout times interpreted as UTC.
func Parse(r io.Reader) ([]Workout, error) {
	return ParseIn(r, time.UTC)
}

// ParseIn reads an export, interpreting the wall-clock workout times in loc.
func ParseIn(r io.Reader, loc *time.Location) ([]Workout, error) {
	p := &parser{loc: loc}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.flushWorkout()
	return p.workouts, nil
}

type parser struct {
	loc      *time.Location
	workouts []Workout
	workout  *Workout
	exercise *Exercise
}

func (p *parser) line(line string) error {
	switch {
	case line == "":
		// blank line ends the current workout
		p.flushWorkout()
		return nil
	case columnHeaderRe.MatchString(line):
		return nil
	}

	if m := workoutHeaderRe.FindStringSubmatch(line); m != nil {
		p.flushWorkout()
		date, err := parseWorkoutDate(m[2], p.loc)
		if err != nil {
			return err
		}
		p.workout = &Workout{Name: m[1], Date: date, Duration: m[3]}
		return nil
	}

	if m := exerciseHeaderRe.FindStringSubmatch(line); m != nil {
		if p.workout == nil {
			return fmt.Errorf("exercise without workout: %q", line)
		}
		p.flushExercise()
		num, _ := strconv.Atoi(m[1])
		targetReps, _ := strconv.Atoi(m[4])
		p.exercise = &Exercise{
			Number:     num,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: targetReps,
		}
		if m[6] != "" {
			p.exercise.Sets = append(p.exercise.Sets, parseWarmups(m[6])...)
		}
		return nil
	}

	if m := setRowRe.FindStringSubmatch(line); m != nil {
		if p.exercise == nil {
			return fmt.Errorf("set without exercise: %q", line)
		}
		num, _ := strconv.Atoi(m[1])
		weight, bwPlus := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		p.exercise.Sets = append(p.exercise.Sets, Set{
			Number:         num,
			Weight:         weight,
			BodyweightPlus: bwPlus,
			Reps:           reps,
			RIR:            parseDecimal(m[4]),
		})
		return nil
	}

	// notes and other metadata
	return nil
}

func (p *parser) flushExercise() {
	if p.workout != nil && p.exercise != nil {
		p.workout.Exercises = append(p.workout.Exercises, *p.exercise)
	}
	p.exercise = nil
}

func (p *parser) flushWorkout() {
	p.flushExercise()
	if p.workout != nil {
		p.workouts = append(p.workouts, *p.workout)
	}
	p.workout = nil
}

// parseWorkoutDate accepts "2026-02-19 4:54" and "2026-02-19 16:54".
func parseWorkoutDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse workout date %q", s)
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps".
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bwPlus := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{
			Number:         num,
			Weight:         weight,
			BodyweightPlus: bwPlus,
			Reps:           reps,
			Warmup:         true,
		})
	}
	return sets
}

// parseWeight handles "+35" (bodyweight plus 35) and "102,5".
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return parseDecimal(rest), true
	}
	return parseDecimal(s), false
}

// parseDecimal reads a comma-decimal number. Unparseable input is 0.
func parseDecimal(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
