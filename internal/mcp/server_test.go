package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/progress"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSession(id string, date time.Time, category models.Category, name string, sets ...models.SetEntry) models.Session {
	if sets == nil {
		sets = []models.SetEntry{}
	}
	return models.Session{
		ID:        id,
		Date:      date,
		Category:  category,
		Exercises: []models.ExerciseEntry{{ID: id + "-ex", Name: name, Sets: sets}},
	}
}

// newTestStore returns a store holding three bench sessions (one without sets)
// and one squat session.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st := store.New(storage.NewMemory(), discardLogger())
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	day := func(d int) time.Time { return time.Date(2024, 1, d, 18, 0, 0, 0, time.UTC) }
	sessions := []models.Session{
		testSession("s1", day(1), models.CategoryPush, "Bench", models.SetEntry{ID: "a", Reps: 5, Weight: 100}),
		testSession("s2", day(8), models.CategoryPush, "Bench", models.SetEntry{ID: "b", Reps: 5, Weight: 105}),
		testSession("s3", day(10), models.CategoryPush, "Bench"),
		testSession("s4", day(15), models.CategoryLegs, "Squat", models.SetEntry{ID: "c", Reps: 3, Weight: 140}),
	}
	if _, err := st.ImportSessions(context.Background(), sessions); err != nil {
		t.Fatalf("ImportSessions: %v", err)
	}
	return st
}

func newTestHandlers(t *testing.T) *handlers {
	t.Helper()
	return &handlers{ds: NewLocal(newTestStore(t), time.UTC), log: discardLogger()}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] is %T, want TextContent", res.Content[0])
	}
	return text.Text
}

// TestParseRange verifies optional bounds, date-only end of day, and validation.
func TestParseRange(t *testing.T) {
	start, end, err := parseRange("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.IsZero() || !end.IsZero() {
		t.Errorf("empty range = %v..%v, want unbounded", start, end)
	}

	start, end, err = parseRange("2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Day() != 1 || start.Hour() != 0 {
		t.Errorf("start = %v, want 2024-01-01 00:00", start)
	}
	if end.Day() != 31 || end.Hour() != 23 {
		t.Errorf("end = %v, want end of 2024-01-31", end)
	}

	start, _, err = parseRange("2024-06-15T10:30:00Z", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if start.Hour() != 10 || start.Minute() != 30 {
		t.Errorf("start = %v, want 10:30", start)
	}

	if _, _, err := parseRange("not-a-date", ""); err == nil {
		t.Error("expected error for invalid date")
	}
	if _, _, err := parseRange("2024-02-01", "2024-01-01"); err == nil {
		t.Error("expected error for end before start")
	}
}

// TestListExercises verifies the catalog tool output.
func TestListExercises(t *testing.T) {
	h := newTestHandlers(t)
	res, err := h.listExercises(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	if err := json.Unmarshal([]byte(resultText(t, res)), &names); err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "Bench" || names[1] != "Squat" {
		t.Errorf("names = %v, want [Bench Squat]", names)
	}
}

// TestGetProgress verifies the progress tool, its skipped count, and date filtering.
func TestGetProgress(t *testing.T) {
	h := newTestHandlers(t)

	res, err := h.getProgress(context.Background(), callRequest(map[string]any{"exercise": "Bench"}))
	if err != nil {
		t.Fatal(err)
	}
	var p progress.Progress
	if err := json.Unmarshal([]byte(resultText(t, res)), &p); err != nil {
		t.Fatal(err)
	}
	if len(p.Points) != 2 || p.Skipped != 1 {
		t.Fatalf("progress = %+v, want 2 points and 1 skipped", p)
	}
	if p.Points[0].MaxWeight != 100 || p.Points[1].Volume != 525 {
		t.Errorf("points = %+v", p.Points)
	}

	res, err = h.getProgress(context.Background(), callRequest(map[string]any{"exercise": "Bench", "start": "2024-01-05"}))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &p); err != nil {
		t.Fatal(err)
	}
	if len(p.Points) != 1 || p.Points[0].Label != "08/01" {
		t.Errorf("filtered points = %+v, want only 08/01", p.Points)
	}
}

// TestGetProgressErrors verifies bad arguments come back as tool errors.
func TestGetProgressErrors(t *testing.T) {
	h := newTestHandlers(t)
	for name, args := range map[string]map[string]any{
		"missing exercise": {},
		"bad date":         {"exercise": "Bench", "end": "yesterday"},
	} {
		res, err := h.getProgress(context.Background(), callRequest(args))
		if err != nil {
			t.Fatalf("%s: unexpected Go error: %v", name, err)
		}
		if !res.IsError {
			t.Errorf("%s: IsError = false, want true", name)
		}
	}
}

// TestGetSummary verifies the summary tool output.
func TestGetSummary(t *testing.T) {
	h := newTestHandlers(t)
	res, err := h.getSummary(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	var sum progress.Summary
	if err := json.Unmarshal([]byte(resultText(t, res)), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.TotalSessions != 4 || sum.DistinctDays != 4 || sum.TotalSets != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ByCategory[models.CategoryLegs] != 1 {
		t.Errorf("legs = %d, want 1", sum.ByCategory[models.CategoryLegs])
	}
}

// TestGetRecentSessions verifies the limit argument and its bounds.
func TestGetRecentSessions(t *testing.T) {
	h := newTestHandlers(t)
	tests := []struct {
		args map[string]any
		want int
	}{
		{nil, 4},
		{map[string]any{"limit": 2}, 2},
		{map[string]any{"limit": 0}, 4},
		{map[string]any{"limit": 500}, 4},
	}
	for _, tt := range tests {
		res, err := h.getRecentSessions(context.Background(), callRequest(tt.args))
		if err != nil {
			t.Fatal(err)
		}
		var sessions []models.Session
		if err := json.Unmarshal([]byte(resultText(t, res)), &sessions); err != nil {
			t.Fatal(err)
		}
		if len(sessions) != tt.want {
			t.Errorf("args %v: sessions = %d, want %d", tt.args, len(sessions), tt.want)
		}
		if len(sessions) > 0 && sessions[0].ID != "s4" {
			t.Errorf("args %v: first = %q, want most recent s4", tt.args, sessions[0].ID)
		}
	}
}

// TestResources verifies both resources return JSON contents for their URI.
func TestResources(t *testing.T) {
	h := newTestHandlers(t)

	var req mcp.ReadResourceRequest
	req.Params.URI = "liftlog://recent_sessions"
	contents, err := h.recentSessions(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := contents[0].(mcp.TextResourceContents)
	if text.URI != req.Params.URI || text.MIMEType != "application/json" {
		t.Errorf("contents = %+v", text)
	}
	var sessions []models.Session
	if err := json.Unmarshal([]byte(text.Text), &sessions); err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 4 {
		t.Errorf("sessions = %d, want 4", len(sessions))
	}

	req.Params.URI = "liftlog://exercise_catalog"
	contents, err = h.exerciseCatalog(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if got := contents[0].(mcp.TextResourceContents).Text; got != `["Bench","Squat"]` {
		t.Errorf("catalog = %s", got)
	}
}

// TestNewRegistersTools verifies the server builds with the local data source.
func TestNewRegistersTools(t *testing.T) {
	s := New(NewLocal(newTestStore(t), nil), "test", discardLogger())
	if s == nil {
		t.Fatal("New returned nil")
	}
	if NewHTTPHandler(s) == nil {
		t.Fatal("NewHTTPHandler returned nil")
	}
}
