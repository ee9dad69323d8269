package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/meltforce/liftlog/internal/analysis"
	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/progress"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/store"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type testEnv struct {
	srv   *Server
	store *store.Store
	slot  *storage.MemorySlot
}

func newTestEnv(t *testing.T, gen analysis.Generator) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	slot := storage.NewMemory()
	st := store.New(slot, log)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gen == nil {
		gen = generatorFunc(func(context.Context, string) (string, error) { return "análisis", nil })
	}
	srv := New(st, alpha.NewProvider(st, time.UTC, log), analysis.New(gen, 0, log), time.UTC, log)
	return &testEnv{srv: srv, store: st, slot: slot}
}

func (e *testEnv) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v (body %q)", err, rec.Body.String())
	}
	return v
}

const benchSession = `{
	"date": "2024-01-08T18:00:00Z",
	"category": "push",
	"note": "buen día",
	"exercises": [
		{"name": "Bench", "sets": [{"reps": 5, "weight": 100}, {"reps": 5, "weight": 105}]},
		{"name": "Dips", "sets": [{"reps": 10, "weight": 0}]}
	]
}`

// TestCreateSession verifies a posted session is finalized, persisted, and returned.
func TestCreateSession(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", benchSession)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", rec.Code, rec.Body)
	}
	session := decode[models.Session](t, rec)
	if session.Category != models.CategoryPush {
		t.Errorf("category = %q, want push", session.Category)
	}
	if !session.Date.Equal(time.Date(2024, 1, 8, 18, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v", session.Date)
	}
	if len(session.Exercises) != 2 || len(session.Exercises[0].Sets) != 2 {
		t.Errorf("exercises = %+v", session.Exercises)
	}
	if env.store.Len() != 1 {
		t.Errorf("store len = %d, want 1", env.store.Len())
	}
	if env.slot.Saves() != 1 {
		t.Errorf("slot saves = %d, want 1", env.slot.Saves())
	}
}

// TestCreateSessionEmpty verifies an empty exercise list creates nothing.
func TestCreateSessionEmpty(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", `{"category":"legs","exercises":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]bool](t, rec); got["created"] {
		t.Error("created = true, want false")
	}
	if env.store.Len() != 0 || env.slot.Saves() != 0 {
		t.Errorf("store len = %d, saves = %d, want 0 and 0", env.store.Len(), env.slot.Saves())
	}
}

// TestCreateSessionInvalid verifies bad categories and negative values are rejected.
func TestCreateSessionInvalid(t *testing.T) {
	env := newTestEnv(t, nil)
	tests := map[string]string{
		"bad json":        `{`,
		"bad category":    `{"category":"arms","exercises":[{"name":"Curl","sets":[{"reps":10,"weight":12}]}]}`,
		"negative reps":   `{"exercises":[{"name":"Curl","sets":[{"reps":-1,"weight":12}]}]}`,
		"negative weight": `{"exercises":[{"name":"Curl","sets":[{"reps":10,"weight":-12}]}]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/sessions", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
	if env.store.Len() != 0 {
		t.Errorf("store len = %d, want 0", env.store.Len())
	}
}

// TestCreateSessionPersistFailure verifies a failed save is reported while the
// session stays visible for the rest of the process lifetime.
func TestCreateSessionPersistFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.slot.SaveErr = errors.New("disk full")

	rec := env.do(t, http.MethodPost, "/api/v1/sessions", benchSession)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if env.store.Len() != 1 {
		t.Errorf("store len = %d, want 1", env.store.Len())
	}
}

// TestListGetDeleteSessions exercises the session collection endpoints.
func TestListGetDeleteSessions(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, day := range []string{"2024-01-01", "2024-01-03", "2024-01-02"} {
		body := `{"date":"` + day + `T10:00:00Z","exercises":[{"name":"Squat","sets":[{"reps":5,"weight":100}]}]}`
		if rec := env.do(t, http.MethodPost, "/api/v1/sessions", body); rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d", rec.Code)
		}
	}

	all := decode[[]models.Session](t, env.do(t, http.MethodGet, "/api/v1/sessions", ""))
	if len(all) != 3 {
		t.Fatalf("sessions = %d, want 3", len(all))
	}

	recent := decode[[]models.Session](t, env.do(t, http.MethodGet, "/api/v1/sessions?limit=1", ""))
	if len(recent) != 1 || recent[0].Date.Day() != 3 {
		t.Errorf("recent = %+v, want the 2024-01-03 session", recent)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/sessions?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative limit status = %d, want 400", rec.Code)
	}

	id := all[0].ID
	if rec := env.do(t, http.MethodGet, "/api/v1/sessions/"+id, ""); rec.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want 400", rec.Code)
	}

	if rec := env.do(t, http.MethodDelete, "/api/v1/sessions/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/v1/sessions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/v1/sessions/"+id, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", rec.Code)
	}
}

// TestExercisesProgressSummary verifies the derived views over posted sessions.
func TestExercisesProgressSummary(t *testing.T) {
	env := newTestEnv(t, nil)
	bodies := []string{
		benchSession,
		`{"date":"2024-01-01T18:00:00Z","category":"push","exercises":[{"name":"Bench","sets":[{"reps":5,"weight":95}]}]}`,
		`{"date":"2024-01-02T18:00:00Z","category":"legs","exercises":[{"name":"Bench","sets":[]},{"name":"Squat","sets":[{"reps":5,"weight":120}]}]}`,
	}
	for _, b := range bodies {
		if rec := env.do(t, http.MethodPost, "/api/v1/sessions", b); rec.Code != http.StatusCreated {
			t.Fatalf("create status = %d (body %s)", rec.Code, rec.Body)
		}
	}

	catalog := decode[[]string](t, env.do(t, http.MethodGet, "/api/v1/exercises", ""))
	if strings.Join(catalog, ",") != "Bench,Dips,Squat" {
		t.Errorf("catalog = %v, want [Bench Dips Squat]", catalog)
	}

	p := decode[progress.Progress](t, env.do(t, http.MethodGet, "/api/v1/progress?exercise=Bench", ""))
	if len(p.Points) != 2 {
		t.Fatalf("points = %d, want 2", len(p.Points))
	}
	if p.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", p.Skipped)
	}
	if p.Points[0].Label != "01/01" || p.Points[1].Label != "08/01" {
		t.Errorf("labels = %q, %q", p.Points[0].Label, p.Points[1].Label)
	}
	if p.Points[1].MaxWeight != 105 || p.Points[1].Volume != 1025 {
		t.Errorf("point = %+v, want max 105 volume 1025", p.Points[1])
	}

	empty := decode[progress.Progress](t, env.do(t, http.MethodGet, "/api/v1/progress", ""))
	if empty.Points == nil || len(empty.Points) != 0 {
		t.Errorf("empty progress points = %v, want []", empty.Points)
	}

	sum := decode[progress.Summary](t, env.do(t, http.MethodGet, "/api/v1/summary", ""))
	if sum.TotalSessions != 3 || sum.DistinctDays != 3 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ByCategory[models.CategoryPush] != 2 {
		t.Errorf("push sessions = %d, want 2", sum.ByCategory[models.CategoryPush])
	}
}

// TestAnalysis verifies the analysis endpoint returns the generated text.
func TestAnalysis(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodPost, "/api/v1/analysis", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["text"]; got != "análisis" {
		t.Errorf("text = %q", got)
	}
}

// TestAnalysisBusy verifies a second request while one is in flight gets 409.
func TestAnalysisBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	env := newTestEnv(t, generatorFunc(func(context.Context, string) (string, error) {
		close(entered)
		<-release
		return "ok", nil
	}))

	done := make(chan int)
	go func() {
		done <- env.do(t, http.MethodPost, "/api/v1/analysis", "").Code
	}()
	<-entered

	status := decode[map[string]bool](t, env.do(t, http.MethodGet, "/api/v1/analysis", ""))
	if !status["in_flight"] {
		t.Errorf("status = %v, want in_flight true", status)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/analysis", ""); rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", code)
	}

	status = decode[map[string]bool](t, env.do(t, http.MethodGet, "/api/v1/analysis", ""))
	if status["in_flight"] {
		t.Errorf("status = %v, want in_flight false", status)
	}
}

// TestAnalysisFallback verifies failures come back as readable text, not errors.
func TestAnalysisFallback(t *testing.T) {
	env := newTestEnv(t, analysis.NewHTTPGenerator(analysis.HTTPConfig{}))
	rec := env.do(t, http.MethodPost, "/api/v1/analysis", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decode[map[string]string](t, rec)["text"]; got != analysis.MsgNoCredentials {
		t.Errorf("text = %q, want no-credentials message", got)
	}
}

const importCSV = `"Push · Day 1 · Week 1";"2026-02-17 5:04 h";"1:12 hr"
"1. Bench Press · Barbell · 6 reps";"WU1 · 22,5 kg · 10 reps"
#;KG;REPS;RIR
1;102,5;6;0
2;100;6;0
`

// TestAlphaImport verifies CSV import through the API, including dry runs.
func TestAlphaImport(t *testing.T) {
	env := newTestEnv(t, nil)

	dry := decode[ingest.Result](t, env.do(t, http.MethodPost, "/api/v1/import/alpha?dry_run=true", importCSV))
	if !dry.DryRun || env.store.Len() != 0 {
		t.Errorf("dry run result = %+v, store len = %d", dry, env.store.Len())
	}

	rec := env.do(t, http.MethodPost, "/api/v1/import/alpha", importCSV)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	result := decode[ingest.Result](t, rec)
	if result.SessionsImported != 1 || result.WarmupsDropped != 1 {
		t.Errorf("result = %+v", result)
	}

	catalog := decode[[]string](t, env.do(t, http.MethodGet, "/api/v1/exercises", ""))
	if len(catalog) != 1 || catalog[0] != "Bench Press" {
		t.Errorf("catalog = %v", catalog)
	}

	bad := env.do(t, http.MethodPost, "/api/v1/import/alpha", "\"Push\";\"2026-02-17 5:04 h\";\"1 hr\"\n1;100;5;1\n")
	if bad.Code != http.StatusBadRequest {
		t.Errorf("bad CSV status = %d, want 400", bad.Code)
	}
}

// TestAlphaImportPersistFailure verifies a failed save is a server error so
// upload clients retry it.
func TestAlphaImportPersistFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.slot.SaveErr = errors.New("disk full")

	rec := env.do(t, http.MethodPost, "/api/v1/import/alpha", importCSV)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500 (body %s)", rec.Code, rec.Body)
	}
}

// TestWriteJSONEncodeFailure verifies an unencodable value becomes a 500 with a body.
func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"volume": math.NaN()})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "encoding response") {
		t.Errorf("body = %q, want encoding error", rec.Body.String())
	}
}

// TestMetricsEndpoint verifies Prometheus counters are exposed.
func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.do(t, http.MethodPost, "/api/v1/sessions", benchSession)

	rec := env.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "liftlog_store_sessions_saved_total") {
		t.Error("metrics output missing liftlog_store_sessions_saved_total")
	}
}

// TestMount verifies extra handlers can be attached to the router.
func TestMount(t *testing.T) {
	env := newTestEnv(t, nil)
	env.srv.Mount("/mcp", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	if rec := env.do(t, http.MethodPost, "/mcp", "{}"); rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
}
