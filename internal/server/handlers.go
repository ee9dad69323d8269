package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/meltforce/liftlog/internal/analysis"
	"github.com/meltforce/liftlog/internal/draft"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/observability"
	"github.com/meltforce/liftlog/internal/progress"
	"github.com/meltforce/liftlog/internal/store"
)

type createSessionRequest struct {
	Date      *time.Time `json:"date"`
	Category  string     `json:"category"`
	Note      string     `json:"note"`
	Exercises []struct {
		Name string `json:"name"`
		Sets []struct {
			Reps   int     `json:"reps"`
			Weight float64 `json:"weight"`
		} `json:"sets"`
	} `json:"exercises"`
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if limit == 0 {
		writeJSON(w, http.StatusOK, s.store.All())
		return
	}
	writeJSON(w, http.StatusOK, s.store.Recent(limit))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	category := models.CategoryOther
	if req.Category != "" {
		c, err := models.ParseCategory(req.Category)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		category = c
	}

	d := draft.New()
	for _, ex := range req.Exercises {
		exID := d.AddExercise(ex.Name)
		for _, set := range ex.Sets {
			if _, err := d.AddSet(exID, set.Reps, set.Weight); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
		}
	}

	var (
		session models.Session
		created bool
		err     error
	)
	if req.Date != nil {
		session, created, err = s.store.FinalizeAt(r.Context(), d, category, req.Note, *req.Date)
	} else {
		session, created, err = s.store.Finalize(r.Context(), d, category, req.Note)
	}
	if !created {
		writeJSON(w, http.StatusOK, map[string]bool{"created": false})
		return
	}
	if err != nil {
		// the session is in the collection but the slot write failed
		s.log.Error("session not persisted", "id", session.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error(), "id": session.ID})
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	session, err := s.store.Get(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}
	err := s.store.Delete(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
	case err != nil:
		s.log.Error("session delete not persisted", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleExercises(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, progress.Catalog(s.store.All()))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("exercise")
	p := progress.DeriveIn(s.store.All(), name, s.loc)
	if p.Skipped > 0 {
		s.log.Warn("progress skipped entries without sets", "exercise", name, "skipped", p.Skipped)
		observability.RecordProgressSkipped(p.Skipped)
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, progress.SummarizeIn(s.store.All(), s.loc))
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	text, err := s.analyzer.Analyze(r.Context(), s.store.All())
	if errors.Is(err, analysis.ErrBusy) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func (s *Server) handleAnalysisStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"in_flight": s.analyzer.InFlight()})
}

func (s *Server) handleAlphaImport(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
	result, err := s.alpha.Ingest(r.Context(), r.Body, dryRun)
	if err != nil {
		s.log.Error("alpha import error", "error", err)
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrPersist) || errors.Is(err, store.ErrNotLoaded) {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	idStr := chi.URLParam(r, "id")
	if _, err := uuid.Parse(idStr); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid session ID"})
		return "", false
	}
	return idStr, true
}

// parseLimit reads ?limit=N. Missing means 0 (no limit).
func parseLimit(r *http.Request) (int, error) {
	l := r.URL.Query().Get("limit")
	if l == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(l)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(map[string]string{"error": "encoding response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
