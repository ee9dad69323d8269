package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/observability"
)

const (
	defaultRecentLimit = 10
	maxRecentLimit     = 100
)

// parseRange parses optional start/end bounds. A zero time means unbounded.
// A date-only end covers the whole day.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	if startStr != "" {
		t, _, err := parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = t
	}
	if endStr != "" {
		t, dateOnly, err := parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		end = t
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", endStr, startStr)
	}
	return start, end, nil
}

func parseFlexTime(s string) (time.Time, bool, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, false, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, true, nil
	}
	return time.Time{}, false, err
}

func inRange(t, start, end time.Time) bool {
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

// --- Tool definitions ---

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List every distinct exercise name that appears in the training log, sorted alphabetically. Use these exact names with get_progress."),
)

var toolGetProgress = mcp.NewTool("get_progress",
	mcp.WithDescription("Per-session progress for one exercise: max weight (kg) and volume (sum of reps x weight) for every session that contains it, oldest first. Sessions where the exercise was logged without sets are counted in 'skipped'."),
	mcp.WithString("exercise", mcp.Required(), mcp.Description("Exact exercise name (case-sensitive), as returned by list_exercises")),
	mcp.WithString("start", mcp.Description("Only include sessions on or after this date (ISO 8601 or YYYY-MM-DD)")),
	mcp.WithString("end", mcp.Description("Only include sessions on or before this date (ISO 8601 or YYYY-MM-DD)")),
)

var toolGetSummary = mcp.NewTool("get_summary",
	mcp.WithDescription("Totals across the whole log: sessions, distinct training days, sets, volume, sessions per category, first and last session dates."),
)

var toolGetRecentSessions = mcp.NewTool("get_recent_sessions",
	mcp.WithDescription("The most recent training sessions with category, note, exercises and every set."),
	mcp.WithNumber("limit", mcp.Description("How many sessions to return. Defaults to 10, at most 100.")),
)

// --- Tool handlers ---

func (h *handlers) listExercises(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.ds.Exercises(ctx)
	if err != nil {
		h.log.Error("mcp list_exercises", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(names)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getProgress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exercise, err := req.RequireString("exercise")
	if err != nil {
		return mcp.NewToolResultError("exercise parameter is required"), nil
	}

	start, end, err := parseRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date range: " + err.Error()), nil
	}

	p, err := h.ds.Progress(ctx, exercise)
	if err != nil {
		h.log.Error("mcp get_progress", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if p.Skipped > 0 {
		h.log.Warn("progress skipped entries without sets", "exercise", exercise, "skipped", p.Skipped)
		observability.RecordProgressSkipped(p.Skipped)
	}

	points := make([]models.ProgressPoint, 0, len(p.Points))
	for _, pt := range p.Points {
		if inRange(pt.Date, start, end) {
			points = append(points, pt)
		}
	}
	p.Points = points

	result, err := mcp.NewToolResultJSON(p)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSummary(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sum, err := h.ds.Summary(ctx)
	if err != nil {
		h.log.Error("mcp get_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sum)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getRecentSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", defaultRecentLimit)
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	sessions, err := h.ds.RecentSessions(ctx, limit)
	if err != nil {
		h.log.Error("mcp get_recent_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
