// Package analysis asks a text-generation service for a narrative summary of
// recent training and turns every failure into a readable message.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/observability"
)

// User-visible fallbacks returned instead of an analysis.
const (
	MsgNoCredentials    = "No hay ninguna clave de API configurada. Añade una en la configuración para activar el análisis con IA."
	MsgGenerationFailed = "No se pudo generar el análisis en este momento. Inténtalo de nuevo más tarde."
	MsgEmptyResponse    = "El servicio de IA no devolvió una respuesta válida."
)

var (
	// ErrBusy is returned when an analysis is already in flight.
	ErrBusy = errors.New("analysis already in progress")
	// ErrNoCredentials is returned by a Generator that has no API key.
	ErrNoCredentials = errors.New("no API key configured")
	// ErrMalformedResponse is returned by a Generator that could not read the reply.
	ErrMalformedResponse = errors.New("malformed generation response")
)

// Generator sends a prompt to a text-generation service.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the outcome of an analysis started with Start.
type Result struct {
	Text string
	Err  error
}

// Analyzer runs at most one analysis at a time.
type Analyzer struct {
	gen         Generator
	log         *slog.Logger
	historySize int
	busy        atomic.Bool
}

// New creates an Analyzer. historySize <= 0 uses DefaultHistorySize.
func New(gen Generator, historySize int, log *slog.Logger) *Analyzer {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &Analyzer{gen: gen, log: log, historySize: historySize}
}

// InFlight reports whether an analysis is running.
func (a *Analyzer) InFlight() bool {
	return a.busy.Load()
}

// Analyze blocks until the analysis of sessions is done. The only error is
// ErrBusy; every other failure is reported through one of the Msg* texts.
func (a *Analyzer) Analyze(ctx context.Context, sessions []models.Session) (string, error) {
	if !a.busy.CompareAndSwap(false, true) {
		observability.RecordAnalysis(observability.OutcomeBusy)
		return "", ErrBusy
	}
	defer a.busy.Store(false)
	return a.run(ctx, sessions), nil
}

// Start launches the analysis in the background and returns a channel that
// receives exactly one Result. The sessions are copied before Start returns,
// so later changes to the collection are not part of this request.
func (a *Analyzer) Start(ctx context.Context, sessions []models.Session) <-chan Result {
	out := make(chan Result, 1)
	if !a.busy.CompareAndSwap(false, true) {
		observability.RecordAnalysis(observability.OutcomeBusy)
		out <- Result{Err: ErrBusy}
		close(out)
		return out
	}

	snapshot := make([]models.Session, len(sessions))
	for i, s := range sessions {
		snapshot[i] = s.Clone()
	}

	go func() {
		defer close(out)
		defer a.busy.Store(false)
		out <- Result{Text: a.run(ctx, snapshot)}
	}()
	return out
}

func (a *Analyzer) run(ctx context.Context, sessions []models.Session) string {
	prompt, err := BuildPrompt(sessions, a.historySize)
	if err != nil {
		a.log.Error("building analysis prompt", "error", err)
		observability.RecordAnalysis(observability.OutcomeFailed)
		return MsgGenerationFailed
	}

	text, err := a.gen.Generate(ctx, prompt)
	switch {
	case errors.Is(err, ErrNoCredentials):
		observability.RecordAnalysis(observability.OutcomeNoCredentials)
		return MsgNoCredentials
	case errors.Is(err, ErrMalformedResponse):
		a.log.Warn("analysis response unreadable", "error", err)
		observability.RecordAnalysis(observability.OutcomeEmpty)
		return MsgEmptyResponse
	case err != nil:
		a.log.Error("analysis request failed", "error", err)
		observability.RecordAnalysis(observability.OutcomeFailed)
		return MsgGenerationFailed
	}

	text = strings.TrimSpace(text)
	if text == "" {
		observability.RecordAnalysis(observability.OutcomeEmpty)
		return MsgEmptyResponse
	}
	observability.RecordAnalysis(observability.OutcomeOK)
	return text
}
