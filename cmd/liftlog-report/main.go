package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/message"

	"github.com/meltforce/liftlog/internal/analysis"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/logging"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/progress"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	exercise := flag.String("exercise", "", "print the progress series of this exercise")
	analyze := flag.Bool("analyze", false, "request a coaching analysis of recent sessions")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// the report goes to stdout
	log, logCloser := logging.New(cfg.Log, os.Stderr)
	defer logCloser.Close()

	loc, err := cfg.Locale.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}
	tag, err := cfg.Locale.Tag()
	if err != nil {
		log.Error("invalid language", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	slot, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.Source(), cfg.Storage.Slot)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer slot.Close()

	st := store.New(slot, log)
	if err := st.Load(ctx); err != nil {
		log.Error("failed to load sessions", "error", err)
		os.Exit(1)
	}

	p := message.NewPrinter(tag)
	sessions := st.All()

	printSummary(os.Stdout, p, progress.SummarizeIn(sessions, loc), loc)
	printCatalog(os.Stdout, p, progress.Catalog(sessions))

	if *exercise != "" {
		prog := progress.DeriveIn(sessions, *exercise, loc)
		if prog.Skipped > 0 {
			log.Warn("progress skipped entries without sets", "exercise", *exercise, "skipped", prog.Skipped)
		}
		printProgress(os.Stdout, p, prog)
	}

	if *analyze {
		generator := analysis.NewHTTPGenerator(analysis.HTTPConfig{
			URL:     cfg.Analysis.URL,
			APIKey:  cfg.Analysis.APIKey,
			Model:   cfg.Analysis.Model,
			Timeout: cfg.Analysis.Timeout,
		})
		text, err := waitForAnalysis(ctx, analysis.New(generator, cfg.Analysis.HistorySize, log), sessions, log)
		if err != nil {
			log.Error("analysis failed", "error", err)
			os.Exit(1)
		}
		p.Fprintf(os.Stdout, "\nAnalysis\n%s\n", text)
	}
}

// waitForAnalysis runs the analysis in the background and logs while it is
// still running, so a slow generator does not look like a hang.
func waitForAnalysis(ctx context.Context, a *analysis.Analyzer, sessions []models.Session, log *slog.Logger) (string, error) {
	start := time.Now()
	done := a.Start(ctx, sessions)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case res := <-done:
			log.Debug("analysis finished", "duration", time.Since(start).String())
			return res.Text, res.Err
		case <-ticker.C:
			log.Info("waiting for analysis", "elapsed", time.Since(start).Round(time.Second).String())
		}
	}
}

func printSummary(w io.Writer, p *message.Printer, sum progress.Summary, loc *time.Location) {
	p.Fprintf(w, "Sessions:      %d\n", sum.TotalSessions)
	p.Fprintf(w, "Training days: %d (%s)\n", sum.DistinctDays, sum.Timezone)
	p.Fprintf(w, "Sets:          %d\n", sum.TotalSets)
	p.Fprintf(w, "Volume:        %.1f kg\n", sum.TotalVolume)
	if sum.FirstSession != nil && sum.LastSession != nil {
		p.Fprintf(w, "Range:         %s to %s\n",
			sum.FirstSession.In(loc).Format("2006-01-02"),
			sum.LastSession.In(loc).Format("2006-01-02"))
	}
	for _, c := range models.Categories {
		if n := sum.ByCategory[c]; n > 0 {
			p.Fprintf(w, "  %-10s %d\n", c, n)
		}
	}
}

func printCatalog(w io.Writer, p *message.Printer, names []string) {
	p.Fprintf(w, "\nExercises (%d)\n", len(names))
	for _, name := range names {
		p.Fprintf(w, "  %s\n", name)
	}
}

func printProgress(w io.Writer, p *message.Printer, prog progress.Progress) {
	p.Fprintf(w, "\nProgress: %s\n", prog.Exercise)
	if len(prog.Points) == 0 {
		p.Fprintf(w, "  no sessions with sets\n")
		return
	}
	for _, pt := range prog.Points {
		p.Fprintf(w, "  %s  max %.1f kg  volume %.1f kg\n", pt.Label, pt.MaxWeight, pt.Volume)
	}
}
