package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/ingest"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/logging"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/store"
	"github.com/meltforce/liftlog/internal/upload"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	file := flag.String("file", "", "path to an Alpha Progression CSV export (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing sessions")
	serverURL := flag.String("server", "", "send the export to a LiftLog server at this URL instead of local storage")
	stateDir := flag.String("state-dir", ".liftlog-upload", "with -server: directory of the upload state database")
	flag.Parse()

	if *file == "" {
		fmt.Fprintf(os.Stderr, "Usage: liftlog-import [-config config.yaml] [-server URL] -file export.csv [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		os.Exit(runUpload(cfg, *serverURL, *stateDir, *file, *dryRun))
	}
	if cfg.Storage.Driver == config.DriverMemory && !*dryRun {
		fmt.Fprintf(os.Stderr, "storage.driver is memory: imported sessions would be lost, use -dry-run\n")
		os.Exit(1)
	}

	log, logCloser := logging.New(cfg.Log, os.Stdout)
	defer logCloser.Close()

	loc, err := cfg.Locale.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Error("failed to open export", "path", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()

	slot, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.Source(), cfg.Storage.Slot)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer slot.Close()
	log.Info("storage opened", "driver", cfg.Storage.Driver, "slot", cfg.Storage.Slot)

	st := store.New(slot, log)
	if err := st.Load(ctx); err != nil {
		// importing over an unreadable slot would overwrite it
		log.Error("failed to load sessions", "error", err)
		os.Exit(1)
	}

	if *dryRun {
		log.Info("DRY RUN mode, no sessions will be written")
	}

	result, err := alpha.NewProvider(st, loc, log).Ingest(ctx, f, *dryRun)
	if err != nil {
		log.Error("import failed", "error", err)
		if result != nil {
			printResult(log, result)
		}
		os.Exit(1)
	}

	printResult(log, result)
	log.Info("import complete", "sessions_total", st.Len())
}

// runUpload sends the export to a remote server and returns the exit code.
func runUpload(cfg *config.Config, serverURL, stateDir, file string, dryRun bool) int {
	log, logCloser := logging.New(cfg.Log, os.Stdout)
	defer logCloser.Close()

	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open upload state", "error", err)
		return 1
	}
	defer state.Close()

	u := upload.New(upload.NewClient(serverURL), state, log)
	result, err := u.UploadFile(context.Background(), file, dryRun)
	if err != nil {
		log.Error("upload failed", "error", err)
		return 1
	}
	if result != nil {
		printResult(log, result)
	}
	log.Info("upload complete", "server", serverURL)
	return 0
}

func printResult(log *slog.Logger, r *ingest.Result) {
	log.Info("import stats",
		"workouts_received", r.WorkoutsReceived,
		"sessions_imported", r.SessionsImported,
		"sessions_skipped", r.SessionsSkipped,
		"sessions_rejected", r.SessionsRejected,
		"sets_received", r.SetsReceived,
		"warmups_dropped", r.WarmupsDropped,
	)
	for _, reason := range r.Rejected {
		log.Warn("rejected workout", "reason", reason)
	}
	if r.Message != "" {
		log.Info(r.Message)
	}
}
