package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"

	"github.com/meltforce/liftlog/internal/analysis"
	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/ingest/alpha"
	"github.com/meltforce/liftlog/internal/logging"
	"github.com/meltforce/liftlog/internal/mcp"
	"github.com/meltforce/liftlog/internal/server"
	"github.com/meltforce/liftlog/internal/storage"
	"github.com/meltforce/liftlog/internal/store"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (defaults plus LIFTLOG_ env vars when empty)")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	mcpStdio := flag.Bool("mcp-stdio", false, "serve MCP on stdin/stdout instead of HTTP")
	remote := flag.String("remote", "", "with -mcp-stdio: read from a LiftLog server at this URL instead of local storage")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("liftlog", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// stdout belongs to the MCP protocol in stdio mode
	var out io.Writer = os.Stdout
	if *mcpStdio {
		out = os.Stderr
	}
	log, logCloser := logging.New(cfg.Log, out)
	defer logCloser.Close()
	log.Info("LiftLog starting", "version", Version, "storage", cfg.Storage.Driver)

	if *mcpStdio && *remote != "" {
		log.Info("serving MCP on stdio", "remote", *remote)
		if err := mcpserver.ServeStdio(mcp.New(mcp.NewHTTPClient(*remote), Version, log)); err != nil {
			log.Error("mcp stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	if *migrateOnly {
		if cfg.Storage.Driver != config.DriverMemory {
			if err := storage.RunMigrations(cfg.Storage.Driver, cfg.Storage.Source()); err != nil {
				log.Error("migration failed", "error", err)
				os.Exit(1)
			}
		}
		log.Info("migrate-only: exiting")
		return
	}

	loc, err := cfg.Locale.Location()
	if err != nil {
		log.Error("invalid timezone", "error", err)
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
		// serving an empty collection would overwrite the slot on the next save
		log.Error("failed to load sessions", "error", err)
		os.Exit(1)
	}

	mcpSrv := mcp.New(mcp.NewLocal(st, loc), Version, log)

	if *mcpStdio {
		log.Info("serving MCP on stdio")
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			log.Error("mcp stdio server error", "error", err)
			os.Exit(1)
		}
		return
	}

	generator := analysis.NewHTTPGenerator(analysis.HTTPConfig{
		URL:     cfg.Analysis.URL,
		APIKey:  cfg.Analysis.APIKey,
		Model:   cfg.Analysis.Model,
		Timeout: cfg.Analysis.Timeout,
	})
	if cfg.Analysis.APIKey == "" {
		log.Warn("no analysis API key configured, analysis requests will return a notice")
	}
	analyzer := analysis.New(generator, cfg.Analysis.HistorySize, log)

	srv := server.New(st, alpha.NewProvider(st, loc, log), analyzer, loc, log)
	srv.Mount("/mcp", mcp.NewHTTPHandler(mcpSrv))

	// Start server: tsnet or plain HTTP
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
			Logf:     func(format string, args ...any) { log.Debug(fmt.Sprintf(format, args...)) },
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr)
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
