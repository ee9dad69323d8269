package logging

import (
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/meltforce/liftlog/internal/config"
)

// New builds the process logger. Output goes to w, and additionally to a
// rotated file when cfg.File is set. The returned closer releases the file.
func New(cfg config.LogConfig, w io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	out := w

	if cfg.File != "" {
		rotating := &lumberjack.Logger{
			Filename:  cfg.File,
			MaxSize:   50, // megabytes
			LocalTime: false,
			Compress:  true,
		}
		out = io.MultiWriter(w, rotating)
		closer = rotating
	}

	opts := &slog.HandlerOptions{Level: Level(cfg.Level)}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler), closer
}

// Level maps a config level name to a slog level. Unknown names are info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
