// Package upload pushes Alpha Progression exports from a workstation to a
// LiftLog server, skipping exports it has already sent.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/meltforce/liftlog/internal/ingest"
)

// Sender delivers an export. *Client satisfies it.
type Sender interface {
	SendAlphaCSV(ctx context.Context, data []byte, dryRun bool) (*ingest.Result, error)
}

// Uploader sends export files through a Sender and records them in a StateDB.
type Uploader struct {
	sender Sender
	state  *StateDB
	log    *slog.Logger
}

// New creates an Uploader. state may be nil to disable duplicate tracking.
func New(sender Sender, state *StateDB, log *slog.Logger) *Uploader {
	return &Uploader{sender: sender, state: state, log: log}
}

// UploadFile sends the export at path. It returns (nil, nil) when the same
// content was uploaded before. Dry runs are never recorded.
func (u *Uploader) UploadFile(ctx context.Context, path string, dryRun bool) (*ingest.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	hash := HashBytes(data)

	if u.state != nil {
		done, err := u.state.IsUploaded(hash)
		if err != nil {
			return nil, err
		}
		if done {
			u.log.Info("export already uploaded, skipping", "path", path, "hash", hash[:12])
			return nil, nil
		}
	}

	result, err := u.sender.SendAlphaCSV(ctx, data, dryRun)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", path, err)
	}

	if !dryRun && u.state != nil {
		if err := u.state.MarkUploaded(path, int64(len(data)), hash, result.SessionsImported); err != nil {
			// sent but untracked: a re-run is harmless because the server dedups by date
			u.log.Warn("failed to record upload", "path", path, "error", err)
		}
	}
	return result, nil
}
