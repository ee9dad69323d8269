// Package store owns the in-memory session collection and keeps it written
// through to a persistence slot.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/meltforce/liftlog/internal/draft"
	"github.com/meltforce/liftlog/internal/models"
	"github.com/meltforce/liftlog/internal/observability"
	"github.com/meltforce/liftlog/internal/storage"
)

var (
	// ErrPersist wraps slot write failures. The in-memory collection has
	// already been updated when it is returned.
	ErrPersist = errors.New("persisting sessions")
	// ErrNotFound is returned for unknown session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrNotLoaded is returned by writes after Load failed to read the slot.
	// Saving then would overwrite history the store never saw.
	ErrNotLoaded = errors.New("sessions not loaded")
)

// Slot is the persistence collaborator: one named blob, rewritten whole on every save.
// Load returns storage.ErrSlotEmpty when nothing has been saved yet.
type Slot interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// Store owns the session collection, most recent first.
type Store struct {
	slot Slot
	log  *slog.Logger
	now  func() time.Time

	mu       sync.RWMutex
	sessions []models.Session
	// loadErr holds the last slot read failure; writes are refused while set.
	loadErr error
}

// New creates an empty Store backed by slot. Call Load to read existing data.
func New(slot Slot, log *slog.Logger) *Store {
	return &Store{slot: slot, log: log, now: time.Now}
}

// Load replaces the collection with the slot contents. An empty slot or an
// unparseable blob starts an empty collection. A slot read failure is
// returned and leaves the store empty and read-only: writes fail with
// ErrNotLoaded until a later Load succeeds.
func (s *Store) Load(ctx context.Context) error {
	data, err := s.slot.Load(ctx)
	if errors.Is(err, storage.ErrSlotEmpty) {
		s.replace(nil, nil)
		s.log.Info("no saved sessions, starting empty")
		return nil
	}
	if err != nil {
		err = fmt.Errorf("loading sessions: %w", err)
		s.replace(nil, err)
		return err
	}

	sessions, err := Decode(data)
	if err != nil {
		s.replace(nil, nil)
		s.log.Warn("saved sessions unreadable, starting empty", "error", err, "bytes", len(data))
		return nil
	}

	s.replace(sessions, nil)
	s.log.Info("sessions loaded", "count", len(sessions))
	return nil
}

func (s *Store) replace(sessions []models.Session, loadErr error) {
	if sessions == nil {
		sessions = []models.Session{}
	}
	s.mu.Lock()
	s.sessions = sessions
	s.loadErr = loadErr
	s.mu.Unlock()
}

// writableLocked returns ErrNotLoaded after a failed Load. Caller holds mu.
func (s *Store) writableLocked() error {
	if s.loadErr != nil {
		return fmt.Errorf("%w: %v", ErrNotLoaded, s.loadErr)
	}
	return nil
}

// Append prepends session to the collection and rewrites the slot.
// A session with an invalid set is rejected without touching the collection.
func (s *Store) Append(ctx context.Context, session models.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}

	s.sessions = append([]models.Session{session.Clone()}, s.sessions...)
	observability.RecordSessionSaved()
	return s.saveLocked(ctx)
}

// Finalize turns d into a session dated now and appends it. An empty draft
// leaves the collection untouched and returns false.
func (s *Store) Finalize(ctx context.Context, d *draft.Draft, category models.Category, note string) (models.Session, bool, error) {
	return s.FinalizeAt(ctx, d, category, note, s.now())
}

// FinalizeAt is Finalize with an explicit session date.
func (s *Store) FinalizeAt(ctx context.Context, d *draft.Draft, category models.Category, note string, at time.Time) (models.Session, bool, error) {
	session, ok := d.Finalize(category, note, at)
	if !ok {
		return models.Session{}, false, nil
	}
	if err := s.Append(ctx, session); err != nil {
		return session, true, err
	}
	return session, true, nil
}

// ImportSessions adds sessions in one write. Sessions whose date already
// exists in the collection are skipped. Returns how many were added.
// If any session has an invalid set nothing is added.
func (s *Store) ImportSessions(ctx context.Context, sessions []models.Session) (int, error) {
	for _, session := range sessions {
		if err := session.Validate(); err != nil {
			return 0, fmt.Errorf("session %s: %w", session.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return 0, err
	}

	existing := make(map[int64]struct{}, len(s.sessions))
	for _, cur := range s.sessions {
		existing[cur.Date.UnixNano()] = struct{}{}
	}

	added := 0
	for _, session := range sessions {
		key := session.Date.UnixNano()
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		s.sessions = append(s.sessions, session.Clone())
		added++
	}
	if added == 0 {
		return 0, nil
	}

	sort.SliceStable(s.sessions, func(i, j int) bool {
		return s.sessions[i].Date.After(s.sessions[j].Date)
	})
	return added, s.saveLocked(ctx)
}

// Delete removes the session with id and rewrites the slot.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writableLocked(); err != nil {
		return err
	}

	for i := range s.sessions {
		if s.sessions[i].ID == id {
			s.sessions = append(s.sessions[:i:i], s.sessions[i+1:]...)
			observability.RecordSessionDeleted()
			return s.saveLocked(ctx)
		}
	}
	return ErrNotFound
}

// All returns a snapshot of the collection, most recent first.
func (s *Store) All() []models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Session, len(s.sessions))
	for i, session := range s.sessions {
		out[i] = session.Clone()
	}
	return out
}

// Recent returns up to n sessions with the latest dates, newest first.
func (s *Store) Recent(n int) []models.Session {
	all := s.All()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.After(all[j].Date)
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// Get returns the session with id.
func (s *Store) Get(id string) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, session := range s.sessions {
		if session.ID == id {
			return session.Clone(), nil
		}
	}
	return models.Session{}, ErrNotFound
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// saveLocked writes the whole collection. Caller holds mu.
func (s *Store) saveLocked(ctx context.Context) error {
	data, err := Encode(s.sessions)
	if err != nil {
		observability.RecordPersistFailure()
		s.log.Error("encoding sessions failed", "error", err, "count", len(s.sessions))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	if err := s.slot.Save(ctx, data); err != nil {
		observability.RecordPersistFailure()
		s.log.Error("saving sessions failed", "error", err, "count", len(s.sessions))
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}
	return nil
}

// Encode serializes a collection to the slot format (a JSON array).
func Encode(sessions []models.Session) ([]byte, error) {
	if sessions == nil {
		sessions = []models.Session{}
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		return nil, fmt.Errorf("encoding sessions: %w", err)
	}
	return data, nil
}

// Decode parses the slot format.
func Decode(data []byte) ([]models.Session, error) {
	var sessions []models.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("decoding sessions: %w", err)
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}
