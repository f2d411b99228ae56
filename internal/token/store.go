package token

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nahiyan/connect-broker/internal/store"
)

const (
	sessionNamespace = "session_tokens:"
	globalNamespace  = "global_tokens:"

	// SessionTTL bounds how long an abandoned session's record survives.
	// Reset on every write, matching the refresh token horizon.
	SessionTTL = 1800 * time.Second
)

// Store persists token Records in the key-value backend, namespaced by
// session id and by resolved student id.
type Store struct {
	kv     *store.Service
	logger *slog.Logger
}

func NewStore(kv *store.Service, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger,
	}
}

// SaveForSession stores a record under the session namespace, resetting the
// store-level TTL so the session self-evicts when abandoned.
func (s *Store) SaveForSession(ctx context.Context, sessionID string, rec Record) error {
	return s.kv.Set(ctx, sessionNamespace+sessionID, rec, SessionTTL)
}

// GetForSession loads the session's record. Returns found=false when the
// session holds no record; store failures also degrade to found=false.
func (s *Store) GetForSession(ctx context.Context, sessionID string) (Record, bool) {
	var rec Record
	if err := s.kv.Get(ctx, sessionNamespace+sessionID, &rec); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to load session token record", "session_id", sessionID, "error", err)
		}
		return Record{}, false
	}
	return rec, true
}

// DeleteForSession removes the session's record.
func (s *Store) DeleteForSession(ctx context.Context, sessionID string) error {
	return s.kv.Delete(ctx, sessionNamespace+sessionID)
}

// SessionIDs lists the ids of all sessions currently holding a record.
func (s *Store) SessionIDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, sessionNamespace+"*")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(sessionNamespace):])
	}
	return ids, nil
}

// SaveForStudent stores a record under the resolved student id. These
// records have no TTL and act as a last-resort credential source.
func (s *Store) SaveForStudent(ctx context.Context, studentID string, rec Record) error {
	return s.kv.Set(ctx, globalNamespace+studentID, rec, 0)
}

// GetForStudent loads the record bound to a resolved student id.
func (s *Store) GetForStudent(ctx context.Context, studentID string) (Record, bool) {
	var rec Record
	if err := s.kv.Get(ctx, globalNamespace+studentID, &rec); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to load student token record", "student_id", studentID, "error", err)
		}
		return Record{}, false
	}
	return rec, true
}

// DeleteForStudent removes a student-bound record.
func (s *Store) DeleteForStudent(ctx context.Context, studentID string) error {
	return s.kv.Delete(ctx, globalNamespace+studentID)
}

// StudentIDs lists the ids of all students with a bound record.
func (s *Store) StudentIDs(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, globalNamespace+"*")
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(globalNamespace):])
	}
	return ids, nil
}
