package token

import (
	"context"
	"log/slog"

	apperrors "github.com/nahiyan/connect-broker/internal/errors"
)

// Manager orchestrates the store and the refresher: validity checks,
// refresh-on-demand, and the cross-session recovery scan. All failures
// degrade to "no token available"; nothing here panics a request.
//
// There is deliberately no locking around refresh. Two concurrent refreshes
// for the same session are possible and last writer wins; the provider's
// refresh tokens are not single-use in this flow.
type Manager struct {
	store     *Store
	refresher *Refresher
	logger    *slog.Logger
}

func NewManager(store *Store, refresher *Refresher, logger *slog.Logger) *Manager {
	return &Manager{
		store:     store,
		refresher: refresher,
		logger:    logger,
	}
}

// ValidTokenForSession returns a usable access token for the session,
// refreshing an expired record when possible. Returns ok=false when the
// session has no usable token; in that case the record was either absent,
// deleted as unrecoverable, or left in place for a later retry after a
// transient refresh failure.
func (m *Manager) ValidTokenForSession(ctx context.Context, sessionID string) (string, bool) {
	rec, found := m.store.GetForSession(ctx, sessionID)
	if !found {
		return "", false
	}

	if !rec.IsExpired(ExpiryBuffer) {
		return rec.AccessToken, true
	}

	if rec.RefreshToken == "" {
		m.logger.Info("Expired record without refresh token, deleting", "session_id", sessionID)
		if err := m.store.DeleteForSession(ctx, sessionID); err != nil {
			m.logger.Warn("Failed to delete unrefreshable record", "session_id", sessionID, "error", err)
		}
		return "", false
	}

	fresh, err := m.refresher.Refresh(ctx, rec.RefreshToken)
	if err != nil {
		if apperrors.IsType(err, apperrors.CodeRefreshTokenInvalid) {
			m.logger.Info("Refresh token invalid, deleting record", "session_id", sessionID)
			if delErr := m.store.DeleteForSession(ctx, sessionID); delErr != nil {
				m.logger.Warn("Failed to delete invalid record", "session_id", sessionID, "error", delErr)
			}
			return "", false
		}

		// Transient failure: leave the record for a future retry.
		m.logger.Warn("Token refresh failed", "session_id", sessionID, "error", err)
		return "", false
	}

	if err := m.store.SaveForSession(ctx, sessionID, fresh); err != nil {
		m.logger.Warn("Failed to persist refreshed record", "session_id", sessionID, "error", err)
	}
	return fresh.AccessToken, true
}

// LatestValidTokenAnywhere scans every session-bound record and returns the
// access token of the one expiring furthest in the future, refreshing it if
// needed. At most one refresh attempt per invocation. Ties on expiry are
// resolved by scan order, which the backend does not define.
func (m *Manager) LatestValidTokenAnywhere(ctx context.Context) (string, bool) {
	ids, err := m.store.SessionIDs(ctx)
	if err != nil {
		m.logger.Warn("Session scan failed", "error", err)
		return "", false
	}

	var (
		best        Record
		bestSession string
	)
	for _, id := range ids {
		rec, found := m.store.GetForSession(ctx, id)
		if !found {
			continue
		}
		if bestSession == "" || rec.ExpiresAt >= best.ExpiresAt {
			best = rec
			bestSession = id
		}
	}

	if bestSession == "" {
		return "", false
	}

	if !best.IsExpired(ExpiryBuffer) {
		m.logger.Debug("Recovered valid token from another session", "session_id", bestSession)
		return best.AccessToken, true
	}

	if best.RefreshToken == "" {
		return "", false
	}

	fresh, err := m.refresher.Refresh(ctx, best.RefreshToken)
	if err != nil {
		if apperrors.IsType(err, apperrors.CodeRefreshTokenInvalid) {
			if delErr := m.store.DeleteForSession(ctx, bestSession); delErr != nil {
				m.logger.Warn("Failed to delete invalid record", "session_id", bestSession, "error", delErr)
			}
		}
		m.logger.Warn("Recovery refresh failed", "session_id", bestSession, "error", err)
		return "", false
	}

	if err := m.store.SaveForSession(ctx, bestSession, fresh); err != nil {
		m.logger.Warn("Failed to persist recovered record", "session_id", bestSession, "error", err)
	}

	m.logger.Info("Recovered token via refresh from another session", "session_id", bestSession)
	return fresh.AccessToken, true
}

// LatestValidStudentToken scans the student-bound records, which outlive
// session TTLs, and returns the access token of the one expiring furthest in
// the future. The chosen record is refreshed when needed and persisted back
// under its student id, so the recovery source stays durable across session
// churn. At most one refresh attempt per invocation.
func (m *Manager) LatestValidStudentToken(ctx context.Context) (string, bool) {
	ids, err := m.store.StudentIDs(ctx)
	if err != nil {
		m.logger.Warn("Student record scan failed", "error", err)
		return "", false
	}

	var (
		best        Record
		bestStudent string
	)
	for _, id := range ids {
		rec, found := m.store.GetForStudent(ctx, id)
		if !found {
			continue
		}
		if bestStudent == "" || rec.ExpiresAt >= best.ExpiresAt {
			best = rec
			bestStudent = id
		}
	}

	if bestStudent == "" {
		return "", false
	}

	if !best.IsExpired(ExpiryBuffer) {
		m.logger.Debug("Recovered valid token from student record", "student_id", bestStudent)
		return best.AccessToken, true
	}

	if best.RefreshToken == "" {
		return "", false
	}

	fresh, err := m.refresher.Refresh(ctx, best.RefreshToken)
	if err != nil {
		if apperrors.IsType(err, apperrors.CodeRefreshTokenInvalid) {
			if delErr := m.store.DeleteForStudent(ctx, bestStudent); delErr != nil {
				m.logger.Warn("Failed to delete invalid student record", "student_id", bestStudent, "error", delErr)
			}
		}
		m.logger.Warn("Student record refresh failed", "student_id", bestStudent, "error", err)
		return "", false
	}

	if err := m.store.SaveForStudent(ctx, bestStudent, fresh); err != nil {
		m.logger.Warn("Failed to persist refreshed student record", "student_id", bestStudent, "error", err)
	}

	m.logger.Info("Recovered token via refresh from student record", "student_id", bestStudent)
	return fresh.AccessToken, true
}

// DeleteSession removes a session's record after the downstream API has
// declared its token invalid.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) {
	if err := m.store.DeleteForSession(ctx, sessionID); err != nil {
		m.logger.Warn("Failed to delete rejected record", "session_id", sessionID, "error", err)
	}
}

// SubmitTokens stores a manually supplied token pair under the session,
// deriving both expiries from the tokens' claims. No authenticity check is
// performed at this boundary.
func (m *Manager) SubmitTokens(ctx context.Context, sessionID, accessToken, refreshToken string) (Record, error) {
	rec := NewRecord(accessToken, refreshToken)
	if err := m.store.SaveForSession(ctx, sessionID, rec); err != nil {
		return Record{}, err
	}
	m.logger.Info("Tokens stored for session", "session_id", sessionID, "expires_at", rec.ExpiresAt)
	return rec, nil
}

// RecordForSession exposes the raw stored record for presentation.
func (m *Manager) RecordForSession(ctx context.Context, sessionID string) (Record, bool) {
	return m.store.GetForSession(ctx, sessionID)
}
