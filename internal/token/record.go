package token

import (
	"time"
)

const (
	// DefaultExpiry is assumed for an access token whose exp claim is unreadable.
	DefaultExpiry = 300 * time.Second
	// DefaultRefreshExpiry is assumed for a refresh token whose exp claim is unreadable.
	DefaultRefreshExpiry = 1800 * time.Second
	// ExpiryBuffer guards against a token expiring mid-request.
	ExpiryBuffer = 60 * time.Second
)

// Record is the persisted credential state for one session.
type Record struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	ExpiresAt        int64  `json:"expires_at"`
	RefreshExpiresAt int64  `json:"refresh_expires_at"`
}

// NewRecord builds a Record from a token pair, deriving both expiries from
// the tokens' own exp claims. Unreadable claims fall back to fixed horizons
// from now. The derivation is deterministic for a given pair and instant.
func NewRecord(accessToken, refreshToken string) Record {
	rec := Record{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}

	if exp, ok := claimExpiry(accessToken); ok {
		rec.ExpiresAt = exp
	} else {
		rec.ExpiresAt = time.Now().Add(DefaultExpiry).Unix()
	}

	if refreshToken != "" {
		if exp, ok := claimExpiry(refreshToken); ok {
			rec.RefreshExpiresAt = exp
		} else {
			rec.RefreshExpiresAt = time.Now().Add(DefaultRefreshExpiry).Unix()
		}
	}

	return rec
}

// IsExpired reports whether the access token is expired or close enough to
// expiry that it should not be handed out. A missing token or missing
// expiry counts as expired. At exactly buffer seconds before expiry the
// token is still considered valid.
func (r Record) IsExpired(buffer time.Duration) bool {
	return r.expiredAt(buffer, time.Now())
}

func (r Record) expiredAt(buffer time.Duration, at time.Time) bool {
	if r.AccessToken == "" || r.ExpiresAt == 0 {
		return true
	}
	return at.Unix() > r.ExpiresAt-int64(buffer.Seconds())
}
