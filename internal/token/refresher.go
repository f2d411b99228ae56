package token

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/nahiyan/connect-broker/internal/errors"
)

// Refresher exchanges a refresh token for a fresh access token at the
// identity provider. It never retries internally; the caller decides
// whether a failure is worth retrying based on its error code.
type Refresher struct {
	tokenURL string
	clientID string
	client   *http.Client
	logger   *slog.Logger
}

func NewRefresher(tokenURL, clientID string, timeout time.Duration, logger *slog.Logger) *Refresher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Refresher{
		tokenURL: tokenURL,
		clientID: clientID,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Refresh performs a refresh_token grant and normalizes the response into a
// Record. When the provider does not rotate the refresh token, the caller's
// original token is retained and its expiry derived from its own claims.
//
// Failure codes: REFRESH_TOKEN_INVALID on 401 (terminal for the record),
// REFRESH_TRANSPORT_ERROR on network errors and other statuses,
// REFRESH_MALFORMED_RESPONSE on a 200 without an access token.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (Record, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", r.clientID)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Record{}, apperrors.RefreshTransportError("failed to build refresh request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("Token refresh transport failure", "error", err)
		return Record{}, apperrors.RefreshTransportError("refresh request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Record{}, apperrors.RefreshTransportError("failed to read refresh response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		r.logger.Info("Refresh token rejected by provider")
		return Record{}, apperrors.RefreshTokenInvalidError("refresh token expired or revoked", nil)
	case resp.StatusCode != http.StatusOK:
		r.logger.Warn("Unexpected status from token endpoint", "status", resp.StatusCode)
		return Record{}, apperrors.RefreshTransportError("unexpected status from token endpoint", nil)
	}

	var parsed refreshResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Record{}, apperrors.RefreshMalformedResponseError("token endpoint returned invalid JSON", err)
	}
	if parsed.AccessToken == "" {
		return Record{}, apperrors.RefreshMalformedResponseError("token endpoint response lacks access_token", nil)
	}

	newRefresh := parsed.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	rec := NewRecord(parsed.AccessToken, newRefresh)
	r.logger.Debug("Token refreshed", "expires_at", rec.ExpiresAt)
	return rec, nil
}
