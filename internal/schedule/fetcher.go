package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	apperrors "github.com/nahiyan/connect-broker/internal/errors"
	"github.com/nahiyan/connect-broker/internal/token"
)

const (
	studentsPath     = "/api/adv/v1/advising/students"
	schedulesPathFmt = "/api/adv/v1/advising/sections/student/%s/schedules"
)

// Result is the outcome of a schedule fetch. Cached results carry a notice
// explaining why live data was unavailable.
type Result struct {
	Data   json.RawMessage `json:"data"`
	Cached bool            `json:"cached"`
	Notice string          `json:"notice,omitempty"`
}

// Fetcher proxies the downstream schedule API using whatever valid token
// the lifecycle manager can produce, falling back to the cache when the
// live call fails.
type Fetcher struct {
	manager *token.Manager
	store   *token.Store
	cache   *Cache
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewFetcher(manager *token.Manager, store *token.Store, cache *Cache, baseURL string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		manager: manager,
		store:   store,
		cache:   cache,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Fetch resolves the caller's student identity downstream and returns their
// schedule, live when possible, cached otherwise.
func (f *Fetcher) Fetch(ctx context.Context, sessionID string) (Result, error) {
	accessToken, ok := f.manager.ValidTokenForSession(ctx, sessionID)
	if !ok {
		accessToken, ok = f.manager.LatestValidTokenAnywhere(ctx)
	}
	if !ok {
		// Student-bound records have no TTL, so they can outlive every
		// session that produced them.
		accessToken, ok = f.manager.LatestValidStudentToken(ctx)
	}

	if !ok {
		if payload, found := f.cache.Latest(ctx); found {
			f.logger.Info("No valid token anywhere, serving latest cached schedule", "session_id", sessionID)
			return Result{
				Data:   payload,
				Cached: true,
				Notice: "No valid token available; showing the last cached schedule.",
			}, nil
		}
		return Result{}, apperrors.NoTokenAndNoCacheError("no valid token and no cached schedule", nil)
	}

	studentID, err := f.resolveStudentID(ctx, sessionID, accessToken)
	if err != nil {
		return Result{}, err
	}

	// Bind the working credential to the resolved student so it can serve
	// as a recovery source beyond the session's own TTL.
	if rec, found := f.store.GetForSession(ctx, sessionID); found {
		if saveErr := f.store.SaveForStudent(ctx, studentID, rec); saveErr != nil {
			f.logger.Warn("Failed to bind record to student", "student_id", studentID, "error", saveErr)
		}
	}

	return f.fetchSchedule(ctx, sessionID, studentID, accessToken)
}

// resolveStudentID asks the downstream API who the token belongs to.
func (f *Fetcher) resolveStudentID(ctx context.Context, sessionID, accessToken string) (string, error) {
	body, status, err := f.get(ctx, f.baseURL+studentsPath, accessToken)
	if err != nil {
		return "", apperrors.UpstreamError("student resolution request failed", err)
	}

	switch {
	case status == http.StatusUnauthorized:
		f.logger.Info("Downstream rejected token during resolution", "session_id", sessionID)
		f.manager.DeleteSession(ctx, sessionID)
		return "", apperrors.TokenRejectedError("downstream API rejected the token", nil)
	case status != http.StatusOK:
		return "", upstreamStatusError("student resolution", status, body)
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return "", apperrors.UpstreamShapeError("student resolution response is not an array", nil)
	}
	elems := parsed.Array()
	if len(elems) == 0 {
		return "", apperrors.UpstreamShapeError("student resolution response is empty", nil)
	}
	for _, elem := range elems {
		if !elem.IsObject() || !elem.Get("id").Exists() {
			return "", apperrors.UpstreamShapeError("student resolution entry lacks an id", nil)
		}
	}

	return elems[0].Get("id").String(), nil
}

func (f *Fetcher) fetchSchedule(ctx context.Context, sessionID, studentID, accessToken string) (Result, error) {
	url := f.baseURL + fmt.Sprintf(schedulesPathFmt, studentID)

	body, status, err := f.get(ctx, url, accessToken)
	if err != nil {
		// Transport failure gets the same cache fallback as a bad status.
		if payload, found := f.cache.Get(ctx, studentID); found {
			f.logger.Warn("Schedule fetch failed, serving cache", "student_id", studentID, "error", err)
			return Result{
				Data:   payload,
				Cached: true,
				Notice: "Live schedule unavailable; showing the last cached copy.",
			}, nil
		}
		return Result{}, apperrors.UpstreamError("schedule request failed", err)
	}

	switch {
	case status == http.StatusOK:
		if saveErr := f.cache.Save(ctx, studentID, body); saveErr != nil {
			f.logger.Warn("Failed to cache schedule", "student_id", studentID, "error", saveErr)
		}
		return Result{Data: body, Cached: false}, nil

	case status == http.StatusUnauthorized:
		f.logger.Info("Downstream rejected token during schedule fetch", "session_id", sessionID)
		f.manager.DeleteSession(ctx, sessionID)
		return Result{}, apperrors.TokenRejectedError("downstream API rejected the token", nil)

	default:
		if payload, found := f.cache.Get(ctx, studentID); found {
			f.logger.Warn("Schedule fetch returned bad status, serving cache", "student_id", studentID, "status", status)
			return Result{
				Data:   payload,
				Cached: true,
				Notice: fmt.Sprintf("Live schedule unavailable (status %d); showing the last cached copy.", status),
			}, nil
		}
		return Result{}, upstreamStatusError("schedule fetch", status, body)
	}
}

func (f *Fetcher) get(ctx context.Context, url, accessToken string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func upstreamStatusError(op string, status int, body []byte) error {
	const maxBody = 512
	detail := string(body)
	if len(detail) > maxBody {
		detail = detail[:maxBody]
	}
	return apperrors.UpstreamError(fmt.Sprintf("%s returned status %d: %s", op, status, detail), nil)
}
