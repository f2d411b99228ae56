package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/nahiyan/connect-broker/internal/session"
	"github.com/nahiyan/connect-broker/internal/store"
	"github.com/nahiyan/connect-broker/internal/token"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTokensTestServer(t *testing.T) (*httptest.Server, *token.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	kv := store.NewServiceWithClient(client, "test:", discardLogger())
	tokenStore := token.NewStore(kv, discardLogger())
	refresher := token.NewRefresher("http://127.0.0.1:0", "slm", time.Second, discardLogger())
	manager := token.NewManager(tokenStore, refresher, discardLogger())

	mux := http.NewServeMux()
	h := NewTokensHandler(manager, discardLogger())
	h.RegisterRoutes(mux)

	srv := httptest.NewServer(session.Middleware(false, discardLogger())(mux))
	t.Cleanup(srv.Close)
	return srv, tokenStore
}

func TestTokensSubmitAndView(t *testing.T) {
	t.Parallel()

	srv, tokenStore := newTokensTestServer(t)

	body := `{"access_token":"my-access-token","refresh_token":"my-refresh-token"}`
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tokens", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "test-session"})

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec, found := tokenStore.GetForSession(context.Background(), "test-session")
	require.True(t, found)
	require.Equal(t, "my-access-token", rec.AccessToken)
	require.NotZero(t, rec.ExpiresAt)

	// The view endpoint masks stored tokens.
	viewReq, err := http.NewRequest(http.MethodGet, srv.URL+"/api/tokens", nil)
	require.NoError(t, err)
	viewReq.AddCookie(&http.Cookie{Name: session.CookieName, Value: "test-session"})

	viewResp, err := srv.Client().Do(viewReq)
	require.NoError(t, err)
	defer viewResp.Body.Close()
	require.Equal(t, http.StatusOK, viewResp.StatusCode)

	var parsed struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(viewResp.Body).Decode(&parsed))
	require.Equal(t, "my-acces***", parsed.Data["access_token"])
}

func TestTokensSubmitForm(t *testing.T) {
	t.Parallel()

	srv, tokenStore := newTokensTestServer(t)

	form := "access_token=form-access&refresh_token=form-refresh"
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tokens", strings.NewReader(form))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "form-session"})

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rec, found := tokenStore.GetForSession(context.Background(), "form-session")
	require.True(t, found)
	require.Equal(t, "form-access", rec.AccessToken)
	require.Equal(t, "form-refresh", rec.RefreshToken)
}

func TestTokensSubmitValidation(t *testing.T) {
	t.Parallel()

	srv, _ := newTokensTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tokens", strings.NewReader(`{"access_token":""}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTokensViewMissing(t *testing.T) {
	t.Parallel()

	srv, _ := newTokensTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/tokens", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "empty-session"})

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTokensDelete(t *testing.T) {
	t.Parallel()

	srv, tokenStore := newTokensTestServer(t)
	ctx := context.Background()

	require.NoError(t, tokenStore.SaveForSession(ctx, "doomed", token.Record{AccessToken: "a"}))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/tokens", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "doomed"})

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, found := tokenStore.GetForSession(ctx, "doomed")
	require.False(t, found)
}
