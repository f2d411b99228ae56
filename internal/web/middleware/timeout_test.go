package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeoutMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("fast handler passes through", func(t *testing.T) {
		t.Parallel()

		h := APITimeoutMiddleware(time.Second, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte("done"))
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Equal(t, "done", rec.Body.String())
	})

	t.Run("slow handler gets the timeout reply, late writes are dropped", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		handlerDone := make(chan struct{})
		var lateWriteErr error

		h := APITimeoutMiddleware(20*time.Millisecond, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer close(handlerDone)
			<-release
			w.Header().Set("X-Late", "yes")
			w.WriteHeader(http.StatusOK)
			_, lateWriteErr = w.Write([]byte("too late"))
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/schedule", nil))

		require.Equal(t, http.StatusRequestTimeout, rec.Code)
		require.Contains(t, rec.Body.String(), "API request timeout")

		close(release)
		<-handlerDone
		require.ErrorIs(t, lateWriteErr, http.ErrHandlerTimeout)

		// The abandoned handler's writes never reached the response.
		require.Equal(t, http.StatusRequestTimeout, rec.Code)
		require.Equal(t, "API request timeout\n", rec.Body.String())
		require.Empty(t, rec.Header().Get("X-Late"))
	})

	t.Run("panicking handler yields 500", func(t *testing.T) {
		t.Parallel()

		h := APITimeoutMiddleware(time.Second, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tokens", nil))

		require.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
