package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// TimeoutConfig represents timeout configuration
type TimeoutConfig struct {
	Timeout time.Duration
	Message string
	Logger  *slog.Logger
}

// guardedWriter serializes access to the underlying ResponseWriter between
// the handler goroutine and the middleware. Once the middleware has sealed
// the response, late handler writes are swallowed instead of corrupting it.
type guardedWriter struct {
	mu     sync.Mutex
	w      http.ResponseWriter
	hdr    http.Header
	wrote  bool
	sealed bool
}

func (gw *guardedWriter) Header() http.Header {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.sealed {
		if gw.hdr == nil {
			gw.hdr = make(http.Header)
		}
		return gw.hdr
	}
	return gw.w.Header()
}

func (gw *guardedWriter) WriteHeader(status int) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.sealed {
		return
	}
	gw.wrote = true
	gw.w.WriteHeader(status)
}

func (gw *guardedWriter) Write(b []byte) (int, error) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.sealed {
		return 0, http.ErrHandlerTimeout
	}
	gw.wrote = true
	return gw.w.Write(b)
}

// seal ends the handler's ownership of the response. When the handler has
// not written a header yet, the given error reply is sent in its place.
func (gw *guardedWriter) seal(status int, msg string) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.sealed {
		return
	}
	gw.sealed = true
	if !gw.wrote {
		http.Error(gw.w, msg, status)
	}
}

// TimeoutMiddleware creates a middleware that enforces request timeouts
// and recovers panics from the handler goroutine.
func TimeoutMiddleware(config TimeoutConfig) func(http.Handler) http.Handler {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.Message == "" {
		config.Message = "Request timeout"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), config.Timeout)
			defer cancel()

			gw := &guardedWriter{w: w}
			done := make(chan struct{})
			var panicErr any

			go func() {
				defer func() {
					if p := recover(); p != nil {
						panicErr = p
					}
					close(done)
				}()

				next.ServeHTTP(gw, r.WithContext(ctx))
			}()

			select {
			case <-done:
				if panicErr != nil {
					if config.Logger != nil {
						config.Logger.ErrorContext(ctx, "Request panic recovered",
							slog.Any("panic", panicErr),
							slog.String("path", r.URL.Path),
							slog.String("method", r.Method))
					}
					gw.seal(http.StatusInternalServerError, "Internal server error")
				}
			case <-ctx.Done():
				if config.Logger != nil {
					config.Logger.WarnContext(ctx, "Request timeout",
						slog.Duration("timeout", config.Timeout),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method))
				}

				if ctx.Err() == context.DeadlineExceeded {
					gw.seal(http.StatusRequestTimeout, config.Message)
				}
			}
		})
	}
}

// APITimeoutMiddleware creates timeout middleware for the broker's API
// endpoints. The budget covers a token refresh plus both downstream calls.
func APITimeoutMiddleware(timeout time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return TimeoutMiddleware(TimeoutConfig{
		Timeout: timeout,
		Message: "API request timeout",
		Logger:  logger,
	})
}
