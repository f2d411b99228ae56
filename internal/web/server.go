package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nahiyan/connect-broker/internal/config"
	"github.com/nahiyan/connect-broker/internal/health"
	"github.com/nahiyan/connect-broker/internal/schedule"
	"github.com/nahiyan/connect-broker/internal/session"
	"github.com/nahiyan/connect-broker/internal/token"
	"github.com/nahiyan/connect-broker/internal/web/handler"
	"github.com/nahiyan/connect-broker/internal/web/middleware"
)

// NewRouter wires all handlers and middleware into a single http.Handler.
func NewRouter(cfg *config.Config, logger *slog.Logger, manager *token.Manager, fetcher *schedule.Fetcher, checker *health.Checker) http.Handler {
	mux := http.NewServeMux()

	statusHandler := handler.NewStatusHandler()
	statusHandler.RegisterRoutes(mux)

	healthHandler := handler.NewHealthHandler(checker)
	healthHandler.RegisterRoutes(mux)

	tokensHandler := handler.NewTokensHandler(manager, logger)
	tokensHandler.RegisterRoutes(mux)

	scheduleHandler := handler.NewScheduleHandler(fetcher, logger)
	scheduleHandler.RegisterRoutes(mux)

	var h http.Handler = mux
	h = session.Middleware(cfg.Server.IsProduction(), logger)(h)
	h = middleware.CORSMiddleware(middleware.CORSConfig{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		MaxAge:         cfg.CORS.MaxAge,
	})(h)
	h = middleware.APITimeoutMiddleware(cfg.Server.RequestTimeout, logger)(h)
	h = middleware.LoggingMiddleware(logger)(h)

	return h
}

// NewServer builds the http.Server with config-driven timeouts.
func NewServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
