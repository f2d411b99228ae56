package handler

import (
	"log/slog"
	"net/http"

	"github.com/nahiyan/connect-broker/internal/schedule"
	"github.com/nahiyan/connect-broker/internal/session"
	"github.com/nahiyan/connect-broker/internal/web/response"
)

// ScheduleHandler proxies the downstream schedule API.
type ScheduleHandler struct {
	Fetcher *schedule.Fetcher
	Logger  *slog.Logger
}

func NewScheduleHandler(fetcher *schedule.Fetcher, logger *slog.Logger) ScheduleHandler {
	return ScheduleHandler{
		Fetcher: fetcher,
		Logger:  logger,
	}
}

func (h *ScheduleHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/schedule", h.HandleSchedule)
}

// HandleSchedule returns the caller's schedule, refreshing or recovering a
// token as needed. Cached fallbacks are marked so the frontend can show a
// staleness banner; token failures surface as 401 with a re-auth code.
func (h *ScheduleHandler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	sid := session.FromContext(r.Context())

	result, err := h.Fetcher.Fetch(r.Context(), sid)
	if err != nil {
		response.ErrorResponse(w, err, h.Logger)
		return
	}

	response.SuccessResponse(w, result)
}
