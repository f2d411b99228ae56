package handler

import (
	"net/http"
	"time"

	"github.com/nahiyan/connect-broker/internal/web/response"
)

var startTime = time.Now()

// StatusHandler answers the root endpoint with service status and uptime.
type StatusHandler struct{}

func NewStatusHandler() StatusHandler {
	return StatusHandler{}
}

func (h *StatusHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.HandleStatus)
}

func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response.SuccessResponse(w, map[string]any{
		"service":        "connect-broker",
		"status":         "active",
		"uptime_seconds": int64(time.Since(startTime).Seconds()),
	})
}
