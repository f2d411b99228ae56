package health

import (
	"context"
	"log/slog"
	"time"

	"github.com/nahiyan/connect-broker/internal/store"
)

var startTime = time.Now()

// Checker reports the broker's health. Redis is the only critical
// dependency; the identity provider and downstream API are checked lazily
// per request, not probed here.
type Checker struct {
	Store  *store.Service
	Logger *slog.Logger
}

func NewChecker(kv *store.Service, logger *slog.Logger) Checker {
	return Checker{
		Store:  kv,
		Logger: logger,
	}
}

// Status represents overall health information
type Status struct {
	Status     string                     `json:"status"`
	Timestamp  string                     `json:"timestamp"`
	Uptime     int64                      `json:"uptime_seconds"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents individual component health
type ComponentHealth struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Latency  int64  `json:"latency_ms"`
	Critical bool   `json:"critical"`
}

// CheckHealth performs a full dependency check.
func (h *Checker) CheckHealth(ctx context.Context) Status {
	components := map[string]ComponentHealth{
		"redis": h.checkStore(ctx),
	}

	overall := "healthy"
	for _, c := range components {
		if c.Status != "healthy" && c.Critical {
			overall = "unhealthy"
		}
	}

	return Status{
		Status:     overall,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     int64(time.Since(startTime).Seconds()),
		Components: components,
	}
}

// CheckLiveness only verifies the process is responsive.
func (h *Checker) CheckLiveness(_ context.Context) Status {
	return Status{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    int64(time.Since(startTime).Seconds()),
	}
}

// CheckReadiness verifies the broker can serve traffic.
func (h *Checker) CheckReadiness(ctx context.Context) Status {
	return h.CheckHealth(ctx)
}

func (h *Checker) checkStore(ctx context.Context) ComponentHealth {
	start := time.Now()
	if err := h.Store.Health(ctx); err != nil {
		h.Logger.Warn("Redis health check failed", "error", err)
		return ComponentHealth{
			Status:   "unhealthy",
			Message:  err.Error(),
			Latency:  time.Since(start).Milliseconds(),
			Critical: true,
		}
	}
	return ComponentHealth{
		Status:   "healthy",
		Latency:  time.Since(start).Milliseconds(),
		Critical: true,
	}
}
