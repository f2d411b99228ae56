package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nahiyan/connect-broker/internal/store"
)

const cacheNamespace = "schedules:"

// entry wraps a cached payload with its write time so the freshest copy
// can be found when falling back without any token.
type entry struct {
	Data      json.RawMessage `json:"data"`
	UpdatedAt int64           `json:"updated_at"`
}

// Cache retains the last successfully fetched schedule per student, with no
// expiry. Entries are only ever overwritten by a newer successful fetch and
// serve as the fallback when no live fetch is possible.
type Cache struct {
	kv     *store.Service
	logger *slog.Logger
}

func NewCache(kv *store.Service, logger *slog.Logger) *Cache {
	return &Cache{
		kv:     kv,
		logger: logger,
	}
}

// Save overwrites the cached schedule for a student.
func (c *Cache) Save(ctx context.Context, studentID string, payload json.RawMessage) error {
	return c.kv.Set(ctx, cacheNamespace+studentID, entry{
		Data:      payload,
		UpdatedAt: time.Now().UnixNano(),
	}, 0)
}

// Get returns the cached schedule for a student, if any.
func (c *Cache) Get(ctx context.Context, studentID string) (json.RawMessage, bool) {
	var e entry
	if err := c.kv.Get(ctx, cacheNamespace+studentID, &e); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			c.logger.Warn("Failed to load cached schedule", "student_id", studentID, "error", err)
		}
		return nil, false
	}
	return e.Data, true
}

// Latest returns the most recently written cached schedule across all
// students, by explicit write timestamp.
func (c *Cache) Latest(ctx context.Context) (json.RawMessage, bool) {
	keys, err := c.kv.Keys(ctx, cacheNamespace+"*")
	if err != nil || len(keys) == 0 {
		return nil, false
	}

	var (
		best  entry
		found bool
	)
	for _, key := range keys {
		var e entry
		if err := c.kv.Get(ctx, key, &e); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				c.logger.Warn("Failed to load cached schedule", "key", key, "error", err)
			}
			continue
		}
		if !found || e.UpdatedAt >= best.UpdatedAt {
			best = e
			found = true
		}
	}

	return best.Data, found
}
