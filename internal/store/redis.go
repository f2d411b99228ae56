package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/nahiyan/connect-broker/internal/errors"
)

// ErrNotFound is returned when a key is absent. Absence is not a failure.
var ErrNotFound = errors.New("store: key not found")

// Service provides namespaced key-value persistence backed by Redis.
// Values are stored as JSON.
type Service struct {
	client *redis.Client
	logger *slog.Logger
	prefix string
}

// Config holds Redis connection configuration
type Config struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Prefix       string // Key prefix for namespacing
}

// NewService connects to Redis and verifies the connection.
func NewService(cfg *Config, logger *slog.Logger) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "error", err, "addr", cfg.Addr)
		return nil, apperrors.StoreUnavailableError("failed to connect to Redis", err)
	}

	logger.Info("Connected to Redis", "addr", cfg.Addr, "db", cfg.DB)

	return &Service{
		client: client,
		logger: logger,
		prefix: cfg.Prefix,
	}, nil
}

// NewServiceWithClient wraps an existing client. Used by tests with miniredis.
func NewServiceWithClient(client *redis.Client, prefix string, logger *slog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
		prefix: prefix,
	}
}

// buildKey creates a prefixed key
func (s *Service) buildKey(key string) string {
	return s.prefix + key
}

// Set stores a value. A zero ttl means no expiry.
func (s *Service) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal store value: %w", err)
	}

	if err := s.client.Set(ctx, s.buildKey(key), data, ttl).Err(); err != nil {
		s.logger.Warn("Store set failed", "key", key, "error", err)
		return apperrors.StoreError("set failed", err)
	}

	s.logger.Debug("Store set", "key", key, "ttl", ttl)
	return nil
}

// Get retrieves a value into dest. Returns ErrNotFound when the key is absent.
func (s *Service) Get(ctx context.Context, key string, dest any) error {
	val, err := s.client.Get(ctx, s.buildKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		s.logger.Warn("Store get failed", "key", key, "error", err)
		return apperrors.StoreError("get failed", err)
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		s.logger.Warn("Store unmarshal failed", "key", key, "error", err)
		return fmt.Errorf("failed to unmarshal store value: %w", err)
	}

	s.logger.Debug("Store hit", "key", key)
	return nil
}

// Delete removes a key. Deleting an absent key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.buildKey(key)).Err(); err != nil {
		s.logger.Warn("Store delete failed", "key", key, "error", err)
		return apperrors.StoreError("delete failed", err)
	}

	s.logger.Debug("Store deleted", "key", key)
	return nil
}

// Keys lists all keys matching pattern, with the service prefix stripped.
// This is an O(n) scan over the keyspace; fine at this deployment's scale.
func (s *Service) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := s.client.Keys(ctx, s.buildKey(pattern)).Result()
	if err != nil {
		s.logger.Warn("Store keys scan failed", "pattern", pattern, "error", err)
		return nil, apperrors.StoreError("keys scan failed", err)
	}

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.prefix))
	}
	return out, nil
}

// Health checks connectivity to the backend.
func (s *Service) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Service) Close() error {
	return s.client.Close()
}
