// Package cache puts a Redis read-through cache in front of a count source.
// Only closed months are cached since their counts no longer change.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kilianp07/fleetcast/core/history"
	"github.com/kilianp07/fleetcast/core/logger"
	"github.com/kilianp07/fleetcast/core/model"
)

// KeyFormat is the Redis key of one month: terminal, side, month.
const KeyFormat = "daily_counts_v1:%s:%s:%s"

// ErrMiss is returned by KV.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Key returns the cache key of a month for filter.
func Key(key model.MonthKey, filter model.TerminalFilter) string {
	return fmt.Sprintf(KeyFormat, filter.Label(), filter.Side, key)
}

// KV is the subset of Redis the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Config holds Redis connection settings.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	TTLHours int    `json:"ttl_hours"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.TTLHours <= 0 {
		c.TTLHours = 24 * 7
	}
}

// TTL returns the expiry of cached months.
func (c Config) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// RedisKV implements KV on a go-redis client.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV connects lazily to the configured Redis.
func NewRedisKV(cfg Config) *RedisKV {
	return &RedisKV{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

// NewRedisKVFromClient wraps an existing client.
func NewRedisKVFromClient(c *redis.Client) *RedisKV { return &RedisKV{client: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return v, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

// Close closes the client.
func (r *RedisKV) Close() error { return r.client.Close() }

// Source serves closed months from the cache and reads through to next.
type Source struct {
	next history.Source
	kv   KV
	ttl  time.Duration
	log  logger.Logger
	now  func() time.Time
}

// New wraps next. Cache errors are logged and never fail a fetch.
func New(next history.Source, kv KV, ttl time.Duration, log logger.Logger) *Source {
	return &Source{next: next, kv: kv, ttl: ttl, log: logger.OrNop(log), now: time.Now}
}

func (s *Source) closed(key model.MonthKey) bool {
	return key.Before(model.NewMonthKey(s.now().UTC()))
}

// FetchDailyCounts implements history.Source.
func (s *Source) FetchDailyCounts(ctx context.Context, key model.MonthKey, filter model.TerminalFilter) ([]model.DailyObservation, error) {
	if !s.closed(key) {
		return s.next.FetchDailyCounts(ctx, key, filter)
	}
	ck := Key(key, filter)
	raw, err := s.kv.Get(ctx, ck)
	switch {
	case err == nil:
		var obs []model.DailyObservation
		if uerr := json.Unmarshal([]byte(raw), &obs); uerr == nil {
			s.log.Debugf("cache: hit %s", ck)
			return obs, nil
		}
		s.log.Warnf("cache: corrupt entry %s, refetching", ck)
	case !errors.Is(err, ErrMiss):
		s.log.Warnf("cache: get %s: %v", ck, err)
	}

	obs, err := s.next.FetchDailyCounts(ctx, key, filter)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(obs)
	if err != nil {
		return obs, nil
	}
	if err := s.kv.Set(ctx, ck, string(b), s.ttl); err != nil {
		s.log.Warnf("cache: set %s: %v", ck, err)
	}
	return obs, nil
}
