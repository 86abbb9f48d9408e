package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

// New creates a new cache based on configuration.
// For Community tier: returns LRU cache.
// For Pro tier with two-phase: returns a TieredCache of LRU over Redis.
// For Pro tier without two-phase: returns Redis cache.
func New(cfg domain.CacheConfig) (domain.Cache, error) {
	switch cfg.Type {
	case "memory":
		return NewLRUCache(cfg.LocalMaxSize), nil

	case "redis":
		if cfg.EnableTwoPhase {
			return NewTwoPhaseCache(cfg)
		}
		return NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Tier is one level of a TieredCache. MaxTTL caps how long entries live
// there; zero keeps the caller's TTL, and such a tier is never refilled
// from the tiers below it.
type Tier struct {
	Name   string
	Store  domain.Cache
	MaxTTL time.Duration
}

func (t Tier) ttl(ttl time.Duration) time.Duration {
	if t.MaxTTL > 0 && (ttl <= 0 || ttl > t.MaxTTL) {
		return t.MaxTTL
	}
	return ttl
}

// TieredCache reads through its tiers in order and backfills the faster
// ones on a hit. Writes and deletes go to every tier. Counters live in the
// last tier only, since it is the one shared across replicas.
type TieredCache struct {
	tiers []Tier
}

// NewTieredCache stacks tiers, fastest first.
func NewTieredCache(tiers ...Tier) (*TieredCache, error) {
	if len(tiers) == 0 {
		return nil, errors.New("tiered cache needs at least one tier")
	}
	return &TieredCache{tiers: tiers}, nil
}

// NewTwoPhaseCache puts a local LRU in front of Redis.
func NewTwoPhaseCache(cfg domain.CacheConfig) (*TieredCache, error) {
	remote, err := NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis cache: %w", err)
	}

	l1TTL := cfg.LocalTTL
	if l1TTL == 0 {
		l1TTL = 5 * time.Minute
	}

	return NewTieredCache(
		Tier{Name: "L1", Store: NewLRUCache(cfg.LocalMaxSize), MaxTTL: l1TTL},
		Tier{Name: "L2", Store: remote},
	)
}

// Get returns the value from the first tier holding key. Capped tiers above
// the hit are refilled; a failed refill is not an error.
func (c *TieredCache) Get(ctx context.Context, tenantID string, key string) ([]byte, error) {
	for i, t := range c.tiers {
		val, err := t.Store.Get(ctx, tenantID, key)
		if err != nil {
			return nil, fmt.Errorf("%s get: %w", t.Name, err)
		}
		if val == nil {
			continue
		}
		for _, above := range c.tiers[:i] {
			if ttl := above.ttl(0); ttl > 0 {
				_ = above.Store.Set(ctx, tenantID, key, val, ttl)
			}
		}
		return val, nil
	}
	return nil, nil
}

// Set writes value to every tier, capping the TTL per tier.
func (c *TieredCache) Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error {
	for _, t := range c.tiers {
		if err := t.Store.Set(ctx, tenantID, key, value, t.ttl(ttl)); err != nil {
			return fmt.Errorf("%s set: %w", t.Name, err)
		}
	}
	return nil
}

// Delete removes key from every tier.
func (c *TieredCache) Delete(ctx context.Context, tenantID string, key string) error {
	for _, t := range c.tiers {
		if err := t.Store.Delete(ctx, tenantID, key); err != nil {
			return fmt.Errorf("%s delete: %w", t.Name, err)
		}
	}
	return nil
}

// GetAssessment decodes through the tiered read path.
func (c *TieredCache) GetAssessment(ctx context.Context, tenantID string, inputHash string) (*domain.AssessmentRecord, error) {
	return getAssessment(ctx, c, tenantID, inputHash)
}

// SetAssessment encodes once and writes every tier.
func (c *TieredCache) SetAssessment(ctx context.Context, tenantID string, inputHash string, rec *domain.AssessmentRecord, ttl time.Duration) error {
	return setAssessment(ctx, c, tenantID, inputHash, rec, ttl)
}

// IncrementCounter counts in the last tier.
func (c *TieredCache) IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error) {
	return c.tiers[len(c.tiers)-1].Store.IncrementCounter(ctx, tenantID, key, window)
}

// Ping checks every tier.
func (c *TieredCache) Ping(ctx context.Context) error {
	for _, t := range c.tiers {
		if err := t.Store.Ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", t.Name, err)
		}
	}
	return nil
}

// Close closes every tier and returns the first error.
func (c *TieredCache) Close() error {
	var errs []error
	for _, t := range c.tiers {
		if err := t.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}
