package decision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/metrics"
	"github.com/opensource-finance/clauseguard/internal/repository"
)

const defaultCacheTTL = time.Hour

// Recorder persists, caches and announces assessment records. Every
// collaborator is optional; a nil one is skipped.
type Recorder struct {
	processor *Processor
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	metrics   *metrics.Metrics
	cacheTTL  time.Duration
	logger    *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithCacheTTL sets how long records stay in the result cache.
func WithCacheTTL(ttl time.Duration) RecorderOption {
	return func(r *Recorder) {
		if ttl > 0 {
			r.cacheTTL = ttl
		}
	}
}

// WithMetrics records alert and cache instruments.
func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder creates a Recorder.
func NewRecorder(p *Processor, repo domain.Repository, cache domain.Cache, bus domain.EventBus, opts ...RecorderOption) *Recorder {
	if p == nil {
		p = NewProcessor()
	}
	r := &Recorder{
		processor: p,
		repo:      repo,
		cache:     cache,
		bus:       bus,
		cacheTTL:  defaultCacheTTL,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Processor returns the record builder.
func (r *Recorder) Processor() *Processor {
	return r.processor
}

// Lookup returns a previous assessment of identical input, checking the
// cache before the repository. Lookup failures are treated as misses.
func (r *Recorder) Lookup(ctx context.Context, tenantID, inputHash string) (*domain.AssessmentRecord, bool) {
	if r.cache != nil {
		rec, err := r.cache.GetAssessment(ctx, tenantID, inputHash)
		if err != nil {
			r.logger.Warn("assessment cache lookup failed",
				"tenant_id", tenantID,
				"error", err,
			)
		}
		if rec != nil {
			r.metrics.ObserveCache(true)
			return rec, true
		}
	}
	r.metrics.ObserveCache(false)

	if r.repo == nil {
		return nil, false
	}

	rec, err := r.repo.FindAssessmentByHash(ctx, tenantID, inputHash)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			r.logger.Warn("assessment lookup failed",
				"tenant_id", tenantID,
				"error", err,
			)
		}
		return nil, false
	}

	r.cacheRecord(ctx, tenantID, rec)
	return rec, true
}

// Record stores rec and publishes assessment.completed, plus
// assessment.alert when the alert policy fires. Only a repository failure
// is returned; cache and bus failures are logged.
func (r *Recorder) Record(ctx context.Context, rec *domain.AssessmentRecord) error {
	if r.repo != nil {
		if err := r.repo.SaveAssessment(ctx, rec.TenantID, rec); err != nil {
			return fmt.Errorf("failed to save assessment %s: %w", rec.ID, err)
		}
	}

	r.cacheRecord(ctx, rec.TenantID, rec)

	if r.bus == nil {
		return nil
	}

	payload, err := json.Marshal(Event(rec))
	if err != nil {
		return fmt.Errorf("failed to encode assessment event: %w", err)
	}

	if err := r.bus.Publish(ctx, rec.TenantID, domain.TopicAssessmentCompleted, payload); err != nil {
		r.logger.Error("failed to publish assessment",
			"tenant_id", rec.TenantID,
			"assessment_id", rec.ID,
			"error", err,
		)
	}

	if r.processor.ShouldAlert(rec) {
		alert := Event(rec)
		alert.Reasons = Reasons(rec)
		payload, err := json.Marshal(alert)
		if err != nil {
			return fmt.Errorf("failed to encode alert event: %w", err)
		}
		if err := r.bus.Publish(ctx, rec.TenantID, domain.TopicAssessmentAlert, payload); err != nil {
			r.logger.Error("failed to publish alert",
				"tenant_id", rec.TenantID,
				"assessment_id", rec.ID,
				"error", err,
			)
		} else if r.metrics != nil {
			r.metrics.Alerts.Inc()
		}
	}

	return nil
}

func (r *Recorder) cacheRecord(ctx context.Context, tenantID string, rec *domain.AssessmentRecord) {
	if r.cache == nil || rec.InputHash == "" {
		return
	}
	if err := r.cache.SetAssessment(ctx, tenantID, rec.InputHash, rec, r.cacheTTL); err != nil {
		r.logger.Warn("failed to cache assessment",
			"tenant_id", tenantID,
			"assessment_id", rec.ID,
			"error", err,
		)
	}
}
