// Package worker assesses contracts submitted over the event bus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/clauseguard/internal/assess"
	"github.com/opensource-finance/clauseguard/internal/bus"
	"github.com/opensource-finance/clauseguard/internal/decision"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/metrics"
	"github.com/opensource-finance/clauseguard/internal/rules"
)

// ErrNoTenants is returned by Start when no tenant is configured.
var ErrNoTenants = errors.New("no tenants configured")

// Worker consumes contract.submitted and answers contract.assess requests.
type Worker struct {
	bus      domain.EventBus
	service  *assess.Service
	registry *rules.Registry
	recorder *decision.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu            sync.Mutex
	subscriptions []domain.Subscription
	inflight      sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Option configures a Worker.
type Option func(*Worker)

// WithMetrics records worker evaluations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// NewWorker creates a new async worker. registry may be nil, in which case
// every tenant is assessed against the service's own catalog.
func NewWorker(eventBus domain.EventBus, service *assess.Service, registry *rules.Registry, recorder *decision.Recorder, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		bus:      eventBus,
		service:  service,
		registry: registry,
		recorder: recorder,
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Config holds worker configuration.
type Config struct {
	TenantIDs []string
}

// Start subscribes for each tenant. A tenant that fails to subscribe is
// logged and skipped.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return ErrNoTenants
	}

	started := 0
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			w.logger.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		started++
	}

	w.logger.Info("workers started",
		"tenant_count", started,
	)

	if started == 0 {
		return fmt.Errorf("no tenant subscriptions could be started")
	}
	return nil
}

func (w *Worker) startTenantWorker(tenantID string) error {
	handlers := map[string]domain.MessageHandler{
		domain.TopicContractSubmitted: w.handleSubmission,
		domain.TopicContractAssess:    w.handleRequest,
	}

	for topic, handler := range handlers {
		sub, err := w.bus.Subscribe(w.ctx, tenantID, topic, w.track(handler))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
		w.mu.Lock()
		w.subscriptions = append(w.subscriptions, sub)
		w.mu.Unlock()
	}

	w.logger.Info("tenant worker started",
		"tenant_id", tenantID,
	)
	return nil
}

// track counts in-flight handlers so Stop can wait for them.
func (w *Worker) track(h domain.MessageHandler) domain.MessageHandler {
	return func(ctx context.Context, msg *domain.Message) error {
		w.inflight.Add(1)
		defer w.inflight.Done()
		return h(ctx, msg)
	}
}

// handleSubmission assesses a contract.submitted message and records it.
func (w *Worker) handleSubmission(ctx context.Context, msg *domain.Message) error {
	var sub domain.ContractSubmission
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		w.logger.Error("failed to parse contract submission",
			"tenant_id", msg.TenantID,
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	_, err := w.Process(ctx, msg.TenantID, sub)
	return err
}

// handleRequest assesses a contract.assess request and replies with the record.
func (w *Worker) handleRequest(ctx context.Context, msg *domain.Message) error {
	var sub domain.ContractSubmission
	if err := json.Unmarshal(msg.Payload, &sub); err != nil {
		return fmt.Errorf("failed to parse assess request: %w", err)
	}

	rec, err := w.Process(ctx, msg.TenantID, sub)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}
	return bus.Reply(ctx, w.bus, msg, payload)
}

// Process runs one submission through assessment and recording.
func (w *Worker) Process(ctx context.Context, tenantID string, sub domain.ContractSubmission) (*domain.AssessmentRecord, error) {
	start := time.Now()

	req := assess.Request{
		Text:         sub.Text,
		Company:      sub.Company,
		ContractType: sub.ContractType,
		Value:        sub.Value,
	}
	if err := req.Validate(); err != nil {
		w.logger.Warn("rejected contract submission",
			"tenant_id", tenantID,
			"assessment_id", sub.AssessmentID,
			"error", err,
		)
		return nil, err
	}

	svc := w.service
	if w.registry != nil {
		catalog, err := w.registry.For(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		svc = svc.ForCatalog(catalog)
	}

	result, err := svc.AssessContractRisk(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("assessment %s: %w", sub.AssessmentID, err)
	}
	w.metrics.ObserveAssessment("worker", result)

	rec := w.recorder.Processor().Process(decision.Input{
		TenantID:     tenantID,
		AssessmentID: sub.AssessmentID,
		ContractType: req.ContractType,
		CompanyName:  req.Company.Name,
		InputHash:    svc.InputHash(req),
		Result:       result,
	})

	if err := w.recorder.Record(ctx, rec); err != nil {
		w.logger.Error("failed to record assessment",
			"tenant_id", tenantID,
			"assessment_id", rec.ID,
			"error", err,
		)
		return nil, err
	}

	w.logger.Info("contract assessed",
		"tenant_id", tenantID,
		"assessment_id", rec.ID,
		"risk_level", result.RiskLevel,
		"score", result.OverallScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return rec, nil
}

// Stop unsubscribes and waits for in-flight handlers to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			w.logger.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}

	w.cancel()
	w.inflight.Wait()

	w.logger.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
