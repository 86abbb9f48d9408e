// Package assess runs the two-stage contract assessment pipeline: compliance
// validation followed by risk analysis.
package assess

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/risk"
	"github.com/opensource-finance/clauseguard/internal/rules"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clauseguard-assess")

// Request is the contract and context to assess.
type Request struct {
	Text         string              `json:"text"`
	Company      domain.Company      `json:"company"`
	ContractType domain.ContractType `json:"contractType"`
	Value        *domain.Money       `json:"value,omitempty"`
}

// Validate checks that the enumerated context fields are known values.
// Text is not checked: empty or non-contractual text is assessed as-is.
func (r Request) Validate() error {
	var problems []string
	if !r.ContractType.Valid() {
		problems = append(problems, fmt.Sprintf("contractType %q", r.ContractType))
	}
	if !r.Company.Industry.Valid() {
		problems = append(problems, fmt.Sprintf("company.industry %q", r.Company.Industry))
	}
	if !r.Company.Size.Valid() {
		problems = append(problems, fmt.Sprintf("company.size %q", r.Company.Size))
	}
	if !r.Company.EntityType.Valid() {
		problems = append(problems, fmt.Sprintf("company.entityType %q", r.Company.EntityType))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid %s", strings.Join(problems, ", "))
	}
	return nil
}

// Hash returns a stable digest of the request, used as a cache key.
func (r Request) Hash() string {
	b, _ := json.Marshal(r)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (r Request) rulesInput() rules.Input {
	return rules.Input{Text: r.Text, Company: r.Company, ContractType: r.ContractType, Value: r.Value}
}

func (r Request) riskInput() risk.Input {
	return risk.Input{Text: r.Text, Company: r.Company, ContractType: r.ContractType, Value: r.Value}
}

// Service is the assessment pipeline. It is safe for concurrent use.
type Service struct {
	engine    *rules.Engine
	analyzers []risk.Analyzer
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service over catalog.
func New(catalog *rules.Catalog, opts ...Option) *Service {
	s := &Service{
		analyzers: risk.Independent(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = rules.NewEngine(catalog, rules.WithLogger(s.logger), rules.WithClock(s.now))
	return s
}

// ForCatalog returns a Service sharing this one's analyzers and options
// but evaluating catalog. Used to serve tenant-extended catalogs.
func (s *Service) ForCatalog(catalog *rules.Catalog) *Service {
	if catalog == s.engine.Catalog() {
		return s
	}
	cp := *s
	cp.engine = rules.NewEngine(catalog, rules.WithLogger(s.logger), rules.WithClock(s.now))
	return &cp
}

// Catalog returns the catalog the service evaluates.
func (s *Service) Catalog() *rules.Catalog {
	return s.engine.Catalog()
}

// InputHash is the deduplication key for req under this service's catalog.
// It changes whenever the catalog's rule definitions change.
func (s *Service) InputHash(req Request) string {
	sum := sha256.Sum256([]byte(s.engine.Catalog().Fingerprint() + ":" + req.Hash()))
	return hex.EncodeToString(sum[:])
}

// ValidateContract runs the compliance stage only.
func (s *Service) ValidateContract(ctx context.Context, req Request) *domain.ComplianceAssessment {
	ctx, span := tracer.Start(ctx, "assess.ValidateContract",
		trace.WithAttributes(
			attribute.String("contract.type", string(req.ContractType)),
			attribute.Int("contract.length", len(req.Text)),
		),
	)
	defer span.End()

	a := s.engine.Validate(ctx, req.rulesInput())

	span.SetAttributes(
		attribute.Float64("compliance.score", a.OverallScore),
		attribute.String("compliance.level", string(a.OverallLevel)),
		attribute.Int("compliance.violations", len(a.Violations)),
	)
	return a
}

// AssessContractRisk validates the contract and then scores its risk factors.
// The independent analyzers run concurrently; their factors are merged in a
// fixed order so the result does not depend on scheduling. A panicking
// analyzer contributes no factors and a warning instead. The only error is
// ctx being done before the analyzers finish.
func (s *Service) AssessContractRisk(ctx context.Context, req Request) (*domain.ContractRiskAssessment, error) {
	start := s.now()

	compliance := s.ValidateContract(ctx, req)

	ctx, span := tracer.Start(ctx, "assess.AssessContractRisk",
		trace.WithAttributes(attribute.String("contract.type", string(req.ContractType))),
	)
	defer span.End()

	in := req.riskInput()
	results := make([][]domain.RiskFactor, len(s.analyzers))
	failures := make([]string, len(s.analyzers))

	var wg sync.WaitGroup
	for i, a := range s.analyzers {
		i, a := i, a
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					s.logger.Error("risk analyzer panicked", "analyzer", a.Name, "panic", p)
					failures[i] = fmt.Sprintf("Risk analyzer %s could not be evaluated: %v", a.Name, p)
				}
			}()
			results[i] = a.Analyze(in)
		}()
	}

	factors := risk.Legal(compliance)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		span.RecordError(ctx.Err())
		return nil, ctx.Err()
	}

	for _, r := range results {
		factors = append(factors, r...)
	}

	a := risk.Aggregate(factors, req.Company, req.ContractType)
	for _, f := range failures {
		if f != "" {
			a.Warnings = append(a.Warnings, f)
		}
	}
	a.Compliance = compliance
	a.Timestamp = start
	a.Duration = s.now().Sub(start)

	span.SetAttributes(
		attribute.Float64("risk.score", a.OverallScore),
		attribute.String("risk.level", string(a.RiskLevel)),
		attribute.Int("risk.factors", len(a.Factors)),
	)
	return a, nil
}
