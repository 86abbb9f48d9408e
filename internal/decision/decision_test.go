package decision

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/clauseguard/internal/bus"
	"github.com/opensource-finance/clauseguard/internal/cache"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/metrics"
	"github.com/opensource-finance/clauseguard/internal/repository"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func result(level domain.Severity, compliance domain.ComplianceLevel) *domain.ContractRiskAssessment {
	return &domain.ContractRiskAssessment{
		OverallScore: 5.0,
		RiskLevel:    level,
		KeyConcerns:  []string{"Penalty Clauses: liquidated damages apply"},
		Compliance: &domain.ComplianceAssessment{
			OverallLevel: compliance,
			OverallScore: 70,
			Violations: []domain.ComplianceViolation{
				{RuleID: "r1", Severity: domain.SeverityCritical, Description: "Prohibited clause found: price fixing"},
				{RuleID: "r2", Severity: domain.SeverityLow, Description: "Retained EU law not referenced"},
			},
		},
	}
}

func TestProcessor(t *testing.T) {
	proc := NewProcessor()
	fixed := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	proc.now = func() time.Time { return fixed }

	t.Run("Process", func(t *testing.T) {
		rec := proc.Process(Input{
			TenantID:     "tenant-001",
			AssessmentID: "asm-001",
			ContractType: domain.ContractNDA,
			CompanyName:  "Acme Ltd",
			InputHash:    "hash",
			Result:       result(domain.SeverityLow, domain.LevelCompliant),
		})

		if rec.ID != "asm-001" {
			t.Errorf("expected reserved id asm-001, got %s", rec.ID)
		}
		if rec.TenantID != "tenant-001" {
			t.Errorf("expected tenantID 'tenant-001', got '%s'", rec.TenantID)
		}
		if !rec.CreatedAt.Equal(fixed) {
			t.Errorf("expected CreatedAt %v, got %v", fixed, rec.CreatedAt)
		}
	})

	t.Run("AssignsID", func(t *testing.T) {
		rec := proc.Process(Input{TenantID: "tenant-001"})
		if rec.ID == "" {
			t.Error("expected generated id")
		}
	})

	t.Run("ShouldAlert", func(t *testing.T) {
		tests := []struct {
			name       string
			level      domain.Severity
			compliance domain.ComplianceLevel
			want       bool
		}{
			{"low and compliant", domain.SeverityLow, domain.LevelCompliant, false},
			{"medium with major issues", domain.SeverityMedium, domain.LevelMajorIssues, false},
			{"high risk", domain.SeverityHigh, domain.LevelMinorIssues, true},
			{"critical risk", domain.SeverityCritical, domain.LevelCompliant, true},
			{"non compliant", domain.SeverityLow, domain.LevelNonCompliant, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := &domain.AssessmentRecord{Assessment: result(tt.level, tt.compliance)}
				if got := proc.ShouldAlert(rec); got != tt.want {
					t.Errorf("ShouldAlert = %v, want %v", got, tt.want)
				}
			})
		}

		if proc.ShouldAlert(nil) {
			t.Error("nil record should not alert")
		}
	})

	t.Run("Event", func(t *testing.T) {
		rec := &domain.AssessmentRecord{
			ID:           "asm-002",
			ContractType: domain.ContractServiceAgreement,
			Assessment:   result(domain.SeverityHigh, domain.LevelMajorIssues),
		}
		ev := Event(rec)
		if ev.AssessmentID != "asm-002" || ev.RiskLevel != domain.SeverityHigh {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.ComplianceLevel != domain.LevelMajorIssues || ev.ComplianceScore != 70 {
			t.Errorf("unexpected compliance in event: %+v", ev)
		}
	})

	t.Run("Reasons", func(t *testing.T) {
		rec := &domain.AssessmentRecord{Assessment: result(domain.SeverityHigh, domain.LevelMajorIssues)}
		reasons := Reasons(rec)
		if len(reasons) != 1 {
			t.Fatalf("expected 1 reason, got %d", len(reasons))
		}
		if reasons[0] != "Prohibited clause found: price fixing" {
			t.Errorf("unexpected reason %q", reasons[0])
		}
	})
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	tenantID := "tenant-001"

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "recorder.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	lru := cache.NewLRUCache(100)
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()
	m := metrics.New("test")

	var mu sync.Mutex
	var completed, alerts []domain.AssessmentEvent
	var wg sync.WaitGroup
	wg.Add(2)

	collect := func(dst *[]domain.AssessmentEvent) domain.MessageHandler {
		return func(ctx context.Context, msg *domain.Message) error {
			var ev domain.AssessmentEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return err
			}
			mu.Lock()
			*dst = append(*dst, ev)
			mu.Unlock()
			wg.Done()
			return nil
		}
	}
	eventBus.Subscribe(ctx, tenantID, domain.TopicAssessmentCompleted, collect(&completed))
	eventBus.Subscribe(ctx, tenantID, domain.TopicAssessmentAlert, collect(&alerts))

	rc := NewRecorder(NewProcessor(), repo, lru, eventBus, WithMetrics(m), WithCacheTTL(time.Minute))

	rec := rc.Processor().Process(Input{
		TenantID:     tenantID,
		ContractType: domain.ContractServiceAgreement,
		InputHash:    "hash-001",
		Result:       result(domain.SeverityHigh, domain.LevelMajorIssues),
	})

	t.Run("Record", func(t *testing.T) {
		if err := rc.Record(ctx, rec); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for events")
		}

		mu.Lock()
		defer mu.Unlock()
		if len(completed) != 1 || completed[0].AssessmentID != rec.ID {
			t.Errorf("expected one completed event for %s, got %+v", rec.ID, completed)
		}
		if len(completed) == 1 && completed[0].Reasons != nil {
			t.Errorf("completed event should not carry reasons, got %v", completed[0].Reasons)
		}
		if len(alerts) != 1 {
			t.Fatalf("expected one alert event, got %d", len(alerts))
		}
		if len(alerts[0].Reasons) != 1 || alerts[0].Reasons[0] != "Prohibited clause found: price fixing" {
			t.Errorf("expected the critical violation as alert reason, got %v", alerts[0].Reasons)
		}
		if got := testutil.ToFloat64(m.Alerts); got != 1 {
			t.Errorf("expected alerts_total 1, got %v", got)
		}
	})

	t.Run("LookupFromCache", func(t *testing.T) {
		got, ok := rc.Lookup(ctx, tenantID, "hash-001")
		if !ok {
			t.Fatal("expected cache hit")
		}
		if got.ID != rec.ID {
			t.Errorf("expected %s, got %s", rec.ID, got.ID)
		}
		if hits := testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")); hits != 1 {
			t.Errorf("expected 1 cache hit, got %v", hits)
		}
	})

	t.Run("LookupFallsBackToRepository", func(t *testing.T) {
		_ = lru.Close()

		got, ok := rc.Lookup(ctx, tenantID, "hash-001")
		if !ok {
			t.Fatal("expected repository hit")
		}
		if got.Assessment.Compliance == nil {
			t.Error("expected compliance to be loaded from repository")
		}

		cached, _ := lru.GetAssessment(ctx, tenantID, "hash-001")
		if cached == nil {
			t.Error("expected repository hit to repopulate the cache")
		}
	})

	t.Run("LookupMiss", func(t *testing.T) {
		if _, ok := rc.Lookup(ctx, tenantID, "unknown"); ok {
			t.Error("expected miss")
		}
	})
}

func TestRecorderWithoutCollaborators(t *testing.T) {
	rc := NewRecorder(nil, nil, nil, nil)
	rec := rc.Processor().Process(Input{
		TenantID: "tenant-001",
		Result:   result(domain.SeverityLow, domain.LevelCompliant),
	})

	if err := rc.Record(context.Background(), rec); err != nil {
		t.Errorf("Record failed: %v", err)
	}
	if _, ok := rc.Lookup(context.Background(), "tenant-001", "x"); ok {
		t.Error("expected miss without cache or repository")
	}
}
