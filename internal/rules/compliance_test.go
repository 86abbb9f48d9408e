package rules

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestScoreAndLevel(t *testing.T) {
	v := func(sevs ...domain.Severity) []domain.ComplianceViolation {
		out := make([]domain.ComplianceViolation, 0, len(sevs))
		for _, s := range sevs {
			out = append(out, domain.ComplianceViolation{Severity: s})
		}
		return out
	}

	tests := []struct {
		name      string
		viols     []domain.ComplianceViolation
		wantScore float64
		wantLevel domain.ComplianceLevel
	}{
		{"none", v(), 100, domain.LevelCompliant},
		{"one low", v(domain.SeverityLow), 95, domain.LevelCompliant},
		{"two low", v(domain.SeverityLow, domain.SeverityLow), 90, domain.LevelRequiresReview},
		{"one medium", v(domain.SeverityMedium), 85, domain.LevelRequiresReview},
		{"two medium", v(domain.SeverityMedium, domain.SeverityMedium), 70, domain.LevelMinorIssues},
		{"three medium", v(domain.SeverityMedium, domain.SeverityMedium, domain.SeverityMedium), 55, domain.LevelMajorIssues},
		{"one high", v(domain.SeverityHigh), 70, domain.LevelMajorIssues},
		{"one critical", v(domain.SeverityCritical), 50, domain.LevelNonCompliant},
		{"floor at zero", v(domain.SeverityCritical, domain.SeverityCritical, domain.SeverityHigh), 0, domain.LevelNonCompliant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := Score(tt.viols)
			assert.Equal(t, tt.wantScore, score)
			assert.Equal(t, tt.wantLevel, Level(tt.viols, score))
		})
	}
}

func TestMonotonicCriticalPenalty(t *testing.T) {
	bases := [][]domain.Severity{
		{},
		{domain.SeverityLow},
		{domain.SeverityMedium, domain.SeverityLow},
		{domain.SeverityHigh},
		{domain.SeverityHigh, domain.SeverityMedium},
		{domain.SeverityCritical},
	}

	for _, base := range bases {
		var viols []domain.ComplianceViolation
		for _, s := range base {
			viols = append(viols, domain.ComplianceViolation{Severity: s})
		}
		before := Score(viols)
		levelBefore := Level(viols, before)

		more := append(viols, domain.ComplianceViolation{Severity: domain.SeverityCritical})
		after := Score(more)
		levelAfter := Level(more, after)

		assert.Equal(t, max(before-50, 0), after, "base %v", base)
		assert.LessOrEqual(t, levelAfter.Favorability(), levelBefore.Favorability(), "base %v", base)
	}
}

func TestHighestSeverity(t *testing.T) {
	assert.Equal(t, domain.SeverityLow, HighestSeverity(nil))
	assert.Equal(t, domain.SeverityHigh, HighestSeverity([]domain.ComplianceViolation{
		{Severity: domain.SeverityMedium}, {Severity: domain.SeverityHigh}, {Severity: domain.SeverityLow},
	}))
}

func TestEngine_Validate(t *testing.T) {
	engine := NewEngine(MustDefaultCatalog(), WithClock(fixedClock()))
	ctx := context.Background()

	t.Run("empty service agreement", func(t *testing.T) {
		a := engine.Validate(ctx, Input{
			Company:      smallTech,
			ContractType: domain.ContractServiceAgreement,
		})

		assert.LessOrEqual(t, a.OverallLevel.Favorability(), domain.LevelMajorIssues.Favorability())
		assert.Equal(t, a.RulesEvaluated, len(a.Violations)+len(a.PassedRules)+len(a.Warnings))
		assert.GreaterOrEqual(t, a.OverallScore, 0.0)
		assert.LessOrEqual(t, a.OverallScore, 100.0)
		assert.Empty(t, a.Warnings)
		assert.Contains(t, a.Recommendations, "Obtain legal review of the high-severity issues before proceeding.")
	})

	t.Run("employment contract with required clauses", func(t *testing.T) {
		a := engine.Validate(ctx, Input{
			Text: "This employment contract sets out data protection obligations under the GDPR. " +
				"The notice period of 30 days applies. The employee must follow health and safety policies.",
			Company:      smallTech,
			ContractType: domain.ContractEmployment,
		})

		assert.Contains(t, a.PassedRules, "gdpr_data_protection_clause")
		assert.Contains(t, a.PassedRules, "employment_notice_period")
		assert.Contains(t, a.PassedRules, "employment_health_safety")
		assert.False(t, a.HasSeverity(domain.SeverityCritical))
		assert.Equal(t, 100.0, a.FrameworkScores[domain.FrameworkHealthSafety])
		assert.Equal(t, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), a.Timestamp)
	})

	t.Run("critical violation", func(t *testing.T) {
		a := engine.Validate(ctx, Input{
			Text:         "The Supplier shall not be liable for death or personal injury.",
			Company:      smallTech,
			ContractType: domain.ContractSupplierAgreement,
		})

		assert.Equal(t, domain.LevelNonCompliant, a.OverallLevel)
		assert.Equal(t, domain.SeverityCritical, a.RiskLevel)
		require.NotEmpty(t, a.Recommendations)
		assert.Equal(t, "URGENT: Resolve critical compliance violations before signing this contract.", a.Recommendations[0])
	})

	t.Run("framework restricted", func(t *testing.T) {
		a := engine.Validate(ctx, Input{Text: "GDPR", Company: smallTech}, domain.FrameworkGDPR)
		assert.Equal(t, 2, a.RulesEvaluated)
		assert.Len(t, a.FrameworkScores, 1)
		assert.Equal(t, 50.0, a.FrameworkScores[domain.FrameworkGDPR])
	})

	t.Run("deterministic", func(t *testing.T) {
		in := Input{
			Text:         "Confidential for 12 years. We exclude all liability. Regulation (EU) 2016/679 applies.",
			Company:      smallTech,
			ContractType: domain.ContractNDA,
			Value:        &domain.Money{Amount: 20000},
		}
		first := engine.Validate(ctx, in)
		for i := 0; i < 5; i++ {
			assert.Equal(t, first, engine.Validate(ctx, in))
		}
	})
}

func TestEngine_FaultIsolation(t *testing.T) {
	engine := NewEngine(MustDefaultCatalog(), WithClock(fixedClock()))

	t.Run("rule error becomes warning", func(t *testing.T) {
		a := engine.Validate(context.Background(), Input{
			Text:         "Kept confidential for 99999999999999999999 years.",
			Company:      smallTech,
			ContractType: domain.ContractNDA,
		})
		require.Len(t, a.Warnings, 1)
		assert.Contains(t, a.Warnings[0], "confidentiality_duration")
		assert.NotContains(t, a.PassedRules, "confidentiality_duration")
		assert.Equal(t, a.RulesEvaluated, len(a.Violations)+len(a.PassedRules)+1)
	})

	t.Run("panicking rules do not stop siblings", func(t *testing.T) {
		broken := NewEngine(MustDefaultCatalog(), WithClock(fixedClock()))
		broken.validator = NewValidator(nil) // clause lookups dereference a nil detector

		a := broken.Validate(context.Background(), Input{
			Text:         "Nothing to see.",
			Company:      smallTech,
			ContractType: domain.ContractNDA,
		})

		var clauseRules int
		for _, r := range broken.Catalog().Applicable(smallTech, domain.ContractNDA) {
			if len(r.RequiredClauses)+len(r.ProhibitedClauses) > 0 {
				clauseRules++
			}
		}
		require.Positive(t, clauseRules)
		assert.Len(t, a.Warnings, clauseRules)
		assert.NotEmpty(t, a.PassedRules)
		for _, w := range a.Warnings {
			assert.Contains(t, w, "panicked")
		}
	})
}
