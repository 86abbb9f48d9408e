package assess

import (
	"context"
	"testing"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/risk"
	"github.com/opensource-finance/clauseguard/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) *Service {
	t.Helper()
	catalog, err := rules.DefaultCatalog()
	require.NoError(t, err)
	return New(catalog, WithClock(func() time.Time { return t0 }))
}

func factorNamed(a *domain.ContractRiskAssessment, name string) (domain.RiskFactor, bool) {
	for _, f := range a.Factors {
		if f.Name == name {
			return f, true
		}
	}
	return domain.RiskFactor{}, false
}

var company = domain.Company{
	Name:       "Brightside Digital Ltd",
	Industry:   domain.IndustryTechnology,
	Size:       domain.SizeMicro,
	EntityType: domain.EntityPrivateLimited,
}

const serviceText = `SERVICE AGREEMENT
1. The Provider shall deliver the services in accordance with the service levels, KPIs and a 99.5% uptime commitment.
2. The Client may terminate this agreement immediately without notice.
3. The Provider shall exclude all liability arising from the services.
4. All information exchanged is confidential for 5 years.
5. This agreement is governed by the laws of New York and the courts of New York have jurisdiction.
6. Payment is due within 180 days of invoice.`

func TestAssessContractRisk_EmptyText(t *testing.T) {
	s := newService(t)

	a, err := s.AssessContractRisk(context.Background(), Request{
		Company:      company,
		ContractType: domain.ContractServiceAgreement,
	})
	require.NoError(t, err)

	conf, ok := factorNamed(a, "Missing Confidentiality Provisions")
	require.True(t, ok)
	assert.Equal(t, 6.0, conf.Score)
	assert.Equal(t, domain.SeverityMedium, conf.Severity)

	disp, ok := factorNamed(a, "No Dispute Resolution Mechanism")
	require.True(t, ok)
	assert.Equal(t, 6.5, disp.Score)
	assert.Equal(t, domain.SeverityMedium, disp.Severity)

	require.NotNil(t, a.Compliance)
	assert.LessOrEqual(t, a.Compliance.OverallLevel.Favorability(), domain.LevelMajorIssues.Favorability())
}

func TestAssessContractRisk_ServiceAgreement(t *testing.T) {
	s := newService(t)

	a, err := s.AssessContractRisk(context.Background(), Request{
		Text:         serviceText,
		Company:      company,
		ContractType: domain.ContractServiceAgreement,
		Value:        &domain.Money{Amount: 600_000, Currency: "GBP"},
	})
	require.NoError(t, err)

	value, ok := factorNamed(a, "Contract Value Exposure")
	require.True(t, ok)
	assert.Equal(t, 9.5, value.Score)
	assert.Equal(t, domain.SeverityHigh, value.Severity)

	foreign, ok := factorNamed(a, "Foreign Jurisdiction Risk")
	require.True(t, ok)
	assert.Equal(t, 7.5, foreign.Score)

	_, ok = factorNamed(a, "Reasonableness of Liability Exclusions")
	assert.True(t, ok, "reasonableness violation should surface as a legal risk factor")

	assert.GreaterOrEqual(t, a.OverallScore, 1.0)
	assert.LessOrEqual(t, a.OverallScore, 10.0)
	assert.GreaterOrEqual(t, a.Confidence, 0.0)
	assert.LessOrEqual(t, a.Confidence, 1.0)
	assert.NotEmpty(t, a.KeyConcerns)
	assert.NotEmpty(t, a.PriorityActions)
	assert.Contains(t, a.Summary, "Brightside Digital Ltd")
	assert.Equal(t, t0, a.Timestamp)

	// Legal factors come first, then the independent analyzers in fixed order.
	assert.Equal(t, domain.CategoryLegalCompliance, a.Factors[0].Category)
}

func TestAssessContractRisk_Deterministic(t *testing.T) {
	s := newService(t)
	req := Request{
		Text:         serviceText,
		Company:      company,
		ContractType: domain.ContractServiceAgreement,
		Value:        &domain.Money{Amount: 42_000},
	}

	first, err := s.AssessContractRisk(context.Background(), req)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := s.AssessContractRisk(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	v1 := s.ValidateContract(context.Background(), req)
	v2 := s.ValidateContract(context.Background(), req)
	assert.Equal(t, v1, v2)
}

func TestAssessContractRisk_Cancelled(t *testing.T) {
	s := newService(t)

	block := make(chan struct{})
	defer close(block)
	s.analyzers = append(s.analyzers, risk.Analyzer{
		Name: "slow",
		Analyze: func(risk.Input) []domain.RiskFactor {
			<-block
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a, err := s.AssessContractRisk(ctx, Request{Company: company, ContractType: domain.ContractNDA})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, a)
}

func TestAssessContractRisk_AnalyzerPanic(t *testing.T) {
	s := newService(t)
	s.analyzers = append([]risk.Analyzer{{
		Name:    "broken",
		Analyze: func(risk.Input) []domain.RiskFactor { panic("boom") },
	}}, s.analyzers...)

	a, err := s.AssessContractRisk(context.Background(), Request{Company: company, ContractType: domain.ContractNDA})
	require.NoError(t, err)
	_, ok := factorNamed(a, "No Dispute Resolution Mechanism")
	assert.True(t, ok)
	require.Len(t, a.Warnings, 1)
	assert.Contains(t, a.Warnings[0], "broken")
	assert.Contains(t, a.Warnings[0], "boom")

	healthy, err := newService(t).AssessContractRisk(context.Background(), Request{Company: company, ContractType: domain.ContractNDA})
	require.NoError(t, err)
	assert.Empty(t, healthy.Warnings)
}

func TestRequest(t *testing.T) {
	req := Request{Company: company, ContractType: domain.ContractNDA}
	assert.NoError(t, req.Validate())

	bad := req
	bad.ContractType = "handshake"
	bad.Company.Size = "huge"
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contractType")
	assert.Contains(t, err.Error(), "company.size")

	assert.Equal(t, req.Hash(), req.Hash())
	changed := req
	changed.Text = "x"
	assert.NotEqual(t, req.Hash(), changed.Hash())
}

func TestForCatalog(t *testing.T) {
	svc := newService(t)
	assert.Same(t, svc, svc.ForCatalog(svc.Catalog()))

	extended, err := svc.Catalog().Extend([]*domain.RuleDefinition{{
		ComplianceRule: domain.ComplianceRule{
			ID:         "tenant_insurance",
			Title:      "Insurance clause",
			Category:   domain.FrameworkCommercialLaw,
			Expression: `text.contains("insurance")`,
			Severity:   domain.SeverityHigh,
			Active:     true,
		},
	}})
	require.NoError(t, err)

	tenantSvc := svc.ForCatalog(extended)
	req := Request{Text: serviceText, Company: company, ContractType: domain.ContractServiceAgreement}

	base := svc.ValidateContract(context.Background(), req)
	withTenant := tenantSvc.ValidateContract(context.Background(), req)

	assert.Equal(t, base.RulesEvaluated+1, withTenant.RulesEvaluated)
	assert.Equal(t, t0, withTenant.Timestamp)

	assert.Equal(t, svc.InputHash(req), svc.InputHash(req))
	assert.NotEqual(t, svc.InputHash(req), tenantSvc.InputHash(req))
	assert.NotEqual(t, req.Hash(), svc.InputHash(req))
}
