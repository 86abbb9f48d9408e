package rules

import (
	"testing"

	"github.com/opensource-finance/clauseguard/internal/clause"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileRule(t *testing.T, def domain.ComplianceRule) *Rule {
	t.Helper()
	def.Active = true
	b := NewCatalogBuilder()
	require.NoError(t, b.Register(def))
	c, err := b.Build()
	require.NoError(t, err)
	r, _ := c.Get(def.ID)
	return r
}

var smallTech = domain.Company{
	Name:       "Acme Ltd",
	Industry:   domain.IndustryTechnology,
	Size:       domain.SizeSmall,
	EntityType: domain.EntityPrivateLimited,
}

func TestValidator_Order(t *testing.T) {
	v := NewValidator(clause.New())
	r := compileRule(t, domain.ComplianceRule{
		ID:                "ordered",
		Title:             "Ordered Rule",
		Pattern:           `\bagreement\b`,
		RequiredClauses:   []string{clause.NoticePeriod, clause.DataProtection},
		ProhibitedClauses: []string{clause.PriceFixing},
		Validator:         domain.ValidatorReasonableness,
		LegalReference:    "Test Act",
	})

	tests := []struct {
		name     string
		text     string
		severity domain.Severity
		autoFix  bool
		contains string
	}{
		{"pattern first", "GDPR applies. The parties agree to fix prices.", domain.SeverityMedium, false, "pattern"},
		{"first missing required clause", "This agreement excludes all liability.", domain.SeverityHigh, true, "notice period"},
		{"second required clause", "This agreement has a notice period.", domain.SeverityHigh, true, "data protection"},
		{"prohibited clause", "This agreement has a notice period and GDPR terms. The parties agree to fix prices.", domain.SeverityCritical, false, "price fixing"},
		{"custom validator last", "This agreement has a notice period and GDPR terms. We exclude all liability.", domain.SeverityHigh, false, "reasonableness"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viol, err := v.Validate(r, Input{Text: tt.text, Company: smallTech})
			require.NoError(t, err)
			require.NotNil(t, viol)
			assert.Equal(t, "ordered", viol.RuleID)
			assert.Equal(t, "Ordered Rule", viol.RuleTitle)
			assert.Equal(t, tt.severity, viol.Severity)
			assert.Equal(t, tt.autoFix, viol.AutoFixable)
			assert.Equal(t, "Test Act", viol.LegalReference)
			assert.Contains(t, viol.Description, tt.contains)
		})
	}

	t.Run("compliant text", func(t *testing.T) {
		viol, err := v.Validate(r, Input{Text: "This agreement has a notice period and GDPR terms.", Company: smallTech})
		require.NoError(t, err)
		assert.Nil(t, viol)
	})
}

func TestValidator_ProhibitedClauses(t *testing.T) {
	v := NewValidator(clause.New())
	r := compileRule(t, domain.ComplianceRule{
		ID:                "ucta_death_injury",
		Title:             "Death and personal injury",
		ProhibitedClauses: []string{clause.MarketSharing, clause.DeathInjuryExclusion},
	})

	tests := []struct {
		name     string
		text     string
		contains string // empty means no violation
	}{
		{"carve-out only", "Nothing in this Agreement limits or excludes liability for death or personal injury.", ""},
		{"exclusion behind carve-out lead", "Nothing in this clause limits the Supplier's right to invoice, and the Supplier shall not be liable for death or personal injury caused by its negligence.", "death injury exclusion"},
		{"first listed clause wins", "The parties shall allocate territories. The Supplier shall not be liable for death.", "market sharing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viol, err := v.Validate(r, Input{Text: tt.text, Company: smallTech})
			require.NoError(t, err)
			if tt.contains == "" {
				assert.Nil(t, viol)
				return
			}
			require.NotNil(t, viol)
			assert.Equal(t, domain.SeverityCritical, viol.Severity)
			assert.Contains(t, viol.Description, tt.contains)
		})
	}
}

func TestValidator_CustomValidators(t *testing.T) {
	v := NewValidator(clause.New())

	finance := smallTech
	finance.Industry = domain.IndustryFinance
	soleTrader := smallTech
	soleTrader.EntityType = domain.EntitySoleTrader

	tests := []struct {
		name    string
		kind    domain.ValidatorKind
		company domain.Company
		text    string
		want    domain.Severity // empty means no violation
	}{
		{"lawful basis missing", domain.ValidatorLawfulBasis, smallTech, "We process personal data.", domain.SeverityHigh},
		{"lawful basis consent", domain.ValidatorLawfulBasis, smallTech, "Processing is based on consent.", ""},
		{"lawful basis legitimate interests", domain.ValidatorLawfulBasis, smallTech, "We rely on legitimate interests.", ""},

		{"unqualified exclusion", domain.ValidatorReasonableness, smallTech, "The Supplier shall exclude all liability for losses.", domain.SeverityHigh},
		{"liability whatsoever", domain.ValidatorReasonableness, smallTech, "No liability whatsoever is accepted.", domain.SeverityHigh},
		{"qualified exclusion", domain.ValidatorReasonableness, smallTech, "Subject to clause 9, the Supplier excludes all liability.", ""},
		{"save for", domain.ValidatorReasonableness, smallTech, "Save for fraud, total liability is excluded.", ""},
		{"no exclusion", domain.ValidatorReasonableness, smallTech, "Liability is capped at the fees paid.", ""},

		{"no refund", domain.ValidatorConsumerFairness, smallTech, "All items are NO REFUND.", domain.SeverityMedium},
		{"sold as seen", domain.ValidatorConsumerFairness, smallTech, "Goods are sold as seen.", domain.SeverityMedium},
		{"fair terms", domain.ValidatorConsumerFairness, smallTech, "You may return goods within 30 days.", ""},

		{"limited company without authority", domain.ValidatorDirectorAuthority, smallTech, "Signed by the director.", domain.SeverityMedium},
		{"duly authorised", domain.ValidatorDirectorAuthority, smallTech, "Signed by a duly authorised officer.", ""},
		{"board resolution", domain.ValidatorDirectorAuthority, smallTech, "Approved by board resolution dated 1 May.", ""},
		{"acting within authority", domain.ValidatorDirectorAuthority, smallTech, "The signatory is acting within their authority.", ""},
		{"sole trader exempt", domain.ValidatorDirectorAuthority, soleTrader, "Signed.", ""},

		{"finance without fca", domain.ValidatorFCAAuthorization, finance, "We provide investment advice.", domain.SeverityCritical},
		{"finance with fca", domain.ValidatorFCAAuthorization, finance, "Authorised and regulated by the Financial Conduct Authority.", ""},
		{"finance with frn", domain.ValidatorFCAAuthorization, finance, "Firm Reference Number 123456.", ""},
		{"non finance exempt", domain.ValidatorFCAAuthorization, smallTech, "We provide software.", ""},

		{"confidentiality too long", domain.ValidatorConfidentialityDuration, smallTech, "Information remains confidential for 15 years.", domain.SeverityMedium},
		{"confidentiality ten years", domain.ValidatorConfidentialityDuration, smallTech, "Information remains confidential for 10 years.", ""},
		{"confidentiality no term", domain.ValidatorConfidentialityDuration, smallTech, "Information remains confidential.", ""},
		{"first term wins", domain.ValidatorConfidentialityDuration, smallTech, "Confidential for 2 years. Confidential records kept 20 years.", ""},

		{"eu directive", domain.ValidatorEULawReference, smallTech, "The parties comply with EU Directive 2019/770.", domain.SeverityLow},
		{"regulation (EU)", domain.ValidatorEULawReference, smallTech, "As required by Regulation (EU) 2016/679.", domain.SeverityLow},
		{"retained", domain.ValidatorEULawReference, smallTech, "Retained EU law, including the EU Regulation on roaming.", ""},
		{"no eu reference", domain.ValidatorEULawReference, smallTech, "Governed by the laws of England.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := compileRule(t, domain.ComplianceRule{ID: "custom", Validator: tt.kind})
			viol, err := v.Validate(r, Input{Text: tt.text, Company: tt.company})
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, viol)
				return
			}
			require.NotNil(t, viol)
			assert.Equal(t, tt.want, viol.Severity)
		})
	}
}

func TestValidator_ReasonablenessScenario(t *testing.T) {
	c := MustDefaultCatalog()
	r, ok := c.Get("ucta_reasonableness")
	require.True(t, ok)

	viol, err := NewValidator(c.Detector()).Validate(r, Input{
		Text:         "The Provider shall exclude all liability arising from the services.",
		Company:      smallTech,
		ContractType: domain.ContractServiceAgreement,
	})
	require.NoError(t, err)
	require.NotNil(t, viol)
	assert.Equal(t, domain.SeverityHigh, viol.Severity)
	assert.Equal(t, "ucta_reasonableness", viol.RuleID)
}

func TestValidator_ConfidentialityParseError(t *testing.T) {
	v := NewValidator(clause.New())
	r := compileRule(t, domain.ComplianceRule{ID: "conf", Validator: domain.ValidatorConfidentialityDuration})

	viol, err := v.Validate(r, Input{Text: "Kept confidential for 99999999999999999999 years."})
	assert.Nil(t, viol)
	assert.Error(t, err)
}

func TestValidator_Expression(t *testing.T) {
	c := MustDefaultCatalog()
	v := NewValidator(c.Detector())
	vat, _ := c.Get("vat_statement")
	construction, _ := c.Get("construction_health_safety")

	registered := smallTech
	registered.VATRegistered = true

	t.Run("vat registered without statement", func(t *testing.T) {
		viol, err := v.Validate(vat, Input{Text: "Fees are £500 per month.", Company: registered})
		require.NoError(t, err)
		require.NotNil(t, viol)
		assert.Equal(t, domain.SeverityLow, viol.Severity)
		assert.Equal(t, vat.Description, viol.Description)
	})

	t.Run("vat registered with statement", func(t *testing.T) {
		viol, err := v.Validate(vat, Input{Text: "Fees exclude VAT.", Company: registered})
		require.NoError(t, err)
		assert.Nil(t, viol)
	})

	t.Run("not registered", func(t *testing.T) {
		viol, err := v.Validate(vat, Input{Text: "Fees are £500.", Company: smallTech})
		require.NoError(t, err)
		assert.Nil(t, viol)
	})

	t.Run("has_clause", func(t *testing.T) {
		viol, err := v.Validate(construction, Input{Text: "Build the extension."})
		require.NoError(t, err)
		require.NotNil(t, viol)
		assert.Equal(t, domain.SeverityHigh, viol.Severity)

		viol, err = v.Validate(construction, Input{Text: "The contractor owns health and safety on site."})
		require.NoError(t, err)
		assert.Nil(t, viol)
	})

	t.Run("value and currency variables", func(t *testing.T) {
		r := compileRule(t, domain.ComplianceRule{
			ID:         "value_cap",
			Expression: `contract_value <= 250000.0 && currency == "GBP" && contract_type == "nda"`,
		})
		in := Input{ContractType: domain.ContractNDA, Value: &domain.Money{Amount: 1000}}
		viol, err := v.Validate(r, in)
		require.NoError(t, err)
		assert.Nil(t, viol)

		in.Value = &domain.Money{Amount: 1000, Currency: "usd"}
		viol, err = v.Validate(r, in)
		require.NoError(t, err)
		require.NotNil(t, viol)
		assert.Equal(t, domain.SeverityMedium, viol.Severity)
	})
}
