package rules

import (
	"fmt"

	"github.com/opensource-finance/clauseguard/internal/clause"
	"github.com/opensource-finance/clauseguard/internal/domain"
)

const jurisdictionUK = "UK"

var dataContracts = []domain.ContractType{
	domain.ContractServiceAgreement,
	domain.ContractEmployment,
	domain.ContractSupplierAgreement,
	domain.ContractConsultancy,
}

// BuiltinRules returns the UK compliance rules shipped with ClauseGuard, in
// evaluation order.
func BuiltinRules() []domain.ComplianceRule {
	return []domain.ComplianceRule{
		{
			ID:              "gdpr_data_protection_clause",
			Title:           "Data Protection Clause",
			Description:     "Contracts involving personal data must contain data protection provisions.",
			Category:        domain.FrameworkGDPR,
			ContractTypes:   dataContracts,
			RequiredClauses: []string{clause.DataProtection},
			LegalReference:  "UK GDPR Article 28; Data Protection Act 2018",
		},
		{
			ID:             "gdpr_lawful_basis",
			Title:          "Lawful Basis for Processing",
			Description:    "A lawful basis for processing personal data must be identified.",
			Category:       domain.FrameworkGDPR,
			ContractTypes:  dataContracts,
			Validator:      domain.ValidatorLawfulBasis,
			LegalReference: "UK GDPR Article 6",
		},
		{
			ID:              "employment_notice_period",
			Title:           "Statutory Notice Period",
			Description:     "Employment contracts must state the notice period.",
			Category:        domain.FrameworkEmploymentLaw,
			ContractTypes:   []domain.ContractType{domain.ContractEmployment},
			RequiredClauses: []string{clause.NoticePeriod},
			LegalReference:  "Employment Rights Act 1996, s.1 and s.86",
		},
		{
			ID:              "employment_health_safety",
			Title:           "Health and Safety Duties",
			Description:     "Employment contracts must address health and safety duties.",
			Category:        domain.FrameworkHealthSafety,
			Frameworks:      []domain.Framework{domain.FrameworkHealthSafety, domain.FrameworkEmploymentLaw},
			ContractTypes:   []domain.ContractType{domain.ContractEmployment},
			RequiredClauses: []string{clause.HealthAndSafety},
			LegalReference:  "Health and Safety at Work etc. Act 1974, s.2",
		},
		{
			ID:             "employment_remuneration",
			Title:          "Remuneration Terms",
			Description:    "Employment contracts must state the rate of pay.",
			Category:       domain.FrameworkEmploymentLaw,
			ContractTypes:  []domain.ContractType{domain.ContractEmployment},
			Pattern:        `\b(?:salary|wages?|remuneration|hourly\s+rate|rate\s+of\s+pay)\b`,
			LegalReference: "Employment Rights Act 1996, s.1(4)(a); National Minimum Wage Act 1998",
		},
		{
			ID:                "ucta_death_injury",
			Title:             "Death and Personal Injury Exclusion",
			Description:       "Liability for death or personal injury caused by negligence cannot be excluded.",
			Category:          domain.FrameworkCommercialLaw,
			Frameworks:        []domain.Framework{domain.FrameworkCommercialLaw, domain.FrameworkConsumerRights},
			ProhibitedClauses: []string{clause.DeathInjuryExclusion},
			LegalReference:    "Unfair Contract Terms Act 1977, s.2(1); Consumer Rights Act 2015, s.65",
		},
		{
			ID:             "ucta_reasonableness",
			Title:          "Reasonableness of Liability Exclusions",
			Description:    "Exclusions and limitations of liability must be reasonable.",
			Category:       domain.FrameworkCommercialLaw,
			Validator:      domain.ValidatorReasonableness,
			LegalReference: "Unfair Contract Terms Act 1977, s.11",
		},
		{
			ID:             "consumer_rights_fairness",
			Title:          "Fair Consumer Terms",
			Description:    "Consumer terms must not restrict statutory rights.",
			Category:       domain.FrameworkConsumerRights,
			ContractTypes:  []domain.ContractType{domain.ContractTermsAndConditions},
			Validator:      domain.ValidatorConsumerFairness,
			LegalReference: "Consumer Rights Act 2015, Part 2",
		},
		{
			ID:             "company_director_authority",
			Title:          "Signatory Authority",
			Description:    "Companies should confirm the signatory's authority to bind the company.",
			Category:       domain.FrameworkCompanyLaw,
			Validator:      domain.ValidatorDirectorAuthority,
			LegalReference: "Companies Act 2006, ss.40-44",
		},
		{
			ID:                "competition_non_compete",
			Title:             "Restraint of Trade",
			Description:       "Non-compete restrictions must be reasonable in duration and area.",
			Category:          domain.FrameworkCompetitionLaw,
			Frameworks:        []domain.Framework{domain.FrameworkCompetitionLaw, domain.FrameworkEmploymentLaw},
			ProhibitedClauses: []string{clause.ExcessiveNonCompete},
			LegalReference:    "Common law doctrine of restraint of trade",
		},
		{
			ID:                "competition_cartel",
			Title:             "Anti-Competitive Agreements",
			Description:       "Agreements must not fix prices or share markets.",
			Category:          domain.FrameworkCompetitionLaw,
			ProhibitedClauses: []string{clause.PriceFixing, clause.MarketSharing},
			LegalReference:    "Competition Act 1998, Chapter I",
		},
		{
			ID:             "fca_authorisation",
			Title:          "FCA Authorisation",
			Description:    "Regulated financial services must reference FCA authorisation.",
			Category:       domain.FrameworkFinancialServices,
			Industries:     []domain.Industry{domain.IndustryFinance},
			Validator:      domain.ValidatorFCAAuthorization,
			LegalReference: "Financial Services and Markets Act 2000, s.19",
		},
		{
			ID:          "confidentiality_duration",
			Title:       "Confidentiality Duration",
			Description: "Confidentiality obligations should be proportionate in duration.",
			Category:    domain.FrameworkCommercialLaw,
			ContractTypes: []domain.ContractType{
				domain.ContractNDA,
				domain.ContractEmployment,
				domain.ContractConsultancy,
				domain.ContractServiceAgreement,
			},
			Validator:      domain.ValidatorConfidentialityDuration,
			LegalReference: "Common law of confidence",
		},
		{
			ID:             "retained_eu_law",
			Title:          "EU Law References",
			Description:    "References to EU legislation should reflect its retained UK status.",
			Category:       domain.FrameworkCommercialLaw,
			Validator:      domain.ValidatorEULawReference,
			LegalReference: "European Union (Withdrawal) Act 2018; Retained EU Law (Revocation and Reform) Act 2023",
		},
		{
			ID:             "construction_health_safety",
			Title:          "Construction Health and Safety",
			Description:    "Construction contracts must allocate health and safety duties.",
			Category:       domain.FrameworkHealthSafety,
			Industries:     []domain.Industry{domain.IndustryConstruction},
			Expression:     `has_clause(text, "health_and_safety_duties")`,
			Severity:       domain.SeverityHigh,
			LegalReference: "Construction (Design and Management) Regulations 2015",
		},
		{
			ID:             "vat_statement",
			Title:          "VAT Treatment",
			Description:    "VAT-registered businesses should state whether prices include VAT.",
			Category:       domain.FrameworkCommercialLaw,
			Expression:     `!vat_registered || text.matches("(?i)\\bvat\\b|value\\s+added\\s+tax")`,
			Severity:       domain.SeverityLow,
			LegalReference: "Value Added Tax Act 1994",
		},
		{
			ID:             "governing_law",
			Title:          "Governing Law",
			Description:    "Contracts should state which law governs them.",
			Category:       domain.FrameworkCommercialLaw,
			Pattern:        `\bgoverning\s+law\b|\bgoverned\s+by\b|\blaws?\s+of\s+(?:england|scotland|northern\s+ireland)\b`,
			LegalReference: "Contracts (Applicable Law) Act 1990",
		},
	}
}

// DefaultCatalog builds a catalog holding the built-in rules.
func DefaultCatalog() (*Catalog, error) {
	b := NewCatalogBuilder()
	for _, r := range BuiltinRules() {
		r.Jurisdiction = jurisdictionUK
		r.Active = true
		if err := b.Register(r); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// MustDefaultCatalog is DefaultCatalog for callers that treat a broken
// built-in catalog as a programming error.
func MustDefaultCatalog() *Catalog {
	c, err := DefaultCatalog()
	if err != nil {
		panic(fmt.Sprintf("rules: built-in catalog: %v", err))
	}
	return c
}
