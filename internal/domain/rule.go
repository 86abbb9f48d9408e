package domain

import "strings"

// Framework is a named regulatory domain a rule belongs to.
type Framework string

const (
	FrameworkGDPR              Framework = "gdpr"
	FrameworkEmploymentLaw     Framework = "employment_law"
	FrameworkConsumerRights    Framework = "consumer_rights"
	FrameworkCommercialLaw     Framework = "commercial_law"
	FrameworkCompanyLaw        Framework = "company_law"
	FrameworkCompetitionLaw    Framework = "competition_law"
	FrameworkFinancialServices Framework = "financial_services"
	FrameworkHealthSafety      Framework = "health_safety"
)

// Valid reports whether f is a known framework.
func (f Framework) Valid() bool {
	switch f {
	case FrameworkGDPR, FrameworkEmploymentLaw, FrameworkConsumerRights,
		FrameworkCommercialLaw, FrameworkCompanyLaw, FrameworkCompetitionLaw,
		FrameworkFinancialServices, FrameworkHealthSafety:
		return true
	}
	return false
}

// Severity is the ordinal level of a violation or risk: Low < Medium < High < Critical.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities. Unknown values rank below Low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Title returns the capitalised severity name.
func (s Severity) Title() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// ComplianceRule is one entry of the rule catalog.
// Empty applicability sets mean the rule applies universally on that dimension.
type ComplianceRule struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Framework `json:"category"`

	Frameworks    []Framework    `json:"frameworks,omitempty"`
	Industries    []Industry     `json:"industries,omitempty"`
	CompanySizes  []CompanySize  `json:"companySizes,omitempty"`
	ContractTypes []ContractType `json:"contractTypes,omitempty"`
	Jurisdiction  string         `json:"jurisdiction"`

	// Pattern is a regular expression that must match the contract text.
	Pattern string `json:"pattern,omitempty"`

	RequiredClauses   []string `json:"requiredClauses,omitempty"`
	ProhibitedClauses []string `json:"prohibitedClauses,omitempty"`

	Validator ValidatorKind `json:"validator,omitempty"`

	// Expression is an optional CEL predicate; true means compliant.
	Expression string `json:"expression,omitempty"`

	// Severity applies to Expression failures. Defaults to medium.
	Severity Severity `json:"severity,omitempty"`

	LegalReference string `json:"legalReference,omitempty"`
	Active         bool   `json:"active"`
}

// ValidatorKind selects one of the built-in business-rule validators.
type ValidatorKind string

const (
	ValidatorNone                    ValidatorKind = ""
	ValidatorLawfulBasis             ValidatorKind = "lawful_basis"
	ValidatorReasonableness          ValidatorKind = "reasonableness"
	ValidatorConsumerFairness        ValidatorKind = "consumer_fairness"
	ValidatorDirectorAuthority       ValidatorKind = "director_authority"
	ValidatorFCAAuthorization        ValidatorKind = "fca_authorization"
	ValidatorConfidentialityDuration ValidatorKind = "confidentiality_duration"
	ValidatorEULawReference          ValidatorKind = "eu_law_reference"
)

// Valid reports whether k is a known validator kind (including none).
func (k ValidatorKind) Valid() bool {
	switch k {
	case ValidatorNone, ValidatorLawfulBasis, ValidatorReasonableness,
		ValidatorConsumerFairness, ValidatorDirectorAuthority,
		ValidatorFCAAuthorization, ValidatorConfidentialityDuration,
		ValidatorEULawReference:
		return true
	}
	return false
}

// ComplianceViolation is a single rule failure.
type ComplianceViolation struct {
	RuleID         string   `json:"ruleId"`
	RuleTitle      string   `json:"ruleTitle"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	SuggestedFix   string   `json:"suggestedFix,omitempty"`
	LegalReference string   `json:"legalReference,omitempty"`
	AutoFixable    bool     `json:"autoFixable"`
}

// RuleDefinition is a tenant-authored rule as stored by the repository.
// It is resolved into a ComplianceRule when a catalog is extended.
type RuleDefinition struct {
	ComplianceRule
	TenantID string `json:"tenantId"`
	Version  string `json:"version"`
}
