package domain

import (
	"time"
)

// ComplianceLevel is the overall verdict of a compliance evaluation.
type ComplianceLevel string

const (
	LevelCompliant      ComplianceLevel = "compliant"
	LevelMinorIssues    ComplianceLevel = "minor_issues"
	LevelMajorIssues    ComplianceLevel = "major_issues"
	LevelNonCompliant   ComplianceLevel = "non_compliant"
	LevelRequiresReview ComplianceLevel = "requires_review"
)

// Favorability orders levels from worst (0) to best (4).
func (l ComplianceLevel) Favorability() int {
	switch l {
	case LevelNonCompliant:
		return 0
	case LevelMajorIssues:
		return 1
	case LevelMinorIssues:
		return 2
	case LevelRequiresReview:
		return 3
	case LevelCompliant:
		return 4
	}
	return -1
}

// ComplianceAssessment is the immutable result of one compliance evaluation.
type ComplianceAssessment struct {
	OverallLevel    ComplianceLevel       `json:"overallLevel"`
	OverallScore    float64               `json:"overallScore"` // 0-100
	RiskLevel       Severity              `json:"riskLevel"`
	Violations      []ComplianceViolation `json:"violations"`
	PassedRules     []string              `json:"passedRules"`
	Warnings        []string              `json:"warnings"`
	Recommendations []string              `json:"recommendations"`
	FrameworkScores map[Framework]float64 `json:"frameworkScores"`
	RulesEvaluated  int                   `json:"rulesEvaluated"`
	Timestamp       time.Time             `json:"timestamp"`
	Duration        time.Duration         `json:"durationNs"`
}

// HasSeverity reports whether any violation carries the given severity.
func (a *ComplianceAssessment) HasSeverity(s Severity) bool {
	for _, v := range a.Violations {
		if v.Severity == s {
			return true
		}
	}
	return false
}

// RiskCategory groups risk factors for weighting.
type RiskCategory string

const (
	CategoryLegalCompliance   RiskCategory = "legal_compliance"
	CategoryFinancialExposure RiskCategory = "financial_exposure"
	CategoryOperationalImpact RiskCategory = "operational_impact"
	CategoryReputational      RiskCategory = "reputational_risk"
	CategoryTermination       RiskCategory = "termination_risk"
	CategoryPerformance       RiskCategory = "performance_risk"
	CategoryConfidentiality   RiskCategory = "confidentiality_risk"
	CategoryDisputeResolution RiskCategory = "dispute_resolution"
)

// AllRiskCategories lists every category in reporting order.
var AllRiskCategories = []RiskCategory{
	CategoryLegalCompliance,
	CategoryFinancialExposure,
	CategoryOperationalImpact,
	CategoryReputational,
	CategoryTermination,
	CategoryPerformance,
	CategoryConfidentiality,
	CategoryDisputeResolution,
}

// RiskFactor is one identified source of contract risk.
type RiskFactor struct {
	Category        RiskCategory `json:"category"`
	Name            string       `json:"name"`
	Score           float64      `json:"score"` // 1-10
	Severity        Severity     `json:"severity"`
	Description     string       `json:"description"`
	Impact          string       `json:"impact"`
	Mitigation      string       `json:"mitigation"`
	Confidence      float64      `json:"confidence"` // 0-1
	MatchedPatterns []string     `json:"matchedPatterns,omitempty"`
}

// ContractRiskAssessment is the weighted risk view of a contract.
type ContractRiskAssessment struct {
	OverallScore    float64                  `json:"overallScore"` // 1-10
	RiskLevel       Severity                 `json:"riskLevel"`
	Factors         []RiskFactor             `json:"factors"`
	Summary         string                   `json:"summary"`
	KeyConcerns     []string                 `json:"keyConcerns"`
	PriorityActions []string                 `json:"priorityActions"`
	Confidence      float64                  `json:"confidence"`
	CategoryScores  map[RiskCategory]float64 `json:"categoryScores"`
	SMERisks        []string                 `json:"smeSpecificRisks"`
	IndustryRisks   []string                 `json:"industrySpecificRisks"`
	Warnings        []string                 `json:"warnings,omitempty"` // analyzers that failed
	Compliance      *ComplianceAssessment    `json:"compliance,omitempty"`
	Timestamp       time.Time                `json:"timestamp"`
	Duration        time.Duration            `json:"durationNs"`
}

// AssessmentRecord is the persisted envelope of one risk assessment.
type AssessmentRecord struct {
	ID           string                  `json:"id"`
	TenantID     string                  `json:"tenantId"`
	ContractType ContractType            `json:"contractType"`
	CompanyName  string                  `json:"companyName"`
	InputHash    string                  `json:"inputHash"`
	Assessment   *ContractRiskAssessment `json:"assessment"`
	CreatedAt    time.Time               `json:"createdAt"`
}

// Standard topic names for the assessment pipeline.
const (
	TopicContractSubmitted   = "contract.submitted"
	TopicAssessmentCompleted = "assessment.completed"
	TopicAssessmentAlert     = "assessment.alert"

	// TopicContractAssess is request-reply: the reply carries the AssessmentRecord.
	TopicContractAssess = "contract.assess"
)
