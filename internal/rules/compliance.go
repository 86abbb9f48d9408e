package rules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

// severityWeights are the score deductions per violation.
var severityWeights = map[domain.Severity]float64{
	domain.SeverityLow:      5,
	domain.SeverityMedium:   15,
	domain.SeverityHigh:     30,
	domain.SeverityCritical: 50,
}

// RuleOutcome is the result of evaluating one rule.
// Exactly one of Violation and Err may be set; neither means the rule passed.
type RuleOutcome struct {
	Rule      *Rule
	Violation *domain.ComplianceViolation
	Err       error
}

// Passed reports whether the rule ran without a violation.
func (o RuleOutcome) Passed() bool {
	return o.Err == nil && o.Violation == nil
}

// Engine runs the applicable catalog rules and aggregates a ComplianceAssessment.
type Engine struct {
	catalog   *Catalog
	validator *Validator
	logger    *slog.Logger
	now       func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger for rule-level diagnostics.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the time source used for timestamps and durations.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a compliance engine over catalog.
func NewEngine(catalog *Catalog, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:   catalog,
		validator: NewValidator(catalog.Detector()),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog this engine evaluates.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// Evaluate runs every applicable rule and returns one outcome per rule, in
// catalog order. A failing or panicking rule does not stop its siblings.
func (e *Engine) Evaluate(ctx context.Context, in Input, frameworks ...domain.Framework) []RuleOutcome {
	applicable := e.catalog.Applicable(in.Company, in.ContractType, frameworks...)
	outcomes := make([]RuleOutcome, 0, len(applicable))
	for _, r := range applicable {
		out := e.evaluateRule(r, in)
		if out.Err != nil {
			e.logger.DebugContext(ctx, "rule evaluation failed",
				"rule_id", r.ID,
				"error", out.Err,
			)
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func (e *Engine) evaluateRule(r *Rule, in Input) (out RuleOutcome) {
	out.Rule = r
	defer func() {
		if p := recover(); p != nil {
			out.Violation = nil
			out.Err = fmt.Errorf("rule %s panicked: %v", r.ID, p)
		}
	}()
	out.Violation, out.Err = e.validator.Validate(r, in)
	return out
}

// Validate evaluates the contract and aggregates the outcomes.
func (e *Engine) Validate(ctx context.Context, in Input, frameworks ...domain.Framework) *domain.ComplianceAssessment {
	start := e.now()
	outcomes := e.Evaluate(ctx, in, frameworks...)
	a := Aggregate(outcomes, in)
	a.Timestamp = start
	a.Duration = e.now().Sub(start)
	return a
}

// Aggregate builds an assessment from rule outcomes. Timestamp and Duration
// are left for the caller.
func Aggregate(outcomes []RuleOutcome, in Input) *domain.ComplianceAssessment {
	a := &domain.ComplianceAssessment{
		Violations:      []domain.ComplianceViolation{},
		PassedRules:     []string{},
		Warnings:        []string{},
		FrameworkScores: make(map[domain.Framework]float64),
		RulesEvaluated:  len(outcomes),
	}

	type tally struct{ passed, total int }
	perFramework := make(map[domain.Framework]*tally)

	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			a.Warnings = append(a.Warnings, fmt.Sprintf("Rule %s could not be evaluated: %v", o.Rule.ID, o.Err))
		case o.Violation != nil:
			a.Violations = append(a.Violations, *o.Violation)
		default:
			a.PassedRules = append(a.PassedRules, o.Rule.ID)
		}

		for _, f := range o.Rule.Frameworks {
			t, ok := perFramework[f]
			if !ok {
				t = &tally{}
				perFramework[f] = t
			}
			t.total++
			if o.Passed() {
				t.passed++
			}
		}
	}

	for f, t := range perFramework {
		a.FrameworkScores[f] = 100 * float64(t.passed) / float64(t.total)
	}

	a.OverallScore = Score(a.Violations)
	a.OverallLevel = Level(a.Violations, a.OverallScore)
	a.RiskLevel = HighestSeverity(a.Violations)
	a.Recommendations = recommendations(a, in)
	return a
}

// Score is 100 minus the severity weights of the violations, floored at 0.
func Score(violations []domain.ComplianceViolation) float64 {
	score := 100.0
	for _, v := range violations {
		score -= severityWeights[v.Severity]
	}
	return max(score, 0)
}

// Level maps violations and score to a compliance level.
func Level(violations []domain.ComplianceViolation, score float64) domain.ComplianceLevel {
	highest := HighestSeverity(violations)
	switch {
	case highest == domain.SeverityCritical:
		return domain.LevelNonCompliant
	case highest == domain.SeverityHigh || score < 60:
		return domain.LevelMajorIssues
	case score < 80:
		return domain.LevelMinorIssues
	case score < 95:
		return domain.LevelRequiresReview
	}
	return domain.LevelCompliant
}

// HighestSeverity returns the most severe violation level, Low when there are none.
func HighestSeverity(violations []domain.ComplianceViolation) domain.Severity {
	highest := domain.SeverityLow
	for _, v := range violations {
		if v.Severity.Rank() > highest.Rank() {
			highest = v.Severity
		}
	}
	return highest
}

var industryRecommendations = map[domain.Industry]string{
	domain.IndustryTechnology:           "Confirm data processing terms, software licensing and IP ownership are clearly defined.",
	domain.IndustryProfessionalServices: "Check limitation of liability against your professional indemnity insurance cover.",
	domain.IndustryFinance:              "Ensure FCA conduct rules and financial promotion requirements are reflected in the contract.",
	domain.IndustryRetail:               "Review consumer-facing terms against the Consumer Rights Act 2015.",
	domain.IndustryHealthcare:           "Verify that patient data handling meets special category data requirements under UK GDPR.",
	domain.IndustryConstruction:         "Confirm CDM 2015 duty holders and payment terms under the Construction Act are set out.",
	domain.IndustryHospitality:          "Check licensing, food safety and allergen responsibilities are allocated.",
	domain.IndustryCreative:             "Make sure copyright ownership and moral rights waivers are addressed explicitly.",
}

var sizeRecommendations = map[domain.CompanySize]string{
	domain.SizeMicro:  "As a micro business, prefer standard templates and seek fixed-fee legal advice for non-standard terms.",
	domain.SizeSmall:  "As a small business, prioritise liability caps and payment terms when negotiating.",
	domain.SizeMedium: "Make sure contract approval processes scale with the number of agreements you sign.",
	domain.SizeLarge:  "Align the contract with internal compliance policies and approval workflows.",
}

var contractRecommendations = map[domain.ContractType]string{
	domain.ContractServiceAgreement:   "Define service levels, deliverables and acceptance criteria clearly.",
	domain.ContractEmployment:         "Check the contract provides a written statement of particulars from day one.",
	domain.ContractNDA:                "Keep the definition of confidential information and its duration proportionate.",
	domain.ContractSupplierAgreement:  "Confirm quality standards, delivery obligations and supply chain liability.",
	domain.ContractConsultancy:        "Review IR35 status and make sure the consultant is not treated as an employee.",
	domain.ContractPartnership:        "Set out profit sharing, decision making and exit arrangements.",
	domain.ContractLease:              "Check repair obligations, break clauses and rent review terms.",
	domain.ContractTermsAndConditions: "Make sure terms are transparent and prominent for consumers.",
}

func recommendations(a *domain.ComplianceAssessment, in Input) []string {
	recs := []string{}
	if a.HasSeverity(domain.SeverityCritical) {
		recs = append(recs, "URGENT: Resolve critical compliance violations before signing this contract.")
	}
	if a.HasSeverity(domain.SeverityHigh) {
		recs = append(recs, "Obtain legal review of the high-severity issues before proceeding.")
	}
	if s, ok := industryRecommendations[in.Company.Industry]; ok {
		recs = append(recs, s)
	}
	if s, ok := sizeRecommendations[in.Company.Size]; ok {
		recs = append(recs, s)
	}
	if s, ok := contractRecommendations[in.ContractType]; ok {
		recs = append(recs, s)
	}
	return recs
}
