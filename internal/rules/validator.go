package rules

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/clauseguard/internal/clause"
	"github.com/opensource-finance/clauseguard/internal/domain"
)

// Input is the contract and context a rule is evaluated against.
type Input struct {
	Text         string
	Company      domain.Company
	ContractType domain.ContractType
	Value        *domain.Money
}

// Validator evaluates a single rule against an Input.
type Validator struct {
	detector *clause.Detector
}

// NewValidator returns a validator that detects clauses with d.
func NewValidator(d *clause.Detector) *Validator {
	return &Validator{detector: d}
}

// Validate returns at most one violation for rule. Checks run in a fixed
// order and stop at the first failure: pattern, required clauses, prohibited
// clauses, custom validator, expression.
func (v *Validator) Validate(rule *Rule, in Input) (*domain.ComplianceViolation, error) {
	if rule.pattern != nil && !rule.pattern.MatchString(in.Text) {
		return violation(rule, domain.SeverityMedium,
			fmt.Sprintf("Required pattern not found for %s", strings.ToLower(rule.Title)),
			fmt.Sprintf("Add wording that addresses %s.", strings.ToLower(rule.Title)),
			false), nil
	}

	for _, id := range rule.RequiredClauses {
		if !v.detector.Has(in.Text, id) {
			return violation(rule, domain.SeverityHigh,
				fmt.Sprintf("Required clause missing: %s", clauseLabel(id)),
				fmt.Sprintf("Insert a %s clause.", clauseLabel(id)),
				true), nil
		}
	}

	if found := v.detector.Matches(in.Text, rule.ProhibitedClauses...); len(found) > 0 {
		id := found[0]
		return violation(rule, domain.SeverityCritical,
			fmt.Sprintf("Prohibited clause found: %s", clauseLabel(id)),
			fmt.Sprintf("Remove or redraft the %s wording.", clauseLabel(id)),
			false), nil
	}

	if rule.Validator != domain.ValidatorNone {
		viol, err := v.custom(rule, in)
		if err != nil || viol != nil {
			return viol, err
		}
	}

	if rule.program != nil {
		ok, err := evalBool(rule.program, in)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		if !ok {
			sev := rule.Severity
			if sev == "" {
				sev = domain.SeverityMedium
			}
			return violation(rule, sev, rule.Description, "", false), nil
		}
	}

	return nil, nil
}

func violation(rule *Rule, sev domain.Severity, desc, fix string, autoFix bool) *domain.ComplianceViolation {
	return &domain.ComplianceViolation{
		RuleID:         rule.ID,
		RuleTitle:      rule.Title,
		Severity:       sev,
		Description:    desc,
		SuggestedFix:   fix,
		LegalReference: rule.LegalReference,
		AutoFixable:    autoFix,
	}
}

func clauseLabel(id string) string {
	id = strings.TrimSuffix(id, "_clause")
	return strings.ReplaceAll(id, "_", " ")
}
