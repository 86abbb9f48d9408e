// Package risk scores contract risk factors and aggregates them into a
// ContractRiskAssessment.
package risk

import (
	"fmt"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

// Input is the contract and context analyzed for risk.
type Input struct {
	Text         string
	Company      domain.Company
	ContractType domain.ContractType
	Value        *domain.Money
}

// Analyzer is one independent risk analysis over an Input.
type Analyzer struct {
	Name    string
	Analyze func(Input) []domain.RiskFactor
}

// Independent returns the analyzers that do not depend on compliance output,
// in the order their factors are reported.
func Independent() []Analyzer {
	return []Analyzer{
		{Name: "financial_exposure", Analyze: Financial},
		{Name: "operational_impact", Analyze: Operational},
		{Name: "termination", Analyze: Termination},
		{Name: "reputational", Analyze: Reputational},
		{Name: "confidentiality", Analyze: Confidentiality},
		{Name: "dispute_resolution", Analyze: Dispute},
	}
}

// estimatedRevenue is the assumed annual revenue per size tier, in GBP.
var estimatedRevenue = map[domain.CompanySize]float64{
	domain.SizeMicro:  500_000,
	domain.SizeSmall:  5_000_000,
	domain.SizeMedium: 25_000_000,
	domain.SizeLarge:  100_000_000,
}

// violationScores maps compliance severities to risk scores.
var violationScores = map[domain.Severity]float64{
	domain.SeverityLow:      3.0,
	domain.SeverityMedium:   5.5,
	domain.SeverityHigh:     8.0,
	domain.SeverityCritical: 9.5,
}

// Legal converts a compliance assessment into risk factors.
func Legal(c *domain.ComplianceAssessment) []domain.RiskFactor {
	if c == nil {
		return nil
	}
	var factors []domain.RiskFactor

	if overall := 10 - c.OverallScore/10; overall > 2.0 {
		factors = append(factors, factor(domain.RiskFactor{
			Category:    domain.CategoryLegalCompliance,
			Name:        "Regulatory Compliance Gaps",
			Score:       overall,
			Severity:    severityFor(clamp(overall)),
			Description: fmt.Sprintf("Compliance score of %.0f/100 with %d violation(s)", c.OverallScore, len(c.Violations)),
			Impact:      "Unenforceable terms, regulatory fines or claims from counterparties",
			Mitigation:  "Address the compliance violations identified before signing",
			Confidence:  0.9,
		}))
	}

	for _, v := range c.Violations {
		impact := "May be unenforceable or expose the business to regulatory action"
		if v.LegalReference != "" {
			impact = fmt.Sprintf("Breach of %s", v.LegalReference)
		}
		mitigation := v.SuggestedFix
		if mitigation == "" {
			mitigation = fmt.Sprintf("Review the contract against %s", v.RuleTitle)
		}
		factors = append(factors, factor(domain.RiskFactor{
			Category:        domain.CategoryLegalCompliance,
			Name:            v.RuleTitle,
			Score:           violationScores[v.Severity],
			Severity:        v.Severity,
			Description:     v.Description,
			Impact:          impact,
			Mitigation:      mitigation,
			Confidence:      0.85,
			MatchedPatterns: []string{v.RuleID},
		}))
	}
	return factors
}

// Financial scores value exposure, payment terms, penalties and indemnities.
func Financial(in Input) []domain.RiskFactor {
	var factors []domain.RiskFactor

	if in.Value.Positive() {
		revenue, ok := estimatedRevenue[in.Company.Size]
		if !ok {
			revenue = estimatedRevenue[domain.SizeSmall]
		}
		ratio := in.Value.Amount / revenue
		score := valueRatioScore(ratio)

		sev := domain.SeverityLow
		switch {
		case score >= 8:
			sev = domain.SeverityHigh
		case score >= 6:
			sev = domain.SeverityMedium
		}

		factors = append(factors, factor(domain.RiskFactor{
			Category:    domain.CategoryFinancialExposure,
			Name:        "Contract Value Exposure",
			Score:       score,
			Severity:    sev,
			Description: fmt.Sprintf("Contract value of %s %.0f is %.1f%% of estimated annual revenue", in.Value.CurrencyCode(), in.Value.Amount, ratio*100),
			Impact:      "A dispute or non-payment could materially affect cash flow",
			Mitigation:  "Consider staged payments, deposits or credit insurance",
			Confidence:  0.9,
		}))
	}

	if ids := matchAll(in.Text, paymentPatterns); len(ids) > 0 {
		factors = append(factors, factor(domain.RiskFactor{
			Category:        domain.CategoryFinancialExposure,
			Name:            "Extended Payment Terms",
			Score:           7.0,
			Severity:        domain.SeverityHigh,
			Description:     "Payment is deferred or conditional on completion",
			Impact:          "Working capital is tied up for an extended period",
			Mitigation:      "Negotiate 30-day payment terms or interim payments",
			Confidence:      0.8,
			MatchedPatterns: ids,
		}))
	}

	if ids := matchAll(in.Text, penaltyPatterns); len(ids) > 0 {
		score := 3.0 + 2.0*float64(len(ids))
		if score > 5.0 {
			sev := domain.SeverityMedium
			if score >= 7.0 {
				sev = domain.SeverityHigh
			}
			factors = append(factors, factor(domain.RiskFactor{
				Category:        domain.CategoryFinancialExposure,
				Name:            "Penalty Clauses",
				Score:           score,
				Severity:        sev,
				Description:     fmt.Sprintf("%d types of penalty or damages provision found", len(ids)),
				Impact:          "Performance shortfalls carry direct financial penalties",
				Mitigation:      "Cap penalties and make sure they are a genuine pre-estimate of loss",
				Confidence:      0.75,
				MatchedPatterns: ids,
			}))
		}
	}

	if ids := matchAll(in.Text, indemnityPatterns); len(ids) > 0 {
		factors = append(factors, factor(domain.RiskFactor{
			Category:        domain.CategoryFinancialExposure,
			Name:            "Broad Indemnity Obligations",
			Score:           8.0,
			Severity:        domain.SeverityHigh,
			Description:     "The contract contains wide-ranging indemnities",
			Impact:          "Potentially unlimited liability for the other party's losses",
			Mitigation:      "Limit indemnities to third-party claims caused by your breach and cap them",
			Confidence:      0.8,
			MatchedPatterns: ids,
		}))
	}

	return factors
}

func valueRatioScore(ratio float64) float64 {
	switch {
	case ratio < 0.01:
		return 2.0
	case ratio < 0.05:
		return 4.0
	case ratio < 0.10:
		return 6.0
	case ratio < 0.20:
		return 8.0
	}
	return 9.5
}

// Operational scores performance complexity, resourcing and timeline pressure.
func Operational(in Input) []domain.RiskFactor {
	var factors []domain.RiskFactor

	if ids := matchAll(in.Text, performancePatterns); len(ids) > 0 {
		if score := 3.0 + 1.5*float64(len(ids)); score > 6.0 {
			factors = append(factors, factor(domain.RiskFactor{
				Category:        domain.CategoryPerformance,
				Name:            "Complex Performance Obligations",
				Score:           score,
				Severity:        domain.SeverityMedium,
				Description:     fmt.Sprintf("%d types of service level or performance metric found", len(ids)),
				Impact:          "Missing targets may trigger service credits or termination rights",
				Mitigation:      "Make sure targets are measurable and achievable with current resources",
				Confidence:      0.7,
				MatchedPatterns: ids,
			}))
		}
	}

	if ids := matchAll(in.Text, resourcePatterns); len(ids) > 0 {
		score, sev := 5.5, domain.SeverityMedium
		if in.Company.Size == domain.SizeMicro {
			score, sev = 7.0, domain.SeverityHigh
		}
		factors = append(factors, factor(domain.RiskFactor{
			Category:        domain.CategoryOperationalImpact,
			Name:            "Resource Intensive Commitments",
			Score:           score,
			Severity:        sev,
			Description:     "The contract requires dedicated or round-the-clock resources",
			Impact:          "Staff may be diverted from other customers and revenue",
			Mitigation:      "Price dedicated resources explicitly and limit exclusivity",
			Confidence:      0.7,
			MatchedPatterns: ids,
		}))
	}

	if ids := matchAll(in.Text, timelinePatterns); len(ids) > 0 {
		factors = append(factors, factor(domain.RiskFactor{
			Category:        domain.CategoryOperationalImpact,
			Name:            "Tight Delivery Timeline",
			Score:           6.5,
			Severity:        domain.SeverityMedium,
			Description:     "The contract imposes urgent or time-critical delivery",
			Impact:          "Late delivery may be treated as a breach",
			Mitigation:      "Agree realistic timescales and relief for delays you do not cause",
			Confidence:      0.7,
			MatchedPatterns: ids,
		}))
	}

	return factors
}

// Termination scores one-sided or costly termination terms.
func Termination(in Input) []domain.RiskFactor {
	ids := matchAll(in.Text, terminationPatterns)
	score := 3.0 + 1.5*float64(len(ids))
	if score <= 4.0 {
		return nil
	}
	sev := domain.SeverityMedium
	if score > 7.0 {
		sev = domain.SeverityHigh
	}
	return []domain.RiskFactor{factor(domain.RiskFactor{
		Category:        domain.CategoryTermination,
		Name:            "Unfavourable Termination Terms",
		Score:           score,
		Severity:        sev,
		Description:     fmt.Sprintf("%d termination risk indicator(s) found", len(ids)),
		Impact:          "The contract could end abruptly or at a cost to your business",
		Mitigation:      "Negotiate mutual termination rights with reasonable notice",
		Confidence:      0.8,
		MatchedPatterns: ids,
	})}
}

// Reputational scores publicity and public disclosure terms.
func Reputational(in Input) []domain.RiskFactor {
	ids := matchAll(in.Text, publicityPatterns)
	score := 2.0 + 2.0*float64(len(ids))
	if score <= 4.0 {
		return nil
	}
	return []domain.RiskFactor{factor(domain.RiskFactor{
		Category:        domain.CategoryReputational,
		Name:            "Publicity and Disclosure Exposure",
		Score:           score,
		Severity:        domain.SeverityMedium,
		Description:     "The other party may publicise the relationship or its details",
		Impact:          "Your brand could be associated with outcomes you do not control",
		Mitigation:      "Require prior written approval for any publicity",
		Confidence:      0.7,
		MatchedPatterns: ids,
	})}
}

// Confidentiality flags missing confidentiality and, for technology and
// creative businesses, missing IP ownership terms.
func Confidentiality(in Input) []domain.RiskFactor {
	var factors []domain.RiskFactor

	if !confidentialityPattern.re.MatchString(in.Text) {
		factors = append(factors, factor(domain.RiskFactor{
			Category:    domain.CategoryConfidentiality,
			Name:        "Missing Confidentiality Provisions",
			Score:       6.0,
			Severity:    domain.SeverityMedium,
			Description: "The contract does not mention confidentiality",
			Impact:      "Sensitive business information may be disclosed without remedy",
			Mitigation:  "Add mutual confidentiality obligations",
			Confidence:  0.85,
		}))
	}

	if in.Company.Industry == domain.IndustryTechnology || in.Company.Industry == domain.IndustryCreative {
		if _, ok := matchFirst(in.Text, ipPatterns); !ok {
			factors = append(factors, factor(domain.RiskFactor{
				Category:    domain.CategoryConfidentiality,
				Name:        "Unclear IP Ownership",
				Score:       7.0,
				Severity:    domain.SeverityHigh,
				Description: "The contract does not say who owns intellectual property",
				Impact:      "You may lose rights to work you create or rely on",
				Mitigation:  "State who owns pre-existing and newly created intellectual property",
				Confidence:  0.8,
			}))
		}
	}

	return factors
}

// Dispute flags a missing dispute mechanism and foreign governing jurisdictions.
func Dispute(in Input) []domain.RiskFactor {
	var factors []domain.RiskFactor

	if _, ok := matchFirst(in.Text, disputePatterns); !ok {
		factors = append(factors, factor(domain.RiskFactor{
			Category:    domain.CategoryDisputeResolution,
			Name:        "No Dispute Resolution Mechanism",
			Score:       6.5,
			Severity:    domain.SeverityMedium,
			Description: "The contract does not say how disputes are resolved",
			Impact:      "Disagreements may go straight to costly litigation",
			Mitigation:  "Add an escalation, mediation and jurisdiction clause",
			Confidence:  0.8,
		}))
	}

	if id, ok := matchFirst(in.Text, foreignJurisdictions); ok {
		factors = append(factors, factor(domain.RiskFactor{
			Category:        domain.CategoryDisputeResolution,
			Name:            "Foreign Jurisdiction Risk",
			Score:           7.5,
			Severity:        domain.SeverityHigh,
			Description:     fmt.Sprintf("Disputes may be heard under %s law or courts", jurisdictionNames[id]),
			Impact:          "Litigating abroad is expensive and unfamiliar",
			Mitigation:      "Negotiate English law and the courts of England and Wales",
			Confidence:      0.9,
			MatchedPatterns: []string{id},
		}))
	}

	return factors
}

// factor normalises bounds on a factor.
func factor(f domain.RiskFactor) domain.RiskFactor {
	f.Score = clamp(f.Score)
	f.Confidence = min(max(f.Confidence, 0), 1)
	return f
}

func clamp(score float64) float64 {
	return min(max(score, 1), 10)
}

// severityFor maps a 1-10 score to a severity using the overall risk thresholds.
func severityFor(score float64) domain.Severity {
	switch {
	case score >= 8.5:
		return domain.SeverityCritical
	case score >= 7.0:
		return domain.SeverityHigh
	case score >= 4.5:
		return domain.SeverityMedium
	}
	return domain.SeverityLow
}
