package risk

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

// categoryWeights weight each category in the overall score.
var categoryWeights = map[domain.RiskCategory]float64{
	domain.CategoryLegalCompliance:   0.25,
	domain.CategoryFinancialExposure: 0.25,
	domain.CategoryOperationalImpact: 0.15,
	domain.CategoryTermination:       0.15,
	domain.CategoryPerformance:       0.10,
	domain.CategoryDisputeResolution: 0.05,
	domain.CategoryReputational:      0.03,
	domain.CategoryConfidentiality:   0.02,
}

const (
	unknownCategoryWeight = 0.05
	baselineScore         = 2.0
	zeroWeightScore       = 3.0
	defaultConfidence     = 0.5
	maxKeyConcerns        = 5
	maxHighActions        = 3
	maxPriorityActions    = 7
)

func weightOf(c domain.RiskCategory) float64 {
	if w, ok := categoryWeights[c]; ok {
		return w
	}
	return unknownCategoryWeight
}

// Aggregate combines factors into a ContractRiskAssessment. Timestamp,
// Duration and Compliance are left for the caller.
func Aggregate(factors []domain.RiskFactor, company domain.Company, contractType domain.ContractType) *domain.ContractRiskAssessment {
	if factors == nil {
		factors = []domain.RiskFactor{}
	}

	a := &domain.ContractRiskAssessment{
		Factors:        factors,
		CategoryScores: CategoryScores(factors),
	}
	a.OverallScore = OverallScore(factors)
	a.RiskLevel = Level(factors, a.OverallScore)
	a.Confidence = Confidence(factors)

	ranked := rank(factors)
	a.KeyConcerns = keyConcerns(ranked)
	a.PriorityActions = priorityActions(ranked)
	a.SMERisks = smeRisks(factors)
	a.IndustryRisks = industryRisks(company.Industry)
	a.Summary = summary(a, company, contractType)
	return a
}

// OverallScore is the weighted, confidence-adjusted mean factor score,
// rounded to one decimal and clamped to [1,10].
func OverallScore(factors []domain.RiskFactor) float64 {
	if len(factors) == 0 {
		return baselineScore
	}
	var num, den float64
	for _, f := range factors {
		w := weightOf(f.Category) * f.Confidence
		num += f.Score * w
		den += w
	}
	if den == 0 {
		return zeroWeightScore
	}
	return clamp(math.Round(num/den*10) / 10)
}

// Level is Critical when any factor is critical, otherwise it follows the score.
func Level(factors []domain.RiskFactor, score float64) domain.Severity {
	for _, f := range factors {
		if f.Severity == domain.SeverityCritical {
			return domain.SeverityCritical
		}
	}
	return severityFor(score)
}

// CategoryScores returns the mean score per category, 1.0 for empty categories.
func CategoryScores(factors []domain.RiskFactor) map[domain.RiskCategory]float64 {
	sums := make(map[domain.RiskCategory]float64)
	counts := make(map[domain.RiskCategory]int)
	for _, f := range factors {
		sums[f.Category] += f.Score
		counts[f.Category]++
	}

	scores := make(map[domain.RiskCategory]float64, len(domain.AllRiskCategories))
	for _, c := range domain.AllRiskCategories {
		scores[c] = 1.0
	}
	for c, n := range counts {
		scores[c] = sums[c] / float64(n)
	}
	return scores
}

// Confidence is the factor confidence weighted by score/10, 0.5 with no factors.
func Confidence(factors []domain.RiskFactor) float64 {
	var num, den float64
	for _, f := range factors {
		w := f.Score / 10
		num += f.Confidence * w
		den += w
	}
	if den == 0 {
		return defaultConfidence
	}
	return min(max(num/den, 0), 1)
}

// rank orders factors by descending score, keeping input order for ties.
func rank(factors []domain.RiskFactor) []domain.RiskFactor {
	ranked := slices.Clone(factors)
	slices.SortStableFunc(ranked, func(a, b domain.RiskFactor) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranked
}

func keyConcerns(ranked []domain.RiskFactor) []string {
	concerns := []string{}
	for _, f := range ranked {
		if len(concerns) == maxKeyConcerns {
			break
		}
		if f.Severity == domain.SeverityHigh || f.Severity == domain.SeverityCritical {
			concerns = append(concerns, fmt.Sprintf("%s: %s", f.Name, f.Impact))
		}
	}
	return concerns
}

func priorityActions(ranked []domain.RiskFactor) []string {
	actions := []string{}
	for _, f := range ranked {
		if f.Severity == domain.SeverityCritical {
			actions = append(actions, "URGENT: "+f.Mitigation)
		}
	}

	high := 0
	for _, f := range ranked {
		if high == maxHighActions {
			break
		}
		if f.Severity == domain.SeverityHigh {
			actions = append(actions, "HIGH: "+f.Mitigation)
			high++
		}
	}

	for _, f := range ranked {
		if f.Score > 7.0 {
			actions = append(actions, "Have a qualified solicitor review this contract before signing.")
			break
		}
	}

	if len(actions) > maxPriorityActions {
		actions = actions[:maxPriorityActions]
	}
	return actions
}

var smeCategoryNotes = []struct {
	category domain.RiskCategory
	note     string
}{
	{domain.CategoryFinancialExposure, "Financial commitments in this contract are significant for a smaller business; review cash flow before signing."},
	{domain.CategoryLegalCompliance, "Compliance gaps can lead to fines that are disproportionate for an SME; fix them before signing."},
	{domain.CategoryOperationalImpact, "Delivery obligations may stretch limited staff; check capacity before committing."},
	{domain.CategoryTermination, "Termination terms could leave the business without notice or with exit costs."},
	{domain.CategoryDisputeResolution, "Resolving disputes could be costly; SMEs should favour mediation and local courts."},
}

func smeRisks(factors []domain.RiskFactor) []string {
	present := make(map[domain.RiskCategory]bool)
	for _, f := range factors {
		present[f.Category] = true
	}
	notes := []string{}
	for _, n := range smeCategoryNotes {
		if present[n.category] {
			notes = append(notes, n.note)
		}
	}
	return notes
}

var industryNotes = map[domain.Industry][]string{
	domain.IndustryTechnology: {
		"Check software licensing, source code ownership and data processing terms.",
		"Make sure service levels reflect what your infrastructure can deliver.",
	},
	domain.IndustryProfessionalServices: {
		"Check liability caps against your professional indemnity insurance.",
		"Make sure the scope of advice is clearly limited.",
	},
	domain.IndustryFinance: {
		"Confirm the contract reflects FCA conduct and outsourcing requirements.",
		"Check client money and data security obligations.",
	},
}

func industryRisks(industry domain.Industry) []string {
	return append([]string{}, industryNotes[industry]...)
}

func summary(a *domain.ContractRiskAssessment, company domain.Company, contractType domain.ContractType) string {
	serious := 0
	for _, f := range a.Factors {
		if f.Severity == domain.SeverityHigh || f.Severity == domain.SeverityCritical {
			serious++
		}
	}

	subject := "This contract"
	if contractType != "" {
		subject = "This " + contractType.Label()
	}

	s := fmt.Sprintf("%s presents %s risk for %s, with an overall score of %.1f/10. %d high or critical risk factor(s) were identified.",
		subject, a.RiskLevel, company.DisplayName(), a.OverallScore, serious)

	if a.OverallScore > 7.0 && company.Size.IsSmallBusiness() {
		s += " Given the size of the business, this contract could have a disproportionate impact; seek legal advice before signing."
	}
	return s
}
