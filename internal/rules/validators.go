package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

var (
	lawfulBasisRe    = regexp.MustCompile(`(?i)\b(?:consent|contract|legal\s+obligation|vital\s+interests?|public\s+task|legitimate\s+interests?)\b`)
	broadExclusionRe = regexp.MustCompile(`(?i)\b(?:all|any|entire|total)\s+liability\b|\bliability\s+whatsoever\b`)
	qualifierRe      = regexp.MustCompile(`(?i)\bsubject\s+to\b|\bexcept\s+for\b|\bsave\s+for\b`)
	authorityRe      = regexp.MustCompile(`(?i)\bduly\s+authori[sz]ed\b|\bacting\s+within\s+(?:\w+\s+)?authority\b|\bboard\s+resolution\b`)
	fcaRe            = regexp.MustCompile(`(?i)\bFCA\b|\bfinancial\s+conduct\s+authority\b|\bfirm\s+reference\s+number\b`)
	confidentialRe   = regexp.MustCompile(`(?i)confidential[^.]{0,200}?\b(\d+)\s+years?\b`)
	euLawRe          = regexp.MustCompile(`(?i)\bEU\s+(?:directive|regulation)\b|\b(?:directive|regulation)\s+\(?(?:EU|EC|EEC)\)?\s*(?:no\.?\s*)?\d+|\beuropean\s+(?:union\s+)?(?:directive|regulation)\b`)
	retainedRe       = regexp.MustCompile(`(?i)\bretained\b`)
)

// unfairTerms are phrases the CMA treats as likely unfair in consumer terms.
var unfairTerms = []string{
	"no refund",
	"final sale",
	"buyer beware",
	"caveat emptor",
	"sold as seen",
	"no returns",
	"non-refundable",
}

// maxConfidentialityYears is the longest confidentiality term accepted without review.
const maxConfidentialityYears = 10

// custom dispatches to the validator selected by rule.Validator.
func (v *Validator) custom(rule *Rule, in Input) (*domain.ComplianceViolation, error) {
	switch rule.Validator {
	case domain.ValidatorLawfulBasis:
		return lawfulBasis(rule, in), nil
	case domain.ValidatorReasonableness:
		return reasonableness(rule, in), nil
	case domain.ValidatorConsumerFairness:
		return consumerFairness(rule, in), nil
	case domain.ValidatorDirectorAuthority:
		return directorAuthority(rule, in), nil
	case domain.ValidatorFCAAuthorization:
		return fcaAuthorization(rule, in), nil
	case domain.ValidatorConfidentialityDuration:
		return confidentialityDuration(rule, in)
	case domain.ValidatorEULawReference:
		return euLawReference(rule, in), nil
	case domain.ValidatorNone:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: rule %s: %q", ErrUnknownValidator, rule.ID, rule.Validator)
}

func lawfulBasis(rule *Rule, in Input) *domain.ComplianceViolation {
	if lawfulBasisRe.MatchString(in.Text) {
		return nil
	}
	return violation(rule, domain.SeverityHigh,
		"No lawful basis for processing personal data is stated",
		"State the UK GDPR Article 6 lawful basis relied on, such as performance of a contract or legitimate interests.",
		false)
}

func reasonableness(rule *Rule, in Input) *domain.ComplianceViolation {
	if !broadExclusionRe.MatchString(in.Text) || qualifierRe.MatchString(in.Text) {
		return nil
	}
	return violation(rule, domain.SeverityHigh,
		"Broad liability exclusion is unlikely to satisfy the reasonableness test",
		"Qualify the exclusion, for example \"except for liability which cannot be excluded by law\", and cap rather than exclude liability.",
		false)
}

func consumerFairness(rule *Rule, in Input) *domain.ComplianceViolation {
	lower := strings.ToLower(in.Text)
	for _, term := range unfairTerms {
		if strings.Contains(lower, term) {
			return violation(rule, domain.SeverityMedium,
				fmt.Sprintf("Potentially unfair consumer term: %q", term),
				"Remove terms that restrict statutory consumer rights to refunds, repair or replacement.",
				false)
		}
	}
	return nil
}

func directorAuthority(rule *Rule, in Input) *domain.ComplianceViolation {
	if !in.Company.EntityType.IsLimitedCompany() || authorityRe.MatchString(in.Text) {
		return nil
	}
	return violation(rule, domain.SeverityMedium,
		"No confirmation that the signatory is authorised to bind the company",
		"Add a statement that the signatory is duly authorised, or reference the relevant board resolution.",
		false)
}

func fcaAuthorization(rule *Rule, in Input) *domain.ComplianceViolation {
	if in.Company.Industry != domain.IndustryFinance || fcaRe.MatchString(in.Text) {
		return nil
	}
	return violation(rule, domain.SeverityCritical,
		"No reference to FCA authorisation for a regulated financial services activity",
		"State the firm's FCA authorisation status and Firm Reference Number.",
		false)
}

func confidentialityDuration(rule *Rule, in Input) (*domain.ComplianceViolation, error) {
	m := confidentialRe.FindStringSubmatch(in.Text)
	if m == nil {
		return nil, nil
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("rule %s: confidentiality term %q: %w", rule.ID, m[1], err)
	}
	if years <= maxConfidentialityYears {
		return nil, nil
	}
	return violation(rule, domain.SeverityMedium,
		fmt.Sprintf("Confidentiality obligations last %d years", years),
		fmt.Sprintf("Limit confidentiality obligations to %d years or fewer unless trade secrets are involved.", maxConfidentialityYears),
		false), nil
}

func euLawReference(rule *Rule, in Input) *domain.ComplianceViolation {
	if !euLawRe.MatchString(in.Text) || retainedRe.MatchString(in.Text) {
		return nil
	}
	return violation(rule, domain.SeverityLow,
		"References EU legislation without identifying it as retained or assimilated UK law",
		"Refer to the retained UK version of the legislation.",
		false)
}
