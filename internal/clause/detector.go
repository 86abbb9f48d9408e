// Package clause detects canonical contract clauses in plain text.
package clause

import (
	"regexp"
	"strings"
)

// Well-known clause identifiers.
const (
	DataProtection       = "data_protection_clause"
	NoticePeriod         = "notice_period"
	HealthAndSafety      = "health_and_safety_duties"
	DeathInjuryExclusion = "death_injury_exclusion"
	ExcessiveNonCompete  = "excessive_non_compete"
	PriceFixing          = "price_fixing"
	MarketSharing        = "market_sharing"
)

var patterns = map[string]*regexp.Regexp{
	DataProtection: regexp.MustCompile(`(?im)\bdata\s+protection\b|\b(?:uk\s+)?gdpr\b|\bpersonal\s+data\b`),
	NoticePeriod: regexp.MustCompile(`(?im)\bnotice\s+period\b|\b\d+\s+(?:days?|weeks?|months?)['’]?\s+(?:prior\s+)?(?:written\s+)?notice\b|\bnotice\s+of\s+(?:at\s+least\s+|not\s+less\s+than\s+)?(?:\d+|one|two|three|four|six|twelve)\b`),
	HealthAndSafety: regexp.MustCompile(`(?im)\bhealth\s*(?:and|&)\s*safety\b`),
	DeathInjuryExclusion: regexp.MustCompile(`(?im)(?:not\s+(?:be\s+)?liable|exclude[sd]?\s+(?:all\s+|any\s+)?liability|no\s+liability)[^.]{0,80}?\b(?:death|personal\s+injury)\b`),
	ExcessiveNonCompete: regexp.MustCompile(`(?im)(?:non[-\s]?compete|not\s+(?:to\s+)?compete|restrictive\s+covenant|restraint\s+of\s+trade)[^.]{0,200}?(?:\b(?:[3-9]|[1-9]\d+)\s+years?\b|\b(?:three|four|five|ten)\s+years?\b|\bworldwide\b|\banywhere\s+in\s+the\s+world\b)`),
	PriceFixing: regexp.MustCompile(`(?im)\bprice[-\s]fixing\b|\bfix(?:ed|ing)?\s+(?:the\s+)?(?:selling\s+)?prices?\b|\bagree(?:s|d)?\s+(?:to\s+)?(?:set|fix|maintain)\s+(?:minimum\s+|resale\s+)?prices?\b|\bminimum\s+resale\s+price\b`),
	MarketSharing: regexp.MustCompile(`(?im)\bmarket[-\s]sharing\b|\ballocat(?:e|ion\s+of)\s+(?:customers|territories|markets)\b|\bdivide\s+(?:the\s+)?(?:markets?|territor(?:y|ies)|customers)\b|\bnot\s+to\s+(?:sell|compete)\s+in\s+(?:each\s+other'?s|the\s+other\s+party'?s)\s+territor`),
}

// Detector reports presence of canonical clauses.
// The zero value is not usable; call New.
type Detector struct {
	patterns map[string]*regexp.Regexp
}

// New returns a Detector over the built-in pattern table.
func New() *Detector {
	return &Detector{patterns: patterns}
}

// Has reports whether the clause identified by id appears in text.
// Unknown identifiers fall back to a case-insensitive substring test.
func (d *Detector) Has(text, id string) bool {
	re, ok := d.patterns[id]
	if !ok {
		return strings.Contains(strings.ToLower(text), strings.ToLower(id))
	}
	if id != DeathInjuryExclusion {
		return re.MatchString(text)
	}

	// "Nothing in this agreement limits liability for death or personal injury"
	// is the statutory carve-out, not an exclusion.
	for _, loc := range re.FindAllStringIndex(text, -1) {
		if !carveOut(sentenceAt(text, loc[0])) {
			return true
		}
	}
	return false
}

// Matches returns the ids from the given list that are present in text, in input order.
func (d *Detector) Matches(text string, ids ...string) []string {
	var found []string
	for _, id := range ids {
		if d.Has(text, id) {
			found = append(found, id)
		}
	}
	return found
}

var (
	carveOutLead = regexp.MustCompile(`(?i)^nothing\s+in\b`)
	clauseBreak  = regexp.MustCompile(`(?i),\s*(?:and|but)\b|\b(?:but|however|whereas|otherwise)\b`)
)

// sentenceAt returns the text between the start of the sentence holding pos
// and pos itself.
func sentenceAt(text string, pos int) string {
	start := strings.LastIndexAny(text[:pos], ".!?;\n")
	return strings.TrimSpace(text[start+1 : pos])
}

// carveOut reports whether a "Nothing in ..." lead governs the match that
// follows prefix. A coordinating break starts a new clause the lead does not
// reach.
func carveOut(prefix string) bool {
	return carveOutLead.MatchString(prefix) && !clauseBreak.MatchString(prefix)
}
