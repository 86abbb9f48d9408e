package risk

import (
	"regexp"
)

// pattern is a compiled risk indicator keyed by a stable identifier.
type pattern struct {
	id string
	re *regexp.Regexp
}

func p(id, expr string) pattern {
	return pattern{id: id, re: regexp.MustCompile(`(?im)` + expr)}
}

// matchAll returns the ids of every pattern in table that matches text, in table order.
func matchAll(text string, table []pattern) []string {
	var ids []string
	for _, pt := range table {
		if pt.re.MatchString(text) {
			ids = append(ids, pt.id)
		}
	}
	return ids
}

// matchFirst returns the id of the first pattern in table that matches text.
func matchFirst(text string, table []pattern) (string, bool) {
	for _, pt := range table {
		if pt.re.MatchString(text) {
			return pt.id, true
		}
	}
	return "", false
}

var paymentPatterns = []pattern{
	p("payment_180_days", `\b180\s+days\b`),
	p("payment_six_months", `\bpa(?:y|yment|yable)\b[^.]{0,60}?\b(?:6|six)\s+months\b`),
	p("payment_on_completion", `\bpayment\s+(?:only\s+)?(?:up)?on\s+completion\b`),
	p("no_payment_until", `\bno\s+payment\s+(?:shall\s+be\s+(?:due|made)\s+)?until\b`),
}

var penaltyPatterns = []pattern{
	p("penalty", `\bpenalt(?:y|ies)\b`),
	p("liquidated_damages", `\bliquidated\s+damages\b`),
	p("service_credits", `\bservice\s+credits?\b`),
	p("late_charges", `\blate\s+(?:delivery|payment|completion)\s+(?:fees?|charges?|interest)\b`),
	p("forfeiture", `\bforfeit(?:ure|s|ed)?\b`),
}

var indemnityPatterns = []pattern{
	p("indemnify_all", `\bindemnif(?:y|ies|ied)\b[^.]{0,80}?\b(?:any\s+and\s+all|all)\s+(?:losses|claims|liabilities|costs|damages)\b`),
	p("hold_harmless", `\bhold\s+harmless\b`),
	p("unlimited_indemnity", `\bunlimited\s+indemnit(?:y|ies)\b`),
}

var performancePatterns = []pattern{
	p("service_level", `\bservice\s+levels?\b|\bSLAs?\b`),
	p("kpi", `\bKPIs?\b|\bkey\s+performance\s+indicators?\b`),
	p("uptime", `\b\d+(?:\.\d+)?\s*%\s*(?:uptime|availability)\b`),
	p("response_time", `\bresponse\s+times?\b`),
	p("performance_targets", `\bperformance\s+(?:metrics?|targets?|standards?)\b`),
	p("milestones", `\bmilestones?\b`),
}

var resourcePatterns = []pattern{
	p("dedicated_team", `\bdedicated\s+(?:team|staff|personnel|resources?)\b`),
	p("round_the_clock", `\b24\s*/\s*7\b|\b24\s+hours\s+a\s+day\b|\bround[-\s]the[-\s]clock\b`),
	p("exclusive_resources", `\bexclusive(?:ly)?\s+(?:resources?|basis|services|supplier)\b`),
}

var timelinePatterns = []pattern{
	p("urgent_delivery", `\burgent(?:ly)?\b`),
	p("immediate_delivery", `\bimmediate(?:ly)?\s+(?:delivery|deliver|commencement|start)\b`),
	p("asap", `\bas\s+soon\s+as\s+possible\b|\bASAP\b`),
	p("time_of_essence", `\btime\s+(?:is|shall\s+be)\s+of\s+the\s+essence\b`),
	p("within_hours", `\bwithin\s+(?:24|48|72)\s+hours\b`),
}

var terminationPatterns = []pattern{
	p("immediate_termination", `\bimmediate\s+termination\b|\bterminate\b[^.]{0,60}?\b(?:immediately|with\s+immediate\s+effect)\b`),
	p("no_notice", `\bwithout\s+(?:prior\s+|any\s+)?notice\b|\bno\s+notice\b`),
	p("no_cause", `\bwithout\s+cause\b|\bfor\s+(?:any|no)\s+reason\b|\bfor\s+convenience\b`),
	p("termination_fee", `\b(?:early\s+)?termination\s+(?:fees?|charges?|payments?)\b`),
}

var publicityPatterns = []pattern{
	p("publicity", `\bpublicity\b`),
	p("press_release", `\bpress\s+releases?\b`),
	p("public_disclosure", `\bpublic(?:ly)?\s+(?:announce|disclos)\w*`),
	p("case_study", `\bcase\s+stud(?:y|ies)\b`),
	p("name_and_logo", `\b(?:name|logo)\s+(?:and|or)\s+(?:name|logo)\b|\buse\s+(?:of\s+)?(?:the\s+)?(?:client|customer)'?s?\s+(?:name|logo)\b`),
	p("testimonial", `\btestimonials?\b`),
}

var confidentialityPattern = p("confidential", `\bconfidential`)

var ipPatterns = []pattern{
	p("intellectual_property", `\bintellectual\s+property\b`),
	p("ip_rights", `\bIP\s+rights\b|\bIPRs?\b`),
	p("copyright", `\bcopyright\b`),
	p("deliverable_ownership", `\bownership\s+of\s+(?:the\s+|all\s+)?(?:deliverables|work\s+product|materials|software)\b`),
	p("assignment_of_rights", `\bassigns?\s+(?:all\s+)?(?:its\s+)?(?:right|title)\b`),
}

var disputePatterns = []pattern{
	p("dispute", `\bdisputes?\b`),
	p("arbitration", `\barbitrat(?:ion|or)\b`),
	p("mediation", `\bmediat(?:ion|or)\b`),
	p("adjudication", `\badjudicat(?:ion|or)\b`),
	p("jurisdiction", `\bjurisdiction\b`),
	p("courts", `\bcourts\s+of\b`),
}

// foreignJurisdictions is ordered; the first match wins.
var foreignJurisdictions = []pattern{
	p("new_york", `\bnew\s+york\b`),
	p("delaware", `\bdelaware\b`),
	p("california", `\bcalifornia\b`),
	p("singapore", `\bsingapore\b`),
}

var jurisdictionNames = map[string]string{
	"new_york":   "New York",
	"delaware":   "Delaware",
	"california": "California",
	"singapore":  "Singapore",
}
