package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

func printRisk(w io.Writer, a *domain.ContractRiskAssessment) {
	if a == nil {
		return
	}
	fmt.Fprintf(w, "RISK: %.1f/10 (%s)\n", a.OverallScore, a.RiskLevel.Title())
	fmt.Fprintf(w, "  %s\n", a.Summary)

	if len(a.Factors) > 0 {
		fmt.Fprintln(w, "\nFactors:")
		for _, f := range a.Factors {
			fmt.Fprintf(w, "  [%-8s] %-32s %4.1f  %s\n", f.Severity.Title(), f.Name, f.Score, f.Category)
		}
	}
	printList(w, "Key concerns", a.KeyConcerns)
	printList(w, "Priority actions", a.PriorityActions)
	printList(w, "SME risks", a.SMERisks)
	printList(w, "Industry risks", a.IndustryRisks)
	printList(w, "Warnings", a.Warnings)
	fmt.Fprintln(w)
}

func printCompliance(w io.Writer, c *domain.ComplianceAssessment) {
	if c == nil {
		return
	}
	fmt.Fprintf(w, "COMPLIANCE: %s (%.0f/100, %d rules)\n",
		strings.ReplaceAll(string(c.OverallLevel), "_", " "), c.OverallScore, c.RulesEvaluated)

	if len(c.Violations) > 0 {
		fmt.Fprintln(w, "\nViolations:")
		for _, v := range c.Violations {
			fmt.Fprintf(w, "  [%-8s] %s: %s\n", v.Severity.Title(), v.RuleTitle, v.Description)
			if v.SuggestedFix != "" {
				fmt.Fprintf(w, "             fix: %s\n", v.SuggestedFix)
			}
			if v.LegalReference != "" {
				fmt.Fprintf(w, "             ref: %s\n", v.LegalReference)
			}
		}
	}
	printList(w, "Warnings", c.Warnings)
	printList(w, "Recommendations", c.Recommendations)
	fmt.Fprintln(w)
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, s := range items {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}
