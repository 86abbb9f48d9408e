// Package rules provides the compliance rule catalog, the per-rule validator
// and the compliance aggregation engine.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/google/cel-go/cel"
	"github.com/opensource-finance/clauseguard/internal/clause"
	"github.com/opensource-finance/clauseguard/internal/domain"
)

var (
	ErrDuplicateRule     = errors.New("duplicate rule id")
	ErrUnknownValidator  = errors.New("unknown validator")
	ErrInvalidExpression = errors.New("invalid rule expression")
	ErrInvalidRule       = errors.New("invalid rule")
)

// Rule is a catalog entry with its pattern and expression compiled.
type Rule struct {
	domain.ComplianceRule

	pattern *regexp.Regexp
	program cel.Program
}

// CatalogBuilder collects rules prior to Build. It is not safe for concurrent use.
type CatalogBuilder struct {
	rules []domain.ComplianceRule
	index map[string]int
}

// NewCatalogBuilder returns an empty builder.
func NewCatalogBuilder() *CatalogBuilder {
	return &CatalogBuilder{index: make(map[string]int)}
}

// Register adds a rule. A second rule with the same ID is rejected with ErrDuplicateRule.
func (b *CatalogBuilder) Register(rule domain.ComplianceRule) error {
	if rule.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidRule)
	}
	if _, ok := b.index[rule.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
	}
	b.index[rule.ID] = len(b.rules)
	b.rules = append(b.rules, rule)
	return nil
}

// Replace registers rule, overwriting any earlier rule with the same ID in place.
func (b *CatalogBuilder) Replace(rule domain.ComplianceRule) error {
	if i, ok := b.index[rule.ID]; ok {
		b.rules[i] = rule
		return nil
	}
	return b.Register(rule)
}

// Build compiles every pattern and expression and returns an immutable catalog.
func (b *CatalogBuilder) Build() (*Catalog, error) {
	detector := clause.New()
	env, err := newExprEnv(detector)
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		rules:    make([]*Rule, 0, len(b.rules)),
		index:    make(map[string]int, len(b.rules)),
		detector: detector,
		env:      env,
	}
	for _, def := range b.rules {
		r, err := c.compile(def)
		if err != nil {
			return nil, err
		}
		c.index[r.ID] = len(c.rules)
		c.rules = append(c.rules, r)
	}

	defs := make([]domain.ComplianceRule, len(c.rules))
	for i, r := range c.rules {
		defs[i] = r.ComplianceRule
	}
	raw, err := json.Marshal(defs)
	if err != nil {
		return nil, fmt.Errorf("fingerprint rules: %w", err)
	}
	sum := sha256.Sum256(raw)
	c.fingerprint = hex.EncodeToString(sum[:])
	return c, nil
}

// Catalog is an immutable, ordered set of compiled rules.
// It is safe for concurrent use.
type Catalog struct {
	rules       []*Rule
	index       map[string]int
	detector    *clause.Detector
	env         *exprEnv
	fingerprint string
}

func (c *Catalog) compile(def domain.ComplianceRule) (*Rule, error) {
	if !def.Validator.Valid() {
		return nil, fmt.Errorf("%w: rule %s: %q", ErrUnknownValidator, def.ID, def.Validator)
	}
	if def.Severity != "" && !def.Severity.Valid() {
		return nil, fmt.Errorf("%w: rule %s: severity %q", ErrInvalidRule, def.ID, def.Severity)
	}
	if len(def.Frameworks) == 0 && def.Category != "" {
		def.Frameworks = []domain.Framework{def.Category}
	}

	r := &Rule{ComplianceRule: def}

	if def.Pattern != "" {
		re, err := regexp.Compile("(?im)" + def.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %s: pattern: %v", ErrInvalidRule, def.ID, err)
		}
		r.pattern = re
	}

	if def.Expression != "" {
		program, err := c.env.compile(def.ID, def.Expression)
		if err != nil {
			return nil, err
		}
		r.program = program
	}

	return r, nil
}

// Len returns the number of rules, active or not.
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Rules returns every rule in registration order.
func (c *Catalog) Rules() []*Rule {
	return slices.Clone(c.rules)
}

// Get returns the rule with the given ID.
func (c *Catalog) Get(id string) (*Rule, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.rules[i], true
}

// Fingerprint is a digest of the ordered rule definitions. Two catalogs
// built from the same definitions share a fingerprint.
func (c *Catalog) Fingerprint() string {
	return c.fingerprint
}

// Detector returns the clause detector shared by this catalog's rules.
func (c *Catalog) Detector() *clause.Detector {
	return c.detector
}

// Extend returns a new catalog with defs appended.
// A definition whose ID already exists replaces that rule in place.
func (c *Catalog) Extend(defs []*domain.RuleDefinition) (*Catalog, error) {
	b := NewCatalogBuilder()
	for _, r := range c.rules {
		if err := b.Register(r.ComplianceRule); err != nil {
			return nil, err
		}
	}
	for _, def := range defs {
		if def == nil {
			continue
		}
		if err := b.Replace(def.ComplianceRule); err != nil {
			return nil, err
		}
	}
	return b.Build()
}

// Applicable returns the active rules that apply to the given context, in
// registration order. When frameworks are given, only framework membership is
// checked. Otherwise industry, company size and contract type are each checked
// when the rule restricts them. Jurisdiction is not filtered: every rule is UK-wide.
func (c *Catalog) Applicable(company domain.Company, contractType domain.ContractType, frameworks ...domain.Framework) []*Rule {
	var out []*Rule
	for _, r := range c.rules {
		if !r.Active {
			continue
		}
		if len(frameworks) > 0 {
			if sharesFramework(r.Frameworks, frameworks) {
				out = append(out, r)
			}
			continue
		}
		if len(r.Industries) > 0 && !slices.Contains(r.Industries, company.Industry) {
			continue
		}
		if len(r.CompanySizes) > 0 && !slices.Contains(r.CompanySizes, company.Size) {
			continue
		}
		if len(r.ContractTypes) > 0 && !slices.Contains(r.ContractTypes, contractType) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func sharesFramework(have, want []domain.Framework) bool {
	for _, f := range want {
		if slices.Contains(have, f) {
			return true
		}
	}
	return false
}
