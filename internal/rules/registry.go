package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

// DefinitionSource lists a tenant's stored rule definitions.
type DefinitionSource interface {
	ListRuleDefinitions(ctx context.Context, tenantID string) ([]*domain.RuleDefinition, error)
}

// Registry hands out per-tenant catalogs: the base catalog extended with
// the tenant's stored definitions. Catalogs are built on first use and
// kept until Reload or Invalidate.
type Registry struct {
	base   *Catalog
	source DefinitionSource

	mu      sync.RWMutex
	tenants map[string]*Catalog
}

// NewRegistry creates a registry over base. A nil source serves base to every tenant.
func NewRegistry(base *Catalog, source DefinitionSource) *Registry {
	return &Registry{
		base:    base,
		source:  source,
		tenants: make(map[string]*Catalog),
	}
}

// Base returns the shared catalog.
func (r *Registry) Base() *Catalog {
	return r.base
}

// For returns the tenant's catalog, building it if needed.
func (r *Registry) For(ctx context.Context, tenantID string) (*Catalog, error) {
	if r.source == nil || tenantID == "" {
		return r.base, nil
	}

	r.mu.RLock()
	c, ok := r.tenants[tenantID]
	r.mu.RUnlock()
	if ok {
		return c, nil
	}

	return r.Reload(ctx, tenantID)
}

// Reload rebuilds the tenant's catalog from its stored definitions.
// On error the previous catalog stays in place.
func (r *Registry) Reload(ctx context.Context, tenantID string) (*Catalog, error) {
	if r.source == nil {
		return r.base, nil
	}

	defs, err := r.source.ListRuleDefinitions(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for tenant %s: %w", tenantID, err)
	}

	c := r.base
	if len(defs) > 0 {
		c, err = r.base.Extend(defs)
		if err != nil {
			return nil, fmt.Errorf("failed to build catalog for tenant %s: %w", tenantID, err)
		}
	}

	r.mu.Lock()
	r.tenants[tenantID] = c
	r.mu.Unlock()

	return c, nil
}

// Invalidate drops the tenant's cached catalog.
func (r *Registry) Invalidate(tenantID string) {
	r.mu.Lock()
	delete(r.tenants, tenantID)
	r.mu.Unlock()
}
