package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	defs  map[string][]*domain.RuleDefinition
	calls int
	err   error
}

func (s *stubSource) ListRuleDefinitions(ctx context.Context, tenantID string) ([]*domain.RuleDefinition, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.defs[tenantID], nil
}

func tenantRule(id string) *domain.RuleDefinition {
	return &domain.RuleDefinition{
		ComplianceRule: domain.ComplianceRule{
			ID:         id,
			Title:      "Insurance clause",
			Category:   domain.FrameworkCommercialLaw,
			Expression: `text.contains("insurance")`,
			Active:     true,
		},
	}
}

func TestRegistry(t *testing.T) {
	base := MustDefaultCatalog()
	src := &stubSource{defs: map[string][]*domain.RuleDefinition{
		"tenant-a": {tenantRule("tenant_insurance")},
	}}
	reg := NewRegistry(base, src)
	ctx := context.Background()

	t.Run("extends tenant catalog", func(t *testing.T) {
		c, err := reg.For(ctx, "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, base.Len()+1, c.Len())
		_, ok := c.Get("tenant_insurance")
		assert.True(t, ok)
	})

	t.Run("caches built catalog", func(t *testing.T) {
		calls := src.calls
		_, err := reg.For(ctx, "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, calls, src.calls)
	})

	t.Run("tenant without definitions gets base", func(t *testing.T) {
		c, err := reg.For(ctx, "tenant-b")
		require.NoError(t, err)
		assert.Same(t, base, c)
	})

	t.Run("reload picks up new definitions", func(t *testing.T) {
		src.defs["tenant-b"] = []*domain.RuleDefinition{tenantRule("tenant_b_rule")}
		c, err := reg.Reload(ctx, "tenant-b")
		require.NoError(t, err)
		_, ok := c.Get("tenant_b_rule")
		assert.True(t, ok)
	})

	t.Run("failed reload keeps previous catalog", func(t *testing.T) {
		src.err = errors.New("db down")
		defer func() { src.err = nil }()

		_, err := reg.Reload(ctx, "tenant-a")
		require.Error(t, err)

		c, err := reg.For(ctx, "tenant-a")
		require.NoError(t, err)
		_, ok := c.Get("tenant_insurance")
		assert.True(t, ok)
	})

	t.Run("invalid definition is rejected", func(t *testing.T) {
		bad := tenantRule("bad")
		bad.Validator = "nonexistent"
		src.defs["tenant-c"] = []*domain.RuleDefinition{bad}

		_, err := reg.For(ctx, "tenant-c")
		assert.ErrorIs(t, err, ErrUnknownValidator)
	})

	t.Run("invalidate forces rebuild", func(t *testing.T) {
		calls := src.calls
		reg.Invalidate("tenant-a")
		_, err := reg.For(ctx, "tenant-a")
		require.NoError(t, err)
		assert.Equal(t, calls+1, src.calls)
	})
}

func TestRegistryWithoutSource(t *testing.T) {
	base := MustDefaultCatalog()
	reg := NewRegistry(base, nil)

	c, err := reg.For(context.Background(), "tenant-a")
	require.NoError(t, err)
	assert.Same(t, base, c)
}
