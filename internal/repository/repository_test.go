package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "clauseguard-test.db"),
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRecord(id, hash string, createdAt time.Time) *domain.AssessmentRecord {
	return &domain.AssessmentRecord{
		ID:           id,
		ContractType: domain.ContractServiceAgreement,
		CompanyName:  "Acme Ltd",
		InputHash:    hash,
		CreatedAt:    createdAt,
		Assessment: &domain.ContractRiskAssessment{
			OverallScore: 6.4,
			RiskLevel:    domain.SeverityMedium,
			KeyConcerns:  []string{"Broad Indemnity Obligations: unlimited liability"},
			CategoryScores: map[domain.RiskCategory]float64{
				domain.CategoryFinancialExposure: 8.0,
			},
			Compliance: &domain.ComplianceAssessment{
				OverallLevel: domain.LevelMajorIssues,
				OverallScore: 55,
				RiskLevel:    domain.SeverityHigh,
				Violations: []domain.ComplianceViolation{
					{RuleID: "gdpr_lawful_basis", Severity: domain.SeverityHigh},
				},
				RulesEvaluated: 12,
			},
		},
	}
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenantID := "tenant-001"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetAssessment", func(t *testing.T) {
		rec := testRecord("asm-001", "hash-a", base)
		if err := repo.SaveAssessment(ctx, tenantID, rec); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		got, err := repo.GetAssessment(ctx, tenantID, rec.ID)
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		if got.TenantID != tenantID {
			t.Errorf("expected TenantID %s, got %s", tenantID, got.TenantID)
		}
		if got.ContractType != domain.ContractServiceAgreement {
			t.Errorf("expected contract type %s, got %s", domain.ContractServiceAgreement, got.ContractType)
		}
		if got.Assessment.OverallScore != 6.4 {
			t.Errorf("expected OverallScore 6.4, got %.1f", got.Assessment.OverallScore)
		}
		if got.Assessment.CategoryScores[domain.CategoryFinancialExposure] != 8.0 {
			t.Errorf("expected financial category score 8.0, got %v", got.Assessment.CategoryScores)
		}
		if got.Assessment.Compliance == nil {
			t.Fatal("expected compliance assessment to be attached")
		}
		if got.Assessment.Compliance.OverallLevel != domain.LevelMajorIssues {
			t.Errorf("expected level %s, got %s", domain.LevelMajorIssues, got.Assessment.Compliance.OverallLevel)
		}
		if len(got.Assessment.Compliance.Violations) != 1 {
			t.Errorf("expected 1 violation, got %d", len(got.Assessment.Compliance.Violations))
		}
	})

	t.Run("SaveDoesNotMutateInput", func(t *testing.T) {
		rec := testRecord("asm-keep", "hash-keep", base)
		if err := repo.SaveAssessment(ctx, tenantID, rec); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}
		if rec.Assessment.Compliance == nil {
			t.Error("SaveAssessment should not strip compliance from the caller's record")
		}
	})

	t.Run("FindAssessmentByHash", func(t *testing.T) {
		older := testRecord("asm-old", "hash-b", base.Add(time.Minute))
		newer := testRecord("asm-new", "hash-b", base.Add(2*time.Minute))
		for _, rec := range []*domain.AssessmentRecord{older, newer} {
			if err := repo.SaveAssessment(ctx, tenantID, rec); err != nil {
				t.Fatalf("SaveAssessment failed: %v", err)
			}
		}

		got, err := repo.FindAssessmentByHash(ctx, tenantID, "hash-b")
		if err != nil {
			t.Fatalf("FindAssessmentByHash failed: %v", err)
		}
		if got.ID != "asm-new" {
			t.Errorf("expected latest assessment asm-new, got %s", got.ID)
		}

		if _, err := repo.FindAssessmentByHash(ctx, tenantID, "hash-missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListAssessments", func(t *testing.T) {
		records, err := repo.ListAssessments(ctx, tenantID, 2)
		if err != nil {
			t.Fatalf("ListAssessments failed: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].ID != "asm-new" {
			t.Errorf("expected newest first, got %s", records[0].ID)
		}

		all, err := repo.ListAssessments(ctx, tenantID, 0)
		if err != nil {
			t.Fatalf("ListAssessments failed: %v", err)
		}
		if len(all) != 4 {
			t.Errorf("expected 4 records with default limit, got %d", len(all))
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		otherTenant := "tenant-002"

		if _, err := repo.GetAssessment(ctx, otherTenant, "asm-001"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for other tenant, got %v", err)
		}

		records, err := repo.ListAssessments(ctx, otherTenant, 10)
		if err != nil {
			t.Fatalf("ListAssessments failed: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected 0 records for other tenant, got %d", len(records))
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if err := repo.SaveAssessment(ctx, "", testRecord("x", "y", base)); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := repo.GetAssessment(ctx, "", "asm-001"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if _, err := repo.ListRuleDefinitions(ctx, ""); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("RejectsIncompleteAssessment", func(t *testing.T) {
		err := repo.SaveAssessment(ctx, tenantID, &domain.AssessmentRecord{ID: "asm-empty"})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetAssessment(ctx, tenantID, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := repo.GetRuleDefinition(ctx, tenantID, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := repo.DeleteRuleDefinition(ctx, tenantID, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRuleDefinitions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	tenantID := "tenant-001"

	def := &domain.RuleDefinition{
		ComplianceRule: domain.ComplianceRule{
			ID:              "tenant_insurance_clause",
			Title:           "Insurance clause",
			Description:     "Contracts must state the insurance cover held",
			Category:        domain.FrameworkCommercialLaw,
			ContractTypes:   []domain.ContractType{domain.ContractServiceAgreement},
			Expression:      `text.contains("insurance")`,
			Severity:        domain.SeverityHigh,
			RequiredClauses: []string{"data_protection_clause"},
			Active:          true,
		},
		Version: "1.0.0",
	}

	t.Run("SaveAndGet", func(t *testing.T) {
		if err := repo.SaveRuleDefinition(ctx, tenantID, def); err != nil {
			t.Fatalf("SaveRuleDefinition failed: %v", err)
		}

		got, err := repo.GetRuleDefinition(ctx, tenantID, def.ID)
		if err != nil {
			t.Fatalf("GetRuleDefinition failed: %v", err)
		}
		if got.Title != def.Title {
			t.Errorf("expected title %q, got %q", def.Title, got.Title)
		}
		if got.Expression != def.Expression {
			t.Errorf("expected expression %q, got %q", def.Expression, got.Expression)
		}
		if got.TenantID != tenantID {
			t.Errorf("expected TenantID %s, got %s", tenantID, got.TenantID)
		}
		if !got.Active {
			t.Error("expected rule to be active")
		}
		if len(got.ContractTypes) != 1 || got.ContractTypes[0] != domain.ContractServiceAgreement {
			t.Errorf("unexpected contract types: %v", got.ContractTypes)
		}
	})

	t.Run("UpsertSameVersion", func(t *testing.T) {
		updated := *def
		updated.Title = "Insurance cover clause"
		if err := repo.SaveRuleDefinition(ctx, tenantID, &updated); err != nil {
			t.Fatalf("SaveRuleDefinition failed: %v", err)
		}

		defs, err := repo.ListRuleDefinitions(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListRuleDefinitions failed: %v", err)
		}
		if len(defs) != 1 {
			t.Fatalf("expected 1 definition after upsert, got %d", len(defs))
		}
		if defs[0].Title != "Insurance cover clause" {
			t.Errorf("expected updated title, got %q", defs[0].Title)
		}
	})

	t.Run("ListKeepsCreationOrder", func(t *testing.T) {
		second := &domain.RuleDefinition{
			ComplianceRule: domain.ComplianceRule{
				ID:       "tenant_signature_block",
				Title:    "Signature block",
				Category: domain.FrameworkCompanyLaw,
				Pattern:  `signed\s+by`,
				Active:   true,
			},
		}
		if err := repo.SaveRuleDefinition(ctx, tenantID, second); err != nil {
			t.Fatalf("SaveRuleDefinition failed: %v", err)
		}

		defs, err := repo.ListRuleDefinitions(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListRuleDefinitions failed: %v", err)
		}
		if len(defs) != 2 {
			t.Fatalf("expected 2 definitions, got %d", len(defs))
		}
		if defs[0].ID != def.ID || defs[1].ID != second.ID {
			t.Errorf("unexpected order: %s, %s", defs[0].ID, defs[1].ID)
		}
		if defs[1].Version != "1.0.0" {
			t.Errorf("expected default version 1.0.0, got %s", defs[1].Version)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		defs, err := repo.ListRuleDefinitions(ctx, "tenant-002")
		if err != nil {
			t.Fatalf("ListRuleDefinitions failed: %v", err)
		}
		if len(defs) != 0 {
			t.Errorf("expected 0 definitions for other tenant, got %d", len(defs))
		}
	})

	t.Run("SoftDelete", func(t *testing.T) {
		if err := repo.DeleteRuleDefinition(ctx, tenantID, def.ID); err != nil {
			t.Fatalf("DeleteRuleDefinition failed: %v", err)
		}
		if _, err := repo.GetRuleDefinition(ctx, tenantID, def.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}
		if err := repo.DeleteRuleDefinition(ctx, tenantID, def.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}

		defs, err := repo.ListRuleDefinitions(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListRuleDefinitions failed: %v", err)
		}
		if len(defs) != 1 {
			t.Errorf("expected 1 active definition, got %d", len(defs))
		}
	})

	t.Run("RequiresRuleID", func(t *testing.T) {
		err := repo.SaveRuleDefinition(ctx, tenantID, &domain.RuleDefinition{})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "mysql",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver   string
		input    string
		expected string
	}{
		{"sqlite", "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"postgres", "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"postgres", "INSERT INTO t VALUES (?, ?, ?)", "INSERT INTO t VALUES ($1, $2, $3)"},
	}

	for _, tt := range tests {
		repo := &SQLRepository{driver: tt.driver}
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%s, %q) = %q, want %q", tt.driver, tt.input, result, tt.expected)
		}
	}
}
