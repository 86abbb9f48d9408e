// Package repository provides SQL persistence for assessments and tenant rules.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

const defaultListLimit = 50

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

func requireTenant(tenantID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	return nil
}

// SaveAssessment stores an assessment record with tenant isolation.
func (r *SQLRepository) SaveAssessment(ctx context.Context, tenantID string, rec *domain.AssessmentRecord) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if rec == nil || rec.ID == "" || rec.Assessment == nil {
		return fmt.Errorf("%w: assessment id and result are required", ErrInvalidInput)
	}

	compliance := rec.Assessment.Compliance
	if compliance == nil {
		compliance = &domain.ComplianceAssessment{}
	}

	// Compliance is stored in its own column; strip it from the risk document.
	riskOnly := *rec.Assessment
	riskOnly.Compliance = nil

	riskJSON, err := json.Marshal(&riskOnly)
	if err != nil {
		return fmt.Errorf("failed to encode risk assessment: %w", err)
	}
	complianceJSON, err := json.Marshal(compliance)
	if err != nil {
		return fmt.Errorf("failed to encode compliance assessment: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	query := `
		INSERT INTO assessments (
			id, tenant_id, contract_type, company_name, input_hash,
			overall_score, risk_level, compliance_level, compliance_score,
			risk, compliance, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, tenantID, string(rec.ContractType), rec.CompanyName, rec.InputHash,
		rec.Assessment.OverallScore, string(rec.Assessment.RiskLevel),
		string(compliance.OverallLevel), compliance.OverallScore,
		string(riskJSON), string(complianceJSON), createdAt,
	)
	return err
}

const assessmentColumns = `id, tenant_id, contract_type, company_name, input_hash, risk, compliance, created_at`

// GetAssessment retrieves an assessment by ID with tenant isolation.
func (r *SQLRepository) GetAssessment(ctx context.Context, tenantID string, id string) (*domain.AssessmentRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE tenant_id = ? AND id = ?
	`
	return scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id))
}

// FindAssessmentByHash returns the most recent assessment of identical input.
func (r *SQLRepository) FindAssessmentByHash(ctx context.Context, tenantID string, inputHash string) (*domain.AssessmentRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE tenant_id = ? AND input_hash = ?
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanAssessment(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, inputHash))
}

// ListAssessments returns the most recent assessments for a tenant, newest first.
func (r *SQLRepository) ListAssessments(ctx context.Context, tenantID string, limit int) ([]*domain.AssessmentRecord, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + assessmentColumns + `
		FROM assessments
		WHERE tenant_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.AssessmentRecord
	for rows.Next() {
		rec, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAssessment(row scanner) (*domain.AssessmentRecord, error) {
	var rec domain.AssessmentRecord
	var contractType, riskJSON, complianceJSON string
	var companyName sql.NullString

	err := row.Scan(
		&rec.ID, &rec.TenantID, &contractType, &companyName, &rec.InputHash,
		&riskJSON, &complianceJSON, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.ContractType = domain.ContractType(contractType)
	rec.CompanyName = companyName.String

	var assessment domain.ContractRiskAssessment
	if err := json.Unmarshal([]byte(riskJSON), &assessment); err != nil {
		return nil, fmt.Errorf("failed to parse risk assessment %s: %w", rec.ID, err)
	}
	var compliance domain.ComplianceAssessment
	if err := json.Unmarshal([]byte(complianceJSON), &compliance); err != nil {
		return nil, fmt.Errorf("failed to parse compliance assessment %s: %w", rec.ID, err)
	}
	assessment.Compliance = &compliance
	rec.Assessment = &assessment

	return &rec, nil
}

// SaveRuleDefinition stores a tenant rule definition. Saving the same id and
// version again updates it in place.
func (r *SQLRepository) SaveRuleDefinition(ctx context.Context, tenantID string, def *domain.RuleDefinition) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}
	if def == nil || def.ID == "" {
		return fmt.Errorf("%w: rule id is required", ErrInvalidInput)
	}

	version := def.Version
	if version == "" {
		version = "1.0.0"
	}

	definition, err := json.Marshal(def.ComplianceRule)
	if err != nil {
		return fmt.Errorf("failed to encode rule %s: %w", def.ID, err)
	}

	active := 0
	if def.Active {
		active = 1
	}

	now := r.now()

	query := `
		INSERT INTO rule_definitions (
			id, tenant_id, version, title, category, definition, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			definition = excluded.definition,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		def.ID, tenantID, version, def.Title, string(def.Category),
		string(definition), active, now, now,
	)
	return err
}

const ruleColumns = `tenant_id, version, definition, active`

// GetRuleDefinition returns the most recently updated active version of a rule.
func (r *SQLRepository) GetRuleDefinition(ctx context.Context, tenantID string, ruleID string) (*domain.RuleDefinition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + `
		FROM rule_definitions
		WHERE tenant_id = ? AND id = ? AND active = 1
		ORDER BY updated_at DESC, version DESC
		LIMIT 1
	`
	return scanRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
}

// ListRuleDefinitions returns the latest active version of each tenant rule,
// ordered by first creation so catalogs built from it are stable.
func (r *SQLRepository) ListRuleDefinitions(ctx context.Context, tenantID string) ([]*domain.RuleDefinition, error) {
	if err := requireTenant(tenantID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + `
		FROM rule_definitions
		WHERE tenant_id = ? AND active = 1
		ORDER BY created_at, id, updated_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*domain.RuleDefinition
	pos := make(map[string]int)
	for rows.Next() {
		def, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		if i, ok := pos[def.ID]; ok {
			defs[i] = def
			continue
		}
		pos[def.ID] = len(defs)
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func scanRule(row scanner) (*domain.RuleDefinition, error) {
	var def domain.RuleDefinition
	var definition string
	var active int

	err := row.Scan(&def.TenantID, &def.Version, &definition, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(definition), &def.ComplianceRule); err != nil {
		return nil, fmt.Errorf("failed to parse rule definition: %w", err)
	}
	def.Active = active == 1
	return &def, nil
}

// DeleteRuleDefinition soft-deletes every version of a rule by setting active = 0.
func (r *SQLRepository) DeleteRuleDefinition(ctx context.Context, tenantID string, ruleID string) error {
	if err := requireTenant(tenantID); err != nil {
		return err
	}

	query := `
		UPDATE rule_definitions
		SET active = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ? AND active = 1
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), r.now(), tenantID, ruleID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
