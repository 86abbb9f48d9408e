package repository

// Schema definitions for the ClauseGuard database.
// Compatible with both SQLite and PostgreSQL.

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    contract_type TEXT NOT NULL,
    company_name TEXT,
    input_hash TEXT NOT NULL,
    overall_score REAL NOT NULL,
    risk_level TEXT NOT NULL,
    compliance_level TEXT NOT NULL,
    compliance_score REAL NOT NULL,
    risk TEXT NOT NULL,
    compliance TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_tenant ON assessments(tenant_id);
CREATE INDEX IF NOT EXISTS idx_assessments_hash ON assessments(tenant_id, input_hash);
CREATE INDEX IF NOT EXISTS idx_assessments_created ON assessments(tenant_id, created_at);
`

// schemaRuleDefinitions stores tenant-authored compliance rules.
// The definition column holds the rule as JSON.
const schemaRuleDefinitions = `
CREATE TABLE IF NOT EXISTS rule_definitions (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    version TEXT NOT NULL,
    title TEXT NOT NULL,
    category TEXT NOT NULL,
    definition TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_rule_definitions_tenant ON rule_definitions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rule_definitions_active ON rule_definitions(tenant_id, active);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaAssessments,
		schemaRuleDefinitions,
	}
}
