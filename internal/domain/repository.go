// Package domain defines the core interfaces and types for ClauseGuard.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Assessment operations
	SaveAssessment(ctx context.Context, tenantID string, rec *AssessmentRecord) error
	GetAssessment(ctx context.Context, tenantID string, id string) (*AssessmentRecord, error)
	FindAssessmentByHash(ctx context.Context, tenantID string, inputHash string) (*AssessmentRecord, error)
	ListAssessments(ctx context.Context, tenantID string, limit int) ([]*AssessmentRecord, error)

	// Tenant rule definitions
	SaveRuleDefinition(ctx context.Context, tenantID string, def *RuleDefinition) error
	GetRuleDefinition(ctx context.Context, tenantID string, ruleID string) (*RuleDefinition, error)
	ListRuleDefinitions(ctx context.Context, tenantID string) ([]*RuleDefinition, error)
	DeleteRuleDefinition(ctx context.Context, tenantID string, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `mapstructure:"driver"`

	// SQLite specific
	SQLitePath string `mapstructure:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDB       string `mapstructure:"postgres_db"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}
