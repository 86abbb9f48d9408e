// Package decision turns finished assessments into stored records and
// decides which of them raise alerts.
package decision

import (
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/clauseguard/internal/domain"
)

// Processor builds assessment records and applies the alert policy.
type Processor struct {
	// AlertLevel is the lowest overall risk level that raises an alert.
	AlertLevel domain.Severity

	now func() time.Time
}

// NewProcessor creates a processor that alerts on High or Critical risk.
func NewProcessor() *Processor {
	return &Processor{
		AlertLevel: domain.SeverityHigh,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Input contains everything needed to build a record.
type Input struct {
	TenantID     string
	AssessmentID string
	ContractType domain.ContractType
	CompanyName  string
	InputHash    string
	Result       *domain.ContractRiskAssessment
}

// Process wraps an assessment result into a record, assigning an id when
// the caller has not reserved one.
func (p *Processor) Process(in Input) *domain.AssessmentRecord {
	id := in.AssessmentID
	if id == "" {
		id = uuid.New().String()
	}
	return &domain.AssessmentRecord{
		ID:           id,
		TenantID:     in.TenantID,
		ContractType: in.ContractType,
		CompanyName:  in.CompanyName,
		InputHash:    in.InputHash,
		Assessment:   in.Result,
		CreatedAt:    p.now(),
	}
}

// ShouldAlert reports whether the record's overall risk reaches the alert
// level or its compliance level is non-compliant.
func (p *Processor) ShouldAlert(rec *domain.AssessmentRecord) bool {
	if rec == nil || rec.Assessment == nil {
		return false
	}
	if rec.Assessment.RiskLevel.Rank() >= p.AlertLevel.Rank() {
		return true
	}
	c := rec.Assessment.Compliance
	return c != nil && c.OverallLevel == domain.LevelNonCompliant
}

// Event summarises a record for bus subscribers.
func Event(rec *domain.AssessmentRecord) domain.AssessmentEvent {
	ev := domain.AssessmentEvent{
		AssessmentID: rec.ID,
		ContractType: rec.ContractType,
	}
	if a := rec.Assessment; a != nil {
		ev.OverallScore = a.OverallScore
		ev.RiskLevel = a.RiskLevel
		ev.KeyConcerns = a.KeyConcerns
		if c := a.Compliance; c != nil {
			ev.ComplianceLevel = c.OverallLevel
			ev.ComplianceScore = c.OverallScore
		}
	}
	return ev
}

// Reasons lists the descriptions of High and Critical violations.
func Reasons(rec *domain.AssessmentRecord) []string {
	if rec == nil || rec.Assessment == nil || rec.Assessment.Compliance == nil {
		return nil
	}
	var reasons []string
	for _, v := range rec.Assessment.Compliance.Violations {
		if v.Severity.Rank() >= domain.SeverityHigh.Rank() && v.Description != "" {
			reasons = append(reasons, v.Description)
		}
	}
	return reasons
}
