package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/clauseguard/internal/domain"
)

// ErrTenantRequired is returned when a cache call omits the tenant.
var ErrTenantRequired = errors.New("tenantID is required")

const assessmentPrefix = "assessment:"

type byteStore interface {
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error
}

// getAssessment decodes a cached assessment. A corrupt entry counts as a miss.
func getAssessment(ctx context.Context, s byteStore, tenantID, inputHash string) (*domain.AssessmentRecord, error) {
	data, err := s.Get(ctx, tenantID, assessmentPrefix+inputHash)
	if err != nil || data == nil {
		return nil, err
	}

	var rec domain.AssessmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil
	}
	return &rec, nil
}

func setAssessment(ctx context.Context, s byteStore, tenantID, inputHash string, rec *domain.AssessmentRecord, ttl time.Duration) error {
	if rec == nil {
		return fmt.Errorf("cannot cache nil assessment for %s", inputHash)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}
	return s.Set(ctx, tenantID, assessmentPrefix+inputHash, data, ttl)
}
