package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/opensource-finance/clauseguard/internal/api"
	"github.com/opensource-finance/clauseguard/internal/assess"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/rules"
)

// ruleFilter narrows a rule listing. Empty fields do not filter.
type ruleFilter struct {
	Industry     domain.Industry
	Size         domain.CompanySize
	EntityType   domain.LegalEntityType
	ContractType domain.ContractType
	Frameworks   []domain.Framework
}

func (f ruleFilter) empty() bool {
	return f.Industry == "" && f.Size == "" && f.ContractType == "" && len(f.Frameworks) == 0
}

// engine is either the in-process pipeline or a remote server.
type engine interface {
	Validate(ctx context.Context, req assess.Request) (*domain.ComplianceAssessment, error)
	Assess(ctx context.Context, req assess.Request) (*api.AssessResponse, error)
	Rules(ctx context.Context, f ruleFilter) ([]domain.ComplianceRule, error)
}

func newEngine(opts *rootOptions) (engine, error) {
	if opts.Server != "" {
		return &remoteEngine{
			baseURL: strings.TrimRight(opts.Server, "/"),
			tenant:  opts.Tenant,
			client:  &http.Client{Timeout: opts.Timeout},
		}, nil
	}
	catalog, err := rules.DefaultCatalog()
	if err != nil {
		return nil, fmt.Errorf("failed to build rule catalog: %w", err)
	}
	return &localEngine{service: assess.New(catalog)}, nil
}

type localEngine struct {
	service *assess.Service
}

func (e *localEngine) Validate(ctx context.Context, req assess.Request) (*domain.ComplianceAssessment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return e.service.ValidateContract(ctx, req), nil
}

func (e *localEngine) Assess(ctx context.Context, req assess.Request) (*api.AssessResponse, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	result, err := e.service.AssessContractRisk(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &api.AssessResponse{Compliance: result.Compliance}
	risk := *result
	risk.Compliance = nil
	resp.Risk = &risk
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = Version
	return resp, nil
}

func (e *localEngine) Rules(_ context.Context, f ruleFilter) ([]domain.ComplianceRule, error) {
	catalog := e.service.Catalog()
	var selected []*rules.Rule
	if f.empty() {
		selected = catalog.Rules()
	} else {
		company := domain.Company{Industry: f.Industry, Size: f.Size, EntityType: f.EntityType}
		selected = catalog.Applicable(company, f.ContractType, f.Frameworks...)
	}
	out := make([]domain.ComplianceRule, 0, len(selected))
	for _, r := range selected {
		out = append(out, r.ComplianceRule)
	}
	return out, nil
}

type remoteEngine struct {
	baseURL string
	tenant  string
	client  *http.Client
}

func (e *remoteEngine) Validate(ctx context.Context, req assess.Request) (*domain.ComplianceAssessment, error) {
	var out domain.ComplianceAssessment
	if err := e.do(ctx, http.MethodPost, "/validate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *remoteEngine) Assess(ctx context.Context, req assess.Request) (*api.AssessResponse, error) {
	var out api.AssessResponse
	if err := e.do(ctx, http.MethodPost, "/assess", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *remoteEngine) Rules(ctx context.Context, f ruleFilter) ([]domain.ComplianceRule, error) {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("industry", string(f.Industry))
	set("size", string(f.Size))
	set("entityType", string(f.EntityType))
	set("contractType", string(f.ContractType))
	if len(f.Frameworks) > 0 {
		names := make([]string, len(f.Frameworks))
		for i, fw := range f.Frameworks {
			names[i] = string(fw)
		}
		q.Set("framework", strings.Join(names, ","))
	}

	path := "/rules"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out api.RuleListResponse
	if err := e.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Rules, nil
}

func (e *remoteEngine) health(ctx context.Context) error {
	return e.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (e *remoteEngine) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, e.baseURL+path, reader)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(api.TenantIDHeader, e.tenant)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
