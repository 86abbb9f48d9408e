package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/opensource-finance/clauseguard/internal/assess"
	"github.com/opensource-finance/clauseguard/internal/decision"
	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/opensource-finance/clauseguard/internal/metrics"
	"github.com/opensource-finance/clauseguard/internal/repository"
	"github.com/opensource-finance/clauseguard/internal/rules"
	"github.com/opensource-finance/clauseguard/internal/worker"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	bus      domain.EventBus
	service  *assess.Service
	registry *rules.Registry
	recorder *decision.Recorder
	metrics  *metrics.Metrics
	worker   *worker.Worker
	version  string
}

// NewHandler creates a new API handler.
func NewHandler(deps Dependencies) *Handler {
	registry := deps.Registry
	if registry == nil {
		registry = rules.NewRegistry(deps.Service.Catalog(), nil)
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = decision.NewRecorder(nil, deps.Repo, deps.Cache, deps.Bus, decision.WithMetrics(deps.Metrics))
	}
	return &Handler{
		repo:     deps.Repo,
		cache:    deps.Cache,
		bus:      deps.Bus,
		service:  deps.Service,
		registry: registry,
		recorder: recorder,
		metrics:  deps.Metrics,
		worker:   deps.Worker,
		version:  deps.Version,
	}
}

// AssessResponse is the response for POST /assess.
type AssessResponse struct {
	AssessmentID string                         `json:"assessmentId"`
	Risk         *domain.ContractRiskAssessment `json:"risk"`
	Compliance   *domain.ComplianceAssessment   `json:"compliance"`
	Cached       bool                           `json:"cached"`
	Metadata     struct {
		TraceID string `json:"traceId"`
		TotalMs int64  `json:"totalMs"`
		Version string `json:"version"`
	} `json:"metadata"`
}

// SubmitResponse is the response for POST /contracts.
type SubmitResponse struct {
	AssessmentID string `json:"assessmentId"`
	Status       string `json:"status"`
}

// RuleListResponse is the response for GET /rules.
type RuleListResponse struct {
	Rules []domain.ComplianceRule `json:"rules"`
	Count int                     `json:"count"`
}

// Validate handles POST /validate: compliance only, nothing persisted.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	svc, err := h.serviceFor(r, tenantID)
	if err != nil {
		slog.Error("failed to resolve tenant rules", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}

	result := svc.ValidateContract(ctx, req)
	h.metrics.ObserveCompliance("api", result)

	writeJSON(w, http.StatusOK, result)
}

// Assess handles POST /assess: compliance and risk, persisted and
// deduplicated by input hash under the tenant's current rules.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	svc, err := h.serviceFor(r, tenantID)
	if err != nil {
		slog.Error("failed to resolve tenant rules", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}

	// The key covers the tenant's rule catalog, so a rule change misses.
	hash := svc.InputHash(req)
	if rec, hit := h.recorder.Lookup(ctx, tenantID, hash); hit {
		writeJSON(w, http.StatusOK, h.assessResponse(r, rec, true, start))
		return
	}

	result, err := svc.AssessContractRisk(ctx, req)
	if err != nil {
		slog.Warn("assessment aborted", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "assessment aborted: "+err.Error())
		return
	}
	h.metrics.ObserveAssessment("api", result)

	rec := h.recorder.Processor().Process(decision.Input{
		TenantID:     tenantID,
		ContractType: req.ContractType,
		CompanyName:  req.Company.Name,
		InputHash:    hash,
		Result:       result,
	})
	if err := h.recorder.Record(ctx, rec); err != nil {
		slog.Error("failed to record assessment", "id", rec.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save assessment")
		return
	}

	writeJSON(w, http.StatusOK, h.assessResponse(r, rec, false, start))
}

func (h *Handler) assessResponse(r *http.Request, rec *domain.AssessmentRecord, cached bool, start time.Time) AssessResponse {
	resp := AssessResponse{AssessmentID: rec.ID, Cached: cached}
	if rec.Assessment != nil {
		risk := *rec.Assessment
		resp.Compliance = risk.Compliance
		risk.Compliance = nil
		resp.Risk = &risk
	}
	resp.Metadata.TraceID = GetTraceID(r.Context())
	resp.Metadata.TotalMs = time.Since(start).Milliseconds()
	resp.Metadata.Version = h.version
	return resp
}

// Submit handles POST /contracts: the contract is queued on the bus for the
// worker and the reserved assessment id is returned immediately.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}

	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	sub := domain.ContractSubmission{
		AssessmentID: uuid.New().String(),
		Text:         req.Text,
		Company:      req.Company,
		ContractType: req.ContractType,
		Value:        req.Value,
	}
	payload, err := json.Marshal(sub)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode submission")
		return
	}

	if err := h.bus.Publish(ctx, tenantID, domain.TopicContractSubmitted, payload); err != nil {
		slog.Error("failed to queue contract", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "failed to queue contract")
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{AssessmentID: sub.AssessmentID, Status: "queued"})
}

// GetAssessment handles GET /assessments/{id}.
func (h *Handler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	rec, err := h.repo.GetAssessment(r.Context(), GetTenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		writeRepoError(w, "assessment", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListAssessments handles GET /assessments?limit=n.
func (h *Handler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	recs, err := h.repo.ListAssessments(r.Context(), GetTenantID(r.Context()), limit)
	if err != nil {
		writeRepoError(w, "assessments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"assessments": recs,
		"count":       len(recs),
	})
}

// ListRules handles GET /rules. Filters: industry, size, entityType,
// contractType and framework (comma separated).
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.registry.For(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		slog.Error("failed to resolve tenant rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}

	q := r.URL.Query()
	company := domain.Company{
		Industry:   domain.Industry(q.Get("industry")),
		Size:       domain.CompanySize(q.Get("size")),
		EntityType: domain.LegalEntityType(q.Get("entityType")),
	}
	contractType := domain.ContractType(q.Get("contractType"))
	var frameworks []domain.Framework
	for _, f := range strings.Split(q.Get("framework"), ",") {
		if f = strings.TrimSpace(f); f == "" {
			continue
		}
		fw := domain.Framework(f)
		if !fw.Valid() {
			writeError(w, http.StatusBadRequest, "unknown framework: "+f)
			return
		}
		frameworks = append(frameworks, fw)
	}

	var selected []*rules.Rule
	if company.Industry == "" && company.Size == "" && contractType == "" && len(frameworks) == 0 {
		selected = catalog.Rules()
	} else {
		selected = catalog.Applicable(company, contractType, frameworks...)
	}

	resp := RuleListResponse{Rules: make([]domain.ComplianceRule, 0, len(selected))}
	for _, rule := range selected {
		resp.Rules = append(resp.Rules, rule.ComplianceRule)
	}
	resp.Count = len(resp.Rules)
	writeJSON(w, http.StatusOK, resp)
}

// GetRule handles GET /rules/{id}.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.registry.For(r.Context(), GetTenantID(r.Context()))
	if err != nil {
		slog.Error("failed to resolve tenant rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}

	id := chi.URLParam(r, "id")
	rule, ok := catalog.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "rule not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, rule.ComplianceRule)
}

// CreateRule handles POST /rules. The definition is compiled against the
// tenant's catalog before it is stored; it takes effect immediately.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	def := domain.RuleDefinition{ComplianceRule: domain.ComplianceRule{Active: true}}
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}
	def.TenantID = tenantID

	if def.ID == "" || def.Title == "" {
		writeError(w, http.StatusBadRequest, "id and title are required")
		return
	}

	catalog, err := h.registry.For(ctx, tenantID)
	if err != nil {
		slog.Error("failed to resolve tenant rules", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load rules")
		return
	}
	if _, err := catalog.Extend([]*domain.RuleDefinition{&def}); err != nil {
		writeError(w, http.StatusBadRequest, "invalid rule: "+err.Error())
		return
	}

	if err := h.repo.SaveRuleDefinition(ctx, tenantID, &def); err != nil {
		slog.Error("failed to save rule definition", "id", def.ID, "error", err)
		writeRepoError(w, "rule", err)
		return
	}
	h.registry.Invalidate(tenantID)

	slog.Info("rule saved", "tenant_id", tenantID, "id", def.ID, "version", def.Version)
	writeJSON(w, http.StatusCreated, def)
}

// DeleteRule handles DELETE /rules/{id}. Only tenant rules can be removed.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := GetTenantID(ctx)

	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "repository not available")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteRuleDefinition(ctx, tenantID, id); err != nil {
		writeRepoError(w, "rule", err)
		return
	}
	h.registry.Invalidate(tenantID)

	slog.Info("rule deleted", "tenant_id", tenantID, "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// ReloadRules handles POST /rules/reload.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	tenantID := GetTenantID(r.Context())

	catalog, err := h.registry.Reload(r.Context(), tenantID)
	if err != nil {
		slog.Error("failed to reload rules", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reload rules: "+err.Error())
		return
	}

	slog.Info("rules reloaded", "tenant_id", tenantID, "count", catalog.Len())
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "rules reloaded successfully",
		"count":   catalog.Len(),
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready handles GET /ready. Worker subscriptions are reported when the
// async worker runs in this process.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.service == nil || h.registry.Base().Len() == 0 {
		writeError(w, http.StatusServiceUnavailable, "rule catalog not loaded")
		return
	}
	resp := map[string]any{
		"status": "ready",
		"rules":  h.registry.Base().Len(),
	}
	if h.worker != nil {
		resp["worker"] = h.worker.GetStats()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) serviceFor(r *http.Request, tenantID string) (*assess.Service, error) {
	catalog, err := h.registry.For(r.Context(), tenantID)
	if err != nil {
		return nil, err
	}
	return h.service.ForCatalog(catalog), nil
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (assess.Request, bool) {
	var req assess.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return req, false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return req, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func writeRepoError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, repository.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("repository failure", "what", what, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to access "+what)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
