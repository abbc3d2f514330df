package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"wisefido-health/internal/coordinator"
	"wisefido-health/internal/models"

	"go.uber.org/zap"
)

// HealthAPI 健康服务接口（由 service.HealthService 实现）
type HealthAPI interface {
	SyncHealthData(ctx context.Context, personID string, opts coordinator.SyncOptions) ([]models.SyncResult, error)
	GetHealthData(ctx context.Context, personID string, opts coordinator.GetOptions) (*models.ConsolidatedHealthView, error)
	GenerateBedCriteria(ctx context.Context, personID string) (models.AccommodationCriteria, error)
	GetHealthAlerts(personID string, filter models.AlertFilter) []models.HealthAlert
	AcknowledgeAlert(ctx context.Context, personID, alertID, by string) (*models.HealthAlert, error)
	ClearHealthData(ctx context.Context, personID string) error
	FindOptimalBeds(units []models.ResourceUnit, profile *models.HealthProfile, maxResults int) []models.MatchResult
	FindOptimalBedsForPerson(ctx context.Context, personID string, maxResults int) ([]models.MatchResult, error)
	PriorityScore(criteria models.AccommodationCriteria, alerts []models.HealthAlert) int
	RankWaitlist(ctx context.Context, personIDs []string) ([]models.WaitlistEntry, error)
	Metrics() coordinator.MetricsSnapshot
}

// HealthHandler 健康数据 HTTP 处理器
type HealthHandler struct {
	svc    HealthAPI
	logger *zap.Logger
}

// NewHealthHandler 创建健康数据处理器
func NewHealthHandler(svc HealthAPI, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{svc: svc, logger: logger}
}

type syncRequest struct {
	Sources   []models.ProviderKind `json:"sources"`
	ForceSync bool                  `json:"force_sync"`
}

// SyncHealthData POST /persons/{id}/sync
func (h *HealthHandler) SyncHealthData(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	var req syncRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	for _, s := range req.Sources {
		if !s.Valid() {
			writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("unknown source %q", s)))
			return
		}
	}
	if force, err := parseBool(r.URL.Query().Get("force")); err == nil && force != nil {
		req.ForceSync = *force
	}

	results, err := h.svc.SyncHealthData(r.Context(), personID, coordinator.SyncOptions{
		Sources:   req.Sources,
		ForceSync: req.ForceSync,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, Ok(results))
	case errors.Is(err, coordinator.ErrSyncInProgress):
		writeJSON(w, http.StatusConflict, Fail(err.Error()))
	case errors.Is(err, coordinator.ErrAllProvidersFailed):
		writeJSON(w, http.StatusBadGateway, FailWith(err.Error(), results))
	case errors.Is(err, coordinator.ErrNoProviders):
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
	default:
		h.logger.Warn("Sync request failed", zap.String("person_id", personID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
	}
}

// GetHealthData GET /persons/{id}
func (h *HealthHandler) GetHealthData(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	q := r.URL.Query()

	opts := coordinator.GetOptions{}
	if include, err := parseBool(q.Get("include_alerts")); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	} else if include != nil {
		opts.IncludeAlerts = *include
	}

	from, err := parseTime(q.Get("from"), false)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	to, err := parseTime(q.Get("to"), true)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	if !from.IsZero() || !to.IsZero() {
		opts.DateRange = &models.DateRange{From: from, To: to}
	}

	if opts.Sources, err = parseSources(q.Get("sources")); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	view, err := h.svc.GetHealthData(r.Context(), personID, opts)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(view))
}

// ClearHealthData DELETE /persons/{id}
func (h *HealthHandler) ClearHealthData(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")

	if err := h.svc.ClearHealthData(r.Context(), personID); err != nil {
		if errors.Is(err, coordinator.ErrSyncInProgress) {
			writeJSON(w, http.StatusConflict, Fail(err.Error()))
			return
		}
		h.logger.Warn("Clear health data failed", zap.String("person_id", personID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"person_id": personID, "cleared": true}))
}

// GetCriteria GET /persons/{id}/criteria
func (h *HealthHandler) GetCriteria(w http.ResponseWriter, r *http.Request) {
	criteria, err := h.svc.GenerateBedCriteria(r.Context(), r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(criteria))
}

// GetAlerts GET /persons/{id}/alerts
func (h *HealthHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter models.AlertFilter
	if s := q.Get("severity"); s != "" {
		severity := models.AlertSeverity(s)
		if !severity.Valid() {
			writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("unknown severity %q", s)))
			return
		}
		filter.Severity = &severity
	}
	acknowledged, err := parseBool(q.Get("acknowledged"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	filter.Acknowledged = acknowledged

	writeJSON(w, http.StatusOK, Ok(h.svc.GetHealthAlerts(r.PathValue("id"), filter)))
}

type ackRequest struct {
	AcknowledgedBy string `json:"acknowledged_by"`
}

// AcknowledgeAlert POST /persons/{id}/alerts/{alertId}/ack
func (h *HealthHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req ackRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if req.AcknowledgedBy == "" {
		writeJSON(w, http.StatusBadRequest, Fail("acknowledged_by is required"))
		return
	}

	alert, err := h.svc.AcknowledgeAlert(r.Context(), r.PathValue("id"), r.PathValue("alertId"), req.AcknowledgedBy)
	if err != nil {
		if errors.Is(err, coordinator.ErrUnknownPerson) || errors.Is(err, coordinator.ErrAlertNotFound) {
			writeJSON(w, http.StatusNotFound, Fail(err.Error()))
			return
		}
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(alert))
}

// FindBedsForPerson GET /persons/{id}/beds
func (h *HealthHandler) FindBedsForPerson(w http.ResponseWriter, r *http.Request) {
	personID := r.PathValue("id")
	limit := parseInt(r.URL.Query().Get("limit"), 0)

	results, err := h.svc.FindOptimalBedsForPerson(r.Context(), personID, limit)
	if err != nil {
		h.logger.Warn("Bed search failed", zap.String("person_id", personID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(results))
}

type matchRequest struct {
	Units      []models.ResourceUnit         `json:"units"`
	Profile    *models.HealthProfile         `json:"profile"`
	Criteria   *models.AccommodationCriteria `json:"criteria"`
	MaxResults int                           `json:"max_results"`
}

// MatchBeds POST /beds/match
func (h *HealthHandler) MatchBeds(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	profile := req.Profile
	if profile == nil && req.Criteria != nil {
		profile = &models.HealthProfile{Criteria: *req.Criteria}
	}
	writeJSON(w, http.StatusOK, Ok(h.svc.FindOptimalBeds(req.Units, profile, req.MaxResults)))
}

type priorityRequest struct {
	Criteria models.AccommodationCriteria `json:"criteria"`
	Alerts   []models.HealthAlert         `json:"alerts"`
}

// PriorityScore POST /priority
func (h *HealthHandler) PriorityScore(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]int{
		"priority_score": h.svc.PriorityScore(req.Criteria, req.Alerts),
	}))
}

type waitlistRequest struct {
	PersonIDs []string `json:"person_ids"`
}

// RankWaitlist POST /waitlist
func (h *HealthHandler) RankWaitlist(w http.ResponseWriter, r *http.Request) {
	var req waitlistRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	entries, err := h.svc.RankWaitlist(r.Context(), req.PersonIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(entries))
}

// ExportWaitlist GET /waitlist/export?person_ids=a,b
func (h *HealthHandler) ExportWaitlist(w http.ResponseWriter, r *http.Request) {
	personIDs := splitList(r.URL.Query().Get("person_ids"))
	if len(personIDs) == 0 {
		writeJSON(w, http.StatusBadRequest, Fail("person_ids is required"))
		return
	}

	entries, err := h.svc.RankWaitlist(r.Context(), personIDs)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}

	data, err := GenerateWaitlistExport(entries)
	if err != nil {
		h.logger.Error("Failed to generate waitlist export", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, Fail("failed to generate export"))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=waitlist.xlsx")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type metricsResponse struct {
	coordinator.MetricsSnapshot
	AvgSyncTimeMs int64 `json:"avg_sync_time_ms"`
}

// GetMetrics GET /metrics
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	m := h.svc.Metrics()
	writeJSON(w, http.StatusOK, Ok(metricsResponse{
		MetricsSnapshot: m,
		AvgSyncTimeMs:   m.AvgSyncTime().Milliseconds(),
	}))
}
