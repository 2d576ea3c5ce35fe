package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"olist-dashboard/internal/errors"
	"olist-dashboard/internal/models"
	"olist-dashboard/internal/observability"
	"olist-dashboard/internal/profiles"
	"olist-dashboard/internal/services"
)

const cacheControl = "public, max-age=300"

type APIHandlers struct {
	analytics  *services.Analytics
	profile    *profiles.Profile
	sampleSize int
	logger     *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, profile *profiles.Profile, sampleSize int, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics:  analytics,
		profile:    profile,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

// thresholdsFromQuery reads the two slider parameters, falling back to
// the profile defaults (with the monetary default resolved against the
// population median) when absent.
func (h *APIHandlers) thresholdsFromQuery(r *http.Request) (models.Thresholds, error) {
	th := h.analytics.DefaultThresholds(h.profile.DefaultThresholds)

	if raw := r.URL.Query().Get("monetary"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return th, errors.Validation("monetary threshold must be a non-negative number")
		}
		th.Monetary = v
	}
	if raw := r.URL.Query().Get("satisfaction"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 1 || v > 5 {
			return th, errors.Validation("satisfaction threshold must be within the 1-5 review scale")
		}
		th.Satisfaction = v
	}
	return th, nil
}

// labeledSummary attaches the active profile's display name to a
// quadrant summary.
type labeledSummary struct {
	services.QuadrantSummary
	Label string `json:"label"`
}

type segmentsResponse struct {
	Thresholds models.Thresholds          `json:"thresholds"`
	Total      int                        `json:"total"`
	Segments   []labeledSummary           `json:"segments"`
	Points     []models.SegmentedCustomer `json:"points"`
	Profile    string                     `json:"profile"`
}

func (h *APIHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	th, err := h.thresholdsFromQuery(r)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	view, err := h.analytics.Segmentation(th, h.sampleSize)
	if err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	resp := segmentsResponse{
		Thresholds: view.Thresholds,
		Total:      view.Total,
		Points:     view.Points,
		Profile:    h.profile.Name,
	}
	for _, s := range view.Summaries {
		resp.Segments = append(resp.Segments, labeledSummary{
			QuadrantSummary: s,
			Label:           h.profile.Label(s.Quadrant),
		})
	}

	errors.WriteSuccess(w, resp)
}

func (h *APIHandlers) HandleCustomers(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	limit := h.sampleSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			errors.WriteError(w, h.logger, errors.Validation("limit must be a positive integer"), requestID)
			return
		}
		if v < limit {
			limit = v
		}
	}

	if _, err := h.analytics.Table(); err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.Sample(limit), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleGrades(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	if _, err := h.analytics.Table(); err != nil {
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	errors.WriteSuccessWithHeaders(w, h.analytics.GradeDistribution(), map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandlePersonas(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.profile.Personas, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
