package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"olist-dashboard/internal/models"
	"olist-dashboard/internal/profiles"
	"olist-dashboard/internal/services"
)

var segmentPanelTemplate = template.Must(template.New("segmentPanel").Parse(`
<div id="segment-panel">
<table class="modern-table">
<thead><tr><th>Segment</th><th>Customers</th><th>Share</th><th>Top categories</th></tr></thead>
<tbody>
{{range .}}<tr>
<td><strong>{{.Label}}</strong></td>
<td>{{.Count}}</td>
<td>{{printf "%.1f" .SharePct}}%</td>
<td>{{.Categories}}</td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var personaPanelTemplate = template.Must(template.New("personaPanel").Parse(`
<div id="persona-panel">
{{range .}}<div class="persona">
<h4>{{.Title}}</h4>
<p>{{.Analysis}}</p>
<p class="guide">{{.Guide}}</p>
</div>{{end}}
</div>`))

type SSEHandlers struct {
	analytics  *services.Analytics
	profile    *profiles.Profile
	sampleSize int
	logger     *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, profile *profiles.Profile, sampleSize int, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics:  analytics,
		profile:    profile,
		sampleSize: sampleSize,
		logger:     logger,
	}
}

// thresholdSignals is what the dashboard sliders publish on every
// change. Pointer fields distinguish an absent signal from a slider
// deliberately set to zero.
type thresholdSignals struct {
	Monetary     *float64 `json:"monetary"`
	Satisfaction *float64 `json:"satisfaction"`
}

// readThresholds merges the incoming signals with the resolved
// defaults; a signal the request does not carry keeps its default.
func (h *SSEHandlers) readThresholds(r *http.Request) models.Thresholds {
	th := h.analytics.DefaultThresholds(h.profile.DefaultThresholds)

	var signals thresholdSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		return th
	}
	if signals.Monetary != nil && *signals.Monetary >= 0 {
		th.Monetary = *signals.Monetary
	}
	if signals.Satisfaction != nil && *signals.Satisfaction >= 1 && *signals.Satisfaction <= 5 {
		th.Satisfaction = *signals.Satisfaction
	}
	return th
}

type segmentPanelRow struct {
	Label      string
	Count      int
	SharePct   float64
	Categories string
}

func (h *SSEHandlers) renderSegmentPanel(view *services.SegmentationView) (string, error) {
	rows := make([]segmentPanelRow, 0, len(view.Summaries))
	for _, s := range view.Summaries {
		categories := strings.Join(s.TopCategories, ", ")
		if categories == "" {
			categories = "-"
		}
		rows = append(rows, segmentPanelRow{
			Label:      h.profile.Label(s.Quadrant),
			Count:      s.Count,
			SharePct:   s.Share * 100,
			Categories: categories,
		})
	}

	var buf strings.Builder
	err := segmentPanelTemplate.Execute(&buf, rows)
	return buf.String(), err
}

// HandleSegments re-classifies the aggregate under the thresholds
// carried by the request signals and patches both the summary panel
// and the scatter data.
func (h *SSEHandlers) HandleSegments(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	th := h.readThresholds(r)
	view, err := h.analytics.Segmentation(th, h.sampleSize)
	if err != nil {
		h.logger.Error("segmentation failed", "error", err)
		return
	}

	html, err := h.renderSegmentPanel(view)
	if err != nil {
		h.logger.Error("render segment panel", "error", err)
		return
	}
	sse.PatchElements(html)

	signals, err := json.Marshal(map[string]any{
		"monetary":     th.Monetary,
		"satisfaction": th.Satisfaction,
		"scatterData":  view.Points,
	})
	if err != nil {
		h.logger.Error("marshal scatter signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandlePersonas(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	var buf strings.Builder
	if err := personaPanelTemplate.Execute(&buf, h.profile.Personas); err != nil {
		h.logger.Error("render persona panel", "error", err)
		return
	}
	sse.PatchElements(buf.String())

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleRefreshAll repaints every dashboard panel in one stream.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	th := h.readThresholds(r)
	view, err := h.analytics.Segmentation(th, h.sampleSize)
	if err != nil {
		h.logger.Error("segmentation failed", "error", err)
		return
	}

	html, err := h.renderSegmentPanel(view)
	if err != nil {
		h.logger.Error("render segment panel", "error", err)
		return
	}
	sse.PatchElements(html)

	var personas strings.Builder
	if err := personaPanelTemplate.Execute(&personas, h.profile.Personas); err != nil {
		h.logger.Error("render persona panel", "error", err)
		return
	}
	sse.PatchElements(personas.String())

	signals, err := json.Marshal(map[string]any{
		"monetary":     th.Monetary,
		"satisfaction": th.Satisfaction,
		"scatterData":  view.Points,
		"gradesData":   h.analytics.GradeDistribution(),
	})
	if err != nil {
		h.logger.Error("marshal refresh signals", "error", err)
		return
	}
	sse.PatchSignals(signals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
