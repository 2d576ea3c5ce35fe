// Package templates renders the dashboard page. The page is a thin
// shell: all data arrives through the datastar SSE endpoints, and the
// two sliders publish threshold signals back.
package templates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"olist-dashboard/internal/models"
	"olist-dashboard/internal/profiles"
)

const pageHead = `<!DOCTYPE html>
<html lang="%s">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Olist Buyer Segmentation</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
<script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: #f6f7f9; color: #1f2933; }
header { background: #111827; color: #f9fafb; padding: 1rem 2rem; }
main { padding: 1.5rem 2rem; display: grid; grid-template-columns: 2fr 1fr; gap: 1.5rem; }
section { background: #fff; border-radius: 8px; padding: 1rem 1.25rem; box-shadow: 0 1px 3px rgba(0,0,0,0.08); }
.modern-table { width: 100%%; border-collapse: collapse; }
.modern-table th, .modern-table td { text-align: left; padding: 0.4rem 0.6rem; border-bottom: 1px solid #e5e7eb; }
.slider-row { display: flex; align-items: center; gap: 0.75rem; margin: 0.5rem 0; }
.slider-row input[type=range] { flex: 1; }
.persona { border-left: 3px solid #6366f1; padding-left: 0.75rem; margin-bottom: 1rem; }
.persona .guide { color: #4b5563; }
</style>
</head>`

// Dashboard builds the interactive segmentation page for the active
// profile. The signals are seeded with the resolved threshold defaults
// so the first refresh classifies the same way the sliders show, and
// the monetary slider spans up to the population's 95th percentile.
func Dashboard(profile *profiles.Profile, defaults models.Thresholds, monetaryMax float64) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if monetaryMax <= 0 {
			monetaryMax = 2000
		}
		labels := make(map[models.Quadrant]string, len(models.Quadrants))
		for _, q := range models.Quadrants {
			labels[q] = profile.Label(q)
		}
		labelJSON, err := json.Marshal(labels)
		if err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, pageHead, templ.EscapeString(profile.Language)); err != nil {
			return err
		}

		body := `
<body data-signals="{monetary: %s, satisfaction: %s, scatterData: [], gradesData: []}"
      data-on-load="@get('/sse/refresh-all')">
<header>
  <h1>Olist Buyer Segmentation</h1>
  <p>Customer behavior and satisfaction, segmented by adjustable monetary and satisfaction thresholds.</p>
</header>
<main>
  <section>
    <h2>Satisfaction vs. Monetary</h2>
    <div class="slider-row">
      <label>Monetary threshold</label>
      <input type="range" min="0" max="%s" step="10" data-bind-monetary
             data-on-input__debounce.300ms="@get('/sse/segments')">
      <span data-text="$monetary.toFixed(0)"></span>
    </div>
    <div class="slider-row">
      <label>Satisfaction threshold</label>
      <input type="range" min="1" max="5" step="0.1" data-bind-satisfaction
             data-on-input__debounce.300ms="@get('/sse/segments')">
      <span data-text="$satisfaction.toFixed(1)"></span>
    </div>
    <div id="scatter" style="height: 480px" data-effect="renderScatter($scatterData, $monetary, $satisfaction)"></div>
  </section>
  <section>
    <h2>Segments</h2>
    <div id="segment-panel">Loading...</div>
  </section>
  <section style="grid-column: 1 / -1">
    <h2>Personas</h2>
    <div id="persona-panel">Loading...</div>
  </section>
</main>
<script>
var quadrantLabels = %s;
function renderScatter(points, m, s) {
  if (!points || !points.length) { return; }
  var traces = {};
  points.forEach(function (p) {
    var key = p.quadrant;
    if (!traces[key]) {
      traces[key] = { x: [], y: [], text: [], mode: "markers", type: "scatter", name: quadrantLabels[key] || key };
    }
    traces[key].x.push(p.satisfaction);
    traces[key].y.push(p.monetary);
    traces[key].text.push(p.customer_unique_id + " (" + p.rfm_grade + ")");
  });
  var layout = {
    xaxis: { title: "Average satisfaction", range: [0.8, 5.2] },
    yaxis: { title: "Total monetary" },
    shapes: [
      { type: "line", x0: s, x1: s, yref: "paper", y0: 0, y1: 1, line: { dash: "dash", color: "gray" } },
      { type: "line", y0: m, y1: m, xref: "paper", x0: 0, x1: 1, line: { dash: "dash", color: "gray" } }
    ],
    margin: { t: 20 }
  };
  Plotly.react("scatter", Object.values(traces), layout, { displayModeBar: false });
}
</script>
</body>
</html>`
		monetaryDefault := fmt.Sprintf("%.0f", defaults.Monetary)
		satisfactionDefault := fmt.Sprintf("%.1f", defaults.Satisfaction)
		sliderMax := fmt.Sprintf("%.0f", monetaryMax)
		_, err = fmt.Fprintf(w, body, monetaryDefault, satisfactionDefault, sliderMax, labelJSON)
		return err
	})
}
