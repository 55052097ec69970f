package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/httputil"
	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
)

// trafficChart renders the current per-lane vehicle density as a bar chart.
// This is a debugging view for checking the decision inputs without a UI.
func (s *Server) trafficChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	signals, updated := s.store.SignalState()

	x := make([]string, 0, traffic.NumLanes)
	y := make([]opts.BarData, 0, traffic.NumLanes)
	for _, l := range traffic.Lanes() {
		label := fmt.Sprintf("Lane %s (%s %ds)", l, signals[l].Signal, signals[l].Time)
		x = append(x, label)
		y = append(y, opts.BarData{Value: signals[l].Count})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "720px"}),
		charts.WithTitleOpts(opts.Title{Title: "Lane Density", Subtitle: updated.Format(time.RFC3339)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("vehicles", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)

	var buf bytes.Buffer
	if err := bar.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
