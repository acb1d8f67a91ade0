// Package report renders simulation documents as self-contained HTML line
// charts for quick visual inspection of a spectrum, a lock trace, or a
// parameter sweep.
package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/lumen-phi/photonic-core/internal/sweep"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

func newLine(title, subtitle, xName, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:  xName,
			Scale: opts.Bool(true),
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:  yName,
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)
	return line
}

func lineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}

// SpectrumChart plots the end-to-end bus transmission across the wavelength
// band. Both slices must line up; extra points on either side are dropped.
func SpectrumChart(wavelengthsNm, transmission []float64) *charts.Line {
	n := len(wavelengthsNm)
	if len(transmission) < n {
		n = len(transmission)
	}

	line := newLine("Bus transmission spectrum", "through-port power over the band",
		"wavelength (nm)", "transmission")
	line.SetXAxis(wavelengthsNm[:n])
	line.AddSeries("bus_transmission", lineData(transmission[:n]))
	return line
}

// CoherenceChart plots the Kuramoto order parameter per step together with a
// flat lock-threshold reference series.
func CoherenceChart(trace *models.OscillatorTrace, lockThreshold float64) *charts.Line {
	steps := make([]int, len(trace.Coherence))
	threshold := make([]float64, len(trace.Coherence))
	for i := range steps {
		steps[i] = i
		threshold[i] = lockThreshold
	}

	subtitle := fmt.Sprintf("%d oscillators, terminal state %s", trace.Oscillators, trace.State)
	line := newLine("Phase coherence", subtitle, "step", "r(t)")
	line.SetXAxis(steps)
	line.AddSeries("coherence", lineData(trace.Coherence))
	line.AddSeries("lock_threshold", lineData(threshold))
	return line
}

// SweepQChart plots mean loaded Q against the swept axis.
func SweepQChart(res *sweep.Result) *charts.Line {
	values := make([]float64, len(res.Points))
	q := make([]float64, len(res.Points))
	for i, p := range res.Points {
		values[i] = p.Value
		q[i] = p.MeanLoadedQ
	}

	line := newLine("Loaded Q over sweep", "trend "+res.QTrend, res.Axis, "mean loaded Q")
	line.SetXAxis(values)
	line.AddSeries("mean_loaded_q", lineData(q))
	return line
}

// SweepSplitChart plots the coupler split error against the swept axis.
// Points where the splitter could not be tuned carry a 100% error so gaps
// in tunability stand out.
func SweepSplitChart(res *sweep.Result) *charts.Line {
	values := make([]float64, len(res.Points))
	errs := make([]float64, len(res.Points))
	for i, p := range res.Points {
		values[i] = p.Value
		if p.SplitTunable {
			errs[i] = p.SplitErrorPct
		} else {
			errs[i] = 100
		}
	}

	line := newLine("Coupler split error over sweep", "golden split deviation",
		res.Axis, "split error (%)")
	line.SetXAxis(values)
	line.AddSeries("split_error_pct", lineData(errs))
	return line
}

// WritePage assembles the charts into one HTML page.
func WritePage(w io.Writer, charters ...components.Charter) error {
	page := components.NewPage()
	page.AddCharts(charters...)
	return page.Render(w)
}
