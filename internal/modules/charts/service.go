// Package charts renders study figures as PNG files.
package charts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	charts "github.com/vicanso/go-charts/v2"

	"quantfolio/internal/modules/optimization"
)

// StudyCharts is everything the renderer needs for one study
type StudyCharts struct {
	Symbols  []string
	Frontier []optimization.FrontierPoint
	Samples  []optimization.Sample

	MinVarianceWeights []float64
	MaxSharpeWeights   []float64

	WealthDates       []string
	MaxSharpeWealth   []float64
	EqualWeightWealth []float64
}

// Renderer writes study charts to disk
type Renderer struct {
	log zerolog.Logger
}

// NewRenderer creates a chart renderer
func NewRenderer(log zerolog.Logger) *Renderer {
	return &Renderer{
		log: log.With().Str("component", "charts").Logger(),
	}
}

// RenderStudy writes the frontier, weights and wealth charts into dir and
// returns the paths written. Charts with no data are skipped, not errors.
func (r *Renderer) RenderStudy(dir string, input StudyCharts) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	var paths []string

	if len(input.Frontier) > 0 {
		p := filepath.Join(dir, "frontier.png")
		if err := r.renderFrontier(p, input); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	if len(input.MinVarianceWeights) > 0 && len(input.MaxSharpeWeights) > 0 {
		p := filepath.Join(dir, "weights.png")
		if err := r.renderWeights(p, input); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	if len(input.WealthDates) > 0 {
		p := filepath.Join(dir, "wealth.png")
		if err := r.renderWealth(p, input); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}

	r.log.Info().Int("charts", len(paths)).Str("dir", dir).Msg("Charts rendered")
	return paths, nil
}

// renderFrontier plots frontier return over volatility, with the best Monte
// Carlo return reachable at each frontier volatility as a second series.
func (r *Renderer) renderFrontier(path string, input StudyCharts) error {
	frontier := input.Frontier

	xLabels := make([]string, len(frontier))
	frontierReturns := make([]float64, len(frontier))
	for i, p := range frontier {
		xLabels[i] = fmt.Sprintf("%.1f%%", p.Performance.Volatility*100)
		frontierReturns[i] = p.Performance.Return * 100
	}

	series := [][]float64{frontierReturns}
	names := []string{"Efficient frontier"}

	if best := bestSampleReturns(frontier, input.Samples); best != nil {
		series = append(series, best)
		names = append(names, "Best sampled")
	}

	p, err := charts.LineRender(
		series,
		charts.TitleTextOptionFunc("Efficient Frontier\nannualized return vs volatility"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: 6,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return fmt.Errorf("failed to render frontier chart: %w", err)
	}
	return writePNG(path, p)
}

func (r *Renderer) renderWeights(path string, input StudyCharts) error {
	minVar := make([]float64, len(input.MinVarianceWeights))
	maxSharpe := make([]float64, len(input.MaxSharpeWeights))
	for i := range minVar {
		minVar[i] = input.MinVarianceWeights[i] * 100
		maxSharpe[i] = input.MaxSharpeWeights[i] * 100
	}

	p, err := charts.BarRender(
		[][]float64{minVar, maxSharpe},
		charts.TitleTextOptionFunc("Optimized Weights (%)"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: input.Symbols}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"Min variance", "Max Sharpe"}}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return fmt.Errorf("failed to render weights chart: %w", err)
	}
	return writePNG(path, p)
}

func (r *Renderer) renderWealth(path string, input StudyCharts) error {
	splitNum := 6
	if len(input.WealthDates) <= 30 {
		splitNum = 3
	}

	p, err := charts.LineRender(
		[][]float64{input.MaxSharpeWealth, input.EqualWeightWealth},
		charts.TitleTextOptionFunc("Cumulative Wealth\ngrowth of 1.0 invested"),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        input.WealthDates,
			SplitNumber: splitNum,
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: []string{"Max Sharpe", "Equal weight"}}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return fmt.Errorf("failed to render wealth chart: %w", err)
	}
	return writePNG(path, p)
}

// bestSampleReturns computes, for each frontier point, the highest sampled
// return among portfolios whose volatility does not exceed that point's.
// Returns nil when there are no samples.
func bestSampleReturns(frontier []optimization.FrontierPoint, samples []optimization.Sample) []float64 {
	if len(samples) == 0 {
		return nil
	}

	sorted := make([]optimization.Sample, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Performance.Volatility < sorted[j].Performance.Volatility
	})

	out := make([]float64, len(frontier))
	idx := 0
	runningBest := sorted[0].Performance.Return
	for i, p := range frontier {
		for idx < len(sorted) && sorted[idx].Performance.Volatility <= p.Performance.Volatility {
			if sorted[idx].Performance.Return > runningBest {
				runningBest = sorted[idx].Performance.Return
			}
			idx++
		}
		out[i] = runningBest * 100
	}
	return out
}

type pngRenderer interface {
	Bytes() ([]byte, error)
}

func writePNG(path string, p pngRenderer) error {
	buf, err := p.Bytes()
	if err != nil {
		return fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write chart: %w", err)
	}
	return nil
}
