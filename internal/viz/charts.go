package viz

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/brieflyhq/briefly/internal/dataset"
	"github.com/brieflyhq/briefly/internal/errdefs"
)

// Chart names in the fixed catalog. The names double as PNG file stems and as
// the content IDs used for inline email embedding.
const (
	ChartSalesByRegion        = "sales_by_region"
	ChartQuarterlyPerformance = "quarterly_performance"
	ChartProductPerformance   = "product_performance"
	ChartMarketingROI         = "marketing_roi"
	ChartChannelPerformance   = "channel_performance"
)

// Catalog is the ordered list of charts every run produces.
var Catalog = []string{
	ChartSalesByRegion,
	ChartQuarterlyPerformance,
	ChartProductPerformance,
	ChartMarketingROI,
	ChartChannelPerformance,
}

// Generator renders the chart catalog as PNG files in a target directory.
type Generator struct {
	// dir is the output directory for rendered PNGs.
	dir string
}

// NewGenerator constructs a Generator writing into dir, creating it if needed.
func NewGenerator(dir string) (*Generator, error) {
	if dir == "" {
		return nil, errdefs.InvalidArgumentf("viz: charts dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errdefs.Persistencef("viz: create charts dir %s: %v", dir, err)
	}
	return &Generator{dir: dir}, nil
}

// Dir returns the output directory.
func (g *Generator) Dir() string { return g.dir }

// Path returns the PNG path for a catalog chart name.
func (g *Generator) Path(name string) string {
	return filepath.Join(g.dir, name+".png")
}

// GenerateAll renders the full catalog. One chart's failure does not stop the
// others: the returned slice holds the paths that rendered successfully and
// the returned error joins the per-chart failures (nil when all succeeded).
func (g *Generator) GenerateAll(sales []dataset.SalesRecord, marketing []dataset.MarketingRecord) ([]string, error) {
	renders := []struct {
		name   string
		render func() error
	}{
		{ChartSalesByRegion, func() error { return g.SalesByRegion(sales) }},
		{ChartQuarterlyPerformance, func() error { return g.QuarterlyPerformance(sales) }},
		{ChartProductPerformance, func() error { return g.ProductPerformance(sales) }},
		{ChartMarketingROI, func() error { return g.MarketingROI(marketing) }},
		{ChartChannelPerformance, func() error { return g.ChannelPerformance(marketing) }},
	}

	var paths []string
	var errs []error
	for _, r := range renders {
		if err := r.render(); err != nil {
			errs = append(errs, fmt.Errorf("viz: %s: %w", r.name, err))
			continue
		}
		paths = append(paths, g.Path(r.name))
	}

	return paths, errors.Join(errs...)
}

// SalesByRegion renders total revenue per region as a bar chart.
func (g *Generator) SalesByRegion(sales []dataset.SalesRecord) error {
	data := RevenueByRegion(sales)
	if len(data) == 0 {
		return errdefs.InvalidArgumentf("no sales data")
	}

	bars := make([]chart.Value, 0, len(data))
	for _, d := range data {
		bars = append(bars, chart.Value{Label: d.Label, Value: d.Value})
	}

	c := chart.BarChart{
		Title:    "Sales Revenue by Region",
		Width:    900,
		Height:   540,
		BarWidth: 80,
		YAxis: chart.YAxis{
			ValueFormatter: dollarFormatter,
		},
		Bars: bars,
	}
	return g.renderPNG(ChartSalesByRegion, c.Render)
}

// QuarterlyPerformance renders revenue over quarters as a filled line chart.
func (g *Generator) QuarterlyPerformance(sales []dataset.SalesRecord) error {
	data := RevenueByQuarter(sales)
	if len(data) < 2 {
		return errdefs.InvalidArgumentf("need at least two quarters, have %d", len(data))
	}

	xs := make([]float64, len(data))
	ys := make([]float64, len(data))
	ticks := make([]chart.Tick, len(data))
	for i, d := range data {
		xs[i] = float64(i)
		ys[i] = d.Value
		ticks[i] = chart.Tick{Value: float64(i), Label: d.Label}
	}

	c := chart.Chart{
		Title:  "Quarterly Sales Performance",
		Width:  900,
		Height: 540,
		XAxis: chart.XAxis{
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			ValueFormatter: dollarFormatter,
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("3498DB"),
					StrokeWidth: 3,
					FillColor:   drawing.ColorFromHex("3498DB").WithAlpha(76),
				},
			},
		},
	}
	return g.renderPNG(ChartQuarterlyPerformance, c.Render)
}

// ProductPerformance renders the revenue share per product as a pie chart.
func (g *Generator) ProductPerformance(sales []dataset.SalesRecord) error {
	data := RevenueByProduct(sales)
	if len(data) == 0 {
		return errdefs.InvalidArgumentf("no sales data")
	}

	values := make([]chart.Value, 0, len(data))
	for _, d := range data {
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: $%.0f", d.Product, d.Revenue),
			Value: d.Revenue,
		})
	}

	c := chart.PieChart{
		Title:  "Product Revenue Distribution",
		Width:  760,
		Height: 760,
		Values: values,
	}
	return g.renderPNG(ChartProductPerformance, c.Render)
}

// MarketingROI renders per-campaign budget against conversions on a secondary
// axis so the two scales stay readable.
func (g *Generator) MarketingROI(marketing []dataset.MarketingRecord) error {
	data := CampaignPerformance(marketing)
	if len(data) < 2 {
		return errdefs.InvalidArgumentf("need at least two campaigns, have %d", len(data))
	}

	xs := make([]float64, len(data))
	budgets := make([]float64, len(data))
	conversions := make([]float64, len(data))
	ticks := make([]chart.Tick, len(data))
	for i, d := range data {
		xs[i] = float64(i)
		budgets[i] = d.Budget
		conversions[i] = float64(d.Conversions)
		ticks[i] = chart.Tick{Value: float64(i), Label: d.Name}
	}

	c := chart.Chart{
		Title:  "Marketing Campaign Performance",
		Width:  1080,
		Height: 540,
		XAxis: chart.XAxis{
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:           "Budget ($)",
			ValueFormatter: dollarFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name: "Conversions",
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Budget",
				XValues: xs,
				YValues: budgets,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("3498DB"),
					StrokeWidth: 3,
				},
			},
			chart.ContinuousSeries{
				Name:    "Conversions",
				YAxis:   chart.YAxisSecondary,
				XValues: xs,
				YValues: conversions,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("2ECC71"),
					StrokeWidth: 3,
				},
			},
		},
	}
	return g.renderPNG(ChartMarketingROI, c.Render)
}

// ChannelPerformance renders total conversions per channel as a bar chart.
func (g *Generator) ChannelPerformance(marketing []dataset.MarketingRecord) error {
	data := ConversionsByChannel(marketing)
	if len(data) == 0 {
		return errdefs.InvalidArgumentf("no marketing data")
	}

	bars := make([]chart.Value, 0, len(data))
	for _, d := range data {
		bars = append(bars, chart.Value{Label: d.Label, Value: d.Value})
	}

	c := chart.BarChart{
		Title:    "Conversions by Marketing Channel",
		Width:    900,
		Height:   540,
		BarWidth: 70,
		Bars:     bars,
	}
	return g.renderPNG(ChartChannelPerformance, c.Render)
}

// renderPNG renders a chart into <name>.png in the output directory.
func (g *Generator) renderPNG(name string, render func(chart.RendererProvider, io.Writer) error) error {
	path := g.Path(name)
	f, err := os.Create(path)
	if err != nil {
		return errdefs.Persistencef("create %s: %v", path, err)
	}

	if err := render(chart.PNG, f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("render: %w", err)
	}
	if err := f.Close(); err != nil {
		return errdefs.Persistencef("close %s: %v", path, err)
	}
	return nil
}

// dollarFormatter renders axis values as whole dollars.
func dollarFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("$%.0f", f)
	}
	return fmt.Sprint(v)
}
