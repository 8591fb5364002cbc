package render

import (
	"fmt"
	"html/template"
	"strings"

	charts "github.com/vicanso/go-charts/v2"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// Chart titles.
const (
	PriceChartTitle       = "Current price (USD)"
	TemperatureChartTitle = "Temperature Over Time (°C)"
	WindChartTitle        = "Wind Speed Over Time (m/s)"
)

const (
	chartWidth  = 720
	chartHeight = 360
)

// Chart is an inline SVG chart.
type Chart struct {
	Title string
	SVG   template.HTML
}

// PriceChart renders one bar per coin.
func PriceChart(quotes []models.PriceQuote, currency string) (Chart, error) {
	if len(quotes) == 0 {
		return Chart{}, fmt.Errorf("price chart: no data")
	}
	labels := make([]string, len(quotes))
	values := make([]float64, len(quotes))
	for i, q := range quotes {
		labels[i] = q.Coin
		values[i] = q.Price.InexactFloat64()
	}
	title := PriceChartTitle
	if currency != "" && !strings.EqualFold(currency, "usd") {
		title = fmt.Sprintf("Current price (%s)", strings.ToUpper(currency))
	}
	p, err := charts.BarRender([][]float64{values},
		charts.SVGTypeOption(),
		charts.TitleTextOptionFunc(title),
		charts.XAxisDataOptionFunc(labels),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return Chart{}, fmt.Errorf("price chart: %w", err)
	}
	return svgChart(title, p)
}

// TemperatureChart plots temperature against reading time.
func TemperatureChart(readings []models.WeatherReading) (Chart, error) {
	return weatherLine(TemperatureChartTitle, readings, func(r models.WeatherReading) float64 { return r.Temperature })
}

// WindChart plots wind speed against reading time.
func WindChart(readings []models.WeatherReading) (Chart, error) {
	return weatherLine(WindChartTitle, readings, func(r models.WeatherReading) float64 { return r.WindSpeed })
}

func weatherLine(title string, readings []models.WeatherReading, value func(models.WeatherReading) float64) (Chart, error) {
	if len(readings) == 0 {
		return Chart{}, fmt.Errorf("%s: no data", title)
	}
	labels := make([]string, len(readings))
	values := make([]float64, len(readings))
	for i, r := range readings {
		labels[i] = r.Timestamp.UTC().Format("15:04")
		values[i] = value(r)
	}
	p, err := charts.LineRender([][]float64{values},
		charts.SVGTypeOption(),
		charts.TitleTextOptionFunc(title),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag()}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(chartWidth),
		charts.HeightOptionFunc(chartHeight),
	)
	if err != nil {
		return Chart{}, fmt.Errorf("%s: %w", title, err)
	}
	return svgChart(title, p)
}

func svgChart(title string, p *charts.Painter) (Chart, error) {
	buf, err := p.Bytes()
	if err != nil {
		return Chart{}, fmt.Errorf("%s: %w", title, err)
	}
	// go-charts output is trusted markup, not user input.
	return Chart{Title: title, SVG: template.HTML(buf)}, nil
}
