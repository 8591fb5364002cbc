package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

func testReadings() []models.WeatherReading {
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return []models.WeatherReading{
		{Timestamp: base, Temperature: 18.25, WindSpeed: 3.1},
		{Timestamp: base.Add(15 * time.Minute), Temperature: 19, WindSpeed: 4},
	}
}

// TestPriceTable verifies one row per coin with the currency as the value column.
func TestPriceTable(t *testing.T) {
	table := PriceTable([]models.PriceQuote{
		{Coin: "bitcoin", Currency: "usd", Price: decimal.NewFromInt(68000)},
		{Coin: "ethereum", Currency: "usd", Price: decimal.RequireFromString("3500.5")},
	}, "usd")
	if strings.Join(table.Headers, ",") != "coin,usd" {
		t.Errorf("Headers = %v", table.Headers)
	}
	want := [][]string{{"bitcoin", "68000"}, {"ethereum", "3500.5"}}
	for i, row := range want {
		if strings.Join(table.Rows[i], ",") != strings.Join(row, ",") {
			t.Errorf("Rows[%d] = %v, want %v", i, table.Rows[i], row)
		}
	}
}

// TestWeatherTable verifies timestamp and number formatting.
func TestWeatherTable(t *testing.T) {
	table := WeatherTable(testReadings())
	if len(table.Rows) != 2 {
		t.Fatalf("Rows = %v", table.Rows)
	}
	if got := strings.Join(table.Rows[0], ","); got != "2024-06-01 10:00:00,18.2,3.1" && got != "2024-06-01 10:00:00,18.3,3.1" {
		t.Errorf("Rows[0] = %q", got)
	}
}

// TestCharts verifies each chart renders inline SVG and empty input is an error.
func TestCharts(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Chart, error)
		title string
	}{
		{
			name: "price",
			build: func() (Chart, error) {
				return PriceChart([]models.PriceQuote{
					{Coin: "bitcoin", Price: decimal.NewFromInt(68000)},
					{Coin: "ethereum", Price: decimal.NewFromInt(3500)},
				}, "usd")
			},
			title: PriceChartTitle,
		},
		{name: "temperature", build: func() (Chart, error) { return TemperatureChart(testReadings()) }, title: TemperatureChartTitle},
		{name: "wind", build: func() (Chart, error) { return WindChart(testReadings()) }, title: WindChartTitle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chart, err := tt.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if chart.Title != tt.title {
				t.Errorf("Title = %q, want %q", chart.Title, tt.title)
			}
			if !strings.Contains(string(chart.SVG), "<svg") {
				t.Error("chart is not SVG")
			}
		})
	}

	if _, err := TemperatureChart(nil); err == nil {
		t.Error("TemperatureChart(nil): expected error")
	}
	if _, err := PriceChart(nil, "usd"); err == nil {
		t.Error("PriceChart(nil): expected error")
	}
}

// TestPage verifies the page shows the warning, table, captions and controls.
func TestPage(t *testing.T) {
	v := View{
		Page:           "weather",
		Title:          "Current Weather",
		Warning:        "Unexpected response: missing current\nShowing sample data so the demo continues.",
		Table:          WeatherTable(testReadings()),
		RefreshedAt:    "10:15:00",
		DataPoints:     2,
		ShowCount:      true,
		Refresh:        models.RefreshConfig{Interval: 20 * time.Second},
		MinInterval:    10,
		MaxInterval:    120,
		HistoryEnabled: true,
	}
	var buf bytes.Buffer
	if err := Page(&buf, v); err != nil {
		t.Fatalf("Page: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Showing sample data so the demo continues.",
		"<th>temperature_c</th>",
		"Showing 2 data points",
		"Last refreshed at 10:15:00",
		`action="/weather/history/clear"`,
		`value="20"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(out, `http-equiv="refresh"`) {
		t.Error("page refreshes while auto-refresh is off")
	}
}

// TestPage_AutoRefresh verifies an enabled page schedules a tick with its current controls.
func TestPage_AutoRefresh(t *testing.T) {
	v := View{Page: "prices", Title: "Crypto Prices", Refresh: models.RefreshConfig{Interval: 45 * time.Second, Enabled: true}}
	var buf bytes.Buffer
	if err := Page(&buf, v); err != nil {
		t.Fatalf("Page: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `http-equiv="refresh" content="45;url=/prices?auto=on&amp;interval=45&amp;tick=1"`) {
		t.Errorf("missing meta refresh in:\n%s", out)
	}
	if got := TickURL(v); got != "/prices?auto=on&interval=45&tick=1" {
		t.Errorf("TickURL = %q", got)
	}
}

// TestHome verifies the landing page links both pages.
func TestHome(t *testing.T) {
	var buf bytes.Buffer
	if err := Home(&buf); err != nil {
		t.Fatalf("Home: %v", err)
	}
	for _, want := range []string{`href="/prices"`, `href="/weather"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("home missing %q", want)
		}
	}
}
