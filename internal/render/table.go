package render

import (
	"strconv"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// Table is a rendered grid of string cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// TimestampLayout is the display layout for reading timestamps.
const TimestampLayout = "2006-01-02 15:04:05"

// PriceTable has one row per coin; the second column is named after the quote currency.
func PriceTable(quotes []models.PriceQuote, currency string) Table {
	t := Table{Headers: []string{"coin", currency}}
	for _, q := range quotes {
		t.Rows = append(t.Rows, []string{q.Coin, q.Price.String()})
	}
	return t
}

// WeatherTable has one row per reading, oldest first.
func WeatherTable(readings []models.WeatherReading) Table {
	t := Table{Headers: []string{"time", "temperature_c", "wind_m_s"}}
	for _, r := range readings {
		t.Rows = append(t.Rows, []string{
			r.Timestamp.UTC().Format(TimestampLayout),
			formatFloat(r.Temperature),
			formatFloat(r.WindSpeed),
		})
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
