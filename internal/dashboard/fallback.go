package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// fallbackNotice is appended to the failure reason whenever sample data is shown.
const fallbackNotice = "Showing sample data so the demo continues."

// Select returns the outcome's records and no warning on success. On failure it returns a
// fresh copy of sample together with a warning that starts with the failure reason.
func Select[T any](outcome models.Outcome[T], sample []T) ([]T, string) {
	if outcome.OK() {
		return outcome.Records, ""
	}
	rows := make([]T, len(sample))
	copy(rows, sample)
	reason := outcome.Reason
	if reason == "" {
		reason = "unknown error"
	}
	return rows, reason + "\n" + fallbackNotice
}

// SamplePrices returns the fixed price rows shown when CoinGecko is unavailable.
func SamplePrices() []models.PriceQuote {
	return []models.PriceQuote{
		{Coin: "bitcoin", Currency: "usd", Price: decimal.NewFromInt(68000)},
		{Coin: "ethereum", Currency: "usd", Price: decimal.NewFromInt(3500)},
	}
}

// SampleWeather returns the fixed reading shown when Open-Meteo is unavailable.
func SampleWeather() []models.WeatherReading {
	return []models.WeatherReading{
		{Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), Temperature: 15.0, WindSpeed: 10.0},
	}
}
