package models

import "time"

// WeatherReading is one current-conditions sample from the weather source.
type WeatherReading struct {
	Timestamp   time.Time `json:"time"`
	Temperature float64   `json:"temperature"` // °C
	WindSpeed   float64   `json:"wind"`        // m/s
}
