package dashboard

import (
	"sync"

	"github.com/kjstillabower/live-dashboard/internal/models"
	"github.com/kjstillabower/live-dashboard/internal/observability"
)

// DefaultHistoryCapacity is the number of readings kept when no capacity is configured.
const DefaultHistoryCapacity = 20

// History is a bounded, timestamp-ordered buffer of weather readings.
// Timestamps are strictly increasing; the oldest reading is evicted when full.
type History struct {
	mu       sync.Mutex
	capacity int
	readings []models.WeatherReading
}

// NewHistory creates an empty history. capacity < 1 falls back to DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity, readings: make([]models.WeatherReading, 0, capacity)}
}

// Push appends r unless its timestamp is not after the last reading's.
// Reports whether r was appended.
func (h *History) Push(r models.WeatherReading) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n := len(h.readings); n > 0 {
		last := h.readings[n-1].Timestamp
		switch {
		case r.Timestamp.Equal(last):
			observability.HistoryPushesTotal.WithLabelValues("duplicate").Inc()
			return false
		case r.Timestamp.Before(last):
			observability.HistoryPushesTotal.WithLabelValues("out_of_order").Inc()
			return false
		}
	}
	if len(h.readings) == h.capacity {
		copy(h.readings, h.readings[1:])
		h.readings = h.readings[:h.capacity-1]
	}
	h.readings = append(h.readings, r)
	observability.HistoryPushesTotal.WithLabelValues("appended").Inc()
	return true
}

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readings = h.readings[:0]
}

// Readings returns a copy of the readings, oldest first.
func (h *History) Readings() []models.WeatherReading {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.WeatherReading, len(h.readings))
	copy(out, h.readings)
	return out
}

// Len returns the number of readings held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.readings)
}

// Capacity returns the maximum number of readings held.
func (h *History) Capacity() int {
	return h.capacity
}
