package dashboard

import (
	"strings"
	"testing"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// TestSelect verifies success passes records through and failure substitutes the sample with a warning.
func TestSelect(t *testing.T) {
	sample := []int{1, 2}
	tests := []struct {
		name        string
		outcome     models.Outcome[int]
		wantRows    []int
		wantWarning string
	}{
		{
			name:     "success",
			outcome:  models.Success([]int{7}),
			wantRows: []int{7},
		},
		{
			name:        "failure",
			outcome:     models.Failure[int]("Network/HTTP error: HTTP 500 Internal Server Error"),
			wantRows:    []int{1, 2},
			wantWarning: "Network/HTTP error: HTTP 500 Internal Server Error\nShowing sample data so the demo continues.",
		},
		{
			name:        "failure without reason",
			outcome:     models.Outcome[int]{Failed: true},
			wantRows:    []int{1, 2},
			wantWarning: "unknown error\nShowing sample data so the demo continues.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, warning := Select(tt.outcome, sample)
			if len(rows) != len(tt.wantRows) {
				t.Fatalf("rows = %v, want %v", rows, tt.wantRows)
			}
			for i := range rows {
				if rows[i] != tt.wantRows[i] {
					t.Errorf("rows[%d] = %d, want %d", i, rows[i], tt.wantRows[i])
				}
			}
			if warning != tt.wantWarning {
				t.Errorf("warning = %q, want %q", warning, tt.wantWarning)
			}
		})
	}
}

// TestSelect_SampleIsCopied verifies callers cannot mutate the sample through the returned rows.
func TestSelect_SampleIsCopied(t *testing.T) {
	sample := []int{1, 2}
	rows, _ := Select(models.Failure[int]("x"), sample)
	rows[0] = 99
	if sample[0] != 1 {
		t.Errorf("sample mutated: %v", sample)
	}
}

// TestSamples verifies the fixed sample rows.
func TestSamples(t *testing.T) {
	prices := SamplePrices()
	if len(prices) != 2 || prices[0].Coin != "bitcoin" || prices[1].Coin != "ethereum" {
		t.Fatalf("SamplePrices = %+v", prices)
	}
	if prices[0].Price.IntPart() != 68000 || prices[1].Price.IntPart() != 3500 {
		t.Errorf("sample prices = %s, %s", prices[0].Price, prices[1].Price)
	}
	weather := SampleWeather()
	if len(weather) != 1 || !strings.HasPrefix(weather[0].Timestamp.Format("2006-01-02 15:04:05"), "2024-01-01 12:00:00") {
		t.Fatalf("SampleWeather = %+v", weather)
	}
	if weather[0].Temperature != 15.0 || weather[0].WindSpeed != 10.0 {
		t.Errorf("sample weather = %+v", weather[0])
	}
}
