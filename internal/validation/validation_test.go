package validation

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// TestParseRefreshControls verifies interval bounds and when the auto flag is read.
func TestParseRefreshControls(t *testing.T) {
	current := models.RefreshConfig{Interval: 30 * time.Second, Enabled: true}
	tests := []struct {
		name    string
		query   string
		want    models.RefreshConfig
		wantErr error
	}{
		{name: "no params keeps state", query: "", want: current},
		{name: "interval only keeps enabled", query: "interval=60", want: models.RefreshConfig{Interval: 60 * time.Second, Enabled: true}},
		{name: "form submitted without auto disables", query: "submitted=1&interval=45", want: models.RefreshConfig{Interval: 45 * time.Second}},
		{name: "form submitted with auto", query: "submitted=1&interval=10&auto=on", want: models.RefreshConfig{Interval: 10 * time.Second, Enabled: true}},
		{name: "tick carries controls", query: "tick=1&interval=120&auto=on", want: models.RefreshConfig{Interval: 120 * time.Second, Enabled: true}},
		{name: "interval too small", query: "interval=9", want: current, wantErr: ErrIntervalOutOfRange},
		{name: "interval too large", query: "interval=121", want: current, wantErr: ErrIntervalOutOfRange},
		{name: "interval not a number", query: "interval=soon", want: current, wantErr: ErrIntervalNotNumber},
		{name: "fractional interval", query: "interval=12.5", want: current, wantErr: ErrIntervalNotNumber},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("ParseQuery: %v", err)
			}
			got, err := ParseRefreshControls(values, current)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

// TestIsTick verifies tick detection.
func TestIsTick(t *testing.T) {
	if !IsTick(url.Values{"tick": {"1"}}) {
		t.Error("tick=1 not detected")
	}
	if IsTick(url.Values{"interval": {"30"}}) {
		t.Error("plain request detected as tick")
	}
}
