package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// ErrIntervalNotNumber is returned when interval is not a whole number of seconds.
var ErrIntervalNotNumber = errors.New("interval must be a whole number of seconds")

// ErrIntervalOutOfRange is returned when interval is outside 10..120 seconds.
var ErrIntervalOutOfRange = fmt.Errorf("interval must be between %d and %d seconds",
	int(models.MinRefreshInterval/time.Second), int(models.MaxRefreshInterval/time.Second))

var validate = validator.New()

// refreshControls holds the refresh query parameters of a page request.
type refreshControls struct {
	IntervalSeconds int `validate:"min=10,max=120"`
}

// ParseRefreshControls applies the refresh query parameters to current and returns the result.
//
//   - interval: seconds in 10..120; absent keeps the current interval.
//   - auto: "on" enables auto-refresh. It is only read when the control form was submitted
//     (submitted=1) or on an auto-refresh tick (tick=1), because an unchecked checkbox sends
//     nothing; plain navigation keeps the current setting.
//
// Errors are suitable for 400 INVALID_REFRESH responses.
func ParseRefreshControls(values url.Values, current models.RefreshConfig) (models.RefreshConfig, error) {
	next := current

	if raw := strings.TrimSpace(values.Get("interval")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			return current, ErrIntervalNotNumber
		}
		if err := validate.Struct(refreshControls{IntervalSeconds: secs}); err != nil {
			return current, ErrIntervalOutOfRange
		}
		next.Interval = time.Duration(secs) * time.Second
	}

	if values.Get("submitted") == "1" || values.Get("tick") == "1" {
		next.Enabled = strings.EqualFold(values.Get("auto"), "on")
	}
	return next, nil
}

// IsTick reports whether the request is an auto-refresh tick.
func IsTick(values url.Values) bool {
	return values.Get("tick") == "1"
}
