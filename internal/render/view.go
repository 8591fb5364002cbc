package render

import "github.com/kjstillabower/live-dashboard/internal/models"

// View is everything one page render needs. Building the same View twice renders the
// same bytes.
type View struct {
	Page    string // route name, e.g. "prices"
	Title   string
	Warning string
	Table   Table
	Charts  []Chart

	RefreshedAt string // HH:MM:SS
	DataPoints  int
	ShowCount   bool

	Refresh     models.RefreshConfig
	MinInterval int
	MaxInterval int
	// HistoryEnabled shows the clear-history control.
	HistoryEnabled bool
}

// AutoRefresh reports whether the page should schedule its next tick.
func (v View) AutoRefresh() bool {
	return v.Refresh.Enabled
}
