package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/live-dashboard/internal/models"
	"github.com/kjstillabower/live-dashboard/internal/observability"
	"github.com/kjstillabower/live-dashboard/internal/render"
)

// Source is a cached upstream as seen by a page.
type Source[T any] interface {
	Source() string
	GetOrFetch(ctx context.Context) models.Outcome[T]
	Invalidate(ctx context.Context) error
}

// Controller runs one refresh cycle for a page.
type Controller interface {
	Name() string
	// Cycle invalidates the cache when force is set, then fetches, selects, records history
	// and returns the view to render. Callers hold the session lock.
	Cycle(ctx context.Context, st *PageState, force bool) render.View
}

// Page is a Controller over one cached source.
type Page[T any] struct {
	name    string
	title   string
	source  Source[T]
	sample  func() []T
	table   func([]T) render.Table
	charts  []func([]T) (render.Chart, error)
	display func(st *PageState, rows []T, ok bool) []T
	history bool
	now     func() time.Time
	logger  *zap.Logger
}

// NewPricesPage builds the prices page. currency labels the table column and chart.
func NewPricesPage(src Source[models.PriceQuote], currency string, logger *zap.Logger) *Page[models.PriceQuote] {
	return &Page[models.PriceQuote]{
		name:   PagePrices,
		title:  "Crypto Prices",
		source: src,
		sample: SamplePrices,
		table: func(rows []models.PriceQuote) render.Table {
			return render.PriceTable(rows, quoteCurrency(rows, currency))
		},
		charts: []func([]models.PriceQuote) (render.Chart, error){
			func(rows []models.PriceQuote) (render.Chart, error) {
				return render.PriceChart(rows, quoteCurrency(rows, currency))
			},
		},
		display: func(_ *PageState, rows []models.PriceQuote, _ bool) []models.PriceQuote { return rows },
		now:     time.Now,
		logger:  logger,
	}
}

// quoteCurrency returns the currency the rows are priced in. Sample rows are always usd,
// whatever currency is configured.
func quoteCurrency(rows []models.PriceQuote, configured string) string {
	if len(rows) > 0 && rows[0].Currency != "" {
		return rows[0].Currency
	}
	return configured
}

// NewWeatherPage builds the weather page. With historyEnabled, successful readings
// accumulate in the session history and the history is what gets displayed.
func NewWeatherPage(src Source[models.WeatherReading], historyEnabled bool, logger *zap.Logger) *Page[models.WeatherReading] {
	p := &Page[models.WeatherReading]{
		name:    PageWeather,
		title:   "Current Weather",
		source:  src,
		sample:  SampleWeather,
		table:   render.WeatherTable,
		charts:  []func([]models.WeatherReading) (render.Chart, error){render.TemperatureChart, render.WindChart},
		history: historyEnabled,
		now:     time.Now,
		logger:  logger,
	}
	p.display = func(st *PageState, rows []models.WeatherReading, ok bool) []models.WeatherReading {
		if !p.history || st.History == nil {
			return rows
		}
		if ok {
			for _, r := range rows {
				st.History.Push(r)
			}
		}
		if st.History.Len() > 0 {
			return st.History.Readings()
		}
		return rows
	}
	return p
}

// SetClock replaces the clock used for the refreshed-at caption. For tests.
func (p *Page[T]) SetClock(now func() time.Time) {
	p.now = now
}

// Name returns the page's route name.
func (p *Page[T]) Name() string {
	return p.name
}

// HistoryEnabled reports whether the page keeps a session history.
func (p *Page[T]) HistoryEnabled() bool {
	return p.history
}

// Cycle implements Controller.
func (p *Page[T]) Cycle(ctx context.Context, st *PageState, force bool) render.View {
	refresh := st.Refresh
	trigger := "manual"
	if force {
		trigger = "auto"
		if err := p.source.Invalidate(ctx); err != nil {
			p.logger.Warn("cache invalidate failed", zap.String("page", p.name), zap.Error(err))
		}
	}
	observability.RefreshCyclesTotal.WithLabelValues(p.name, trigger).Inc()

	outcome := p.source.GetOrFetch(ctx)
	rows, warning := Select(outcome, p.sample())
	if !outcome.OK() {
		observability.FallbackServedTotal.WithLabelValues(p.source.Source()).Inc()
		p.logger.Warn("serving sample data",
			zap.String("page", p.name),
			zap.String("source", p.source.Source()),
			zap.String("reason", outcome.Reason))
	}
	shown := p.display(st, rows, outcome.OK())

	view := render.View{
		Page:           p.name,
		Title:          p.title,
		Warning:        warning,
		Table:          p.table(shown),
		RefreshedAt:    p.now().Format("15:04:05"),
		DataPoints:     len(shown),
		ShowCount:      p.history,
		Refresh:        refresh,
		MinInterval:    int(models.MinRefreshInterval / time.Second),
		MaxInterval:    int(models.MaxRefreshInterval / time.Second),
		HistoryEnabled: p.history,
	}
	for _, build := range p.charts {
		chart, err := build(shown)
		if err != nil {
			p.logger.Warn("chart skipped", zap.String("page", p.name), zap.Error(err))
			continue
		}
		view.Charts = append(view.Charts, chart)
	}
	return view
}
