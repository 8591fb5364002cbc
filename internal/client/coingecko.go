package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// SourceCoinGecko is the metric and cache label for the price source.
const SourceCoinGecko = "coingecko"

// CoinGeckoConfig configures the simple/price endpoint.
type CoinGeckoConfig struct {
	URL       string // full endpoint, e.g. https://api.coingecko.com/api/v3/simple/price
	Coins     []string
	Currency  string
	UserAgent string
	Timeout   time.Duration
}

// CoinGeckoClient fetches current prices for a fixed coin list.
type CoinGeckoClient struct {
	httpSource
	url      string
	coins    []string
	currency string
}

// NewCoinGeckoClient validates cfg and returns a client. Coin ids and currency are lowercased.
func NewCoinGeckoClient(cfg CoinGeckoConfig) (*CoinGeckoClient, error) {
	if _, err := url.ParseRequestURI(cfg.URL); err != nil {
		return nil, fmt.Errorf("coingecko url: %w", err)
	}
	coins := make([]string, 0, len(cfg.Coins))
	for _, c := range cfg.Coins {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			coins = append(coins, c)
		}
	}
	if len(coins) == 0 {
		return nil, errors.New("coingecko: at least one coin is required")
	}
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		return nil, errors.New("coingecko: currency is required")
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "live-dashboard/1.0"
	}
	return &CoinGeckoClient{
		httpSource: newHTTPSource(SourceCoinGecko, cfg.Timeout, map[string]string{
			"User-Agent": ua,
			"Accept":     "application/json",
		}),
		url:      cfg.URL,
		coins:    coins,
		currency: currency,
	}, nil
}

// Source implements Fetcher.
func (c *CoinGeckoClient) Source() string { return SourceCoinGecko }

// Currency returns the quote currency code (lowercase).
func (c *CoinGeckoClient) Currency() string { return c.currency }

// CacheKey identifies this client's fixed query.
func (c *CoinGeckoClient) CacheKey() string {
	return "prices:" + strings.Join(c.coins, ",") + ":" + c.currency
}

// RequestURL builds the query URL. Commas in the id list are left unescaped.
func (c *CoinGeckoClient) RequestURL() string {
	ids := make([]string, len(c.coins))
	for i, coin := range c.coins {
		ids[i] = url.QueryEscape(coin)
	}
	return c.url + "?ids=" + strings.Join(ids, ",") + "&vs_currencies=" + url.QueryEscape(c.currency)
}

// Fetch implements Fetcher.
func (c *CoinGeckoClient) Fetch(ctx context.Context) models.Outcome[models.PriceQuote] {
	quotes, err := c.GetPrices(ctx)
	c.record(err)
	if err != nil {
		return fail[models.PriceQuote](SourceCoinGecko, err)
	}
	return models.Success(quotes)
}

// GetPrices returns one quote per configured coin present in the response, in configured order.
func (c *CoinGeckoClient) GetPrices(ctx context.Context) ([]models.PriceQuote, error) {
	// Pointers so a null price reads as missing instead of zero.
	var payload map[string]map[string]*decimal.Decimal
	if err := c.getJSON(ctx, c.RequestURL(), &payload); err != nil {
		return nil, err
	}

	quotes := make([]models.PriceQuote, 0, len(c.coins))
	for _, coin := range c.coins {
		price := payload[coin][c.currency]
		if price == nil {
			continue
		}
		quotes = append(quotes, models.PriceQuote{Coin: coin, Currency: c.currency, Price: *price})
	}
	if len(quotes) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("no %s prices for %s", c.currency, strings.Join(c.coins, ","))}
	}
	return quotes, nil
}
