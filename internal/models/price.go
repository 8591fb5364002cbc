package models

import "github.com/shopspring/decimal"

// PriceQuote is the price of one coin in one fiat currency.
type PriceQuote struct {
	Coin     string          `json:"coin"`
	Currency string          `json:"currency"`
	Price    decimal.Decimal `json:"price"`
}
