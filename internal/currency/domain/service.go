// Package domain defines the currency conversion contract. Rates are
// expressed relative to USD.
package domain

import (
	"context"
	"errors"
)

// Currency is a supported currency with its USD-relative rate.
type Currency struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}

type ConvertRequest struct {
	Amount int64  `json:"amount"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type ConvertResponse struct {
	Amount    int64   `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Rate      float64 `json:"rate"`
	Converted int64   `json:"converted"`
}

type Service interface {
	List(ctx context.Context) ([]Currency, error)
	// Rate returns the multiplier that converts an amount in from-currency
	// into to-currency.
	Rate(ctx context.Context, from, to string) (float64, error)
	Convert(ctx context.Context, req ConvertRequest) (ConvertResponse, error)
}

var (
	ErrUnknownCurrency = errors.New("unknown_currency")
	ErrInvalidAmount   = errors.New("invalid_amount")
)
