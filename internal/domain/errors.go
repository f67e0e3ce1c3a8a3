package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidTicker         = errors.New("ticker not found")
	ErrSourceUnavailable     = errors.New("content source unavailable")
	ErrMarketDataUnavailable = errors.New("market data unavailable")
)
