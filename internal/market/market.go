package market

import (
	"context"
	"math"
	"time"

	"tickerpulse/internal/provider"

	"github.com/shopspring/decimal"
)

// ChartSource supplies daily bars. Unknown symbols yield an empty chart
// rather than an error.
type ChartSource interface {
	DailyBars(ctx context.Context, symbol, period string) (provider.Chart, error)
	DailyBarsBetween(ctx context.Context, symbol string, from, to time.Time) (provider.Chart, error)
}

// pct is the percent change from past to cur, zero when past is zero.
func pct(cur, past float64) float64 {
	if past == 0 || math.IsNaN(past) || math.IsNaN(cur) {
		return 0
	}
	v := (cur - past) / past * 100
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
