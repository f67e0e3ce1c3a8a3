package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tickerpulse/internal/cache"
	"tickerpulse/internal/provider"
	"tickerpulse/pkg/logger"

	"go.uber.org/zap"
)

const defaultChartTTL = 10 * time.Minute

// CachedSource keeps recent charts in redis. Empty charts are not cached
// so a transient provider hiccup does not pin a symbol as unknown.
type CachedSource struct {
	next  ChartSource
	store cache.Store
	ttl   time.Duration
}

func NewCachedSource(next ChartSource, store cache.Store, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = defaultChartTTL
	}
	return &CachedSource{next: next, store: store, ttl: ttl}
}

func (c *CachedSource) DailyBars(ctx context.Context, symbol, period string) (provider.Chart, error) {
	key := fmt.Sprintf("chart:%s:%s", strings.ToUpper(strings.TrimSpace(symbol)), period)
	return c.load(ctx, key, func() (provider.Chart, error) {
		return c.next.DailyBars(ctx, symbol, period)
	})
}

func (c *CachedSource) DailyBarsBetween(ctx context.Context, symbol string, from, to time.Time) (provider.Chart, error) {
	key := fmt.Sprintf("chart:%s:%s:%s",
		strings.ToUpper(strings.TrimSpace(symbol)),
		from.UTC().Format("2006-01-02"),
		to.UTC().Format("2006-01-02"),
	)
	return c.load(ctx, key, func() (provider.Chart, error) {
		return c.next.DailyBarsBetween(ctx, symbol, from, to)
	})
}

func (c *CachedSource) load(ctx context.Context, key string, fetch func() (provider.Chart, error)) (provider.Chart, error) {
	if c.store != nil {
		var cached provider.Chart
		found, err := cache.GetJSON(ctx, c.store, key, &cached)
		if err != nil {
			logger.Warn("chart cache read failed", zap.String("key", key), zap.Error(err))
		}
		if found {
			return cached, nil
		}
	}

	chart, err := fetch()
	if err != nil {
		return chart, err
	}
	if c.store != nil && chart.Symbol != "" && len(chart.Bars) > 0 {
		if err := cache.SetJSON(ctx, c.store, key, chart, c.ttl); err != nil {
			logger.Warn("chart cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return chart, nil
}
