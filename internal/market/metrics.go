package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tickerpulse/internal/domain"
	"tickerpulse/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	latestPeriod    = "5d"
	referenceDays   = 31
	referenceLookup = 10 * 24 * time.Hour
)

type Metrics struct {
	tracer trace.Tracer
	charts ChartSource
	now    func() time.Time
}

func NewMetrics(tracer trace.Tracer, charts ChartSource) *Metrics {
	return &Metrics{tracer: tracer, charts: charts, now: time.Now}
}

// Compute builds the bundle for symbol over period. Any slice the
// provider cannot serve leaves its fields at zero.
func (m *Metrics) Compute(ctx context.Context, symbol, period string) domain.MetricsBundle {
	ctx, span := m.tracer.Start(ctx, "market.compute-metrics")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("period", period))
	bundle := domain.MetricsBundle{Symbol: symbol, Period: period}
	if m.charts == nil || symbol == "" {
		return bundle
	}
	now := m.now().UTC()

	var latest, reference *domain.DailyBar
	if bars := m.bars(ctx, symbol, "latest", func() ([]domain.DailyBar, error) {
		chart, err := m.charts.DailyBars(ctx, symbol, latestPeriod)
		return chart.Bars, err
	}); len(bars) > 0 {
		latest = &bars[len(bars)-1]
	}

	refDate := now.AddDate(0, 0, -referenceDays)
	if bars := m.bars(ctx, symbol, "reference", func() ([]domain.DailyBar, error) {
		chart, err := m.charts.DailyBarsBetween(ctx, symbol, refDate.Add(-referenceLookup), refDate)
		return chart.Bars, err
	}); len(bars) > 0 {
		reference = nearestNotAfter(bars, refDate)
	}

	periodBars := m.bars(ctx, symbol, "period", func() ([]domain.DailyBar, error) {
		chart, err := m.charts.DailyBars(ctx, symbol, period)
		return chart.Bars, err
	})

	if latest != nil {
		bundle.LastClose = round2(latest.Close)
		bundle.LastVolume = round2(latest.Volume)
		if reference != nil {
			bundle.PriceChangePct = round2(pct(latest.Close, reference.Close))
			bundle.VolumeChangePct = round2(pct(latest.Volume, reference.Volume))
		}
	}
	bundle.AvgDailyChangePct = round2(avgDailyChange(periodBars))
	return bundle
}

// TrailingYearBars returns daily bars from the first day of the month
// eleven months before now through now.
func (m *Metrics) TrailingYearBars(ctx context.Context, symbol string) []domain.DailyBar {
	ctx, span := m.tracer.Start(ctx, "market.trailing-year-bars")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	now := m.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	return m.bars(ctx, symbol, "trailing-year", func() ([]domain.DailyBar, error) {
		chart, err := m.charts.DailyBarsBetween(ctx, symbol, from, now)
		return chart.Bars, err
	})
}

func (m *Metrics) bars(ctx context.Context, symbol, slice string, fetch func() ([]domain.DailyBar, error)) []domain.DailyBar {
	if m.charts == nil {
		return nil
	}
	bars, err := fetch()
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrMarketDataUnavailable, err)
		logger.Warn("market data slice unavailable",
			zap.String("symbol", symbol),
			zap.String("slice", slice),
			zap.Error(err),
		)
		return nil
	}
	return bars
}

// nearestNotAfter picks the last bar dated on or before ref. bars must be
// ascending.
func nearestNotAfter(bars []domain.DailyBar, ref time.Time) *domain.DailyBar {
	var found *domain.DailyBar
	for i := range bars {
		if bars[i].Date.After(ref) {
			break
		}
		found = &bars[i]
	}
	return found
}

// avgDailyChange is the mean day-over-day percent change of closes.
func avgDailyChange(bars []domain.DailyBar) float64 {
	if len(bars) < 2 {
		return 0
	}
	sum := 0.0
	for i := 1; i < len(bars); i++ {
		sum += pct(bars[i].Close, bars[i-1].Close)
	}
	return sum / float64(len(bars)-1)
}
