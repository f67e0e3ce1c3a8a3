package market

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"tickerpulse/internal/domain"
	"tickerpulse/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

type fakeCharts struct {
	symbol    string
	byPeriod  map[string][]domain.DailyBar
	between   []domain.DailyBar
	err       error
	calls     int
	lastRange [2]time.Time
	symbols   []string
}

func (f *fakeCharts) DailyBars(_ context.Context, symbol, period string) (provider.Chart, error) {
	f.calls++
	f.symbols = append(f.symbols, symbol)
	if f.err != nil {
		return provider.Chart{}, f.err
	}
	return provider.Chart{Symbol: f.symbol, Bars: f.byPeriod[period]}, nil
}

func (f *fakeCharts) DailyBarsBetween(_ context.Context, symbol string, from, to time.Time) (provider.Chart, error) {
	f.calls++
	f.symbols = append(f.symbols, symbol)
	f.lastRange = [2]time.Time{from, to}
	if f.err != nil {
		return provider.Chart{}, f.err
	}
	return provider.Chart{Symbol: f.symbol, Bars: f.between}, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		charts *fakeCharts
		input  string
		want   bool
	}{
		{"canonical match", &fakeCharts{symbol: "TSLA"}, "tsla", true},
		{"unknown symbol", &fakeCharts{symbol: ""}, "FAKE123", false},
		{"different canonical", &fakeCharts{symbol: "BRK-B"}, "BRK", false},
		{"provider error", &fakeCharts{err: errors.New("timeout")}, "TSLA", false},
		{"blank input", &fakeCharts{symbol: "TSLA"}, "  ", false},
	}
	for _, tc := range cases {
		v := NewValidator(testTracer, tc.charts)
		if got := v.Validate(context.Background(), tc.input); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestComputeMetrics(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
	charts := &fakeCharts{
		symbol: "TSLA",
		byPeriod: map[string][]domain.DailyBar{
			"5d": {
				{Date: day(2026, 3, 12), Close: 190, Volume: 900},
				{Date: day(2026, 3, 13), Close: 200, Volume: 1500},
			},
			"1mo": {
				{Date: day(2026, 3, 11), Close: 100},
				{Date: day(2026, 3, 12), Close: 110},
				{Date: day(2026, 3, 13), Close: 99},
			},
		},
		between: []domain.DailyBar{
			{Date: day(2026, 2, 10), Close: 150, Volume: 1000},
			{Date: day(2026, 2, 12), Close: 160, Volume: 1200},
			{Date: day(2026, 2, 13), Close: 999, Volume: 1},
		},
	}
	m := NewMetrics(testTracer, charts)
	m.now = func() time.Time { return now }

	b := m.Compute(context.Background(), "tsla", "1mo")
	if b.Symbol != "TSLA" || b.Period != "1mo" {
		t.Fatalf("unexpected identity: %+v", b)
	}
	if b.LastClose != 200 || b.LastVolume != 1500 {
		t.Fatalf("unexpected latest slice: %+v", b)
	}
	// reference is 2026-02-12, the last trading day on or before now-31d
	if b.PriceChangePct != 25 || b.VolumeChangePct != 25 {
		t.Fatalf("unexpected reference changes: %+v", b)
	}
	// (+10% and -10%) / 2
	if b.AvgDailyChangePct != 0 {
		t.Fatalf("expected mean daily change 0, got %v", b.AvgDailyChangePct)
	}
	if !charts.lastRange[1].Equal(now.AddDate(0, 0, -31)) {
		t.Fatalf("unexpected reference window end: %v", charts.lastRange[1])
	}
}

func TestComputeMetricsZeroPast(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	charts := &fakeCharts{
		symbol: "PENNY",
		byPeriod: map[string][]domain.DailyBar{
			"5d":  {{Date: day(2026, 3, 13), Close: 1.234, Volume: 10}},
			"1mo": {{Date: day(2026, 3, 12), Close: 0}, {Date: day(2026, 3, 13), Close: 1}},
		},
		between: []domain.DailyBar{{Date: day(2026, 2, 12), Close: 0, Volume: 0}},
	}
	m := NewMetrics(testTracer, charts)
	m.now = func() time.Time { return now }

	b := m.Compute(context.Background(), "PENNY", "1mo")
	if b.PriceChangePct != 0 || b.VolumeChangePct != 0 || b.AvgDailyChangePct != 0 {
		t.Fatalf("expected zero changes for zero past values, got %+v", b)
	}
	if b.LastClose != 1.23 {
		t.Fatalf("expected rounding to 2dp, got %v", b.LastClose)
	}
	for _, v := range []float64{b.AvgDailyChangePct, b.LastClose, b.LastVolume, b.PriceChangePct, b.VolumeChangePct} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("non-finite value in bundle: %+v", b)
		}
	}
}

func TestComputeMetricsDelisted(t *testing.T) {
	for _, charts := range []*fakeCharts{{}, {err: errors.New("upstream down")}} {
		b := NewMetrics(testTracer, charts).Compute(context.Background(), "GONE", "1y")
		want := domain.MetricsBundle{Symbol: "GONE", Period: "1y"}
		if b != want {
			t.Fatalf("expected zero-filled bundle, got %+v", b)
		}
	}
}

func TestTrailingYearBarsRange(t *testing.T) {
	charts := &fakeCharts{symbol: "TSLA", between: []domain.DailyBar{{Date: day(2025, 5, 1), Close: 1}}}
	m := NewMetrics(testTracer, charts)
	m.now = func() time.Time { return time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC) }

	bars := m.TrailingYearBars(context.Background(), "TSLA")
	if len(bars) != 1 {
		t.Fatalf("expected provider bars to pass through, got %d", len(bars))
	}
	if !charts.lastRange[0].Equal(day(2025, 5, 1)) {
		t.Fatalf("expected range to start 2025-05-01, got %v", charts.lastRange[0])
	}
}

func TestTrailingYearBarsNormalizesSymbol(t *testing.T) {
	charts := &fakeCharts{symbol: "TSLA"}
	m := NewMetrics(testTracer, charts)

	m.TrailingYearBars(context.Background(), "  tsla ")
	if len(charts.symbols) != 1 || charts.symbols[0] != "TSLA" {
		t.Fatalf("expected upstream lookup for TSLA, got %q", charts.symbols)
	}
}

func TestPctAndRound(t *testing.T) {
	if pct(10, 0) != 0 {
		t.Fatalf("expected zero for zero past")
	}
	if pct(110, 100) != 10 {
		t.Fatalf("unexpected pct")
	}
	if round2(2.345) != 2.35 || round2(-3.14159) != -3.14 {
		t.Fatalf("unexpected rounding: %v %v", round2(2.345), round2(-3.14159))
	}
	if round2(math.Inf(1)) != 0 || round2(math.NaN()) != 0 {
		t.Fatalf("expected non-finite values to collapse to zero")
	}
}
