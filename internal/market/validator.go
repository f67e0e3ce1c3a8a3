package market

import (
	"context"
	"strings"

	"tickerpulse/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const validationPeriod = "5d"

type Validator struct {
	tracer trace.Tracer
	charts ChartSource
}

func NewValidator(tracer trace.Tracer, charts ChartSource) *Validator {
	return &Validator{tracer: tracer, charts: charts}
}

// Validate reports whether the market-data provider knows symbol under
// the same canonical spelling, ignoring case. Provider errors count as
// unknown.
func (v *Validator) Validate(ctx context.Context, symbol string) bool {
	ctx, span := v.tracer.Start(ctx, "market.validate")
	defer span.End()

	symbol = strings.TrimSpace(symbol)
	span.SetAttributes(attribute.String("symbol", symbol))
	if symbol == "" || v.charts == nil {
		return false
	}

	chart, err := v.charts.DailyBars(ctx, symbol, validationPeriod)
	if err != nil {
		logger.Warn("ticker validation failed", zap.String("symbol", symbol), zap.Error(err))
		return false
	}
	ok := chart.Symbol != "" && strings.EqualFold(chart.Symbol, symbol)
	span.SetAttributes(attribute.Bool("valid", ok))
	return ok
}
