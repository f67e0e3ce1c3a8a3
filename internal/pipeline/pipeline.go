package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"tickerpulse/internal/aggregate"
	"tickerpulse/internal/domain"
	"tickerpulse/internal/ingest"
	"tickerpulse/internal/provider"
	"tickerpulse/internal/sentiment"
	"tickerpulse/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	seriesWindow     = domain.WindowYear
	summaryPostLimit = 100
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.^=-]{1,12}$`)

type TickerValidator interface {
	Validate(ctx context.Context, symbol string) bool
}

type SourceFetcher interface {
	Fetch(ctx context.Context, req ingest.Request) ingest.SourceResult
}

type MarketMetrics interface {
	Compute(ctx context.Context, symbol, period string) domain.MetricsBundle
	TrailingYearBars(ctx context.Context, symbol string) []domain.DailyBar
}

// Summarizer condenses recent posts into a short paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, symbol string, items []domain.ContentItem) (string, error)
}

type Deps struct {
	Validator  TickerValidator
	Fetcher    SourceFetcher
	Filter     *sentiment.Filter
	Scorer     *sentiment.Scorer
	Aggregator *aggregate.Aggregator
	Metrics    MarketMetrics
	// Summarizer is optional.
	Summarizer Summarizer
	// NewPacer builds the pacer shared by every fetch against one source
	// during a search. Nil leaves pacing to the fetcher.
	NewPacer   func() provider.Pacer
}

type Pipeline struct {
	tracer trace.Tracer
	deps   Deps
	now    func() time.Time
}

func New(tracer trace.Tracer, deps Deps) *Pipeline {
	if deps.Aggregator == nil {
		policy := sentiment.PolicyNarrow
		if deps.Scorer != nil {
			policy = deps.Scorer.Policy()
		}
		deps.Aggregator = aggregate.New(policy)
	}
	return &Pipeline{tracer: tracer, deps: deps, now: time.Now}
}

// RunSearch validates the request, fetches every source concurrently and
// returns the aggregated outcome. The error is non-nil only when ctx is
// cancelled; every other failure is reported through the outcome.
func (p *Pipeline) RunSearch(ctx context.Context, symbol, windowToken string, sources []string) (domain.Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run-search")
	defer span.End()

	started := p.now()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	outcome := domain.Outcome{Symbol: symbol, GeneratedAt: started.UTC()}

	window, ok := domain.ParseWindow(windowToken)
	if !ok {
		outcome.Kind = domain.OutcomeInvalidInput
		outcome.Message = fmt.Sprintf("%v: unsupported window %q", domain.ErrInvalidInput, windowToken)
		return outcome, nil
	}
	outcome.Window = window
	if !symbolPattern.MatchString(symbol) {
		outcome.Kind = domain.OutcomeInvalidInput
		outcome.Message = fmt.Sprintf("%v: symbol %q", domain.ErrInvalidInput, symbol)
		return outcome, nil
	}
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("window", string(window)))

	sources = NormalizeSources(sources)
	if len(sources) == 0 {
		outcome.Kind = domain.OutcomeEmpty
		outcome.Message = "no sources selected"
		return outcome, nil
	}

	if !p.deps.Validator.Validate(ctx, symbol) {
		outcome.Kind = domain.OutcomeInvalidTicker
		outcome.Message = domain.ErrInvalidTicker.Error()
		return outcome, nil
	}

	pacers := p.sourcePacers(sources)
	var (
		items   []domain.ContentItem
		reports []domain.SourceReport
		metrics domain.MetricsBundle
		series  []domain.MonthlyBucket
	)
	if window == seriesWindow {
		items, reports = p.collect(ctx, symbol, window, sources, pacers)
		metrics = p.deps.Metrics.Compute(ctx, symbol, window.MarketPeriod())
		series = p.seriesFrom(ctx, symbol, items)
	} else {
		seriesCh := make(chan []domain.MonthlyBucket, 1)
		go func() {
			seriesCh <- p.monthlySeries(ctx, symbol, sources, pacers)
		}()
		items, reports = p.collect(ctx, symbol, window, sources, pacers)
		metrics = p.deps.Metrics.Compute(ctx, symbol, window.MarketPeriod())
		series = <-seriesCh
	}
	if err := ctx.Err(); err != nil {
		return domain.Outcome{}, err
	}

	result := p.deps.Aggregator.Aggregate(items, metrics)
	result.Sources = reports
	result.Monthly = series
	outcome.Result = &result

	if len(items) == 0 {
		outcome.Kind = domain.OutcomeEmpty
		outcome.Message = "no posts matched the filters"
	} else {
		outcome.Kind = domain.OutcomeOK
		result.Summary = p.summarize(ctx, symbol, items)
	}

	span.SetAttributes(attribute.Int("items", len(items)), attribute.String("kind", string(outcome.Kind)))
	logger.Info("search complete",
		zap.String("symbol", symbol),
		zap.String("window", string(window)),
		zap.Strings("sources", sources),
		zap.Int("items", len(items)),
		zap.String("kind", string(outcome.Kind)),
		zap.Duration("elapsed", p.now().Sub(started)),
	)
	return outcome, nil
}

// collect fans out one fetch per source and returns the filtered, scored
// and deduplicated items in source order.
func (p *Pipeline) collect(ctx context.Context, symbol string, window domain.Window, sources []string, pacers map[string]provider.Pacer) ([]domain.ContentItem, []domain.SourceReport) {
	ctx, span := p.tracer.Start(ctx, "pipeline.collect")
	defer span.End()
	span.SetAttributes(attribute.String("window", string(window)), attribute.Int("sources", len(sources)))

	results := make([]ingest.SourceResult, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(sources))
	for i, source := range sources {
		g.Go(func() error {
			results[i] = p.deps.Fetcher.Fetch(gctx, ingest.Request{
				Query:  symbol,
				Source: source,
				Window: window,
				Pacer:  pacers[source],
			})
			return nil
		})
	}
	_ = g.Wait()

	reports := make([]domain.SourceReport, len(results))
	var merged []domain.ContentItem
	for i, res := range results {
		kept := p.deps.Filter.Apply(res.Items)
		reports[i] = res.Report(len(kept))
		scored := p.deps.Scorer.ScoreItems(kept)
		for j := range scored {
			if scored[j].Source == "" {
				scored[j].Source = res.Source
			}
		}
		merged = append(merged, scored...)
	}
	return sentiment.Dedupe(merged), reports
}

// monthlySeries runs the trailing-year fetch alongside the headline one.
// Its failures only thin out the buckets.
func (p *Pipeline) monthlySeries(ctx context.Context, symbol string, sources []string, pacers map[string]provider.Pacer) []domain.MonthlyBucket {
	ctx, span := p.tracer.Start(ctx, "pipeline.monthly-series")
	defer span.End()

	items, _ := p.collect(ctx, symbol, seriesWindow, sources, pacers)
	return p.seriesFrom(ctx, symbol, items)
}

func (p *Pipeline) seriesFrom(ctx context.Context, symbol string, items []domain.ContentItem) []domain.MonthlyBucket {
	bars := p.deps.Metrics.TrailingYearBars(ctx, symbol)
	return aggregate.MonthlySeries(items, bars, p.now())
}

func (p *Pipeline) sourcePacers(sources []string) map[string]provider.Pacer {
	if p.deps.NewPacer == nil {
		return nil
	}
	pacers := make(map[string]provider.Pacer, len(sources))
	for _, source := range sources {
		pacers[source] = p.deps.NewPacer()
	}
	return pacers
}

func (p *Pipeline) summarize(ctx context.Context, symbol string, items []domain.ContentItem) string {
	if p.deps.Summarizer == nil {
		return ""
	}
	recent := make([]domain.ContentItem, len(items))
	copy(recent, items)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].CreatedAt.After(recent[j].CreatedAt) })
	if len(recent) > summaryPostLimit {
		recent = recent[:summaryPostLimit]
	}

	summary, err := p.deps.Summarizer.Summarize(ctx, symbol, recent)
	if err != nil {
		logger.Warn("post summary failed", zap.String("symbol", symbol), zap.Error(err))
		return ""
	}
	return summary
}

// NormalizeSources trims names, strips an optional r/ prefix and drops
// blanks and duplicates while keeping order.
func NormalizeSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(strings.TrimPrefix(s, "/"), "r/")
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
