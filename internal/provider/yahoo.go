package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tickerpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	defaultYahooUA = "Mozilla/5.0 (compatible; ticker-pulse/1.0)"
)

// Chart is a daily price table for one symbol. Symbol is the provider's
// canonical spelling and is empty when the provider has no such ticker.
type Chart struct {
	Symbol string            `json:"symbol"`
	Bars   []domain.DailyBar `json:"bars"`
}

// YahooProvider reads daily bars from the Yahoo Finance chart API.
type YahooProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	tracer    trace.Tracer
	limiter   *rate.Limiter
}

// NewYahooProvider allows four requests per second with a small burst,
// shared across every caller of the provider.
func NewYahooProvider(tracer trace.Tracer, baseURL string) *YahooProvider {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = yahooBaseURL
	}
	return &YahooProvider{
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: defaultYahooUA,
		tracer:    tracer,
		limiter:   rate.NewLimiter(rate.Every(250*time.Millisecond), 4),
	}
}

// DailyBars fetches daily rows for a range token such as 1mo, 1y or max.
func (p *YahooProvider) DailyBars(ctx context.Context, symbol, period string) (Chart, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.daily-bars")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("period", period))

	params := url.Values{}
	params.Set("range", period)
	params.Set("interval", "1d")
	return p.fetchChart(ctx, symbol, params)
}

// DailyBarsBetween fetches daily rows in [from, to].
func (p *YahooProvider) DailyBarsBetween(ctx context.Context, symbol string, from, to time.Time) (Chart, error) {
	ctx, span := p.tracer.Start(ctx, "yahoo.daily-bars-between")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(from.UTC().Unix(), 10))
	params.Set("period2", strconv.FormatInt(to.UTC().Unix(), 10))
	params.Set("interval", "1d")
	return p.fetchChart(ctx, symbol, params)
}

func (p *YahooProvider) fetchChart(ctx context.Context, symbol string, params url.Values) (Chart, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Chart{}, fmt.Errorf("symbol is required")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return Chart{}, fmt.Errorf("rate limit wait: %w", err)
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Chart{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Chart{}, err
	}
	defer resp.Body.Close()

	// Unknown or delisted symbols come back as 404 with an error body.
	if resp.StatusCode == http.StatusNotFound {
		return Chart{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Chart{}, &StatusError{Source: "yahoo", Code: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		Chart struct {
			Result []struct {
				Meta struct {
					Symbol string `json:"symbol"`
				} `json:"meta"`
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close  []*float64 `json:"close"`
						Volume []*float64 `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Chart{}, fmt.Errorf("decode yahoo chart: %w", err)
	}
	if len(payload.Chart.Result) == 0 {
		return Chart{}, nil
	}

	result := payload.Chart.Result[0]
	chart := Chart{Symbol: strings.TrimSpace(result.Meta.Symbol)}
	if len(result.Indicators.Quote) == 0 {
		return chart, nil
	}
	quote := result.Indicators.Quote[0]

	chart.Bars = make([]domain.DailyBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue
		}
		volume := 0.0
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}
		t := time.Unix(ts, 0).UTC()
		chart.Bars = append(chart.Bars, domain.DailyBar{
			Date:   time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Close:  *quote.Close[i],
			Volume: volume,
		})
	}
	sort.SliceStable(chart.Bars, func(i, j int) bool { return chart.Bars[i].Date.Before(chart.Bars[j].Date) })
	return chart, nil
}
