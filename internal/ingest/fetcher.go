package ingest

import (
	"context"
	"fmt"
	"strings"

	"tickerpulse/internal/domain"
	"tickerpulse/internal/provider"
	"tickerpulse/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultResultCap = 1000
	DefaultPageSize  = 100
	DefaultSort      = "top"
)

// PageSource returns one page of search results per call.
type PageSource interface {
	SearchPage(ctx context.Context, req provider.PageRequest) (domain.FetchPage, error)
}

// Request describes a paginated search against one source.
type Request struct {
	Query    string
	Source   string
	Window   domain.Window
	Sort     string
	Cap      int
	PageSize int
	// Pacer is shared with other runs against the same source. When set
	// it is waited on before every page, the first included.
	Pacer    provider.Pacer
}

// SourceResult is everything one source produced. Items are kept in the
// source's ranking even when Status is SourceFailed.
type SourceResult struct {
	Source string
	Items  []domain.RawItem
	Status domain.SourceStatus
	Err    error
}

// Report summarizes the result for API output.
func (r SourceResult) Report(retained int) domain.SourceReport {
	report := domain.SourceReport{
		Source:   r.Source,
		Status:   r.Status,
		Fetched:  len(r.Items),
		Retained: retained,
	}
	if r.Err != nil {
		report.Error = r.Err.Error()
	}
	return report
}

type Config struct {
	ResultCap int
	PageSize  int
	Sort      string
	Backoff   provider.Backoff
	// NewPacer builds the pacer for one source run. Nil disables pacing.
	NewPacer func() provider.Pacer
}

type Fetcher struct {
	tracer trace.Tracer
	pages  PageSource
	cfg    Config
}

func NewFetcher(tracer trace.Tracer, pages PageSource, cfg Config) *Fetcher {
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = DefaultResultCap
	}
	if cfg.PageSize <= 0 || cfg.PageSize > DefaultPageSize {
		cfg.PageSize = DefaultPageSize
	}
	if strings.TrimSpace(cfg.Sort) == "" {
		cfg.Sort = DefaultSort
	}
	if cfg.NewPacer == nil {
		cfg.NewPacer = func() provider.Pacer { return provider.NoPacer{} }
	}
	return &Fetcher{tracer: tracer, pages: pages, cfg: cfg}
}

// Fetch walks the source's pages until a page is empty, the cap is
// reached or no cursor comes back. A failed page ends the walk and the
// items gathered so far are returned with a failed status.
func (f *Fetcher) Fetch(ctx context.Context, req Request) SourceResult {
	ctx, span := f.tracer.Start(ctx, "ingest.fetch")
	defer span.End()

	req = f.withDefaults(req)
	span.SetAttributes(
		attribute.String("source", req.Source),
		attribute.String("window", string(req.Window)),
		attribute.Int("cap", req.Cap),
	)

	result := SourceResult{Source: req.Source, Status: domain.SourceEmpty}
	if f.pages == nil {
		result.Status = domain.SourceFailed
		result.Err = fmt.Errorf("%w: no page source configured", domain.ErrSourceUnavailable)
		return result
	}

	pacer, shared := req.Pacer, req.Pacer != nil
	if !shared {
		pacer = f.cfg.NewPacer()
	}
	cursor := ""
	for page := 0; ; page++ {
		if page > 0 || shared {
			if err := pacer.Wait(ctx); err != nil {
				return f.fail(result, req, err)
			}
		}

		var got domain.FetchPage
		err := f.cfg.Backoff.Retry(ctx, func(ctx context.Context) error {
			var err error
			got, err = f.pages.SearchPage(ctx, provider.PageRequest{
				Query:    req.Query,
				Scope:    req.Source,
				Sort:     req.Sort,
				Window:   req.Window,
				PageSize: req.PageSize,
				After:    cursor,
			})
			return err
		})
		if err != nil {
			return f.fail(result, req, err)
		}
		if len(got.Items) == 0 {
			break
		}

		for _, item := range got.Items {
			if item.Source == "" {
				item.Source = req.Source
			}
			result.Items = append(result.Items, item)
		}
		if len(result.Items) >= req.Cap {
			result.Items = result.Items[:req.Cap]
			break
		}
		if got.Cursor == "" {
			break
		}
		cursor = got.Cursor
	}

	if len(result.Items) > 0 {
		result.Status = domain.SourceOK
	}
	span.SetAttributes(attribute.Int("items", len(result.Items)))
	logger.Debug("source fetched",
		zap.String("source", req.Source),
		zap.String("query", req.Query),
		zap.Int("items", len(result.Items)),
	)
	return result
}

func (f *Fetcher) fail(result SourceResult, req Request, err error) SourceResult {
	result.Status = domain.SourceFailed
	result.Err = fmt.Errorf("%w: %s: %v", domain.ErrSourceUnavailable, req.Source, err)
	logger.Warn("source fetch aborted",
		zap.String("source", req.Source),
		zap.String("query", req.Query),
		zap.Int("partial_items", len(result.Items)),
		zap.Error(err),
	)
	return result
}

func (f *Fetcher) withDefaults(req Request) Request {
	req.Source = strings.TrimSpace(req.Source)
	if req.Cap <= 0 {
		req.Cap = f.cfg.ResultCap
	}
	if req.PageSize <= 0 || req.PageSize > DefaultPageSize {
		req.PageSize = f.cfg.PageSize
	}
	if strings.TrimSpace(req.Sort) == "" {
		req.Sort = f.cfg.Sort
	}
	if req.Window == "" {
		req.Window = domain.WindowAll
	}
	return req
}
