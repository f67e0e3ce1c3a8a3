package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"tickerpulse/internal/domain"
	"tickerpulse/internal/provider"

	"go.opentelemetry.io/otel/trace"
)

type scriptedPages struct {
	pages   []domain.FetchPage
	errs    map[int]error
	calls   int
	cursors []string
}

func (s *scriptedPages) SearchPage(_ context.Context, req provider.PageRequest) (domain.FetchPage, error) {
	idx := s.calls
	s.calls++
	s.cursors = append(s.cursors, req.After)
	if err, ok := s.errs[idx]; ok {
		return domain.FetchPage{}, err
	}
	if idx >= len(s.pages) {
		return domain.FetchPage{}, nil
	}
	return s.pages[idx], nil
}

type countingPacer struct{ waits *int }

func (p countingPacer) Wait(ctx context.Context) error {
	*p.waits++
	return ctx.Err()
}

func makeItems(prefix string, n int) []domain.RawItem {
	items := make([]domain.RawItem, n)
	for i := range items {
		items[i] = domain.RawItem{ID: fmt.Sprintf("%s%d", prefix, i), URL: fmt.Sprintf("https://r/%s/%d", prefix, i)}
	}
	return items
}

func newTestFetcher(pages PageSource, waits *int) *Fetcher {
	return NewFetcher(trace.NewNoopTracerProvider().Tracer("test"), pages, Config{
		NewPacer: func() provider.Pacer { return countingPacer{waits: waits} },
		Backoff:  provider.Backoff{MaxAttempts: 1},
	})
}

func TestFetchFollowsCursorUntilExhausted(t *testing.T) {
	src := &scriptedPages{pages: []domain.FetchPage{
		{Cursor: "c1", Items: makeItems("a", 3)},
		{Cursor: "c2", Items: makeItems("b", 2)},
		{Cursor: "", Items: makeItems("c", 1)},
	}}
	waits := 0
	res := newTestFetcher(src, &waits).Fetch(context.Background(), Request{Query: "TSLA", Source: "stocks"})

	if res.Status != domain.SourceOK || res.Err != nil {
		t.Fatalf("unexpected status %s err %v", res.Status, res.Err)
	}
	if len(res.Items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(res.Items))
	}
	if res.Items[0].ID != "a0" || res.Items[5].ID != "c0" {
		t.Fatalf("expected source ranking to be preserved, got %+v", res.Items)
	}
	if src.calls != 3 || waits != 2 {
		t.Fatalf("expected 3 pages and 2 pacing waits, got %d and %d", src.calls, waits)
	}
	if src.cursors[0] != "" || src.cursors[1] != "c1" || src.cursors[2] != "c2" {
		t.Fatalf("unexpected cursor sequence: %v", src.cursors)
	}
}

func TestFetchStopsOnEmptyPage(t *testing.T) {
	src := &scriptedPages{pages: []domain.FetchPage{
		{Cursor: "c1", Items: makeItems("a", 2)},
		{Cursor: "c2"},
		{Cursor: "c3", Items: makeItems("never", 5)},
	}}
	waits := 0
	res := newTestFetcher(src, &waits).Fetch(context.Background(), Request{Query: "TSLA", Source: "stocks"})
	if len(res.Items) != 2 || src.calls != 2 {
		t.Fatalf("expected walk to stop at empty page, got %d items after %d calls", len(res.Items), src.calls)
	}
}

func TestFetchTruncatesToCap(t *testing.T) {
	src := &scriptedPages{pages: []domain.FetchPage{
		{Cursor: "c1", Items: makeItems("a", 4)},
		{Cursor: "c2", Items: makeItems("b", 4)},
		{Cursor: "c3", Items: makeItems("c", 4)},
	}}
	waits := 0
	res := newTestFetcher(src, &waits).Fetch(context.Background(), Request{Query: "TSLA", Source: "stocks", Cap: 6})
	if len(res.Items) != 6 {
		t.Fatalf("expected cap of 6, got %d", len(res.Items))
	}
	if src.calls != 2 {
		t.Fatalf("expected no request after reaching cap, got %d calls", src.calls)
	}
}

func TestFetchKeepsPartialResultsOnFailure(t *testing.T) {
	src := &scriptedPages{
		pages: []domain.FetchPage{{Cursor: "c1", Items: makeItems("a", 3)}},
		errs:  map[int]error{1: &provider.StatusError{Source: "reddit", Code: http.StatusForbidden}},
	}
	waits := 0
	res := newTestFetcher(src, &waits).Fetch(context.Background(), Request{Query: "TSLA", Source: "stocks"})
	if res.Status != domain.SourceFailed {
		t.Fatalf("expected failed status, got %s", res.Status)
	}
	if !errors.Is(res.Err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected source unavailable error, got %v", res.Err)
	}
	if len(res.Items) != 3 {
		t.Fatalf("expected partial items to survive, got %d", len(res.Items))
	}
	report := res.Report(1)
	if report.Fetched != 3 || report.Retained != 1 || report.Error == "" {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	src := &scriptedPages{
		pages: []domain.FetchPage{{}, {Items: makeItems("a", 2)}},
		errs:  map[int]error{0: &provider.StatusError{Source: "reddit", Code: http.StatusServiceUnavailable}},
	}
	var slept []time.Duration
	f := NewFetcher(trace.NewNoopTracerProvider().Tracer("test"), src, Config{
		Backoff: provider.Backoff{
			Initial:     2 * time.Second,
			Multiplier:  1,
			MaxAttempts: 3,
			Sleep: func(_ context.Context, d time.Duration) error {
				slept = append(slept, d)
				return nil
			},
		},
	})
	res := f.Fetch(context.Background(), Request{Query: "TSLA", Source: "stocks"})
	if res.Status != domain.SourceOK || len(res.Items) != 2 {
		t.Fatalf("expected retry to recover, got %s with %d items", res.Status, len(res.Items))
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("unexpected backoff sleeps: %v", slept)
	}
}

func TestFetchEmptySource(t *testing.T) {
	waits := 0
	res := newTestFetcher(&scriptedPages{}, &waits).Fetch(context.Background(), Request{Query: "ZZZZ", Source: "stocks"})
	if res.Status != domain.SourceEmpty || res.Err != nil || len(res.Items) != 0 {
		t.Fatalf("expected empty status without error, got %+v", res)
	}
	if waits != 0 {
		t.Fatalf("expected no pacing before the first page, got %d", waits)
	}
}

func TestFetchCancelledDuringPacing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &scriptedPages{pages: []domain.FetchPage{
		{Cursor: "c1", Items: makeItems("a", 2)},
		{Cursor: "c2", Items: makeItems("b", 2)},
	}}
	f := NewFetcher(trace.NewNoopTracerProvider().Tracer("test"), src, Config{
		NewPacer: func() provider.Pacer { return cancelPacer{cancel: cancel} },
	})
	res := f.Fetch(ctx, Request{Query: "TSLA", Source: "stocks"})
	if res.Status != domain.SourceFailed || !errors.Is(res.Err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected failed status after cancellation, got %+v", res)
	}
	if src.calls != 1 {
		t.Fatalf("expected no request after cancellation, got %d", src.calls)
	}
}

type cancelPacer struct{ cancel context.CancelFunc }

func (p cancelPacer) Wait(ctx context.Context) error {
	p.cancel()
	return ctx.Err()
}

func TestFetchStampsSourceOnUntaggedItems(t *testing.T) {
	tagged := domain.RawItem{ID: "t0", URL: "https://r/t/0", Source: "investing"}
	src := &scriptedPages{pages: []domain.FetchPage{
		{Items: append(makeItems("a", 2), tagged)},
	}}
	waits := 0
	res := newTestFetcher(src, &waits).Fetch(context.Background(), Request{Query: "TSLA", Source: " stocks "})

	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}
	if res.Items[0].Source != "stocks" || res.Items[1].Source != "stocks" {
		t.Fatalf("expected untagged items to carry the request source, got %+v", res.Items)
	}
	if res.Items[2].Source != "investing" {
		t.Fatalf("expected existing source to be kept, got %q", res.Items[2].Source)
	}
	if src.pages[0].Items[0].Source != "" {
		t.Fatal("expected page items to be left untouched")
	}
}

func TestFetchWaitsOnSharedPacerBeforeEveryPage(t *testing.T) {
	src := &scriptedPages{pages: []domain.FetchPage{
		{Cursor: "c1", Items: makeItems("a", 2)},
		{Cursor: "", Items: makeItems("b", 1)},
	}}
	ownWaits, sharedWaits := 0, 0
	f := newTestFetcher(src, &ownWaits)
	res := f.Fetch(context.Background(), Request{
		Query:  "TSLA",
		Source: "stocks",
		Pacer:  countingPacer{waits: &sharedWaits},
	})

	if len(res.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(res.Items))
	}
	if sharedWaits != 2 || ownWaits != 0 {
		t.Fatalf("expected 2 waits on the shared pacer and none on the default, got %d and %d", sharedWaits, ownWaits)
	}
}
