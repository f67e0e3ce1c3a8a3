package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tickerpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type searcherStub struct {
	outcome domain.Outcome
	err     error
	symbol  string
	window  string
	sources []string
}

func (s *searcherStub) RunSearch(_ context.Context, symbol, window string, sources []string) (domain.Outcome, error) {
	s.symbol, s.window, s.sources = symbol, window, sources
	return s.outcome, s.err
}

type snapshotStub struct {
	outcome domain.Outcome
	found   bool
}

func (s snapshotStub) Snapshot(context.Context, string) (domain.Outcome, bool, error) {
	return s.outcome, s.found, nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r)
	return r
}

func postJSON(r *gin.Engine, path string, body any, headers ...string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func okOutcome() domain.Outcome {
	label := domain.LabelPositive
	return domain.Outcome{
		Kind:   domain.OutcomeOK,
		Symbol: "TSLA",
		Window: domain.WindowWeek,
		Result: &domain.AggregateResult{
			Items:        []domain.ContentItem{{Title: "a", Score: 0.6, Label: domain.LabelPositive}},
			Metrics:      domain.MetricsBundle{Symbol: "TSLA", LastClose: 200},
			OverallLabel: &label,
			OverallScore: 0.6,
			Monthly: []domain.MonthlyBucket{
				{Month: "2026-02", PostCount: 1, Close: 190, AvgVolume: 10},
				{Month: "2026-03", PostCount: 3, Close: 200, AvgVolume: 20},
			},
			Sources: []domain.SourceReport{
				{Source: "stocks", Status: domain.SourceOK, Fetched: 3, Retained: 1},
				{Source: "investing", Status: domain.SourceFailed, Error: "403"},
			},
		},
		GeneratedAt: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}
}

func TestSearchOK(t *testing.T) {
	stub := &searcherStub{outcome: okOutcome()}
	h := New(trace.NewNoopTracerProvider().Tracer("handler-test"), stub, []string{"stocks", "investing"})
	r := newTestRouter(h)

	w := postJSON(r, "/api/search", gin.H{"symbol": "tsla", "window": "week"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(stub.sources) != 2 || stub.window != "week" || stub.symbol != "tsla" {
		t.Fatalf("expected default sources to be applied, got %+v", stub)
	}

	var body searchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if body.Status != "ok" || body.Timeframe != "5 Days" || body.TotalPosts != 1 {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if body.OverallLabel == nil || *body.OverallLabel != domain.LabelPositive || body.Metrics.LastClose != 200 {
		t.Fatalf("unexpected aggregate fields: %+v", body)
	}
	if len(body.Errors) != 1 || body.Errors[0] != "investing: 403" {
		t.Fatalf("expected failed source in errors, got %v", body.Errors)
	}
}

func TestSearchOutcomeStatusCodes(t *testing.T) {
	cases := []struct {
		name    string
		outcome domain.Outcome
		want    int
	}{
		{"invalid ticker", domain.Outcome{Kind: domain.OutcomeInvalidTicker, Message: "ticker not found"}, http.StatusNotFound},
		{"invalid input", domain.Outcome{Kind: domain.OutcomeInvalidInput, Message: "invalid input: unsupported window"}, http.StatusBadRequest},
		{"empty", domain.Outcome{Kind: domain.OutcomeEmpty, Window: domain.WindowDay}, http.StatusOK},
	}
	for _, tc := range cases {
		stub := &searcherStub{outcome: tc.outcome}
		r := newTestRouter(New(trace.NewNoopTracerProvider().Tracer("handler-test"), stub, nil))
		w := postJSON(r, "/api/search", gin.H{"symbol": "FAKE123", "window": "day", "sources": []string{}})
		if w.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, w.Code)
		}
		if tc.name == "empty" {
			var body searchResponse
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body.Status != "empty" || body.TotalPosts != 0 {
				t.Fatalf("unexpected empty payload: %+v", body)
			}
			if stub.sources == nil || len(stub.sources) != 0 {
				t.Fatalf("expected explicit empty source list to be kept, got %v", stub.sources)
			}
		}
	}
}

func TestSearchBadBody(t *testing.T) {
	r := newTestRouter(New(trace.NewNoopTracerProvider().Tracer("handler-test"), &searcherStub{}, nil))
	w := postJSON(r, "/api/search", gin.H{"window": "week"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing symbol, got %d", w.Code)
	}
}

func TestSearchCancelled(t *testing.T) {
	r := newTestRouter(New(trace.NewNoopTracerProvider().Tracer("handler-test"), &searcherStub{err: context.Canceled}, nil))
	w := postJSON(r, "/api/search", gin.H{"symbol": "TSLA"})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestSeries(t *testing.T) {
	stub := &searcherStub{outcome: okOutcome()}
	r := newTestRouter(New(trace.NewNoopTracerProvider().Tracer("handler-test"), stub, []string{"stocks"}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/series/TSLA?sources=wallstreetbets,investing", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if stub.window != "year" || len(stub.sources) != 2 || stub.sources[0] != "wallstreetbets" {
		t.Fatalf("unexpected search request: %+v", stub)
	}
	var body seriesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(body.Months) != 2 || body.PostCounts[1] != 3 || body.Closes[0] != 190 || body.AvgVolumes[1] != 20 {
		t.Fatalf("unexpected series payload: %+v", body)
	}
}

func TestGetSnapshot(t *testing.T) {
	h := New(trace.NewNoopTracerProvider().Tracer("handler-test"), &searcherStub{}, nil)
	r := newTestRouter(h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshots/TSLA", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without snapshot reader, got %d", w.Code)
	}

	h.SetSnapshotReader(snapshotStub{})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshots/TSLA", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing snapshot, got %d", w.Code)
	}

	h.SetSnapshotReader(snapshotStub{outcome: okOutcome(), found: true})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/snapshots/tsla", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
