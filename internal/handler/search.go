package handler

import (
	"net/http"
	"strings"
	"time"

	"tickerpulse/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type searchRequest struct {
	Symbol  string   `json:"symbol" binding:"required"`
	Window  string   `json:"window"`
	Sources []string `json:"sources"`
}

type searchResponse struct {
	Status       string                 `json:"status"`
	Symbol       string                 `json:"symbol"`
	Window       domain.Window          `json:"window"`
	Timeframe    string                 `json:"timeframe"`
	Message      string                 `json:"message,omitempty"`
	TotalPosts   int                    `json:"total_posts"`
	OverallLabel *domain.SentimentLabel `json:"overall_label"`
	OverallScore float64                `json:"overall_score"`
	Metrics      domain.MetricsBundle   `json:"metrics"`
	Items        []domain.ContentItem   `json:"items"`
	Monthly      []domain.MonthlyBucket `json:"monthly"`
	Sources      []domain.SourceReport  `json:"sources"`
	Summary      string                 `json:"summary,omitempty"`
	Errors       []string               `json:"errors"`
	GeneratedAt  time.Time              `json:"generated_at"`
}

type seriesResponse struct {
	Symbol     string                 `json:"symbol"`
	Months     []string               `json:"months"`
	PostCounts []int                  `json:"post_counts"`
	Closes     []float64              `json:"closes"`
	AvgVolumes []float64              `json:"avg_volumes"`
	Buckets    []domain.MonthlyBucket `json:"buckets"`
}

// Search godoc
// @Summary      Run a sentiment search
// @Description  Fetches posts about a ticker from the selected subreddits, scores them and fuses the result with market metrics
// @Tags         search
// @Accept       json
// @Produce      json
// @Param        request  body  searchRequest  true  "Symbol, window (day|week|month|year|all) and subreddits"
// @Success      200  {object}  searchResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/search [post]
func (h *Handler) Search(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.search")
	defer span.End()

	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Window) == "" {
		req.Window = string(domain.WindowMonth)
	}
	sources := req.Sources
	if sources == nil {
		sources = h.defaultSources
	}
	span.SetAttributes(attribute.String("symbol", req.Symbol), attribute.String("window", req.Window))

	outcome, err := h.searcher.RunSearch(ctx, req.Symbol, req.Window, sources)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search cancelled: " + err.Error()})
		return
	}

	switch outcome.Kind {
	case domain.OutcomeInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": outcome.Message})
	case domain.OutcomeInvalidTicker:
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrInvalidTicker.Error()})
	default:
		c.JSON(http.StatusOK, newSearchResponse(outcome))
	}
}

// Series godoc
// @Summary      Twelve-month chart series
// @Description  Returns monthly post counts, closing prices and average volumes for the trailing 12 months
// @Tags         search
// @Produce      json
// @Param        symbol   path   string  true   "Ticker symbol (e.g., TSLA)"
// @Param        sources  query  string  false  "Comma-separated subreddits"
// @Success      200  {object}  seriesResponse
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/series/{symbol} [get]
func (h *Handler) Series(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.series")
	defer span.End()

	symbol := c.Param("symbol")
	span.SetAttributes(attribute.String("symbol", symbol))
	sources := h.defaultSources
	if raw := strings.TrimSpace(c.Query("sources")); raw != "" {
		sources = strings.Split(raw, ",")
	}

	outcome, err := h.searcher.RunSearch(ctx, symbol, string(domain.WindowYear), sources)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search cancelled: " + err.Error()})
		return
	}
	switch outcome.Kind {
	case domain.OutcomeInvalidInput:
		c.JSON(http.StatusBadRequest, gin.H{"error": outcome.Message})
		return
	case domain.OutcomeInvalidTicker:
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrInvalidTicker.Error()})
		return
	}

	resp := seriesResponse{Symbol: outcome.Symbol}
	if outcome.Result != nil {
		resp.Buckets = outcome.Result.Monthly
	}
	for _, b := range resp.Buckets {
		resp.Months = append(resp.Months, b.Month)
		resp.PostCounts = append(resp.PostCounts, b.PostCount)
		resp.Closes = append(resp.Closes, b.Close)
		resp.AvgVolumes = append(resp.AvgVolumes, b.AvgVolume)
	}
	c.JSON(http.StatusOK, resp)
}

// GetSnapshot godoc
// @Summary      Latest watchlist snapshot
// @Description  Returns the most recent cached search outcome for a watchlist symbol
// @Tags         search
// @Produce      json
// @Param        symbol  path  string  true  "Ticker symbol (e.g., TSLA)"
// @Success      200  {object}  searchResponse
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     BearerAuth
// @Router       /api/snapshots/{symbol} [get]
func (h *Handler) GetSnapshot(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-snapshot")
	defer span.End()

	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshots are not configured"})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	span.SetAttributes(attribute.String("symbol", symbol))

	outcome, found, err := h.snapshots.Snapshot(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot for " + symbol})
		return
	}
	c.JSON(http.StatusOK, newSearchResponse(outcome))
}

func newSearchResponse(o domain.Outcome) searchResponse {
	resp := searchResponse{
		Status:      string(o.Kind),
		Symbol:      o.Symbol,
		Window:      o.Window,
		Timeframe:   o.Window.Description(),
		Message:     o.Message,
		TotalPosts:  o.TotalPosts(),
		Items:       []domain.ContentItem{},
		Errors:      []string{},
		GeneratedAt: o.GeneratedAt,
	}
	if o.Result == nil {
		return resp
	}
	r := o.Result
	resp.OverallLabel = r.OverallLabel
	resp.OverallScore = r.OverallScore
	resp.Metrics = r.Metrics
	if r.Items != nil {
		resp.Items = r.Items
	}
	resp.Monthly = r.Monthly
	resp.Sources = r.Sources
	resp.Summary = r.Summary
	for _, s := range r.Sources {
		if s.Error != "" {
			resp.Errors = append(resp.Errors, s.Source+": "+s.Error)
		}
	}
	return resp
}
