package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"tickerpulse/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	defaultRedditUA   = "ticker-pulse/1.0"
	defaultRedditPage = 100
	defaultRedditSort = "top"
)

// PageRequest asks a content source for one page of search results.
type PageRequest struct {
	Query    string
	Scope    string
	Sort     string
	Window   domain.Window
	PageSize int
	After    string
}

type RedditProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	tracer    trace.Tracer
}

type RedditOption func(*RedditProvider)

func WithRedditBaseURL(base string) RedditOption {
	return func(p *RedditProvider) {
		if strings.TrimSpace(base) != "" {
			p.baseURL = strings.TrimRight(base, "/")
		}
	}
}

func WithRedditUserAgent(ua string) RedditOption {
	return func(p *RedditProvider) {
		if strings.TrimSpace(ua) != "" {
			p.userAgent = ua
		}
	}
}

// WithRedditTimeout bounds each page request.
func WithRedditTimeout(d time.Duration) RedditOption {
	return func(p *RedditProvider) {
		if d > 0 {
			p.client.Timeout = d
		}
	}
}

func NewRedditProvider(tracer trace.Tracer, opts ...RedditOption) *RedditProvider {
	p := &RedditProvider{
		client:    &http.Client{Timeout: 20 * time.Second},
		baseURL:   redditBaseURL,
		userAgent: defaultRedditUA,
		tracer:    tracer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SearchPage runs one restricted subreddit search and returns its items
// and the continuation cursor.
func (p *RedditProvider) SearchPage(ctx context.Context, req PageRequest) (domain.FetchPage, error) {
	ctx, span := p.tracer.Start(ctx, "reddit.search-page")
	defer span.End()

	scope := strings.TrimSpace(req.Scope)
	if scope == "" {
		return domain.FetchPage{}, Permanent(fmt.Errorf("subreddit is required"))
	}
	span.SetAttributes(
		attribute.String("subreddit", scope),
		attribute.String("query", req.Query),
		attribute.Bool("has_cursor", req.After != ""),
	)

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > defaultRedditPage {
		pageSize = defaultRedditPage
	}
	sort := strings.TrimSpace(req.Sort)
	if sort == "" {
		sort = defaultRedditSort
	}

	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("restrict_sr", "true")
	params.Set("sort", sort)
	params.Set("t", redditTimeFilter(req.Window))
	params.Set("limit", strconv.Itoa(pageSize))
	if req.After != "" {
		params.Set("after", req.After)
	}

	u := fmt.Sprintf("%s/r/%s/search.json?%s", p.baseURL, url.PathEscape(scope), params.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.FetchPage{}, err
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return domain.FetchPage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.FetchPage{}, &StatusError{Source: "reddit", Code: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		Data struct {
			After    *string `json:"after"`
			Children []struct {
				Data struct {
					ID         string  `json:"id"`
					Subreddit  string  `json:"subreddit"`
					Title      string  `json:"title"`
					SelfText   string  `json:"selftext"`
					Author     string  `json:"author"`
					CreatedUTC float64 `json:"created_utc"`
					Permalink  string  `json:"permalink"`
					URL        string  `json:"url"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.FetchPage{}, Permanent(fmt.Errorf("decode reddit response: %w", err))
	}

	items := make([]domain.RawItem, 0, len(payload.Data.Children))
	for _, row := range payload.Data.Children {
		data := row.Data
		if strings.TrimSpace(data.ID) == "" {
			continue
		}
		itemURL := strings.TrimSpace(data.URL)
		if permalink := strings.TrimSpace(data.Permalink); permalink != "" {
			itemURL = p.baseURL + permalink
		}
		title := sanitizeText(data.Title, 300)
		if title == "" {
			title = "No Title"
		}
		items = append(items, domain.RawItem{
			ID:        data.ID,
			Source:    scope,
			Title:     title,
			URL:       itemURL,
			Body:      strings.TrimSpace(data.SelfText),
			Author:    sanitizeText(data.Author, 120),
			CreatedAt: time.Unix(int64(data.CreatedUTC), 0).UTC(),
		})
	}

	page := domain.FetchPage{Items: items}
	if payload.Data.After != nil {
		page.Cursor = strings.TrimSpace(*payload.Data.After)
	}
	span.SetAttributes(attribute.Int("items", len(items)))
	return page, nil
}

func redditTimeFilter(w domain.Window) string {
	switch w {
	case domain.WindowDay, domain.WindowWeek, domain.WindowMonth, domain.WindowYear, domain.WindowAll:
		return string(w)
	default:
		return string(domain.WindowAll)
	}
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && utf8.RuneCountInString(in) > maxLen {
		in = string([]rune(in)[:maxLen])
	}
	return in
}
