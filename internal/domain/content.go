package domain

import "time"

// SentimentLabel is the discrete polarity attached to a scored item.
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "POSITIVE"
	LabelNeutral  SentimentLabel = "NEUTRAL"
	LabelNegative SentimentLabel = "NEGATIVE"
)

// RawItem is one search hit as returned by a content source, before
// filtering or scoring.
type RawItem struct {
	ID        string
	Source    string
	Title     string
	URL       string
	Body      string
	Author    string
	CreatedAt time.Time
}

// FetchPage is a single page of search results. An empty Cursor means the
// source has nothing further.
type FetchPage struct {
	Cursor string
	Items  []RawItem
}

// ContentItem is a retained, scored post.
type ContentItem struct {
	Source    string         `json:"source"`
	Title     string         `json:"title"`
	URL       string         `json:"url"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	Score     float64        `json:"score"`
	Label     SentimentLabel `json:"label"`
}

// User is a registered account. PasswordHash never leaves the service.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
