package domain

import "time"

// OutcomeKind tells the caller how to render a search.
type OutcomeKind string

const (
	OutcomeOK            OutcomeKind = "ok"
	OutcomeInvalidInput  OutcomeKind = "invalid_input"
	OutcomeInvalidTicker OutcomeKind = "invalid_ticker"
	OutcomeEmpty         OutcomeKind = "empty"
)

// SourceStatus distinguishes "nothing found" from "source failed".
type SourceStatus string

const (
	SourceOK     SourceStatus = "ok"
	SourceEmpty  SourceStatus = "empty"
	SourceFailed SourceStatus = "failed"
)

type SourceReport struct {
	Source   string       `json:"source"`
	Status   SourceStatus `json:"status"`
	Fetched  int          `json:"fetched"`
	Retained int          `json:"retained"`
	Error    string       `json:"error,omitempty"`
}

type AggregateResult struct {
	Items        []ContentItem   `json:"items"`
	Metrics      MetricsBundle   `json:"metrics"`
	OverallLabel *SentimentLabel `json:"overall_label"`
	OverallScore float64         `json:"overall_score"`
	Monthly      []MonthlyBucket `json:"monthly"`
	Sources      []SourceReport  `json:"sources"`
	Summary      string          `json:"summary,omitempty"`
}

type Outcome struct {
	Kind        OutcomeKind      `json:"kind"`
	Symbol      string           `json:"symbol"`
	Window      Window           `json:"window"`
	Message     string           `json:"message,omitempty"`
	Result      *AggregateResult `json:"result,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// TotalPosts is the number of retained items, zero for non-OK outcomes.
func (o Outcome) TotalPosts() int {
	if o.Result == nil {
		return 0
	}
	return len(o.Result.Items)
}
