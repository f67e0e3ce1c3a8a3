package sentiment

import (
	"fmt"
	"strings"

	"tickerpulse/internal/domain"

	"github.com/jonreiter/govader"
)

// Policy selects the thresholds that turn a compound score into a label.
type Policy string

const (
	// PolicyNarrow labels anything at or beyond +/-0.05 as polar.
	PolicyNarrow Policy = "narrow"
	// PolicyWide requires the compound to be strictly beyond +/-0.5.
	PolicyWide Policy = "wide"
)

func ParsePolicy(raw string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyNarrow:
		return PolicyNarrow, nil
	case PolicyWide:
		return PolicyWide, nil
	default:
		return "", fmt.Errorf("unsupported sentiment policy %q", raw)
	}
}

// LabelFor maps a compound score to a label under policy. Unknown
// policies fall back to narrow.
func LabelFor(policy Policy, compound float64) domain.SentimentLabel {
	if policy == PolicyWide {
		switch {
		case compound > 0.5:
			return domain.LabelPositive
		case compound < -0.5:
			return domain.LabelNegative
		default:
			return domain.LabelNeutral
		}
	}
	switch {
	case compound >= 0.05:
		return domain.LabelPositive
	case compound <= -0.05:
		return domain.LabelNegative
	default:
		return domain.LabelNeutral
	}
}

// Analyzer produces a VADER compound score for text.
type Analyzer interface {
	Compound(text string) float64
}

type vaderAnalyzer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// NewVaderAnalyzer loads the lexicon once. The analyzer is read-only
// afterwards and safe to share between goroutines.
func NewVaderAnalyzer() Analyzer {
	return vaderAnalyzer{sia: govader.NewSentimentIntensityAnalyzer()}
}

func (a vaderAnalyzer) Compound(text string) float64 {
	return a.sia.PolarityScores(text).Compound
}

// Scorer attaches a compound score and label to filtered items.
type Scorer struct {
	analyzer Analyzer
	policy   Policy
}

func NewScorer(analyzer Analyzer, policy Policy) *Scorer {
	if analyzer == nil {
		analyzer = NewVaderAnalyzer()
	}
	if policy != PolicyWide {
		policy = PolicyNarrow
	}
	return &Scorer{analyzer: analyzer, policy: policy}
}

func (s *Scorer) Policy() Policy { return s.policy }

func (s *Scorer) Score(text string) (float64, domain.SentimentLabel) {
	compound := clamp(s.analyzer.Compound(text))
	return compound, LabelFor(s.policy, compound)
}

func (s *Scorer) ScoreItems(items []domain.RawItem) []domain.ContentItem {
	out := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		score, label := s.Score(item.Body)
		out = append(out, domain.ContentItem{
			Source:    item.Source,
			Title:     item.Title,
			URL:       item.URL,
			Body:      item.Body,
			CreatedAt: item.CreatedAt.UTC(),
			Score:     score,
			Label:     label,
		})
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
