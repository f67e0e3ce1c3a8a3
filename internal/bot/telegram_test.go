package bot

import (
	"strings"
	"testing"

	"tickerpulse/internal/domain"
)

func TestStartTelegramBotSkipsWithoutToken(t *testing.T) {
	if err := StartTelegramBot("", nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseSentimentArgs(t *testing.T) {
	defaults := []string{"stocks"}
	if _, ok := parseSentimentArgs(nil, defaults); ok {
		t.Fatalf("expected usage for missing symbol")
	}

	req, ok := parseSentimentArgs([]string{"tsla"}, defaults)
	if !ok || req.symbol != "TSLA" || req.window != "month" || len(req.sources) != 1 {
		t.Fatalf("unexpected defaults: %+v", req)
	}

	req, ok = parseSentimentArgs([]string{"aapl", "WEEK", "investing,wallstreetbets"}, defaults)
	if !ok || req.window != "week" || len(req.sources) != 2 || req.sources[1] != "wallstreetbets" {
		t.Fatalf("unexpected parse: %+v", req)
	}
}

func TestFormatOutcome(t *testing.T) {
	label := domain.LabelNegative
	msg := formatOutcome(domain.Outcome{
		Kind:   domain.OutcomeOK,
		Symbol: "TSLA",
		Window: domain.WindowWeek,
		Result: &domain.AggregateResult{
			Items:        []domain.ContentItem{{}, {}},
			OverallLabel: &label,
			OverallScore: -0.31,
			Metrics:      domain.MetricsBundle{LastClose: 201.5, PriceChangePct: -4.2},
			Summary:      "Holders worry about margins.",
		},
	})
	for _, want := range []string{"TSLA sentiment over 5 Days: NEGATIVE (-0.31)", "Posts: 2", "Last close: $201.50", "-4.20%", "Holders worry"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in message:\n%s", want, msg)
		}
	}

	if got := formatOutcome(domain.Outcome{Kind: domain.OutcomeInvalidTicker, Symbol: "FAKE123"}); got != "FAKE123: ticker not found" {
		t.Fatalf("unexpected invalid ticker message: %s", got)
	}
	if got := formatOutcome(domain.Outcome{Kind: domain.OutcomeEmpty, Symbol: "ZZZ", Window: domain.WindowDay}); !strings.Contains(got, "1 Day") {
		t.Fatalf("unexpected empty message: %s", got)
	}
}
