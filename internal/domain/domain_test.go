package domain

import "testing"

func TestParseWindow(t *testing.T) {
	tests := map[string]struct {
		want Window
		ok   bool
	}{
		"day":    {WindowDay, true},
		" WEEK ": {WindowWeek, true},
		"Month":  {WindowMonth, true},
		"year":   {WindowYear, true},
		"all":    {WindowAll, true},
		"hour":   {"", false},
		"":       {"", false},
	}
	for in, tc := range tests {
		got, ok := ParseWindow(in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseWindow(%q) = (%q, %v), want (%q, %v)", in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestWindowMarketPeriod(t *testing.T) {
	tests := map[Window]string{
		WindowDay:   "1d",
		WindowWeek:  "5d",
		WindowMonth: "1mo",
		WindowYear:  "1y",
		WindowAll:   "max",
		Window("x"): "1mo",
	}
	for w, want := range tests {
		if got := w.MarketPeriod(); got != want {
			t.Fatalf("%s: expected %s, got %s", w, want, got)
		}
	}
}

func TestWindowDescription(t *testing.T) {
	if WindowWeek.Description() != "5 Days" {
		t.Fatalf("unexpected description %q", WindowWeek.Description())
	}
	if WindowAll.Description() != "All Time" {
		t.Fatalf("unexpected description %q", WindowAll.Description())
	}
}

func TestOutcomeTotalPosts(t *testing.T) {
	if (Outcome{Kind: OutcomeInvalidTicker}).TotalPosts() != 0 {
		t.Fatal("expected zero posts without a result")
	}
	o := Outcome{Kind: OutcomeOK, Result: &AggregateResult{Items: make([]ContentItem, 3)}}
	if o.TotalPosts() != 3 {
		t.Fatalf("expected 3 posts, got %d", o.TotalPosts())
	}
}
