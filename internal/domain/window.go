package domain

import "strings"

// Window is the caller-facing time filter.
type Window string

const (
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
	WindowYear  Window = "year"
	WindowAll   Window = "all"
)

var SupportedWindows = []Window{WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll}

// ParseWindow accepts a window token case-insensitively.
func ParseWindow(token string) (Window, bool) {
	w := Window(strings.ToLower(strings.TrimSpace(token)))
	for _, s := range SupportedWindows {
		if w == s {
			return w, true
		}
	}
	return "", false
}

// MarketPeriod maps a window to the market-data lookback range.
func (w Window) MarketPeriod() string {
	switch w {
	case WindowDay:
		return "1d"
	case WindowWeek:
		return "5d"
	case WindowYear:
		return "1y"
	case WindowAll:
		return "max"
	default:
		return "1mo"
	}
}

// Description is the human label shown next to a result.
func (w Window) Description() string {
	switch w {
	case WindowDay:
		return "1 Day"
	case WindowWeek:
		return "5 Days"
	case WindowMonth:
		return "1 Month"
	case WindowYear:
		return "1 Year"
	default:
		return "All Time"
	}
}
