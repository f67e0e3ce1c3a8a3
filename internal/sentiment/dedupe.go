package sentiment

import "tickerpulse/internal/domain"

// Dedupe keeps the first item seen for each URL, preserving order.
func Dedupe(items []domain.ContentItem) []domain.ContentItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.URL]; ok {
			continue
		}
		seen[item.URL] = struct{}{}
		out = append(out, item)
	}
	return out
}
