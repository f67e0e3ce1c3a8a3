package aggregate

import (
	"sort"
	"time"

	"tickerpulse/internal/domain"
	"tickerpulse/internal/sentiment"
)

const seriesMonths = 12

// Aggregator fuses scored items with market metrics. Its label policy
// must match the one used to label the items.
type Aggregator struct {
	policy sentiment.Policy
}

func New(policy sentiment.Policy) *Aggregator {
	return &Aggregator{policy: policy}
}

// Aggregate labels the mean compound of items. OverallLabel stays nil
// when there is nothing to average.
func (a *Aggregator) Aggregate(items []domain.ContentItem, metrics domain.MetricsBundle) domain.AggregateResult {
	result := domain.AggregateResult{
		Items:   items,
		Metrics: metrics,
	}
	if result.Items == nil {
		result.Items = []domain.ContentItem{}
	}
	if len(items) == 0 {
		return result
	}

	sum := 0.0
	for _, item := range items {
		sum += item.Score
	}
	mean := sum / float64(len(items))
	label := sentiment.LabelFor(a.policy, mean)
	result.OverallLabel = &label
	result.OverallScore = mean
	return result
}

// MonthlySeries buckets items and bars into the twelve calendar months
// ending with now's month. Months without bars carry the previous
// month's close and volume forward, or zero before the first resolved
// month.
func MonthlySeries(items []domain.ContentItem, bars []domain.DailyBar, now time.Time) []domain.MonthlyBucket {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(seriesMonths - 1), 0)

	buckets := make([]domain.MonthlyBucket, seriesMonths)
	index := make(map[string]int, seriesMonths)
	for i := range buckets {
		key := first.AddDate(0, i, 0).Format("2006-01")
		buckets[i].Month = key
		index[key] = i
	}

	for _, item := range items {
		if i, ok := index[item.CreatedAt.UTC().Format("2006-01")]; ok {
			buckets[i].PostCount++
		}
	}

	sorted := make([]domain.DailyBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	type monthStats struct {
		close     float64
		volumeSum float64
		days      int
	}
	stats := make([]monthStats, seriesMonths)
	for _, bar := range sorted {
		i, ok := index[bar.Date.UTC().Format("2006-01")]
		if !ok {
			continue
		}
		stats[i].close = bar.Close
		stats[i].volumeSum += bar.Volume
		stats[i].days++
	}

	var lastClose, lastVolume float64
	for i := range buckets {
		if stats[i].days > 0 {
			lastClose = stats[i].close
			lastVolume = stats[i].volumeSum / float64(stats[i].days)
		}
		buckets[i].Close = lastClose
		buckets[i].AvgVolume = lastVolume
	}
	return buckets
}
