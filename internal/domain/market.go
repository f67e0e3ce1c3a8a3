package domain

import "time"

// DailyBar is one row of daily market data.
type DailyBar struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// MetricsBundle summarizes price and volume movement for a symbol. Every
// numeric field is zero when the underlying data is unavailable.
type MetricsBundle struct {
	Symbol            string  `json:"symbol"`
	Period            string  `json:"period"`
	AvgDailyChangePct float64 `json:"avg_daily_change_pct"`
	LastClose         float64 `json:"last_close"`
	LastVolume        float64 `json:"last_volume"`
	PriceChangePct    float64 `json:"price_change_pct"`
	VolumeChangePct   float64 `json:"volume_change_pct"`
}

// MonthlyBucket is one point of the trailing 12-month chart series.
type MonthlyBucket struct {
	Month     string  `json:"month"`
	PostCount int     `json:"post_count"`
	AvgVolume float64 `json:"avg_volume"`
	Close     float64 `json:"close"`
}
