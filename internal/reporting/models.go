package reporting

import "time"

// Common filtering inputs.

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ClickBreakdownRequest requests per-dimension click counts for one enrollment.

type ClickBreakdownRequest struct {
	EnrollmentID string    `json:"enrollment_id"`
	Range        TimeRange `json:"range"`
}

type ClickBreakdown struct {
	EnrollmentID string `json:"enrollment_id"`

	TotalClicks int `json:"total_clicks"`

	ByDevice  map[string]int `json:"by_device"`
	ByBrowser map[string]int `json:"by_browser"`
	ByOS      map[string]int `json:"by_os"`
	ByCountry map[string]int `json:"by_country"`
}

// EarningsSummaryRequest requests aggregated commission metrics for a promoter.
// Earnings are derived from immutable conversion rows, never from the cached
// enrollment counters, so the summary holds even if a cache were ever wrong.

type EarningsSummaryRequest struct {
	PromoterID string    `json:"promoter_id"`
	Range      TimeRange `json:"range"`
	OfferID    string    `json:"offer_id,omitempty"`
}

type EarningsSummary struct {
	PromoterID string `json:"promoter_id"`
	OfferID    string `json:"offer_id,omitempty"`

	TotalConversions    int `json:"total_conversions"`
	ApprovedConversions int `json:"approved_conversions"`
	PendingConversions  int `json:"pending_conversions"`
	RejectedConversions int `json:"rejected_conversions"`

	ApprovedMinor int64 `json:"approved_minor"`
	PendingMinor  int64 `json:"pending_minor"`
}

// EnrollmentMetricsRequest captures simple funnel metrics for one enrollment.

type EnrollmentMetricsRequest struct {
	EnrollmentID string    `json:"enrollment_id"`
	Range        TimeRange `json:"range"`
}

type EnrollmentMetrics struct {
	EnrollmentID string `json:"enrollment_id"`

	Clicks      int `json:"clicks"`
	Conversions int `json:"conversions"`

	ConversionRate float64 `json:"conversion_rate"`
}
