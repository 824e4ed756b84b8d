package offers

import "time"

// Offer is a promotable campaign belonging to a network.
//
// TotalClicks/TotalConversions are derived caches. They are written only by
// the click and commission ledgers (same transaction as the underlying row
// insert) and must never be mutated anywhere else.
type Offer struct {
	ID        string `json:"id" db:"id"`
	NetworkID string `json:"network_id" db:"network_id"`

	Title          string `json:"title" db:"title"`
	DestinationURL string `json:"destination_url" db:"destination_url"`

	// PayoutMinor is the advertised payout in minor units (cents).
	PayoutMinor int64 `json:"payout_minor" db:"payout_minor"`

	// CommissionRateBps is the promoter commission rate in basis points
	// (1000 = 10%). Integer math keeps money exact.
	CommissionRateBps int64 `json:"commission_rate_bps" db:"commission_rate_bps"`

	Currency string `json:"currency" db:"currency"`

	Status OfferStatus `json:"status" db:"status"`

	TotalClicks      int64 `json:"total_clicks" db:"total_clicks"`
	TotalConversions int64 `json:"total_conversions" db:"total_conversions"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type OfferStatus string

const (
	OfferStatusActive OfferStatus = "active"
	OfferStatusPaused OfferStatus = "paused"
)

func (o Offer) IsActive() bool { return o.Status == OfferStatusActive }

// CommissionFor derives the promoter commission for a conversion amount.
// Policy: commission is always computed from the amount and the offer's
// configured rate at processing time, never taken from an advertiser payload.
func (o Offer) CommissionFor(amountMinor int64) int64 {
	return amountMinor * o.CommissionRateBps / 10_000
}

// Enrollment is a promoter's participation in one offer. Created once when
// the promoter joins; never deleted, only deactivated.
//
// Counter invariant: Clicks/Conversions/EarningsMinor equal the sum of the
// enrollment's non-duplicate click/conversion rows. They are mutated only by
// the click and commission ledgers.
type Enrollment struct {
	ID         string `json:"id" db:"id"`
	PromoterID string `json:"promoter_id" db:"promoter_id"`
	OfferID    string `json:"offer_id" db:"offer_id"`

	// TrackingToken is the public token embedded in generated links. It keys
	// both the browser redirect and enrollment-level attribution.
	TrackingToken string `json:"tracking_token" db:"tracking_token"`

	Status EnrollmentStatus `json:"status" db:"status"`

	Clicks        int64 `json:"clicks" db:"clicks"`
	Conversions   int64 `json:"conversions" db:"conversions"`
	EarningsMinor int64 `json:"earnings_minor" db:"earnings_minor"`

	JoinedAt  time.Time `json:"joined_at" db:"joined_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type EnrollmentStatus string

const (
	EnrollmentStatusActive   EnrollmentStatus = "active"
	EnrollmentStatusInactive EnrollmentStatus = "inactive"
)

func (e Enrollment) IsActive() bool { return e.Status == EnrollmentStatusActive }
