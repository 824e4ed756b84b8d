package conversion

import "time"

// Conversion is the durable record of one advertiser transaction. Created
// exactly once per (network_id, transaction_id); after creation the status
// transition pending -> approved|rejected is the only mutation path.
type Conversion struct {
	ID           string `json:"id" db:"id"`
	NetworkID    string `json:"network_id" db:"network_id"`
	EnrollmentID string `json:"enrollment_id" db:"enrollment_id"`

	// ClickID is empty when attribution degraded to enrollment level.
	ClickID string `json:"click_id,omitempty" db:"click_id"`

	// TransactionID is the advertiser's identifier, unique per network.
	TransactionID string `json:"transaction_id" db:"transaction_id"`

	AmountMinor     int64  `json:"amount_minor" db:"amount_minor"`
	CommissionMinor int64  `json:"commission_minor" db:"commission_minor"`
	Currency        string `json:"currency" db:"currency"`

	Status Status `json:"status" db:"status"`

	// CustomParams is an opaque advertiser passthrough, stored as JSON.
	CustomParams map[string]string `json:"custom_params,omitempty" db:"custom_params"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Terminal reports whether s ends the conversion's state machine.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

func validStatus(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}
