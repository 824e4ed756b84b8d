package tracking

import "time"

// Click is a single recorded visit attributed to an enrollment.
// Rows are immutable after creation; every click counts (click-fraud scoring
// is out of scope, deduplication is deliberately not done here).
type Click struct {
	ID           string `json:"id" db:"id"`
	EnrollmentID string `json:"enrollment_id" db:"enrollment_id"`

	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string `json:"user_agent,omitempty" db:"user_agent"`

	// Device/Browser/OS are derived from the user agent at insert time so
	// reporting never re-parses raw strings.
	Device  string `json:"device,omitempty" db:"device"`
	Browser string `json:"browser,omitempty" db:"browser"`
	OS      string `json:"os,omitempty" db:"os"`

	Country  string `json:"country,omitempty" db:"country"`
	Referrer string `json:"referrer,omitempty" db:"referrer"`

	// SubIDs are opaque promoter-supplied tags passed through server-side
	// click reports. Never interpreted by the engine.
	SubIDs map[string]string `json:"sub_ids,omitempty" db:"-"`

	ClickedAt time.Time `json:"clicked_at" db:"clicked_at"`
}

// Metadata carries the client attributes captured with a click request.
type Metadata struct {
	IPAddress string
	UserAgent string
	Country   string
	Referrer  string
	SubIDs    map[string]string
}
