package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Postback events carry the network id; admin events carry the actor.
// - Capture is best-effort; do not block the postback pipeline on audit failures.
//
// Storage recommendation (Postgres):
// - Table audit_events with an INSERT-only policy.
// - Optional: trigger to prevent UPDATE/DELETE.
// - Optional: partition by time for retention.

type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// NetworkID is the advertiser network the event concerns (if applicable).
	NetworkID string `json:"network_id,omitempty" db:"network_id"`

	// ActorUserID is the authenticated user causing the event (admin review).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	// ActorRole may include hidden roles.
	ActorRole string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	// Prefer X-Forwarded-For processing at the edge; store the resolved client IP here.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers (optional, depending on the event type).
	OfferID       string `json:"offer_id,omitempty" db:"offer_id"`
	EnrollmentID  string `json:"enrollment_id,omitempty" db:"enrollment_id"`
	ConversionID  string `json:"conversion_id,omitempty" db:"conversion_id"`
	TransactionID string `json:"transaction_id,omitempty" db:"transaction_id"`

	// Code is the machine-readable rejection code for rejected postbacks.
	Code string `json:"code,omitempty" db:"code"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypePostbackAccepted EventType = "postback_accepted"
	EventTypePostbackRejected EventType = "postback_rejected"
	EventTypeAdminReview      EventType = "admin_review"
)
