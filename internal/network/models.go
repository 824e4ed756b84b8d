package network

import "time"

// Network is an advertiser integration that submits signed server-to-server
// postbacks. Owned by platform admins; immutable after creation except for
// status changes and secret rotation.
//
// Secret rotation note: SecretValidFrom exists so that a rotated secret can be
// introduced without invalidating requests signed moments earlier. Rotation
// itself is an admin workflow, not part of the ingestion path.
type Network struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`

	// APIKey identifies the network on the wire. Never log it.
	APIKey string `json:"-" db:"api_key"`

	// Secret is the shared HMAC-SHA256 key. Never serialized.
	Secret          string    `json:"-" db:"secret"`
	SecretValidFrom time.Time `json:"secret_valid_from" db:"secret_valid_from"`

	// PostbackURL is where the platform notifies the network (outbound), kept
	// here for completeness of the integration record.
	PostbackURL string `json:"postback_url,omitempty" db:"postback_url"`

	Status Status `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

func (n Network) IsActive() bool { return n.Status == StatusActive }
