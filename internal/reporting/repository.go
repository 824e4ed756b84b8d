package reporting

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"affiliate-platform/internal/conversion"
	"affiliate-platform/internal/offers"
	"affiliate-platform/internal/tracking"
)

// PostgresRepo reads the immutable click and conversion rows directly.
// Read-only: reporting never writes.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListClicks(ctx context.Context, enrollmentID string, from, to time.Time) ([]tracking.Click, error) {
	const q = `
SELECT id, enrollment_id, ip_address, user_agent, device, browser, os,
       country, referrer, sub_ids, clicked_at
FROM clicks
WHERE enrollment_id = $1 AND clicked_at >= $2 AND clicked_at < $3
ORDER BY clicked_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, enrollmentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tracking.Click
	for rows.Next() {
		var c tracking.Click
		var subIDs []byte
		if err := rows.Scan(
			&c.ID,
			&c.EnrollmentID,
			&c.IPAddress,
			&c.UserAgent,
			&c.Device,
			&c.Browser,
			&c.OS,
			&c.Country,
			&c.Referrer,
			&subIDs,
			&c.ClickedAt,
		); err != nil {
			return nil, err
		}
		if len(subIDs) > 0 {
			if err := json.Unmarshal(subIDs, &c.SubIDs); err != nil {
				return nil, err
			}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListConversions(ctx context.Context, enrollmentID string, from, to time.Time) ([]conversion.Conversion, error) {
	const q = `
SELECT id, enrollment_id, transaction_id, amount_minor, commission_minor,
       currency, status, created_at
FROM conversions
WHERE enrollment_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, enrollmentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conversion.Conversion
	for rows.Next() {
		var c conversion.Conversion
		if err := rows.Scan(
			&c.ID,
			&c.EnrollmentID,
			&c.TransactionID,
			&c.AmountMinor,
			&c.CommissionMinor,
			&c.Currency,
			&c.Status,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListEnrollmentsByPromoter(ctx context.Context, promoterID string) ([]offers.Enrollment, error) {
	const q = `
SELECT id, promoter_id, offer_id, tracking_token, status, clicks, conversions,
       earnings_minor, joined_at, updated_at
FROM enrollments
WHERE promoter_id = $1
`
	rows, err := r.db.QueryContext(ctx, q, promoterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []offers.Enrollment
	for rows.Next() {
		var e offers.Enrollment
		if err := rows.Scan(
			&e.ID,
			&e.PromoterID,
			&e.OfferID,
			&e.TrackingToken,
			&e.Status,
			&e.Clicks,
			&e.Conversions,
			&e.EarningsMinor,
			&e.JoinedAt,
			&e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
