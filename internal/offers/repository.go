package offers

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrOfferNotFound      = errors.New("offer not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// Repository is the persistence contract for offers and enrollments.
//
// CreateEnrollment relies on a storage-level uniqueness constraint
// UNIQUE (promoter_id, offer_id): joining twice returns the existing row with
// created=false. One enrollment per promoter per offer is what makes
// enrollment-level attribution unambiguous.
type Repository interface {
	GetOffer(ctx context.Context, id string) (Offer, error)
	CreateOffer(ctx context.Context, o Offer) error

	GetEnrollment(ctx context.Context, id string) (Enrollment, error)
	FindEnrollmentByToken(ctx context.Context, token string) (Enrollment, error)
	CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, bool, error)
	ListEnrollmentsByPromoter(ctx context.Context, promoterID string) ([]Enrollment, error)
	DeactivateEnrollment(ctx context.Context, id string) error
}

const uniqueViolation = "23505"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const offerColumns = `
id, network_id, title, destination_url, payout_minor, commission_rate_bps,
currency, status, total_clicks, total_conversions, created_at, updated_at
`

func scanOffer(row *sql.Row) (Offer, error) {
	var o Offer
	err := row.Scan(
		&o.ID,
		&o.NetworkID,
		&o.Title,
		&o.DestinationURL,
		&o.PayoutMinor,
		&o.CommissionRateBps,
		&o.Currency,
		&o.Status,
		&o.TotalClicks,
		&o.TotalConversions,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Offer{}, ErrOfferNotFound
		}
		return Offer{}, err
	}
	return o, nil
}

func (r *PostgresRepo) GetOffer(ctx context.Context, id string) (Offer, error) {
	const q = `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`
	return scanOffer(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) CreateOffer(ctx context.Context, o Offer) error {
	const q = `
INSERT INTO offers (
  id, network_id, title, destination_url, payout_minor, commission_rate_bps,
  currency, status, total_clicks, total_conversions, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	_, err := r.db.ExecContext(ctx, q,
		o.ID,
		o.NetworkID,
		o.Title,
		o.DestinationURL,
		o.PayoutMinor,
		o.CommissionRateBps,
		o.Currency,
		o.Status,
		o.TotalClicks,
		o.TotalConversions,
		o.CreatedAt,
		o.UpdatedAt,
	)
	return err
}

const enrollmentColumns = `
id, promoter_id, offer_id, tracking_token, status, clicks, conversions,
earnings_minor, joined_at, updated_at
`

func scanEnrollment(row *sql.Row) (Enrollment, error) {
	var e Enrollment
	err := row.Scan(
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
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Enrollment{}, ErrEnrollmentNotFound
		}
		return Enrollment{}, err
	}
	return e, nil
}

func (r *PostgresRepo) GetEnrollment(ctx context.Context, id string) (Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	return scanEnrollment(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) FindEnrollmentByToken(ctx context.Context, token string) (Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE tracking_token = $1`
	return scanEnrollment(r.db.QueryRowContext(ctx, q, token))
}

func (r *PostgresRepo) CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, bool, error) {
	const q = `
INSERT INTO enrollments (
  id, promoter_id, offer_id, tracking_token, status, clicks, conversions,
  earnings_minor, joined_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.PromoterID,
		e.OfferID,
		e.TrackingToken,
		e.Status,
		e.Clicks,
		e.Conversions,
		e.EarningsMinor,
		e.JoinedAt,
		e.UpdatedAt,
	)
	if err == nil {
		return e, true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		const sel = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE promoter_id = $1 AND offer_id = $2`
		existing, selErr := scanEnrollment(r.db.QueryRowContext(ctx, sel, e.PromoterID, e.OfferID))
		if selErr != nil {
			return Enrollment{}, false, selErr
		}
		return existing, false, nil
	}
	return Enrollment{}, false, err
}

func (r *PostgresRepo) ListEnrollmentsByPromoter(ctx context.Context, promoterID string) ([]Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE promoter_id = $1 ORDER BY joined_at DESC`
	rows, err := r.db.QueryContext(ctx, q, promoterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Enrollment
	for rows.Next() {
		var e Enrollment
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

func (r *PostgresRepo) DeactivateEnrollment(ctx context.Context, id string) error {
	const q = `UPDATE enrollments SET status = 'inactive', updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrEnrollmentNotFound
	}
	return nil
}
