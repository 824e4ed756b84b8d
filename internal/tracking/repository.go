package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"affiliate-platform/pkg/utils"
)

var (
	ErrClickNotFound      = errors.New("click not found")
	ErrEnrollmentNotFound = errors.New("tracking: enrollment not found or inactive")
)

// Repository is the persistence contract for the click ledger.
//
// InsertClick must be atomic: the click row, the enrollment click counter and
// the offer click counter commit or roll back together. Counters are bumped
// with relative UPDATEs (clicks = clicks + 1), never read-modify-write, so
// concurrent clicks on the same enrollment cannot lose updates.
type Repository interface {
	InsertClick(ctx context.Context, c Click) error
	GetClick(ctx context.Context, id string) (Click, error)
	ListClicksByEnrollment(ctx context.Context, enrollmentID string, limit int) ([]Click, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) InsertClick(ctx context.Context, c Click) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Guard on status here as well as in the service: the enrollment may
		// have been deactivated between lookup and insert.
		const bumpEnrollment = `
UPDATE enrollments
SET clicks = clicks + 1, updated_at = NOW()
WHERE id = $1 AND status = 'active'
`
		res, err := tx.ExecContext(ctx, bumpEnrollment, c.EnrollmentID)
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

		subIDs, err := marshalSubIDs(c.SubIDs)
		if err != nil {
			return err
		}
		const insert = `
INSERT INTO clicks (
  id, enrollment_id, ip_address, user_agent, device, browser, os,
  country, referrer, sub_ids, clicked_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
		if _, err := tx.ExecContext(ctx, insert,
			c.ID,
			c.EnrollmentID,
			c.IPAddress,
			c.UserAgent,
			c.Device,
			c.Browser,
			c.OS,
			c.Country,
			c.Referrer,
			subIDs,
			c.ClickedAt,
		); err != nil {
			return err
		}

		const bumpOffer = `
UPDATE offers
SET total_clicks = total_clicks + 1, updated_at = NOW()
WHERE id = (SELECT offer_id FROM enrollments WHERE id = $1)
`
		_, err = tx.ExecContext(ctx, bumpOffer, c.EnrollmentID)
		return err
	})
}

const clickColumns = `
id, enrollment_id, ip_address, user_agent, device, browser, os,
country, referrer, sub_ids, clicked_at
`

func (r *PostgresRepo) GetClick(ctx context.Context, id string) (Click, error) {
	const q = `SELECT ` + clickColumns + ` FROM clicks WHERE id = $1`
	var c Click
	var subIDs []byte
	if err := r.db.QueryRowContext(ctx, q, id).Scan(
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
		if errors.Is(err, sql.ErrNoRows) {
			return Click{}, ErrClickNotFound
		}
		return Click{}, err
	}
	if err := unmarshalSubIDs(subIDs, &c); err != nil {
		return Click{}, err
	}
	return c, nil
}

func (r *PostgresRepo) ListClicksByEnrollment(ctx context.Context, enrollmentID string, limit int) ([]Click, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	const q = `SELECT ` + clickColumns + ` FROM clicks WHERE enrollment_id = $1 ORDER BY clicked_at DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, enrollmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Click
	for rows.Next() {
		var c Click
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
		if err := unmarshalSubIDs(subIDs, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func marshalSubIDs(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func unmarshalSubIDs(b []byte, c *Click) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, &c.SubIDs)
}
