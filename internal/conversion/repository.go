package conversion

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"affiliate-platform/pkg/utils"
)

var ErrConversionNotFound = errors.New("conversion not found")

// errDuplicateTransaction signals a UNIQUE (network_id, transaction_id)
// violation out of the insert transaction so the caller can fetch the
// original row. Internal to the repository.
var errDuplicateTransaction = errors.New("duplicate transaction")

// Repository is the persistence contract for conversions.
//
// CreateConversion is the idempotency guard and the commission ledger in one
// transactional unit: the row insert is protected by the storage-level
// UNIQUE (network_id, transaction_id) constraint, and when the status is
// approved the enrollment and offer counters are credited in the same
// transaction. A uniqueness violation returns the original row with
// created=false and leaves all counters untouched.
//
// TransitionStatus applies pending -> approved|rejected. Crediting happens
// if and only if the row actually moves out of pending, so re-applying a
// terminal status can never double-credit.
type Repository interface {
	CreateConversion(ctx context.Context, c Conversion) (Conversion, bool, error)
	GetConversion(ctx context.Context, id string) (Conversion, error)
	FindByTransaction(ctx context.Context, networkID, transactionID string) (Conversion, error)
	TransitionStatus(ctx context.Context, id string, to Status, at time.Time) (Conversion, error)
	ListByEnrollment(ctx context.Context, enrollmentID string, limit int) ([]Conversion, error)
}

const uniqueViolation = "23505"

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const conversionColumns = `
id, network_id, enrollment_id, click_id, transaction_id, amount_minor,
commission_minor, currency, status, custom_params, created_at, updated_at
`

func (r *PostgresRepo) CreateConversion(ctx context.Context, c Conversion) (Conversion, bool, error) {
	params, err := marshalCustomParams(c.CustomParams)
	if err != nil {
		return Conversion{}, false, fmt.Errorf("marshal custom params: %w", err)
	}

	err = utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const ins = `
INSERT INTO conversions (
  id, network_id, enrollment_id, click_id, transaction_id, amount_minor,
  commission_minor, currency, status, custom_params, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
		if _, err := tx.ExecContext(ctx, ins,
			c.ID,
			c.NetworkID,
			c.EnrollmentID,
			nullString(c.ClickID),
			c.TransactionID,
			c.AmountMinor,
			c.CommissionMinor,
			c.Currency,
			c.Status,
			params,
			c.CreatedAt,
			c.UpdatedAt,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return errDuplicateTransaction
			}
			return err
		}

		if c.Status == StatusApproved {
			return creditCounters(ctx, tx, c.EnrollmentID, c.CommissionMinor, c.UpdatedAt)
		}
		return nil
	})
	if err == nil {
		return c, true, nil
	}
	if errors.Is(err, errDuplicateTransaction) {
		existing, selErr := r.FindByTransaction(ctx, c.NetworkID, c.TransactionID)
		if selErr != nil {
			return Conversion{}, false, selErr
		}
		return existing, false, nil
	}
	return Conversion{}, false, err
}

func (r *PostgresRepo) TransitionStatus(ctx context.Context, id string, to Status, at time.Time) (Conversion, error) {
	var out Conversion
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const sel = `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1 FOR UPDATE`
		cur, err := scanConversion(tx.QueryRowContext(ctx, sel, id))
		if err != nil {
			return err
		}

		// Terminal rows never move again; absorbing the retry here is what
		// keeps a guard-bypassed re-approve from double-crediting.
		if cur.Status != StatusPending {
			out = cur
			return nil
		}

		const upd = `UPDATE conversions SET status = $2, updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, upd, id, to, at); err != nil {
			return err
		}
		cur.Status = to
		cur.UpdatedAt = at

		if to == StatusApproved {
			if err := creditCounters(ctx, tx, cur.EnrollmentID, cur.CommissionMinor, at); err != nil {
				return err
			}
		}
		out = cur
		return nil
	})
	if err != nil {
		return Conversion{}, err
	}
	return out, nil
}

// creditCounters bumps the enrollment's conversion/earnings counters and the
// owning offer's conversion counter. Relative UPDATEs, never read-modify-write.
func creditCounters(ctx context.Context, tx *sql.Tx, enrollmentID string, commissionMinor int64, at time.Time) error {
	const bumpEnrollment = `
UPDATE enrollments
SET conversions = conversions + 1,
    earnings_minor = earnings_minor + $2,
    updated_at = $3
WHERE id = $1
`
	res, err := tx.ExecContext(ctx, bumpEnrollment, enrollmentID, commissionMinor, at)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("credit counters: enrollment %s missing", enrollmentID)
	}

	const bumpOffer = `
UPDATE offers
SET total_conversions = total_conversions + 1,
    updated_at = $2
WHERE id = (SELECT offer_id FROM enrollments WHERE id = $1)
`
	_, err = tx.ExecContext(ctx, bumpOffer, enrollmentID, at)
	return err
}

func (r *PostgresRepo) GetConversion(ctx context.Context, id string) (Conversion, error) {
	const q = `SELECT ` + conversionColumns + ` FROM conversions WHERE id = $1`
	return scanConversion(r.db.QueryRowContext(ctx, q, id))
}

func (r *PostgresRepo) FindByTransaction(ctx context.Context, networkID, transactionID string) (Conversion, error) {
	const q = `SELECT ` + conversionColumns + ` FROM conversions WHERE network_id = $1 AND transaction_id = $2`
	return scanConversion(r.db.QueryRowContext(ctx, q, networkID, transactionID))
}

func (r *PostgresRepo) ListByEnrollment(ctx context.Context, enrollmentID string, limit int) ([]Conversion, error) {
	const q = `
SELECT ` + conversionColumns + `
FROM conversions
WHERE enrollment_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, enrollmentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Conversion
	for rows.Next() {
		var c Conversion
		var clickID sql.NullString
		var params []byte
		if err := rows.Scan(
			&c.ID,
			&c.NetworkID,
			&c.EnrollmentID,
			&clickID,
			&c.TransactionID,
			&c.AmountMinor,
			&c.CommissionMinor,
			&c.Currency,
			&c.Status,
			&params,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		c.ClickID = clickID.String
		if err := unmarshalCustomParams(params, &c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversion(row rowScanner) (Conversion, error) {
	var c Conversion
	var clickID sql.NullString
	var params []byte
	err := row.Scan(
		&c.ID,
		&c.NetworkID,
		&c.EnrollmentID,
		&clickID,
		&c.TransactionID,
		&c.AmountMinor,
		&c.CommissionMinor,
		&c.Currency,
		&c.Status,
		&params,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Conversion{}, ErrConversionNotFound
		}
		return Conversion{}, err
	}
	c.ClickID = clickID.String
	if err := unmarshalCustomParams(params, &c); err != nil {
		return Conversion{}, err
	}
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func marshalCustomParams(m map[string]string) ([]byte, error) {
	if len(m) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func unmarshalCustomParams(b []byte, c *Conversion) error {
	if len(b) == 0 {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) > 0 {
		c.CustomParams = m
	}
	return nil
}
