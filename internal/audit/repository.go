package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends audit events to the audit_events table. The table is
// INSERT-only; no update or delete statements exist anywhere in this package.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events
  (id, type, network_id, actor_user_id, actor_role, ip_address,
   offer_id, enrollment_id, conversion_id, transaction_id,
   code, message, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.Type,
		e.NetworkID,
		e.ActorUserID,
		e.ActorRole,
		e.IPAddress,
		e.OfferID,
		e.EnrollmentID,
		e.ConversionID,
		e.TransactionID,
		e.Code,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
