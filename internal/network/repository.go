package network

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("network not found")

// Repository is the persistence contract for the network registry.
//
// FindByAPIKey must return only active networks; an inactive network's key is
// indistinguishable from an unknown key to the caller. That keeps the
// INVALID_API_KEY rejection uniform and avoids leaking integration state.
type Repository interface {
	FindByAPIKey(ctx context.Context, apiKey string) (Network, error)
	FindByID(ctx context.Context, id string) (Network, error)
	Create(ctx context.Context, n Network) error
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) FindByAPIKey(ctx context.Context, apiKey string) (Network, error) {
	const q = `
SELECT id, name, api_key, secret, secret_valid_from, postback_url, status, created_at, updated_at
FROM networks
WHERE api_key = $1 AND status = 'active'
`
	return r.scanOne(ctx, q, apiKey)
}

func (r *PostgresRepo) FindByID(ctx context.Context, id string) (Network, error) {
	const q = `
SELECT id, name, api_key, secret, secret_valid_from, postback_url, status, created_at, updated_at
FROM networks
WHERE id = $1
`
	return r.scanOne(ctx, q, id)
}

func (r *PostgresRepo) Create(ctx context.Context, n Network) error {
	const q = `
INSERT INTO networks (id, name, api_key, secret, secret_valid_from, postback_url, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q,
		n.ID,
		n.Name,
		n.APIKey,
		n.Secret,
		n.SecretValidFrom,
		n.PostbackURL,
		n.Status,
		n.CreatedAt,
		n.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) scanOne(ctx context.Context, q string, arg any) (Network, error) {
	var n Network
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&n.ID,
		&n.Name,
		&n.APIKey,
		&n.Secret,
		&n.SecretValidFrom,
		&n.PostbackURL,
		&n.Status,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Network{}, ErrNotFound
		}
		return Network{}, err
	}
	return n, nil
}
