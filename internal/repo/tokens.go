package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// SaveRefreshToken persiste o hash de um refresh token emitido.
func (r *Repository) SaveRefreshToken(ctx context.Context, hash, re string, expiraEm time.Time) error {
	const query = `
        INSERT INTO tokens_refresh (token_hash, re, expira_em)
        VALUES ($1, $2, $3)
    `
	_, err := r.pool.Exec(ctx, query, hash, re, expiraEm)
	return err
}

// GetRefreshToken busca token válido (não expirado) pelo hash.
func (r *Repository) GetRefreshToken(ctx context.Context, hash string) (*TokenRefresh, error) {
	const query = `
        SELECT token_hash, re, expira_em, criado_em
        FROM tokens_refresh
        WHERE token_hash = $1 AND expira_em > now()
    `
	var t TokenRefresh
	err := r.pool.QueryRow(ctx, query, hash).Scan(&t.Hash, &t.RE, &t.ExpiraEm, &t.CriadoEm)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// DeleteRefreshToken descarta o token pelo hash (logout ou rotação).
func (r *Repository) DeleteRefreshToken(ctx context.Context, hash string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tokens_refresh WHERE token_hash = $1`, hash)
	return err
}

// DeleteRefreshTokensDoRE descarta todos os tokens de um RE (troca de senha).
func (r *Repository) DeleteRefreshTokensDoRE(ctx context.Context, re string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM tokens_refresh WHERE re = $1`, re)
	return err
}
