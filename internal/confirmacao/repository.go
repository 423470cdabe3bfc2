package confirmacao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejem9gb/dejem/internal/db"
	"github.com/dejem9gb/dejem/internal/repo"
)

// Repository acessa dados gerais e confirmações por escala.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executa fn dentro de uma transação do pool do repositório.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

// GetDados busca os dados gerais da escala, se já preenchidos.
func (r *Repository) GetDados(ctx context.Context, escalaSistemaID string) (*DadosGerais, error) {
	const query = `
        SELECT escala_sistema_id, sei_link, observacoes, atualizado_por_re, atualizado_em
        FROM confirmacao_dados
        WHERE escala_sistema_id = $1
    `
	var d DadosGerais
	err := r.pool.QueryRow(ctx, query, escalaSistemaID).Scan(
		&d.EscalaSistemaID, &d.SEILink, &d.Observacoes, &d.AtualizadoPorRE, &d.AtualizadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListConfirmacoes devolve os status individuais já registrados.
func (r *Repository) ListConfirmacoes(ctx context.Context, escalaSistemaID string) ([]Confirmacao, error) {
	const query = `
        SELECT escala_sistema_id, re, status, confirmado_por_re, confirmado_em
        FROM confirmacoes
        WHERE escala_sistema_id = $1
        ORDER BY re
    `
	rows, err := r.pool.Query(ctx, query, escalaSistemaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var confirmacoes []Confirmacao
	for rows.Next() {
		var c Confirmacao
		if err := rows.Scan(&c.EscalaSistemaID, &c.RE, &c.Status, &c.ConfirmadoPorRE, &c.ConfirmadoEm); err != nil {
			return nil, err
		}
		confirmacoes = append(confirmacoes, c)
	}
	return confirmacoes, rows.Err()
}

// UpsertDadosTx grava os dados gerais dentro da transação da atualização.
func (r *Repository) UpsertDadosTx(ctx context.Context, tx pgx.Tx, d DadosGerais, agora time.Time) error {
	const query = `
        INSERT INTO confirmacao_dados (escala_sistema_id, sei_link, observacoes, atualizado_por_re, atualizado_em)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (escala_sistema_id) DO UPDATE
        SET sei_link = EXCLUDED.sei_link,
            observacoes = EXCLUDED.observacoes,
            atualizado_por_re = EXCLUDED.atualizado_por_re,
            atualizado_em = EXCLUDED.atualizado_em
    `
	_, err := tx.Exec(ctx, query, d.EscalaSistemaID, d.SEILink, d.Observacoes, d.AtualizadoPorRE, agora)
	return err
}

// UpsertConfirmacaoTx grava o status de um militar. Escrita incondicional:
// vale sempre o último registro (invariante de uma linha por escala+RE).
func (r *Repository) UpsertConfirmacaoTx(ctx context.Context, tx pgx.Tx, c Confirmacao, agora time.Time) error {
	const query = `
        INSERT INTO confirmacoes (escala_sistema_id, re, status, confirmado_por_re, confirmado_em)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (escala_sistema_id, re) DO UPDATE
        SET status = EXCLUDED.status,
            confirmado_por_re = EXCLUDED.confirmado_por_re,
            confirmado_em = EXCLUDED.confirmado_em
    `
	_, err := tx.Exec(ctx, query, c.EscalaSistemaID, c.RE, c.Status, c.ConfirmadoPorRE, agora)
	return err
}
