package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ListOPMs devolve o catálogo de OPMs ordenado por nome.
func (r *Repository) ListOPMs(ctx context.Context) ([]OPM, error) {
	const query = `SELECT codigo, nome FROM opms ORDER BY nome`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var opms []OPM
	for rows.Next() {
		var o OPM
		if err := rows.Scan(&o.Codigo, &o.Nome); err != nil {
			return nil, err
		}
		opms = append(opms, o)
	}
	return opms, rows.Err()
}

// GetOPM busca uma OPM pelo código.
func (r *Repository) GetOPM(ctx context.Context, codigo string) (*OPM, error) {
	const query = `SELECT codigo, nome FROM opms WHERE codigo = $1`
	var o OPM
	if err := r.pool.QueryRow(ctx, query, codigo).Scan(&o.Codigo, &o.Nome); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// ListComposicoes lista as composições cadastradas para uma OPM.
func (r *Repository) ListComposicoes(ctx context.Context, opmCodigo string) ([]Composicao, error) {
	const query = `
        SELECT opm_codigo, codigo, nome, descricao
        FROM composicoes
        WHERE opm_codigo = $1
        ORDER BY codigo
    `
	rows, err := r.pool.Query(ctx, query, opmCodigo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var composicoes []Composicao
	for rows.Next() {
		var c Composicao
		if err := rows.Scan(&c.OPMCodigo, &c.Codigo, &c.Nome, &c.Descricao); err != nil {
			return nil, err
		}
		composicoes = append(composicoes, c)
	}
	return composicoes, rows.Err()
}

// GetComposicao busca composição pelo par (opm, codigo).
func (r *Repository) GetComposicao(ctx context.Context, opmCodigo, codigo string) (*Composicao, error) {
	const query = `
        SELECT opm_codigo, codigo, nome, descricao
        FROM composicoes
        WHERE opm_codigo = $1 AND codigo = $2
    `
	var c Composicao
	err := r.pool.QueryRow(ctx, query, opmCodigo, codigo).Scan(&c.OPMCodigo, &c.Codigo, &c.Nome, &c.Descricao)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
