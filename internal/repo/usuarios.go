package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso às tabelas de conta e catálogo.
type Repository struct {
	pool *pgxpool.Pool
}

// New cria instância do repositório.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const usuarioColunas = `re, nome, email, senha_hash, nivel, posto_grad, opm, redefinir_senha, senha_temporaria_expira, ativo, criado_em`

// GetUsuario busca a conta pelo RE.
func (r *Repository) GetUsuario(ctx context.Context, re string) (*Usuario, error) {
	const query = `SELECT ` + usuarioColunas + ` FROM usuarios WHERE re = $1`
	row := r.pool.QueryRow(ctx, query, strings.TrimSpace(re))
	return scanUsuario(row)
}

// GetNivel devolve apenas o nível de acesso do RE.
func (r *Repository) GetNivel(ctx context.Context, re string) (int, error) {
	const query = `SELECT nivel FROM usuarios WHERE re = $1 AND ativo`
	var nivel int
	if err := r.pool.QueryRow(ctx, query, re).Scan(&nivel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return nivel, nil
}

// ListUsuarios lista todas as contas ordenadas por nome.
func (r *Repository) ListUsuarios(ctx context.Context) ([]Usuario, error) {
	const query = `SELECT ` + usuarioColunas + ` FROM usuarios ORDER BY nome`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, *u)
	}
	return usuarios, rows.Err()
}

// CreateUsuario insere conta nova. RE duplicado retorna erro do banco.
func (r *Repository) CreateUsuario(ctx context.Context, u Usuario) error {
	const query = `
        INSERT INTO usuarios (re, nome, email, senha_hash, nivel, posto_grad, opm, redefinir_senha, senha_temporaria_expira, ativo)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.pool.Exec(ctx, query,
		strings.TrimSpace(u.RE),
		strings.TrimSpace(u.Nome),
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.SenhaHash,
		u.Nivel,
		strings.TrimSpace(u.PostoGrad),
		strings.TrimSpace(u.OPM),
		u.RedefinirSenha,
		u.SenhaTemporariaExpira,
		u.Ativo,
	)
	return err
}

// SetSenha grava hash novo e o estado de redefinição da conta.
func (r *Repository) SetSenha(ctx context.Context, re, senhaHash string, redefinir bool, expira *time.Time) error {
	const query = `
        UPDATE usuarios
        SET senha_hash = $2, redefinir_senha = $3, senha_temporaria_expira = $4
        WHERE re = $1
    `
	tag, err := r.pool.Exec(ctx, query, re, senhaHash, redefinir, expira)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateUsuario altera nível e situação da conta (campos opcionais).
func (r *Repository) UpdateUsuario(ctx context.Context, re string, nivel *int, ativo *bool) error {
	const query = `
        UPDATE usuarios
        SET nivel = COALESCE($2, nivel), ativo = COALESCE($3, ativo)
        WHERE re = $1
    `
	tag, err := r.pool.Exec(ctx, query, re, nivel, ativo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListOPMPermissoes devolve os códigos de OPM que o RE pode movimentar.
func (r *Repository) ListOPMPermissoes(ctx context.Context, re string) ([]string, error) {
	const query = `SELECT opm_codigo FROM usuario_opms WHERE re = $1 ORDER BY opm_codigo`
	rows, err := r.pool.Query(ctx, query, re)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codigos []string
	for rows.Next() {
		var codigo string
		if err := rows.Scan(&codigo); err != nil {
			return nil, err
		}
		codigos = append(codigos, codigo)
	}
	return codigos, rows.Err()
}

// HasOPMPermissao verifica vínculo do RE com a OPM.
func (r *Repository) HasOPMPermissao(ctx context.Context, re, opmCodigo string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM usuario_opms WHERE re = $1 AND opm_codigo = $2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, query, re, opmCodigo).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// SetOPMPermissoes substitui o conjunto de OPMs permitidas do RE.
func (r *Repository) SetOPMPermissoes(ctx context.Context, re string, codigos []string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM usuario_opms WHERE re = $1`, re); err != nil {
		return err
	}
	for _, codigo := range codigos {
		codigo = strings.TrimSpace(codigo)
		if codigo == "" {
			continue
		}
		if _, err := tx.Exec(ctx, `INSERT INTO usuario_opms (re, opm_codigo) VALUES ($1, $2) ON CONFLICT DO NOTHING`, re, codigo); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func scanUsuario(row pgx.Row) (*Usuario, error) {
	var u Usuario
	err := row.Scan(
		&u.RE,
		&u.Nome,
		&u.Email,
		&u.SenhaHash,
		&u.Nivel,
		&u.PostoGrad,
		&u.OPM,
		&u.RedefinirSenha,
		&u.SenhaTemporariaExpira,
		&u.Ativo,
		&u.CriadoEm,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
