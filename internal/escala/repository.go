package escala

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository lê a tabela de escalas importada.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const escalaColunas = `id, ano, mes, dia, linha, re, militar, posto_grad, opm, estacao, composicao, horario_inic, horario_term, id_sistema, exclusao, documento, ausente`

// List devolve as linhas de uma das partições (roster ativo ou exclusões),
// opcionalmente restritas a mês/ano. A ordenação por data decrescente e
// linha crescente preserva a ordem da planilha dentro de cada dia.
func (r *Repository) List(ctx context.Context, exclusao bool, mes, ano int) ([]Escala, error) {
	base := `SELECT ` + escalaColunas + ` FROM escalas`

	clauses := []string{fmt.Sprintf("exclusao = $%d", 1)}
	args := []any{exclusao}
	idx := 2

	if ano > 0 {
		clauses = append(clauses, fmt.Sprintf("ano = $%d", idx))
		args = append(args, ano)
		idx++
	}
	if mes > 0 {
		clauses = append(clauses, fmt.Sprintf("mes = $%d", idx))
		args = append(args, mes)
		idx++
	}

	query := base + " WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY ano DESC, mes DESC, dia DESC, linha ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escalas []Escala
	for rows.Next() {
		e, err := scanEscala(rows)
		if err != nil {
			return nil, err
		}
		escalas = append(escalas, e)
	}
	return escalas, rows.Err()
}

// ListByIDSistema devolve todas as linhas (não excluídas) que compartilham
// o identificador externo da escala.
func (r *Repository) ListByIDSistema(ctx context.Context, idSistema string) ([]Escala, error) {
	query := `SELECT ` + escalaColunas + ` FROM escalas WHERE id_sistema = $1 AND NOT exclusao ORDER BY linha`

	rows, err := r.pool.Query(ctx, query, idSistema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var escalas []Escala
	for rows.Next() {
		e, err := scanEscala(rows)
		if err != nil {
			return nil, err
		}
		escalas = append(escalas, e)
	}
	return escalas, rows.Err()
}

// ListEstacoes devolve as estações distintas do roster ativo, ordenadas.
func (r *Repository) ListEstacoes(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT estacao FROM escalas WHERE NOT exclusao AND estacao <> '' ORDER BY estacao`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var estacoes []string
	for rows.Next() {
		var estacao string
		if err := rows.Scan(&estacao); err != nil {
			return nil, err
		}
		estacoes = append(estacoes, estacao)
	}
	return estacoes, rows.Err()
}

func scanEscala(row pgx.Row) (Escala, error) {
	var e Escala
	err := row.Scan(
		&e.ID,
		&e.Ano,
		&e.Mes,
		&e.Dia,
		&e.Linha,
		&e.RE,
		&e.Militar,
		&e.PostoGrad,
		&e.OPM,
		&e.Estacao,
		&e.Composicao,
		&e.HorarioInic,
		&e.HorarioTerm,
		&e.IDSistema,
		&e.Exclusao,
		&e.Documento,
		&e.Ausente,
	)
	return e, err
}
