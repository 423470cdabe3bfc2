package solicitacao

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dejem9gb/dejem/internal/db"
	"github.com/dejem9gb/dejem/internal/repo"
)

// Repository acessa as tabelas de solicitações e do histórico.
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

const solicitacaoColunas = `id, data, opm_codigo, opm_nome, composicao_cod, composicao_nome, descricao,
    horario_inicial, horario_final, vagas_subten_sgt, vagas_cb_sd, escalado_subten_sgt, escalado_cb_sd,
    prioridade, motivo, observacoes, comprovante_url, prazo_inscricao, criado_por_re, criado_por_nome,
    criado_em, status`

// List devolve as solicitações de uma OPM no mês, em ordem de data e início.
func (r *Repository) List(ctx context.Context, opmCodigo string, mes, ano int) ([]Solicitacao, error) {
	const query = `
        SELECT ` + solicitacaoColunas + `
        FROM solicitacoes
        WHERE opm_codigo = $1
          AND EXTRACT(MONTH FROM data) = $2
          AND EXTRACT(YEAR FROM data) = $3
        ORDER BY data, horario_inicial, id
    `
	rows, err := r.pool.Query(ctx, query, opmCodigo, mes, ano)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// Get busca uma solicitação pelo id composto.
func (r *Repository) Get(ctx context.Context, id string) (*Solicitacao, error) {
	const query = `SELECT ` + solicitacaoColunas + ` FROM solicitacoes WHERE id = $1`
	s, err := scanSolicitacao(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetTx busca a solicitação travando a linha para a transição de status.
func (r *Repository) GetTx(ctx context.Context, tx pgx.Tx, id string) (*Solicitacao, error) {
	const query = `SELECT ` + solicitacaoColunas + ` FROM solicitacoes WHERE id = $1 FOR UPDATE`
	s, err := scanSolicitacao(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListExistingIDsTx devolve quais dos ids candidatos já existem.
func (r *Repository) ListExistingIDsTx(ctx context.Context, tx pgx.Tx, ids []string) (map[string]struct{}, error) {
	const query = `SELECT id FROM solicitacoes WHERE id = ANY($1)`
	rows, err := tx.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existentes := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existentes[id] = struct{}{}
	}
	return existentes, rows.Err()
}

// InsertTx insere uma solicitação nova. A PK composta é a trava final
// contra corrida entre a checagem de duplicidade e a escrita.
func (r *Repository) InsertTx(ctx context.Context, tx pgx.Tx, s Solicitacao) error {
	const query = `
        INSERT INTO solicitacoes (id, data, opm_codigo, opm_nome, composicao_cod, composicao_nome, descricao,
            horario_inicial, horario_final, vagas_subten_sgt, vagas_cb_sd, escalado_subten_sgt, escalado_cb_sd,
            prioridade, motivo, observacoes, comprovante_url, prazo_inscricao, criado_por_re, criado_por_nome, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
    `
	_, err := tx.Exec(ctx, query,
		s.ID, s.Data, s.OPMCodigo, s.OPMNome, s.ComposicaoCod, s.ComposicaoNome, s.Descricao,
		s.HorarioInicial, s.HorarioFinal, s.VagasSubtenSgt, s.VagasCbSd, s.EscaladoSubtenSgt, s.EscaladoCbSd,
		s.Prioridade, s.Motivo, s.Observacoes, s.ComprovanteURL, s.PrazoInscricao, s.CriadoPorRE, s.CriadoPorNome, s.Status,
	)
	return err
}

// UpdateStatusTx grava o novo status da solicitação.
func (r *Repository) UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, status int) error {
	tag, err := tx.Exec(ctx, `UPDATE solicitacoes SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// UpdateDetalhesTx altera motivo e observações durante a edição.
func (r *Repository) UpdateDetalhesTx(ctx context.Context, tx pgx.Tx, id, motivo, observacoes string) error {
	tag, err := tx.Exec(ctx, `UPDATE solicitacoes SET motivo = $2, observacoes = $3 WHERE id = $1`, id, motivo, observacoes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// UpdateComprovanteTx grava a URL do comprovante enviado.
func (r *Repository) UpdateComprovanteTx(ctx context.Context, tx pgx.Tx, id, url string) error {
	tag, err := tx.Exec(ctx, `UPDATE solicitacoes SET comprovante_url = $2 WHERE id = $1`, id, url)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// AppendHistoricoTx acrescenta uma entrada à trilha de auditoria. A tabela
// é append-only: nenhuma rota atualiza ou apaga entradas.
func (r *Repository) AppendHistoricoTx(ctx context.Context, tx pgx.Tx, h Historico) error {
	const query = `
        INSERT INTO solicitacao_historico (solicitacao_id, registrado_em, acao, alterado_por_re, alterado_por_nome, observacao)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	registradoEm := h.RegistradoEm
	if registradoEm.IsZero() {
		registradoEm = time.Now()
	}
	_, err := tx.Exec(ctx, query, h.SolicitacaoID, registradoEm, h.Acao, h.AlteradoPorRE, h.AlteradoPorNome, h.Observacao)
	return err
}

// ListHistorico devolve a trilha em ordem de registro.
func (r *Repository) ListHistorico(ctx context.Context, solicitacaoID string) ([]Historico, error) {
	const query = `
        SELECT id, solicitacao_id, registrado_em, acao, alterado_por_re, alterado_por_nome, observacao
        FROM solicitacao_historico
        WHERE solicitacao_id = $1
        ORDER BY registrado_em, id
    `
	rows, err := r.pool.Query(ctx, query, solicitacaoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var historico []Historico
	for rows.Next() {
		var h Historico
		if err := rows.Scan(&h.ID, &h.SolicitacaoID, &h.RegistradoEm, &h.Acao, &h.AlteradoPorRE, &h.AlteradoPorNome, &h.Observacao); err != nil {
			return nil, err
		}
		historico = append(historico, h)
	}
	return historico, rows.Err()
}

// ListParaExportTx devolve, travadas, as solicitações exportáveis da OPM
// no mês (status aberta, em edição ou excluída).
func (r *Repository) ListParaExportTx(ctx context.Context, tx pgx.Tx, opmCodigo string, mes, ano int) ([]Solicitacao, error) {
	const query = `
        SELECT ` + solicitacaoColunas + `
        FROM solicitacoes
        WHERE opm_codigo = $1
          AND EXTRACT(MONTH FROM data) = $2
          AND EXTRACT(YEAR FROM data) = $3
          AND status = ANY($4)
        ORDER BY data, horario_inicial, id
        FOR UPDATE
    `
	rows, err := tx.Query(ctx, query, opmCodigo, mes, ano, []int{StatusAberta, StatusEmEdicao, StatusExcluida})
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows pgx.Rows) ([]Solicitacao, error) {
	var solicitacoes []Solicitacao
	for rows.Next() {
		s, err := scanSolicitacao(rows)
		if err != nil {
			return nil, err
		}
		solicitacoes = append(solicitacoes, *s)
	}
	return solicitacoes, rows.Err()
}

func scanSolicitacao(row pgx.Row) (*Solicitacao, error) {
	var s Solicitacao
	err := row.Scan(
		&s.ID, &s.Data, &s.OPMCodigo, &s.OPMNome, &s.ComposicaoCod, &s.ComposicaoNome, &s.Descricao,
		&s.HorarioInicial, &s.HorarioFinal, &s.VagasSubtenSgt, &s.VagasCbSd, &s.EscaladoSubtenSgt, &s.EscaladoCbSd,
		&s.Prioridade, &s.Motivo, &s.Observacoes, &s.ComprovanteURL, &s.PrazoInscricao, &s.CriadoPorRE, &s.CriadoPorNome,
		&s.CriadoEm, &s.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
