package solicitacao

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/xuri/excelize/v2"

	"github.com/dejem9gb/dejem/internal/repo"
	"github.com/dejem9gb/dejem/internal/storage"
)

var (
	// ErrSemPermissaoOPM indica RE sem vínculo com a OPM movimentada.
	ErrSemPermissaoOPM = errors.New("sem permissão para esta OPM")
	// ErrSomenteCriador indica ação reservada ao criador do pedido.
	ErrSomenteCriador = errors.New("ação restrita ao criador da solicitação")
	// ErrSomenteAdmin indica ação reservada a administradores.
	ErrSomenteAdmin = errors.New("ação restrita a administradores")
	// ErrTransicaoInvalida indica ação incompatível com o status atual.
	ErrTransicaoInvalida = errors.New("transição de status inválida")
	// ErrPrioridadeInvalida indica prioridade desconhecida.
	ErrPrioridadeInvalida = errors.New("prioridade inválida")
	// ErrVagasInvalidas indica pedido sem nenhuma vaga.
	ErrVagasInvalidas = errors.New("informe pelo menos uma vaga")
	// ErrDataInvalida indica data base ou dia extra fora do mês.
	ErrDataInvalida = errors.New("data inválida")
	// ErrVistoriaPrazo indica vistoria técnica além de 10 dias.
	ErrVistoriaPrazo = errors.New("vistoria técnica deve estar a no máximo 10 dias")
	// ErrVistoriaExpediente indica término após 19:00 sem justificativa.
	ErrVistoriaExpediente = errors.New("vistoria com término após 19:00 exige motivo citando expediente")
	// ErrNaoEncontrada indica id inexistente.
	ErrNaoEncontrada = errors.New("solicitação não encontrada")
)

// DuplicadaError lista os dias cujo id composto já existe.
type DuplicadaError struct {
	Dias []string
}

func (e *DuplicadaError) Error() string {
	return "já existe solicitação para: " + strings.Join(e.Dias, ", ")
}

type solicitacaoRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
	List(ctx context.Context, opmCodigo string, mes, ano int) ([]Solicitacao, error)
	Get(ctx context.Context, id string) (*Solicitacao, error)
	GetTx(ctx context.Context, tx pgx.Tx, id string) (*Solicitacao, error)
	ListExistingIDsTx(ctx context.Context, tx pgx.Tx, ids []string) (map[string]struct{}, error)
	InsertTx(ctx context.Context, tx pgx.Tx, s Solicitacao) error
	UpdateStatusTx(ctx context.Context, tx pgx.Tx, id string, status int) error
	UpdateDetalhesTx(ctx context.Context, tx pgx.Tx, id, motivo, observacoes string) error
	UpdateComprovanteTx(ctx context.Context, tx pgx.Tx, id, url string) error
	AppendHistoricoTx(ctx context.Context, tx pgx.Tx, h Historico) error
	ListHistorico(ctx context.Context, solicitacaoID string) ([]Historico, error)
	ListParaExportTx(ctx context.Context, tx pgx.Tx, opmCodigo string, mes, ano int) ([]Solicitacao, error)
}

type catalogRepository interface {
	GetOPM(ctx context.Context, codigo string) (*repo.OPM, error)
	GetComposicao(ctx context.Context, opmCodigo, codigo string) (*repo.Composicao, error)
	HasOPMPermissao(ctx context.Context, re, opmCodigo string) (bool, error)
}

// Ator identifica quem executa a ação.
type Ator struct {
	RE    string
	Nome  string
	Nivel int
}

func (a Ator) admin() bool { return a.Nivel == 1 }

// Service implementa o fluxo de solicitações de vagas.
type Service struct {
	repo     solicitacaoRepository
	catalog  catalogRepository
	uploader storage.Uploader
	now      func() time.Time
}

// NewService cria o serviço de solicitações.
func NewService(r solicitacaoRepository, catalog catalogRepository, uploader storage.Uploader) *Service {
	return &Service{repo: r, catalog: catalog, uploader: uploader, now: time.Now}
}

// CreateInput é o corpo de criação: um dia base e dias extras do mesmo mês.
type CreateInput struct {
	OPMCodigo      string     `json:"opm_codigo"`
	ComposicaoCod  string     `json:"composicao_cod"`
	Data           string     `json:"data"`
	DiasExtras     []int      `json:"dias_extras"`
	HorarioInicial string     `json:"horario_inicial"`
	VagasSubtenSgt int        `json:"vagas_subten_sgt"`
	VagasCbSd      int        `json:"vagas_cb_sd"`
	Prioridade     string     `json:"prioridade"`
	Motivo         string     `json:"motivo"`
	Observacoes    string     `json:"observacoes"`
	PrazoInscricao *time.Time `json:"prazo_inscricao"`
}

// Listar devolve as solicitações da OPM no mês pedido.
func (s *Service) Listar(ctx context.Context, ator Ator, opmCodigo string, mes, ano int) ([]Solicitacao, error) {
	if err := s.checkOPM(ctx, ator, opmCodigo); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, opmCodigo, mes, ano)
}

// Criar valida o pedido e insere uma solicitação por dia, com histórico,
// em uma única transação. Ids duplicados derrubam o lote inteiro.
func (s *Service) Criar(ctx context.Context, ator Ator, input CreateInput) ([]Solicitacao, error) {
	if err := s.checkOPM(ctx, ator, input.OPMCodigo); err != nil {
		return nil, err
	}

	if !IsValidPrioridade(input.Prioridade) {
		return nil, ErrPrioridadeInvalida
	}
	if input.VagasSubtenSgt <= 0 && input.VagasCbSd <= 0 {
		return nil, ErrVagasInvalidas
	}

	dataBase, err := time.Parse("2006-01-02", input.Data)
	if err != nil {
		return nil, ErrDataInvalida
	}

	horarioFinal, err := HorarioFinalDe(input.HorarioInicial)
	if err != nil {
		return nil, ErrDataInvalida
	}

	dias, err := expandirDias(dataBase, input.DiasExtras)
	if err != nil {
		return nil, err
	}

	if input.Prioridade == PrioridadeVistoriaTecnica {
		if err := s.validarVistoria(dias, input.HorarioInicial, input.Motivo); err != nil {
			return nil, err
		}
	}

	opm, err := s.catalog.GetOPM(ctx, input.OPMCodigo)
	if err != nil {
		return nil, err
	}
	composicao, err := s.catalog.GetComposicao(ctx, input.OPMCodigo, input.ComposicaoCod)
	if err != nil {
		return nil, err
	}

	novas := make([]Solicitacao, 0, len(dias))
	for _, dia := range dias {
		novas = append(novas, Solicitacao{
			ID:             CompositeID(opm.Codigo, composicao.Codigo, dia, input.HorarioInicial),
			Data:           dia,
			OPMCodigo:      opm.Codigo,
			OPMNome:        opm.Nome,
			ComposicaoCod:  composicao.Codigo,
			ComposicaoNome: composicao.Nome,
			Descricao:      composicao.Descricao,
			HorarioInicial: input.HorarioInicial,
			HorarioFinal:   horarioFinal,
			VagasSubtenSgt: input.VagasSubtenSgt,
			VagasCbSd:      input.VagasCbSd,
			Prioridade:     input.Prioridade,
			Motivo:         strings.TrimSpace(input.Motivo),
			Observacoes:    strings.TrimSpace(input.Observacoes),
			PrazoInscricao: input.PrazoInscricao,
			CriadoPorRE:    ator.RE,
			CriadoPorNome:  ator.Nome,
			Status:         StatusAberta,
		})
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		ids := make([]string, len(novas))
		for i, nova := range novas {
			ids[i] = nova.ID
		}

		existentes, err := s.repo.ListExistingIDsTx(ctx, tx, ids)
		if err != nil {
			return err
		}
		if len(existentes) > 0 {
			var diasConflito []string
			for _, nova := range novas {
				if _, ok := existentes[nova.ID]; ok {
					diasConflito = append(diasConflito, nova.Data.Format("02/01/2006"))
				}
			}
			sort.Strings(diasConflito)
			return &DuplicadaError{Dias: diasConflito}
		}

		for _, nova := range novas {
			if err := s.repo.InsertTx(ctx, tx, nova); err != nil {
				return err
			}
			h := Historico{
				SolicitacaoID:   nova.ID,
				Acao:            AcaoCriacao,
				AlteradoPorRE:   ator.RE,
				AlteradoPorNome: ator.Nome,
			}
			if err := s.repo.AppendHistoricoTx(ctx, tx, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return novas, nil
}

// AnexarComprovante sobe o arquivo e grava a URL na solicitação.
func (s *Service) AnexarComprovante(ctx context.Context, ator Ator, id, filename, contentType string, body []byte) (string, error) {
	atual, err := s.get(ctx, id)
	if err != nil {
		return "", err
	}
	if err := s.checkCriador(ator, atual); err != nil {
		return "", err
	}
	if atual.Status != StatusAberta && atual.Status != StatusEmEdicao {
		return "", ErrTransicaoInvalida
	}

	resultado, err := s.uploader.Upload(ctx, storage.UploadInput{
		Key:         storage.AnexoKey(id, filename),
		Body:        body,
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.repo.UpdateComprovanteTx(ctx, tx, id, resultado.URL)
	})
	if err != nil {
		return "", err
	}
	return resultado.URL, nil
}

// AtualizarDetalhes altera motivo e observações de um pedido em edição.
func (s *Service) AtualizarDetalhes(ctx context.Context, ator Ator, id, motivo, observacoes string) error {
	return s.transicao(ctx, ator, id, AcaoEdicaoDetalhes, func(ctx context.Context, tx pgx.Tx, atual *Solicitacao) error {
		return s.repo.UpdateDetalhesTx(ctx, tx, id, strings.TrimSpace(motivo), strings.TrimSpace(observacoes))
	})
}

// IniciarEdicao trava o pedido para o solicitante alterar.
func (s *Service) IniciarEdicao(ctx context.Context, ator Ator, id string) error {
	return s.transicao(ctx, ator, id, AcaoInicioEdicao, nil)
}

// ConfirmarEdicao devolve o pedido editado ao estado aberto.
func (s *Service) ConfirmarEdicao(ctx context.Context, ator Ator, id string) error {
	return s.transicao(ctx, ator, id, AcaoConfirmacaoEdicao, nil)
}

// CancelarEdicao desfaz a trava de edição.
func (s *Service) CancelarEdicao(ctx context.Context, ator Ator, id string) error {
	return s.transicao(ctx, ator, id, AcaoCancelamentoEdicao, nil)
}

// Excluir marca o pedido como excluído (exclusão lógica).
func (s *Service) Excluir(ctx context.Context, ator Ator, id string) error {
	return s.transicao(ctx, ator, id, AcaoExclusao, nil)
}

// Reativar devolve um pedido excluído ao estado aberto (admin).
func (s *Service) Reativar(ctx context.Context, ator Ator, id string) error {
	return s.transicao(ctx, ator, id, AcaoReativacaoAdmin, nil)
}

// Liberar destrava um pedido já tratado pela administração (admin).
func (s *Service) Liberar(ctx context.Context, ator Ator, id string) error {
	return s.transicao(ctx, ator, id, AcaoLiberacaoAdmin, nil)
}

// HistoricoDe devolve a trilha de auditoria do pedido.
func (s *Service) HistoricoDe(ctx context.Context, ator Ator, id string) ([]Historico, error) {
	atual, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOPM(ctx, ator, atual.OPMCodigo); err != nil {
		return nil, err
	}
	return s.repo.ListHistorico(ctx, id)
}

// Exportar gera a planilha do mês e marca cada pedido exportado, tudo na
// mesma transação: ou a planilha sai com os status gravados, ou nada muda.
func (s *Service) Exportar(ctx context.Context, ator Ator, opmCodigo string, mes, ano int) (*excelize.File, string, error) {
	if !ator.admin() {
		return nil, "", ErrSomenteAdmin
	}

	var exportadas []Solicitacao
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		pendentes, err := s.repo.ListParaExportTx(ctx, tx, opmCodigo, mes, ano)
		if err != nil {
			return err
		}

		for _, pendente := range pendentes {
			if err := s.repo.UpdateStatusTx(ctx, tx, pendente.ID, StatusExportada); err != nil {
				return err
			}
			h := Historico{
				SolicitacaoID:   pendente.ID,
				Acao:            AcaoExportacao,
				AlteradoPorRE:   ator.RE,
				AlteradoPorNome: ator.Nome,
				Observacao:      fmt.Sprintf("status anterior: %s", StatusLabel[pendente.Status]),
			}
			if err := s.repo.AppendHistoricoTx(ctx, tx, h); err != nil {
				return err
			}
			pendente.Status = StatusExportada
			exportadas = append(exportadas, pendente)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	f, err := ExportXLSX(exportadas)
	if err != nil {
		return nil, "", err
	}
	return f, ExportFilename(opmCodigo, mes, ano), nil
}

// transicao executa a mudança de status de uma ação, com trava de linha,
// validação do status atual e entrada de histórico na mesma transação.
func (s *Service) transicao(ctx context.Context, ator Ator, id, acao string, extra func(ctx context.Context, tx pgx.Tx, atual *Solicitacao) error) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		atual, err := s.repo.GetTx(ctx, tx, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNaoEncontrada
			}
			return err
		}

		if acaoAdministrativa(acao) {
			if !ator.admin() {
				return ErrSomenteAdmin
			}
		} else if err := s.checkCriador(ator, atual); err != nil {
			return err
		}

		if err := ValidarTransicao(atual.Status, acao); err != nil {
			return err
		}

		if novo, muda := StatusAposAcao(acao); muda {
			if err := s.repo.UpdateStatusTx(ctx, tx, id, novo); err != nil {
				return err
			}
		}

		if extra != nil {
			if err := extra(ctx, tx, atual); err != nil {
				return err
			}
		}

		h := Historico{
			SolicitacaoID:   id,
			Acao:            acao,
			AlteradoPorRE:   ator.RE,
			AlteradoPorNome: ator.Nome,
		}
		return s.repo.AppendHistoricoTx(ctx, tx, h)
	})
}

// ValidarTransicao confere se a ação é compatível com o status atual.
func ValidarTransicao(atual int, acao string) error {
	permitido := false
	switch acao {
	case AcaoInicioEdicao, AcaoExclusao:
		permitido = atual == StatusAberta
	case AcaoConfirmacaoEdicao, AcaoCancelamentoEdicao, AcaoEdicaoDetalhes:
		permitido = atual == StatusEmEdicao
	case AcaoReativacaoAdmin:
		permitido = atual == StatusExcluida
	case AcaoLiberacaoAdmin:
		permitido = atual == StatusEscaladaOK || atual == StatusExportada || atual == StatusErro
	case AcaoExportacao:
		permitido = atual == StatusAberta || atual == StatusEmEdicao || atual == StatusExcluida
	}
	if !permitido {
		return fmt.Errorf("%w: %s com status %q", ErrTransicaoInvalida, acao, StatusLabel[atual])
	}
	return nil
}

// StatusAposAcao devolve o status resultante da ação, quando ela muda status.
func StatusAposAcao(acao string) (int, bool) {
	switch acao {
	case AcaoInicioEdicao:
		return StatusEmEdicao, true
	case AcaoConfirmacaoEdicao, AcaoCancelamentoEdicao, AcaoReativacaoAdmin, AcaoLiberacaoAdmin:
		return StatusAberta, true
	case AcaoExclusao:
		return StatusExcluida, true
	case AcaoExportacao:
		return StatusExportada, true
	default:
		return 0, false
	}
}

func acaoAdministrativa(acao string) bool {
	return acao == AcaoReativacaoAdmin || acao == AcaoLiberacaoAdmin
}

func (s *Service) get(ctx context.Context, id string) (*Solicitacao, error) {
	atual, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNaoEncontrada
		}
		return nil, err
	}
	return atual, nil
}

func (s *Service) checkOPM(ctx context.Context, ator Ator, opmCodigo string) error {
	if ator.admin() {
		return nil
	}
	ok, err := s.catalog.HasOPMPermissao(ctx, ator.RE, opmCodigo)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSemPermissaoOPM
	}
	return nil
}

func (s *Service) checkCriador(ator Ator, atual *Solicitacao) error {
	if ator.admin() || ator.RE == atual.CriadoPorRE {
		return nil
	}
	return ErrSomenteCriador
}

// expandirDias monta a lista de datas do pedido: a base mais os dias extras,
// todos do mesmo mês, sem repetição e em ordem.
func expandirDias(base time.Time, extras []int) ([]time.Time, error) {
	vistos := map[int]struct{}{base.Day(): {}}
	dias := []time.Time{base}

	ultimoDia := time.Date(base.Year(), base.Month()+1, 0, 0, 0, 0, 0, base.Location()).Day()
	for _, dia := range extras {
		if dia < 1 || dia > ultimoDia {
			return nil, ErrDataInvalida
		}
		if _, ok := vistos[dia]; ok {
			continue
		}
		vistos[dia] = struct{}{}
		dias = append(dias, time.Date(base.Year(), base.Month(), dia, 0, 0, 0, 0, base.Location()))
	}

	sort.Slice(dias, func(i, j int) bool { return dias[i].Before(dias[j]) })
	return dias, nil
}

// validarVistoria aplica as regras próprias da prioridade vistoria técnica:
// no máximo 10 dias de antecedência e término após o expediente justificado.
func (s *Service) validarVistoria(dias []time.Time, horarioInicial, motivo string) error {
	agora := s.now()
	hoje := time.Date(agora.Year(), agora.Month(), agora.Day(), 0, 0, 0, 0, agora.Location())
	limite := hoje.AddDate(0, 0, 10)
	for _, dia := range dias {
		if dia.After(limite) {
			return ErrVistoriaPrazo
		}
	}

	inicio, err := time.Parse("15:04", horarioInicial)
	if err != nil {
		return ErrDataInvalida
	}
	minutosFim := inicio.Hour()*60 + inicio.Minute() + 8*60
	if minutosFim > 19*60 && !strings.Contains(strings.ToLower(motivo), "expediente") {
		return ErrVistoriaExpediente
	}
	return nil
}
