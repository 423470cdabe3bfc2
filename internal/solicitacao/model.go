package solicitacao

import (
	"fmt"
	"strings"
	"time"
)

// Status do ciclo de vida de uma solicitação.
const (
	StatusAberta     = 0 // editável pelo solicitante
	StatusEscaladaOK = 1 // tratada pela administração, travada
	StatusExportada  = 2 // saiu em planilha de export, travada
	StatusErro       = 3 // marcada com erro pela administração, travada
	StatusEmEdicao   = 4 // travada para edição pelo solicitante
	StatusExcluida   = 5 // exclusão lógica
)

// StatusLabel traduz o código para o rótulo exibido.
var StatusLabel = map[int]string{
	StatusAberta:     "Aberta",
	StatusEscaladaOK: "Escalada - OK",
	StatusExportada:  "Exportada",
	StatusErro:       "Erro",
	StatusEmEdicao:   "Em edição",
	StatusExcluida:   "Excluída",
}

// Ações registradas no histórico.
const (
	AcaoCriacao            = "criacao"
	AcaoInicioEdicao       = "inicio_edicao"
	AcaoConfirmacaoEdicao  = "confirmacao_edicao"
	AcaoCancelamentoEdicao = "cancelamento_edicao"
	AcaoEdicaoDetalhes     = "edicao_detalhes"
	AcaoExclusao           = "exclusao"
	AcaoReativacaoAdmin    = "reativacao_admin"
	AcaoLiberacaoAdmin     = "liberacao_admin"
	AcaoExportacao         = "exportacao_xlsx"
)

// Prioridades de solicitação.
const (
	PrioridadeMinimoOperacional = "minimo_operacional"
	PrioridadeViaturaExtra      = "viatura_extra"
	PrioridadeVistoriaTecnica   = "vistoria_tecnica"
)

var prioridadesValidas = map[string]struct{}{
	PrioridadeMinimoOperacional: {},
	PrioridadeViaturaExtra:      {},
	PrioridadeVistoriaTecnica:   {},
}

// IsValidPrioridade confere se a prioridade é conhecida.
func IsValidPrioridade(p string) bool {
	_, ok := prioridadesValidas[p]
	return ok
}

// Solicitacao é um pedido de vagas DEJEM de uma OPM para um dia.
type Solicitacao struct {
	ID                string     `json:"id"`
	Data              time.Time  `json:"data"`
	OPMCodigo         string     `json:"opm_codigo"`
	OPMNome           string     `json:"opm_nome"`
	ComposicaoCod     string     `json:"composicao_cod"`
	ComposicaoNome    string     `json:"composicao_nome"`
	Descricao         string     `json:"descricao"`
	HorarioInicial    string     `json:"horario_inicial"`
	HorarioFinal      string     `json:"horario_final"`
	VagasSubtenSgt    int        `json:"vagas_subten_sgt"`
	VagasCbSd         int        `json:"vagas_cb_sd"`
	EscaladoSubtenSgt int        `json:"escalado_subten_sgt"`
	EscaladoCbSd      int        `json:"escalado_cb_sd"`
	Prioridade        string     `json:"prioridade"`
	Motivo            string     `json:"motivo"`
	Observacoes       string     `json:"observacoes"`
	ComprovanteURL    string     `json:"comprovante_url,omitempty"`
	PrazoInscricao    *time.Time `json:"prazo_inscricao,omitempty"`
	CriadoPorRE       string     `json:"criado_por_re"`
	CriadoPorNome     string     `json:"criado_por_nome"`
	CriadoEm          time.Time  `json:"criado_em"`
	Status            int        `json:"status"`
}

// Historico é uma entrada imutável da trilha de auditoria.
type Historico struct {
	ID              int64     `json:"id"`
	SolicitacaoID   string    `json:"solicitacao_id"`
	RegistradoEm    time.Time `json:"registrado_em"`
	Acao            string    `json:"acao"`
	AlteradoPorRE   string    `json:"alterado_por_re"`
	AlteradoPorNome string    `json:"alterado_por_nome"`
	Observacao      string    `json:"observacao,omitempty"`
}

// CompositeID monta o identificador determinístico de uma solicitação:
// código da OPM + código da composição + AAAAMMDD + HHMM do início.
// Dois pedidos iguais para o mesmo dia colidem de propósito.
func CompositeID(opmCodigo, composicaoCod string, data time.Time, horarioInicial string) string {
	hhmm := strings.ReplaceAll(horarioInicial, ":", "")
	return fmt.Sprintf("%s%s%s%s", opmCodigo, composicaoCod, data.Format("20060102"), hhmm)
}

// HorarioFinalDe soma oito horas ao início, virando a meia-noite se preciso.
func HorarioFinalDe(horarioInicial string) (string, error) {
	t, err := time.Parse("15:04", horarioInicial)
	if err != nil {
		return "", fmt.Errorf("horário inicial inválido: %w", err)
	}
	return t.Add(8 * time.Hour).Format("15:04"), nil
}
