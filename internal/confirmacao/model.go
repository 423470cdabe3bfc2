package confirmacao

import "time"

// Status de confirmação aceitos para cada militar da escala.
const (
	StatusPendente  = "pendente"
	StatusOK        = "ok"
	StatusPendencia = "pendencia"
)

var statusValidos = map[string]struct{}{
	StatusPendente:  {},
	StatusOK:        {},
	StatusPendencia: {},
}

// IsValidStatus confere se o status informado é conhecido.
func IsValidStatus(status string) bool {
	_, ok := statusValidos[status]
	return ok
}

// DadosGerais são os campos compartilhados por todos os militares de uma
// mesma escala (identificada pelo id externo do sistema de origem).
type DadosGerais struct {
	EscalaSistemaID string     `json:"escala_sistema_id"`
	SEILink         string     `json:"sei_link"`
	Observacoes     string     `json:"observacoes"`
	AtualizadoPorRE string     `json:"atualizado_por_re"`
	AtualizadoEm    *time.Time `json:"atualizado_em,omitempty"`
}

// Confirmacao é o status individual de um militar em uma escala.
type Confirmacao struct {
	EscalaSistemaID string     `json:"escala_sistema_id"`
	RE              string     `json:"re"`
	Status          string     `json:"status"`
	ConfirmadoPorRE string     `json:"confirmado_por_re"`
	ConfirmadoEm    *time.Time `json:"confirmado_em,omitempty"`
}

// Item é uma entrada de status no corpo da atualização.
type Item struct {
	RE     string `json:"re"`
	Status string `json:"status"`
}

// UpdateInput é o corpo aceito pelo PUT de confirmação.
type UpdateInput struct {
	SEILink     string `json:"sei_link"`
	Observacoes string `json:"observacoes"`
	Itens       []Item `json:"itens"`
}
