package repo

import "time"

// Usuario reúne a conta de acesso e os dados funcionais do militar,
// indexados pelo RE.
type Usuario struct {
	RE                    string     `json:"re"`
	Nome                  string     `json:"nome"`
	Email                 string     `json:"email"`
	SenhaHash             string     `json:"-"`
	Nivel                 int        `json:"nivel"`
	PostoGrad             string     `json:"posto_grad"`
	OPM                   string     `json:"opm"`
	RedefinirSenha        bool       `json:"redefinir_senha"`
	SenhaTemporariaExpira *time.Time `json:"-"`
	Ativo                 bool       `json:"ativo"`
	CriadoEm              time.Time  `json:"criado_em"`
}

// TokenRefresh guarda o hash do refresh token emitido para um RE.
type TokenRefresh struct {
	Hash     string
	RE       string
	ExpiraEm time.Time
	CriadoEm time.Time
}

// OPM é uma unidade operacional que pode abrir solicitações.
type OPM struct {
	Codigo string `json:"codigo"`
	Nome   string `json:"nome"`
}

// Composicao é uma composição de viatura cadastrada para uma OPM.
type Composicao struct {
	OPMCodigo string `json:"opm_codigo"`
	Codigo    string `json:"codigo"`
	Nome      string `json:"nome"`
	Descricao string `json:"descricao"`
}
