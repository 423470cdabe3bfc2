package escala

import (
	"fmt"
	"math"
)

// Escala é uma linha do roster importado (uma vaga de militar em um dia).
// Os horários vêm da planilha de origem como fração do dia.
type Escala struct {
	ID          int64   `json:"id"`
	Ano         int     `json:"ano"`
	Mes         int     `json:"mes"`
	Dia         int     `json:"dia"`
	Linha       int     `json:"linha"`
	RE          string  `json:"re"`
	Militar     string  `json:"militar"`
	PostoGrad   string  `json:"posto_grad"`
	OPM         string  `json:"opm"`
	Estacao     string  `json:"estacao"`
	Composicao  string  `json:"composicao"`
	HorarioInic float64 `json:"-"`
	HorarioTerm float64 `json:"-"`
	IDSistema   string  `json:"id_sistema"`
	Exclusao    bool    `json:"-"`
	Documento   string  `json:"documento,omitempty"`
	Ausente     string  `json:"ausente,omitempty"`
}

// View é a projeção da escala com campos derivados prontos para exibição.
type View struct {
	Escala
	Data             string `json:"data"`
	HorarioInicio    string `json:"horario_inicio"`
	HorarioTermino   string `json:"horario_termino"`
	HorarioFormatado string `json:"horario_formatado"`
	SuaEscala        bool   `json:"sua_escala"`
	LinkConsulta     string `json:"link_consulta,omitempty"`
}

// Resumo agrega contadores da lista filtrada.
type Resumo struct {
	Total     int `json:"total"`
	Estacoes  int `json:"estacoes"`
	Militares int `json:"militares"`
}

// Pagina é a resposta paginada da listagem.
type Pagina struct {
	Itens        []View `json:"itens"`
	Total        int    `json:"total"`
	Pagina       int    `json:"pagina"`
	PorPagina    int    `json:"por_pagina"`
	TotalPaginas int    `json:"total_paginas"`
	Resumo       Resumo `json:"resumo"`
}

// DecimalToTime converte fração do dia em "HH:MM". O minuto é arredondado
// para absorver o ruído de ponto flutuante da planilha de origem
// (0.2083333 deve virar "05:00", não "04:59").
func DecimalToTime(f float64) string {
	minutos := int(math.Round(f * 1440))
	if minutos < 0 {
		minutos = 0
	}
	minutos %= 1440
	return fmt.Sprintf("%02d:%02d", minutos/60, minutos%60)
}

// FormatData monta a data no padrão DD/MM/YYYY.
func FormatData(dia, mes, ano int) string {
	return fmt.Sprintf("%02d/%02d/%04d", dia, mes, ano)
}

// NewView deriva os campos de exibição de uma escala.
func NewView(e Escala, callerRE string) View {
	inicio := DecimalToTime(e.HorarioInic)
	termino := DecimalToTime(e.HorarioTerm)
	v := View{
		Escala:           e,
		Data:             FormatData(e.Dia, e.Mes, e.Ano),
		HorarioInicio:    inicio,
		HorarioTermino:   termino,
		HorarioFormatado: inicio + " às " + termino,
		SuaEscala:        callerRE != "" && callerRE == e.RE,
	}
	if e.Exclusao && e.Documento != "" {
		v.LinkConsulta = documentoConsultaURL + e.Documento
	}
	return v
}

// Base pública para conferência do documento de exclusão.
const documentoConsultaURL = "https://www.documentos.spsempapel.sp.gov.br/siga/public/app/processo/consultar?n="
