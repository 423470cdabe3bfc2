package solicitacao

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportFilename monta o nome da planilha de solicitações da OPM no mês.
func ExportFilename(opmCodigo string, mes, ano int) string {
	return fmt.Sprintf("solicitacoes_%s_%04d%02d.xlsx", opmCodigo, ano, mes)
}

var exportHeader = []string{
	"ID", "Data", "OPM", "Composição", "Descrição", "Início", "Término",
	"Vagas ST/SGT", "Vagas CB/SD", "Prioridade", "Motivo", "Observações",
	"Comprovante", "Solicitante", "Status",
}

// ExportXLSX gera a planilha das solicitações exportadas.
func ExportXLSX(solicitacoes []Solicitacao) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Solicitações"

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	for col, titulo := range exportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, titulo); err != nil {
			return nil, err
		}
	}

	for i, s := range solicitacoes {
		valores := []any{
			s.ID, s.Data.Format("02/01/2006"), s.OPMNome, s.ComposicaoNome,
			s.Descricao, s.HorarioInicial, s.HorarioFinal,
			s.VagasSubtenSgt, s.VagasCbSd, s.Prioridade, s.Motivo,
			s.Observacoes, s.ComprovanteURL, s.CriadoPorNome, StatusLabel[s.Status],
		}
		for col, valor := range valores {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, valor); err != nil {
				return nil, err
			}
		}
	}

	return f, nil
}
