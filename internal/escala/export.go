package escala

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportFilename monta o nome do arquivo de export do roster.
func ExportFilename(now time.Time) string {
	return fmt.Sprintf("escalas_%s.xlsx", now.Format("2006-01-02"))
}

var exportHeader = []string{
	"Data", "RE", "Militar", "Posto/Grad", "OPM", "Estação",
	"Composição", "Início", "Término", "ID Sistema", "Documento", "Ausente",
}

// ExportXLSX gera a planilha com a lista filtrada corrente.
func ExportXLSX(views []View) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Escalas"

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

	for i, v := range views {
		valores := []any{
			v.Data, v.RE, v.Militar, v.PostoGrad, v.OPM, v.Estacao,
			v.Composicao, v.HorarioInicio, v.HorarioTermino, v.IDSistema,
			v.Documento, v.Ausente,
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
