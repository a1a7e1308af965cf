package services

import (
	"fmt"
	"io"

	"leads-organizer-backend/models"

	"github.com/xuri/excelize/v2"
)

const (
	leadsSheet       = "Leads"
	exportTimeLayout = "02/01/2006 15:04:05"
)

var LeadsExportHeader = []string{
	"ID",
	"Name",
	"E-mail",
	"Phone",
	"Property",
	"Property Title",
	"Price",
	"Message",
	"Source",
	"Created At",
}

// WriteLeadsXLSX renders leads as a single-sheet workbook.
func WriteLeadsXLSX(w io.Writer, leads []models.Lead) error {
	f, err := LeadsWorkbook(leads)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// LeadsWorkbook builds the export workbook. The caller closes it.
func LeadsWorkbook(leads []models.Lead) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(leadsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetRow(leadsSheet, "A1", &LeadsExportHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(LeadsExportHeader), 1)
	if err := f.SetCellStyle(leadsSheet, "A1", lastHeader, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, lead := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []any{
			lead.ID,
			lead.Name,
			lead.Email,
			lead.Phone,
			models.Value(lead.PropertyID),
			models.Value(lead.PropertyTitle),
			models.Value(lead.PropertyPrice),
			models.Value(lead.Message),
			string(lead.Source),
			lead.CreatedAt.Format(exportTimeLayout),
		}
		if err := f.SetSheetRow(leadsSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	widths := []float64{8, 30, 30, 16, 14, 40, 14, 40, 18, 20}
	for col, width := range widths {
		name, _ := excelize.ColumnNumberToName(col + 1)
		if err := f.SetColWidth(leadsSheet, name, name, width); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}
