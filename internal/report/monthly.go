package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"timepay.uz/crm/internal/crm"
)

var monthlyHeader = []any{"№", "Xodim", "Ishlagan kunlar", "Kechikkan kunlar", "Kelmagan kunlar", "Soatlar", "Jarima", "Maosh"}

// MonthlyFileName is oylik_<year>-<month>.xlsx.
func MonthlyFileName(r crm.MonthlyReport) string {
	return fmt.Sprintf("oylik_%04d-%02d.xlsx", r.Year, r.Month)
}

// WriteMonthlyXLSX renders the monthly report as a single sheet workbook.
func WriteMonthlyXLSX(w io.Writer, r crm.MonthlyReport) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := fmt.Sprintf("%04d-%02d", r.Year, r.Month)
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &monthlyHeader); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return err
	}
	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{i + 1, row.Name, row.WorkedDays, row.LateDays, row.AbsentDays, row.WorkedHours, row.Fine, row.Salary}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(sheet, "B", "B", 28); err != nil {
		return err
	}
	_, err = f.WriteTo(w)
	return err
}

// SaveMonthly writes the workbook into dir and returns its path.
func SaveMonthly(dir string, r crm.MonthlyReport) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, MonthlyFileName(r))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteMonthlyXLSX(f, r); err != nil {
		_ = f.Close()
		return "", err
	}
	return path, f.Close()
}
