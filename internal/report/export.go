package report

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"timepay.uz/crm/internal/crm"
	"timepay.uz/crm/internal/obs"
)

// DailySource is what ExportDaily needs from the facade.
type DailySource interface {
	DailyExcelReport(ctx context.Context, date string) (crm.ExcelFile, error)
	DailyAttendance(ctx context.Context, date string) (crm.DailyAttendance, error)
}

type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// Result describes a written export. Cause is the download failure that
// triggered the CSV fallback.
type Result struct {
	Path   string
	Format Format
	Rows   int
	Cause  error
}

// Fallback reports whether the CSV path was taken.
func (r Result) Fallback() bool { return r.Format == FormatCSV }

// CSVHeader is the column order of the fallback CSV.
var CSVHeader = []string{"№", "Xodim", "Kirish", "Chiqish", "Kechikish (daq.)", "Holat"}

// ExportDaily downloads the server workbook for date into dir. When the
// download fails or the file does not open as a workbook, it writes
// davomat_<date>.csv from the daily snapshot instead.
func ExportDaily(ctx context.Context, src DailySource, date, dir string) (Result, error) {
	date = crm.ReportDate(date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, err
	}

	file, cause := src.DailyExcelReport(ctx, date)
	if cause == nil {
		name := exportName(file.Name, date)
		rows, err := ReadRows(file.Data, name)
		if err == nil {
			path := filepath.Join(dir, name)
			if err := writeFile(path, file.Data); err != nil {
				return Result{}, err
			}
			return Result{Path: path, Format: FormatXLSX, Rows: len(rows)}, nil
		}
		cause = err
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return Result{}, cause
	}
	obs.Warn("excel_export_fallback", map[string]any{"date": date, "error": cause.Error()})

	daily, err := src.DailyAttendance(ctx, date)
	if err != nil {
		return Result{}, fmt.Errorf("csv fallback: %w", err)
	}
	path := filepath.Join(dir, "davomat_"+date+".csv")
	if err := WriteDailyCSVFile(path, daily); err != nil {
		return Result{}, err
	}
	return Result{Path: path, Format: FormatCSV, Rows: len(daily.Records), Cause: cause}, nil
}

// DailyRows renders the snapshot as table rows, header first.
func DailyRows(d crm.DailyAttendance) [][]string {
	out := make([][]string, 0, len(d.Records)+1)
	out = append(out, CSVHeader)
	for i, r := range d.Records {
		status := "Keldi"
		switch {
		case r.In == "":
			status = "Kelmadi"
		case r.Late:
			status = "Kechikdi"
		}
		out = append(out, []string{
			strconv.Itoa(i + 1),
			r.EmployeeName,
			dash(r.In),
			dash(r.Out),
			strconv.Itoa(r.LateMinutes),
			status,
		})
	}
	return out
}

// WriteDailyCSVFile writes a UTF-8 CSV with a BOM so spreadsheet programs
// pick the right encoding.
func WriteDailyCSVFile(path string, d crm.DailyAttendance) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteString("\ufeff"); err != nil {
		_ = f.Close()
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(DailyRows(d)); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// exportName keeps only the base of the server-supplied name and falls back
// to davomat_<date>.xlsx when nothing usable is left.
func exportName(name, date string) string {
	base := filepath.Base(name)
	switch base {
	case ".", "..", string(filepath.Separator):
		return "davomat_" + date + ".xlsx"
	}
	return base
}

func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
