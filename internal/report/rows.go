// Package report writes attendance reports to disk: the server generated
// workbook when it is usable, a CSV rebuilt from the daily snapshot when it
// is not, and locally generated monthly workbooks.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrEmptyWorkbook = errors.New("report: workbook has no rows")
	ErrNoSheet       = errors.New("report: no worksheet found")
	ErrNotXLS        = errors.New("report: not an xls file")
)

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ReadRows returns the first sheet's rows. Legacy .xls files are recognized
// by extension or by their OLE2 signature; everything else is read as xlsx.
func ReadRows(data []byte, name string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".xls" || bytes.HasPrefix(data, oleMagic) {
		return readXLS(data)
	}
	return readXLSX(data)
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	if !bytes.HasPrefix(data, oleMagic) {
		return nil, ErrNotXLS
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, ErrNoSheet
	}
	rows := wb.ReadAllCells(100000)
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return rows, nil
}
