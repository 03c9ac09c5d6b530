package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dssatview/internal/table"
)

// XLSX reads the first row of a worksheet as the header.
type XLSX struct {
	// Sheet selects a worksheet by name; empty means the first sheet.
	Sheet string
}

func (XLSX) Name() string { return "xlsx" }

func (XLSX) CanRead(path string) bool { return hasExt(path, ".xlsx", ".xlsm") }

func (x XLSX) Read(path string) (*table.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheet := x.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return table.MustNew(), nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return table.MustNew(), nil
	}
	var body [][]string
	for _, r := range rows[1:] {
		if !blank(r) {
			body = append(body, r)
		}
	}
	return table.FromRecords(rows[0], body)
}
