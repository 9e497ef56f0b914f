// Package workbook reads raw metric tables from source spreadsheets and
// writes fact tables into the report template.
package workbook

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/opsdesk/dailyclose/pkg/facts"
)

// Sheet names of the source files and the report template.
const (
	DataSheet      = "Data"
	FactDailySheet = "Fact_Daily"
	FactLongSheet  = "Fact_Long"
)

// Workbook errors.
var (
	ErrNoSheets       = errors.New("workbook contains no sheets")
	ErrSheetNotFound  = errors.New("sheet not found in template")
	ErrNoHeaderRow    = errors.New("sheet has no header row")
	ErrEmptyWorkbook  = errors.New("workbook data is empty")
	ErrTemplateNeeded = errors.New("template data is empty")
)

// ReadTable reads the tabular data of a source file. The named sheet is
// preferred; when absent the first sheet is used. The first row is the
// header, normalized into the canonical schema.
func ReadTable(data []byte, sheet string) (*facts.Table, error) {
	if len(data) == 0 {
		return nil, ErrEmptyWorkbook
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	name, err := pickSheet(f, sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoHeaderRow, name)
	}

	headers := facts.NormalizeHeaders(rows[0])
	table := &facts.Table{Headers: headers, Rows: make([]facts.Row, 0, len(rows)-1)}

	for _, cells := range rows[1:] {
		if isEmptyRow(cells) {
			continue
		}

		row := make(facts.Row, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// pickSheet prefers the named sheet, falling back to the first one.
func pickSheet(f *excelize.File, preferred string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", ErrNoSheets
	}

	for _, s := range sheets {
		if s == preferred {
			return s, nil
		}
	}

	return sheets[0], nil
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}

	return true
}
