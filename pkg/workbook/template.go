package workbook

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/opsdesk/dailyclose/pkg/facts"
)

// RenderTemplate writes both fact tables into a copy of the template
// workbook. Each target sheet is cleared of all existing cell contents, then
// receives the header row at row 1 and the data rows in table order. Missing
// metric values render as empty cells.
func RenderTemplate(template []byte, daily *facts.DailyFact, long *facts.LongFact) ([]byte, error) {
	if len(template) == 0 {
		return nil, ErrTemplateNeeded
	}

	f, err := excelize.OpenReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	if err := writeSheet(f, FactDailySheet, dailyHeader(daily), dailyRows(daily)); err != nil {
		return nil, err
	}
	if err := writeSheet(f, FactLongSheet, longHeader(), longRows(long)); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, header []any, rows [][]any) error {
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return fmt.Errorf("failed to look up sheet %s: %w", sheet, err)
	}
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrSheetNotFound, sheet)
	}

	if err := clearSheet(f, sheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d of %s: %w", i+2, sheet, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}

	return nil
}

// clearSheet removes every populated row so stale template contents never
// leak into the output.
func clearSheet(f *excelize.File, sheet string) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}

	for range rows {
		if err := f.RemoveRow(sheet, 1); err != nil {
			return fmt.Errorf("failed to clear sheet %s: %w", sheet, err)
		}
	}

	return nil
}

func dailyHeader(daily *facts.DailyFact) []any {
	header := make([]any, 0, len(facts.BaseColumns)+len(daily.MetricOrder))
	for _, c := range facts.BaseColumns {
		header = append(header, c)
	}
	for _, m := range daily.MetricOrder {
		header = append(header, m)
	}

	return header
}

func dailyRows(daily *facts.DailyFact) [][]any {
	rows := make([][]any, 0, len(daily.Rows))
	for i := range daily.Rows {
		r := &daily.Rows[i]

		row := make([]any, 0, len(facts.BaseColumns)+len(daily.MetricOrder))
		row = append(row, r.Date, r.AgentID, r.Name, r.ShiftType, numberCell(r.WorkedHours), numberCell(r.CPDTarget))
		for _, m := range daily.MetricOrder {
			row = append(row, numberCell(r.Metrics[m]))
		}
		rows = append(rows, row)
	}

	return rows
}

func longHeader() []any {
	return []any{
		facts.ColDate, facts.ColAgentID, facts.ColName, facts.ColShiftType,
		facts.ColWorkedHours, facts.ColCPDTarget,
		"metric", "actual_value", "as_of_date", "work_flag",
	}
}

func longRows(long *facts.LongFact) [][]any {
	rows := make([][]any, 0, len(long.Rows))
	for i := range long.Rows {
		r := &long.Rows[i]
		rows = append(rows, []any{
			r.Date, r.AgentID, r.Name, r.ShiftType,
			numberCell(r.WorkedHours), numberCell(r.CPDTarget),
			r.Metric, numberCell(r.ActualValue), r.AsOfDate, r.WorkFlag,
		})
	}

	return rows
}

// numberCell maps a missing value onto an empty cell.
func numberCell(v *float64) any {
	if v == nil {
		return nil
	}

	return *v
}
