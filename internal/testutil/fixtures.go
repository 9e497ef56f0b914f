package testutil

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/opsdesk/dailyclose/pkg/facts"
)

// NewTable builds a facts.Table from a header row and data rows. Short data
// rows leave the remaining columns empty, mirroring how spreadsheet readers
// behave with ragged rows.
func NewTable(headers []string, rows ...[]string) facts.Table {
	t := facts.Table{Headers: headers}

	for _, cells := range rows {
		row := make(facts.Row, len(headers))
		for i, h := range headers {
			if i < len(cells) {
				row[h] = cells[i]
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t
}

// BaseTable builds a CPD base metric table with the standard attendance
// columns. Each row is (date, agent_id, name, shift_type, worked_hours,
// cpd_target, value).
func BaseTable(rows ...[]string) facts.Table {
	return NewTable([]string{
		facts.ColDate,
		facts.ColAgentID,
		facts.ColName,
		facts.ColShiftType,
		facts.ColWorkedHours,
		facts.ColCPDTarget,
		"実績値",
	}, rows...)
}

// MetricTable builds a simple metric table with (date, agent_id, value) rows.
func MetricTable(valueHeader string, rows ...[]string) facts.Table {
	return NewTable([]string{facts.ColDate, facts.ColAgentID, valueHeader}, rows...)
}

// XLSXBytes builds an in-memory workbook with a single sheet holding the
// given rows, returned as raw xlsx bytes for feeding into workbook.ReadTable.
func XLSXBytes(t *testing.T, sheet string, rows [][]any) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() {
		require.NoError(t, f.Close())
	}()

	idx, err := f.NewSheet(sheet)
	require.NoError(t, err)
	f.SetActiveSheet(idx)

	// Drop the default sheet unless it is the one requested.
	if sheet != "Sheet1" {
		require.NoError(t, f.DeleteSheet("Sheet1"))
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	return buf.Bytes()
}

// TemplateXLSX builds a report template workbook containing the two fact
// sheets, each pre-populated with stale rows so tests can verify clearing.
func TemplateXLSX(t *testing.T, sheets ...string) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer func() {
		require.NoError(t, f.Close())
	}()

	for i, sheet := range sheets {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)

		for r := 1; r <= 3; r++ {
			cell, err := excelize.CoordinatesToCellName(1, r)
			require.NoError(t, err)
			row := []any{fmt.Sprintf("stale-%d-%d", i, r), "x"}
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	return buf.Bytes()
}
