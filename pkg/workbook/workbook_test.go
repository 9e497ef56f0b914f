package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/dailyclose/internal/testutil"
	"github.com/opsdesk/dailyclose/pkg/facts"
)

func TestReadTable(t *testing.T) {
	t.Run("reads preferred sheet with normalized headers", func(t *testing.T) {
		data := testutil.XLSXBytes(t, DataSheet, [][]any{
			{"日付", "エージェントID", "CPH"},
			{"2026-08-25", "A001", 6.2},
			{"2026-08-25", "A002", nil},
		})

		table, err := ReadTable(data, DataSheet)
		require.NoError(t, err)
		assert.Equal(t, []string{"date", "agent_id", "CPH"}, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "2026-08-25", table.Rows[0][facts.ColDate])
		assert.Equal(t, "6.2", table.Rows[0]["CPH"])
		assert.Equal(t, "", table.Rows[1]["CPH"])
	})

	t.Run("falls back to first sheet", func(t *testing.T) {
		data := testutil.XLSXBytes(t, "実績", [][]any{
			{"日付", "エージェントID", "AHT"},
			{"2026-08-25", "A001", 720},
		})

		table, err := ReadTable(data, DataSheet)
		require.NoError(t, err)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "720", table.Rows[0]["AHT"])
	})

	t.Run("skips fully empty rows", func(t *testing.T) {
		data := testutil.XLSXBytes(t, DataSheet, [][]any{
			{"日付", "エージェントID", "CPH"},
			{"2026-08-25", "A001", 6.2},
			{nil, nil, nil},
			{"2026-08-25", "A002", 5.8},
		})

		table, err := ReadTable(data, DataSheet)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := ReadTable(nil, DataSheet)
		assert.ErrorIs(t, err, ErrEmptyWorkbook)
	})

	t.Run("header-only sheet yields empty table", func(t *testing.T) {
		data := testutil.XLSXBytes(t, DataSheet, [][]any{
			{"日付", "エージェントID", "CPH"},
		})

		table, err := ReadTable(data, DataSheet)
		require.NoError(t, err)
		assert.Empty(t, table.Rows)
	})
}

func f(v float64) *float64 {
	return &v
}

func factFixture() (*facts.DailyFact, *facts.LongFact) {
	daily := &facts.DailyFact{
		MetricOrder:  []string{"CPH", "CPD"},
		HasCPDTarget: true,
		Rows: []facts.DailyFactRow{
			{
				Date: "2026-08-25", AgentID: "A001", Name: "佐藤", ShiftType: "早番",
				WorkedHours: f(7.5), CPDTarget: f(90),
				Metrics: map[string]*float64{"CPH": f(6.2), "CPD": f(95)},
			},
			{
				Date: "2026-08-25", AgentID: "A002", Name: "鈴木", ShiftType: "休み",
				Metrics: map[string]*float64{},
			},
		},
	}

	long := &facts.LongFact{Rows: []facts.LongFactRow{
		{
			Date: "2026-08-25", AgentID: "A001", Name: "佐藤", ShiftType: "早番",
			WorkedHours: f(7.5), CPDTarget: f(90),
			Metric: "CPH", ActualValue: f(6.2), AsOfDate: "2026-08-25", WorkFlag: 1,
		},
		{
			Date: "2026-08-25", AgentID: "A002", Name: "鈴木", ShiftType: "休み",
			Metric: "CPH", AsOfDate: "2026-08-25", WorkFlag: 0,
		},
	}}

	return daily, long
}

func TestRenderTemplate(t *testing.T) {
	daily, long := factFixture()
	template := testutil.TemplateXLSX(t, FactDailySheet, FactLongSheet)

	out, err := RenderTemplate(template, daily, long)
	require.NoError(t, err)

	t.Run("daily sheet round trips", func(t *testing.T) {
		table, err := ReadTable(out, FactDailySheet)
		require.NoError(t, err)

		expected := append(append([]string{}, facts.BaseColumns...), "CPH", "CPD")
		assert.Equal(t, expected, table.Headers)
		require.Len(t, table.Rows, 2)
		assert.Equal(t, "A001", table.Rows[0][facts.ColAgentID])
		assert.Equal(t, "6.2", table.Rows[0]["CPH"])
		assert.Equal(t, "", table.Rows[1]["CPH"], "missing metric renders empty")
	})

	t.Run("long sheet round trips", func(t *testing.T) {
		table, err := ReadTable(out, FactLongSheet)
		require.NoError(t, err)

		require.Len(t, table.Rows, 2)
		assert.Equal(t, "CPH", table.Rows[0]["metric"])
		assert.Equal(t, "2026-08-25", table.Rows[0]["as_of_date"])
		assert.Equal(t, "1", table.Rows[0]["work_flag"])
		assert.Equal(t, "0", table.Rows[1]["work_flag"])
	})

	t.Run("stale template rows are cleared", func(t *testing.T) {
		table, err := ReadTable(out, FactDailySheet)
		require.NoError(t, err)

		for _, row := range table.Rows {
			for _, v := range row {
				assert.NotContains(t, v, "stale")
			}
		}
	})
}

func TestRenderTemplateErrors(t *testing.T) {
	daily, long := factFixture()

	t.Run("empty template", func(t *testing.T) {
		_, err := RenderTemplate(nil, daily, long)
		assert.ErrorIs(t, err, ErrTemplateNeeded)
	})

	t.Run("missing fact sheet", func(t *testing.T) {
		template := testutil.TemplateXLSX(t, FactDailySheet) // no Fact_Long
		_, err := RenderTemplate(template, daily, long)
		assert.ErrorIs(t, err, ErrSheetNotFound)
	})
}
