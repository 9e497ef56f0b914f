package facts

import "sort"

// BaseMetric is the metric whose source file carries the attendance columns
// that seed the daily fact table.
const BaseMetric = "CPD"

// canonicalMetricOrder fixes the emitted column order for the known metrics.
// Joins commute on disjoint key sets, but processing order must stay
// deterministic so the emitted spreadsheet columns are reproducible.
//
//nolint:gochecknoglobals // Fixed output ordering
var canonicalMetricOrder = []string{"CPH", "AHT", "ATT", "ACW", "CPD", "seating-ratio", "utilization-ratio"}

// offShiftSentinels are the shift_type literals marking a non-working day.
//
//nolint:gochecknoglobals // Fixed sentinel set
var offShiftSentinels = map[string]bool{
	"休み":  true,
	"off": true,
}

// DailyFactRow is one row of the wide fact table: the base attendance
// columns plus one numeric value per metric. Nil values are missing cells.
type DailyFactRow struct {
	Date        string
	AgentID     string
	Name        string
	ShiftType   string
	WorkedHours *float64
	CPDTarget   *float64
	Metrics     map[string]*float64
}

// DailyFact is the wide table: exactly one row per (date, agent_id) pair
// from the base table, in base-table order.
type DailyFact struct {
	MetricOrder  []string
	Rows         []DailyFactRow
	HasCPDTarget bool
}

// HasMetric reports whether the table carries a column for the metric.
func (f *DailyFact) HasMetric(metric string) bool {
	for _, m := range f.MetricOrder {
		if m == metric {
			return true
		}
	}

	return false
}

// LongFactRow is one melted observation: one metric of one agent on one day.
type LongFactRow struct {
	Date        string
	AgentID     string
	Name        string
	ShiftType   string
	WorkedHours *float64
	CPDTarget   *float64
	Metric      string
	ActualValue *float64
	AsOfDate    string
	WorkFlag    int
}

// LongFact is the narrow table derived by melting every metric column of the
// daily fact. Row count is always len(DailyFact.Rows) * len(MetricOrder).
type LongFact struct {
	Rows []LongFactRow
}

// Build merges the raw per-metric tables into the wide daily fact and
// derives the melted long fact. The base metric table must be present; its
// attendance columns seed the base table. Every metric, the base metric
// included, is extracted and left-joined onto the base on (date, agent_id)
// under a one-to-one cardinality assertion, so unmatched metric rows never
// add rows and duplicates are never silently merged.
func Build(tables map[string]*Table, asOfDate string) (*DailyFact, *LongFact, error) {
	base, ok := tables[BaseMetric]
	if !ok || base == nil {
		return nil, nil, ErrBaseMetricMissing
	}

	daily, index, err := seedBase(base)
	if err != nil {
		return nil, nil, err
	}

	daily.MetricOrder = metricOrder(tables)

	for _, metric := range daily.MetricOrder {
		rows, err := Extract(tables[metric], metric)
		if err != nil {
			return nil, nil, err
		}

		if err := merge(daily, index, metric, rows); err != nil {
			return nil, nil, err
		}
	}

	return daily, melt(daily, asOfDate), nil
}

// seedBase builds the base attendance rows from the base metric table,
// enforcing (date, agent_id) uniqueness.
func seedBase(base *Table) (*DailyFact, map[Key]int, error) {
	missing := missingColumns(base, ColDate, ColAgentID, ColName, ColShiftType, ColWorkedHours)
	if len(missing) > 0 {
		return nil, nil, &SchemaError{
			Metric:         BaseMetric,
			Reason:         "base attendance columns are absent",
			MissingColumns: missing,
		}
	}

	daily := &DailyFact{
		Rows:         make([]DailyFactRow, 0, len(base.Rows)),
		HasCPDTarget: base.HasColumn(ColCPDTarget),
	}
	index := make(map[Key]int, len(base.Rows))
	var duplicates []Key

	for _, raw := range base.Rows {
		key := Key{
			Date:    trimSpace(raw[ColDate]),
			AgentID: trimSpace(raw[ColAgentID]),
		}
		if key.Date == "" && key.AgentID == "" {
			continue
		}

		if _, exists := index[key]; exists {
			duplicates = append(duplicates, key)
			continue
		}

		row := DailyFactRow{
			Date:        key.Date,
			AgentID:     key.AgentID,
			Name:        trimSpace(raw[ColName]),
			ShiftType:   trimSpace(raw[ColShiftType]),
			WorkedHours: ParseNumber(raw[ColWorkedHours]),
			Metrics:     make(map[string]*float64),
		}
		if daily.HasCPDTarget {
			row.CPDTarget = ParseNumber(raw[ColCPDTarget])
		}

		index[key] = len(daily.Rows)
		daily.Rows = append(daily.Rows, row)
	}

	if len(duplicates) > 0 {
		return nil, nil, &DuplicateKeyError{
			Metric: BaseMetric,
			Total:  len(duplicates),
			Keys:   sampleKeys(duplicates),
		}
	}

	return daily, index, nil
}

// metricOrder returns the metrics present in the input, canonical metrics
// first in fixed order, any extra metrics sorted after them.
func metricOrder(tables map[string]*Table) []string {
	order := make([]string, 0, len(tables))
	known := make(map[string]bool, len(canonicalMetricOrder))

	for _, m := range canonicalMetricOrder {
		known[m] = true
		if _, ok := tables[m]; ok {
			order = append(order, m)
		}
	}

	extras := make([]string, 0)
	for m := range tables {
		if !known[m] {
			extras = append(extras, m)
		}
	}
	sort.Strings(extras)

	return append(order, extras...)
}

// merge left-joins one metric's rows onto the daily fact. Base rows never
// gain or lose rows; a key assigned twice trips the cardinality check.
func merge(daily *DailyFact, index map[Key]int, metric string, rows []MetricRow) error {
	assigned := make(map[Key]bool, len(rows))
	var violations []Key

	for _, mr := range rows {
		idx, ok := index[mr.Key]
		if !ok {
			// Left join: metric rows without a base row only ever
			// populate base rows, never add them.
			continue
		}

		if assigned[mr.Key] {
			violations = append(violations, mr.Key)
			continue
		}
		assigned[mr.Key] = true

		daily.Rows[idx].Metrics[metric] = mr.Value
	}

	if len(violations) > 0 {
		return &MergeCardinalityError{Metric: metric, Keys: sampleKeys(violations)}
	}

	return nil
}

// melt derives the long fact by unpivoting every metric column, stamping the
// as-of date and the work flag on each observation.
func melt(daily *DailyFact, asOfDate string) *LongFact {
	long := &LongFact{Rows: make([]LongFactRow, 0, len(daily.Rows)*len(daily.MetricOrder))}

	for i := range daily.Rows {
		row := &daily.Rows[i]
		flag := workFlag(row.ShiftType)

		for _, metric := range daily.MetricOrder {
			long.Rows = append(long.Rows, LongFactRow{
				Date:        row.Date,
				AgentID:     row.AgentID,
				Name:        row.Name,
				ShiftType:   row.ShiftType,
				WorkedHours: row.WorkedHours,
				CPDTarget:   row.CPDTarget,
				Metric:      metric,
				ActualValue: row.Metrics[metric],
				AsOfDate:    asOfDate,
				WorkFlag:    flag,
			})
		}
	}

	return long
}

func workFlag(shiftType string) int {
	if offShiftSentinels[trimSpace(shiftType)] {
		return 0
	}

	return 1
}
