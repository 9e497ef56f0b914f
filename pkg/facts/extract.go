package facts

// MetricRow is one clean observation for a single metric. A nil Value means
// the source cell was empty or unparseable.
type MetricRow struct {
	Key   Key
	Value *float64
}

// Extract turns one raw per-metric table into clean metric rows. It fails
// with a SchemaError when the key columns are absent or the value column
// cannot be unambiguously identified, and with a DuplicateKeyError when any
// (date, agent_id) pair repeats, regardless of whether the values agree.
func Extract(table *Table, metric string) ([]MetricRow, error) {
	missing := missingColumns(table, ColDate, ColAgentID)
	if len(missing) > 0 {
		return nil, &SchemaError{
			Metric:         metric,
			Reason:         "required base columns are absent",
			MissingColumns: missing,
		}
	}

	resolver := NewColumnResolver(BaseColumns)
	valueCol, err := resolver.Resolve(table.Headers, metric)
	if err != nil {
		return nil, err
	}

	rows := make([]MetricRow, 0, len(table.Rows))
	seen := make(map[Key]bool, len(table.Rows))
	var duplicates []Key

	for _, raw := range table.Rows {
		key := Key{
			Date:    trimSpace(raw[ColDate]),
			AgentID: trimSpace(raw[ColAgentID]),
		}

		// Trailing blank spreadsheet rows carry no key at all.
		if key.Date == "" && key.AgentID == "" {
			continue
		}

		if seen[key] {
			duplicates = append(duplicates, key)
			continue
		}
		seen[key] = true

		rows = append(rows, MetricRow{Key: key, Value: ParseNumber(raw[valueCol])})
	}

	if len(duplicates) > 0 {
		return nil, &DuplicateKeyError{
			Metric: metric,
			Total:  len(duplicates),
			Keys:   sampleKeys(duplicates),
		}
	}

	return rows, nil
}

func missingColumns(table *Table, required ...string) []string {
	var missing []string
	for _, col := range required {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}

	return missing
}
