package facts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBaseMetricMissing is returned when the designated base metric table
// (CPD) is absent from the Build input.
var ErrBaseMetricMissing = errors.New("base metric table CPD is required")

// keySampleLimit caps how many offending keys an error payload carries.
const keySampleLimit = 5

// SchemaError reports that a source table's columns don't match
// expectations: required base columns absent, or an unresolvable value
// column.
type SchemaError struct {
	Metric         string
	Reason         string
	MissingColumns []string
	Candidates     []string
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "schema error for metric %s: %s", e.Metric, e.Reason)
	if len(e.MissingColumns) > 0 {
		fmt.Fprintf(&b, " (missing columns: %s)", strings.Join(e.MissingColumns, ", "))
	}
	if len(e.Candidates) > 0 {
		fmt.Fprintf(&b, " (candidates: %s)", strings.Join(e.Candidates, ", "))
	}

	return b.String()
}

// DuplicateKeyError reports repeated (date, agent_id) pairs within one
// metric extraction. Duplicate source rows indicate upstream data corruption
// and are never merged or averaged away.
type DuplicateKeyError struct {
	Metric string
	Total  int
	Keys   []Key
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate keys in metric %s: %d duplicate(s), sample %s",
		e.Metric, e.Total, formatKeys(e.Keys))
}

// MergeCardinalityError reports a left join that would duplicate a base row.
// Extraction already enforces per-metric uniqueness; this re-check guards
// the join boundary.
type MergeCardinalityError struct {
	Metric string
	Keys   []Key
}

func (e *MergeCardinalityError) Error() string {
	return fmt.Sprintf("merge for metric %s would duplicate base rows: sample %s",
		e.Metric, formatKeys(e.Keys))
}

func formatKeys(keys []Key) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k.String())
	}

	return "[" + strings.Join(parts, ", ") + "]"
}

func sampleKeys(keys []Key) []Key {
	if len(keys) > keySampleLimit {
		return keys[:keySampleLimit]
	}

	return keys
}
