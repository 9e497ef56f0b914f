package facts

import "strings"

// Canonical column names of the base attendance schema.
const (
	ColDate        = "date"
	ColAgentID     = "agent_id"
	ColName        = "name"
	ColShiftType   = "shift_type"
	ColWorkedHours = "worked_hours"
	ColCPDTarget   = "cpd_target"
)

// BaseColumns is the canonical base attendance schema in output order.
//
//nolint:gochecknoglobals // Fixed schema shared across the package
var BaseColumns = []string{ColDate, ColAgentID, ColName, ColShiftType, ColWorkedHours, ColCPDTarget}

// columnAliases maps known source header spellings onto canonical names.
// Value columns (CPH, AHT, ...) are intentionally absent: metric columns
// are resolved per metric by the ColumnResolver, not renamed here.
//
//nolint:gochecknoglobals // Fixed alias table
var columnAliases = map[string]string{
	"日付":       ColDate,
	"対応日":      ColDate,
	"エージェントID": ColAgentID,
	"オペレーターID": ColAgentID,
	"担当者ID":    ColAgentID,
	"agent id": ColAgentID,
	"agentid":  ColAgentID,
	"氏名":       ColName,
	"名前":       ColName,
	"シフト":      ColShiftType,
	"シフト区分":    ColShiftType,
	"稼働時間":     ColWorkedHours,
	"CPD目標":    ColCPDTarget,
}

// NormalizeHeaders canonicalizes raw spreadsheet column headers. ASCII and
// full-width spaces are trimmed and internal runs collapsed, then known
// aliases are renamed to their canonical form.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = normalizeHeader(h)
	}

	return out
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "　", " ")
	h = strings.Join(strings.Fields(h), " ")

	if canonical, ok := columnAliases[h]; ok {
		return canonical
	}
	if canonical, ok := columnAliases[strings.ToLower(h)]; ok {
		return canonical
	}

	return h
}

// ColumnResolver identifies the value column carrying a metric's numbers.
// Resolution is a pluggable policy so ambiguous-schema handling stays
// testable in isolation.
type ColumnResolver struct {
	baseColumns map[string]bool
}

// NewColumnResolver creates a resolver that treats the given columns as
// non-value (base) columns.
func NewColumnResolver(baseColumns []string) *ColumnResolver {
	set := make(map[string]bool, len(baseColumns))
	for _, c := range baseColumns {
		set[c] = true
	}

	return &ColumnResolver{baseColumns: set}
}

// Resolve returns the header of the column holding metric values. A column
// exactly named after the metric wins; otherwise the candidate set is every
// non-base column, acceptable only when exactly one candidate remains.
func (r *ColumnResolver) Resolve(headers []string, metric string) (string, error) {
	for _, h := range headers {
		if h == metric {
			return h, nil
		}
	}

	candidates := make([]string, 0, len(headers))
	for _, h := range headers {
		if !r.baseColumns[h] {
			candidates = append(candidates, h)
		}
	}

	if len(candidates) == 1 {
		return candidates[0], nil
	}

	return "", &SchemaError{
		Metric:     metric,
		Reason:     "value column is ambiguous",
		Candidates: candidates,
	}
}
