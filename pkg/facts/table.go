// Package facts builds the daily wide and long fact tables from raw
// per-metric spreadsheet data.
package facts

import (
	"strconv"
	"strings"
)

// Row is a single raw spreadsheet row keyed by column header.
type Row map[string]string

// Table is an untyped tabular blob as read from one source file.
// Headers preserve the source column order; Rows preserve row order.
// No key uniqueness is guaranteed at this stage.
type Table struct {
	Headers []string
	Rows    []Row
}

// HasColumn reports whether the table contains the given header.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}

	return false
}

// Key identifies one agent on one calendar date.
type Key struct {
	Date    string
	AgentID string
}

func (k Key) String() string {
	return k.Date + "/" + k.AgentID
}

// ParseNumber normalizes a raw cell value and parses it as a number.
// A trailing percent sign and thousands-separator commas are stripped,
// surrounding ASCII and full-width whitespace is trimmed. Unparseable or
// empty values return nil; a bad cell is missing data, never an error.
func ParseNumber(raw string) *float64 {
	s := trimSpace(raw)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	s = trimSpace(s)

	if s == "" {
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}

	return &v
}

// trimSpace trims ASCII whitespace and full-width (U+3000) spaces.
func trimSpace(s string) string {
	return strings.Trim(s, " \t\r\n　")
}
