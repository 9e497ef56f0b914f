// Package testutil provides test utilities for dailyclose:
//   - Miniredis helpers for unit tests (miniredis.go)
//   - Spreadsheet and metric table builders (fixtures.go)
//
// None of the helpers require Docker; everything runs in-process.
package testutil
