// Package pipeline orchestrates one daily close run: locate inputs, build
// the fact tables, render the template, summarize, send, and archive.
package pipeline

import (
	"errors"
	"time"

	"github.com/opsdesk/dailyclose/pkg/summary"
)

// Configuration errors. These are fatal and abort a run before any I/O.
var (
	ErrInputFolderRequired  = errors.New("input folder id is required")
	ErrTemplateFileRequired = errors.New("template file id is required")
)

// RequiredFile maps one mandatory source filename onto its metric.
type RequiredFile struct {
	Filename string
	Metric   string
}

// RequiredFiles is the fixed set of per-metric source files a daily folder
// must contain, in deterministic processing order. Names are case-sensitive.
//
//nolint:gochecknoglobals // Fixed input contract
var RequiredFiles = []RequiredFile{
	{Filename: "CPH.xlsx", Metric: "CPH"},
	{Filename: "AHT.xlsx", Metric: "AHT"},
	{Filename: "ATT.xlsx", Metric: "ATT"},
	{Filename: "ACW.xlsx", Metric: "ACW"},
	{Filename: "CPD.xlsx", Metric: "CPD"},
	{Filename: "着座比率.xlsx", Metric: "seating-ratio"},
	{Filename: "稼働率.xlsx", Metric: "utilization-ratio"},
}

// Config holds pipeline settings.
type Config struct {
	// InputFolderID is the folder holding one child folder per business date.
	InputFolderID string `yaml:"inputFolderId"`
	// TemplateFileID is the report template workbook.
	TemplateFileID string `yaml:"templateFileId"`
	// OutputRootID, when set, enables the month-bucketed overwrite output.
	OutputRootID string `yaml:"outputRootId"`
	// SubjectPrefix prefixes every report mail subject.
	SubjectPrefix string `yaml:"subjectPrefix" default:"[前日確定版]"`
	// Targets are the fixed KPI targets for the summary.
	Targets summary.Targets `yaml:"targets"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.InputFolderID == "" {
		return ErrInputFolderRequired
	}
	if c.TemplateFileID == "" {
		return ErrTemplateFileRequired
	}

	return nil
}

// reportTimezone is the business timezone of the call center (UTC+9).
//
//nolint:gochecknoglobals // Fixed business timezone
var reportTimezone = time.FixedZone("JST", 9*60*60)

// DefaultAsOfDate is the business date a run reports on when none is given:
// yesterday in the fixed report timezone.
func DefaultAsOfDate(now time.Time) string {
	return now.In(reportTimezone).AddDate(0, 0, -1).Format(DateLayout)
}

// DateLayout is the wire format of as-of dates.
const DateLayout = "2006-01-02"
