// Package summary computes KPI attainment against targets and renders the
// fixed five-line daily report.
package summary

import (
	"math"
	"strings"

	"github.com/opsdesk/dailyclose/pkg/facts"
)

// ratioScaleThreshold disambiguates 0-1 fraction inputs from 0-100
// percentage inputs: values above it are treated as percentages and divided
// by 100. A fixed cutoff is fragile near the boundary; it is preserved for
// behavioral parity with prior report outputs.
const ratioScaleThreshold = 1.5

// Targets holds the fixed KPI targets the daily report measures against.
// CPD targets are per-agent and come from the source data instead.
type Targets struct {
	CPH              float64 `yaml:"cph" default:"6"`
	AHT              float64 `yaml:"aht" default:"750"`
	ATT              float64 `yaml:"att" default:"600"`
	ACW              float64 `yaml:"acw" default:"150"`
	SeatingRatio     float64 `yaml:"seatingRatio" default:"0.85"`
	UtilizationRatio float64 `yaml:"utilizationRatio" default:"0.80"`
}

// BlockStatus describes how one report block was produced.
type BlockStatus int

// Block statuses.
const (
	BlockOK BlockStatus = iota
	BlockInsufficientColumns
)

// VolumeBlock is line 1: total actual vs. planned CPD.
type VolumeBlock struct {
	Status         BlockStatus
	MissingColumns []string
	ActualSum      float64
	PlanSum        float64
	Rate           float64
}

// HeadcountBlock is line 2: agents missing their CPD target.
type HeadcountBlock struct {
	Status         BlockStatus
	MissingColumns []string
	Missed         int
	Eligible       int
	HitRate        float64
}

// Attainment is one metric's attainment rate within a block.
type Attainment struct {
	Metric string
	Actual float64
	Target float64
	Rate   float64
}

// MetricBlock is a report block aggregating one or more metric columns.
type MetricBlock struct {
	Status         BlockStatus
	MissingColumns []string
	Attainments    []Attainment
}

// Report is the structured daily summary. Rendering to text is a separate,
// presentation-only step so the numeric core stays exception-free.
type Report struct {
	AsOfDate     string
	NoData       bool
	NoCPDTargets bool

	Volume       VolumeBlock
	Headcount    HeadcountBlock
	Productivity MetricBlock
	Efficiency   MetricBlock
	Occupancy    MetricBlock
}

// Summarize computes the KPI report for the rows of the daily fact matching
// the as-of date. It never fails: absent columns degrade the affected block
// and an empty selection yields a no-data report.
func Summarize(daily *facts.DailyFact, asOfDate string, targets Targets) *Report {
	report := &Report{AsOfDate: asOfDate}

	rows := filterRows(daily, asOfDate)
	if len(rows) == 0 {
		report.NoData = true
		return report
	}

	summarizeCPD(report, daily, rows)
	report.Productivity = higherBetterBlock(daily, rows, []Attainment{
		{Metric: "CPH", Target: targets.CPH},
	})
	report.Efficiency = lowerBetterBlock(daily, rows, []Attainment{
		{Metric: "AHT", Target: targets.AHT},
		{Metric: "ATT", Target: targets.ATT},
		{Metric: "ACW", Target: targets.ACW},
	})
	report.Occupancy = ratioBlock(daily, rows, []Attainment{
		{Metric: "seating-ratio", Target: targets.SeatingRatio},
		{Metric: "utilization-ratio", Target: targets.UtilizationRatio},
	})

	return report
}

func filterRows(daily *facts.DailyFact, asOfDate string) []*facts.DailyFactRow {
	want := strings.TrimSpace(asOfDate)
	rows := make([]*facts.DailyFactRow, 0, len(daily.Rows))
	for i := range daily.Rows {
		if strings.TrimSpace(daily.Rows[i].Date) == want {
			rows = append(rows, &daily.Rows[i])
		}
	}

	return rows
}

// summarizeCPD fills lines 1 and 2. Both restrict to rows carrying a CPD
// target; a headcount hit is actual >= target, not strictly greater.
func summarizeCPD(report *Report, daily *facts.DailyFact, rows []*facts.DailyFactRow) {
	var missing []string
	if !daily.HasMetric("CPD") {
		missing = append(missing, "CPD")
	}
	if !daily.HasCPDTarget {
		missing = append(missing, facts.ColCPDTarget)
	}
	if len(missing) > 0 {
		report.Volume = VolumeBlock{Status: BlockInsufficientColumns, MissingColumns: missing}
		report.Headcount = HeadcountBlock{Status: BlockInsufficientColumns, MissingColumns: missing}

		return
	}

	var actualSum, planSum float64
	var eligible, hit int

	for _, row := range rows {
		if row.CPDTarget == nil {
			continue
		}
		eligible++
		planSum += *row.CPDTarget

		if actual := row.Metrics["CPD"]; actual != nil {
			actualSum += *actual
			if *actual >= *row.CPDTarget {
				hit++
			}
		}
	}

	if eligible == 0 {
		report.NoCPDTargets = true
		return
	}

	report.Volume = VolumeBlock{
		ActualSum: actualSum,
		PlanSum:   planSum,
		Rate:      higherBetterRate(actualSum, planSum),
	}
	report.Headcount = HeadcountBlock{
		Missed:   eligible - hit,
		Eligible: eligible,
		HitRate:  higherBetterRate(float64(hit), float64(eligible)),
	}
}

func higherBetterBlock(daily *facts.DailyFact, rows []*facts.DailyFactRow, wanted []Attainment) MetricBlock {
	return metricBlock(daily, rows, wanted, func(mean, target float64) float64 {
		return higherBetterRate(mean, target)
	}, nil)
}

func lowerBetterBlock(daily *facts.DailyFact, rows []*facts.DailyFactRow, wanted []Attainment) MetricBlock {
	return metricBlock(daily, rows, wanted, lowerBetterRate, nil)
}

func ratioBlock(daily *facts.DailyFact, rows []*facts.DailyFactRow, wanted []Attainment) MetricBlock {
	return metricBlock(daily, rows, wanted, func(mean, target float64) float64 {
		return higherBetterRate(mean, normalizeRatio(target))
	}, normalizeRatio)
}

// metricBlock averages each wanted metric over working rows with a value and
// computes the attainment. A block whose columns are not all present
// degrades to insufficient-columns instead of aborting the summary.
func metricBlock(
	daily *facts.DailyFact,
	rows []*facts.DailyFactRow,
	wanted []Attainment,
	rate func(mean, target float64) float64,
	normalize func(float64) float64,
) MetricBlock {
	var missing []string
	for _, w := range wanted {
		if !daily.HasMetric(w.Metric) {
			missing = append(missing, w.Metric)
		}
	}
	if len(missing) > 0 {
		return MetricBlock{Status: BlockInsufficientColumns, MissingColumns: missing}
	}

	block := MetricBlock{Attainments: make([]Attainment, 0, len(wanted))}
	for _, w := range wanted {
		mean := meanValue(rows, w.Metric, normalize)
		block.Attainments = append(block.Attainments, Attainment{
			Metric: w.Metric,
			Actual: mean,
			Target: w.Target,
			Rate:   rate(mean, w.Target),
		})
	}

	return block
}

// meanValue averages a metric over working-day rows with a present value.
// Off-shift rows are excluded so idle days don't drag the averages.
func meanValue(rows []*facts.DailyFactRow, metric string, normalize func(float64) float64) float64 {
	var sum float64
	var n int

	for _, row := range rows {
		if !isWorking(row.ShiftType) {
			continue
		}
		v := row.Metrics[metric]
		if v == nil {
			continue
		}

		value := *v
		if normalize != nil {
			value = normalize(value)
		}
		sum += value
		n++
	}

	if n == 0 {
		return math.NaN()
	}

	return sum / float64(n)
}

func isWorking(shiftType string) bool {
	s := strings.TrimSpace(shiftType)
	return s != "休み" && s != "off"
}

// higherBetterRate is actual/target; NaN when the target is zero or either
// operand is non-finite.
func higherBetterRate(actual, target float64) float64 {
	if target == 0 || !isFinite(actual) || !isFinite(target) {
		return math.NaN()
	}

	return actual / target
}

// lowerBetterRate inverts the ratio for lower-is-better metrics: meeting the
// target exactly is 100%, overshooting it degrades the rate.
func lowerBetterRate(actual, target float64) float64 {
	if actual == 0 || !isFinite(actual) || !isFinite(target) {
		return math.NaN()
	}

	return target / actual
}

// normalizeRatio maps both 0-1 fraction and 0-100 percentage inputs onto a
// fraction. See ratioScaleThreshold.
func normalizeRatio(v float64) float64 {
	if v > ratioScaleThreshold {
		return v / 100
	}

	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
