package summary

import (
	"fmt"
	"strings"
)

// Render formats the report as the fixed five-line text block. Degraded
// blocks render a 列不足 (insufficient columns) line in place of numbers, so
// rendering itself can never fail.
func (r *Report) Render() string {
	if r.NoData {
		return "データがありません。"
	}
	if r.NoCPDTargets {
		return "CPD目標が未設定です。"
	}

	lines := []string{
		renderVolume(&r.Volume),
		renderHeadcount(&r.Headcount),
		renderMetricBlock("3) 生産性", &r.Productivity),
		renderMetricBlock("4) 効率", &r.Efficiency),
		renderMetricBlock("5) 稼働・着座", &r.Occupancy),
	}

	return strings.Join(lines, "\n")
}

func renderVolume(b *VolumeBlock) string {
	if b.Status == BlockInsufficientColumns {
		return fmt.Sprintf("1) 受電実績：列不足 %s", formatColumns(b.MissingColumns))
	}

	return fmt.Sprintf("1) 受電実績：CPD %.0f / 計画 %.0f（達成率 %s）",
		b.ActualSum, b.PlanSum, pct(b.Rate))
}

func renderHeadcount(b *HeadcountBlock) string {
	if b.Status == BlockInsufficientColumns {
		return fmt.Sprintf("2) CPD未達（人数）：列不足 %s", formatColumns(b.MissingColumns))
	}

	return fmt.Sprintf("2) CPD未達（人数）：未達 %d人 / 対象 %d人（達成者率 %s）",
		b.Missed, b.Eligible, pct(b.HitRate))
}

func renderMetricBlock(prefix string, b *MetricBlock) string {
	if b.Status == BlockInsufficientColumns {
		return fmt.Sprintf("%s：列不足 %s", prefix, formatColumns(b.MissingColumns))
	}

	parts := make([]string, 0, len(b.Attainments))
	for _, a := range b.Attainments {
		parts = append(parts, fmt.Sprintf("%s 達成率 %s", a.Metric, pct(a.Rate)))
	}

	return fmt.Sprintf("%s：%s", prefix, strings.Join(parts, " / "))
}

func formatColumns(cols []string) string {
	return "[" + strings.Join(cols, ", ") + "]"
}

// pct renders a rate as a one-decimal percentage; non-finite rates render as
// the literal n/a.
func pct(rate float64) string {
	if !isFinite(rate) {
		return "n/a"
	}

	return fmt.Sprintf("%.1f%%", rate*100)
}
