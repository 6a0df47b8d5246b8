// Package report produces the integrity report that compares the cleaned
// input units with the monthly output units.
package report

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/sales-etl/internal/fileutils"
	"fjacquet/sales-etl/internal/logging"
	"fjacquet/sales-etl/internal/models"
	"fjacquet/sales-etl/internal/validation"

	"github.com/shopspring/decimal"
)

// File names written under the report directory.
const (
	StatsFileName    = "p2_transformation_stats.json"
	MarkdownFileName = "p2_transformation_report.md"
)

// Phase is the pipeline phase the report describes.
const Phase = 2

// Tolerance is the largest absolute difference that still passes the check.
var Tolerance = decimal.RequireFromString("0.01")

const timestampLayout = "2006-01-02 15:04:05"

// IntegrityReport is the content of the JSON stats file.
type IntegrityReport struct {
	Phase      int        `json:"phase"`
	Name       string     `json:"name"`
	Timestamp  string     `json:"timestamp"`
	Integrity  Integrity  `json:"integrity"`
	Dimensions Dimensions `json:"dimensions"`

	FillGaps bool `json:"-"`
}

// Integrity holds the unit totals and their comparison.
type Integrity struct {
	TotalInputClean    float64 `json:"total_input_clean"`
	TotalOutputMonthly float64 `json:"total_output_monthly"`
	Diff               float64 `json:"diff"`
	CheckOK            bool    `json:"check_ok"`
}

// Dimensions holds row counts before and after the pipeline.
type Dimensions struct {
	RowsRaw         int `json:"rows_raw"`
	RowsTransformed int `json:"rows_transformed"`
}

// Input is what the caller measured during a run.
type Input struct {
	TotalInputClean    decimal.Decimal
	TotalOutputMonthly decimal.Decimal
	RowsRaw            int
	RowsTransformed    int
	FillGaps           bool
}

// ReportGenerator builds and writes integrity reports.
type ReportGenerator struct {
	logger logging.Logger
	now    func() time.Time
}

// NewReportGenerator creates a new instance of ReportGenerator.
func NewReportGenerator(logger logging.Logger) *ReportGenerator {
	return &ReportGenerator{
		logger: logger.WithField(logging.FieldComponent, "ReportGenerator"),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for report timestamps.
func (g *ReportGenerator) WithClock(now func() time.Time) *ReportGenerator {
	g.now = now
	return g
}

// Build compares the totals and fills in the report. The check passes when
// the absolute difference is below Tolerance.
func (g *ReportGenerator) Build(in Input) *IntegrityReport {
	diff := in.TotalInputClean.Sub(in.TotalOutputMonthly).Abs()
	checkOK := diff.LessThan(Tolerance)

	report := &IntegrityReport{
		Phase:     Phase,
		Name:      reportName(in.FillGaps),
		Timestamp: g.now().Format(timestampLayout),
		Integrity: Integrity{
			TotalInputClean:    in.TotalInputClean.InexactFloat64(),
			TotalOutputMonthly: in.TotalOutputMonthly.InexactFloat64(),
			Diff:               diff.InexactFloat64(),
			CheckOK:            checkOK,
		},
		Dimensions: Dimensions{
			RowsRaw:         in.RowsRaw,
			RowsTransformed: in.RowsTransformed,
		},
		FillGaps: in.FillGaps,
	}

	if !checkOK {
		g.logger.Warn("Integrity check failed",
			logging.F("total_input_clean", report.Integrity.TotalInputClean),
			logging.F("total_output_monthly", report.Integrity.TotalOutputMonthly),
			logging.F("diff", report.Integrity.Diff))
	}
	return report
}

// GenerateReport renders a report in the specified format (json or markdown).
func (g *ReportGenerator) GenerateReport(report *IntegrityReport, format string) ([]byte, error) {
	if err := validation.IsValidReportFormat(format); err != nil {
		return nil, err
	}
	if format == "json" {
		return g.generateJSONReport(report)
	}
	return []byte(renderMarkdown(report)), nil
}

// Write renders both formats into dir and returns the written paths.
func (g *ReportGenerator) Write(report *IntegrityReport, dir string) (jsonPath, markdownPath string, err error) {
	if err := fileutils.EnsureDirectoryExists(dir); err != nil {
		return "", "", err
	}

	jsonBytes, err := g.GenerateReport(report, "json")
	if err != nil {
		return "", "", err
	}
	jsonPath = filepath.Join(dir, StatsFileName)
	if err := fileutils.WriteFile(jsonPath, jsonBytes, models.PermissionReportFile); err != nil {
		return "", "", fmt.Errorf("failed to write JSON report: %w", err)
	}

	mdBytes, err := g.GenerateReport(report, "markdown")
	if err != nil {
		return "", "", err
	}
	markdownPath = filepath.Join(dir, MarkdownFileName)
	if err := fileutils.WriteFile(markdownPath, mdBytes, models.PermissionReportFile); err != nil {
		return "", "", fmt.Errorf("failed to write Markdown report: %w", err)
	}

	g.logger.Info("Integrity report written",
		logging.F(logging.FieldDirectory, dir),
		logging.F(logging.FieldStatus, statusLabel(report.Integrity.CheckOK)))
	return jsonPath, markdownPath, nil
}

// generateJSONReport generates the report in JSON format.
func (g *ReportGenerator) generateJSONReport(report *IntegrityReport) ([]byte, error) {
	jsonReport, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return nil, fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return jsonReport, nil
}

func reportName(fillGaps bool) string {
	if fillGaps {
		return "Transformation with gap filling (interpolation)"
	}
	return "Standard transformation (no imputation)"
}

func statusLabel(ok bool) string {
	if ok {
		return "MATCH"
	}
	return "MISMATCH"
}

func renderMarkdown(r *IntegrityReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Phase %d: Transformation Integrity Report\n\n", r.Phase)
	fmt.Fprintf(&b, "_%s, generated %s_\n\n", r.Name, r.Timestamp)

	b.WriteString("## 1. Unit Validation\n")
	fmt.Fprintf(&b, "- **Raw units (after removing sentinel codes):** %s\n", formatUnits(r.Integrity.TotalInputClean))
	fmt.Fprintf(&b, "- **Aggregated monthly units:** %s\n", formatUnits(r.Integrity.TotalOutputMonthly))
	if r.Integrity.CheckOK {
		b.WriteString("- **Status:** ✅ FULL MATCH\n")
	} else {
		fmt.Fprintf(&b, "- **Status:** ❌ DISCREPANCY DETECTED (diff %s)\n", formatUnits(r.Integrity.Diff))
	}
	fmt.Fprintf(&b, "- **Rows:** %d raw, %d transformed\n\n", r.Dimensions.RowsRaw, r.Dimensions.RowsTransformed)

	b.WriteString("## 2. Process Decision\n")
	if r.FillGaps {
		b.WriteString("Missing months were filled within each series by linear interpolation, " +
			"then carried forward and backward to the series edges. " +
			"Filled months are estimates and are not reported sales, so the monthly total can exceed the input total.\n\n")
	} else {
		b.WriteString("Automatic imputation is disabled. The dataset **only contains reported sales**. " +
			"Periods without sales appear as missing records in each series.\n\n")
	}

	b.WriteString("## 3. Next Step\n")
	b.WriteString("Analyze whether the temporal gaps are point-of-sale closures or zero-sales months " +
		"before choosing a filling strategy.\n")
	return b.String()
}

// formatUnits renders f with two decimals and comma thousands separators.
func formatUnits(f float64) string {
	s := decimal.NewFromFloat(f).StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + "." + frac
}
