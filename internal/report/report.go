// Package report renders opportunity scans and action plans as XLSX and PDF.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/converter"
	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// BuildOpportunitiesXLSX writes a summary sheet and one row per ranked opportunity.
func BuildOpportunitiesXLSX(period domain.Period, opps []domain.Opportunity) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Summary"
	itemsSheet := "Opportunities"
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	conv := &converter.EnergyConverter{}
	totalKWh := 0.0
	totalUSD := decimal.Zero
	for _, o := range opps {
		totalKWh += o.PotentialSavingsKWh
		totalUSD = totalUSD.Add(o.PotentialSavingsUSD)
	}

	_ = f.SetCellValue(summarySheet, "A1", "Energy Opportunity Scan")
	_ = f.SetCellValue(summarySheet, "A3", "Period start")
	_ = f.SetCellValue(summarySheet, "B3", period.Start.UTC().Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A4", "Period end")
	_ = f.SetCellValue(summarySheet, "B4", period.End.UTC().Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Opportunities")
	_ = f.SetCellValue(summarySheet, "B5", len(opps))
	_ = f.SetCellValue(summarySheet, "A6", "Savings (kWh)")
	_ = f.SetCellValue(summarySheet, "B6", totalKWh)
	_ = f.SetCellValue(summarySheet, "A7", "Savings (MWh)")
	_ = f.SetCellValue(summarySheet, "B7", conv.KWhToMWh(totalKWh))
	_ = f.SetCellValue(summarySheet, "A8", "Savings (USD)")
	_ = f.SetCellValue(summarySheet, "B8", totalUSD.InexactFloat64())

	headers := []string{"Rank", "Entity", "Issue", "Description", "Action", "Savings (kWh)", "Savings (USD)", "Effort", "ROI (days)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, h)
	}
	for i, o := range opps {
		row := i + 2
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", row), o.Rank)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", row), o.EntityName)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", row), o.IssueType.String())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", row), o.Description)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", row), o.RecommendedAction)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("F%d", row), o.PotentialSavingsKWh)
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("G%d", row), o.PotentialSavingsUSD.InexactFloat64())
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("H%d", row), string(o.EffortTier))
		_ = f.SetCellValue(itemsSheet, fmt.Sprintf("I%d", row), o.ROIDays)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildActionPlanPDF renders a plan as a one-document PDF.
func BuildActionPlanPDF(plan *domain.ActionPlan) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(0, 8, fmt.Sprintf("Action Plan: %s", plan.EntityName))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Plan: %s", plan.ID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Issue: %s", plan.IssueType))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Status: %s", plan.Status))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s  Target: %s",
		plan.GeneratedOn.Format("2006-01-02"), plan.TargetCompletion.Format("2006-01-02")))
	pdf.Ln(8)

	pdf.MultiCell(0, 5, plan.ProblemStatement, "", "L", false)
	pdf.Ln(3)

	section(pdf, "Root causes")
	for i, rc := range plan.RootCauses {
		pdf.Cell(0, 5, fmt.Sprintf("%d. %s", i+1, rc))
		pdf.Ln(5)
	}
	pdf.Ln(3)

	section(pdf, "Actions")
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(10, 6, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(95, 6, "Action", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Responsible", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Days", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, a := range plan.Actions {
		pdf.CellFormat(10, 6, fmt.Sprintf("%d", a.Priority), "1", 0, "C", false, 0, "")
		pdf.CellFormat(95, 6, truncate(a.Description, 60), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, a.ResponsibleParty, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", a.TimelineDays), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	section(pdf, "Expected outcome")
	out := plan.ExpectedOutcome
	pdf.Cell(0, 5, fmt.Sprintf("Energy reduction: %.0f%%", out.EnergyReductionPct))
	pdf.Ln(5)
	if out.EnergySavingsKWh != nil {
		pdf.Cell(0, 5, fmt.Sprintf("Energy savings: %.0f kWh", *out.EnergySavingsKWh))
		pdf.Ln(5)
	}
	pdf.Cell(0, 5, "Cost: "+out.CostNote)
	pdf.Ln(5)
	pdf.Cell(0, 5, "Carbon: "+out.CarbonNote)
	pdf.Ln(8)

	section(pdf, "Monitoring")
	for _, m := range plan.MonitoringPlan {
		pdf.Cell(0, 5, "[ ] "+m)
		pdf.Ln(5)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, title)
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-3]) + "..."
}

// FileName builds a report file name stamped with t.
func FileName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%s", prefix, t.UTC().Format("20060102T150405Z"))
}
