package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"fleetcare-cloud/internal/monitor/application"
)

// BuildReportPDF renders a minimal PDF for a security report.
func BuildReportPDF(report application.Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Security Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Activities: %d", report.TotalActivities))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total Alerts: %d", report.AlertCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("High Risk Activities: %d", report.HighRiskCount))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Recommendation: %s", report.Recommendation))
	pdf.Ln(8)

	// Recent alerts table, most recent last.
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Time", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Worker", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Target", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Risk", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Alert", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, entry := range report.LastAlerts {
		kind := ""
		if len(entry.Alerts) > 0 {
			kind = string(entry.Alerts[0].Kind)
		}
		pdf.CellFormat(35, 6, entry.OccurredAt.Format("01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, entry.WorkerID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, entry.Target, "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", entry.RiskScore), "1", 0, "R", false, 0, "")
		pdf.CellFormat(55, 6, kind, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportXLSX renders a minimal XLSX for a security report.
func BuildReportXLSX(report application.Report) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	alertsSheet := "alerts"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(alertsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Security Report")
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", report.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A4", "Total Activities")
	_ = f.SetCellValue(summarySheet, "B4", report.TotalActivities)
	_ = f.SetCellValue(summarySheet, "A5", "Total Alerts")
	_ = f.SetCellValue(summarySheet, "B5", report.AlertCount)
	_ = f.SetCellValue(summarySheet, "A6", "High Risk Activities")
	_ = f.SetCellValue(summarySheet, "B6", report.HighRiskCount)
	_ = f.SetCellValue(summarySheet, "A7", "Recommendation")
	_ = f.SetCellValue(summarySheet, "B7", report.Recommendation)

	_ = f.SetCellValue(alertsSheet, "A1", "Time")
	_ = f.SetCellValue(alertsSheet, "B1", "Worker")
	_ = f.SetCellValue(alertsSheet, "C1", "Action Kind")
	_ = f.SetCellValue(alertsSheet, "D1", "Target")
	_ = f.SetCellValue(alertsSheet, "E1", "Risk")
	_ = f.SetCellValue(alertsSheet, "F1", "Alert")
	_ = f.SetCellValue(alertsSheet, "G1", "Message")
	for i, entry := range report.LastAlerts {
		row := i + 2
		kind, message := "", ""
		if len(entry.Alerts) > 0 {
			kind = string(entry.Alerts[0].Kind)
			message = entry.Alerts[0].Message
		}
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("A%d", row), entry.OccurredAt.Format(time.RFC3339))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("B%d", row), entry.WorkerID)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("C%d", row), string(entry.Kind))
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("D%d", row), entry.Target)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("E%d", row), entry.RiskScore)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("F%d", row), kind)
		_ = f.SetCellValue(alertsSheet, fmt.Sprintf("G%d", row), message)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
