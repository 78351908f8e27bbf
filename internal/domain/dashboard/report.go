package dashboard

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

var ErrNoData = errors.New("dashboard has no data to report")

var reportColumns = []struct {
	title string
	width float64
}{
	{"KPI Name", 50},
	{"Target %", 22},
	{"Achieved %", 24},
	{"Responsible Role", 32},
	{"Alignment", 26},
	{"Status", 26},
}

// WriteReport renders the dashboard view as a one page A4 PDF.
func WriteReport(w io.Writer, view View, generatedAt time.Time) error {
	if !view.HasData {
		return ErrNoData
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Appraisal KPI Dashboard", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Appraisal KPI Dashboard")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", generatedAt.UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(8)

	if view.ShowError {
		pdf.SetTextColor(176, 0, 32)
		pdf.Cell(0, 6, view.ErrorMessage)
		pdf.SetTextColor(0, 0, 0)
		pdf.Ln(8)
	}

	section(pdf, "Company Level")
	line(pdf, "Revenue Increase", view.CompanyRevenue.Label)
	line(pdf, "Customer Satisfaction", view.CompanyCS.Label)

	section(pdf, "C Level")
	line(pdf, "Job Completion", view.CLevel.Label)

	section(pdf, "Division Level")
	line(pdf, "TST Performance", view.DivisionTST.Label)
	line(pdf, "PM Performance", view.DivisionPM.Label)

	section(pdf, "Individual Level")
	line(pdf, "Quality Score", view.QualityScore.Label)

	section(pdf, "Performance Summary")
	line(pdf, "Total KPIs Achieved", view.Summary.TotalKPIs)
	line(pdf, "Average Score", view.Summary.AvgScore)
	line(pdf, "Active KPIs", view.Summary.ActiveKPIs)
	line(pdf, "Employees Evaluated", view.Summary.Employees)
	line(pdf, "Pending Reviews", view.Summary.Pending)

	section(pdf, "KPI Performance Details")
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(240, 240, 240)
	for _, col := range reportColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range view.Rows {
		cells := []string{row.Name, row.Target, row.Achieved, row.Role, row.Alignment, row.Status}
		for i, col := range reportColumns {
			pdf.CellFormat(col.width, 7, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
}

func line(pdf *gofpdf.Fpdf, label, value string) {
	pdf.Cell(70, 6, label)
	pdf.Cell(0, 6, value)
	pdf.Ln(6)
}
