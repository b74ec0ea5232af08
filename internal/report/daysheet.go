// Package report renders printable documents for clinic staff.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"clinic-booking-api/internal/model"
)

var (
	sheetCols   = []float64{10, 22, 50, 32, 46, 22}
	sheetHeader = []string{"#", "REQUESTED", "PATIENT", "PHONE", "SERVICE", "STATUS"}
)

// DaySheet writes an A4 PDF listing one day's appointments in booking order.
func DaySheet(w io.Writer, title string, day time.Time, appts []model.Appointment, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(false, 14)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, tr(title+" - Day Sheet"))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Date: "+day.Format("Monday, 2 January 2006"))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Appointments: %d", len(appts)))
	pdf.Ln(9)

	pdf.SetDrawColor(200, 200, 200)
	header := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(245, 245, 245)
		pdf.SetTextColor(20, 20, 20)
		for i, h := range sheetHeader {
			ln := 0
			if i == len(sheetHeader)-1 {
				ln = 1
			}
			pdf.CellFormat(sheetCols[i], 8, h, "1", ln, "L", true, 0, "")
		}
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(30, 30, 30)
	}
	header()

	if len(appts) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 8, "No appointments booked for this day.", "1", 1, "C", false, 0, "")
	}

	for i, a := range appts {
		if pdf.GetY() > 270 {
			pdf.AddPage()
			header()
		}
		name, phone := "(unknown patient)", ""
		if a.Patient != nil {
			name, phone = a.Patient.Name, a.Patient.Phone
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			a.CreatedAt.In(time.Local).Format("Jan 2 15:04"),
			trimTo(name, 28),
			trimTo(phone, 18),
			trimTo(a.Service, 26),
			string(a.Status),
		}
		for j, v := range cells {
			ln := 0
			if j == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(sheetCols[j], 8, tr(v), "1", ln, "L", false, 0, "")
		}
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+generated.Format(time.RFC3339), "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
