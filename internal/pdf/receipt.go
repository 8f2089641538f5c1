// Package pdf renders booking receipts.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

type ReceiptData struct {
	BookingID     int64
	TourName      string
	CustomerName  string
	CustomerEmail string
	Price         float64
	Currency      string
	Paid          bool
	BookedAt      time.Time
}

type ReceiptRenderer interface {
	Render(w io.Writer, data ReceiptData) error
}

// Receipts draws A4 receipts with the core Helvetica font, so no font files
// are needed at runtime.
type Receipts struct {
	Company string
}

func NewReceipts(company string) *Receipts {
	return &Receipts{Company: company}
}

func (g *Receipts) Render(w io.Writer, data ReceiptData) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Receipt #%d", data.BookingID), true)
	pdf.SetAuthor(g.Company, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(g.Company+" booking receipt"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("No. NAT-%06d  -  %s", data.BookingID, data.BookedAt.Format("02 Jan 2006")), "", 1, "C", false, 0, "")
	g.hr(pdf)

	g.sectionTitle(pdf, "Customer")
	g.kvLine(pdf, tr, "Name", data.CustomerName)
	g.kvLine(pdf, tr, "Email", data.CustomerEmail)
	g.hr(pdf)

	g.sectionTitle(pdf, "Booking")
	g.kvLine(pdf, tr, "Tour", data.TourName)
	g.kvLine(pdf, tr, "Amount", fmt.Sprintf("%.2f %s", data.Price, data.Currency))
	status := "Pending"
	if data.Paid {
		status = "Paid"
	}
	g.kvLine(pdf, tr, "Status", status)
	g.hr(pdf)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, tr("Thank you for booking with "+g.Company+". Present this receipt at the start of your tour."), "", "L", false)

	return pdf.Output(w)
}

func (g *Receipts) sectionTitle(pdf *gofpdf.Fpdf, s string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 7, s, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
}

func (g *Receipts) kvLine(pdf *gofpdf.Fpdf, tr func(string) string, key, val string) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(45, 6, key+":", "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr(val), "", 1, "L", false, 0, "")
}

func (g *Receipts) hr(pdf *gofpdf.Fpdf) {
	y := pdf.GetY() + 1.5
	pdf.SetLineWidth(0.2)
	pdf.Line(20, y, 190, y)
	pdf.SetY(y + 2)
}
