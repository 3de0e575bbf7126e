package canvas

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// Sheet is one participant's side of a duel export.
type Sheet struct {
	Name    string
	Strokes []Stroke
}

const (
	pdfMargin     = 10.0
	pdfPanelWidth = 132.0
	pdfHeaderY    = 28.0
)

// WritePDF renders both drawings of a duel side by side on one landscape A4 page.
func WritePDF(w io.Writer, prompt, winner string, sheets [2]Sheet) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, prompt, "", 1, "C", false, 0, "")
	if winner != "" {
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, fmt.Sprintf("Winner: %s", winner), "", 1, "C", false, 0, "")
	}

	panelHeight := pdfPanelWidth * LogicalHeight / LogicalWidth
	for i, sheet := range sheets {
		left := pdfMargin + float64(i)*(pdfPanelWidth+pdfMargin*1.5)
		surface := Surface{Left: left, Top: pdfHeaderY + 8, Width: pdfPanelWidth, Height: panelHeight}

		pdf.SetFont("Helvetica", "", 11)
		pdf.Text(left, pdfHeaderY+4, sheet.Name)
		pdf.SetDrawColor(0, 0, 0)
		pdf.Rect(surface.Left, surface.Top, surface.Width, surface.Height, "D")

		pdf.ClipRect(surface.Left, surface.Top, surface.Width, surface.Height, false)
		pdf.SetFillColor(0, 0, 0)
		for _, s := range sheet.Strokes {
			outline := Outline(s.points, DefaultProfile)
			if len(outline) < 3 {
				continue
			}
			poly := make([]gofpdf.PointType, len(outline))
			for j, p := range outline {
				x, y := surface.Denormalize(p)
				poly[j] = gofpdf.PointType{X: x, Y: y}
			}
			pdf.Polygon(poly, "F")
		}
		pdf.ClipEnd()
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	return pdf.Output(w)
}
