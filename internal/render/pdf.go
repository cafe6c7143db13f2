package render

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"

	"github.com/go-pdf/fpdf"

	"github.com/eugenenazirov/atlas-packer/internal/packing"
)

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	pageMargin   = 15.0
	headerHeight = 12.0
	drawAreaTop  = pageMargin + headerHeight + 8.0
)

// PDF writes a one-page A4 landscape layout sheet for the canvas: a title,
// a fill summary and the scaled placement diagram.
func PDF(w io.Writer, p *packing.Packing, title string) error {
	if title == "" {
		title = "Atlas layout"
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(pageMargin, pageMargin)
	header := fmt.Sprintf("%s (%d x %d)", title, p.Height(), p.Width())
	pdf.CellFormat(pageWidth-2*pageMargin, headerHeight, header, "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(pageMargin, pageMargin+headerHeight)
	stats := fmt.Sprintf("Rectangles: %d | Occupied: %d of %d cells | Fill: %.1f%%",
		p.Len(), p.OccupiedArea(), p.Height()*p.Width(), p.Used()*100)
	pdf.CellFormat(pageWidth-2*pageMargin, 5, stats, "", 0, "L", false, 0, "")

	// Scale the canvas to fit the drawing area, centered horizontally.
	drawWidth := pageWidth - 2*pageMargin
	drawHeight := pageHeight - drawAreaTop - pageMargin
	scale := math.Min(drawWidth/float64(p.Width()), drawHeight/float64(p.Height()))
	canvasW := float64(p.Width()) * scale
	canvasH := float64(p.Height()) * scale
	offsetX := pageMargin + (drawWidth-canvasW)/2
	offsetY := drawAreaTop

	pdf.SetFillColor(250, 250, 250)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(offsetX, offsetY, canvasW, canvasH, "FD")

	rects := p.Rects()
	ids := make([]int, 0, len(rects))
	for id := range rects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		r := rects[id]
		col := rectColor(r.ID)
		px := offsetX + float64(r.X)*scale
		py := offsetY + float64(r.Y)*scale
		pw := float64(r.Width) * scale
		ph := float64(r.Height) * scale

		pdf.SetFillColor(int(col.R), int(col.G), int(col.B))
		pdf.SetDrawColor(30, 30, 30)
		pdf.SetLineWidth(0.2)
		pdf.Rect(px, py, pw, ph, "FD")

		if pw > 6 && ph > 4 {
			pdf.SetFont("Helvetica", "", labelFontSize(pw, ph))
			pdf.SetTextColor(0, 0, 0)
			label := strconv.Itoa(r.ID)
			labelW := pdf.GetStringWidth(label)
			if labelW < pw-1 {
				pdf.SetXY(px+(pw-labelW)/2, py+ph/2-2)
				pdf.CellFormat(labelW, 4, label, "", 0, "C", false, 0, "")
			}
		}
	}

	return pdf.Output(w)
}

// labelFontSize picks a font size that fits the rectangle.
func labelFontSize(w, h float64) float64 {
	switch minDim := math.Min(w, h); {
	case minDim > 40:
		return 9
	case minDim > 20:
		return 8
	case minDim > 10:
		return 7
	default:
		return 6
	}
}
