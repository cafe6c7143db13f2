// Package render turns a packed canvas into inspectable artifacts: an id
// grid, ASCII art, a PNG raster, and a PDF layout sheet.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/eugenenazirov/atlas-packer/internal/packing"
)

// MaxScale caps the raster upscaling factor.
const MaxScale = 16

// palette mirrors the color scheme of the PDF layout sheet.
var palette = []color.RGBA{
	{R: 76, G: 175, B: 80, A: 255},  // green
	{R: 33, G: 150, B: 243, A: 255}, // blue
	{R: 255, G: 152, B: 0, A: 255},  // orange
	{R: 156, G: 39, B: 176, A: 255}, // purple
	{R: 0, G: 188, B: 212, A: 255},  // cyan
	{R: 244, G: 67, B: 54, A: 255},  // red
	{R: 255, G: 235, B: 59, A: 255}, // yellow
	{R: 121, G: 85, B: 72, A: 255},  // brown
}

// background is the color of unoccupied cells.
var background = color.RGBA{R: 38, G: 38, B: 38, A: 255}

func rectColor(id int) color.RGBA {
	n := len(palette)
	return palette[((id-1)%n+n)%n]
}

// Grid returns the canvas as a matrix of rectangle ids, zero for empty cells.
func Grid(p *packing.Packing) [][]int {
	grid := make([][]int, p.Height())
	for y := range grid {
		grid[y] = make([]int, p.Width())
	}
	for _, r := range p.Rects() {
		for y := r.Y; y < r.Y+r.Height; y++ {
			for x := r.X; x < r.X+r.Width; x++ {
				grid[y][x] = r.ID
			}
		}
	}
	return grid
}

// Text renders the canvas as ASCII art, one letter per rectangle, for quick
// terminal inspection.
func Text(p *packing.Packing) string {
	var b strings.Builder
	b.Grow((p.Width() + 1) * p.Height())
	for _, row := range Grid(p) {
		for _, id := range row {
			switch {
			case id == 0:
				b.WriteByte('.')
			case id > 0:
				b.WriteByte(byte('A' + (id-1)%26))
			default:
				b.WriteByte('#')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// ImageOption adjusts raster rendering.
type ImageOption func(*imageOptions)

type imageOptions struct {
	scale  int
	labels bool
}

// WithScale upscales the raster by the given factor, clamped to [1, MaxScale].
func WithScale(scale int) ImageOption {
	return func(o *imageOptions) { o.scale = scale }
}

// WithLabels draws the rectangle id over each placement large enough to
// hold it.
func WithLabels() ImageOption {
	return func(o *imageOptions) { o.labels = true }
}

// Image renders the canvas as an RGBA raster, one pixel per cell before
// scaling.
func Image(p *packing.Packing, opts ...ImageOption) *image.RGBA {
	options := imageOptions{scale: 1}
	for _, opt := range opts {
		opt(&options)
	}
	if options.scale < 1 {
		options.scale = 1
	}
	if options.scale > MaxScale {
		options.scale = MaxScale
	}

	base := image.NewRGBA(image.Rect(0, 0, p.Width(), p.Height()))
	draw.Draw(base, base.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	rects := p.Rects()
	for _, r := range rects {
		cell := image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
		draw.Draw(base, cell, image.NewUniform(rectColor(r.ID)), image.Point{}, draw.Src)
	}

	out := base
	if options.scale > 1 {
		out = image.NewRGBA(image.Rect(0, 0, p.Width()*options.scale, p.Height()*options.scale))
		xdraw.NearestNeighbor.Scale(out, out.Bounds(), base, base.Bounds(), xdraw.Src, nil)
	}
	if options.labels {
		drawLabels(out, rects, options.scale)
	}
	return out
}

// drawLabels writes each rectangle's id at its center, skipping rectangles
// too small to hold the text.
func drawLabels(dst *image.RGBA, rects map[int]packing.Rect, scale int) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil()

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	for _, r := range rects {
		label := strconv.Itoa(r.ID)
		textWidth := font.MeasureString(face, label).Ceil()
		rw, rh := r.Width*scale, r.Height*scale
		if textWidth+2 > rw || lineHeight+2 > rh {
			continue
		}
		x := r.X*scale + (rw-textWidth)/2
		y := r.Y*scale + (rh-lineHeight)/2 + ascent
		drawer.Dot = fixed.P(x, y)
		drawer.DrawString(label)
	}
}

// PNG renders the canvas and encodes it as a PNG stream.
func PNG(w io.Writer, p *packing.Packing, opts ...ImageOption) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, Image(p, opts...))
}
