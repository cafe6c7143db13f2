package packing

import "slices"

// DefaultContactDepth is the depth of the four strips sampled around a
// candidate rectangle when scoring how much it would touch the canvas border
// and the rectangles already placed.
const DefaultContactDepth = 3

// Rect is a placed rectangle: top-left corner (Y, X) with the half-open
// extent [Y, Y+Height) × [X, X+Width).
type Rect struct {
	ID     int `json:"id"`
	Y      int `json:"y"`
	X      int `json:"x"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Area returns the number of unit cells the rectangle covers.
func (r Rect) Area() int { return r.Height * r.Width }

// Option configures a Packing instance at construction time.
type Option func(*Packing)

// WithContactDepth overrides the contact-strip depth used for scoring.
// Non-positive values leave the default in place.
func WithContactDepth(depth int) Option {
	return func(p *Packing) {
		if depth > 0 {
			p.contactDepth = depth
		}
	}
}

// Packing greedily packs axis-aligned rectangles onto a fixed-size canvas.
// Each rectangle is placed at the free position that maximizes contact with
// the canvas border and the rectangles already present, which keeps the
// layout compact without ever moving a committed rectangle.
//
// A Packing instance owns its occupancy table and rectangle set outright and
// performs no internal locking; callers that share an instance across
// goroutines must serialize access themselves.
type Packing struct {
	height       int
	width        int
	contactDepth int
	table        *OccupancyTable
	rects        map[int]Rect
}

// New constructs an empty canvas of the given dimensions. It fails with
// ErrInvalidDimension when either dimension is not positive.
func New(height, width int, opts ...Option) (*Packing, error) {
	table, err := NewOccupancyTable(height, width)
	if err != nil {
		return nil, err
	}
	p := &Packing{
		height:       height,
		width:        width,
		contactDepth: DefaultContactDepth,
		table:        table,
		rects:        make(map[int]Rect),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Height returns the canvas height.
func (p *Packing) Height() int { return p.height }

// Width returns the canvas width.
func (p *Packing) Width() int { return p.width }

// ContactDepth returns the strip depth used when scoring candidates.
func (p *Packing) ContactDepth() int { return p.contactDepth }

// Len returns the number of placed rectangles.
func (p *Packing) Len() int { return len(p.rects) }

// Rect returns the placed rectangle with the given id.
func (p *Packing) Rect(id int) (Rect, bool) {
	r, ok := p.rects[id]
	return r, ok
}

// Rects returns a copy of the placed rectangles keyed by id.
func (p *Packing) Rects() map[int]Rect {
	out := make(map[int]Rect, len(p.rects))
	for id, r := range p.rects {
		out[id] = r
	}
	return out
}

// OccupiedArea returns the total area covered by placed rectangles.
func (p *Packing) OccupiedArea() int { return p.table.Total() }

// Used returns the fraction of the canvas that is covered, between 0 and 1.
func (p *Packing) Used() float64 {
	return float64(p.table.Total()) / float64(p.height*p.width)
}

// Occupancy returns a copy of the raw prefix-sum table for diagnostics.
func (p *Packing) Occupancy() [][]int { return p.table.Snapshot() }

// TryPlace attempts to place a height × width rectangle with its top-left
// corner at (y, x). It returns false without mutating anything when the
// target region leaves the canvas or overlaps existing content. It fails
// with ErrInvalidDimension for non-positive rectangle dimensions and with
// ErrDuplicateID when the id is already placed.
func (p *Packing) TryPlace(id, y, x, height, width int) (bool, error) {
	if height < 1 || width < 1 {
		return false, ErrInvalidDimension
	}
	if _, ok := p.rects[id]; ok {
		return false, ErrDuplicateID
	}
	// RangeSum's margin peel is exact only for regions that fit on the
	// canvas, so out-of-canvas targets are rejected before sampling. With
	// y and x non-negative the remaining comparisons cannot overflow.
	if y < 0 || x < 0 || height > p.height-y || width > p.width-x {
		return false, nil
	}
	if p.table.RangeSum(y, x, height, width) != 0 {
		return false, nil
	}
	p.table.Commit(y, x, height, width)
	p.rects[id] = Rect{ID: id, Y: y, X: x, Height: height, Width: width}
	return true, nil
}

// PlaceBest places a height × width rectangle at the candidate position with
// the highest contact score, committing it via TryPlace. Candidates are
// visited in ascending (y, x) order and only a strictly higher score
// displaces the current best, so ties resolve to the smallest position. A
// rectangle taller or wider than the canvas can never fit and is rejected
// outright. When no candidate scores above zero the call returns false
// without mutation, except on an empty canvas where the origin serves as the
// one implicit candidate (the border loops generate no positions for a
// rectangle that fills the canvas exactly).
func (p *Packing) PlaceBest(id, height, width int) (bool, error) {
	if height < 1 || width < 1 {
		return false, ErrInvalidDimension
	}
	if _, ok := p.rects[id]; ok {
		return false, ErrDuplicateID
	}
	if height > p.height || width > p.width {
		return false, nil
	}

	var best point
	bestScore := 0
	for _, pt := range p.candidates(height, width) {
		if s := p.score(pt.y, pt.x, height, width); s > bestScore {
			best, bestScore = pt, s
		}
	}
	if bestScore == 0 && len(p.rects) > 0 {
		return false, nil
	}
	return p.TryPlace(id, best.y, best.x, height, width)
}

type point struct {
	y, x int
}

// candidates returns every position worth scoring for a height × width
// rectangle: positions flush against the canvas border plus positions flush
// against any edge of an already placed rectangle, deduplicated, filtered to
// those whose full extent fits on the canvas, and sorted in ascending (y, x)
// order for a deterministic scan. Both border loops are half-open, so the
// bottom-right border corner only ever appears through rectangle adjacency.
func (p *Packing) candidates(height, width int) []point {
	seen := make(map[point]struct{})

	for y := 0; y < p.height-height; y++ {
		seen[point{y, 0}] = struct{}{}
		seen[point{y, p.width - width}] = struct{}{}
	}
	for x := 0; x < p.width-width; x++ {
		seen[point{0, x}] = struct{}{}
		seen[point{p.height - height, x}] = struct{}{}
	}

	for _, r := range p.rects {
		for y := r.Y - height; y < r.Y+r.Height+height; y++ {
			seen[point{y, r.X - width}] = struct{}{}
			seen[point{y, r.X + r.Width}] = struct{}{}
		}
		for x := r.X - width; x < r.X+r.Width+width; x++ {
			seen[point{r.Y - height, x}] = struct{}{}
			seen[point{r.Y + r.Height, x}] = struct{}{}
		}
	}

	pts := make([]point, 0, len(seen))
	for pt := range seen {
		if pt.y >= 0 && pt.x >= 0 && pt.y+height <= p.height && pt.x+width <= p.width {
			pts = append(pts, pt)
		}
	}
	slices.SortFunc(pts, func(a, b point) int {
		if a.y != b.y {
			return a.y - b.y
		}
		return a.x - b.x
	})
	return pts
}

// score rates a candidate position by the occupied area found in four strips
// of contactDepth cells hugging the rectangle's sides. Strips reaching past
// the canvas count the exterior as occupied, so border-hugging placements
// score high. A candidate whose own region is not completely free scores 0.
func (p *Packing) score(y, x, height, width int) int {
	if p.table.RangeSum(y, x, height, width) != 0 {
		return 0
	}
	d := p.contactDepth
	above := p.table.RangeSum(y-d, x, d, width)
	below := p.table.RangeSum(y+height, x, d, width)
	left := p.table.RangeSum(y, x-d, height, d)
	right := p.table.RangeSum(y, x+width, height, d)
	return above + below + left + right
}
