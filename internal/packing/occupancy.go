package packing

// OccupancyTable tracks how much of a fixed height × width canvas is covered
// by committed rectangles, stored as a 2D prefix-sum matrix: cell (r, c)
// holds the number of occupied unit cells inside the half-open region
// [0, r) × [0, c). Any rectangular range sum therefore costs four lookups.
//
// The matrix has (height+1) × (width+1) cells. Row 0 and column 0 are always
// zero, and values are monotonically non-decreasing along both axes.
type OccupancyTable struct {
	height int
	width  int
	cells  []int // row-major, stride width+1
}

// NewOccupancyTable returns an empty table for a height × width canvas.
// It fails with ErrInvalidDimension when either dimension is not positive.
func NewOccupancyTable(height, width int) (*OccupancyTable, error) {
	if height <= 0 || width <= 0 {
		return nil, ErrInvalidDimension
	}
	return &OccupancyTable{
		height: height,
		width:  width,
		cells:  make([]int, (height+1)*(width+1)),
	}, nil
}

// Height returns the canvas height the table covers.
func (t *OccupancyTable) Height() int { return t.height }

// Width returns the canvas width the table covers.
func (t *OccupancyTable) Width() int { return t.width }

func (t *OccupancyTable) at(r, c int) int {
	return t.cells[r*(t.width+1)+c]
}

// RangeSum returns the occupied area inside [y, y+height) × [x, x+width).
// The queried region may extend past the canvas in any direction; every cell
// outside the canvas counts as occupied and contributes its full area. A
// region with non-positive height or width sums to zero.
//
// The out-of-canvas margins are peeled off iteratively in a fixed order
// (top, left, bottom, right) and the clamped interior remainder is resolved
// with the prefix-sum identity. Margins contribute plain area products, so
// the result is exact only while those products fit in an int; the placement
// paths guarantee that by rejecting rectangles larger than the canvas before
// sampling.
func (t *OccupancyTable) RangeSum(y, x, height, width int) int {
	if height <= 0 || width <= 0 {
		return 0
	}

	outside := 0
	if y < 0 {
		m := min(-y, height)
		outside += m * width
		y += m
		height -= m
	}
	if x < 0 {
		m := min(-x, width)
		outside += m * height
		x += m
		width -= m
	}
	if over := y + height - t.height; over > 0 {
		m := min(over, height)
		outside += m * width
		height -= m
	}
	if over := x + width - t.width; over > 0 {
		m := min(over, width)
		outside += m * height
		width -= m
	}
	if height <= 0 || width <= 0 {
		return outside
	}

	return outside +
		t.at(y+height, x+width) -
		t.at(y, x+width) -
		t.at(y+height, x) +
		t.at(y, x)
}

// Commit marks the rectangle [y, y+height) × [x, x+width) as occupied by
// adding, to every prefix cell (r, c), the overlap area between the
// rectangle and [0, r) × [0, c). The caller must ensure the region is fully
// inside the canvas and overlap-free; the Packing engine enforces both.
//
// Cost is proportional to the full table size, which is the dominant cost of
// a placement.
func (t *OccupancyTable) Commit(y, x, height, width int) {
	stride := t.width + 1
	for r := y + 1; r <= t.height; r++ {
		rows := min(r-y, height)
		row := t.cells[r*stride : (r+1)*stride]
		for c := x + 1; c <= t.width; c++ {
			row[c] += rows * min(c-x, width)
		}
	}
}

// Total returns the occupied area of the whole canvas.
func (t *OccupancyTable) Total() int {
	return t.at(t.height, t.width)
}

// Snapshot returns a copy of the raw prefix-sum matrix, row-major with
// (height+1) rows of (width+1) cells. Intended for diagnostics and rendering.
func (t *OccupancyTable) Snapshot() [][]int {
	rows := make([][]int, t.height+1)
	stride := t.width + 1
	for r := range rows {
		rows[r] = make([]int, stride)
		copy(rows[r], t.cells[r*stride:(r+1)*stride])
	}
	return rows
}
