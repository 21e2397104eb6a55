package physics

import "math"

// SpatialGrid is a uniform grid over a wrapping world. Items are inserted by
// position and index, then found by radius queries that only visit the cells
// the query circle can touch.
type SpatialGrid struct {
	cellSize    float64
	invCellSize float64 // 1 / cellSize
	cols        int
	rows        int
	cells       []gridCell
}

// gridCell stores the indices of items that fall within a grid cell.
// The slice is reused between frames (reset to [:0]) to avoid allocations.
type gridCell struct {
	items []int
}

// NewSpatialGrid creates a grid covering a worldW by worldH world.
func NewSpatialGrid(worldW, worldH, cellSize float64) *SpatialGrid {
	cols := int(math.Ceil(worldW / cellSize))
	rows := int(math.Ceil(worldH / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	return &SpatialGrid{
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       make([]gridCell, cols*rows),
	}
}

// Clear removes all items from the grid without deallocating cell memory.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i].items = g.cells[i].items[:0]
	}
}

// Insert adds an item (identified by index) at the given world position.
func (g *SpatialGrid) Insert(x, y float64, index int) {
	col, row := g.posToCell(x, y)
	idx := row*g.cols + col
	g.cells[idx].items = append(g.cells[idx].items, index)
}

// QueryRadius calls fn for each item index in every cell that a circle of
// radius r around (x, y) overlaps, wrapping at world edges. Items are
// candidates only; callers still check the exact distance. Each cell is
// visited once even when the circle is wider than the world. If fn returns
// true, iteration stops.
func (g *SpatialGrid) QueryRadius(x, y, r float64, fn func(index int) bool) {
	col, row := g.posToCell(x, y)
	span := max(1, int(math.Ceil(r*g.invCellSize)))

	colSpan, rowSpan := span, span
	if 2*span+1 >= g.cols {
		colSpan = -1
	}
	if 2*span+1 >= g.rows {
		rowSpan = -1
	}

	for _, rr := range g.axis(row, rowSpan, g.rows) {
		rowOffset := rr * g.cols
		for _, c := range g.axis(col, colSpan, g.cols) {
			for _, itemIdx := range g.cells[rowOffset+c].items {
				if fn(itemIdx) {
					return
				}
			}
		}
	}
}

// axis lists the wrapped cell coordinates within span of center. A negative
// span means the whole axis.
func (g *SpatialGrid) axis(center, span, n int) []int {
	if span < 0 {
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := make([]int, 0, 2*span+1)
	for d := -span; d <= span; d++ {
		v := center + d
		if v < 0 {
			v += n
		} else if v >= n {
			v -= n
		}
		out = append(out, v)
	}
	return out
}

// posToCell converts world coordinates to grid cell coordinates.
// Clamps to valid range to handle edge cases with floating point.
func (g *SpatialGrid) posToCell(x, y float64) (col, row int) {
	col = int(x * g.invCellSize)
	if col < 0 {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}

	row = int(y * g.invCellSize)
	if row < 0 {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}

	return col, row
}
