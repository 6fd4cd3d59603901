package main

// EntityKind tags grid entries
type EntityKind byte

const (
	KindPlayer EntityKind = 'p'
	KindMob    EntityKind = 'm'
)

// EntityRef identifies an entity in the grid
type EntityRef struct {
	Kind EntityKind
	ID   string
}

// SpatialGrid is a uniform grid for broad-phase queries over the centered
// world square [-half, half]. It is rebuilt each tick before the
// projectile phase; queries return candidates only, so cell iteration
// order never decides an outcome: callers pick by distance and id.
type SpatialGrid struct {
	half     float64
	cellSize float64
	cols     int
	cells    [][]EntityRef
}

// NewSpatialGrid sizes a grid for the given world half-size
func NewSpatialGrid(half, cellSize float64) *SpatialGrid {
	cols := int(2*half/cellSize) + 1
	if cols < 1 {
		cols = 1
	}
	return &SpatialGrid{
		half:     half,
		cellSize: cellSize,
		cols:     cols,
		cells:    make([][]EntityRef, cols*cols),
	}
}

// Clear resets all cells, keeping allocated capacity
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *SpatialGrid) cellAt(v float64) int {
	c := int((v + g.half) / g.cellSize)
	if c < 0 {
		c = 0
	} else if c >= g.cols {
		c = g.cols - 1
	}
	return c
}

// Insert registers an entity in every cell its bounding box overlaps
func (g *SpatialGrid) Insert(x, y, radius float64, ref EntityRef) {
	minCX := g.cellAt(x - radius)
	maxCX := g.cellAt(x + radius)
	minCY := g.cellAt(y - radius)
	maxCY := g.cellAt(y + radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			g.cells[idx] = append(g.cells[idx], ref)
		}
	}
}

// Query appends every ref in cells overlapping the bounding box to buf and
// returns the extended slice, avoiding per-call allocation
func (g *SpatialGrid) Query(x, y, radius float64, buf []EntityRef) []EntityRef {
	minCX := g.cellAt(x - radius)
	maxCX := g.cellAt(x + radius)
	minCY := g.cellAt(y - radius)
	maxCY := g.cellAt(y + radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			idx := cy*g.cols + cx
			buf = append(buf, g.cells[idx]...)
		}
	}
	return buf
}
