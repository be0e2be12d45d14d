package world

import "sync"

type columnKey struct {
	X int
	Z int
}

// Grid is a mutable in-memory terrain stored as vertical columns. Cells that were never
// written are air. It is safe for concurrent use.
type Grid struct {
	mu      sync.RWMutex
	minY    int
	columns map[columnKey][]Cell
}

// NewGrid creates an empty grid whose lowest layer is minY.
func NewGrid(minY int) *Grid {
	return &Grid{
		minY:    minY,
		columns: make(map[columnKey][]Cell),
	}
}

func (g *Grid) MinY() int {
	return g.minY
}

func (g *Grid) Cell(c Coord) Cell {
	idx := c.Y - g.minY
	if idx < 0 {
		return Cell{Kind: KindAir}
	}
	g.mu.RLock()
	column := g.columns[columnKey{X: c.X, Z: c.Z}]
	var cell Cell
	if idx < len(column) {
		cell = column[idx]
	}
	g.mu.RUnlock()
	if cell.Kind == "" {
		cell.Kind = KindAir
	}
	return cell
}

// Set writes a cell. Writes below MinY are ignored.
func (g *Grid) Set(c Coord, cell Cell) bool {
	idx := c.Y - g.minY
	if idx < 0 {
		return false
	}
	key := columnKey{X: c.X, Z: c.Z}
	g.mu.Lock()
	defer g.mu.Unlock()
	column := g.columns[key]
	if idx >= len(column) {
		if cellIsAir(cell) {
			return true
		}
		grown := make([]Cell, idx+1)
		copy(grown, column)
		column = grown
	}
	column[idx] = cell
	column = trimColumn(column)
	if len(column) == 0 {
		delete(g.columns, key)
		return true
	}
	g.columns[key] = column
	return true
}

// SetColumn replaces the column at (x, z); cells[0] lands on MinY.
func (g *Grid) SetColumn(x, z int, cells []Cell) {
	column := trimColumn(append([]Cell(nil), cells...))
	key := columnKey{X: x, Z: z}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(column) == 0 {
		delete(g.columns, key)
		return
	}
	g.columns[key] = column
}

// Fill writes the same cell into every voxel of the box.
func (g *Grid) Fill(b Bounds, cell Cell) {
	for x := b.Min.X; x <= b.Max.X; x++ {
		for z := b.Min.Z; z <= b.Max.Z; z++ {
			for y := b.Min.Y; y <= b.Max.Y; y++ {
				g.Set(Coord{X: x, Y: y, Z: z}, cell)
			}
		}
	}
}

// SurfaceY returns the highest non-air layer of a column, or MinY-1 if it is empty.
func (g *Grid) SurfaceY(x, z int) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	column := g.columns[columnKey{X: x, Z: z}]
	return g.minY + len(column) - 1
}

func cellIsAir(c Cell) bool {
	return c.Kind == "" || c.Kind == KindAir && c.Material == ""
}

func trimColumn(column []Cell) []Cell {
	end := len(column)
	for end > 0 && cellIsAir(column[end-1]) {
		end--
	}
	return column[:end]
}
