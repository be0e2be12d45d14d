package world

import (
	"fmt"
	"math"
)

// Coord addresses a single voxel in global block space. Y is the vertical axis.
type Coord struct {
	X int
	Y int
	Z int
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

func (c Coord) Add(dx, dy, dz int) Coord {
	return Coord{X: c.X + dx, Y: c.Y + dy, Z: c.Z + dz}
}

func (c Coord) Up(n int) Coord {
	return Coord{X: c.X, Y: c.Y + n, Z: c.Z}
}

func (c Coord) Down(n int) Coord {
	return Coord{X: c.X, Y: c.Y - n, Z: c.Z}
}

// Manhattan returns the L1 distance between two coordinates.
func (c Coord) Manhattan(o Coord) int {
	return abs(c.X-o.X) + abs(c.Y-o.Y) + abs(c.Z-o.Z)
}

// Distance returns the straight-line distance between two coordinates.
func (c Coord) Distance(o Coord) float64 {
	dx := float64(c.X - o.X)
	dy := float64(c.Y - o.Y)
	dz := float64(c.Z - o.Z)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// HorizontalDistance ignores the vertical component.
func (c Coord) HorizontalDistance(o Coord) float64 {
	dx := float64(c.X - o.X)
	dz := float64(c.Z - o.Z)
	return math.Sqrt(dx*dx + dz*dz)
}

// Vec3 is a continuous position in block units, as reported by the avatar.
type Vec3 struct {
	X float64
	Y float64
	Z float64
}

// Block returns the voxel containing the position.
func (v Vec3) Block() Coord {
	return Coord{
		X: int(math.Floor(v.X)),
		Y: int(math.Floor(v.Y)),
		Z: int(math.Floor(v.Z)),
	}
}

// Center returns the position an avatar stands at when centred on the voxel's floor.
func (c Coord) Center() Vec3 {
	return Vec3{X: float64(c.X) + 0.5, Y: float64(c.Y), Z: float64(c.Z) + 0.5}
}

// Bounds is an axis-aligned box with inclusive corners.
type Bounds struct {
	Min Coord
	Max Coord
}

// BoundsAround returns the smallest box containing both points, grown by the given
// horizontal and vertical margins.
func BoundsAround(a, b Coord, margin, verticalMargin int) Bounds {
	return Bounds{
		Min: Coord{X: min(a.X, b.X) - margin, Y: min(a.Y, b.Y) - verticalMargin, Z: min(a.Z, b.Z) - margin},
		Max: Coord{X: max(a.X, b.X) + margin, Y: max(a.Y, b.Y) + verticalMargin, Z: max(a.Z, b.Z) + margin},
	}
}

func (b Bounds) Contains(c Coord) bool {
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() (int, int, int) {
	return b.Max.X - b.Min.X + 1, b.Max.Y - b.Min.Y + 1, b.Max.Z - b.Min.Z + 1
}

// Volume returns the number of voxels in the box, or zero for an inverted box.
func (b Bounds) Volume() int {
	w, h, d := b.Size()
	if w <= 0 || h <= 0 || d <= 0 {
		return 0
	}
	return w * h * d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
