package world

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// MaxWindowVolume is the largest window, in voxels, that Capture will copy.
const MaxWindowVolume = 1 << 26

var ErrWindowTooLarge = errors.New("snapshot window too large")

// Snapshot is an immutable copy of the classification of a bounded terrain window. It is
// captured on the simulation thread and handed to background searches so they never read
// live terrain. Voxels outside the window read as air, which leaves them unsupported and
// therefore unwalkable, confining searches to the window.
type Snapshot struct {
	bounds Bounds
	minY   int
	width  int
	height int
	flags  []Flags
}

// Capture classifies every voxel of the window. It returns ctx.Err() if cancelled part
// way through.
func Capture(ctx context.Context, terrain Terrain, hazards HazardSet, bounds Bounds) (*Snapshot, error) {
	w, h, d := bounds.Size()
	if w > 0 && h > 0 && d > 0 && float64(w)*float64(h)*float64(d) > MaxWindowVolume {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrWindowTooLarge, w, h, d)
	}
	snap := &Snapshot{
		bounds: bounds,
		minY:   terrain.MinY(),
		width:  w,
		height: h,
	}
	if bounds.Volume() == 0 {
		return snap, nil
	}
	snap.flags = make([]Flags, w*h*d)
	for z := 0; z < d; z++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				c := Coord{X: bounds.Min.X + x, Y: bounds.Min.Y + y, Z: bounds.Min.Z + z}
				snap.flags[snap.index(x, y, z)] = hazards.Classify(terrain.Cell(c))
			}
		}
	}
	return snap, nil
}

func (s *Snapshot) index(x, y, z int) int {
	return (z*s.width+x)*s.height + y
}

func (s *Snapshot) Bounds() Bounds {
	return s.bounds
}

func (s *Snapshot) MinY() int {
	return s.minY
}

func (s *Snapshot) Flags(c Coord) Flags {
	if !s.bounds.Contains(c) || len(s.flags) == 0 {
		return 0
	}
	return s.flags[s.index(c.X-s.bounds.Min.X, c.Y-s.bounds.Min.Y, c.Z-s.bounds.Min.Z)]
}

// ClampVolume shrinks b to at most maxVolume voxels. The result still contains anchor,
// which must lie inside b, and reaches toward toward as far as the limit allows. A
// non-positive maxVolume leaves b unchanged.
func ClampVolume(b Bounds, anchor, toward Coord, maxVolume int) Bounds {
	if maxVolume <= 0 {
		return b
	}
	w, h, d := b.Size()
	if float64(w)*float64(h)*float64(d) <= float64(maxVolume) {
		return b
	}
	h = min(h, maxVolume)
	b.Min.Y, b.Max.Y = clampSpan(b.Min.Y, b.Max.Y, anchor.Y, toward.Y, h)

	area := maxVolume / h
	side := max(int(math.Sqrt(float64(area))), 1)
	switch {
	case w <= side:
		d = min(d, area/w)
	case d <= side:
		w = min(w, area/d)
	default:
		w, d = side, side
	}
	b.Min.X, b.Max.X = clampSpan(b.Min.X, b.Max.X, anchor.X, toward.X, w)
	b.Min.Z, b.Max.Z = clampSpan(b.Min.Z, b.Max.Z, anchor.Z, toward.Z, d)
	return b
}

// clampSpan picks n consecutive values inside [lo, hi] that include anchor, centred
// between anchor and toward where the range allows.
func clampSpan(lo, hi, anchor, toward, n int) (int, int) {
	if hi-lo+1 <= n {
		return lo, hi
	}
	start := anchor + (toward-anchor)/2 - n/2
	start = min(start, anchor)
	start = max(start, anchor-n+1, lo)
	start = min(start, hi-n+1)
	return start, start + n - 1
}
