package pathfinding

import "voxelnav/internal/world"

// Path is an immutable ordered waypoint sequence. The zero value is an empty path.
type Path struct {
	waypoints []world.Coord
}

// NewPath copies the given waypoints into a new path.
func NewPath(waypoints []world.Coord) Path {
	if len(waypoints) == 0 {
		return Path{}
	}
	return Path{waypoints: append([]world.Coord(nil), waypoints...)}
}

func (p Path) Len() int {
	return len(p.waypoints)
}

func (p Path) Empty() bool {
	return len(p.waypoints) == 0
}

// At returns the i-th waypoint.
func (p Path) At(i int) world.Coord {
	return p.waypoints[i]
}

// Last returns the final waypoint; ok is false for an empty path.
func (p Path) Last() (world.Coord, bool) {
	if len(p.waypoints) == 0 {
		return world.Coord{}, false
	}
	return p.waypoints[len(p.waypoints)-1], true
}

// Waypoints returns a copy of the sequence.
func (p Path) Waypoints() []world.Coord {
	return append([]world.Coord(nil), p.waypoints...)
}
