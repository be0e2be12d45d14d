package pathfinding

import "voxelnav/internal/world"

// MoveKind labels how a candidate move is performed.
type MoveKind uint8

const (
	MoveWalk MoveKind = iota
	MoveDiagonal
	MoveStepUp
	MoveFall
	MoveClimbUp
	MoveClimbDown
	MoveSwimUp
	MoveSwimDown
	MoveLeap
)

func (k MoveKind) String() string {
	switch k {
	case MoveWalk:
		return "walk"
	case MoveDiagonal:
		return "diagonal"
	case MoveStepUp:
		return "step-up"
	case MoveFall:
		return "fall"
	case MoveClimbUp:
		return "climb-up"
	case MoveClimbDown:
		return "climb-down"
	case MoveSwimUp:
		return "swim-up"
	case MoveSwimDown:
		return "swim-down"
	case MoveLeap:
		return "leap"
	default:
		return "unknown"
	}
}

// Move costs, relative to a single cardinal step.
const (
	CostWalk         = 1.0
	CostDiagonal     = 1.4
	CostStepUp       = 1.5
	CostFallBase     = 1.0
	CostFallPerBlock = 0.2
	CostClimbUp      = 1.2
	CostClimbDown    = 1.0
	CostSwimUp       = 1.5
	CostSwimDown     = 1.0
	CostLeap         = 2.5
)

const leapDistance = 2

// Move is a candidate transition out of a voxel.
type Move struct {
	Target world.Coord
	Cost   float64
	Kind   MoveKind
}

var cardinalOffsets = [...]struct{ dx, dz int }{
	{0, -1}, // north
	{0, 1},  // south
	{1, 0},  // east
	{-1, 0}, // west
}

var diagonalOffsets = [...]struct{ dx, dz int }{
	{1, -1},
	{-1, -1},
	{1, 1},
	{-1, 1},
}

// Moves appends every legal move out of from to dst and returns the extended slice. It
// only reads the field, so it is safe to call from any goroutine that owns the field.
func Moves(field world.Field, from world.Coord, opts Options, dst []Move) []Move {
	m := moveModel{field: field, opts: opts, minY: field.MinY()}

	for _, offset := range cardinalOffsets {
		target := from.Add(offset.dx, 0, offset.dz)
		if m.walkable(target) {
			dst = append(dst, Move{Target: target, Cost: CostWalk, Kind: MoveWalk})
		}

		up := target.Up(1)
		if m.flags(from.Down(1)).Solid() && m.walkable(up) {
			dst = append(dst, Move{Target: up, Cost: CostStepUp, Kind: MoveStepUp})
		}

		if fall, ok := m.nearestDrop(target); ok {
			dst = append(dst, Move{
				Target: target.Down(fall),
				Cost:   CostFallBase + CostFallPerBlock*float64(fall),
				Kind:   MoveFall,
			})
		}
	}

	for _, offset := range diagonalOffsets {
		target := from.Add(offset.dx, 0, offset.dz)
		if m.walkable(target) {
			dst = append(dst, Move{Target: target, Cost: CostDiagonal, Kind: MoveDiagonal})
		}
	}

	origin := m.flags(from)
	up, down := from.Up(1), from.Down(1)
	if origin.Climbable() || m.flags(up).Climbable() {
		if m.passable(up) && m.passable(up.Up(1)) && m.safe(up) {
			dst = append(dst, Move{Target: up, Cost: CostClimbUp, Kind: MoveClimbUp})
		}
	}
	if m.flags(down).Climbable() || (origin.Climbable() && m.walkable(down)) {
		if m.passable(down) && m.safe(down) {
			dst = append(dst, Move{Target: down, Cost: CostClimbDown, Kind: MoveClimbDown})
		}
	}

	if opts.AllowSwimming && origin.Liquid() {
		above := m.flags(up)
		if (above.Liquid() || !above.Solid()) && m.safe(up) {
			dst = append(dst, Move{Target: up, Cost: CostSwimUp, Kind: MoveSwimUp})
		}
		if m.flags(down).Liquid() && m.safe(down) {
			dst = append(dst, Move{Target: down, Cost: CostSwimDown, Kind: MoveSwimDown})
		}
	}

	if opts.AllowLeaps {
		for _, offset := range cardinalOffsets {
			gap := from.Add(offset.dx, 0, offset.dz)
			landing := from.Add(offset.dx*leapDistance, 0, offset.dz*leapDistance)
			if m.flags(gap).Solid() || m.flags(gap.Up(1)).Solid() {
				continue
			}
			if m.walkable(landing) {
				dst = append(dst, Move{Target: landing, Cost: CostLeap, Kind: MoveLeap})
			}
		}
	}

	return dst
}

type moveModel struct {
	field world.Field
	opts  Options
	minY  int
}

func (m moveModel) flags(c world.Coord) world.Flags {
	return m.field.Flags(c)
}

// passable reports whether a body can occupy the voxel.
func (m moveModel) passable(c world.Coord) bool {
	f := m.flags(c)
	return !f.Solid() || f.Climbable()
}

func (m moveModel) supports(c world.Coord) bool {
	f := m.flags(c)
	return f.Solid() || f.Liquid() || f.Climbable()
}

// safe rejects voxels that touch the hazard set when hazard avoidance is on.
func (m moveModel) safe(c world.Coord) bool {
	if !m.opts.AvoidHazards {
		return true
	}
	return !m.flags(c).Hazard() && !m.flags(c.Up(1)).Hazard() && !m.flags(c.Down(1)).Hazard()
}

// walkable reports whether the avatar can stand with its feet in c.
func (m moveModel) walkable(c world.Coord) bool {
	if !m.safe(c) {
		return false
	}
	if !m.passable(c) || !m.passable(c.Up(1)) {
		return false
	}
	return c.Y <= m.minY || m.supports(c.Down(1))
}

// nearestDrop probes below a cardinal neighbour for the shallowest landing whose fall
// column is clear.
func (m moveModel) nearestDrop(target world.Coord) (int, bool) {
	if !m.passable(target) || !m.passable(target.Up(1)) {
		return 0, false
	}
	for fall := 1; fall <= m.opts.MaxDropHeight; fall++ {
		landing := target.Down(fall)
		if m.flags(landing).Solid() && !m.flags(landing).Climbable() {
			return 0, false
		}
		if m.walkable(landing) {
			return fall, true
		}
	}
	return 0, false
}
