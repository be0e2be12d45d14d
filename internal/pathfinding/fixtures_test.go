package pathfinding

import (
	"testing"

	"voxelnav/internal/world"
)

var (
	airCell = world.Cell{Kind: world.KindAir}
	stone   = world.Cell{Kind: world.KindSolid, Material: "stone"}
	water   = world.Cell{Kind: world.KindLiquid, Material: "water"}
	lava    = world.Cell{Kind: world.KindLiquid, Material: "lava"}
	ladder  = world.Cell{Kind: world.KindClimbable, Material: "ladder"}
	magma   = world.Cell{Kind: world.KindSolid, Material: "magma_block"}
	fire    = world.Cell{Kind: world.KindAir, Material: "fire"}
)

func newTestGrid(t *testing.T) *world.Grid {
	t.Helper()
	return world.NewGrid(0)
}

func testField(grid *world.Grid) world.Field {
	return world.Live(grid, world.NewHazardSet(world.DefaultHazards()...))
}

// addFloor places a solid slab at height y over the inclusive x/z range.
func addFloor(grid *world.Grid, y, minX, maxX, minZ, maxZ int) {
	grid.Fill(world.Bounds{
		Min: world.Coord{X: minX, Y: y, Z: minZ},
		Max: world.Coord{X: maxX, Y: y, Z: maxZ},
	}, stone)
}

func coord(x, y, z int) world.Coord {
	return world.Coord{X: x, Y: y, Z: z}
}

func findMove(moves []Move, target world.Coord) (Move, bool) {
	for _, m := range moves {
		if m.Target == target {
			return m, true
		}
	}
	return Move{}, false
}

func findMoveOfKind(moves []Move, target world.Coord, kind MoveKind) (Move, bool) {
	for _, m := range moves {
		if m.Target == target && m.Kind == kind {
			return m, true
		}
	}
	return Move{}, false
}

func permissiveOptions() Options {
	opts := DefaultOptions()
	opts.AvoidHazards = false
	opts.AllowLeaps = true
	return opts
}

func boundsOf(a, b world.Coord) world.Bounds {
	return world.Bounds{Min: a, Max: b}
}
