package world

import (
	"sort"
	"strings"
)

// Kind is the coarse physical class of a voxel.
type Kind string

const (
	KindAir       Kind = "air"
	KindSolid     Kind = "solid"
	KindLiquid    Kind = "liquid"
	KindClimbable Kind = "climbable"
)

// ParseKind maps a textual kind label to a Kind.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindAir, "":
		return KindAir, true
	case KindSolid:
		return KindSolid, true
	case KindLiquid:
		return KindLiquid, true
	case KindClimbable:
		return KindClimbable, true
	default:
		return KindAir, false
	}
}

// Cell is what the host's terrain adapter reports for one voxel.
type Cell struct {
	Kind     Kind
	Material string
}

// Terrain is the host-side terrain query adapter. Implementations may be mutated by the
// simulation thread while being read; searches therefore run on a Snapshot.
type Terrain interface {
	Cell(c Coord) Cell
	// MinY is the lowest addressable layer; voxels at or below it count as support.
	MinY() int
}

// Flags is the compact per-voxel classification consumed by the move model.
type Flags uint8

const (
	FlagSolid Flags = 1 << iota
	FlagLiquid
	FlagClimbable
	FlagHazard
)

func (f Flags) Solid() bool     { return f&FlagSolid != 0 }
func (f Flags) Liquid() bool    { return f&FlagLiquid != 0 }
func (f Flags) Climbable() bool { return f&FlagClimbable != 0 }
func (f Flags) Hazard() bool    { return f&FlagHazard != 0 }

// Field answers classification queries for pathfinding.
type Field interface {
	Flags(c Coord) Flags
	MinY() int
}

// HazardSet is the configurable set of materials treated as unsafe.
type HazardSet map[string]struct{}

// NewHazardSet builds a hazard set from material ids.
func NewHazardSet(materials ...string) HazardSet {
	set := make(HazardSet, len(materials))
	for _, m := range materials {
		m = normalizeMaterial(m)
		if m == "" {
			continue
		}
		set[m] = struct{}{}
	}
	return set
}

func (h HazardSet) Contains(material string) bool {
	if len(h) == 0 {
		return false
	}
	_, ok := h[normalizeMaterial(material)]
	return ok
}

// Materials returns the members in sorted order.
func (h HazardSet) Materials() []string {
	out := make([]string, 0, len(h))
	for m := range h {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Classify converts an adapter cell into move-model flags.
func (h HazardSet) Classify(cell Cell) Flags {
	var f Flags
	switch cell.Kind {
	case KindSolid:
		f |= FlagSolid
	case KindLiquid:
		f |= FlagLiquid
	case KindClimbable:
		f |= FlagClimbable
	}
	if h.Contains(cell.Material) {
		f |= FlagHazard
	}
	return f
}

// Live classifies cells straight from a terrain adapter without copying. Reads race
// with any concurrent terrain mutation, so it is only safe on the thread that owns the
// terrain.
func Live(terrain Terrain, hazards HazardSet) Field {
	return liveField{terrain: terrain, hazards: hazards}
}

type liveField struct {
	terrain Terrain
	hazards HazardSet
}

func (l liveField) Flags(c Coord) Flags {
	return l.hazards.Classify(l.terrain.Cell(c))
}

func (l liveField) MinY() int {
	return l.terrain.MinY()
}

func normalizeMaterial(m string) string {
	return strings.ToLower(strings.TrimSpace(m))
}
