package world

import "fmt"

// Material binds a material id to its physical kind.
type Material struct {
	ID   string
	Kind Kind
}

// DefaultMaterials returns the built-in material table used by generated worlds and by
// hosts that do not supply their own catalog.
func DefaultMaterials() []Material {
	return []Material{
		{ID: "air", Kind: KindAir},
		{ID: "stone", Kind: KindSolid},
		{ID: "dirt", Kind: KindSolid},
		{ID: "grass_block", Kind: KindSolid},
		{ID: "sand", Kind: KindSolid},
		{ID: "gravel", Kind: KindSolid},
		{ID: "oak_log", Kind: KindSolid},
		{ID: "oak_planks", Kind: KindSolid},
		{ID: "cobblestone", Kind: KindSolid},
		{ID: "bedrock", Kind: KindSolid},
		{ID: "cactus", Kind: KindSolid},
		{ID: "magma_block", Kind: KindSolid},
		{ID: "water", Kind: KindLiquid},
		{ID: "lava", Kind: KindLiquid},
		{ID: "ladder", Kind: KindClimbable},
		{ID: "vine", Kind: KindClimbable},
		{ID: "scaffolding", Kind: KindClimbable},
		{ID: "fire", Kind: KindAir},
		{ID: "soul_fire", Kind: KindAir},
		{ID: "sweet_berry_bush", Kind: KindAir},
		{ID: "wither_rose", Kind: KindAir},
		{ID: "campfire", Kind: KindAir},
		{ID: "soul_campfire", Kind: KindAir},
		{ID: "powder_snow", Kind: KindAir},
	}
}

// DefaultHazards lists the materials avoided when hazard avoidance is enabled.
func DefaultHazards() []string {
	return []string{
		"lava",
		"fire",
		"soul_fire",
		"cactus",
		"sweet_berry_bush",
		"wither_rose",
		"magma_block",
		"campfire",
		"soul_campfire",
		"powder_snow",
	}
}

// Catalog resolves material ids to cells.
type Catalog struct {
	kinds map[string]Kind
}

// NewCatalog indexes the given materials. Duplicate ids are rejected.
func NewCatalog(materials []Material) (*Catalog, error) {
	kinds := make(map[string]Kind, len(materials))
	for i, m := range materials {
		id := normalizeMaterial(m.ID)
		if id == "" {
			return nil, fmt.Errorf("materials[%d].id must be set", i)
		}
		if _, dup := kinds[id]; dup {
			return nil, fmt.Errorf("materials[%d].id %q is duplicated", i, id)
		}
		kinds[id] = m.Kind
	}
	return &Catalog{kinds: kinds}, nil
}

// Cell returns the cell for a material id; unknown ids are treated as solid.
func (c *Catalog) Cell(material string) Cell {
	id := normalizeMaterial(material)
	if c == nil {
		return Cell{Kind: KindSolid, Material: id}
	}
	kind, ok := c.kinds[id]
	if !ok {
		kind = KindSolid
	}
	return Cell{Kind: kind, Material: id}
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.kinds)
}
