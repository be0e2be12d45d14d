// Package terrain generates repeatable voxel worlds for the navigation simulator.
package terrain

import (
	"context"
	"errors"
	"log"
	"runtime"
	"sync"

	"voxelnav/internal/world"
)

const (
	bedrockY = 0
	maxLift  = 40
	treeSalt = 0x7ee
	// hazardSalt picks the surface hazard, decorSalt decides whether one is placed.
	hazardSalt = 0x4a2
	decorSalt  = 0xdec
	trunkTall  = 4
)

// surfaceHazards are placed on dry land; ids must exist in the catalog.
var surfaceHazards = [...]string{"sweet_berry_bush", "fire", "magma_block", "cactus"}

type Config struct {
	Seed     int64
	Size     int
	SeaLevel int

	Frequency   float64
	Amplitude   float64
	Octaves     int
	Persistence float64
	Lacunarity  float64

	// Fraction of dry columns topped with a tree trunk or a hazard.
	TreeDensity   float64
	HazardDensity float64

	Workers int
}

func DefaultConfig() Config {
	return Config{
		Seed:          1337,
		Size:          128,
		SeaLevel:      62,
		Frequency:     0.035,
		Amplitude:     9,
		Octaves:       3,
		Persistence:   0.5,
		Lacunarity:    2,
		TreeDensity:   0.012,
		HazardDensity: 0.01,
	}
}

// Generator builds worlds column by column using hashed value noise. Every column depends
// only on the seed and its coordinates.
type Generator struct {
	cfg     Config
	catalog *world.Catalog
	logger  *log.Logger
}

func NewGenerator(cfg Config, catalog *world.Catalog, logger *log.Logger) *Generator {
	if cfg.Octaves <= 0 {
		cfg.Octaves = 1
	}
	if cfg.Lacunarity == 0 {
		cfg.Lacunarity = 2
	}
	if catalog == nil {
		catalog, _ = world.NewCatalog(world.DefaultMaterials())
	}
	if logger == nil {
		logger = log.New(log.Writer(), "terrain ", log.LstdFlags|log.Lmicroseconds)
	}
	return &Generator{cfg: cfg, catalog: catalog, logger: logger}
}

// Bounds returns the horizontal extent of the generated world, centred on the origin.
func (g *Generator) Bounds() world.Bounds {
	half := g.cfg.Size / 2
	return world.Bounds{
		Min: world.Coord{X: -half, Y: bedrockY, Z: -half},
		Max: world.Coord{X: g.cfg.Size - half - 1, Y: g.cfg.SeaLevel + maxLift + trunkTall, Z: g.cfg.Size - half - 1},
	}
}

// SurfaceHeight returns the Y of the topmost terrain block in column (x, z), ignoring
// decorations.
func (g *Generator) SurfaceHeight(x, z int) int {
	noise := g.fractalNoise(float64(x), float64(z))
	height := g.cfg.SeaLevel + 2 + int(noise*g.cfg.Amplitude)
	return min(max(height, bedrockY+4), g.cfg.SeaLevel+maxLift)
}

// Generate fills a new grid. Columns are computed by a worker pool and stored by the
// caller goroutine.
func (g *Generator) Generate(ctx context.Context) (*world.Grid, error) {
	grid := world.NewGrid(bedrockY)
	bounds := g.Bounds()
	width, _, depth := bounds.Size()
	total := width * depth
	if total <= 0 {
		return nil, errors.New("terrain size must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type columnTask struct{ x, z int }
	type columnResult struct {
		x, z  int
		cells []world.Cell
	}

	workers := g.workerCount(total)
	tasks := make(chan columnTask, workers)
	results := make(chan columnResult, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				select {
				case results <- columnResult{x: task.x, z: task.z, cells: g.column(task.x, task.z)}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	go func() {
		defer close(tasks)
		for x := bounds.Min.X; x <= bounds.Max.X; x++ {
			for z := bounds.Min.Z; z <= bounds.Max.Z; z++ {
				select {
				case tasks <- columnTask{x: x, z: z}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	generated := 0
	nextLogPercent := 25
	for result := range results {
		grid.SetColumn(result.x, result.z, result.cells)
		generated++
		if progress := generated * 100 / total; progress >= nextLogPercent {
			g.logger.Printf("world generation progress: %d%%", progress)
			nextLogPercent = (progress/25 + 1) * 25
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return grid, nil
}

// StandingPoint returns the block an avatar would occupy on column (x, z), or false when
// the column is under water or decorated.
func (g *Generator) StandingPoint(x, z int) (world.Coord, bool) {
	surface := g.SurfaceHeight(x, z)
	if surface <= g.cfg.SeaLevel || g.decoration(x, z) != "" {
		return world.Coord{}, false
	}
	return world.Coord{X: x, Y: surface + 1, Z: z}, true
}

// NearestStandingPoint searches square rings around (x, z) out to radius.
func (g *Generator) NearestStandingPoint(x, z, radius int) (world.Coord, bool) {
	for r := 0; r <= radius; r++ {
		for dx := -r; dx <= r; dx++ {
			for dz := -r; dz <= r; dz++ {
				if max(abs(dx), abs(dz)) != r {
					continue
				}
				if c, ok := g.StandingPoint(x+dx, z+dz); ok {
					return c, true
				}
			}
		}
	}
	return world.Coord{}, false
}

func (g *Generator) column(x, z int) []world.Cell {
	surface := g.SurfaceHeight(x, z)
	top := max(surface, g.cfg.SeaLevel) + trunkTall
	cells := make([]world.Cell, top-bedrockY+1)

	beach := surface <= g.cfg.SeaLevel+1
	stone := g.catalog.Cell("stone")
	soil := g.catalog.Cell("dirt")
	cover := g.catalog.Cell("grass_block")
	if beach {
		soil = g.catalog.Cell("sand")
		cover = soil
	}

	cells[0] = g.catalog.Cell("bedrock")
	for y := bedrockY + 1; y <= surface; y++ {
		switch depth := surface - y; {
		case depth == 0:
			cells[y-bedrockY] = cover
		case depth <= 3:
			cells[y-bedrockY] = soil
		default:
			cells[y-bedrockY] = stone
		}
	}
	water := g.catalog.Cell("water")
	for y := surface + 1; y <= g.cfg.SeaLevel; y++ {
		cells[y-bedrockY] = water
	}

	switch decoration := g.decoration(x, z); decoration {
	case "":
	case "oak_log":
		for y := surface + 1; y <= surface+trunkTall; y++ {
			cells[y-bedrockY] = g.catalog.Cell(decoration)
		}
	case "magma_block":
		cells[surface-bedrockY] = g.catalog.Cell(decoration)
	default:
		cells[surface+1-bedrockY] = g.catalog.Cell(decoration)
	}
	return cells
}

// decoration picks what, if anything, sits on top of a dry column.
func (g *Generator) decoration(x, z int) string {
	if g.SurfaceHeight(x, z) <= g.cfg.SeaLevel+1 {
		return ""
	}
	if chance(x, z, g.cfg.Seed, treeSalt) < g.cfg.TreeDensity {
		return "oak_log"
	}
	if chance(x, z, g.cfg.Seed, decorSalt) < g.cfg.HazardDensity {
		return surfaceHazards[hash3(x, z, int(g.cfg.Seed)^hazardSalt)%uint32(len(surfaceHazards))]
	}
	return ""
}

func (g *Generator) workerCount(total int) int {
	workers := g.cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0) * 2
	}
	return max(1, min(workers, total))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
