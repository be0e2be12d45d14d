package config

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"voxelnav/internal/pathcache"
	"voxelnav/internal/pathfinding"
	"voxelnav/internal/session"
	"voxelnav/internal/terrain"
	"voxelnav/internal/world"
)

// EnvYAML names the environment variable holding a base64 encoded YAML config.
const EnvYAML = "NAV_CONFIG_YAML_B64"

//go:embed schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

// Config captures everything needed to run a navigation session and its host.
type Config struct {
	Navigation NavigationConfig `yaml:"navigation"`
	Search     SearchConfig     `yaml:"search"`
	Cache      CacheConfig      `yaml:"cache"`
	Terrain    TerrainConfig    `yaml:"terrain"`
	Simulation SimulationConfig `yaml:"simulation"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

type NavigationConfig struct {
	Defaults        OptionsConfig `yaml:"defaults"`
	StuckTicks      int           `yaml:"stuck_ticks"`
	StepwiseAdvance bool          `yaml:"stepwise_advance"`
}

type OptionsConfig struct {
	AvoidHazards  bool `yaml:"avoid_hazards"`
	AllowLeaps    bool `yaml:"allow_leaps"`
	MaxDropHeight int  `yaml:"max_drop_height"`
	PreferSprint  bool `yaml:"prefer_sprint"`
	AllowSwimming bool `yaml:"allow_swimming"`
}

type SearchConfig struct {
	IterationBudget        int      `yaml:"iteration_budget"`
	Heuristic              string   `yaml:"heuristic"`
	Workers                int      `yaml:"workers"`
	QueueSize              int      `yaml:"queue_size"`
	Timeout                Duration `yaml:"timeout"`
	SnapshotMargin         int      `yaml:"snapshot_margin"`
	SnapshotVerticalMargin int      `yaml:"snapshot_vertical_margin"`
	MaxDistance            int      `yaml:"max_distance"`
	MaxSnapshotVolume      int      `yaml:"max_snapshot_volume"`
}

type CacheConfig struct {
	Capacity     int      `yaml:"capacity"`
	TTL          Duration `yaml:"ttl"`
	KeyByOptions bool     `yaml:"key_by_options"`
}

type TerrainConfig struct {
	Hazards   []string             `yaml:"hazards"`
	Materials []MaterialDefinition `yaml:"materials"`
}

type MaterialDefinition struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
}

type SimulationConfig struct {
	TickRate      Duration `yaml:"tick_rate"`
	Seed          int64    `yaml:"seed"`
	Size          int      `yaml:"size"`
	SeaLevel      int      `yaml:"sea_level"`
	Amplitude     float64  `yaml:"amplitude"`
	TreeDensity   float64  `yaml:"tree_density"`
	HazardDensity float64  `yaml:"hazard_density"`
}

type TelemetryConfig struct {
	TraceDir string `yaml:"trace_dir"`
	Listen   string `yaml:"listen"`
}

func Default() *Config {
	opts := pathfinding.DefaultOptions()
	terrainDefaults := terrain.DefaultConfig()
	sessionDefaults := session.DefaultConfig()
	materials := world.DefaultMaterials()
	defs := make([]MaterialDefinition, len(materials))
	for i, m := range materials {
		defs[i] = MaterialDefinition{ID: m.ID, Kind: string(m.Kind)}
	}
	return &Config{
		Navigation: NavigationConfig{
			Defaults: OptionsConfig{
				AvoidHazards:  opts.AvoidHazards,
				AllowLeaps:    opts.AllowLeaps,
				MaxDropHeight: opts.MaxDropHeight,
				PreferSprint:  opts.PreferSprint,
				AllowSwimming: opts.AllowSwimming,
			},
			StuckTicks: sessionDefaults.StuckTicks,
		},
		Search: SearchConfig{
			IterationBudget:        pathfinding.DefaultIterationBudget,
			Heuristic:              pathfinding.HeuristicAdmissible.String(),
			Workers:                2,
			QueueSize:              16,
			Timeout:                Duration(2 * time.Second),
			SnapshotMargin:         24,
			SnapshotVerticalMargin: 16,
			MaxDistance:            sessionDefaults.MaxDistance,
			MaxSnapshotVolume:      sessionDefaults.MaxSnapshotVolume,
		},
		Cache: CacheConfig{
			Capacity: pathcache.DefaultCapacity,
			TTL:      Duration(pathcache.DefaultTTL),
		},
		Terrain: TerrainConfig{
			Hazards:   world.DefaultHazards(),
			Materials: defs,
		},
		Simulation: SimulationConfig{
			TickRate:      Duration(50 * time.Millisecond),
			Seed:          terrainDefaults.Seed,
			Size:          terrainDefaults.Size,
			SeaLevel:      terrainDefaults.SeaLevel,
			Amplitude:     terrainDefaults.Amplitude,
			TreeDensity:   terrainDefaults.TreeDensity,
			HazardDensity: terrainDefaults.HazardDensity,
		},
	}
}

// Load reads a YAML file. An empty path returns defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// FromEnv decodes the configuration carried in EnvYAML. ok is false when the variable
// is unset.
func FromEnv() (cfg *Config, ok bool, err error) {
	payload := os.Getenv(EnvYAML)
	if payload == "" {
		return nil, false, nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", EnvYAML, err)
	}
	cfg, err = Parse(data)
	return cfg, true, err
}

// Parse checks a YAML document against the schema and overlays it on the defaults.
func Parse(data []byte) (*Config, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func validateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		return nil
	}
	// Round-trip through JSON so the validator sees plain JSON values.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	d := c.Navigation.Defaults
	if d.MaxDropHeight < 0 || d.MaxDropHeight > pathfinding.MaxDropLimit {
		return fmt.Errorf("navigation.defaults.max_drop_height must be within 0..%d", pathfinding.MaxDropLimit)
	}
	if c.Navigation.StuckTicks < 0 {
		return errors.New("navigation.stuck_ticks cannot be negative")
	}
	if c.Search.IterationBudget <= 0 {
		return errors.New("search.iteration_budget must be positive")
	}
	if _, err := pathfinding.ParseHeuristic(c.Search.Heuristic); err != nil {
		return fmt.Errorf("search.heuristic: %w", err)
	}
	if c.Search.Workers <= 0 {
		return errors.New("search.workers must be positive")
	}
	if c.Search.QueueSize <= 0 {
		return errors.New("search.queue_size must be positive")
	}
	if c.Search.Timeout < 0 {
		return errors.New("search.timeout cannot be negative")
	}
	if c.Search.SnapshotMargin < 0 || c.Search.SnapshotVerticalMargin < 0 {
		return errors.New("search snapshot margins cannot be negative")
	}
	if c.Search.MaxDistance < 0 {
		return errors.New("search.max_distance cannot be negative")
	}
	if c.Search.MaxSnapshotVolume <= 0 || c.Search.MaxSnapshotVolume > world.MaxWindowVolume {
		return fmt.Errorf("search.max_snapshot_volume must be within 1..%d", world.MaxWindowVolume)
	}
	if c.Cache.Capacity <= 0 {
		return errors.New("cache.capacity must be positive")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl cannot be negative")
	}
	for i, m := range c.Terrain.Materials {
		if _, ok := world.ParseKind(m.Kind); !ok {
			return fmt.Errorf("terrain.materials[%d].kind %q is not air, solid, liquid or climbable", i, m.Kind)
		}
	}
	if _, err := c.Catalog(); err != nil {
		return fmt.Errorf("terrain.%w", err)
	}
	if c.Simulation.TickRate <= 0 {
		return errors.New("simulation.tick_rate must be positive")
	}
	if c.Simulation.Size < 16 {
		return errors.New("simulation.size must be at least 16")
	}
	if c.Simulation.Amplitude < 0 {
		return errors.New("simulation.amplitude cannot be negative")
	}
	if !inUnitRange(c.Simulation.TreeDensity) || !inUnitRange(c.Simulation.HazardDensity) {
		return errors.New("simulation densities must be within 0..1")
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v >= 0 && v <= 1
}

// Options converts the configured defaults.
func (o OptionsConfig) Options() pathfinding.Options {
	return pathfinding.Options{
		AvoidHazards:  o.AvoidHazards,
		AllowLeaps:    o.AllowLeaps,
		MaxDropHeight: o.MaxDropHeight,
		PreferSprint:  o.PreferSprint,
		AllowSwimming: o.AllowSwimming,
	}
}

func (c *Config) Heuristic() pathfinding.Heuristic {
	h, _ := pathfinding.ParseHeuristic(c.Search.Heuristic)
	return h
}

func (c *Config) HazardSet() world.HazardSet {
	return world.NewHazardSet(c.Terrain.Hazards...)
}

func (c *Config) Catalog() (*world.Catalog, error) {
	materials := make([]world.Material, len(c.Terrain.Materials))
	for i, m := range c.Terrain.Materials {
		kind, _ := world.ParseKind(m.Kind)
		materials[i] = world.Material{ID: m.ID, Kind: kind}
	}
	return world.NewCatalog(materials)
}

// SessionConfig maps the search and navigation sections onto session tuning.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Defaults:               c.Navigation.Defaults.Options(),
		Budget:                 c.Search.IterationBudget,
		Workers:                c.Search.Workers,
		QueueSize:              c.Search.QueueSize,
		SearchTimeout:          c.Search.Timeout.Duration(),
		SnapshotMargin:         c.Search.SnapshotMargin,
		SnapshotVerticalMargin: c.Search.SnapshotVerticalMargin,
		Hazards:                c.HazardSet(),
		MaxDistance:            c.Search.MaxDistance,
		MaxSnapshotVolume:      c.Search.MaxSnapshotVolume,
		StepwiseAdvance:        c.Navigation.StepwiseAdvance,
		StuckTicks:             c.Navigation.StuckTicks,
	}
}

// TerrainConfig maps the simulation section onto the world generator.
func (c *Config) TerrainConfig() terrain.Config {
	cfg := terrain.DefaultConfig()
	cfg.Seed = c.Simulation.Seed
	cfg.Size = c.Simulation.Size
	cfg.SeaLevel = c.Simulation.SeaLevel
	cfg.Amplitude = c.Simulation.Amplitude
	cfg.TreeDensity = c.Simulation.TreeDensity
	cfg.HazardDensity = c.Simulation.HazardDensity
	return cfg
}

func (c *Config) CacheConfig() pathcache.Config {
	return pathcache.Config{
		Capacity:     c.Cache.Capacity,
		TTL:          c.Cache.TTL.Duration(),
		KeyByOptions: c.Cache.KeyByOptions,
	}
}
