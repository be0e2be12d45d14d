// Package script binds a navigation session to a scripting layer: a subcommand parser
// and named result variables.
package script

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"voxelnav/internal/session"
	"voxelnav/internal/world"
)

// Result variable names.
const (
	VarSuccess      = "pathfind_success"
	VarActive       = "pathfind_active"
	VarLength       = "pathfind_length"
	VarComplete     = "pathfind_complete"
	VarCacheSize    = "pathfind_cache_size"
	VarHomeX        = "home_x"
	VarHomeY        = "home_y"
	VarHomeZ        = "home_z"
	VarConfigPrefix = "pathfind_config_"
)

const Usage = `pathfind <x> <y> <z> [option=value ...] | stop | sethome | home | config [<key> <value>] | cache [clear]

Options:
  avoidHazards=true   refuse routes through lava, fire, cactus and similar (alias avoidDanger)
  allowLeaps=false    allow jumps over one-block gaps (alias allowParkour)
  maxDropHeight=3     deepest fall taken without assistance (alias maxFall)
  preferSprint=true   sprint on long straight stretches (alias sprint)
  allowSwimming=true  route through water (alias swim)

Variables:
  $pathfind_success   last request produced a path
  $pathfind_active    currently navigating
  $pathfind_complete  destination reached
  $pathfind_length    waypoints in the current path
  $pathfind_cache_size
  $home_x $home_y $home_z`

// Variables receives result values. The scripting interpreter implements it.
type Variables interface {
	SetVariable(name, value string)
}

// Binding executes pathfind subcommands and keeps result variables current as the
// session reports progress.
type Binding struct {
	nav    *session.Session
	vars   Variables
	logger *log.Logger
}

// NewBinding subscribes to s; variables are updated on the simulation thread.
func NewBinding(s *session.Session, vars Variables, logger *log.Logger) *Binding {
	if logger == nil {
		logger = log.New(log.Writer(), "pathfind ", log.LstdFlags)
	}
	b := &Binding{nav: s, vars: vars, logger: logger}
	s.Subscribe(b)
	return b
}

// Execute runs one command line split into arguments. It returns text for the user;
// failures are also reflected in the result variables.
func (b *Binding) Execute(args []string) (string, error) {
	if len(args) == 0 {
		return Usage, nil
	}
	switch strings.ToLower(args[0]) {
	case "stop":
		b.nav.Stop()
		return "Pathfinding stopped", nil
	case "sethome":
		home, err := b.nav.SetHome()
		if err != nil {
			return "", err
		}
		b.set(VarHomeX, strconv.Itoa(home.X))
		b.set(VarHomeY, strconv.Itoa(home.Y))
		b.set(VarHomeZ, strconv.Itoa(home.Z))
		return fmt.Sprintf("Home set to %d, %d, %d", home.X, home.Y, home.Z), nil
	case "home":
		dispatch, err := b.nav.GoHome()
		if err != nil {
			b.set(VarSuccess, "false")
			if errors.Is(err, session.ErrNoHome) {
				return "No home position set, use 'pathfind sethome' first", err
			}
			return "", err
		}
		return b.started(dispatch), nil
	case "config":
		return b.config(args[1:])
	case "cache":
		if len(args) > 1 && strings.EqualFold(args[1], "clear") {
			b.nav.CacheClear()
		}
		stats := b.nav.CacheStats()
		b.set(VarCacheSize, strconv.Itoa(stats.Size))
		return fmt.Sprintf("Path cache size: %d/%d (hits %d, misses %d)", stats.Size, stats.Capacity, stats.Hits, stats.Misses), nil
	}
	return b.navigate(args)
}

func (b *Binding) navigate(args []string) (string, error) {
	if len(args) < 3 {
		return Usage, fmt.Errorf("%w: expected <x> <y> <z>", session.ErrInvalidInput)
	}
	var coords [3]int
	for i := range coords {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			b.set(VarSuccess, "false")
			return "", fmt.Errorf("%w: coordinate %q is not an integer", session.ErrInvalidInput, args[i])
		}
		coords[i] = n
	}
	overrides := make([][2]string, 0, len(args)-3)
	for _, token := range args[3:] {
		key, value, ok := strings.Cut(token, "=")
		if !ok || key == "" {
			b.set(VarSuccess, "false")
			return "", fmt.Errorf("%w: option %q is not key=value", session.ErrInvalidInput, token)
		}
		overrides = append(overrides, [2]string{key, value})
	}

	dispatch, err := b.nav.NavigateWith(world.Coord{X: coords[0], Y: coords[1], Z: coords[2]}, overrides)
	if err != nil {
		b.set(VarSuccess, "false")
		return "", err
	}
	return b.started(dispatch), nil
}

func (b *Binding) started(d session.Dispatch) string {
	if d.Cached {
		return fmt.Sprintf("Using cached path (%d waypoints)", d.PathLength)
	}
	b.set(VarComplete, "false")
	return fmt.Sprintf("Pathfinding from %v to %v", d.Origin, d.Destination)
}

func (b *Binding) config(args []string) (string, error) {
	if len(args) < 2 {
		var sb strings.Builder
		sb.WriteString("Current config:")
		for _, pair := range b.nav.Settings() {
			fmt.Fprintf(&sb, "\n  %s: %s", pair[0], pair[1])
		}
		return sb.String(), nil
	}
	key, value := args[0], args[1]
	if err := b.nav.Configure(key, value); err != nil {
		return "", err
	}
	b.set(VarConfigPrefix+strings.ToLower(key), strings.ToLower(value))
	return fmt.Sprintf("Set %s = %s", key, value), nil
}

// Observe implements session.Observer.
func (b *Binding) Observe(e session.Event) {
	switch e.Kind {
	case session.EventPathStarted:
		b.set(VarSuccess, "true")
		b.set(VarActive, "true")
		b.set(VarComplete, "false")
		b.set(VarLength, strconv.Itoa(e.PathLength))
		if !e.Cached {
			b.logger.Printf("Path found with %d waypoints (%s)", e.PathLength, e.Elapsed)
		}
	case session.EventSearchFailed:
		b.set(VarSuccess, "false")
		b.set(VarActive, "false")
		b.logger.Printf("No path found (%s, %s)", e.Outcome, e.Elapsed)
	case session.EventArrived:
		b.set(VarActive, "false")
		b.set(VarComplete, "true")
		b.logger.Printf("Destination reached")
	case session.EventStopped:
		b.set(VarActive, "false")
	case session.EventStuck:
		b.set(VarSuccess, "false")
		b.set(VarActive, "false")
		b.logger.Printf("Navigation stuck, path abandoned")
	case session.EventAvatarLost:
		b.set(VarSuccess, "false")
		b.set(VarActive, "false")
		b.logger.Printf("Player lost, navigation abandoned")
	}
}

func (b *Binding) set(name, value string) {
	if b.vars != nil {
		b.vars.SetVariable(name, value)
	}
}
