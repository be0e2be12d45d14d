package follower

import (
	"math"

	"voxelnav/internal/pathfinding"
	"voxelnav/internal/world"
)

// Proximity thresholds for treating a waypoint as reached.
const (
	ReachRadius       = 0.5
	VerticalTolerance = 1.5
	// JumpThreshold is the height difference above which a grounded avatar jumps.
	JumpThreshold = 0.5
	// SprintDistance is the horizontal distance beyond which sprinting is requested.
	SprintDistance = 5.0
)

// Avatar is the host-side control adapter for the entity being driven. The follower
// only issues intents; physics stays with the host.
type Avatar interface {
	Position() world.Vec3
	Grounded() bool
	SetYaw(degrees float64)
	SetMoveForward(bool)
	Jump()
	SetSprint(bool)
}

type State int

const (
	StateIdle State = iota
	StateFollowing
	StateArrived
)

func (s State) String() string {
	switch s {
	case StateFollowing:
		return "following"
	case StateArrived:
		return "arrived"
	default:
		return "idle"
	}
}

// Event reports what a tick changed.
type Event int

const (
	EventNone Event = iota
	EventAdvanced
	EventArrived
	// EventStuck: no waypoint was reached within the stuck limit; the path was dropped.
	EventStuck
)

// Follower drives an avatar along one path. It is not safe for concurrent use; it
// belongs to the simulation thread.
type Follower struct {
	state        State
	path         pathfinding.Path
	cursor       int
	preferSprint bool
	stuckLimit   int
	idleTicks    int
	stepwise     bool
}

func New() *Follower {
	return &Follower{}
}

// SetStuckLimit sets how many consecutive ticks may pass without reaching a waypoint
// before the path is abandoned. Zero disables the check.
func (f *Follower) SetStuckLimit(ticks int) {
	f.stuckLimit = max(ticks, 0)
}

// SetStepwise selects one waypoint per tick: a tick that reaches a waypoint only
// advances the cursor, and steering toward the next one waits for the following tick.
// Arrival is then reported on the tick after the last waypoint is reached.
func (f *Follower) SetStepwise(v bool) {
	f.stepwise = v
}

// Install replaces whatever is being followed with path. An empty path leaves the
// follower idle.
func (f *Follower) Install(path pathfinding.Path, preferSprint bool) {
	f.path = path
	f.cursor = 0
	f.idleTicks = 0
	f.preferSprint = preferSprint
	if path.Empty() {
		f.state = StateIdle
		return
	}
	f.state = StateFollowing
}

// Stop abandons the current path without reporting arrival and releases movement
// intents on avatar when one is given.
func (f *Follower) Stop(avatar Avatar) {
	wasFollowing := f.state == StateFollowing
	f.reset(StateIdle)
	if wasFollowing && avatar != nil {
		release(avatar)
	}
}

func (f *Follower) State() State {
	return f.state
}

func (f *Follower) Active() bool {
	return f.state == StateFollowing
}

// Cursor is the index of the waypoint being steered toward.
func (f *Follower) Cursor() int {
	return f.cursor
}

// Remaining is the number of waypoints not yet reached.
func (f *Follower) Remaining() int {
	if f.state != StateFollowing {
		return 0
	}
	return f.path.Len() - f.cursor
}

// Target returns the waypoint currently steered toward.
func (f *Follower) Target() (world.Coord, bool) {
	if f.state != StateFollowing || f.cursor >= f.path.Len() {
		return world.Coord{}, false
	}
	return f.path.At(f.cursor), true
}

// Tick evaluates the avatar against the current waypoint once. Unless stepwise, every
// waypoint already within reach is consumed on the same tick, then the avatar is
// steered toward the next one.
func (f *Follower) Tick(avatar Avatar) Event {
	if f.state != StateFollowing {
		return EventNone
	}
	event := EventNone
	pos := avatar.Position()
	for {
		if f.cursor >= f.path.Len() {
			f.reset(StateArrived)
			release(avatar)
			return EventArrived
		}
		target := f.path.At(f.cursor).Center()
		dx := target.X - pos.X
		dy := target.Y - pos.Y
		dz := target.Z - pos.Z
		horizontal := math.Hypot(dx, dz)
		if horizontal < ReachRadius && math.Abs(dy) < VerticalTolerance {
			f.cursor++
			f.idleTicks = 0
			event = EventAdvanced
			if f.stepwise {
				return event
			}
			continue
		}
		if event == EventNone {
			f.idleTicks++
			if f.stuckLimit > 0 && f.idleTicks >= f.stuckLimit {
				f.reset(StateIdle)
				release(avatar)
				return EventStuck
			}
		}

		avatar.SetYaw(Yaw(dx, dz))
		avatar.SetMoveForward(true)
		if dy > JumpThreshold && avatar.Grounded() {
			avatar.Jump()
		}
		avatar.SetSprint(f.preferSprint && horizontal > SprintDistance)
		return event
	}
}

// Yaw converts a horizontal heading into degrees, 0 facing +Z and 90 facing -X.
func Yaw(dx, dz float64) float64 {
	return math.Atan2(-dx, dz) * 180 / math.Pi
}

func (f *Follower) reset(state State) {
	f.state = state
	f.path = pathfinding.Path{}
	f.cursor = 0
	f.idleTicks = 0
}

func release(avatar Avatar) {
	avatar.SetMoveForward(false)
	avatar.SetSprint(false)
}
