package sim

import (
	"math"
	"sync"
	"time"

	"voxelnav/internal/world"
)

// Movement constants in blocks and seconds.
const (
	WalkSpeed    = 4.3
	SprintSpeed  = 5.6
	SwimSpeed    = 2.0
	ClimbSpeed   = 2.4
	Gravity      = 32.0
	JumpVelocity = 9.0
	AvatarHeight = 1.8
	// sinkSpeed is the terminal downward speed in liquids and on climbables.
	sinkSpeed = 1.2
	epsilon   = 1e-6
)

// KinematicAvatar is a point-sized avatar with simple block physics: gravity, jumping,
// step blocking against solids, swimming and climbing. It implements the session's
// avatar adapter.
type KinematicAvatar struct {
	terrain world.Terrain

	mu       sync.Mutex
	pos      world.Vec3
	vy       float64
	yaw      float64
	forward  bool
	sprint   bool
	jump     bool
	onGround bool
	present  bool
}

// NewKinematicAvatar places an avatar with its feet at the floor of spawn.
func NewKinematicAvatar(terrain world.Terrain, spawn world.Coord) *KinematicAvatar {
	a := &KinematicAvatar{terrain: terrain, pos: spawn.Center(), present: true}
	a.onGround = a.solid(spawn.Down(1))
	return a
}

func (a *KinematicAvatar) Position() world.Vec3 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pos
}

// Grounded is true when the avatar can push off: standing on a solid, swimming or
// holding a climbable.
func (a *KinematicAvatar) Grounded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.onGround || a.medium(a.pos.Block()) != world.KindAir
}

func (a *KinematicAvatar) SetYaw(degrees float64) {
	a.mu.Lock()
	a.yaw = degrees
	a.mu.Unlock()
}

func (a *KinematicAvatar) SetMoveForward(v bool) {
	a.mu.Lock()
	a.forward = v
	a.mu.Unlock()
}

// Jump requests an upward push on the next step.
func (a *KinematicAvatar) Jump() {
	a.mu.Lock()
	a.jump = true
	a.mu.Unlock()
}

func (a *KinematicAvatar) SetSprint(v bool) {
	a.mu.Lock()
	a.sprint = v
	a.mu.Unlock()
}

func (a *KinematicAvatar) Present() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.present
}

// SetPresent toggles whether the host currently has an entity to drive.
func (a *KinematicAvatar) SetPresent(v bool) {
	a.mu.Lock()
	a.present = v
	a.mu.Unlock()
}

// Teleport moves the avatar's feet to the floor of c and clears its momentum.
func (a *KinematicAvatar) Teleport(c world.Coord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pos = c.Center()
	a.vy = 0
	a.onGround = a.solid(c.Down(1))
}

// Step integrates one tick of movement.
func (a *KinematicAvatar) Step(delta time.Duration) {
	dt := delta.Seconds()
	if dt <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	jump := a.jump
	a.jump = false
	medium := a.medium(a.pos.Block())

	if a.forward {
		speed := WalkSpeed
		switch {
		case medium == world.KindLiquid:
			speed = SwimSpeed
		case a.sprint:
			speed = SprintSpeed
		}
		rad := a.yaw * math.Pi / 180
		a.moveHorizontal(-math.Sin(rad)*speed*dt, math.Cos(rad)*speed*dt)
	}

	switch medium {
	case world.KindClimbable:
		if jump {
			a.vy = ClimbSpeed
		} else {
			a.vy = -sinkSpeed
		}
	case world.KindLiquid:
		if jump {
			a.vy = SwimSpeed
		} else {
			a.vy = math.Max(a.vy-Gravity*dt, -sinkSpeed)
		}
	default:
		if jump && a.onGround {
			a.vy = JumpVelocity
		}
		a.vy -= Gravity * dt
	}
	a.moveVertical(a.vy * dt)
}

func (a *KinematicAvatar) moveHorizontal(dx, dz float64) {
	next := a.pos
	next.X += dx
	if !a.blocked(next) {
		a.pos.X = next.X
	}
	next = a.pos
	next.Z += dz
	if !a.blocked(next) {
		a.pos.Z = next.Z
	}
}

func (a *KinematicAvatar) moveVertical(dy float64) {
	a.onGround = false
	if dy > 0 {
		head := world.Vec3{X: a.pos.X, Y: a.pos.Y + AvatarHeight + dy, Z: a.pos.Z}.Block()
		if a.solid(head) {
			a.vy = 0
			return
		}
		a.pos.Y += dy
		return
	}
	target := a.pos.Y + dy
	// Land on the first solid between the current feet and the target height.
	for y := int(math.Floor(a.pos.Y - epsilon)); float64(y+1) > target; y-- {
		below := world.Coord{X: int(math.Floor(a.pos.X)), Y: y, Z: int(math.Floor(a.pos.Z))}
		if a.solid(below) {
			a.pos.Y = float64(y + 1)
			a.vy = 0
			a.onGround = true
			return
		}
	}
	a.pos.Y = target
}

func (a *KinematicAvatar) blocked(p world.Vec3) bool {
	feet := world.Vec3{X: p.X, Y: p.Y + epsilon, Z: p.Z}.Block()
	head := world.Vec3{X: p.X, Y: p.Y + AvatarHeight - epsilon, Z: p.Z}.Block()
	return a.solid(feet) || a.solid(head)
}

// solid treats everything below the terrain floor as solid.
func (a *KinematicAvatar) solid(c world.Coord) bool {
	return c.Y < a.terrain.MinY() || a.terrain.Cell(c).Kind == world.KindSolid
}

func (a *KinematicAvatar) medium(c world.Coord) world.Kind {
	kind := a.terrain.Cell(c).Kind
	if kind == world.KindSolid || kind == "" {
		return world.KindAir
	}
	return kind
}
