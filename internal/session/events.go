package session

import (
	"fmt"
	"time"

	"voxelnav/internal/pathfinding"
	"voxelnav/internal/world"
)

type EventKind int

const (
	// EventPathStarted: a path was installed, from the cache or a finished search.
	EventPathStarted EventKind = iota
	// EventSearchFailed: the current request's search found no path.
	EventSearchFailed
	EventArrived
	EventStopped
	// EventDiscarded: a search finished after a newer request replaced it.
	EventDiscarded
	// EventStuck: the follower made no progress for too long and gave up.
	EventStuck
	// EventAvatarLost: the avatar disappeared while a path was being followed.
	EventAvatarLost
)

func (k EventKind) String() string {
	switch k {
	case EventPathStarted:
		return "path_started"
	case EventSearchFailed:
		return "search_failed"
	case EventArrived:
		return "arrived"
	case EventStopped:
		return "stopped"
	case EventDiscarded:
		return "discarded"
	case EventStuck:
		return "stuck"
	case EventAvatarLost:
		return "avatar_lost"
	default:
		return "unknown"
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	for candidate := EventPathStarted; candidate <= EventAvatarLost; candidate++ {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown event kind %q", text)
}

// Event is emitted on the simulation thread whenever the navigation state changes.
// Search fields are only set for events produced by a finished search.
type Event struct {
	Kind        EventKind           `json:"kind"`
	Generation  uint64              `json:"generation"`
	Origin      world.Coord         `json:"origin"`
	Destination world.Coord         `json:"destination"`
	PathLength  int                 `json:"path_length"`
	Cached      bool                `json:"cached"`
	Outcome     pathfinding.Outcome `json:"outcome"`
	Expanded    int                 `json:"expanded"`
	Cost        float64             `json:"cost"`
	Elapsed     time.Duration       `json:"elapsed_ns"`
	At          time.Time           `json:"at"`
}

type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) {
	f(e)
}
