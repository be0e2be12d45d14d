package pathfinding

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxDropLimit bounds the configurable fall probe depth.
const MaxDropLimit = 16

var (
	ErrUnknownOption = errors.New("unknown navigation option")
	ErrInvalidOption = errors.New("invalid navigation option value")
)

// Options constrains how the avatar may traverse terrain. A search copies the value it is
// given, so later changes never affect a running search.
type Options struct {
	AvoidHazards  bool
	AllowLeaps    bool
	MaxDropHeight int
	PreferSprint  bool
	AllowSwimming bool
}

// DefaultOptions returns the traversal defaults.
func DefaultOptions() Options {
	return Options{
		AvoidHazards:  true,
		AllowLeaps:    false,
		MaxDropHeight: 3,
		PreferSprint:  true,
		AllowSwimming: true,
	}
}

// Set applies a single key/value pair. Keys are case-insensitive and accept both the
// long names and the short command aliases (avoidDanger, allowParkour, maxFall, sprint,
// swim).
func (o *Options) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "avoidhazards", "avoiddanger":
		return setBool(&o.AvoidHazards, key, value)
	case "allowleaps", "allowparkour":
		return setBool(&o.AllowLeaps, key, value)
	case "prefersprint", "sprint":
		return setBool(&o.PreferSprint, key, value)
	case "allowswimming", "swim":
		return setBool(&o.AllowSwimming, key, value)
	case "maxdropheight", "maxfall":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidOption, key, value)
		}
		if n < 0 || n > MaxDropLimit {
			return fmt.Errorf("%w: %s=%d outside 0..%d", ErrInvalidOption, key, n, MaxDropLimit)
		}
		o.MaxDropHeight = n
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}
}

// Validate reports options that cannot be used for a search.
func (o Options) Validate() error {
	if o.MaxDropHeight < 0 || o.MaxDropHeight > MaxDropLimit {
		return fmt.Errorf("%w: maxDropHeight=%d outside 0..%d", ErrInvalidOption, o.MaxDropHeight, MaxDropLimit)
	}
	return nil
}

// Fingerprint packs the options into a comparable value, used when cache entries are
// keyed by options.
func (o Options) Fingerprint() uint32 {
	var f uint32
	if o.AvoidHazards {
		f |= 1
	}
	if o.AllowLeaps {
		f |= 1 << 1
	}
	if o.PreferSprint {
		f |= 1 << 2
	}
	if o.AllowSwimming {
		f |= 1 << 3
	}
	return f | uint32(o.MaxDropHeight)<<8
}

// Pairs lists the options as key/value strings in a stable order.
func (o Options) Pairs() [][2]string {
	return [][2]string{
		{"avoidHazards", strconv.FormatBool(o.AvoidHazards)},
		{"allowLeaps", strconv.FormatBool(o.AllowLeaps)},
		{"maxDropHeight", strconv.Itoa(o.MaxDropHeight)},
		{"preferSprint", strconv.FormatBool(o.PreferSprint)},
		{"allowSwimming", strconv.FormatBool(o.AllowSwimming)},
	}
}

func setBool(dst *bool, key, value string) error {
	switch strings.ToLower(value) {
	case "true":
		*dst = true
	case "false":
		*dst = false
	default:
		return fmt.Errorf("%w: %s=%q is not true/false", ErrInvalidOption, key, value)
	}
	return nil
}
