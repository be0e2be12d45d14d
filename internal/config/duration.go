package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts human readable strings such as "50ms" in YAML, or a bare integer of
// nanoseconds.
type Duration time.Duration

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected scalar at line %d", value.Line)
	}
	if value.Tag == "!!null" || value.Value == "" {
		*d = 0
		return nil
	}
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("duration: %w", err)
		}
		*d = Duration(time.Duration(n))
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("duration: parse %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}
