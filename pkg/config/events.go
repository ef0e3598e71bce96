package config

import (
	"fmt"
	"strings"
)

type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Stream  string `koanf:"stream"`
}

// String returns a string representation of the events configuration.
func (c *EventsConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Events ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	return b.String()
}

func (c *EventsConfig) Validate() error {
	if c.Enabled && c.Stream == "" {
		return fmt.Errorf("events are enabled but stream is not configured")
	}
	return nil
}
