package config

import (
	"fmt"
	"strings"
	"time"
)

// CartConfig holds the store timeouts. MaxElapsed bounds how long a single
// write keeps being retried. PingTimeout bounds the storage ping of the
// readiness and gRPC health probes.
type CartConfig struct {
	RehydrateTimeout time.Duration `koanf:"rehydratetimeout"`
	WriteTimeout     time.Duration `koanf:"writetimeout"`
	MaxElapsed       time.Duration `koanf:"maxelapsed"`
	PingTimeout      time.Duration `koanf:"pingtimeout"`
}

// String returns a string representation of the cart configuration.
func (c *CartConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Cart ---\n")
	b.WriteString(fmt.Sprintf("  rehydratetimeout: %s\n", c.RehydrateTimeout))
	b.WriteString(fmt.Sprintf("  writetimeout: %s\n", c.WriteTimeout))
	b.WriteString(fmt.Sprintf("  maxelapsed: %s\n", c.MaxElapsed))
	b.WriteString(fmt.Sprintf("  pingtimeout: %s\n", c.PingTimeout))
	return b.String()
}

func (c *CartConfig) Validate() error {
	if c.RehydrateTimeout <= 0 {
		return fmt.Errorf("cart rehydrate timeout must be greater than 0")
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("cart write timeout must be greater than 0")
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("cart ping timeout must be greater than 0")
	}
	if c.MaxElapsed < c.WriteTimeout {
		return fmt.Errorf("cart max elapsed (%s) must not be shorter than the write timeout (%s)", c.MaxElapsed, c.WriteTimeout)
	}
	return nil
}
