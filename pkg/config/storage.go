package config

import (
	"fmt"
	"strings"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverNATS     = "nats"
)

type StorageConfig struct {
	Driver string `koanf:"driver"`
	// Key is the storage key the cart blob is kept under.
	Key string `koanf:"key"`
	// Bucket is the JetStream key-value bucket, used by the nats driver only.
	Bucket string `koanf:"bucket"`
}

// String returns a string representation of the storage configuration.
func (c *StorageConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Storage ---\n")
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  key: %s\n", c.Key))
	if c.Driver == DriverNATS {
		b.WriteString(fmt.Sprintf("  bucket: %s\n", c.Bucket))
	}
	return b.String()
}

func (c *StorageConfig) Validate() error {
	switch c.Driver {
	case DriverMemory, DriverRedis, DriverPostgres:
	case DriverNATS:
		if c.Bucket == "" {
			return fmt.Errorf("storage bucket is required for the %s driver", DriverNATS)
		}
	default:
		return fmt.Errorf("unknown storage driver %q, expected one of: %s, %s, %s, %s",
			c.Driver, DriverMemory, DriverRedis, DriverPostgres, DriverNATS)
	}
	if c.Key == "" {
		return fmt.Errorf("storage key is not configured")
	}
	return nil
}
