// Package config holds the cart service configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/abgdnv/gomarketplace/pkg/config"
	"github.com/abgdnv/gomarketplace/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig       `koanf:"server"`
	GRPC       config.GrpcServerConfig `koanf:"grpc"`
	Storage    config.StorageConfig    `koanf:"storage"`
	Cart       config.CartConfig       `koanf:"cart"`
	Resilience config.ResilienceConfig `koanf:"resilience"`
	Database   config.DatabaseConfig   `koanf:"database"`
	Redis      config.RedisConfig      `koanf:"redis"`
	NATS       config.NATSConfig       `koanf:"nats"`
	Events     config.EventsConfig     `koanf:"events"`
	Telemetry  config.TelemetryConfig  `koanf:"telemetry"`
	Log        config.LogConfig        `koanf:"log"`
	PProf      config.PProfConfig      `koanf:"pprof"`
	Shutdown   config.ShutdownConfig   `koanf:"shutdown"`
}

func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.GRPC.String())
	b.WriteString(c.Storage.String())
	b.WriteString(c.Cart.String())
	b.WriteString(c.Resilience.String())
	switch c.Storage.Driver {
	case config.DriverPostgres:
		b.WriteString(c.Database.String())
	case config.DriverRedis:
		b.WriteString(c.Redis.String())
	}
	if c.usesNATS() {
		b.WriteString(c.NATS.String())
	}
	b.WriteString(c.Events.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

func (c *Config) usesNATS() bool {
	return c.Storage.Driver == config.DriverNATS || c.Events.Enabled
}

// Validate checks every section. Backend sections are only checked when the
// selected storage driver or the events publisher needs them.
func (c *Config) Validate() error {
	validators := []configloader.Validator{
		&c.HTTPServer,
		&c.GRPC,
		&c.Storage,
		&c.Cart,
		&c.Resilience,
		&c.Events,
		&c.Telemetry,
		&c.Log,
		&c.PProf,
		&c.Shutdown,
	}
	switch c.Storage.Driver {
	case config.DriverPostgres:
		validators = append(validators, &c.Database)
	case config.DriverRedis:
		validators = append(validators, &c.Redis)
	}
	if c.usesNATS() {
		validators = append(validators, &c.NATS)
	}

	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	if c.Shutdown.Timeout < c.Cart.WriteTimeout {
		return fmt.Errorf("shutdown timeout (%s) must not be shorter than the cart write timeout (%s)",
			c.Shutdown.Timeout, c.Cart.WriteTimeout)
	}
	return nil
}
