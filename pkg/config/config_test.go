package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStorageConfig_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		cfg       StorageConfig
		expectErr bool
	}{
		{name: "memory", cfg: StorageConfig{Driver: DriverMemory, Key: "k"}},
		{name: "redis", cfg: StorageConfig{Driver: DriverRedis, Key: "k"}},
		{name: "postgres", cfg: StorageConfig{Driver: DriverPostgres, Key: "k"}},
		{name: "nats with bucket", cfg: StorageConfig{Driver: DriverNATS, Key: "k", Bucket: "cart"}},
		{name: "nats without bucket", cfg: StorageConfig{Driver: DriverNATS, Key: "k"}, expectErr: true},
		{name: "unknown driver", cfg: StorageConfig{Driver: "sqlite", Key: "k"}, expectErr: true},
		{name: "empty key", cfg: StorageConfig{Driver: DriverMemory}, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCartConfig_Validate(t *testing.T) {
	valid := CartConfig{RehydrateTimeout: time.Second, WriteTimeout: time.Second, MaxElapsed: 10 * time.Second, PingTimeout: time.Second}
	assert.NoError(t, valid.Validate())

	short := valid
	short.MaxElapsed = time.Millisecond
	assert.Error(t, short.Validate())

	noWrite := valid
	noWrite.WriteTimeout = 0
	assert.Error(t, noWrite.Validate())

	noPing := valid
	noPing.PingTimeout = 0
	assert.Error(t, noPing.Validate())
}

func TestResilienceConfig_Validate(t *testing.T) {
	cfg := ResilienceConfig{Retry: RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}}
	assert.NoError(t, cfg.Validate(), "disabled breaker needs no settings")

	cfg.CircuitBreaker.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.CircuitBreaker = CircuitBreakerConfig{Enabled: true, ConsecutiveFailures: 5, ErrorRatePercent: 60, OpenTimeout: time.Second}
	assert.NoError(t, cfg.Validate())

	cfg.CircuitBreaker.ErrorRatePercent = 101
	assert.Error(t, cfg.Validate())
}

func TestTelemetryConfig_Validate(t *testing.T) {
	assert.NoError(t, (&TelemetryConfig{}).Validate(), "everything disabled")

	traces := TelemetryConfig{Traces: TracesConfig{Enabled: true}}
	assert.Error(t, traces.Validate())

	metrics := TelemetryConfig{Metrics: MetricsConfig{Enabled: true, Path: "metrics"}}
	assert.Error(t, metrics.Validate())
}

func TestLogConfig_Validate(t *testing.T) {
	assert.NoError(t, (&LogConfig{}).Validate())
	assert.NoError(t, (&LogConfig{Level: "DEBUG"}).Validate())
	assert.Error(t, (&LogConfig{Level: "verbose"}).Validate())
}

func TestRedisConfig_String_MasksPassword(t *testing.T) {
	cfg := RedisConfig{Addr: "localhost:6379", Password: "secret", Timeout: time.Second}
	assert.NotContains(t, cfg.String(), "secret")
}
