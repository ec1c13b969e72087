package config

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"nftmarket/crypto"
	"nftmarket/observability/logging"
)

// Log configures structured logging and optional file rotation.
type Log struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Index selects the SQL backend of the offer index. An empty driver
// disables the index.
type Index struct {
	Driver string
	DSN    string
}

// Telemetry configures the OTLP exporters. An empty endpoint disables them.
type Telemetry struct {
	Endpoint    string
	Insecure    bool
	Traces      bool
	Metrics     bool
	Headers     string
	SampleRatio float64
}

// RateLimit bounds the JSON-RPC request rate per client.
type RateLimit struct {
	RequestsPerMinute uint32
	Burst             int
}

// OperatorAddress parses the configured operator identity.
func (c *Config) OperatorAddress() ([20]byte, error) {
	addr, err := crypto.ParseAddress(c.Operator)
	if err != nil {
		return [20]byte{}, fmt.Errorf("operator: %w", err)
	}
	return addr, nil
}

// LoggingOptions converts the Log section into logging setup options.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}

// Limit returns the steady request rate. Zero disables throttling.
func (r RateLimit) Limit() rate.Limit {
	if r.RequestsPerMinute == 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(r.RequestsPerMinute))
}
