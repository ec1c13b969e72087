package config

import (
	"fmt"
	"net"
	"strings"
)

const maxCommissionBps = 10_000

// Validate rejects configurations the node cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("ListenAddress must be set")
	}
	switch c.Database {
	case "leveldb", "memory":
	default:
		return fmt.Errorf("Database: unsupported backend %q", c.Database)
	}
	if c.Database == "leveldb" && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("DataDir must be set for leveldb")
	}
	operator, err := c.OperatorAddress()
	if err != nil {
		return err
	}
	if operator == ([20]byte{}) {
		return fmt.Errorf("operator: zero address is not allowed")
	}
	if c.CommissionBps > maxCommissionBps {
		return fmt.Errorf("CommissionBps: %d exceeds %d", c.CommissionBps, maxCommissionBps)
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("Log.Level: unknown level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 {
		return fmt.Errorf("Log: rotation limits must not be negative")
	}
	switch c.Index.Driver {
	case "":
	case "sqlite", "postgres":
		if strings.TrimSpace(c.Index.DSN) == "" {
			return fmt.Errorf("Index.DSN must be set for driver %q", c.Index.Driver)
		}
	default:
		return fmt.Errorf("Index.Driver: unsupported driver %q", c.Index.Driver)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("Telemetry.SampleRatio must be within [0, 1]")
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("RateLimit.Burst must not be negative")
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("RateLimit.Burst must be positive when throttling is enabled")
	}
	for _, entry := range c.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if _, _, err := net.ParseCIDR(entry); err != nil {
				return fmt.Errorf("TrustedProxies: %w", err)
			}
			continue
		}
		if net.ParseIP(entry) == nil {
			return fmt.Errorf("TrustedProxies: invalid address %q", entry)
		}
	}
	return nil
}
