// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/turing/internal/common"
)

// Storage backends.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Config holds runtime settings for the TURING server.
//
// Fields:
//   - EndpointAddrTCP: bind address of the editing protocol.
//   - EndpointAddrGRPC: bind address of the registration service.
//   - EndpointAddrMetrics: bind address of the /metrics endpoint; empty disables it.
//   - MaxSessions: number of sessions served at once.
//   - SessionIdleTimeout: idle sessions are dropped after this long; zero disables it.
//   - ShutdownTimeout: how long shutdown waits for sessions to finish.
//   - MaxSectionSize: largest section upload accepted, in bytes.
//   - StorageBackend / StorageRoot: where section content lives ("fs" directory or "s3" key prefix).
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: S3 settings.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	EndpointAddrTCP     string
	EndpointAddrGRPC    string
	EndpointAddrMetrics string
	MaxSessions         int
	SessionIdleTimeout  time.Duration
	ShutdownTimeout     time.Duration
	MaxSectionSize      int64
	StorageBackend      string
	StorageRoot         string
	S3RootUser          string
	S3RootPassword      string
	S3Bucket            string
	S3Region            string
	S3BaseEndpoint      string
	LogLevel            string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrTCP = ":6666"
	c.EndpointAddrGRPC = ":8556"
	c.EndpointAddrMetrics = ":9100"
	c.MaxSessions = common.MaxSessions
	c.SessionIdleTimeout = 0
	c.ShutdownTimeout = 10 * time.Second
	c.MaxSectionSize = common.MaxSectionSize
	c.StorageBackend = StorageFS
	c.StorageRoot = common.DocumentsDirName
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "turing"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
