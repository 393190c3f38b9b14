package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/turing/internal/flagx"
	"github.com/dmitrijs2005/turing/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "90s" style
// strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrTCP     string         `json:"endpoint_addr_tcp"`
	EndpointAddrGRPC    string         `json:"endpoint_addr_grpc"`
	EndpointAddrMetrics string         `json:"endpoint_addr_metrics"`
	MaxSessions         int            `json:"max_sessions"`
	SessionIdleTimeout  timex.Duration `json:"session_idle_timeout"`
	ShutdownTimeout     timex.Duration `json:"shutdown_timeout"`
	MaxSectionSize      int64          `json:"max_section_size"`
	StorageBackend      string         `json:"storage_backend"`
	StorageRoot         string         `json:"storage_root"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	LogLevel            string         `json:"log_level"`
}

// parseJson overlays Config with the JSON file named by -c or -config.
// Keys missing from the file keep their current values. Unreadable or
// invalid files panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{
		EndpointAddrTCP:     config.EndpointAddrTCP,
		EndpointAddrGRPC:    config.EndpointAddrGRPC,
		EndpointAddrMetrics: config.EndpointAddrMetrics,
		MaxSessions:         config.MaxSessions,
		SessionIdleTimeout:  timex.Duration{Duration: config.SessionIdleTimeout},
		ShutdownTimeout:     timex.Duration{Duration: config.ShutdownTimeout},
		MaxSectionSize:      config.MaxSectionSize,
		StorageBackend:      config.StorageBackend,
		StorageRoot:         config.StorageRoot,
		S3RootUser:          config.S3RootUser,
		S3RootPassword:      config.S3RootPassword,
		S3Bucket:            config.S3Bucket,
		S3Region:            config.S3Region,
		S3BaseEndpoint:      config.S3BaseEndpoint,
		LogLevel:            config.LogLevel,
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrTCP = c.EndpointAddrTCP
	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.EndpointAddrMetrics = c.EndpointAddrMetrics
	config.MaxSessions = c.MaxSessions
	config.SessionIdleTimeout = c.SessionIdleTimeout.Duration
	config.ShutdownTimeout = c.ShutdownTimeout.Duration
	config.MaxSectionSize = c.MaxSectionSize
	config.StorageBackend = c.StorageBackend
	config.StorageRoot = c.StorageRoot
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.LogLevel = c.LogLevel
}
