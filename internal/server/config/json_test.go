package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	full := writeTempJSON(t, "", "full.json", map[string]any{
		"endpoint_addr_tcp":     ":7000",
		"endpoint_addr_grpc":    ":7001",
		"endpoint_addr_metrics": "",
		"max_sessions":          12,
		"session_idle_timeout":  "30m",
		"shutdown_timeout":      2000000000,
		"max_section_size":      4096,
		"storage_backend":       "s3",
		"storage_root":          "prefix",
		"s3_root_user":          "user",
		"s3_root_password":      "password",
		"s3_bucket":             "bucket",
		"s3_region":             "region",
		"s3_base_endpoint":      "base_endpoint",
		"log_level":             "warn",
	})

	t.Run("loads every field", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, ":7000", cfg.EndpointAddrTCP)
		assert.Equal(t, ":7001", cfg.EndpointAddrGRPC)
		assert.Equal(t, "", cfg.EndpointAddrMetrics)
		assert.Equal(t, 12, cfg.MaxSessions)
		assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
		assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, int64(4096), cfg.MaxSectionSize)
		assert.Equal(t, "s3", cfg.StorageBackend)
		assert.Equal(t, "prefix", cfg.StorageRoot)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("missing keys keep current values", func(t *testing.T) {
		partial := writeTempJSON(t, "", "partial.json", map[string]any{"max_sessions": 3})
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, 3, cfg.MaxSessions)
		assert.Equal(t, ":6666", cfg.EndpointAddrTCP)
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	})

	t.Run("no config flag leaves config alone", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{EndpointAddrTCP: "keep:1"}
		parseJson(cfg)
		assert.Equal(t, &Config{EndpointAddrTCP: "keep:1"}, cfg)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(p, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", p}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
