package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd", "-a", "10.0.0.1:6666", "-r", "10.0.0.1:8556", "-p", "9900", "-d", "/tmp/dl", "-t", "5"},
			expected: &Config{
				ServerEndpointAddr:       "10.0.0.1:6666",
				RegistrationEndpointAddr: "10.0.0.1:8556",
				ChatPort:                 9900,
				DownloadDir:              "/tmp/dl",
				RequestTimeout:           5 * time.Second,
			},
		},
		{
			name:     "unknown flags are ignored",
			args:     []string{"cmd", "-c", "cfg.json", "-x", "1", "-a", "host:1"},
			expected: &Config{ServerEndpointAddr: "host:1"},
		},
		{name: "incorrect port", args: []string{"cmd", "-p", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}
