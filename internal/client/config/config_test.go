package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:6666", c.ServerEndpointAddr)
	assert.Equal(t, "127.0.0.1:8556", c.RegistrationEndpointAddr)
	assert.Equal(t, 9899, c.ChatPort)
	assert.Equal(t, "downloads", c.DownloadDir)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"server_endpoint_addr": "json:1",
		"chat_port":            7000,
	})
	os.Args = []string{"cli", "-c", path, "-a", "flag:2"}

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "flag:2", cfg.ServerEndpointAddr)
	assert.Equal(t, 7000, cfg.ChatPort)
	assert.Equal(t, "127.0.0.1:8556", cfg.RegistrationEndpointAddr)
}
