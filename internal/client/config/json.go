package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/turing/internal/flagx"
	"github.com/dmitrijs2005/turing/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. The timeout
// accepts strings like "30s" or integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr       string         `json:"server_endpoint_addr"`
	RegistrationEndpointAddr string         `json:"registration_endpoint_addr"`
	ChatPort                 int            `json:"chat_port"`
	DownloadDir              string         `json:"download_dir"`
	RequestTimeout           timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with the JSON file named by -c or -config. Keys
// missing from the file keep their current values. Read or unmarshal errors
// panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	jc := JsonConfig{
		ServerEndpointAddr:       cfg.ServerEndpointAddr,
		RegistrationEndpointAddr: cfg.RegistrationEndpointAddr,
		ChatPort:                 cfg.ChatPort,
		DownloadDir:              cfg.DownloadDir,
		RequestTimeout:           timex.Duration{Duration: cfg.RequestTimeout},
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.RegistrationEndpointAddr = jc.RegistrationEndpointAddr
	cfg.ChatPort = jc.ChatPort
	cfg.DownloadDir = jc.DownloadDir
	cfg.RequestTimeout = jc.RequestTimeout.Duration
}
