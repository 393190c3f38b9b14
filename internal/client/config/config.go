package config

import "time"

// Config holds runtime settings for the CLI.
//
// Units: RequestTimeout bounds one command exchange with the server.
type Config struct {
	ServerEndpointAddr       string
	RegistrationEndpointAddr string
	ChatPort                 int
	DownloadDir              string
	RequestTimeout           time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:6666"
	c.RegistrationEndpointAddr = "127.0.0.1:8556"
	c.ChatPort = 9899
	c.DownloadDir = "downloads"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig applies defaults, then the JSON file (if any), then flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
