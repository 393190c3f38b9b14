package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/turing/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   address and port of the editing server
//	-r string   address and port of the registration service
//	-p int      chat UDP port
//	-d string   download directory
//	-t int      request timeout (seconds)
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-r", "-p", "-d", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.RegistrationEndpointAddr, "r", cfg.RegistrationEndpointAddr, "address and port of the registration service")
	fs.IntVar(&cfg.ChatPort, "p", cfg.ChatPort, "chat UDP port")
	fs.StringVar(&cfg.DownloadDir, "d", cfg.DownloadDir, "directory for downloaded sections")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
