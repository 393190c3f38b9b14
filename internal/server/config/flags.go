package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/turing/internal/flagx"
)

// parseFlags overlays Config with command-line flags.
//
//	-a string   editing protocol bind address
//	-r string   registration (gRPC) bind address
//	-m string   metrics bind address, empty disables
//	-n int      max concurrent sessions
//	-t int      session idle timeout, minutes (0 disables)
//	-w int      shutdown timeout, seconds
//	-k int      max section upload, KiB
//	-s string   storage backend: fs or s3
//	-d string   storage root (directory or key prefix)
//	-l string   log level
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-r", "-m", "-n", "-t", "-w", "-k", "-s", "-d", "-l", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrTCP, "a", config.EndpointAddrTCP, "address and port of the editing protocol")
	fs.StringVar(&config.EndpointAddrGRPC, "r", config.EndpointAddrGRPC, "address and port of the registration service")
	fs.StringVar(&config.EndpointAddrMetrics, "m", config.EndpointAddrMetrics, "address and port of the metrics endpoint")
	fs.IntVar(&config.MaxSessions, "n", config.MaxSessions, "max concurrent sessions")

	idleTimeout := fs.Int("t", int(config.SessionIdleTimeout.Minutes()), "session idle timeout (in minutes)")
	shutdownTimeout := fs.Int("w", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")
	maxSection := fs.Int64("k", config.MaxSectionSize>>10, "max section upload (in KiB)")

	fs.StringVar(&config.StorageBackend, "s", config.StorageBackend, "storage backend (fs|s3)")
	fs.StringVar(&config.StorageRoot, "d", config.StorageRoot, "storage root")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionIdleTimeout = time.Duration(*idleTimeout) * time.Minute
	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
	config.MaxSectionSize = *maxSection << 10
}
