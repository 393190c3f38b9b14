// Package config loads runtime configuration for the CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:6666",
//	  "registration_endpoint_addr": "127.0.0.1:8556",
//	  "chat_port": 9899,
//	  "download_dir": "downloads",
//	  "request_timeout": "30s"
//	}
package config
