// Package config loads runtime configuration for the Gatekeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file (see parseFile) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      online status check interval (seconds)
//	-t int      request timeout (seconds)
//
// # File schema
//
//	server_endpoint_addr: 127.0.0.1:50051
//	online_check_interval: 3s
//	request_timeout: 10s
package config
