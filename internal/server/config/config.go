// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay and command-line flags.
package config

import "time"

// Config holds runtime settings for the Gatekeeper server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the public gRPC endpoint.
//   - MetricsAddr: bind address of the Prometheus /metrics endpoint, empty disables it.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps accounts in memory.
//   - SecretKey: HMAC secret for signing session tokens (HS256).
//   - SessionTTL: lifetime of a session token and its binding.
//   - CredentialSalt: process-wide salt of the credential digest.
//   - MachineID: id allocator machine id in [0,31], -1 derives it from the host.
//   - DefaultCredential: credential given to accounts created by an administrator.
//   - RedisAddr: Redis address for session bindings. Empty keeps them in memory.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: avatar storage.
//   - LogLevel: debug, info, warn or error.
//   - AdminHandle / AdminCredential: bootstrap administrator, file only.
type Config struct {
	EndpointAddrGRPC  string
	MetricsAddr       string
	DatabaseDSN       string
	SecretKey         string
	SessionTTL        time.Duration
	CredentialSalt    string
	MachineID         int64
	DefaultCredential string
	RedisAddr         string
	S3RootUser        string
	S3RootPassword    string
	S3Bucket          string
	S3Region          string
	S3BaseEndpoint    string
	LogLevel          string
	AdminHandle       string
	AdminCredential   string
}

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.MetricsAddr = ":9090"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.SessionTTL = 30 * time.Minute
	c.CredentialSalt = "gatekeeper"
	c.MachineID = -1
	c.DefaultCredential = "12345678"
	c.RedisAddr = ""
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "avatars"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
