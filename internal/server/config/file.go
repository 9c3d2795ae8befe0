package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gatekeeper/internal/flagx"
	"github.com/dmitrijs2005/gatekeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the layout of the config file. Durations accept "30m" or
// integer nanoseconds. Absent keys leave the current value untouched.
type FileConfig struct {
	EndpointAddrGRPC  string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	MetricsAddr       string         `json:"metrics_addr" yaml:"metrics_addr"`
	DatabaseDSN       string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey         string         `json:"secret_key" yaml:"secret_key"`
	SessionTTL        timex.Duration `json:"session_ttl" yaml:"session_ttl"`
	CredentialSalt    string         `json:"credential_salt" yaml:"credential_salt"`
	MachineID         *int64         `json:"machine_id" yaml:"machine_id"`
	DefaultCredential string         `json:"default_credential" yaml:"default_credential"`
	RedisAddr         string         `json:"redis_addr" yaml:"redis_addr"`
	S3RootUser        string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword    string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket          string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region          string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint    string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel          string         `json:"log_level" yaml:"log_level"`
	AdminHandle       string         `json:"admin_handle" yaml:"admin_handle"`
	AdminCredential   string         `json:"admin_credential" yaml:"admin_credential"`
}

func decodeFile(path string, data []byte, c *FileConfig) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	default:
		return json.Unmarshal(data, c)
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// parseFile overlays the file named by -c/-config onto config. A missing
// flag loads nothing; an unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	if err := decodeFile(path, data, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionTTL.Duration > 0 {
		config.SessionTTL = c.SessionTTL.Duration
	}
	setString(&config.CredentialSalt, c.CredentialSalt)
	if c.MachineID != nil {
		config.MachineID = *c.MachineID
	}
	setString(&config.DefaultCredential, c.DefaultCredential)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.AdminHandle, c.AdminHandle)
	setString(&config.AdminCredential, c.AdminCredential)
}
