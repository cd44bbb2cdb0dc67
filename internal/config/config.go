package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	JWT     JWTConfig     `yaml:"jwt"`
	Auth    AuthConfig    `yaml:"auth"`
	Data    DataConfig    `yaml:"data"`
	Storage StorageConfig `yaml:"storage"`
	Upload  UploadConfig  `yaml:"upload"`
	Static  StaticConfig  `yaml:"static"`
	S3      S3Config      `yaml:"s3"`
}

type ServerConfig struct {
	Host string    `yaml:"host"`
	Port string    `yaml:"port"`
	TLS  TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type JWTConfig struct {
	SecretKey string `yaml:"secret_key"`
	Expiry    string `yaml:"expiry"`
}

type AuthConfig struct {
	UsersFile string `yaml:"users_file"`
}

type DataConfig struct {
	Dir string `yaml:"dir"`
}

type StorageConfig struct {
	Type string `yaml:"type"`
}

type UploadConfig struct {
	Dir          string   `yaml:"dir"`
	MaxSizeMB    int64    `yaml:"max_size_mb"`
	AllowedTypes []string `yaml:"allowed_types"`
}

type StaticConfig struct {
	Root string `yaml:"root"`
}

type S3Config struct {
	Endpoint   string `yaml:"endpoint"`
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	PathPrefix string `yaml:"path_prefix"`
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8000"
	}
	if c.JWT.Expiry == "" {
		c.JWT.Expiry = "24h"
	}
	if c.Data.Dir == "" {
		c.Data.Dir = "data"
	}
	if c.Auth.UsersFile == "" {
		c.Auth.UsersFile = c.Data.Dir + "/users.json"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Upload.Dir == "" {
		c.Upload.Dir = "uploads"
	}
	if c.Upload.MaxSizeMB == 0 {
		c.Upload.MaxSizeMB = 5
	}
	if len(c.Upload.AllowedTypes) == 0 {
		c.Upload.AllowedTypes = []string{
			"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp",
		}
	}
	if c.Static.Root == "" {
		c.Static.Root = "html"
	}
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" || containsPlaceholder(c.JWT.SecretKey) {
		return fmt.Errorf("jwt secret_key must be set (no placeholders allowed)")
	}

	if _, err := time.ParseDuration(c.JWT.Expiry); err != nil {
		return fmt.Errorf("invalid jwt expiry: %w", err)
	}

	switch c.Storage.Type {
	case "local":
	case "s3":
		if c.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required for s3 storage")
		}
		if containsPlaceholder(c.S3.AccessKey) || containsPlaceholder(c.S3.SecretKey) {
			return fmt.Errorf("s3 access_key and secret_key must be set (no placeholders)")
		}
	default:
		return fmt.Errorf("unknown storage type: %s", c.Storage.Type)
	}

	return nil
}

func (c *Config) GetJWTExpiry() (time.Duration, error) {
	return time.ParseDuration(c.JWT.Expiry)
}

func (c *Config) MaxUploadBytes() int64 {
	return c.Upload.MaxSizeMB * 1024 * 1024
}

func containsPlaceholder(s string) bool {
	placeholders := []string{"CHANGE_ME", "YOUR_VALUE_HERE", "REQUIRED", "PLACEHOLDER", "CHANGEME"}
	for _, p := range placeholders {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
