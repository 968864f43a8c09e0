package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

// AnalyzerConfig points at the push-up video analysis service.
type AnalyzerConfig struct {
	URL string `yaml:"url"`
}

// OracleConfig points at the goal suggestion service.
type OracleConfig struct {
	URL string `yaml:"url"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix HACKLYTICS_ and underscore-separated paths:
//
//	HACKLYTICS_SERVER_HOST, HACKLYTICS_SERVER_PORT,
//	HACKLYTICS_DB_HOST, HACKLYTICS_DB_PORT, HACKLYTICS_DB_NAME,
//	HACKLYTICS_DB_USER, HACKLYTICS_DB_PASSWORD, HACKLYTICS_DB_SSLMODE,
//	HACKLYTICS_AUTH_API_KEY, HACKLYTICS_ANALYZER_URL, HACKLYTICS_ORACLE_URL
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HACKLYTICS_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("HACKLYTICS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("HACKLYTICS_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("HACKLYTICS_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("HACKLYTICS_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("HACKLYTICS_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("HACKLYTICS_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("HACKLYTICS_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("HACKLYTICS_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("HACKLYTICS_ANALYZER_URL"); v != "" {
		cfg.Analyzer.URL = v
	}
	if v := os.Getenv("HACKLYTICS_ORACLE_URL"); v != "" {
		cfg.Oracle.URL = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if c.Analyzer.URL == "" {
		return fmt.Errorf("analyzer.url is required")
	}
	if c.Oracle.URL == "" {
		return fmt.Errorf("oracle.url is required")
	}
	return nil
}
