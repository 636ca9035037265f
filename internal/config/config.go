// Package config loads the daemon configuration. Precedence, lowest to
// highest: built-in defaults, an optional YAML file, environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the full daemon configuration.
type Config struct {
	Server  Server  `yaml:"server" validate:"required"`
	Solver  Solver  `yaml:"solver" validate:"required"`
	Logging Logging `yaml:"logging" validate:"required"`
}

// Server configures the HTTP listener.
type Server struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
	MaxRequestBytes int64         `yaml:"maxRequestBytes" validate:"gt=0"`
}

// Addr returns the host:port listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Solver selects the linear-solver backend and tracing behavior.
type Solver struct {
	Backend string `yaml:"backend" validate:"oneof=dense sparse"`
	Trace   bool   `yaml:"trace"`
}

// Logging configures the zap logger.
type Logging struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

var validate = validator.New()

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxRequestBytes: 4 * 1024 * 1024,
		},
		Solver: Solver{
			Backend: "dense",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and environment variables apply; a named file must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PHASORNET_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PHASORNET_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PHASORNET_SOLVER_BACKEND"); v != "" {
		cfg.Solver.Backend = v
	}
	if v := os.Getenv("PHASORNET_SOLVER_TRACE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Solver.Trace = b
		}
	}
	if v := os.Getenv("PHASORNET_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PHASORNET_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
