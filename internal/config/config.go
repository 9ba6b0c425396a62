// Package config loads the service configuration from an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/compositor"
	"github.com/rishabh00712/sheet-base-pdf-cover-arranger/internal/logging"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrMissingEnvVar  = errors.New("missing environment variable")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COVERSPREAD_"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig        `yaml:"server"`
	Template TemplateConfig      `yaml:"template"`
	Log      logging.Config      `yaml:"log"`
	Geometry compositor.Geometry `yaml:"geometry"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Port           string        `yaml:"port"`
	Mode           string        `yaml:"mode"` // debug, release or test
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	ShutdownGrace  time.Duration `yaml:"shutdown_grace"`
}

// TemplateConfig locates the cover template.
type TemplateConfig struct {
	Path string `yaml:"path"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "4000",
			Mode:           "debug",
			AllowedOrigins: []string{"http://localhost:5173"},
			MaxUploadBytes: 64 << 20,
			Timeout:        30 * time.Second,
			MaxConcurrent:  4,
			ShutdownGrace:  10 * time.Second,
		},
		Template: TemplateConfig{
			Path: "public/pdfs/cover_image.pdf",
		},
		Log:      logging.DefaultConfig(),
		Geometry: compositor.DefaultGeometry(),
	}
}

// Load reads path, if not empty, over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.parse(data); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(data []byte) error {
	expanded, err := ExpandEnv(string(data))
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// applyEnv overrides fields from COVERSPREAD_* variables. PORT and
// GIN_MODE are honoured too since hosting platforms set them.
func (c *Config) applyEnv() error {
	if v, ok := lookup("PORT"); ok {
		c.Server.Port = v
	}
	if v, ok := lookup("GIN_MODE"); ok {
		c.Server.Mode = v
	}

	strs := map[string]*string{
		EnvPrefix + "PORT":       &c.Server.Port,
		EnvPrefix + "MODE":       &c.Server.Mode,
		EnvPrefix + "TEMPLATE":   &c.Template.Path,
		EnvPrefix + "LOG_LEVEL":  &c.Log.Level,
		EnvPrefix + "LOG_FORMAT": &c.Log.Format,
	}
	for key, field := range strs {
		if v, ok := lookup(key); ok {
			*field = v
		}
	}

	if v, ok := lookup(EnvPrefix + "CORS_ORIGINS"); ok {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_UPLOAD_BYTES: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Server.MaxUploadBytes = n
	}
	if v, ok := lookup(EnvPrefix + "MAX_CONCURRENT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_CONCURRENT: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Server.MaxConcurrent = n
	}
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sTIMEOUT: %v", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Server.Timeout = d
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port == "" {
		problems = append(problems, "server.port is required")
	} else if _, err := strconv.Atoi(c.Server.Port); err != nil {
		problems = append(problems, fmt.Sprintf("server.port %q is not a number", c.Server.Port))
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		problems = append(problems, fmt.Sprintf("server.mode %q must be debug, release or test", c.Server.Mode))
	}
	if c.Server.MaxUploadBytes <= 0 {
		problems = append(problems, "server.max_upload_bytes must be positive")
	}
	if c.Server.Timeout <= 0 {
		problems = append(problems, "server.timeout must be positive")
	}
	if c.Server.MaxConcurrent <= 0 {
		problems = append(problems, "server.max_concurrent must be positive")
	}
	if c.Template.Path == "" {
		problems = append(problems, "template.path is required")
	}
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q is not a level", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	if err := c.Geometry.Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
