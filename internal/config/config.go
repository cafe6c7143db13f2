package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/atlas-packer/internal/packing"
	"github.com/eugenenazirov/atlas-packer/internal/storage"
)

const (
	defaultPort           = "8080"
	defaultCanvasHeight   = 320
	defaultCanvasWidth    = 320
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	Port                 string        `yaml:"port"`
	DefaultCanvasHeight  int           `yaml:"-"`
	DefaultCanvasWidth   int           `yaml:"-"`
	ContactDepth         int           `yaml:"-"`
	MaxCanvasArea        int           `yaml:"-"`
	MaxCanvases          int           `yaml:"-"`
	ShutdownGracePeriod  time.Duration `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    time.Duration `yaml:"read_header_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	IdleTimeout          time.Duration `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimitRPS         float64       `yaml:"-"`
	RateLimitBurst       int           `yaml:"-"`
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Port                 string        `yaml:"port"`
	Canvas               yamlCanvas    `yaml:"canvas"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging bool          `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
}

// yamlCanvas represents the canvas section in YAML.
type yamlCanvas struct {
	Height       int `yaml:"height"`
	Width        int `yaml:"width"`
	ContactDepth int `yaml:"contact_depth"`
	MaxArea      int `yaml:"max_area"`
	MaxCanvases  int `yaml:"max_canvases"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	CanvasHeight   *int
	CanvasWidth    *int
	ContactDepth   *int
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		applyYAMLConfig(&cfg, yamlCfg)
	}

	// Apply environment variables (override YAML)
	applyEnvConfig(&cfg)

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                 defaultPort,
		DefaultCanvasHeight:  defaultCanvasHeight,
		DefaultCanvasWidth:   defaultCanvasWidth,
		ContactDepth:         packing.DefaultContactDepth,
		MaxCanvasArea:        storage.DefaultMaxArea,
		MaxCanvases:          storage.DefaultMaxCanvases,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*yamlConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) {
	if yamlCfg.Port != "" {
		cfg.Port = yamlCfg.Port
	}

	if yamlCfg.Canvas.Height > 0 {
		cfg.DefaultCanvasHeight = yamlCfg.Canvas.Height
	}

	if yamlCfg.Canvas.Width > 0 {
		cfg.DefaultCanvasWidth = yamlCfg.Canvas.Width
	}

	if yamlCfg.Canvas.ContactDepth > 0 {
		cfg.ContactDepth = yamlCfg.Canvas.ContactDepth
	}

	if yamlCfg.Canvas.MaxArea > 0 {
		cfg.MaxCanvasArea = yamlCfg.Canvas.MaxArea
	}

	if yamlCfg.Canvas.MaxCanvases > 0 {
		cfg.MaxCanvases = yamlCfg.Canvas.MaxCanvases
	}

	if yamlCfg.ShutdownGracePeriod != "" {
		if d, err := time.ParseDuration(yamlCfg.ShutdownGracePeriod); err == nil {
			cfg.ShutdownGracePeriod = d
		}
	}

	if yamlCfg.ReadHeaderTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.ReadHeaderTimeout); err == nil {
			cfg.ReadHeaderTimeout = d
		}
	}

	if yamlCfg.WriteTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.WriteTimeout); err == nil {
			cfg.WriteTimeout = d
		}
	}

	if yamlCfg.IdleTimeout != "" {
		if d, err := time.ParseDuration(yamlCfg.IdleTimeout); err == nil {
			cfg.IdleTimeout = d
		}
	}

	cfg.EnableRequestLogging = yamlCfg.EnableRequestLogging

	if yamlCfg.RateLimit.RPS >= 0 {
		cfg.RateLimitRPS = yamlCfg.RateLimit.RPS
	}

	if yamlCfg.RateLimit.Burst >= 0 {
		cfg.RateLimitBurst = yamlCfg.RateLimit.Burst
	}
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if height := strings.TrimSpace(os.Getenv("CANVAS_HEIGHT")); height != "" {
		if value, err := strconv.Atoi(height); err == nil && value > 0 {
			cfg.DefaultCanvasHeight = value
		}
	}

	if width := strings.TrimSpace(os.Getenv("CANVAS_WIDTH")); width != "" {
		if value, err := strconv.Atoi(width); err == nil && value > 0 {
			cfg.DefaultCanvasWidth = value
		}
	}

	if depth := strings.TrimSpace(os.Getenv("CONTACT_DEPTH")); depth != "" {
		if value, err := strconv.Atoi(depth); err == nil && value > 0 {
			cfg.ContactDepth = value
		}
	}

	if area := strings.TrimSpace(os.Getenv("MAX_CANVAS_AREA")); area != "" {
		if value, err := strconv.Atoi(area); err == nil && value > 0 {
			cfg.MaxCanvasArea = value
		}
	}

	if count := strings.TrimSpace(os.Getenv("MAX_CANVASES")); count != "" {
		if value, err := strconv.Atoi(count); err == nil && value > 0 {
			cfg.MaxCanvases = value
		}
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}
}

// applyCLIOverrides applies command-line flag overrides. Values are applied
// as given; validateConfig rejects anything out of range so explicit flags
// fail loudly instead of being silently ignored.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.CanvasHeight != nil && *overrides.CanvasHeight != 0 {
		cfg.DefaultCanvasHeight = *overrides.CanvasHeight
	}

	if overrides.CanvasWidth != nil && *overrides.CanvasWidth != 0 {
		cfg.DefaultCanvasWidth = *overrides.CanvasWidth
	}

	if overrides.ContactDepth != nil && *overrides.ContactDepth != 0 {
		cfg.ContactDepth = *overrides.ContactDepth
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.DefaultCanvasHeight < 1 || cfg.DefaultCanvasWidth < 1 {
		return fmt.Errorf("canvas dimensions must be positive")
	}
	if cfg.ContactDepth < 1 {
		return fmt.Errorf("contact depth must be >= 1")
	}
	if cfg.MaxCanvasArea < 1 || cfg.MaxCanvases < 1 {
		return fmt.Errorf("canvas limits must be >= 1")
	}
	if cfg.DefaultCanvasHeight*cfg.DefaultCanvasWidth > cfg.MaxCanvasArea {
		return fmt.Errorf("default canvas area %d exceeds MAX_CANVAS_AREA %d",
			cfg.DefaultCanvasHeight*cfg.DefaultCanvasWidth, cfg.MaxCanvasArea)
	}
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	return nil
}
