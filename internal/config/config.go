// Package config loads the pdfarena server configuration from layered
// sources: built-in defaults, an optional YAML file, then PDFARENA_*
// environment variables. Later layers override earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"pdfarena.yaml",
	"pdfarena.yml",
	"/etc/pdfarena/config.yaml",
	"/etc/pdfarena/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "PDFARENA_CONFIG"

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Render  RenderConfig  `koanf:"render"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RenderConfig configures the render service shared by all backends.
type RenderConfig struct {
	Timeout     time.Duration `koanf:"timeout"`
	EngineBin   string        `koanf:"engine_bin"`
	PoolSize    int           `koanf:"pool_size"`
	AssetsDir   string        `koanf:"assets_dir"`
	FontPath    string        `koanf:"font_path"`
	Template    string        `koanf:"template"`
	PageSize    string        `koanf:"page_size"`
	Orientation string        `koanf:"orientation"`
	Margin      float64       `koanf:"margin"`
	OutputDir   string        `koanf:"output_dir"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // "json" or "console"
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			Timeout: 120 * time.Second,
		},
		Render: RenderConfig{
			Timeout:     30 * time.Second,
			EngineBin:   "",
			PoolSize:    0, // 0 = derive from GOMAXPROCS
			AssetsDir:   "",
			FontPath:    "",
			Template:    "",
			PageSize:    "letter",
			Orientation: "portrait",
			Margin:      0.5,
			OutputDir:   "out",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional config file and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("PDFARENA_", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields the server cannot sanely default.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Render.Timeout <= 0 {
		return fmt.Errorf("render timeout must be positive, got %s", c.Render.Timeout)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings translates PDFARENA_* variable names (prefix stripped,
// lowercased) to config paths. Unknown variables are ignored so unrelated
// environment entries never pollute the config.
var envMappings = map[string]string{
	"host":         "server.host",
	"port":         "server.port",
	"http_timeout": "server.timeout",

	"render_timeout": "render.timeout",
	"engine_bin":     "render.engine_bin",
	"pool_size":      "render.pool_size",
	"assets_dir":     "render.assets_dir",
	"font_path":      "render.font_path",
	"template":       "render.template",
	"page_size":      "render.page_size",
	"orientation":    "render.orientation",
	"margin":         "render.margin",
	"output_dir":     "render.output_dir",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "PDFARENA_"))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
