// Package config loads gameshelf settings from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ryanm101/gameshelf/internal/catalog"
	"github.com/ryanm101/gameshelf/internal/library"
	"github.com/ryanm101/gameshelf/internal/logging"
	"github.com/ryanm101/gameshelf/internal/tracing"
)

// Config holds application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
	Safety  SafetyConfig  `yaml:"safety" json:"safety"`
	Library LibraryConfig `yaml:"library" json:"library"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// CatalogConfig selects and tunes the game catalog provider.
type CatalogConfig struct {
	Provider  string        `yaml:"provider" json:"provider"` // rawg or igdb
	BaseURL   string        `yaml:"base_url" json:"base_url"`
	APIKey    string        `yaml:"api_key" json:"-"`
	PageSize  int           `yaml:"page_size" json:"page_size"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
	RateLimit float64       `yaml:"rate_limit" json:"rate_limit"` // requests per second, 0 = unlimited
	IGDB      IGDBConfig    `yaml:"igdb" json:"igdb"`
}

// IGDBConfig holds Twitch application credentials.
type IGDBConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
}

// SafetyConfig extends the built-in content blocklist.
type SafetyConfig struct {
	ExtraTags []string `yaml:"extra_tags" json:"extra_tags"`
}

// LibraryConfig locates the persisted library.
type LibraryConfig struct {
	Backend string `yaml:"backend" json:"backend"` // sqlite or file
	Path    string `yaml:"path" json:"path"`
	Key     string `yaml:"key" json:"key"`
}

// LoggingConfig mirrors logging.Config in YAML form.
type LoggingConfig struct {
	Format     string `yaml:"format" json:"format"`
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// TracingConfig holds the OTLP collector endpoint. Empty disables tracing.
type TracingConfig struct {
	Endpoint string `yaml:"endpoint" json:"endpoint"`
}

// MetricsConfig holds the Prometheus listen address. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

const (
	defaultProvider = "rawg"
	defaultBackend  = "sqlite"
	defaultDBPath   = "gameshelf.db"
)

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	lc := logging.DefaultConfig()
	return &Config{
		Catalog: CatalogConfig{
			Provider: defaultProvider,
			BaseURL:  catalog.DefaultBaseURL,
			PageSize: catalog.DefaultPageSize,
			Timeout:  catalog.DefaultTimeout,
		},
		Library: LibraryConfig{
			Backend: defaultBackend,
			Path:    defaultDBPath,
			Key:     library.DefaultKey,
		},
		Logging: LoggingConfig{
			Format:     lc.Format,
			Level:      lc.Level,
			MaxSize:    lc.MaxSize,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAge,
		},
		Tracing: TracingConfig{Endpoint: tracing.DefaultConfig().Endpoint},
	}
}

// configPaths returns the list of paths to search for config file.
func configPaths() []string {
	paths := []string{
		".gameshelf.yaml",
		".gameshelf.yml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "gameshelf", "config.yaml"),
			filepath.Join(home, ".config", "gameshelf", "config.yml"),
			filepath.Join(home, ".gameshelf.yaml"),
		)
	}

	return paths
}

// Load loads configuration from file or returns defaults.
// Priority: env GAMESHELF_CONFIG > search paths > defaults, then env overrides.
func Load() (*Config, error) {
	cfg, _, err := LoadWithPath()
	return cfg, err
}

// LoadWithPath is Load that also reports which file was read ("" for none).
func LoadWithPath() (*Config, string, error) {
	cfg := DefaultConfig()

	if envPath := os.Getenv("GAMESHELF_CONFIG"); envPath != "" {
		if err := cfg.loadFromFile(envPath); err != nil {
			return nil, "", err
		}
		cfg.applyEnvOverrides()
		return cfg, envPath, nil
	}

	var used string
	for _, path := range configPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := cfg.loadFromFile(path); err != nil {
				return nil, "", err
			}
			used = path
			break
		}
	}

	cfg.applyEnvOverrides()
	return cfg, used, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GAMESHELF_DB"); v != "" {
		c.Library.Path = v
	}
	if v := os.Getenv("GAMESHELF_API_KEY"); v != "" {
		c.Catalog.APIKey = v
	}
	if v := os.Getenv("GAMESHELF_CATALOG_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("IGDB_CLIENT_ID"); v != "" {
		c.Catalog.IGDB.ClientID = v
	}
	if v := os.Getenv("IGDB_CLIENT_SECRET"); v != "" {
		c.Catalog.IGDB.ClientSecret = v
	}
}

// Validate reports every setting that cannot work.
func (c *Config) Validate() error {
	var errs []error

	switch c.GetProvider() {
	case "rawg":
	case "igdb":
		if c.Catalog.IGDB.ClientID == "" || c.Catalog.IGDB.ClientSecret == "" {
			errs = append(errs, errors.New("catalog.igdb: client_id and client_secret are required"))
		}
	default:
		errs = append(errs, fmt.Errorf("catalog.provider: unknown provider %q", c.Catalog.Provider))
	}
	if c.Catalog.PageSize < 0 {
		errs = append(errs, fmt.Errorf("catalog.page_size: must not be negative, got %d", c.Catalog.PageSize))
	}
	if c.Catalog.Timeout < 0 {
		errs = append(errs, fmt.Errorf("catalog.timeout: must not be negative, got %s", c.Catalog.Timeout))
	}
	if c.Catalog.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("catalog.rate_limit: must not be negative, got %v", c.Catalog.RateLimit))
	}

	switch c.GetBackend() {
	case "sqlite", "file":
	default:
		errs = append(errs, fmt.Errorf("library.backend: unknown backend %q", c.Library.Backend))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// GetProvider returns the catalog provider name, applying defaults.
func (c *Config) GetProvider() string {
	if p := strings.ToLower(strings.TrimSpace(c.Catalog.Provider)); p != "" {
		return p
	}
	return defaultProvider
}

// GetBackend returns the library storage backend, applying defaults.
func (c *Config) GetBackend() string {
	if b := strings.ToLower(strings.TrimSpace(c.Library.Backend)); b != "" {
		return b
	}
	return defaultBackend
}

// GetLibraryPath returns the database file or directory, applying defaults.
func (c *Config) GetLibraryPath() string {
	if c.Library.Path != "" {
		return c.Library.Path
	}
	if c.GetBackend() == "file" {
		return "gameshelf-data"
	}
	return defaultDBPath
}

// GetLibraryKey returns the storage key of the collection.
func (c *Config) GetLibraryKey() string {
	if c.Library.Key != "" {
		return c.Library.Key
	}
	return library.DefaultKey
}

// GetPageSize returns the catalog page size, applying defaults.
func (c *Config) GetPageSize() int {
	if c.Catalog.PageSize > 0 {
		return c.Catalog.PageSize
	}
	return catalog.DefaultPageSize
}

// GetTimeout returns the catalog request timeout, applying defaults.
func (c *Config) GetTimeout() time.Duration {
	if c.Catalog.Timeout > 0 {
		return c.Catalog.Timeout
	}
	return catalog.DefaultTimeout
}

// LoggingConfig converts the logging section for logging.Setup.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Format:     c.Logging.Format,
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
		Compress:   c.Logging.Compress,
	}
}

// TracingConfig converts the tracing section for tracing.Setup.
func (c *Config) TracingConfig() tracing.Config {
	return tracing.Config{
		Enabled:  c.Tracing.Endpoint != "",
		Endpoint: c.Tracing.Endpoint,
	}
}

// Example is the file written by "gameshelf config init".
const Example = `# gameshelf configuration
catalog:
  provider: rawg          # rawg or igdb
  base_url: https://api.rawg.io/api
  api_key: ""             # or GAMESHELF_API_KEY
  page_size: 40
  timeout: 15s
  rate_limit: 0           # requests per second, 0 = unlimited
  igdb:
    client_id: ""         # or IGDB_CLIENT_ID
    client_secret: ""     # or IGDB_CLIENT_SECRET

safety:
  extra_tags: []          # slugs blocked in addition to the built-in list

library:
  backend: sqlite         # sqlite or file
  path: gameshelf.db      # or GAMESHELF_DB
  key: "@game_library"

logging:
  level: info             # debug, info, warn, error
  format: text            # text or json
  file: ""                # rotate logs into this file when set

tracing:
  endpoint: ""            # OTLP gRPC collector, e.g. localhost:4317

metrics:
  addr: ""                # e.g. :9090 to serve /metrics
`
