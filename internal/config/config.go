package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrorPolicy defines how the engine reacts to a per-asset transform failure
type ErrorPolicy string

const (
	// ErrorAbort fails the whole run on the first transform error and
	// commits nothing to the ledger (reference behavior).
	ErrorAbort ErrorPolicy = "abort"
	// ErrorSkip excludes the failed asset from the ledger update, keeps
	// processing the rest and reports the failures distinctly.
	ErrorSkip ErrorPolicy = "skip"
)

// Config represents the complete iconsyncd configuration
type Config struct {
	Paths PathsConfig `yaml:"paths"`
	Image ImageConfig `yaml:"image"`
	Sync  SyncConfig  `yaml:"sync"`
	Watch WatchConfig `yaml:"watch"`
	Serve ServeConfig `yaml:"serve"`
}

// PathsConfig configures the local filesystem trees
type PathsConfig struct {
	OriginalDir  string `yaml:"original_dir"`
	ProcessedDir string `yaml:"processed_dir"`
	StateDir     string `yaml:"state_dir"`
}

// ImageConfig configures the transform geometry and the asset filter
type ImageConfig struct {
	MaxWidth     int    `yaml:"max_width"`
	MaxHeight    int    `yaml:"max_height"`
	CanvasWidth  int    `yaml:"canvas_width"`
	CanvasHeight int    `yaml:"canvas_height"`
	Extension    string `yaml:"extension"`
}

// SyncConfig configures sync behavior
type SyncConfig struct {
	OnError ErrorPolicy `yaml:"on_error"`
}

// WatchConfig configures the local filesystem watch mode
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// ServeConfig configures the webhook trigger server
type ServeConfig struct {
	Enabled                 bool     `yaml:"enabled"`
	ListenAddr              string   `yaml:"listen_addr"`
	GitHubWebhookSecretFile string   `yaml:"github_webhook_secret_file"`
	AllowedEventTypes       []string `yaml:"allowed_event_types"`
	AllowedRefs             []string `yaml:"allowed_refs"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Paths.OriginalDir = os.ExpandEnv(c.Paths.OriginalDir)
	c.Paths.ProcessedDir = os.ExpandEnv(c.Paths.ProcessedDir)
	c.Paths.StateDir = os.ExpandEnv(c.Paths.StateDir)
	c.Serve.ListenAddr = os.ExpandEnv(c.Serve.ListenAddr)
	c.Serve.GitHubWebhookSecretFile = os.ExpandEnv(c.Serve.GitHubWebhookSecretFile)
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Image.MaxWidth == 0 {
		c.Image.MaxWidth = 250
	}
	if c.Image.MaxHeight == 0 {
		c.Image.MaxHeight = 250
	}
	if c.Image.CanvasWidth == 0 {
		c.Image.CanvasWidth = 256
	}
	if c.Image.CanvasHeight == 0 {
		c.Image.CanvasHeight = 256
	}
	if c.Image.Extension == "" {
		c.Image.Extension = ".png"
	}
	if c.Sync.OnError == "" {
		c.Sync.OnError = ErrorAbort
	}
	if c.Watch.Debounce == "" {
		c.Watch.Debounce = "2s"
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Paths.OriginalDir == "" {
		return fmt.Errorf("paths.original_dir is required")
	}
	if c.Paths.ProcessedDir == "" {
		return fmt.Errorf("paths.processed_dir is required")
	}
	if c.Paths.StateDir == "" {
		return fmt.Errorf("paths.state_dir is required")
	}

	// Ensure paths are absolute
	if !filepath.IsAbs(c.Paths.OriginalDir) {
		return fmt.Errorf("paths.original_dir must be an absolute path: %s", c.Paths.OriginalDir)
	}
	if !filepath.IsAbs(c.Paths.ProcessedDir) {
		return fmt.Errorf("paths.processed_dir must be an absolute path: %s", c.Paths.ProcessedDir)
	}
	if !filepath.IsAbs(c.Paths.StateDir) {
		return fmt.Errorf("paths.state_dir must be an absolute path: %s", c.Paths.StateDir)
	}

	// The processed tree is exclusively owned by this system; sharing it
	// with the original tree would let the reconciler delete sources.
	if c.Paths.ProcessedDir == c.Paths.OriginalDir {
		return fmt.Errorf("paths.processed_dir must differ from paths.original_dir")
	}

	if c.Image.MaxWidth <= 0 || c.Image.MaxHeight <= 0 {
		return fmt.Errorf("image.max_width and image.max_height must be positive")
	}
	if c.Image.CanvasWidth <= 0 || c.Image.CanvasHeight <= 0 {
		return fmt.Errorf("image.canvas_width and image.canvas_height must be positive")
	}
	if !strings.HasPrefix(c.Image.Extension, ".") {
		return fmt.Errorf("image.extension must start with a dot: %s", c.Image.Extension)
	}

	switch c.Sync.OnError {
	case ErrorAbort, ErrorSkip:
		// valid
	default:
		return fmt.Errorf("invalid sync.on_error policy: %s (must be abort or skip)", c.Sync.OnError)
	}

	if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
		return fmt.Errorf("invalid watch.debounce duration %q: %w", c.Watch.Debounce, err)
	}

	// Validate serve config if enabled
	if c.Serve.Enabled {
		if c.Serve.ListenAddr == "" {
			return fmt.Errorf("serve.listen_addr is required when serve is enabled")
		}
		if c.Serve.GitHubWebhookSecretFile == "" {
			return fmt.Errorf("serve.github_webhook_secret_file is required when serve is enabled")
		}
	}

	return nil
}

// LedgerFilePath returns the path to the persisted checksum ledger
func (c *Config) LedgerFilePath() string {
	return filepath.Join(c.Paths.StateDir, "ledger.json")
}

// OriginalPath returns the absolute path of an asset in the original tree
func (c *Config) OriginalPath(rel string) string {
	return filepath.Join(c.Paths.OriginalDir, filepath.FromSlash(rel))
}

// ProcessedPath returns the absolute path of an asset in the processed tree
func (c *Config) ProcessedPath(rel string) string {
	return filepath.Join(c.Paths.ProcessedDir, filepath.FromSlash(rel))
}

// WatchDebounce returns the parsed watch debounce window. Validate has
// already checked that the value parses.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 2 * time.Second
	}
	return d
}
