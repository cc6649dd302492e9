package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = os.Remove(tmpfile.Name())
	}()

	content := `
paths:
  original_dir: "/data/icons"
  processed_dir: "/data/icons_processed"
  state_dir: "/var/lib/iconsyncd"

image:
  max_width: 250
  max_height: 250
  canvas_width: 256
  canvas_height: 256
  extension: ".png"

sync:
  on_error: "abort"

serve:
  enabled: false
`

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify loaded values
	if cfg.Paths.OriginalDir != "/data/icons" {
		t.Errorf("expected original_dir /data/icons, got %s", cfg.Paths.OriginalDir)
	}
	if cfg.Image.CanvasWidth != 256 {
		t.Errorf("expected canvas_width 256, got %d", cfg.Image.CanvasWidth)
	}
	if cfg.Sync.OnError != ErrorAbort {
		t.Errorf("expected on_error abort, got %s", cfg.Sync.OnError)
	}
}

func validConfig() Config {
	return Config{
		Paths: PathsConfig{
			OriginalDir:  "/data/icons",
			ProcessedDir: "/data/icons_processed",
			StateDir:     "/var/lib/iconsyncd",
		},
		Image: ImageConfig{
			MaxWidth:     250,
			MaxHeight:    250,
			CanvasWidth:  256,
			CanvasHeight: 256,
			Extension:    ".png",
		},
		Sync:  SyncConfig{OnError: ErrorAbort},
		Watch: WatchConfig{Debounce: "2s"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing original dir",
			mutate:  func(c *Config) { c.Paths.OriginalDir = "" },
			wantErr: true,
		},
		{
			name:    "missing processed dir",
			mutate:  func(c *Config) { c.Paths.ProcessedDir = "" },
			wantErr: true,
		},
		{
			name:    "missing state dir",
			mutate:  func(c *Config) { c.Paths.StateDir = "" },
			wantErr: true,
		},
		{
			name:    "relative original dir",
			mutate:  func(c *Config) { c.Paths.OriginalDir = "icons" },
			wantErr: true,
		},
		{
			name:    "relative processed dir",
			mutate:  func(c *Config) { c.Paths.ProcessedDir = "icons_processed" },
			wantErr: true,
		},
		{
			name:    "processed dir equals original dir",
			mutate:  func(c *Config) { c.Paths.ProcessedDir = c.Paths.OriginalDir },
			wantErr: true,
		},
		{
			name:    "zero max width",
			mutate:  func(c *Config) { c.Image.MaxWidth = 0 },
			wantErr: true,
		},
		{
			name:    "negative canvas height",
			mutate:  func(c *Config) { c.Image.CanvasHeight = -1 },
			wantErr: true,
		},
		{
			name:    "extension without dot",
			mutate:  func(c *Config) { c.Image.Extension = "png" },
			wantErr: true,
		},
		{
			name:    "invalid error policy",
			mutate:  func(c *Config) { c.Sync.OnError = "retry" },
			wantErr: true,
		},
		{
			name:    "skip policy",
			mutate:  func(c *Config) { c.Sync.OnError = ErrorSkip },
			wantErr: false,
		},
		{
			name:    "invalid debounce",
			mutate:  func(c *Config) { c.Watch.Debounce = "soon" },
			wantErr: true,
		},
		{
			name: "serve enabled without listen addr",
			mutate: func(c *Config) {
				c.Serve.Enabled = true
				c.Serve.GitHubWebhookSecretFile = "/secret"
			},
			wantErr: true,
		},
		{
			name: "serve enabled without secret file",
			mutate: func(c *Config) {
				c.Serve.Enabled = true
				c.Serve.ListenAddr = ":8080"
			},
			wantErr: true,
		},
		{
			name: "serve enabled fully configured",
			mutate: func(c *Config) {
				c.Serve.Enabled = true
				c.Serve.ListenAddr = ":8080"
				c.Serve.GitHubWebhookSecretFile = "/secret"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")

	content := []byte(`
paths:
  original_dir: "/data/icons"
  processed_dir: "/data/icons_processed"
  state_dir: "/var/lib/iconsyncd"
`)
	if err := os.WriteFile(cfgPath, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Image.MaxWidth != 250 || cfg.Image.MaxHeight != 250 {
		t.Errorf("expected default bounding box 250x250, got %dx%d", cfg.Image.MaxWidth, cfg.Image.MaxHeight)
	}
	if cfg.Image.CanvasWidth != 256 || cfg.Image.CanvasHeight != 256 {
		t.Errorf("expected default canvas 256x256, got %dx%d", cfg.Image.CanvasWidth, cfg.Image.CanvasHeight)
	}
	if cfg.Image.Extension != ".png" {
		t.Errorf("expected default extension .png, got %s", cfg.Image.Extension)
	}
	if cfg.Sync.OnError != ErrorAbort {
		t.Errorf("expected default on_error abort, got %s", cfg.Sync.OnError)
	}
	if cfg.WatchDebounce() != 2*time.Second {
		t.Errorf("expected default debounce 2s, got %s", cfg.WatchDebounce())
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("ICONSYNCD_TEST_BASE", "/data")

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")

	content := []byte(`
paths:
  original_dir: "$ICONSYNCD_TEST_BASE/icons"
  processed_dir: "$ICONSYNCD_TEST_BASE/icons_processed"
  state_dir: "$ICONSYNCD_TEST_BASE/state"
`)
	if err := os.WriteFile(cfgPath, content, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Paths.OriginalDir != "/data/icons" {
		t.Errorf("expected env expansion to /data/icons, got %s", cfg.Paths.OriginalDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("paths: ["), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(cfgPath); err == nil {
		t.Error("expected error for malformed config file")
	}
}

func TestPathHelpers(t *testing.T) {
	cfg := validConfig()

	if got := cfg.LedgerFilePath(); got != filepath.Join("/var/lib/iconsyncd", "ledger.json") {
		t.Errorf("unexpected ledger path: %s", got)
	}
	if got := cfg.OriginalPath("tokens/usdt.png"); got != filepath.Join("/data/icons", "tokens", "usdt.png") {
		t.Errorf("unexpected original path: %s", got)
	}
	if got := cfg.ProcessedPath("btc.png"); got != filepath.Join("/data/icons_processed", "btc.png") {
		t.Errorf("unexpected processed path: %s", got)
	}
}
