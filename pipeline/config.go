package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full pipeline configuration. Zero values mean "use the
// default"; only TemplatePath (or a per-run override) is required.
type Config struct {
	// TemplatePath is the default proposal template. A template passed to
	// Run, the HTTP upload, or the MCP tool overrides it per run.
	TemplatePath string `yaml:"template_path"`

	// DiagramPath is an optional mermaid sidecar file rendered on the
	// architecture slide.
	DiagramPath string `yaml:"diagram_path"`

	// ArchitectureDeck and LibraryDeck are the reference presentations
	// spliced into the output. Empty skips the respective splice.
	ArchitectureDeck string `yaml:"architecture_deck"`
	LibraryDeck      string `yaml:"library_deck"`

	// OutputDir receives one subdirectory per run. Default: "out".
	OutputDir string `yaml:"output_dir"`

	// FetchLogPath is the SQLite fetch audit log. Empty disables it.
	FetchLogPath string `yaml:"fetch_log_path"`

	// Provider names the vendor scope column. Default: "viAct".
	Provider string `yaml:"provider"`

	// PDF also exports a PDF rendition of the deck.
	PDF bool `yaml:"pdf"`

	Browser BrowserConfig `yaml:"browser"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Serve   ServeConfig   `yaml:"serve"`
}

// BrowserConfig controls the shared headless Chrome.
type BrowserConfig struct {
	// Disabled skips Chrome entirely: slides render to HTML only, media
	// fetching loses its browser fallback, and no pptx is packaged.
	Disabled bool `yaml:"disabled"`

	// RemoteURL connects to an external Chrome instead of launching one.
	RemoteURL string `yaml:"remote_url"`

	// NavigateTimeoutSec bounds one navigation. Default: 30.
	NavigateTimeoutSec int `yaml:"navigate_timeout_sec"`
}

// FetchConfig tunes the media acquisition ladder.
type FetchConfig struct {
	// HTTPTimeoutSec bounds each direct download attempt. Default: 30.
	HTTPTimeoutSec int `yaml:"http_timeout_sec"`

	// DownloadWaitSec bounds the browser download wait. Default: 60.
	DownloadWaitSec int `yaml:"download_wait_sec"`
}

// ServeConfig configures the HTTP front-end.
type ServeConfig struct {
	// Addr is the listen address. Default: ":8090".
	Addr string `yaml:"addr"`

	// AuthUser and AuthHash enable Basic Auth: AuthHash is a bcrypt hash
	// of the password. Both empty = no auth.
	AuthUser string `yaml:"auth_user"`
	AuthHash string `yaml:"auth_hash"`

	// MaxUploadMB caps the template upload size. Default: 10.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

// DefaultConfig returns the zero-config defaults.
func DefaultConfig() *Config {
	return &Config{
		OutputDir: "out",
		Provider:  "viAct",
		Browser:   BrowserConfig{NavigateTimeoutSec: 30},
		Fetch:     FetchConfig{HTTPTimeoutSec: 30, DownloadWaitSec: 60},
		Serve:     ServeConfig{Addr: ":8090", MaxUploadMB: 10},
	}
}

// LoadConfig reads and parses a YAML config file over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("pipeline: parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value sanity. Path existence is checked at run time, not
// load time: serve mode starts before the first template arrives.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("pipeline: output_dir is required")
	}
	if c.Fetch.HTTPTimeoutSec < 0 || c.Fetch.DownloadWaitSec < 0 {
		return fmt.Errorf("pipeline: fetch timeouts must be >= 0")
	}
	if c.Serve.MaxUploadMB < 0 {
		return fmt.Errorf("pipeline: serve.max_upload_mb must be >= 0")
	}
	if (c.Serve.AuthUser == "") != (c.Serve.AuthHash == "") {
		return fmt.Errorf("pipeline: serve.auth_user and serve.auth_hash must be set together")
	}
	return nil
}

func (c *Config) httpTimeout() time.Duration {
	return time.Duration(c.Fetch.HTTPTimeoutSec) * time.Second
}

func (c *Config) downloadWait() time.Duration {
	return time.Duration(c.Fetch.DownloadWaitSec) * time.Second
}

func (c *Config) navigateTimeout() time.Duration {
	return time.Duration(c.Browser.NavigateTimeoutSec) * time.Second
}

func (c *Config) maxUploadBytes() int64 {
	return int64(c.Serve.MaxUploadMB) * 1024 * 1024
}
