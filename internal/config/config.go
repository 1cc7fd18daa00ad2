package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Variant names a backend deployment flavour
type Variant string

const (
	// VariantAPI is the /api/... backend with tagged push events on /ws
	VariantAPI Variant = "api"
	// VariantLegacy is the older backend with /files, /delete/{id} and /ws/admin
	VariantLegacy Variant = "legacy"
)

// Config represents the application configuration
type Config struct {
	Server         ServerConfig    `yaml:"server"`
	Backend        BackendConfig   `yaml:"backend"`
	UI             UIConfig        `yaml:"ui"`
	Printers       []PrinterConfig `yaml:"printers"`
	DefaultPrinter string          `yaml:"default_printer,omitempty"`
	TokenFile      string          `yaml:"token_file,omitempty"`

	// ConfigPath is the path to the config file (not serialized)
	ConfigPath string `yaml:"-"`
}

// ServerConfig is the local dashboard listener
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// BackendConfig describes the file-sharing backend
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Variant        Variant       `yaml:"variant"`
	WSPath         string        `yaml:"ws_path,omitempty"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// UIConfig holds presentation timings
type UIConfig struct {
	PrintDelay time.Duration `yaml:"print_delay"`
	MessageTTL time.Duration `yaml:"message_ttl"`
	Timezone   string        `yaml:"timezone,omitempty"`
}

// PrinterConfig represents a printer configuration
type PrinterConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // "network", "command" or "open"
	Address string `yaml:"address,omitempty"`
	Port    int    `yaml:"port,omitempty"`
	Queue   string `yaml:"queue,omitempty"`
	Command string `yaml:"command,omitempty"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8090,
			Host: "127.0.0.1",
		},
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8080",
			Variant:        VariantAPI,
			ReconnectDelay: 3 * time.Second,
			PingInterval:   30 * time.Second,
			RequestTimeout: 15 * time.Second,
		},
		UI: UIConfig{
			PrintDelay: 500 * time.Millisecond,
			MessageTTL: 5 * time.Second,
		},
		Printers: []PrinterConfig{
			{ID: "browser", Name: "System viewer", Type: "open"},
		},
		DefaultPrinter: "browser",
	}
}

// SearchPaths lists the config file locations tried by Load
func SearchPaths() []string {
	paths := []string{
		"printdesk.yaml",
		"configs/printdesk.yaml",
	}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "printdesk", "config.yaml"))
	}
	return paths
}

// Load reads the configuration from path, or from the first existing
// SearchPaths entry when path is empty. A missing file yields Default().
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	candidates := SearchPaths()
	if path != "" {
		candidates = []string{path}
	}

	var data []byte
	var err error
	var loadedPath string

	for _, p := range candidates {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", loadedPath, err)
		}
		cfg.ConfigPath = loadedPath
	case path != "" || !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PRINTDESK_SERVER"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("PRINTDESK_TOKEN_FILE"); v != "" {
		c.TokenFile = v
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Backend.Variant == "" {
		c.Backend.Variant = VariantAPI
	}
	if c.Backend.ReconnectDelay <= 0 {
		c.Backend.ReconnectDelay = def.Backend.ReconnectDelay
	}
	if c.Backend.PingInterval <= 0 {
		c.Backend.PingInterval = def.Backend.PingInterval
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = def.Backend.RequestTimeout
	}
	if c.UI.PrintDelay < 0 {
		c.UI.PrintDelay = def.UI.PrintDelay
	}
	if c.UI.MessageTTL <= 0 {
		c.UI.MessageTTL = def.UI.MessageTTL
	}
	if c.TokenFile == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			c.TokenFile = filepath.Join(dir, "printdesk", "token")
		} else {
			c.TokenFile = ".printdesk-token"
		}
	}
}

// Validate checks the backend URL and variant
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend.base_url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("backend.base_url: missing host")
	}

	switch c.Backend.Variant {
	case VariantAPI, VariantLegacy:
	default:
		return fmt.Errorf("backend.variant: unknown variant %q", c.Backend.Variant)
	}
	return nil
}

// Location resolves UI.Timezone, falling back to local time
func (c *Config) Location() *time.Location {
	if c.UI.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.UI.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Addr is the local dashboard listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BaseURL returns the backend URL without a trailing slash
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.Backend.BaseURL, "/")
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
