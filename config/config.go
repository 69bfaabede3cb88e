package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/dylan/wchflash/chip"
)

type Config struct {
	FirmwarePath   string       `toml:"firmware_path,omitempty"`
	Device         string       `toml:"device,omitempty"` // board menu name
	DefaultOptions chip.Options `toml:"default_options"`
	Policy         PolicyConfig `toml:"policy"`
	Wlink          WlinkConfig  `toml:"wlink"`
	History        HistoryInfo  `toml:"history"`
	Theme          ThemeConfig  `toml:"theme"`
}

type PolicyConfig struct {
	MaxRetries int      `toml:"max_retries,omitempty"`
	RetryDelay Duration `toml:"retry_delay,omitempty"`
}

type WlinkConfig struct {
	Binary  string `toml:"binary,omitempty"`
	Verbose *bool  `toml:"verbose,omitempty"`
}

type HistoryInfo struct {
	Enabled *bool  `toml:"enabled,omitempty"`
	Path    string `toml:"path,omitempty"`
}

type ThemeConfig struct {
	Accent      string `toml:"accent,omitempty"`
	Accent2     string `toml:"accent2,omitempty"`
	FG          string `toml:"fg,omitempty"`
	Dim         string `toml:"dim,omitempty"`
	Muted       string `toml:"muted,omitempty"`
	Success     string `toml:"success,omitempty"`
	Warning     string `toml:"warning,omitempty"`
	Error       string `toml:"error,omitempty"`
	SpinnerFG   string `toml:"spinner_fg,omitempty"`
	SpinnerType string `toml:"spinner_type,omitempty"`
}

// Duration is a time.Duration written as text ("2s", "500ms") in TOML.
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(v)
	return nil
}

// DefaultConfigPath returns ~/.config/wchflash/config.toml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "wchflash", "config.toml")
}

// DefaultHistoryPath returns ~/.local/share/wchflash/history.db.
func DefaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "history.db"
	}
	return filepath.Join(home, ".local", "share", "wchflash", "history.db")
}

// Load reads a config file. A missing file yields an error wrapping
// os.ErrNotExist; callers usually treat that as an empty config.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.DefaultOptions.EraseMethod != "" && !cfg.DefaultOptions.EraseMethod.Valid() {
		return cfg, fmt.Errorf("default_options.erase_method: unknown value %q", cfg.DefaultOptions.EraseMethod)
	}
	if cfg.DefaultOptions.Speed != "" && !cfg.DefaultOptions.Speed.Valid() {
		return cfg, fmt.Errorf("default_options.speed: unknown value %q", cfg.DefaultOptions.Speed)
	}
	if cfg.Policy.MaxRetries < 0 {
		return cfg, fmt.Errorf("policy.max_retries must not be negative")
	}

	cfg.FirmwarePath = expandHome(cfg.FirmwarePath)
	cfg.History.Path = expandHome(cfg.History.Path)
	return cfg, nil
}

// LoadOrDefault is Load, except a missing file is not an error.
func LoadOrDefault(path string) (Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, nil
	}
	return cfg, err
}

func expandHome(p string) string {
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[2:])
		}
	}
	return p
}

// ResolvedOptions returns the saved default options, filling unset fields.
func (c Config) ResolvedOptions() chip.Options {
	d := chip.DefaultOptions()
	opts := c.DefaultOptions
	if !opts.EraseMethod.Valid() {
		opts.EraseMethod = d.EraseMethod
	}
	if !opts.Speed.Valid() {
		opts.Speed = d.Speed
	}
	return opts
}

// ResolvedMaxRetries returns the configured attempt count or 3.
func (c Config) ResolvedMaxRetries() int {
	if c.Policy.MaxRetries > 0 {
		return c.Policy.MaxRetries
	}
	return 3
}

// ResolvedRetryDelay returns the configured delay between attempts or 2s.
func (c Config) ResolvedRetryDelay() time.Duration {
	if c.Policy.RetryDelay > 0 {
		return time.Duration(c.Policy.RetryDelay)
	}
	return 2 * time.Second
}

func (c Config) ResolvedWlinkBinary() string {
	return pick(c.Wlink.Binary, "wlink")
}

// ResolvedWlinkVerbose returns whether erase runs with -v; defaults to true.
func (c Config) ResolvedWlinkVerbose() bool {
	if c.Wlink.Verbose != nil {
		return *c.Wlink.Verbose
	}
	return true
}

func (c Config) ResolvedHistoryEnabled() bool {
	if c.History.Enabled != nil {
		return *c.History.Enabled
	}
	return true
}

func (c Config) ResolvedHistoryPath() string {
	return pick(c.History.Path, DefaultHistoryPath())
}

// DefaultTheme returns the Vesper color palette.
func DefaultTheme() ThemeConfig {
	return ThemeConfig{
		Accent:      "#ffc799",
		Accent2:     "#99ffe4",
		FG:          "#ffffff",
		Dim:         "#a0a0a0",
		Muted:       "#505050",
		Success:     "#99ffe4",
		Warning:     "#ffc799",
		Error:       "#ff8080",
		SpinnerFG:   "#ffc799",
		SpinnerType: "minidot",
	}
}

// ResolvedTheme merges config theme with defaults for any unset fields.
func (c Config) ResolvedTheme() ThemeConfig {
	d := DefaultTheme()
	return ThemeConfig{
		Accent:      pick(c.Theme.Accent, d.Accent),
		Accent2:     pick(c.Theme.Accent2, d.Accent2),
		FG:          pick(c.Theme.FG, d.FG),
		Dim:         pick(c.Theme.Dim, d.Dim),
		Muted:       pick(c.Theme.Muted, d.Muted),
		Success:     pick(c.Theme.Success, d.Success),
		Warning:     pick(c.Theme.Warning, d.Warning),
		Error:       pick(c.Theme.Error, d.Error),
		SpinnerFG:   pick(c.Theme.SpinnerFG, d.SpinnerFG),
		SpinnerType: pick(c.Theme.SpinnerType, d.SpinnerType),
	}
}

func pick(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// saveableConfig drops empty sections so a fresh file only holds what the
// user chose.
type saveableConfig struct {
	FirmwarePath   string        `toml:"firmware_path,omitempty"`
	Device         string        `toml:"device,omitempty"`
	DefaultOptions *chip.Options `toml:"default_options,omitempty"`
	Policy         *PolicyConfig `toml:"policy,omitempty"`
	Wlink          *WlinkConfig  `toml:"wlink,omitempty"`
	History        *HistoryInfo  `toml:"history,omitempty"`
	Theme          *ThemeConfig  `toml:"theme,omitempty"`
}

// Save writes the config back to a TOML file, creating its directory.
func Save(path string, cfg Config) error {
	sc := saveableConfig{
		FirmwarePath: cfg.FirmwarePath,
		Device:       cfg.Device,
	}
	if cfg.DefaultOptions != (chip.Options{}) {
		sc.DefaultOptions = &cfg.DefaultOptions
	}
	if cfg.Policy != (PolicyConfig{}) {
		sc.Policy = &cfg.Policy
	}
	if cfg.Wlink.Binary != "" || cfg.Wlink.Verbose != nil {
		sc.Wlink = &cfg.Wlink
	}
	if cfg.History.Path != "" || cfg.History.Enabled != nil {
		sc.History = &cfg.History
	}
	if cfg.Theme != (ThemeConfig{}) {
		sc.Theme = &cfg.Theme
	}

	data, err := toml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}
