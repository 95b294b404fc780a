// Package config loads npkill settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeUnreadable means a config file exists but could not be read.
	ErrCodeUnreadable = "config_unreadable"
	// ErrCodeInvalid means a config file could not be parsed or holds an
	// invalid value.
	ErrCodeInvalid = "config_invalid"
)

const (
	DefaultRefreshInterval = 250 * time.Millisecond
	DefaultTheme           = "nord"
	DefaultEventBuffer     = 256
)

// Themes lists the theme names the UI knows about.
var Themes = []string{"nord", "gruvbox-dark", "catppuccin", "dracula"}

// File mirrors the YAML file. Pointer fields distinguish "unset" from the
// zero value. Durations are Go duration strings such as "250ms".
type File struct {
	Concurrency          *int           `yaml:"concurrency"`
	RefreshInterval      *time.Duration `yaml:"refresh_interval"`
	ReplaceHomeWithTilde *bool          `yaml:"replace_home_with_tilde"`
	Theme                *string        `yaml:"theme"`
	ConfirmDelete        *bool          `yaml:"confirm_delete"`
	EventBuffer          *int           `yaml:"event_buffer"`
}

// Config is the effective configuration after defaults, file, and flags.
type Config struct {
	// Concurrent size probes; 0 picks a default from the CPU count.
	Concurrency          int
	RefreshInterval      time.Duration
	ReplaceHomeWithTilde bool
	Theme                string
	ConfirmDelete        bool
	EventBuffer          int
}

func Default() Config {
	return Config{
		RefreshInterval:      DefaultRefreshInterval,
		ReplaceHomeWithTilde: true,
		Theme:                DefaultTheme,
		ConfirmDelete:        true,
		EventBuffer:          DefaultEventBuffer,
	}
}

// Error is a configuration error with a machine readable code.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code extracts the error code, or "" if err is not a *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Resolve returns the config file to use. An explicit path always wins;
// otherwise the first existing default location is used. found is false
// when there is no config file at all.
func Resolve(root, explicit string) (path string, found bool) {
	if explicit != "" {
		return explicit, true
	}
	for _, candidate := range DefaultPaths(root) {
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// DefaultPaths lists the locations searched for a config file, in order.
func DefaultPaths(root string) []string {
	var paths []string
	if root != "" {
		paths = append(paths, filepath.Join(root, ".npkill.yaml"))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "npkill", "config.yaml"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "npkill", "config.yaml"))
	}
	return paths
}

// Load reads the config file for root (if any) on top of the defaults.
func Load(root, explicit string) (Config, string, error) {
	cfg := Default()
	path, found := Resolve(root, explicit)
	if !found {
		return cfg, "", nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, path, &Error{Code: ErrCodeUnreadable, Path: path, Err: err}
	}
	var f File
	if err := yaml.Unmarshal(content, &f); err != nil {
		return cfg, path, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	cfg = cfg.Merge(f)
	if err := cfg.Validate(); err != nil {
		return cfg, path, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	return cfg, path, nil
}

// Merge overlays the fields set in f.
func (c Config) Merge(f File) Config {
	if f.Concurrency != nil {
		c.Concurrency = *f.Concurrency
	}
	if f.RefreshInterval != nil {
		c.RefreshInterval = *f.RefreshInterval
	}
	if f.ReplaceHomeWithTilde != nil {
		c.ReplaceHomeWithTilde = *f.ReplaceHomeWithTilde
	}
	if f.Theme != nil {
		c.Theme = *f.Theme
	}
	if f.ConfirmDelete != nil {
		c.ConfirmDelete = *f.ConfirmDelete
	}
	if f.EventBuffer != nil {
		c.EventBuffer = *f.EventBuffer
	}
	return c
}

func (c Config) Validate() error {
	if c.Concurrency < 0 {
		return errors.New("concurrency must be >= 0")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("refresh_interval must be positive")
	}
	if c.EventBuffer < 0 {
		return errors.New("event_buffer must be >= 0")
	}
	if !knownTheme(c.Theme) {
		return fmt.Errorf("unknown theme %q", c.Theme)
	}
	return nil
}

func knownTheme(name string) bool {
	for _, t := range Themes {
		if t == name {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
