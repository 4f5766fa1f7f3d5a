package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	CacheDir string `toml:"cache_dir"`
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Emulator contains the identity written into the emulator user config.
type Emulator struct {
	AccountName string `toml:"account_name"`
	SteamID     string `toml:"steam_id"`
	Language    string `toml:"language"`
}

// Unpack contains configuration for the DRM unpacking phase.
type Unpack struct {
	Enabled bool   `toml:"enabled"`
	Tool    string `toml:"tool"`
	// Launcher runs the tool through an interpreter such as mono or wine.
	Launcher       string `toml:"launcher"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Replace contains the retry policy for guarded file replacement.
type Replace struct {
	RetryBudget  int `toml:"retry_budget"`
	RetryDelayMS int `toml:"retry_delay_ms"`
}

// Steam contains configuration for the remote metadata lookups.
type Steam struct {
	WebAPIKey      string `toml:"web_api_key"`
	StoreURL       string `toml:"store_url"`
	WebAPIURL      string `toml:"webapi_url"`
	SteamCMDURL    string `toml:"steamcmd_url"`
	RequestTimeout int    `toml:"request_timeout"`
	DownloadIcons  bool   `toml:"download_icons"`
}

// Dependencies contains configuration for the dependency cache download.
type Dependencies struct {
	BaseURL     string `toml:"base_url"`
	Concurrency int    `toml:"concurrency"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for autocrack.
//
// Configuration sections by subsystem:
//   - Paths: dependency cache, state (ledger, locks) and log directories
//   - Emulator: account identity and language written to configs.user.ini
//   - Unpack: Steamless invocation
//   - Replace: retry policy for library replacement
//   - Steam: remote metadata endpoints and credentials
//   - Dependencies: setup download source
//   - Logging: log format and level
type Config struct {
	Paths        Paths        `toml:"paths"`
	Emulator     Emulator     `toml:"emulator"`
	Unpack       Unpack       `toml:"unpack"`
	Replace      Replace      `toml:"replace"`
	Steam        Steam        `toml:"steam"`
	Dependencies Dependencies `toml:"dependencies"`
	Logging      Logging      `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("autocrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, state, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.CacheDir, c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UnpackToolPath returns the Steamless CLI location, defaulting to the copy
// extracted into the dependency cache by setup.
func (c *Config) UnpackToolPath() string {
	if strings.TrimSpace(c.Unpack.Tool) != "" {
		return c.Unpack.Tool
	}
	return filepath.Join(c.Paths.CacheDir, "steamless", "Steamless.CLI.exe")
}

// UnpackTimeout returns the subprocess timeout; zero means unbounded.
func (c *Config) UnpackTimeout() time.Duration {
	return time.Duration(c.Unpack.TimeoutSeconds) * time.Second
}

// RetryDelay returns the wait between replacement attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Replace.RetryDelayMS) * time.Millisecond
}

// RequestTimeout returns the per-request timeout for remote lookups.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Steam.RequestTimeout) * time.Second
}

// LedgerPath returns the SQLite history database location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockDir returns the directory holding per-target run locks.
func (c *Config) LockDir() string {
	return filepath.Join(c.Paths.StateDir, "locks")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
