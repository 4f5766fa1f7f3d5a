package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEmulator()
	if err := c.normalizeUnpack(); err != nil {
		return err
	}
	c.normalizeSteam()
	c.normalizeDependencies()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeEmulator() {
	c.Emulator.AccountName = strings.TrimSpace(c.Emulator.AccountName)
	if c.Emulator.AccountName == "" {
		c.Emulator.AccountName = defaultAccountName
	}
	c.Emulator.SteamID = strings.TrimSpace(c.Emulator.SteamID)
	if c.Emulator.SteamID == "" {
		c.Emulator.SteamID = defaultSteamID
	}
	c.Emulator.Language = NormalizeLanguage(c.Emulator.Language)
	if c.Emulator.Language == "" {
		c.Emulator.Language = defaultLanguage
	}
}

// NormalizeLanguage folds a Steam language name ("English", " SCHINESE ") to the
// lower-case form the emulator expects.
func NormalizeLanguage(value string) string {
	return cases.Lower(language.Und).String(strings.TrimSpace(value))
}

func (c *Config) normalizeUnpack() error {
	c.Unpack.Launcher = strings.TrimSpace(c.Unpack.Launcher)
	tool := strings.TrimSpace(c.Unpack.Tool)
	if tool == "" {
		c.Unpack.Tool = ""
		return nil
	}
	expanded, err := expandPath(tool)
	if err != nil {
		return fmt.Errorf("unpack.tool: %w", err)
	}
	c.Unpack.Tool = expanded
	return nil
}

func (c *Config) normalizeSteam() {
	if strings.TrimSpace(c.Steam.WebAPIKey) == "" {
		if value, ok := os.LookupEnv("STEAM_API_KEY"); ok {
			c.Steam.WebAPIKey = value
		}
	}
	c.Steam.WebAPIKey = strings.TrimSpace(c.Steam.WebAPIKey)
	c.Steam.StoreURL = trimURL(c.Steam.StoreURL, defaultStoreURL)
	c.Steam.WebAPIURL = trimURL(c.Steam.WebAPIURL, defaultWebAPIURL)
	c.Steam.SteamCMDURL = trimURL(c.Steam.SteamCMDURL, defaultSteamCMDURL)
	if c.Steam.RequestTimeout <= 0 {
		c.Steam.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeDependencies() {
	c.Dependencies.BaseURL = strings.TrimRight(strings.TrimSpace(c.Dependencies.BaseURL), "/")
	if c.Dependencies.Concurrency <= 0 {
		c.Dependencies.Concurrency = defaultDependencyConcurrency
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if format == "" {
		format = defaultLogFormat
	}
	c.Logging.Format = format
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	c.Logging.Level = level
}

func trimURL(value, fallback string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return fallback
	}
	return value
}
