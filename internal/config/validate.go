package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEmulator(); err != nil {
		return err
	}
	if err := c.validateUnpack(); err != nil {
		return err
	}
	if err := c.validateReplace(); err != nil {
		return err
	}
	if err := c.validateSteam(); err != nil {
		return err
	}
	if err := c.validateDependencies(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.CacheDir == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateEmulator() error {
	if _, err := strconv.ParseUint(c.Emulator.SteamID, 10, 64); err != nil {
		return fmt.Errorf("emulator.steam_id must be a 64-bit numeric id, got %q", c.Emulator.SteamID)
	}
	return nil
}

func (c *Config) validateUnpack() error {
	if c.Unpack.TimeoutSeconds < 0 {
		return errors.New("unpack.timeout_seconds must be zero (unbounded) or positive")
	}
	return nil
}

func (c *Config) validateReplace() error {
	if c.Replace.RetryBudget < 0 || c.Replace.RetryBudget > maxRetryBudget {
		return fmt.Errorf("replace.retry_budget must be between 0 and %d", maxRetryBudget)
	}
	if c.Replace.RetryDelayMS < 0 {
		return errors.New("replace.retry_delay_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateSteam() error {
	endpoints := []struct {
		key   string
		value string
	}{
		{"steam.store_url", c.Steam.StoreURL},
		{"steam.webapi_url", c.Steam.WebAPIURL},
		{"steam.steamcmd_url", c.Steam.SteamCMDURL},
	}
	for _, endpoint := range endpoints {
		if err := validateURL(endpoint.key, endpoint.value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateDependencies() error {
	if c.Dependencies.BaseURL == "" {
		return nil
	}
	return validateURL("dependencies.base_url", c.Dependencies.BaseURL)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateURL(key, value string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s is missing a host", key)
	}
	return nil
}
