package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"autocrack/internal/config"
)

func TestLoadDefaultConfigUsesEnvSteamKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("STEAM_API_KEY", "env-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantCache := filepath.Join(tempHome, ".local", "share", "autocrack", "cache")
	if cfg.Paths.CacheDir != wantCache {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, wantCache)
	}
	if cfg.Steam.WebAPIKey != "env-key" {
		t.Fatalf("expected Steam key from env, got %q", cfg.Steam.WebAPIKey)
	}
	if cfg.Replace.RetryBudget != 5 {
		t.Fatalf("unexpected retry budget: %d", cfg.Replace.RetryBudget)
	}
	if cfg.RetryDelay() != time.Second {
		t.Fatalf("unexpected retry delay: %v", cfg.RetryDelay())
	}
	if cfg.Emulator.Language != "english" {
		t.Fatalf("unexpected language: %q", cfg.Emulator.Language)
	}
	wantTool := filepath.Join(wantCache, "steamless", "Steamless.CLI.exe")
	if cfg.UnpackToolPath() != wantTool {
		t.Fatalf("unexpected unpack tool: got %q want %q", cfg.UnpackToolPath(), wantTool)
	}
	if cfg.UnpackTimeout() != 0 {
		t.Fatalf("expected unbounded unpack timeout, got %v", cfg.UnpackTimeout())
	}
}

func TestLoadCustomConfigNormalizesValues(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("STEAM_API_KEY", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `[paths]
cache_dir = "~/deps"
state_dir = "~/state"

[emulator]
language = "  SChinese "

[unpack]
tool = "~/tools/Steamless.CLI.exe"
launcher = " mono "

[steam]
web_api_key = "file-key"
store_url = "https://store.example.com/"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempHome, "deps") {
		t.Fatalf("unexpected cache dir: %q", cfg.Paths.CacheDir)
	}
	if cfg.LedgerPath() != filepath.Join(tempHome, "state", "history.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
	if cfg.Emulator.Language != "schinese" {
		t.Fatalf("expected lower-cased language, got %q", cfg.Emulator.Language)
	}
	if cfg.UnpackToolPath() != filepath.Join(tempHome, "tools", "Steamless.CLI.exe") {
		t.Fatalf("unexpected tool: %q", cfg.UnpackToolPath())
	}
	if cfg.Unpack.Launcher != "mono" {
		t.Fatalf("unexpected launcher: %q", cfg.Unpack.Launcher)
	}
	if cfg.Steam.WebAPIKey != "file-key" {
		t.Fatalf("unexpected key: %q", cfg.Steam.WebAPIKey)
	}
	if cfg.Steam.StoreURL != "https://store.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Steam.StoreURL)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"steam id", "[emulator]\nsteam_id = \"abc\"\n", "emulator.steam_id"},
		{"retry budget", "[replace]\nretry_budget = 500\n", "replace.retry_budget"},
		{"negative delay", "[replace]\nretry_delay_ms = -1\n", "replace.retry_delay_ms"},
		{"timeout", "[unpack]\ntimeout_seconds = -5\n", "unpack.timeout_seconds"},
		{"log format", "[logging]\nformat = \"xml\"\n", "logging.format"},
		{"store url", "[steam]\nstore_url = \"ftp://example.com\"\n", "steam.store_url"},
		{"unknown key", "[paths]\nstaging_dir = \"/tmp\"\n", "parse config"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if decoded.Replace.RetryBudget != config.Default().Replace.RetryBudget {
		t.Fatalf("sample retry budget drifted from defaults: %d", decoded.Replace.RetryBudget)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("Load sample: %v", err)
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestNormalizeLanguage(t *testing.T) {
	if got := config.NormalizeLanguage(" German "); got != "german" {
		t.Fatalf("unexpected language: %q", got)
	}
}
