package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autocrack/internal/config"
	"autocrack/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	gameDir    string
	library    string
	pristine   []byte
}

// setupCLITestEnv writes a config pointing at temp directories, optionally a
// populated dependency cache, and a game with one 64-bit steam_api library.
func setupCLITestEnv(t *testing.T, populateCache bool, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	// Only a stubbed Steamless keeps the unpack phase on.
	cfg.Unpack.Enabled = cfg.Unpack.Tool != ""
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))
	if populateCache {
		testsupport.PopulateCache(t, cfg.Paths.CacheDir)
	}

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	gameDir := filepath.Join(base, "game")
	library := filepath.Join(gameDir, "steam_api64.dll")
	testsupport.GameLibrary(t, library, 1000, "SteamClient017", "SteamUser021")
	testsupport.WriteFile(t, filepath.Join(gameDir, "Game.exe"), 2048)
	pristine, err := os.ReadFile(library)
	if err != nil {
		t.Fatal(err)
	}

	return &cliTestEnv{cfg: cfg, configPath: configPath, gameDir: gameDir, library: library, pristine: pristine}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
cache_dir = %q
state_dir = %q
log_dir = %q

[unpack]
enabled = %t
tool = %q

[replace]
retry_budget = 1
retry_delay_ms = 0

[steam]
web_api_key = ""

[logging]
format = "json"
level = "error"
`, cfg.Paths.CacheDir, cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Unpack.Enabled, cfg.Unpack.Tool)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}
