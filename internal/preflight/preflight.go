package preflight

import (
	"context"

	"autocrack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes all applicable preflight checks for the given config and
// game directory. An empty gameDir skips the game directory check.
func RunAll(ctx context.Context, cfg *config.Config, gameDir string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	if gameDir != "" {
		results = append(results, CheckDirectoryAccess("Game directory", gameDir))
	}

	// Cache and state directories (always checked)
	results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	results = append(results, CheckDependencyCache(cfg.Paths.CacheDir))

	// Unpacker
	if cfg.Unpack.Enabled {
		results = append(results, CheckUnpackerFromConfig(cfg))
	}

	return results
}
