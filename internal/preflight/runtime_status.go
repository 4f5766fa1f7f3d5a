package preflight

import (
	"fmt"
	"os/exec"
	"strings"

	"autocrack/internal/config"
	"autocrack/internal/fileutil"
)

// CheckUnpackerFromConfig evaluates the unpack tool and its launcher from config.
func CheckUnpackerFromConfig(cfg *config.Config) Result {
	const name = "Steamless"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if !cfg.Unpack.Enabled {
		return Result{Name: name, Detail: "Disabled"}
	}
	tool := cfg.UnpackToolPath()
	if !fileutil.Exists(tool) {
		return Result{Name: name, Detail: fmt.Sprintf("%s (missing; run autocrack setup)", tool)}
	}
	if launcher := strings.TrimSpace(cfg.Unpack.Launcher); launcher != "" {
		resolved, err := exec.LookPath(launcher)
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("launcher %q not found", launcher)}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s via %s", tool, resolved)}
	}
	return Result{Name: name, Passed: true, Detail: tool}
}
