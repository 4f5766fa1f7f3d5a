package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"autocrack/internal/config"
	"autocrack/internal/deps"
)

// CheckSteamWebAPI verifies that the Web API is reachable and the key is valid.
// It uses a 5-second timeout and a single attempt.
func CheckSteamWebAPI(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Steam Web API"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key (achievements will be skipped)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	q := url.Values{"key": {strings.TrimSpace(apiKey)}}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/ISteamWebAPIUtil/GetSupportedAPIList/v1/?"+q.Encode(), nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that path is a directory the current user
// can list, read and write.
func CheckDirectoryAccess(name, path string) Result {
	if problem := directoryProblem(path); problem != "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, problem)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func directoryProblem(path string) string {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return "does not exist"
	case err != nil:
		return fmt.Sprintf("stat: %v", err)
	case !info.IsDir():
		return "is not a directory"
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Sprintf("insufficient permissions: %v", err)
	}
	return ""
}

// CheckDependencyCache verifies every cache file setup provides is present.
func CheckDependencyCache(cacheDir string) Result {
	const name = "Dependency cache"

	if missing := deps.Missing(deps.CheckCache(cacheDir)); len(missing) > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("missing %s (run autocrack setup)", strings.Join(missing, ", "))}
	}
	return Result{Name: name, Passed: true, Detail: "complete"}
}

// CheckSystemDeps evaluates the external binaries required by the config.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	var requirements []deps.Requirement
	if cfg.Unpack.Enabled && strings.TrimSpace(cfg.Unpack.Launcher) != "" {
		requirements = append(requirements, deps.Requirement{
			Name:        "Launcher",
			Command:     cfg.Unpack.Launcher,
			Description: "Runs Steamless on non-Windows hosts",
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeNetError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (Steam Web API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (Steam Web API unreachable)"
	}
	return err.Error()
}
