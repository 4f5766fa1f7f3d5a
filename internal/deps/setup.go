package deps

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"golang.org/x/sync/errgroup"

	"autocrack/internal/fileutil"
	"autocrack/internal/logging"
	"autocrack/internal/services"
)

const stageSetup = "setup"

// HTTPDoer describes the HTTP client used for downloads.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SetupOptions configures Setup.
type SetupOptions struct {
	CacheDir    string
	BaseURL     string
	Concurrency int
	HTTP        HTTPDoer
	Logger      *slog.Logger
}

// SetupResult lists what Setup did.
type SetupResult struct {
	Downloaded []string
	Skipped    []string
	Extracted  bool
}

// Setup downloads every missing cache file in parallel and extracts the
// Steamless archive. Files already present are left alone.
func Setup(ctx context.Context, opts SetupOptions) (SetupResult, error) {
	var result SetupResult
	if strings.TrimSpace(opts.CacheDir) == "" {
		return result, services.Wrap(services.ErrConfiguration, stageSetup, "", "cache_dir is empty", nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "deps")
	client := opts.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrTransient, stageSetup, "", "create cache dir", err)
	}

	toolPath := filepath.Join(opts.CacheDir, SteamlessDir, SteamlessTool)
	zipPath := filepath.Join(opts.CacheDir, SteamlessZip)

	var pending []CacheFile
	for _, file := range CacheFiles() {
		if fileutil.Exists(filepath.Join(opts.CacheDir, file.Local)) {
			result.Skipped = append(result.Skipped, file.Name)
			continue
		}
		if file.Name == SteamlessTool && fileutil.Exists(zipPath) {
			continue
		}
		pending = append(pending, file)
	}
	if len(pending) > 0 && strings.TrimSpace(opts.BaseURL) == "" {
		return result, services.Wrap(services.ErrConfiguration, stageSetup, "", "dependencies.base_url is not set", nil)
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)
	downloaded := make([]bool, len(pending))
	for i, file := range pending {
		dest := filepath.Join(opts.CacheDir, file.Local)
		if file.Name == SteamlessTool {
			dest = zipPath
		}
		group.Go(func() error {
			if err := download(gctx, client, base+"/"+file.Remote, dest); err != nil {
				return fmt.Errorf("download %s: %w", file.Name, err)
			}
			logger.Info("dependency downloaded", logging.String("name", file.Name), logging.String("path", dest))
			downloaded[i] = true
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}
	for i, ok := range downloaded {
		if ok {
			result.Downloaded = append(result.Downloaded, pending[i].Name)
		}
	}

	if !fileutil.Exists(toolPath) {
		if err := ExtractZip(zipPath, filepath.Join(opts.CacheDir, SteamlessDir)); err != nil {
			return result, err
		}
		if err := os.Remove(zipPath); err != nil {
			return result, services.Wrap(services.ErrTransient, stageSetup, "extract", "remove archive", err)
		}
		if !fileutil.Exists(toolPath) {
			return result, fmt.Errorf("missing dependency %s: %s: %w", SteamlessTool, toolPath, services.ErrNotFound)
		}
		result.Extracted = true
		logger.Info("steamless extracted", logging.String("path", toolPath))
	}
	return result, nil
}

func download(ctx context.Context, client HTTPDoer, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, stageSetup, "download", "build request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, stageSetup, "download", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrTransient, stageSetup, "download", "unexpected response",
			fmt.Errorf("HTTP status %d", resp.StatusCode))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return services.Wrap(services.ErrTransient, stageSetup, "download", "read body", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}

// ErrUnsafeEntry is returned for archive entries that would escape the
// extraction directory.
var ErrUnsafeEntry = errors.New("unsafe archive entry")

// ExtractZip unpacks every entry of the archive at src into destDir.
func ExtractZip(src, destDir string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return services.Wrap(services.ErrSerialization, stageSetup, "extract", "open archive", err)
	}
	defer reader.Close()
	reader.RegisterDecompressor(zip.Deflate, flate.NewReader)

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for _, entry := range reader.File {
		if !filepath.IsLocal(entry.Name) {
			return fmt.Errorf("%w: %s", ErrUnsafeEntry, entry.Name)
		}
		target := filepath.Join(destDir, filepath.FromSlash(entry.Name))
		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractEntry(entry, target); err != nil {
			return services.Wrap(services.ErrSerialization, stageSetup, "extract", entry.Name, err)
		}
	}
	return nil
}

func extractEntry(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := entry.Open()
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
