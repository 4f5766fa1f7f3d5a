package steamapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"autocrack/internal/emuconfig"
	"autocrack/internal/fileutil"
	"autocrack/internal/logging"
)

// DownloadIcons saves each achievement's icon and gray icon into imagesDir and
// returns the achievements with icon fields pointing at "images/<file>".
// Icons already on disk are not fetched again. A failed download is logged
// and the achievement keeps its remote URL.
func (c *Client) DownloadIcons(ctx context.Context, achievements []emuconfig.Achievement, imagesDir string) ([]emuconfig.Achievement, error) {
	if len(achievements) == 0 {
		return achievements, nil
	}
	if err := os.MkdirAll(imagesDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", imagesDir, err)
	}
	logger := logging.WithContext(ctx, c.logger)
	out := make([]emuconfig.Achievement, len(achievements))
	for i, ach := range achievements {
		for _, field := range []*string{&ach.Icon, &ach.IconGray} {
			if *field == "" {
				continue
			}
			name := iconFileName(*field)
			dest := filepath.Join(imagesDir, name)
			if !fileutil.Exists(dest) {
				if err := c.fetchIcon(ctx, *field, dest); err != nil {
					if ctx.Err() != nil {
						return nil, ctx.Err()
					}
					logger.Warn("icon download failed",
						logging.String("achievement", ach.Name),
						logging.String("url", *field),
						logging.Error(err),
						logging.String(logging.FieldEventType, "icon_download_failed"),
						logging.String(logging.FieldImpact, "achievement keeps its remote icon url"),
					)
					continue
				}
			}
			*field = path.Join(emuconfig.ImagesDir, name)
		}
		out[i] = ach
	}
	return out, nil
}

func iconFileName(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	name := path.Base(trimmed)
	if name == "" || name == "." || name == "/" {
		return "unknown.jpg"
	}
	return name
}

func (c *Client) fetchIcon(ctx context.Context, rawURL, dest string) error {
	ctx, cancel := context.WithTimeout(ctx, iconTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(dest, data, 0o644)
}
