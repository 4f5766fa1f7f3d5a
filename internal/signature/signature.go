// Package signature extracts Steam interface version strings from a binary
// and writes them as the emulator's steam_interfaces.txt manifest.
package signature

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"autocrack/internal/fileutil"
	"autocrack/internal/logging"
)

// ManifestName is the file written into the metadata directory.
const ManifestName = "steam_interfaces.txt"

// ErrEmptyOrUnreadable indicates the binary decoded to no text at all.
var ErrEmptyOrUnreadable = errors.New("binary content is empty or unreadable")

// Extractor matches a compiled pattern catalog against binaries.
type Extractor struct {
	patterns []*regexp.Regexp
	logger   *slog.Logger
}

// New compiles catalog. Patterns that fail to compile are skipped with a warning.
func New(catalog []string, logger *slog.Logger) *Extractor {
	logger = logging.NewComponentLogger(logger, "signature")
	e := &Extractor{logger: logger}
	for _, pattern := range catalog {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logging.WarnWithContext(logger, "skipping invalid interface pattern", "signature_pattern_invalid",
				logging.String("pattern", pattern),
				logging.Error(err),
				logging.String(logging.FieldImpact, "interfaces matching this pattern are not listed"),
			)
			continue
		}
		e.patterns = append(e.patterns, re)
	}
	return e
}

// Patterns returns how many catalog patterns compiled.
func (e *Extractor) Patterns() int {
	return len(e.patterns)
}

// Match returns every interface string found in data, pattern by pattern and
// left to right within a pattern. A string found twice is listed once.
func (e *Extractor) Match(data []byte) ([]string, error) {
	text := strings.ToValidUTF8(string(data), "�")
	if text == "" {
		return nil, ErrEmptyOrUnreadable
	}
	seen := make(map[string]struct{})
	var matches []string
	for _, re := range e.patterns {
		for _, found := range re.FindAllString(text, -1) {
			if _, dup := seen[found]; dup {
				continue
			}
			seen[found] = struct{}{}
			matches = append(matches, found)
		}
	}
	return matches, nil
}

// Extract reads binaryPath, writes the manifest into metadataDir (replacing any
// previous one), and returns the number of lines written.
func (e *Extractor) Extract(binaryPath, metadataDir string) (int, error) {
	data, err := os.ReadFile(binaryPath)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", binaryPath, err)
	}
	matches, err := e.Match(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", binaryPath, err)
	}

	var b strings.Builder
	for _, m := range matches {
		b.WriteString(m)
		b.WriteByte('\n')
	}
	manifest := filepath.Join(metadataDir, ManifestName)
	if err := fileutil.WriteFileAtomic(manifest, []byte(b.String()), 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", manifest, err)
	}
	e.logger.Info("interface manifest generated",
		logging.String("source", binaryPath),
		logging.String("manifest", manifest),
		logging.Int("matches", len(matches)),
	)
	return len(matches), nil
}
