// Package emuconfig writes the emulator's settings files into a library's
// metadata directory. Every writer replaces the previous file outright; these
// files are derived on each run and never merged.
package emuconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"autocrack/internal/fileutil"
)

// File names inside the metadata directory.
const (
	MainConfig      = "configs.main.ini"
	UserConfig      = "configs.user.ini"
	OverlayConfig   = "configs.overlay.ini"
	AppConfig       = "configs.app.ini"
	AppIDFile       = "steam_appid.txt"
	DepotsFile      = "depots.txt"
	LanguagesFile   = "supported_languages.txt"
	AchievementFile = "achievements.json"
	StatsFile       = "stats.json"

	SoundsDir = "sounds"
	FontsDir  = "fonts"
	ImagesDir = "images"

	// OverlayFont must match the font asset copied into FontsDir.
	OverlayFont = "Roboto-Medium.ttf"
)

// Identity is the player profile written to configs.user.ini.
type Identity struct {
	AccountName string
	SteamID     string
	Language    string
}

// Settings holds everything Materialize needs.
type Settings struct {
	AppID    string
	Identity Identity
}

// DLC is one entry of configs.app.ini.
type DLC struct {
	ID   string
	Name string
}

// Achievement is one record of achievements.json.
type Achievement struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	Hidden      bool   `json:"hidden"`
	Icon        string `json:"icon"`
	IconGray    string `json:"icon_gray"`
}

// Stat is one record of stats.json.
type Stat struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default int    `json:"default"`
	Global  int    `json:"global"`
}

// Materialize writes the main, user, and overlay configs plus steam_appid.txt
// and returns the paths written.
func Materialize(dir string, settings Settings) ([]string, error) {
	writers := []struct {
		name    string
		content string
	}{
		{MainConfig, mainConfig()},
		{UserConfig, userConfig(settings.Identity)},
		{OverlayConfig, overlayConfig()},
		{AppIDFile, strings.TrimSpace(settings.AppID) + "\n"},
	}
	written := make([]string, 0, len(writers))
	for _, w := range writers {
		path, err := writeText(dir, w.name, w.content)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func mainConfig() string {
	return "[main::stats]\nrecord_playtime=1\n"
}

func userConfig(id Identity) string {
	language := strings.TrimSpace(id.Language)
	if language == "" {
		language = "english"
	}
	return fmt.Sprintf("[user::general]\naccount_name=%s\naccount_steamid=%s\nlanguage=%s\n",
		id.AccountName, id.SteamID, language)
}

func overlayConfig() string {
	return "[overlay::general]\nenable_experimental_overlay=1\n[overlay::appearance]\nFont_Override=" + OverlayFont + "\n"
}

// WriteDLCs writes configs.app.ini with unlock_all disabled and one id=name line per DLC.
func WriteDLCs(dir string, dlcs []DLC) (string, error) {
	var b strings.Builder
	b.WriteString("[app::dlcs]\nunlock_all=0\n")
	for _, dlc := range dlcs {
		fmt.Fprintf(&b, "%s=%s\n", dlc.ID, strings.ReplaceAll(dlc.Name, "\n", " "))
	}
	return writeText(dir, AppConfig, b.String())
}

// WriteDepots writes depots.txt, one depot id per line.
func WriteDepots(dir string, depots []string) (string, error) {
	return writeText(dir, DepotsFile, lines(depots))
}

// WriteLanguages writes supported_languages.txt, defaulting to english when empty.
func WriteLanguages(dir string, languages []string) (string, error) {
	if len(languages) == 0 {
		languages = []string{"english"}
	}
	return writeText(dir, LanguagesFile, lines(languages))
}

// WriteAchievements writes achievements.json as pretty-printed JSON.
func WriteAchievements(dir string, achievements []Achievement) (string, error) {
	if achievements == nil {
		achievements = []Achievement{}
	}
	return writeJSON(dir, AchievementFile, achievements)
}

// WriteStats writes stats.json as pretty-printed JSON.
func WriteStats(dir string, stats []Stat) (string, error) {
	if stats == nil {
		stats = []Stat{}
	}
	return writeJSON(dir, StatsFile, stats)
}

// CopyAssets copies the overlay sound and font into their subdirectories.
func CopyAssets(dir, sound, font string) ([]string, error) {
	assets := []struct {
		src    string
		subdir string
	}{
		{sound, SoundsDir},
		{font, FontsDir},
	}
	var written []string
	for _, asset := range assets {
		target := filepath.Join(dir, asset.subdir)
		if err := os.MkdirAll(target, 0o755); err != nil {
			return written, fmt.Errorf("create %s: %w", target, err)
		}
		dst := filepath.Join(target, filepath.Base(asset.src))
		if err := fileutil.CopyFile(asset.src, dst); err != nil {
			return written, fmt.Errorf("copy %s: %w", asset.src, err)
		}
		written = append(written, dst)
	}
	return written, nil
}

func lines(values []string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeJSON(dir, name string, value any) (string, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}
	return writeText(dir, name, string(data))
}

func writeText(dir, name, content string) (string, error) {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
