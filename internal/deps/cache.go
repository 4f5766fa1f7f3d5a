package deps

import (
	"fmt"
	"path/filepath"

	"autocrack/internal/fileutil"
	"autocrack/internal/services"
)

// Cache file names, relative to the cache directory.
const (
	Library32     = "steam_api.dll"
	Library64     = "steam_api64.dll"
	Client32      = "steamclient.dll"
	Client64      = "steamclient64.dll"
	OverlaySound  = "overlay_achievement_notification.wav"
	OverlayFont   = "Roboto-Medium.ttf"
	SteamlessDir  = "steamless"
	SteamlessTool = "Steamless.CLI.exe"
	SteamlessZip  = "Steamless.v3.1.0.5.-.by.atom0s.zip"
)

// CacheFile is one file of the dependency cache.
type CacheFile struct {
	Name        string
	Description string
	// Remote is the download path relative to dependencies.base_url.
	Remote string
	// Local is the path inside the cache once setup has finished.
	Local string
}

// CacheFiles lists the dependency cache in setup order.
func CacheFiles() []CacheFile {
	return []CacheFile{
		{Name: Library32, Description: "32-bit emulator API library", Remote: "x32/" + Library32, Local: Library32},
		{Name: Client32, Description: "32-bit emulator client library", Remote: "x32/" + Client32, Local: Client32},
		{Name: Library64, Description: "64-bit emulator API library", Remote: "x64/" + Library64, Local: Library64},
		{Name: Client64, Description: "64-bit emulator client library", Remote: "x64/" + Client64, Local: Client64},
		{Name: OverlaySound, Description: "achievement notification sound", Remote: OverlaySound, Local: OverlaySound},
		{Name: OverlayFont, Description: "overlay font", Remote: OverlayFont, Local: OverlayFont},
		{Name: SteamlessTool, Description: "DRM unpacker", Remote: SteamlessZip, Local: filepath.Join(SteamlessDir, SteamlessTool)},
	}
}

// CheckCache reports which cache files are present under cacheDir.
func CheckCache(cacheDir string) []Status {
	files := CacheFiles()
	results := make([]Status, 0, len(files))
	for _, file := range files {
		path := filepath.Join(cacheDir, file.Local)
		status := Status{
			Name:        file.Name,
			Command:     path,
			Description: file.Description,
		}
		if fileutil.Exists(path) {
			status.Available = true
			status.Path = path
		} else {
			status.Detail = "not downloaded; run autocrack setup"
		}
		results = append(results, status)
	}
	return results
}

// Require returns the absolute path of a cache file, or an error naming the
// missing dependency.
func Require(cacheDir, name string) (string, error) {
	path := filepath.Join(cacheDir, name)
	if !fileutil.Exists(path) {
		return "", fmt.Errorf("missing dependency %s: %s: %w", name, path, services.ErrNotFound)
	}
	return path, nil
}
