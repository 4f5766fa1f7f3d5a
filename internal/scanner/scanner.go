// Package scanner walks a game directory and classifies the files the
// pipeline cares about: Steam API libraries to replace and executables to
// unpack.
package scanner

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"autocrack/internal/services"
)

// MetadataDirName is the emulator settings directory created beside each library.
const MetadataDirName = "steam_settings"

var (
	// ErrNotADirectory indicates the scan root is missing or not a directory.
	ErrNotADirectory = fmt.Errorf("%w: not a directory", services.ErrNotFound)
	// ErrNoTargetsFound indicates the tree holds no Steam API library.
	ErrNoTargetsFound = fmt.Errorf("%w: no steam_api library found", services.ErrNoOp)
)

// Arch is the bitness of a target library.
type Arch int

const (
	Arch32 Arch = 32
	Arch64 Arch = 64
)

func (a Arch) String() string {
	return fmt.Sprintf("%d-bit", int(a))
}

// Patterns are matched against lower-cased base names.
var (
	target64Pattern   = "steam_api64.dll"
	target32Pattern   = "steam_api.dll"
	executablePattern = "*.exe"
	// leftoverPattern matches artifacts of an interrupted Steamless run.
	leftoverPattern = "*.unpacked.exe"
)

// Target is one Steam API library scheduled for replacement.
type Target struct {
	Path string
	Arch Arch
	// ClientPath is where the companion steamclient library goes, beside the
	// largest executable. Empty when the tree has no executable.
	ClientPath  string
	MetadataDir string
}

// LibraryName returns the library's file name as found on disk.
func (t Target) LibraryName() string {
	return filepath.Base(t.Path)
}

// Dir returns the directory containing the library.
func (t Target) Dir() string {
	return filepath.Dir(t.Path)
}

// ClientName returns the companion client library name for the target's arch.
func (t Target) ClientName() string {
	return ClientName(t.Arch)
}

// ReplacementName returns the cache file name that replaces the library.
func (t Target) ReplacementName() string {
	if t.Arch == Arch64 {
		return "steam_api64.dll"
	}
	return "steam_api.dll"
}

// ClientName returns the steamclient library name for arch.
func ClientName(arch Arch) string {
	if arch == Arch64 {
		return "steamclient64.dll"
	}
	return "steamclient.dll"
}

// Executable is a file with an .exe extension.
type Executable struct {
	Path string
	Size int64
}

// Result holds everything one scan discovered, in walk order.
type Result struct {
	Root        string
	Targets     []Target
	Executables []Executable
	// Largest is the biggest executable; the first one wins a size tie. Nil
	// when no executable exists.
	Largest *Executable
}

// Scan walks root without following symbolic links below it; root itself may
// be a link and is resolved first. When no target library is present the
// populated Result is returned together with ErrNoTargetsFound.
func Scan(root string) (Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrNotADirectory, root)
		}
		return Result{}, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s", ErrNotADirectory, root)
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s: %w", root, err)
	}
	root = resolved

	result := Result{Root: root}
	var targets []Target
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		name := strings.ToLower(d.Name())
		switch {
		case match(target64Pattern, name):
			targets = append(targets, Target{Path: path, Arch: Arch64})
		case match(target32Pattern, name):
			targets = append(targets, Target{Path: path, Arch: Arch32})
		case match(leftoverPattern, name):
			return nil
		case match(executablePattern, name):
			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			exe := Executable{Path: path, Size: info.Size()}
			result.Executables = append(result.Executables, exe)
			if result.Largest == nil || exe.Size > result.Largest.Size {
				largest := exe
				result.Largest = &largest
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("walk %s: %w", root, err)
	}

	for i := range targets {
		targets[i].MetadataDir = filepath.Join(targets[i].Dir(), MetadataDirName)
		if result.Largest != nil {
			targets[i].ClientPath = filepath.Join(filepath.Dir(result.Largest.Path), targets[i].ClientName())
		}
	}
	result.Targets = targets

	if len(result.Targets) == 0 {
		return result, fmt.Errorf("%w under %s", ErrNoTargetsFound, root)
	}
	return result, nil
}

func match(pattern, name string) bool {
	ok, err := doublestar.Match(pattern, name)
	return err == nil && ok
}
