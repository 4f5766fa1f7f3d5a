package scanner_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autocrack/internal/scanner"
	"autocrack/internal/services"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestScanClassifiesTargetsAndExecutables(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Game.exe"), 100)
	writeFile(t, filepath.Join(root, "bin", "Launcher.EXE"), 300)
	writeFile(t, filepath.Join(root, "bin", "Steam_Api64.DLL"), 10)
	writeFile(t, filepath.Join(root, "plugins", "steam_api.dll"), 10)
	writeFile(t, filepath.Join(root, "readme.txt"), 5)

	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Targets) != 2 {
		t.Fatalf("expected 2 targets, got %+v", result.Targets)
	}
	first := result.Targets[0]
	if first.Arch != scanner.Arch64 || first.LibraryName() != "Steam_Api64.DLL" {
		t.Fatalf("unexpected first target: %+v", first)
	}
	if first.ReplacementName() != "steam_api64.dll" || first.ClientName() != "steamclient64.dll" {
		t.Fatalf("unexpected names for 64-bit target: %s %s", first.ReplacementName(), first.ClientName())
	}
	if result.Targets[1].Arch != scanner.Arch32 {
		t.Fatalf("expected 32-bit second target: %+v", result.Targets[1])
	}
	if first.MetadataDir != filepath.Join(root, "bin", scanner.MetadataDirName) {
		t.Fatalf("unexpected metadata dir: %s", first.MetadataDir)
	}
	if len(result.Executables) != 2 {
		t.Fatalf("expected 2 executables, got %+v", result.Executables)
	}
	if result.Largest == nil || filepath.Base(result.Largest.Path) != "Launcher.EXE" {
		t.Fatalf("unexpected largest executable: %+v", result.Largest)
	}
	wantClient := filepath.Join(root, "bin", "steamclient.dll")
	if result.Targets[1].ClientPath != wantClient {
		t.Fatalf("client path = %s, want %s", result.Targets[1].ClientPath, wantClient)
	}
}

func TestScanLargestExecutableTieKeepsFirst(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.exe"), 50)
	writeFile(t, filepath.Join(root, "b.exe"), 50)
	writeFile(t, filepath.Join(root, "steam_api.dll"), 1)

	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if filepath.Base(result.Largest.Path) != "a.exe" {
		t.Fatalf("expected first encountered executable to win tie, got %s", result.Largest.Path)
	}
}

func TestScanNoTargets(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Game.exe"), 10)

	result, err := scanner.Scan(root)
	if !errors.Is(err, scanner.ErrNoTargetsFound) {
		t.Fatalf("expected ErrNoTargetsFound, got %v", err)
	}
	if !errors.Is(err, services.ErrNoOp) {
		t.Fatalf("expected no-op marker, got %v", err)
	}
	if len(result.Executables) != 1 {
		t.Fatalf("result should still report executables: %+v", result)
	}
}

func TestScanRejectsMissingOrFileRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	writeFile(t, file, 1)

	for _, path := range []string{filepath.Join(root, "missing"), file} {
		_, err := scanner.Scan(path)
		if !errors.Is(err, scanner.ErrNotADirectory) {
			t.Fatalf("%s: expected ErrNotADirectory, got %v", path, err)
		}
		if !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("%s: expected not-found marker, got %v", path, err)
		}
	}
}

func TestScanSkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "steam_api.dll"), 1)
	writeFile(t, filepath.Join(root, "steam_api64.dll"), 1)
	if err := os.Symlink(outside, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "steam_api.dll"), filepath.Join(root, "steam_api.dll")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Targets) != 1 || result.Targets[0].Arch != scanner.Arch64 {
		t.Fatalf("expected only the regular 64-bit library, got %+v", result.Targets)
	}
}

func TestScanFollowsSymlinkedRoot(t *testing.T) {
	real := t.TempDir()
	writeFile(t, filepath.Join(real, "steam_api64.dll"), 1)
	writeFile(t, filepath.Join(real, "Game.exe"), 10)
	link := filepath.Join(t.TempDir(), "game")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	result, err := scanner.Scan(link)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Targets) != 1 || len(result.Executables) != 1 {
		t.Fatalf("expected the linked tree to be scanned, got %+v", result)
	}
	want, err := filepath.EvalSymlinks(real)
	if err != nil {
		t.Fatal(err)
	}
	if result.Root != want {
		t.Fatalf("Root = %q, want resolved %q", result.Root, want)
	}
}

func TestScanIgnoresUnpackedLeftovers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "steam_api.dll"), 1)
	writeFile(t, filepath.Join(root, "Game.exe"), 10)
	writeFile(t, filepath.Join(root, "Game.exe.unpacked.exe"), 50)

	result, err := scanner.Scan(root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(result.Executables) != 1 || filepath.Base(result.Largest.Path) != "Game.exe" {
		t.Fatalf("leftover should not count as an executable, got %+v", result.Executables)
	}
}
