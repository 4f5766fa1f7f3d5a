package signature_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"autocrack/internal/signature"
)

func writeBinary(t *testing.T, dir string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, "steam_api64.dll")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func sampleBinary() []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x4d, 0x5a, 0x90, 0x00, 0xff, 0xfe})
	buf.WriteString("SteamUser021\x00")
	buf.Write([]byte{0xc3, 0x28})
	buf.WriteString("SteamClient017\x00SteamFriends017\x00")
	buf.WriteString("STEAMAPPS_INTERFACE_VERSION008\x00SteamUser020\x00SteamClient017")
	buf.WriteString("SteamNetworkingSockets012\x00SteamNetworking006")
	return buf.Bytes()
}

func TestExtractWritesCatalogOrder(t *testing.T) {
	dir := t.TempDir()
	binary := writeBinary(t, dir, sampleBinary())
	metadata := filepath.Join(dir, "steam_settings")
	if err := os.MkdirAll(metadata, 0o755); err != nil {
		t.Fatal(err)
	}

	ex := signature.New(signature.DefaultCatalog, nil)
	count, err := ex.Extract(binary, metadata)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := "STEAMAPPS_INTERFACE_VERSION008\n" +
		"SteamClient017\n" +
		"SteamFriends017\n" +
		"SteamNetworkingSockets012\n" +
		"SteamNetworking006\n" +
		"SteamUser021\n" +
		"SteamUser020\n"
	got, err := os.ReadFile(filepath.Join(metadata, signature.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Fatalf("manifest mismatch:\n got %q\nwant %q", got, want)
	}
	if count != 7 {
		t.Fatalf("count = %d, want 7", count)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	binary := writeBinary(t, dir, sampleBinary())
	ex := signature.New(signature.DefaultCatalog, nil)

	if _, err := ex.Extract(binary, dir); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(filepath.Join(dir, signature.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ex.Extract(binary, dir); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(filepath.Join(dir, signature.ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("manifest changed between runs:\n%q\n%q", first, second)
	}
}

func TestExtractOverwritesPreviousManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, signature.ManifestName)
	if err := os.WriteFile(manifest, []byte("SteamStale001\nSteamStale002\nSteamStale003\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	binary := writeBinary(t, dir, []byte("SteamUtils010"))
	if _, err := signature.New(signature.DefaultCatalog, nil).Extract(binary, dir); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(manifest)
	if string(got) != "SteamUtils010\n" {
		t.Fatalf("manifest not regenerated: %q", got)
	}
}

func TestExtractEmptyBinary(t *testing.T) {
	dir := t.TempDir()
	binary := writeBinary(t, dir, nil)
	_, err := signature.New(signature.DefaultCatalog, nil).Extract(binary, dir)
	if !errors.Is(err, signature.ErrEmptyOrUnreadable) {
		t.Fatalf("expected ErrEmptyOrUnreadable, got %v", err)
	}
}

func TestExtractNoMatchesWritesEmptyManifest(t *testing.T) {
	dir := t.TempDir()
	binary := writeBinary(t, dir, []byte{0x00, 0x01, 0xff})
	count, err := signature.New(signature.DefaultCatalog, nil).Extract(binary, dir)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if count != 0 {
		t.Fatalf("count = %d, want 0", count)
	}
	info, err := os.Stat(filepath.Join(dir, signature.ManifestName))
	if err != nil || info.Size() != 0 {
		t.Fatalf("expected empty manifest, err=%v", err)
	}
}

func TestInvalidPatternIsSkipped(t *testing.T) {
	ex := signature.New([]string{`Steam(Broken`, `SteamApps\d+`}, nil)
	if ex.Patterns() != 1 {
		t.Fatalf("Patterns = %d, want 1", ex.Patterns())
	}
	got, err := ex.Match([]byte("xxSteamApps008yy"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "SteamApps008" {
		t.Fatalf("unexpected matches: %v", got)
	}
}
