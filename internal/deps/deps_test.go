package deps

import (
	"archive/zip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"autocrack/internal/services"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for empty command: %q", results[2].Detail)
	}
	if results[0].Path != present {
		t.Fatalf("expected resolved path %q, got %q", present, results[0].Path)
	}
	if missing := Missing(results); len(missing) != 2 || missing[0] != "Missing" || missing[1] != "Unset" {
		t.Fatalf("unexpected missing list %v", missing)
	}
	results[1].Optional = true
	if missing := Missing(results); len(missing) != 1 {
		t.Fatalf("optional dependencies are not missing, got %v", missing)
	}
}

func TestCheckCacheAndRequire(t *testing.T) {
	cache := t.TempDir()
	if err := os.WriteFile(filepath.Join(cache, Library64), []byte("dll"), 0o644); err != nil {
		t.Fatal(err)
	}

	statuses := CheckCache(cache)
	if len(statuses) != len(CacheFiles()) {
		t.Fatalf("expected %d statuses, got %d", len(CacheFiles()), len(statuses))
	}
	for _, st := range statuses {
		if want := st.Name == Library64; st.Available != want {
			t.Fatalf("%s available=%v, want %v", st.Name, st.Available, want)
		}
	}

	if _, err := Require(cache, Library64); err != nil {
		t.Fatalf("Require present: %v", err)
	}
	_, err := Require(cache, Client64)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing dependency steamclient64.dll") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func buildSteamlessZip(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "steamless.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		SteamlessTool:           "tool",
		"Plugins/Steamless.dll": "plugin",
	} {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSetupDownloadsMissingAndExtracts(t *testing.T) {
	zipBody := buildSteamlessZip(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if strings.HasSuffix(r.URL.Path, ".zip") {
			_, _ = w.Write(zipBody)
			return
		}
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	cache := t.TempDir()
	if err := os.WriteFile(filepath.Join(cache, OverlayFont), []byte("font"), 0o644); err != nil {
		t.Fatal(err)
	}

	result, err := Setup(context.Background(), SetupOptions{
		CacheDir:    cache,
		BaseURL:     srv.URL + "/deps/",
		Concurrency: 2,
		HTTP:        srv.Client(),
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != OverlayFont {
		t.Fatalf("Skipped = %v", result.Skipped)
	}
	if len(result.Downloaded) != 6 || !result.Extracted {
		t.Fatalf("unexpected result %+v", result)
	}
	if int(hits.Load()) != 6 {
		t.Fatalf("expected 6 requests, got %d", hits.Load())
	}
	data, err := os.ReadFile(filepath.Join(cache, Library64))
	if err != nil || string(data) != "/deps/x64/steam_api64.dll" {
		t.Fatalf("library contents %q, %v", data, err)
	}
	if _, err := os.Stat(filepath.Join(cache, SteamlessDir, "Plugins", "Steamless.dll")); err != nil {
		t.Fatalf("plugin not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(cache, SteamlessZip)); !os.IsNotExist(err) {
		t.Fatalf("expected archive to be removed, got %v", err)
	}
	for _, st := range CheckCache(cache) {
		if !st.Available {
			t.Fatalf("%s still missing after setup", st.Name)
		}
	}

	again, err := Setup(context.Background(), SetupOptions{CacheDir: cache, HTTP: srv.Client()})
	if err != nil {
		t.Fatalf("second Setup: %v", err)
	}
	if len(again.Downloaded) != 0 || again.Extracted || len(again.Skipped) != len(CacheFiles()) {
		t.Fatalf("second run should be a no-op, got %+v", again)
	}
}

func TestSetupFailsOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	_, err := Setup(context.Background(), SetupOptions{
		CacheDir: t.TempDir(),
		BaseURL:  srv.URL,
		HTTP:     srv.Client(),
	})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
}

func TestSetupRequiresBaseURL(t *testing.T) {
	_, err := Setup(context.Background(), SetupOptions{CacheDir: t.TempDir()})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evil.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	w, err := zw.Create("../escape.txt")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = w.Write([]byte("x"))
	_ = zw.Close()
	_ = f.Close()

	err = ExtractZip(path, filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, ErrUnsafeEntry) {
		t.Fatalf("expected ErrUnsafeEntry, got %v", err)
	}
}
