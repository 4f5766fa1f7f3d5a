package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"autocrack/internal/deps"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()
	WriteFileByte(t, path, size, 0x42)
}

// WriteFileByte is WriteFile with a caller-chosen fill byte, so two files of
// equal size can still differ in content.
func WriteFileByte(t testing.TB, path string, size int64, fill byte) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = fill
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteContent writes data to path, creating parent directories.
func WriteContent(t testing.TB, path string, data string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReplacementSize is the size of every emulator library PopulateCache writes.
// Game libraries in tests use a different size so they count as genuine.
const ReplacementSize = 4096

// PopulateCache fills the dependency cache with stand-ins for every file setup
// downloads. Emulator libraries embed interface names so signature extraction
// has something to find when run against an already replaced target.
func PopulateCache(t testing.TB, cacheDir string) {
	t.Helper()
	for _, file := range deps.CacheFiles() {
		path := filepath.Join(cacheDir, file.Local)
		switch file.Name {
		case deps.Library32, deps.Library64:
			WriteFile(t, path, ReplacementSize)
		default:
			WriteContent(t, path, file.Name)
		}
	}
}

// GameLibrary is a fake steam_api binary whose content carries interface
// names. The result is padded to size bytes.
func GameLibrary(t testing.TB, path string, size int, interfaces ...string) {
	t.Helper()
	content := []byte{}
	for _, name := range interfaces {
		content = append(content, 0x00)
		content = append(content, name...)
	}
	for len(content) < size {
		content = append(content, 0x00)
	}
	WriteContent(t, path, string(content))
}
