package pipeline

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"autocrack/internal/config"
	"autocrack/internal/emuconfig"
	"autocrack/internal/fileutil"
	"autocrack/internal/guard"
	"autocrack/internal/logging"
	"autocrack/internal/progress"
	"autocrack/internal/services/steamapi"
	"autocrack/internal/testsupport"
)

const testAppID = "480"

// unpackFunc adapts a function to Unpacker.
type unpackFunc func(ctx context.Context, exe string) error

func (f unpackFunc) Unpack(ctx context.Context, exe string) error { return f(ctx, exe) }

// recordingUnpacker writes an unpacked sibling for every executable except
// those listed in fail, which get the mapped error.
type recordingUnpacker struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func (u *recordingUnpacker) Unpack(_ context.Context, exe string) error {
	u.mu.Lock()
	u.calls = append(u.calls, filepath.Base(exe))
	u.mu.Unlock()
	if err, ok := u.fail[filepath.Base(exe)]; ok {
		return err
	}
	data, err := os.ReadFile(exe)
	if err != nil {
		return err
	}
	return os.WriteFile(exe+".unpacked.exe", append([]byte("unpacked:"), data...), 0o644)
}

type fakeMetadata struct{}

func (fakeMetadata) DLCs(context.Context, string) ([]emuconfig.DLC, error) {
	return []emuconfig.DLC{{ID: "1001", Name: "Soundtrack"}}, nil
}

func (fakeMetadata) Depots(context.Context, string) ([]string, error) {
	return []string{"481"}, nil
}

func (fakeMetadata) Languages(context.Context, string) ([]string, error) {
	return []string{"english", "german"}, nil
}

func (fakeMetadata) Schema(context.Context, string, string) (steamapi.Schema, error) {
	return steamapi.Schema{
		Achievements: []emuconfig.Achievement{{Name: "ACH_WIN", DisplayName: "Winner", Description: "Win"}},
		Stats:        []emuconfig.Stat{{Name: "NumGames", Type: "int", Default: 0}},
	}, nil
}

func (fakeMetadata) DownloadIcons(_ context.Context, achievements []emuconfig.Achievement, _ string) ([]emuconfig.Achievement, error) {
	return achievements, nil
}

type fixture struct {
	cfg     *config.Config
	gameDir string
	library string
	// pristine is the original library content.
	pristine []byte
}

// newFixture lays out a game with one 64-bit library in bin/ and two
// executables, the largest of which sits in the game root.
func newFixture(t *testing.T, opts ...testsupport.ConfigOption) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	testsupport.PopulateCache(t, cfg.Paths.CacheDir)

	gameDir := filepath.Join(testsupport.BaseDir(cfg), "game")
	library := filepath.Join(gameDir, "bin", "steam_api64.dll")
	testsupport.GameLibrary(t, library, 1000, "SteamClient017", "SteamUser021", "SteamUtils009")
	testsupport.WriteFile(t, filepath.Join(gameDir, "Game.exe"), 2048)
	testsupport.WriteFile(t, filepath.Join(gameDir, "bin", "helper.exe"), 128)

	pristine, err := os.ReadFile(library)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{cfg: cfg, gameDir: gameDir, library: library, pristine: pristine}
}

func newTestPipeline(f *fixture, opts ...Option) *Pipeline {
	base := []Option{
		WithReplacer(guard.New(guard.WithDelay(0))),
		WithMetadata(fakeMetadata{}, false),
		WithLogger(logging.NewNop()),
	}
	return New(f.cfg.Paths.CacheDir, append(base, opts...)...)
}

func (f *fixture) request() Request {
	return Request{GameDir: f.gameDir, AppID: testAppID}
}

// snapshot maps every file under root to its digest.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	files := make(map[string]string)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		digest, err := fileutil.Digest(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		files[filepath.ToSlash(rel)] = digest
		return nil
	})
	if err != nil {
		t.Fatalf("snapshot %s: %v", root, err)
	}
	return files
}

func assertMonotonic(t *testing.T, events []progress.Event) {
	t.Helper()
	for i := 1; i < len(events); i++ {
		if events[i].Percent < events[i-1].Percent {
			t.Fatalf("progress went backwards at %d: %+v -> %+v", i, events[i-1], events[i])
		}
	}
}

func assertFinalDone(t *testing.T, rec *progress.Recorder) {
	t.Helper()
	last, ok := rec.Last()
	if !ok || last.Percent != 100 {
		t.Fatalf("expected a terminal 100 event, got %+v (ok=%v)", last, ok)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func countLines(s, substr string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}
