// Package archive bundles a replaced library, its companion client, and the
// generated metadata directory into the per-library Goldberg.zip.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/flate"

	"autocrack/internal/fileutil"
	"autocrack/internal/services"
)

const (
	// DirName is created beside the library to hold the archive.
	DirName = "Crack"
	// FileName is the archive's name inside DirName.
	FileName = "Goldberg.zip"
	// MetadataPrefix roots metadata entries inside the archive.
	MetadataPrefix = "steam_settings"
)

// ErrArchiveWrite marks any failure while producing the archive. No partial
// archive is left at the destination when it is returned.
var ErrArchiveWrite = fmt.Errorf("%w: archive write failed", services.ErrSerialization)

// Bundle lists the inputs of one archive.
type Bundle struct {
	// Library is included under its bare name when it exists.
	Library string
	// Client is included under its bare name when set.
	Client      string
	MetadataDir string
}

// Result describes a written archive.
type Result struct {
	Path    string
	Entries []string
}

// PathFor returns the archive location for a library directory.
func PathFor(libraryDir string) string {
	return filepath.Join(libraryDir, DirName, FileName)
}

// entryTime stamps every entry so identical inputs give identical bytes.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

type entry struct {
	name string
	src  string
}

// Entries returns the archive entry names for b in archive order, without
// writing anything.
func Entries(b Bundle) ([]string, error) {
	items, err := collect(b)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.name
	}
	return names, nil
}

func collect(b Bundle) ([]entry, error) {
	var items []entry
	if b.Library != "" && fileutil.Exists(b.Library) {
		items = append(items, entry{name: filepath.Base(b.Library), src: b.Library})
	}
	if b.Client != "" {
		items = append(items, entry{name: filepath.Base(b.Client), src: b.Client})
	}
	if b.MetadataDir == "" {
		return items, nil
	}
	err := filepath.WalkDir(b.MetadataDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(b.MetadataDir, p)
		if err != nil {
			return err
		}
		items = append(items, entry{name: path.Join(MetadataPrefix, filepath.ToSlash(rel)), src: p})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walk %s: %w", ErrArchiveWrite, b.MetadataDir, err)
	}
	return items, nil
}

// Build writes the archive for b to dest, creating dest's directory. The zip is
// assembled in a temp file beside dest and renamed into place on success.
func Build(dest string, b Bundle) (Result, error) {
	items, err := collect(b)
	if err != nil {
		return Result{}, err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("%w: create %s: %w", ErrArchiveWrite, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+"-*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("%w: create temp file: %w", ErrArchiveWrite, err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (Result, error) {
		tmp.Close()
		os.Remove(tmpName)
		return Result{}, err
	}

	zw := zip.NewWriter(tmp)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	names := make([]string, 0, len(items))
	for _, it := range items {
		if err := addFile(zw, it); err != nil {
			zw.Close()
			return fail(fmt.Errorf("%w: %s: %w", ErrArchiveWrite, it.name, err))
		}
		names = append(names, it.name)
	}
	if err := zw.Close(); err != nil {
		return fail(fmt.Errorf("%w: finalize: %w", ErrArchiveWrite, err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Result{}, fmt.Errorf("%w: close: %w", ErrArchiveWrite, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return Result{}, fmt.Errorf("%w: rename into place: %w", ErrArchiveWrite, err)
	}
	return Result{Path: dest, Entries: names}, nil
}

func addFile(zw *zip.Writer, it entry) error {
	src, err := os.Open(it.src)
	if err != nil {
		return err
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return errors.New("not a regular file")
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = it.name
	header.Method = zip.Deflate
	header.Modified = entryTime
	header.Extra = nil

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// List returns the entry names of an existing archive in stored order.
func List(archivePath string) ([]string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names, nil
}
