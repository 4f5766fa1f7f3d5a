// Package fileutil holds the small file primitives shared by the replacement,
// archive, and ledger code: copies, sizes, digests and atomic writes.
package fileutil

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// CopyFile copies src over dst through a temp file in dst's directory, so
// readers of dst see either the old or the new content. The source mode is
// kept.
func CopyFile(src, dst string) error {
	_, err := CopyFileDigest(src, dst)
	return err
}

// CopyFileDigest is CopyFile that also returns the xxhash64 of the copied
// bytes.
func CopyFileDigest(src, dst string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("copy %s: not a regular file", src)
	}

	hasher := xxhash.New()
	err = replaceVia(dst, info.Mode().Perm(), func(w io.Writer) error {
		n, err := io.Copy(io.MultiWriter(w, hasher), in)
		if err == nil && n != info.Size() {
			err = fmt.Errorf("short copy: %d of %d bytes", n, info.Size())
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return formatDigest(hasher.Sum64()), nil
}

// WriteFileAtomic writes data to a temp file beside path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return replaceVia(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// replaceVia fills a hidden temp file next to path with fill, then renames
// it over path. The temp file never survives a failure.
func replaceVia(path string, perm os.FileMode, fill func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Digest returns the xxhash64 of the file at path as 16 hex digits.
func Digest(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return formatDigest(hasher.Sum64()), nil
}

// DigestString hashes an arbitrary key, for lock file names and the like.
func DigestString(value string) string {
	return formatDigest(xxhash.Sum64String(value))
}

func formatDigest(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

// Size returns the size of a file. exists is false when the path is absent.
func Size(path string) (size int64, exists bool, err error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return info.Size(), true, nil
}

// Exists reports whether path names an existing file or directory.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
