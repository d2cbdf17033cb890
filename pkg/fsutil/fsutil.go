// Package fsutil holds the small filesystem helpers shared by the generator
// and the installer: scoped temporary directories, file copies and atomic
// writes.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// TempDir is a scoped temporary directory. Release it with Close on every
// exit path, typically via defer right after creation.
type TempDir struct {
	path string
}

// NewTempDir creates a directory under parent (the system temp directory if
// parent is empty) whose name ends with suffix. The returned path is
// absolute even for a relative parent.
func NewTempDir(parent, suffix string) (*TempDir, error) {
	path, err := os.MkdirTemp(parent, "*"+suffix)
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		os.RemoveAll(path)
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &TempDir{path: abs}, nil
}

// Path returns the directory path.
func (d *TempDir) Path() string { return d.path }

// Join returns a path inside the directory.
func (d *TempDir) Join(elem ...string) string {
	return filepath.Join(append([]string{d.path}, elem...)...)
}

// Close removes the directory and everything in it. It is safe to call more
// than once and on a nil receiver.
func (d *TempDir) Close() error {
	if d == nil || d.path == "" {
		return nil
	}
	path := d.path
	d.path = ""
	return os.RemoveAll(path)
}

// CopyFile copies src to dst, replacing dst. Copying (rather than renaming)
// works across filesystems, which matters when the temp directory lives on a
// different partition than the output.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	return WriteFileAtomic(dst, info.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, in)
		return err
	})
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	return WriteFileAtomic(path, perm, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteFileAtomic writes a sibling temp file through fn and renames it over
// path, so readers never observe a partially written file.
func WriteFileAtomic(path string, perm os.FileMode, fn func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = fn(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
