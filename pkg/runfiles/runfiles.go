// Package runfiles locates data dependencies of a binary launched by Bazel.
//
// Binaries started with "bazel run" or as build actions see their data
// dependencies through a runfiles tree or manifest next to the executable.
// npmgen uses this to find the hermetic node and npm binaries shipped by the
// @nodejs repository instead of whatever is on the host PATH.
package runfiles

import (
	"path/filepath"
	"strings"

	bazel "github.com/bazelbuild/rules_go/go/runfiles"

	"github.com/matzehuels/npmgen/pkg/errors"
)

// MainRepo is the canonical name of the main repository under Bzlmod.
// Paths of the form "//pkg/file" resolve below it.
const MainRepo = "_main"

// Runfiles resolves Bazel repository paths against the runfiles of a binary.
type Runfiles struct {
	rf *bazel.Runfiles
}

// New locates the runfiles of the executable at argv0. RUNFILES_MANIFEST_FILE,
// RUNFILES_DIR and "<argv0>.runfiles[_manifest]" are tried first. A binary
// that runs from inside another binary's runfiles tree (a tool invoked by a
// build action) falls back to the enclosing "*.runfiles" directory.
func New(argv0 string) (*Runfiles, error) {
	rf, err := bazel.New(bazel.ProgramName(argv0))
	if err == nil {
		return &Runfiles{rf: rf}, nil
	}
	dir, ok := enclosingDir(argv0)
	if !ok {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "must be run in a Bazel environment: no runfiles for %s", argv0)
	}
	return NewWithDir(dir)
}

// NewWithDir returns a Runfiles rooted at the runfiles directory dir.
func NewWithDir(dir string) (*Runfiles, error) {
	rf, err := bazel.New(bazel.Directory(dir))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open runfiles %s", dir)
	}
	return &Runfiles{rf: rf}, nil
}

func enclosingDir(argv0 string) (string, bool) {
	abs, err := filepath.Abs(argv0)
	if err != nil {
		return "", false
	}
	parts := strings.Split(filepath.ToSlash(abs), "/")
	for i, part := range parts {
		if !strings.HasSuffix(part, ".runfiles") || i+1 >= len(parts) {
			continue
		}
		dir := filepath.FromSlash(strings.Join(parts[:i+1], "/"))
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			return resolved, true
		}
		return dir, true
	}
	return "", false
}

// ValidateRepoPath checks that repoPath is an absolute Bazel path such as
// "//tools/npm" or "@nodejs//bin/npm": no target names and no relative
// components.
func ValidateRepoPath(repoPath string) error {
	if !strings.HasPrefix(repoPath, "//") && !strings.HasPrefix(repoPath, "@") {
		return errors.New(errors.ErrCodeInvalidPath, "absolute Bazel path required: %s", repoPath)
	}
	if strings.Contains(repoPath, ":") {
		return errors.New(errors.ErrCodeInvalidPath, "absolute Bazel target not allowed, use a path: %s", repoPath)
	}
	for _, part := range strings.Split(repoPath, "/") {
		if part == "." || part == ".." {
			return errors.New(errors.ErrCodeInvalidPath, "absolute Bazel path only, no relative paths: %s", repoPath)
		}
	}
	return nil
}

// Location converts repoPath to a runfiles location: "@nodejs//bin/npm"
// becomes "nodejs/bin/npm" and "//tools/npm" becomes "_main/tools/npm".
func Location(repoPath string) (string, error) {
	if err := ValidateRepoPath(repoPath); err != nil {
		return "", err
	}
	if rest, ok := strings.CutPrefix(repoPath, "@"); ok {
		repo, sub, _ := strings.Cut(rest, "//")
		if repo == "" || sub == "" {
			return "", errors.New(errors.ErrCodeInvalidPath, "repository and path required: %s", repoPath)
		}
		return repo + "/" + sub, nil
	}
	return MainRepo + "/" + strings.TrimPrefix(repoPath, "//"), nil
}

// Path returns the filesystem location of repoPath. In directory mode the
// result is not checked for existence; in manifest mode an unlisted path is
// an error.
func (r *Runfiles) Path(repoPath string) (string, error) {
	loc, err := Location(repoPath)
	if err != nil {
		return "", err
	}
	path, err := r.rf.Rlocation(loc)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "%s not in runfiles", repoPath)
	}
	return filepath.FromSlash(path), nil
}
