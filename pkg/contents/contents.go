// Package contents lists the files of an installed node_modules tree in the
// form embedded into BUILD files.
package contents

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// List is a sorted set of slash-separated paths relative to node_modules.
type List []string

// WarnFunc is told about every file left out of a [List].
type WarnFunc func(path, target string)

// Enumerate walks root and returns every file below it. Files whose name
// contains whitespace cannot be declared as Bazel inputs; they are left out
// and reported to warn, if non-nil, together with target.
func Enumerate(root, target string, warn WarnFunc) (List, error) {
	var list List
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Symlinked directories are not descended into and not listed.
		if d.Type()&fs.ModeSymlink != 0 {
			if info, err := os.Stat(p); err == nil && info.IsDir() {
				return nil
			}
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if HasWhitespace(d.Name()) {
			if warn != nil {
				warn(rel, target)
			}
			return nil
		}
		list = append(list, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(list)
	return list, nil
}

// HasWhitespace reports whether name contains a Unicode space character.
func HasWhitespace(name string) bool {
	return strings.IndexFunc(name, unicode.IsSpace) >= 0
}

// Contains reports whether p is in l.
func (l List) Contains(p string) bool {
	i := sort.SearchStrings(l, p)
	return i < len(l) && l[i] == p
}
