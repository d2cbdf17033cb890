// Package pkgjson reads and rewrites npm package descriptors (package.json)
// and lockfile-shaped documents.
//
// npm refuses to freeze a tree whose packages declare peer dependencies that
// are not installed, and npmgen deliberately never installs peers (whoever
// depends on the generated library supplies them). The peer declarations are
// therefore removed from every installed package.json before "npm shrinkwrap"
// runs. The rewrite is split in two: [PeerDependencyEdits] is a pure walk
// over an fs.FS that returns the edits, and [Apply] writes them, one atomic
// replace per file.
package pkgjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/matzehuels/npmgen/pkg/fsutil"
)

// FileName is the npm package descriptor filename.
const FileName = "package.json"

// PeerDependenciesKey is the descriptor field removed by [StripPeerDependencies].
const PeerDependenciesKey = "peerDependencies"

// Descriptor is the minimal package.json npmgen synthesizes to make npm
// install exactly one dependency.
type Descriptor struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// ForDependency returns a descriptor named encodedName that depends on
// dependency at exactly version. name and version are repeated at the top
// level so they end up in the generated shrinkwrap.
func ForDependency(encodedName, dependency, version string) Descriptor {
	return Descriptor{
		Name:         encodedName,
		Version:      version,
		Dependencies: map[string]string{dependency: version},
	}
}

// Write stores d as dir/package.json.
func Write(dir string, d Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFile(filepath.Join(dir, FileName), append(data, '\n'), 0644)
}

// Edit replaces the content of one file. Path is slash-separated and
// relative to the tree the edit was computed from.
type Edit struct {
	Path    string
	Content []byte
}

// PeerDependencyEdits walks fsys and returns an edit for every package.json
// that declares peer dependencies, in walk (lexical) order. Descriptors that
// are not valid JSON (test fixtures shipped inside packages) are passed to
// skip, when non-nil, and otherwise ignored.
func PeerDependencyEdits(fsys fs.FS, skip func(path string, err error)) ([]Edit, error) {
	var edits []Edit
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Base(p) != FileName || !d.Type().IsRegular() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		stripped, changed, err := StripPeerDependencies(data)
		if err != nil {
			if skip != nil {
				skip(p, err)
			}
			return nil
		}
		if changed {
			edits = append(edits, Edit{Path: p, Content: stripped})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edits, nil
}

// Apply writes every edit below root, keeping each file's permissions.
func Apply(root string, edits []Edit) error {
	for _, e := range edits {
		p := filepath.Join(root, filepath.FromSlash(e.Path))
		perm := os.FileMode(0644)
		if info, err := os.Stat(p); err == nil {
			perm = info.Mode().Perm()
		}
		if err := fsutil.WriteFile(p, e.Content, perm); err != nil {
			return fmt.Errorf("rewrite %s: %w", e.Path, err)
		}
	}
	return nil
}

// StripPeerDependencies removes "peerDependencies" from the JSON object in
// data and, recursively, from every package object nested under a
// "dependencies" or "packages" map (the lockfile layouts). Member order is
// preserved. When nothing was removed, data is returned unchanged and
// changed is false; otherwise the result is re-indented with two spaces.
func StripPeerDependencies(data []byte) (out []byte, changed bool, err error) {
	obj, err := parseObject(data)
	if err != nil {
		return nil, false, err
	}
	obj, changed, err = stripObject(obj)
	if err != nil || !changed {
		return data, false, err
	}

	compact, err := obj.MarshalJSON()
	if err != nil {
		return nil, false, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return nil, false, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), true, nil
}

func stripObject(obj object) (object, bool, error) {
	changed := false
	kept := obj[:0:0]
	for _, m := range obj {
		switch m.Key {
		case PeerDependenciesKey:
			changed = true
			continue
		case "dependencies", "packages":
			v, c, err := stripPackageMap(m.Value)
			if err != nil {
				return nil, false, err
			}
			if c {
				m.Value = v
				changed = true
			}
		}
		kept = append(kept, m)
	}
	return kept, changed, nil
}

// stripPackageMap recurses into a name→package map. Maps of version strings
// (package.json "dependencies") are left alone.
func stripPackageMap(raw json.RawMessage) (json.RawMessage, bool, error) {
	if !isObject(raw) {
		return raw, false, nil
	}
	pkgs, err := parseObject(raw)
	if err != nil {
		return nil, false, err
	}
	changed := false
	for i, m := range pkgs {
		if !isObject(m.Value) {
			continue
		}
		pkg, err := parseObject(m.Value)
		if err != nil {
			return nil, false, err
		}
		pkg, c, err := stripObject(pkg)
		if err != nil {
			return nil, false, err
		}
		if c {
			v, err := pkg.MarshalJSON()
			if err != nil {
				return nil, false, err
			}
			pkgs[i].Value = v
			changed = true
		}
	}
	if !changed {
		return raw, false, nil
	}
	v, err := pkgs.MarshalJSON()
	return v, true, err
}
