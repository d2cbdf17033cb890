// Package npmtest provides an in-process npm.PackageManager for tests.
//
// The fake writes a fixed node_modules tree on install and freezes it into
// a shrinkwrap, behaving like npm where it matters to the callers: the
// shrinkwrap step refuses trees whose packages still declare peer
// dependencies, and every call must be given its own cache directory.
package npmtest

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/npmgen/pkg/npm"
)

// Call records one package-manager invocation.
type Call struct {
	Command  string
	Dir      string
	CacheDir string
}

// PackageManager is a fake npm. Tree maps slash-separated paths below
// node_modules to file content and is written by every Install.
type PackageManager struct {
	Tree map[string]string

	// LockPeers adds peerDependencies to the named top-level entries of
	// the generated shrinkwrap, the way old npm versions recorded them.
	LockPeers map[string]map[string]string

	// InstallErr and ShrinkwrapErr, when set, are returned after the
	// call is recorded.
	InstallErr    error
	ShrinkwrapErr error

	mu    sync.Mutex
	calls []Call
}

var _ npm.PackageManager = (*PackageManager)(nil)

// Calls returns the recorded invocations in order.
func (p *PackageManager) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Call(nil), p.calls...)
}

// Count returns how often command ran.
func (p *PackageManager) Count(command string) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Command == command {
			n++
		}
	}
	return n
}

func (p *PackageManager) record(command, dir, cacheDir string) error {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Command: command, Dir: dir, CacheDir: cacheDir})
	p.mu.Unlock()
	if cacheDir == "" {
		return fmt.Errorf("npm %s: no cache directory", command)
	}
	return os.MkdirAll(cacheDir, 0755)
}

// Install writes Tree below dir/node_modules.
func (p *PackageManager) Install(_ context.Context, dir, cacheDir string) error {
	if err := p.record("install", dir, cacheDir); err != nil {
		return err
	}
	if p.InstallErr != nil {
		return p.InstallErr
	}
	for rel, content := range p.Tree {
		path := filepath.Join(dir, "node_modules", filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return err
		}
	}
	return nil
}

// Shrinkwrap writes dir/npm-shrinkwrap.json listing every top-level
// package of the installed tree.
func (p *PackageManager) Shrinkwrap(_ context.Context, dir, cacheDir string) error {
	if err := p.record("shrinkwrap", dir, cacheDir); err != nil {
		return err
	}
	if p.ShrinkwrapErr != nil {
		return p.ShrinkwrapErr
	}

	var root struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}

	modules := filepath.Join(dir, "node_modules")
	deps := map[string]any{}
	err = filepath.WalkDir(modules, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || d.Name() != "package.json" {
			return err
		}
		var pkg struct {
			Name    string         `json:"name"`
			Version string         `json:"version"`
			Peers   map[string]any `json:"peerDependencies"`
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if json.Unmarshal(data, &pkg) != nil {
			return nil
		}
		if len(pkg.Peers) > 0 {
			return fmt.Errorf("npm ERR! peer dep missing: %s requires %s", pkg.Name, peerNames(pkg.Peers))
		}
		rel, _ := filepath.Rel(modules, filepath.Dir(path))
		if pkg.Name != "" && filepath.ToSlash(rel) == pkg.Name {
			entry := map[string]any{"version": pkg.Version}
			if peers, ok := p.LockPeers[pkg.Name]; ok {
				entry["peerDependencies"] = peers
			}
			deps[pkg.Name] = entry
		}
		return nil
	})
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(map[string]any{
		"name":            root.Name,
		"version":         root.Version,
		"lockfileVersion": 1,
		"dependencies":    deps,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "npm-shrinkwrap.json"), append(out, '\n'), 0644)
}

func peerNames(peers map[string]any) string {
	names := make([]string, 0, len(peers))
	for n := range peers {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
