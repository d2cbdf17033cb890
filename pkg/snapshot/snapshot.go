// Package snapshot materializes an npm dependency and its shrinkwrap in a
// throwaway work directory.
//
// "npm shrinkwrap" is not deterministic, so a stored manifest is reused
// whenever it was generated for the same name and version; only otherwise
// is a new one resolved and frozen. Either way the dependency is installed,
// and the installed tree is what the BUILD file enumerates.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npmgen/pkg/config"
	"github.com/matzehuels/npmgen/pkg/fsutil"
	"github.com/matzehuels/npmgen/pkg/npm"
	"github.com/matzehuels/npmgen/pkg/npmreq"
	"github.com/matzehuels/npmgen/pkg/observability"
	"github.com/matzehuels/npmgen/pkg/pkgjson"
	"github.com/matzehuels/npmgen/pkg/shrinkwrap"
)

const (
	workDirSuffix = "npmgen-generate"
	cacheDirName  = ".npm"
	nodeModules   = "node_modules"
)

// Generator produces snapshots. PM is required; a nil Config means
// config.Default() and a nil Logger means log.Default().
type Generator struct {
	Config *config.Config
	PM     npm.PackageManager
	Logger *log.Logger
}

// Result is an installed dependency tree. The work directory is owned by
// the Result and removed by Close.
type Result struct {
	// Manifest is the shrinkwrap the tree was installed from. When Reused
	// it is byte-for-byte the stored manifest.
	Manifest *shrinkwrap.Manifest

	// WorkDir holds package.json, the shrinkwrap and node_modules.
	WorkDir string

	// Reused reports whether the stored manifest was valid.
	Reused bool

	tmp *fsutil.TempDir
}

// NodeModules returns the installed tree's root.
func (r *Result) NodeModules() string {
	return filepath.Join(r.WorkDir, nodeModules)
}

// Close removes the work directory.
func (r *Result) Close() error {
	if r == nil {
		return nil
	}
	return r.tmp.Close()
}

func (g *Generator) logger() *log.Logger {
	if g.Logger == nil {
		return log.Default()
	}
	return g.Logger
}

func (g *Generator) config() *config.Config {
	if g.Config == nil {
		return config.Default()
	}
	return g.Config
}

// Generate installs name@version in a new work directory. When the
// manifest at manifestPath was generated for name@version the install
// reproduces it; otherwise a new manifest is resolved, stripped of peer
// dependencies and written to manifestPath.
//
// The caller must Close the Result. On error nothing is left behind.
func (g *Generator) Generate(ctx context.Context, name, version, manifestPath string) (res *Result, err error) {
	logger := g.logger().With("npm_req", npmreq.Format(name, version))
	if !npmreq.IsExactVersion(version) {
		logger.Warn("version is not exact; the stored shrinkwrap is only reused for the same string", "version", version)
	}

	tmp, err := fsutil.NewTempDir(g.config().TempDir, workDirSuffix)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tmp.Close()
		}
	}()

	res = &Result{WorkDir: tmp.Path(), tmp: tmp}
	if shrinkwrap.IsValid(manifestPath, name, version, logger) {
		res.Reused = true
		res.Manifest, err = g.reuse(ctx, logger, res.WorkDir, manifestPath)
	} else {
		res.Manifest, err = g.resolve(ctx, logger, res.WorkDir, name, version, manifestPath)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (g *Generator) reuse(ctx context.Context, logger *log.Logger, work, manifestPath string) (*shrinkwrap.Manifest, error) {
	logger.Info("reusing shrinkwrap", "path", manifestPath)
	local := filepath.Join(work, shrinkwrap.FileName)
	if err := fsutil.CopyFile(manifestPath, local); err != nil {
		return nil, fmt.Errorf("copy shrinkwrap: %w", err)
	}
	m, err := shrinkwrap.Read(local)
	if err != nil {
		return nil, err
	}
	if err := g.PM.Install(ctx, work, filepath.Join(work, cacheDirName)); err != nil {
		return nil, err
	}
	observability.Manifest().OnManifestReused(ctx, npmreq.Format(m.PackageName(), m.Version))
	return m, nil
}

func (g *Generator) resolve(ctx context.Context, logger *log.Logger, work, name, version, manifestPath string) (*shrinkwrap.Manifest, error) {
	logger.Info("generating shrinkwrap", "path", manifestPath)
	cache := filepath.Join(work, cacheDirName)

	if err := pkgjson.Write(work, pkgjson.ForDependency(npmreq.Encode(name), name, version)); err != nil {
		return nil, fmt.Errorf("write %s: %w", pkgjson.FileName, err)
	}
	if err := g.PM.Install(ctx, work, cache); err != nil {
		return nil, err
	}

	// npm shrinkwrap rejects declared peers that are not installed.
	start := time.Now()
	root := filepath.Join(work, nodeModules)
	edits, err := pkgjson.PeerDependencyEdits(os.DirFS(root), func(p string, err error) {
		logger.Warn("skipping unparseable package.json", "path", p, "err", err)
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", nodeModules, err)
	}
	if err := pkgjson.Apply(root, edits); err != nil {
		return nil, err
	}
	logger.Debug("stripped peer dependencies", "files", len(edits), "duration", time.Since(start).Round(time.Millisecond))

	if err := g.PM.Shrinkwrap(ctx, work, cache); err != nil {
		return nil, err
	}
	m, err := shrinkwrap.Read(filepath.Join(work, shrinkwrap.FileName))
	if err != nil {
		return nil, err
	}
	if m, err = shrinkwrap.StripPeerDependencies(m); err != nil {
		return nil, err
	}
	if err := shrinkwrap.Write(manifestPath, m); err != nil {
		return nil, fmt.Errorf("store shrinkwrap: %w", err)
	}
	observability.Manifest().OnManifestGenerated(ctx, npmreq.Format(name, version), len(m.Raw))
	return m, nil
}
