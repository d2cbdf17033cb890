// Package install reproduces a dependency tree from a stored shrinkwrap.
//
// This is the build-time counterpart of package snapshot: it never
// validates or regenerates the manifest, it always installs exactly what
// the manifest pins.
package install

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npmgen/pkg/config"
	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/fsutil"
	"github.com/matzehuels/npmgen/pkg/npm"
	"github.com/matzehuels/npmgen/pkg/npmreq"
	"github.com/matzehuels/npmgen/pkg/pkgjson"
	"github.com/matzehuels/npmgen/pkg/shrinkwrap"
)

const cacheDirSuffix = "npmgen-install"

// Installer installs manifests. PM is required; a nil Config means
// config.Default() and a nil Logger means log.Default().
type Installer struct {
	Config *config.Config
	PM     npm.PackageManager
	Logger *log.Logger
}

// Install copies the manifest at manifestPath into outputDir, writes a
// package.json naming its single dependency and runs npm install there.
// npm's cache lives in a temporary directory that is always removed.
func (in *Installer) Install(ctx context.Context, manifestPath, outputDir string) error {
	logger := in.Logger
	if logger == nil {
		logger = log.Default()
	}
	cfg := in.Config
	if cfg == nil {
		cfg = config.Default()
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", outputDir)
	}
	local := filepath.Join(outputDir, shrinkwrap.FileName)
	if err := fsutil.CopyFile(manifestPath, local); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeFileNotFound, err, "no shrinkwrap at %s", manifestPath)
		}
		return fmt.Errorf("copy shrinkwrap: %w", err)
	}
	m, err := shrinkwrap.Read(local)
	if err != nil {
		return err
	}

	name := m.PackageName()
	if err := errors.ValidatePackageName(name); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPackage, err, "shrinkwrap %s", manifestPath)
	}
	logger = logger.With("npm_req", npmreq.Format(name, m.Version))
	if err := pkgjson.Write(outputDir, pkgjson.ForDependency(m.Name, name, m.Version)); err != nil {
		return fmt.Errorf("write %s: %w", pkgjson.FileName, err)
	}

	tmp, err := fsutil.NewTempDir(cfg.TempDir, cacheDirSuffix)
	if err != nil {
		return err
	}
	defer tmp.Close()

	logger.Info("installing", "dir", outputDir)
	start := time.Now()
	if err := in.PM.Install(ctx, outputDir, tmp.Join(".npm")); err != nil {
		return err
	}
	logger.Info("installed", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}
