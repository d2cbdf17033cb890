package install

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npmgen/pkg/config"
	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/npm/npmtest"
	"github.com/matzehuels/npmgen/pkg/pkgjson"
	"github.com/matzehuels/npmgen/pkg/shrinkwrap"
)

func newInstaller(t *testing.T, pm *npmtest.PackageManager) *Installer {
	t.Helper()
	cfg := config.Default()
	cfg.TempDir = t.TempDir()
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)
	return &Installer{Config: cfg, PM: pm, Logger: logger}
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "third_party", shrinkwrap.FileName)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestInstall(t *testing.T) {
	manifest := `{"name":"npm-gen-lodash","version":"4.17.4","lockfileVersion":1,"dependencies":{"lodash":{"version":"4.17.4"}}}`
	manifestPath := writeManifest(t, manifest)
	pm := &npmtest.PackageManager{Tree: map[string]string{"lodash/package.json": `{"name":"lodash","version":"4.17.4"}`}}
	in := newInstaller(t, pm)
	out := filepath.Join(t.TempDir(), "out")

	if err := in.Install(context.Background(), manifestPath, out); err != nil {
		t.Fatalf("Install error: %v", err)
	}

	copied, err := os.ReadFile(filepath.Join(out, shrinkwrap.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(copied) != manifest {
		t.Errorf("copied manifest = %s", copied)
	}

	var desc pkgjson.Descriptor
	data, err := os.ReadFile(filepath.Join(out, pkgjson.FileName))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &desc); err != nil {
		t.Fatal(err)
	}
	if desc.Name != "npm-gen-lodash" || desc.Version != "4.17.4" || desc.Dependencies["lodash"] != "4.17.4" {
		t.Errorf("package.json = %s", data)
	}

	calls := pm.Calls()
	if len(calls) != 1 || calls[0].Command != "install" || calls[0].Dir != out {
		t.Fatalf("calls = %+v", calls)
	}
	if !strings.HasPrefix(calls[0].CacheDir, in.Config.TempDir) {
		t.Errorf("cache %s not under %s", calls[0].CacheDir, in.Config.TempDir)
	}
	if _, err := os.Stat(filepath.Join(out, "node_modules", "lodash", "package.json")); err != nil {
		t.Errorf("tree not installed: %v", err)
	}

	entries, _ := os.ReadDir(in.Config.TempDir)
	if len(entries) != 0 {
		t.Errorf("cache dir left behind: %v", entries)
	}
}

func TestInstallAlwaysInstalls(t *testing.T) {
	manifestPath := writeManifest(t, `{"name":"npm-gen-lodash","version":"4.17.4"}`)
	pm := &npmtest.PackageManager{}
	in := newInstaller(t, pm)
	out := t.TempDir()

	for i := 0; i < 2; i++ {
		if err := in.Install(context.Background(), manifestPath, out); err != nil {
			t.Fatal(err)
		}
	}
	if pm.Count("install") != 2 {
		t.Errorf("install ran %d times, want 2", pm.Count("install"))
	}
	if pm.Count("shrinkwrap") != 0 {
		t.Error("installer ran shrinkwrap")
	}
}

func TestInstallDecodesScopedName(t *testing.T) {
	manifestPath := writeManifest(t, `{"name":"npm-gen-at_types-node","version":"20.1.0"}`)
	in := newInstaller(t, &npmtest.PackageManager{})
	out := t.TempDir()

	if err := in.Install(context.Background(), manifestPath, out); err != nil {
		t.Fatal(err)
	}
	var desc pkgjson.Descriptor
	data, _ := os.ReadFile(filepath.Join(out, pkgjson.FileName))
	if err := json.Unmarshal(data, &desc); err != nil {
		t.Fatal(err)
	}
	// Decoding only strips the marker.
	if _, ok := desc.Dependencies["at_types-node"]; !ok {
		t.Errorf("dependencies = %v", desc.Dependencies)
	}
}

func TestInstallErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
		pm       *npmtest.PackageManager
		wantCode errors.Code
	}{
		{
			name:     "corrupt manifest",
			manifest: `{"name":`,
			pm:       &npmtest.PackageManager{},
			wantCode: errors.ErrCodeManifestUnreadable,
		},
		{
			name:     "manifest without version",
			manifest: `{"name":"npm-gen-lodash"}`,
			pm:       &npmtest.PackageManager{},
			wantCode: errors.ErrCodeManifestUnreadable,
		},
		{
			name:     "unsafe package name",
			manifest: `{"name":"npm-gen-..-..-etc","version":"1.0.0"}`,
			pm:       &npmtest.PackageManager{},
			wantCode: errors.ErrCodeInvalidPackage,
		},
		{
			name:     "npm failure",
			manifest: `{"name":"npm-gen-lodash","version":"4.17.4"}`,
			pm:       &npmtest.PackageManager{InstallErr: errors.New(errors.ErrCodeSubprocess, "npm install failed")},
			wantCode: errors.ErrCodeSubprocess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInstaller(t, tt.pm)
			err := in.Install(context.Background(), writeManifest(t, tt.manifest), t.TempDir())
			if !errors.Is(err, tt.wantCode) {
				t.Errorf("Install error = %v, want code %s", err, tt.wantCode)
			}
			entries, _ := os.ReadDir(in.Config.TempDir)
			if len(entries) != 0 {
				t.Errorf("temp dir left behind: %v", entries)
			}
		})
	}
}

func TestInstallMissingManifest(t *testing.T) {
	in := newInstaller(t, &npmtest.PackageManager{})
	err := in.Install(context.Background(), filepath.Join(t.TempDir(), "nope.json"), t.TempDir())
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Install error = %v, want %s", err, errors.ErrCodeFileNotFound)
	}
}
