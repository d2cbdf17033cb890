package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	n := NoopNpmHooks{}
	n.OnNpmStart(ctx, "install", "/tmp/x")
	n.OnNpmComplete(ctx, "install", "/tmp/x", time.Second, nil)

	m := NoopManifestHooks{}
	m.OnManifestReused(ctx, "lodash@4.17.4")
	m.OnManifestGenerated(ctx, "lodash@4.17.4", 1024)
	m.OnManifestInvalid(ctx, "/repo/npm-shrinkwrap.json", "version mismatch")
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Npm().(NoopNpmHooks); !ok {
		t.Error("Npm() should return NoopNpmHooks by default")
	}
	if _, ok := Manifest().(NoopManifestHooks); !ok {
		t.Error("Manifest() should return NoopManifestHooks by default")
	}

	customNpm := &testNpmHooks{}
	SetNpmHooks(customNpm)
	if Npm() != customNpm {
		t.Error("SetNpmHooks should set custom hooks")
	}

	customManifest := &testManifestHooks{}
	SetManifestHooks(customManifest)
	if Manifest() != customManifest {
		t.Error("SetManifestHooks should set custom hooks")
	}

	Reset()
	if _, ok := Npm().(NoopNpmHooks); !ok {
		t.Error("Reset() should restore NoopNpmHooks")
	}
	if _, ok := Manifest().(NoopManifestHooks); !ok {
		t.Error("Reset() should restore NoopManifestHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testNpmHooks{}
	SetNpmHooks(custom)
	SetNpmHooks(nil)

	if Npm() != custom {
		t.Error("SetNpmHooks(nil) should be ignored")
	}

	Reset()
}

type testNpmHooks struct{ NoopNpmHooks }
type testManifestHooks struct{ NoopManifestHooks }
