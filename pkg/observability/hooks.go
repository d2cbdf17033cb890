// Package observability provides hooks for metrics, tracing, and logging.
//
// npmgen itself only logs, but it usually runs as one of many actions inside a
// larger build orchestrator that may want to count npm invocations or
// manifest regenerations. Hooks let such a wrapper observe those events
// without npmgen depending on any metrics backend.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetNpmHooks(&myNpmHooks{})
//	    observability.SetManifestHooks(&myManifestHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Npm().OnNpmStart(ctx, "install", dir)
//	// ... run npm ...
//	observability.Npm().OnNpmComplete(ctx, "install", dir, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Npm Hooks
// =============================================================================

// NpmHooks receives events for every npm subprocess.
type NpmHooks interface {
	// OnNpmStart records the start of an npm command (e.g. "install") in dir.
	OnNpmStart(ctx context.Context, command, dir string)

	// OnNpmComplete records the end of an npm command. err is non-nil when
	// npm could not be started or exited nonzero.
	OnNpmComplete(ctx context.Context, command, dir string, duration time.Duration, err error)
}

// =============================================================================
// Manifest Hooks
// =============================================================================

// ManifestHooks receives events from the shrinkwrap cache decision.
type ManifestHooks interface {
	// OnManifestReused records that a stored shrinkwrap matched the request.
	OnManifestReused(ctx context.Context, npmReq string)

	// OnManifestGenerated records that a new shrinkwrap of size bytes was written.
	OnManifestGenerated(ctx context.Context, npmReq string, size int)

	// OnManifestInvalid records why a stored shrinkwrap was rejected.
	OnManifestInvalid(ctx context.Context, path, reason string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopNpmHooks is a no-op implementation of NpmHooks.
type NoopNpmHooks struct{}

func (NoopNpmHooks) OnNpmStart(context.Context, string, string)                          {}
func (NoopNpmHooks) OnNpmComplete(context.Context, string, string, time.Duration, error) {}

// NoopManifestHooks is a no-op implementation of ManifestHooks.
type NoopManifestHooks struct{}

func (NoopManifestHooks) OnManifestReused(context.Context, string)          {}
func (NoopManifestHooks) OnManifestGenerated(context.Context, string, int)  {}
func (NoopManifestHooks) OnManifestInvalid(context.Context, string, string) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	npmHooks      NpmHooks      = NoopNpmHooks{}
	manifestHooks ManifestHooks = NoopManifestHooks{}
	hooksMu       sync.RWMutex
)

// SetNpmHooks registers custom npm hooks.
// This should be called once at application startup.
func SetNpmHooks(h NpmHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		npmHooks = h
	}
}

// SetManifestHooks registers custom manifest hooks.
// This should be called once at application startup.
func SetManifestHooks(h ManifestHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		manifestHooks = h
	}
}

// Npm returns the registered npm hooks.
func Npm() NpmHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return npmHooks
}

// Manifest returns the registered manifest hooks.
func Manifest() ManifestHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return manifestHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	npmHooks = NoopNpmHooks{}
	manifestHooks = NoopManifestHooks{}
}
