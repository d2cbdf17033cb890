// Package npm runs the npm package manager as an opaque dependency resolver.
//
// npmgen never resolves versions itself. [PackageManager] is the capability
// the generator and installer depend on; [Client] implements it by running
// npm through a [Runner] with a fully controlled environment:
//
//   - PATH is the node bin directory plus a fixed system PATH
//   - lifecycle scripts are disabled (no native builds, no arbitrary code)
//   - the npm cache lives in a per-invocation directory
//   - the install layout is "global style": only direct dependencies at the
//     top of node_modules, everything transitive nested beneath them, so
//     trees generated independently never collide when merged
//
// Only the proxy variables listed in the config are inherited from the host.
package npm

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/npmgen/pkg/config"
	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/observability"
)

// Environment variables set on every npm invocation.
const (
	EnvIgnoreScripts = "NPM_CONFIG_IGNORE_SCRIPTS"
	EnvGlobalStyle   = "NPM_CONFIG_GLOBAL_STYLE"
	EnvCache         = "NPM_CONFIG_CACHE"
	EnvRegistry      = "NPM_CONFIG_REGISTRY"
)

// PackageManager is the dependency-resolution capability. Both operations
// block until npm exits and use cacheDir as the npm cache.
type PackageManager interface {
	// Install runs "npm install" in dir. With a shrinkwrap present in dir the
	// install reproduces it; otherwise npm resolves dir's package.json.
	Install(ctx context.Context, dir, cacheDir string) error

	// Shrinkwrap runs "npm shrinkwrap" in dir, freezing the installed tree.
	Shrinkwrap(ctx context.Context, dir, cacheDir string) error
}

// Client runs npm commands through a Runner.
type Client struct {
	cfg    *config.Config
	runner Runner
	logger *log.Logger

	// lookupEnv reads host variables; replaced in tests.
	lookupEnv func(string) (string, bool)
}

// NewClient returns a Client that executes cfg.NpmPath.
func NewClient(cfg *config.Config, logger *log.Logger) *Client {
	return NewClientWithRunner(cfg, &ExecRunner{Path: cfg.NpmPath}, logger)
}

// NewClientWithRunner returns a Client using runner.
func NewClientWithRunner(cfg *config.Config, runner Runner, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		cfg:       cfg,
		runner:    runner,
		logger:    logger,
		lookupEnv: os.LookupEnv,
	}
}

// Install runs "npm install".
func (c *Client) Install(ctx context.Context, dir, cacheDir string) error {
	return c.run(ctx, dir, cacheDir, "install")
}

// Shrinkwrap runs "npm shrinkwrap".
func (c *Client) Shrinkwrap(ctx context.Context, dir, cacheDir string) error {
	return c.run(ctx, dir, cacheDir, "shrinkwrap")
}

func (c *Client) run(ctx context.Context, dir, cacheDir string, args ...string) error {
	command := strings.Join(args, " ")
	c.logger.Debug("running npm", "cmd", command, "dir", dir)
	observability.Npm().OnNpmStart(ctx, command, dir)

	start := time.Now()
	out, err := c.runner.Run(ctx, dir, c.Env(cacheDir), args...)
	elapsed := time.Since(start)
	observability.Npm().OnNpmComplete(ctx, command, dir, elapsed, err)

	if err != nil {
		return errors.Wrap(errors.ErrCodeSubprocess, err, "npm %s in %s", command, dir)
	}
	c.logger.Debug("npm finished", "cmd", command, "duration", elapsed.Round(time.Millisecond))
	if len(out) > 0 {
		c.logger.Debug(strings.TrimSpace(string(out)))
	}
	return nil
}

// Env returns the complete, sorted environment for an npm invocation that
// uses cacheDir as its cache.
func (c *Client) Env(cacheDir string) []string {
	vars := map[string]string{
		"PATH":           joinPath(c.cfg.NodeBinDir, c.cfg.SystemPath),
		EnvIgnoreScripts: "true",
		EnvGlobalStyle:   "true",
		EnvCache:         cacheDir,
	}
	if c.cfg.RegistryURL != "" {
		vars[EnvRegistry] = c.cfg.RegistryURL
	}
	for _, name := range c.cfg.ProxyEnv {
		if v, ok := c.lookupEnv(name); ok {
			vars[name] = v
		}
	}

	env := make([]string, 0, len(vars))
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

func joinPath(dirs ...string) string {
	var parts []string
	for _, d := range dirs {
		if d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, ":")
}

// Ensure Client implements PackageManager.
var _ PackageManager = (*Client)(nil)
