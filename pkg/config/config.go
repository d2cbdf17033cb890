// Package config holds the settings shared by the generate and install
// commands: where npm lives, how generated files are named and which
// environment is handed to npm.
//
// Every component receives a *Config at construction; nothing reads these
// values from globals. [Default] mirrors the constants of a stock
// rules_node checkout, and a TOML file can override any field:
//
//	npm_path     = "/opt/node/bin/npm"
//	node_bin_dir = "/opt/node/bin"
//	registry_url = "https://npm.internal.example.com"
package config

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/runfiles"
)

// Defaults for the generated files and the npm environment.
const (
	DefaultShrinkwrapFile = "npm-shrinkwrap.json"
	DefaultBuildFile      = "BUILD"
	DefaultRuleType       = "npm_library"
	DefaultRuleLoad       = "@org_dropbox_rules_node//node:defs.bzl"
	DefaultSystemPath     = "/usr/bin:/bin"

	// NpmRepoPath and NodeBinRepoPath locate the hermetic node toolchain in
	// Bazel runfiles.
	NpmRepoPath     = "@nodejs//bin/npm"
	NodeBinRepoPath = "@nodejs//bin"

	// EnvConfigFile names a TOML config file when --config is not given.
	EnvConfigFile = "NPMGEN_CONFIG"
)

// DefaultProxyEnv lists the host variables forwarded to npm verbatim.
var DefaultProxyEnv = []string{"HTTP_PROXY", "HTTPS_PROXY"}

// Config carries the former process-wide constants of the tool.
type Config struct {
	// NpmPath is the npm executable. Empty means: the @nodejs runfiles copy
	// when running under Bazel, else "npm" from PATH.
	NpmPath string `toml:"npm_path"`

	// NodeBinDir is prepended to the PATH npm runs with. Empty means the
	// directory containing NpmPath.
	NodeBinDir string `toml:"node_bin_dir"`

	// SystemPath is appended to NodeBinDir to form npm's PATH.
	SystemPath string `toml:"system_path"`

	// RegistryURL overrides the npm registry (NPM_CONFIG_REGISTRY) and the
	// base of tarball URLs. Empty keeps npm's default registry.
	RegistryURL string `toml:"registry_url"`

	// ProxyEnv lists host variables forwarded to npm when set.
	ProxyEnv []string `toml:"proxy_env"`

	// ShrinkwrapFile is the manifest filename in the output directory. npm's
	// own working directory always uses npm-shrinkwrap.json.
	ShrinkwrapFile string `toml:"shrinkwrap_file"`

	// BuildFile is the generated build descriptor filename.
	BuildFile string `toml:"build_file"`

	// RuleType and RuleLoad select the rule emitted into BuildFile and the
	// .bzl file it is loaded from.
	RuleType string `toml:"rule_type"`
	RuleLoad string `toml:"rule_load"`

	// TempDir is the parent of per-invocation work directories. Empty uses
	// the system temp directory.
	TempDir string `toml:"temp_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		SystemPath:     DefaultSystemPath,
		ProxyEnv:       append([]string(nil), DefaultProxyEnv...),
		ShrinkwrapFile: DefaultShrinkwrapFile,
		BuildFile:      DefaultBuildFile,
		RuleType:       DefaultRuleType,
		RuleLoad:       DefaultRuleLoad,
	}
}

// Load reads a TOML file on top of [Default]. An empty path returns the
// defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configured filenames and registry.
func (c *Config) Validate() error {
	if err := errors.ValidateManifestFilename(c.ShrinkwrapFile); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "shrinkwrap_file")
	}
	if err := errors.ValidateManifestFilename(c.BuildFile); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "build_file")
	}
	if c.RuleType == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "rule_type cannot be empty")
	}
	if c.RegistryURL != "" {
		if err := errors.ValidateURL(c.RegistryURL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "registry_url")
		}
	}
	return nil
}

// ResolveNpm fills in NpmPath and NodeBinDir when they are empty. argv0 is
// the path of the running binary, used to find Bazel runfiles.
func (c *Config) ResolveNpm(argv0 string) error {
	if c.NpmPath == "" {
		path, err := locateNpm(argv0)
		if err != nil {
			return err
		}
		c.NpmPath = path
	}
	if c.NodeBinDir == "" {
		c.NodeBinDir = filepath.Dir(c.NpmPath)
	}
	return nil
}

func locateNpm(argv0 string) (string, error) {
	if rf, err := runfiles.New(argv0); err == nil {
		if path, err := rf.Path(NpmRepoPath); err == nil {
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	path, err := exec.LookPath("npm")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeFileNotFound, err, "npm not found in runfiles (%s) or PATH", NpmRepoPath)
	}
	return path, nil
}
