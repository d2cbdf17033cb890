// Package cli implements the npmgen command-line interface.
package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/npmgen/pkg/buildinfo"
	"github.com/matzehuels/npmgen/pkg/config"
	"github.com/matzehuels/npmgen/pkg/npm"
)

// appName is the binary name used in help and completion text.
const appName = "npmgen"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// PackageManagerFunc builds the npm capability for a resolved config.
type PackageManagerFunc func(cfg *config.Config, logger *log.Logger) npm.PackageManager

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded by the root command before any subcommand runs.
	Config *config.Config

	// NewPackageManager defaults to running the real npm. Tests replace it.
	NewPackageManager PackageManagerFunc

	configPath string
	verbose    bool
}

// New creates a new CLI instance logging to w.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:            newLogger(w, level),
		NewPackageManager: defaultPackageManager,
	}
}

func defaultPackageManager(cfg *config.Config, logger *log.Logger) npm.PackageManager {
	return npm.NewClient(cfg, logger)
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "npmgen vendors npm packages into Bazel",
		Long: `npmgen resolves an npm package with npm, freezes the result in an
npm-shrinkwrap.json and writes a BUILD file listing every installed file.
The install command reproduces the tree from the shrinkwrap at build time.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "TOML config file (default $"+config.EnvConfigFile+")")

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.installCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.urlCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup applies --verbose, loads the config and tags the logger with a run
// id so concurrent invocations can be told apart in shared build logs.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if c.verbose {
		c.SetLogLevel(LogDebug)
	}

	path := c.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigFile)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	c.Config = cfg

	c.Logger = c.Logger.With("run", newRunID())
	if path != "" {
		c.Logger.Debug("loaded config", "path", path)
	}
	return nil
}

// packageManager resolves the npm executable and returns the configured
// package manager.
func (c *CLI) packageManager() (npm.PackageManager, error) {
	if err := c.Config.ResolveNpm(os.Args[0]); err != nil {
		return nil, err
	}
	c.Logger.Debug("using npm", "path", c.Config.NpmPath)
	return c.NewPackageManager(c.Config, c.Logger), nil
}

func newRunID() string {
	return uuid.NewString()[:8]
}
