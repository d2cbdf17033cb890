package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npmgen/pkg/install"
)

// installCommand creates the install command used by the build rule to
// materialize node_modules from a stored shrinkwrap.
func (c *CLI) installCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "install <shrinkwrap> <output-dir>",
		Short: "Install the package tree pinned by a shrinkwrap",
		Long: `Install copies <shrinkwrap> into <output-dir>, writes a package.json naming
the dependency it was generated for and runs npm install there.

The shrinkwrap is never validated against a requested version or
regenerated: the install always reproduces exactly what it pins.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInstall(cmd.Context(), args[0], args[1])
		},
	}
}

func (c *CLI) runInstall(ctx context.Context, manifestPath, outputDir string) error {
	pm, err := c.packageManager()
	if err != nil {
		return err
	}
	in := &install.Installer{Config: c.Config, PM: pm, Logger: c.Logger}

	spinner := c.newSpinner(ctx, "Installing "+manifestPath)
	spinner.Start()
	err = in.Install(ctx, manifestPath, outputDir)
	spinner.Stop()
	if err != nil {
		return err
	}

	printSuccess("Installed %s", StyleHighlight.Render(manifestPath))
	printFile(outputDir)
	return nil
}
