package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npmgen/pkg/buildfile"
	"github.com/matzehuels/npmgen/pkg/contents"
	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/npmreq"
	"github.com/matzehuels/npmgen/pkg/snapshot"
)

// generateCommand creates the generate command: resolve an npm package,
// store its shrinkwrap and write the BUILD file declaring it.
func (c *CLI) generateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate <npm_req> <output-dir>",
		Short: "Generate a BUILD file and shrinkwrap for an npm package",
		Long: `Generate resolves <npm_req> (name@version) with npm and writes
<output-dir>/npm-shrinkwrap.json and <output-dir>/BUILD.

An existing shrinkwrap generated for the same name and version is reused, so
regenerating an unchanged package does not change its shrinkwrap.

Pass an absolute <output-dir> when running under "bazel run", which changes
the working directory to the runfiles tree.`,
		Example: `  npmgen generate lodash@4.17.4 third_party/npm/lodash
  npmgen generate @types/node@20.1.0 third_party/npm/types_node`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd.Context(), args[0], args[1])
		},
	}
}

func (c *CLI) runGenerate(ctx context.Context, npmReq, outputDir string) error {
	id, err := npmreq.Parse(npmReq)
	if err != nil {
		return err
	}
	if err := errors.ValidatePackageName(id.Name); err != nil {
		return err
	}
	logger := c.Logger.With("npm_req", id.String())
	if err := errors.ValidateNpmPackageName(id.Name); err != nil {
		logger.Warn("package name does not follow current npm naming rules", "reason", errors.UserMessage(err))
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", outputDir)
	}
	pm, err := c.packageManager()
	if err != nil {
		return err
	}

	gen := &snapshot.Generator{Config: c.Config, PM: pm, Logger: c.Logger}
	manifestPath := filepath.Join(outputDir, c.Config.ShrinkwrapFile)

	prog := newProgress(logger)
	spinner := c.newSpinner(ctx, fmt.Sprintf("Installing %s", id))
	spinner.Start()
	res, err := gen.Generate(ctx, id.Name, id.Version, manifestPath)
	spinner.Stop()
	if err != nil {
		return err
	}
	defer res.Close()

	skipped := 0
	list, err := contents.Enumerate(res.NodeModules(), outputDir, func(path, target string) {
		skipped++
		logger.Warn("not including file with whitespace in its name; such files are usually test fixtures",
			"path", path, "target", target)
	})
	if err != nil {
		return fmt.Errorf("list installed files: %w", err)
	}

	buildPath := filepath.Join(outputDir, c.Config.BuildFile)
	rule := buildfile.Rule{
		Type:       c.Config.RuleType,
		Load:       c.Config.RuleLoad,
		Name:       id.Name,
		NpmReq:     id.String(),
		Shrinkwrap: c.Config.ShrinkwrapFile,
		Contents:   list,
	}
	if err := buildfile.EmitFile(buildPath, rule); err != nil {
		return err
	}
	prog.done("Generated " + id.String())

	printSuccess("Generated %s", StyleHighlight.Render(id.String()))
	printFile(manifestPath)
	printFile(buildPath)
	printStats(len(list), skipped, res.Reused)
	if skipped > 0 {
		printWarning("%d files with whitespace in their names were left out", skipped)
	}
	return nil
}

// newSpinner returns a spinner that only animates on a terminal and stays
// quiet in verbose mode, where it would garble the debug log.
func (c *CLI) newSpinner(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, isTerminal(os.Stderr) && !c.verbose, message)
}
