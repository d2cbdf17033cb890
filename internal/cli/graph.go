package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npmgen/pkg/errors"
	"github.com/matzehuels/npmgen/pkg/fsutil"
	"github.com/matzehuels/npmgen/pkg/lockgraph"
	"github.com/matzehuels/npmgen/pkg/shrinkwrap"
)

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output   string // output file, stdout when empty
	format   string // "dot" or "svg"
	detailed bool   // add install locations to labels
}

// graphCommand creates the graph command, which draws the install tree a
// shrinkwrap pins.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: formatDOT}

	cmd := &cobra.Command{
		Use:   "graph <shrinkwrap>",
		Short: "Draw the install tree of a shrinkwrap",
		Example: `  npmgen graph third_party/npm/lodash/npm-shrinkwrap.json | dot -Tpng > lodash.png
  npmgen graph third_party/npm/lodash/npm-shrinkwrap.json -f svg -o lodash.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatDOT && opts.format != formatSVG {
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want %s or %s)", opts.format, formatDOT, formatSVG)
			}
			return c.runGraph(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot (default), svg")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show install locations")

	return cmd
}

func (c *CLI) runGraph(cmd *cobra.Command, manifestPath string, opts *graphOpts) error {
	m, err := shrinkwrap.Read(manifestPath)
	if err != nil {
		return err
	}
	g, err := lockgraph.FromManifest(m)
	if err != nil {
		return err
	}
	c.Logger.Debug("built install tree", "shrinkwrap", manifestPath, "graph", g.String())

	out, err := renderGraph(cmd.Context(), g, opts)
	if err != nil {
		return err
	}
	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(out)
		return err
	}
	if err := fsutil.WriteFile(opts.output, out, 0644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Graph of %s", StyleHighlight.Render(m.String()))
	printFile(opts.output)
	printDetail("%s", g.String())
	return nil
}

func renderGraph(ctx context.Context, g *lockgraph.Graph, opts *graphOpts) ([]byte, error) {
	dot := lockgraph.ToDOT(g, lockgraph.Options{Detailed: opts.detailed})
	if opts.format == formatDOT {
		return []byte(dot), nil
	}
	return lockgraph.RenderSVG(ctx, dot)
}
