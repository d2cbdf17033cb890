package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npmgen/pkg/npmreq"
)

// urlCommand prints the registry tarball URL of an npm_req, for pinning
// archives in WORKSPACE files.
func (c *CLI) urlCommand() *cobra.Command {
	var registry string

	cmd := &cobra.Command{
		Use:   "url <npm_req>",
		Short: "Print the registry tarball URL of a package",
		Example: `  npmgen url rollup@0.41.5
  npmgen url @types/npm@2.0.28 --registry https://npm.internal.example.com`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if registry == "" {
				registry = c.Config.RegistryURL
			}
			if registry == "" {
				registry = npmreq.DefaultRegistryURL
			}
			url, err := npmreq.TarballURL(registry, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}

	cmd.Flags().StringVar(&registry, "registry", "", "registry base URL (default: registry_url from config, else the public registry)")
	return cmd
}
