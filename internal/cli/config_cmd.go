package cli

import (
	"fmt"

	"github.com/shellkey/shellkey/internal/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration shellkey would run with: built-in defaults,
overridden by the config file, SHELLKEY_* environment variables, and flags.

The output is valid config.yaml content.

Examples:
  shellkey config
  shellkey config --port 2222 > ~/.config/shellkey/config.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, path, err := a.loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if path != "" {
				fmt.Fprintf(out, "# loaded from %s\n", path)
			}
			_, err = out.Write(data)
			return err
		},
	}
}
