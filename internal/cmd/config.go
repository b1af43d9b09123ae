package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration as YAML with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if used := a.v.ConfigFileUsed(); used != "" {
				if _, err := fmt.Fprintf(out, "# %s\n", used); err != nil {
					return err
				}
			}
			_, err = out.Write(data)
			return err
		},
	})

	return cmd
}
