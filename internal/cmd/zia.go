package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/output"
)

func newZIACommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zia",
		Short: "Zscaler Internet Access",
	}

	locations := &cobra.Command{
		Use:   "locations",
		Short: "Manage locations",
	}
	var (
		maxItems int
		search   string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			filter := &zscaler.LocationFilter{Search: search}
			locs, err := zscaler.Collect(client.ZIA.Locations.List(cmd.Context(), filter, &zscaler.PageOptions{MaxItems: maxItems}))
			if err != nil {
				return err
			}
			return a.printer.Print(locs, output.Locations(locs))
		},
	}
	list.Flags().IntVar(&maxItems, "max", 0, "stop after this many locations (0 lists all)")
	list.Flags().StringVar(&search, "search", "", "only locations whose name contains this text")
	locations.AddCommand(list)

	rules := &cobra.Command{
		Use:   "url-rules",
		Short: "Manage URL filtering rules",
	}
	rules.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List URL filtering rules in rule order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			list, err := client.ZIA.URLFilteringRules.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer.Print(list, output.URLFilteringRules(list))
		},
	})

	activation := &cobra.Command{
		Use:   "activation",
		Short: "Inspect configuration activation",
	}
	activation.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether configuration changes are pending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			status, err := client.ZIA.Activation.Status(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer.Print(status, output.Activation(status))
		},
	})

	activate := &cobra.Command{
		Use:   "activate",
		Short: "Activate pending configuration changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			status, err := client.ZIA.Activation.Activate(cmd.Context())
			if err != nil {
				return err
			}
			return a.printer.Print(status, output.Activation(status))
		},
	}

	cmd.AddCommand(locations, rules, activation, activate)
	return cmd
}
