package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/output"
)

func newZPACommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zpa",
		Short: "Zscaler Private Access",
	}

	groups := &cobra.Command{
		Use:   "segment-groups",
		Short: "Manage segment groups",
	}
	var (
		maxItems int
		search   string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List segment groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			items, err := zscaler.Collect(client.ZPA.SegmentGroups.List(cmd.Context(), search, &zscaler.PageOptions{MaxItems: maxItems}))
			if err != nil {
				return err
			}
			return a.printer.Print(items, output.SegmentGroups(items))
		},
	}
	list.Flags().IntVar(&maxItems, "max", 0, "stop after this many groups (0 lists all)")
	list.Flags().StringVar(&search, "search", "", "only groups matching this text")
	groups.AddCommand(list)

	cmd.AddCommand(groups)
	return cmd
}

func newZCCCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zcc",
		Short: "Zscaler Client Connector",
	}

	devices := &cobra.Command{
		Use:   "devices",
		Short: "Inspect enrolled devices",
	}
	var (
		maxItems int
		username string
		osType   string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List enrolled devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			platform, err := zscaler.ParseOSType(osType)
			if err != nil {
				return err
			}
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			filter := &zscaler.DeviceFilter{Username: username, OSType: platform}
			items, err := zscaler.Collect(client.ZCC.Devices.List(cmd.Context(), filter, &zscaler.PageOptions{MaxItems: maxItems}))
			if err != nil {
				return err
			}
			return a.printer.Print(items, output.Devices(items))
		},
	}
	list.Flags().IntVar(&maxItems, "max", 0, "stop after this many devices (0 lists all)")
	list.Flags().StringVar(&username, "username", "", "only devices of this user")
	list.Flags().StringVar(&osType, "os-type", "", "only devices of this platform: ios, android, windows, macos, linux or 1-5")
	devices.AddCommand(list)

	cmd.AddCommand(devices)
	return cmd
}

func newZTWCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ztw",
		Short: "Zscaler Cloud & Branch Connector",
	}

	groups := &cobra.Command{
		Use:   "ec-groups",
		Short: "Inspect Edge Connector groups",
	}
	var maxItems int
	list := &cobra.Command{
		Use:   "list",
		Short: "List Edge Connector groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			items, err := zscaler.Collect(client.ZTW.ECGroups.List(cmd.Context(), &zscaler.PageOptions{MaxItems: maxItems}))
			if err != nil {
				return err
			}
			return a.printer.Print(items, output.ECGroups(items))
		},
	}
	list.Flags().IntVar(&maxItems, "max", 0, "stop after this many groups (0 lists all)")
	groups.AddCommand(list)

	cmd.AddCommand(groups)
	return cmd
}
