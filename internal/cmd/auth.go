package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/output"
)

func newAuthCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Check and end API sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Authenticate every configured product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			var (
				sessions []*zscaler.SessionInfo
				errs     []error
			)
			for _, p := range client.Configured() {
				info, err := client.Authenticate(cmd.Context(), p)
				if err != nil {
					a.logger.Error("authentication failed", zap.String("product", string(p)), zap.Error(err))
					errs = append(errs, fmt.Errorf("%s: %w", p, err))
					continue
				}
				sessions = append(sessions, info)
			}
			if err := a.printer.Print(sessions, output.Sessions(sessions)); err != nil {
				return err
			}
			return errors.Join(errs...)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "logout",
		Short: "End legacy sessions and clear the response cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, release, err := a.client()
			if err != nil {
				return err
			}
			defer release()

			if err := client.ClearCache(cmd.Context()); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			if err := release(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	})

	return cmd
}
