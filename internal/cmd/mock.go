package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tphakala/go-zscaler/internal/mockapi"
)

const mockShutdownTimeout = 5 * time.Second

func newMockCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a local fake of the Zscaler APIs",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fake API with demo data until interrupted",
		Long: `Serve an in-memory fake of the OneAPI token endpoint and the ZIA, ZPA,
ZCC and ZTW endpoints used by zscalerctl. The printed configuration points
zscalerctl at it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serveMock(cmd.Context(), cmd)
		},
	}
	serve.Flags().String("addr", "", "listen address (default is mock.addr, 127.0.0.1:8080)")

	cmd.AddCommand(serve)
	return cmd
}

func (a *app) serveMock(ctx context.Context, cmd *cobra.Command) error {
	mock := mockapi.New(mockapi.WithDemoData(), mockapi.WithLogger(a.logger.Named("mock")))

	ln, err := net.Listen("tcp", a.cfg.Mock.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.Mock.Addr, err)
	}
	baseURL := "http://" + ln.Addr().String()

	srv := &http.Server{
		Handler:           mock.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	creds := mock.Credentials()
	fmt.Fprintf(cmd.OutOrStdout(), `Mock Zscaler API listening on %s

auth:
  client_id: %s
  client_secret: %s
  vanity_domain: mock
  customer_id: "%s"
  token_url: %s%s
base_urls:
  zia: %s%s
  zpa: %s%s
  zcc: %s%s
  ztw: %s%s
`, baseURL,
		creds.ClientID, creds.ClientSecret, creds.CustomerID, baseURL, mockapi.TokenPath,
		baseURL, mockapi.ZIAPrefix, baseURL, mockapi.ZPAPrefix, baseURL, mockapi.ZCCPrefix, baseURL, mockapi.ZTWPrefix)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	a.logger.Info("mock api started", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down mock api")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mockShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
