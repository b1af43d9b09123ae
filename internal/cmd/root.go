package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tphakala/go-zscaler"
	"github.com/tphakala/go-zscaler/internal/config"
	"github.com/tphakala/go-zscaler/internal/observability"
	"github.com/tphakala/go-zscaler/internal/output"
)

var versionInfo = struct {
	Version string
	Commit  string
}{Version: "dev", Commit: "unknown"}

// SetVersionInfo is called by the main package with build metadata.
func SetVersionInfo(version, commit string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
}

// app carries the state shared by every command of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	format   string
	noCache  bool

	v        *viper.Viper
	cfg      *config.Config
	logger   *zap.Logger
	printer  *output.Printer
	tracer   trace.TracerProvider
	shutdown func(context.Context) error
}

// NewRootCommand builds the zscalerctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Command line client for the Zscaler APIs",
		Long: `zscalerctl talks to Zscaler Internet Access, Private Access, Client
Connector and Cloud & Branch Connector through OneAPI or legacy credentials.

Configuration is read from $XDG_CONFIG_HOME/zscalerctl/config.yaml and
ZSCALERCTL_* environment variables.`,
		Version:            versionInfo.Version + " (" + versionInfo.Commit + ")",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/zscalerctl/config.yaml)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVarP(&a.format, "output", "o", "", "output format: table, json, yaml")
	flags.BoolVar(&a.noCache, "no-cache", false, "bypass the response cache")

	root.AddCommand(
		newAuthCommand(a),
		newZIACommand(a),
		newZPACommand(a),
		newZCCCommand(a),
		newZTWCommand(a),
		newConfigCommand(a),
		newMockCommand(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	v, err := config.NewViper(a.cfgFile)
	if err != nil {
		return err
	}
	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("logging.level", flags.Lookup("log-level")); err != nil {
		return err
	}
	if err := v.BindPFlag("output", flags.Lookup("output")); err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("addr"); f != nil {
		if err := v.BindPFlag("mock.addr", f); err != nil {
			return err
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if a.noCache {
		cfg.Cache.Enabled = false
	}
	a.v = v
	a.cfg = cfg

	a.logger, err = observability.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	a.tracer, a.shutdown, err = observability.SetupTracing(cmd.Context(), observability.TracingConfig{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: config.AppName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}
	a.printer = output.NewPrinter(cmd.OutOrStdout(), format)

	a.logger.Debug("configuration loaded",
		zap.String("config_file", v.ConfigFileUsed()),
		zap.String("output", cfg.Output),
		zap.Bool("cache", cfg.Cache.Enabled))
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.shutdown != nil {
		if err := a.shutdown(context.WithoutCancel(cmd.Context())); err != nil {
			a.logger.Warn("flush traces failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

// client builds an SDK client from the configuration. The returned
// release function logs out, closes connections and may be called more
// than once.
func (a *app) client() (*zscaler.Client, func() error, error) {
	noop := func() error { return nil }
	opts, cleanup, err := a.cfg.ClientOptions()
	if err != nil {
		return nil, noop, err
	}
	opts = append(opts,
		zscaler.WithLogger(a.logger),
		zscaler.WithTracerProvider(a.tracer),
		zscaler.WithUserAgent(config.AppName+"/"+versionInfo.Version),
	)

	client, err := zscaler.NewClient(opts...)
	if err != nil {
		_ = cleanup()
		return nil, noop, err
	}
	release := sync.OnceValue(func() error {
		var errs []error
		if err := client.Close(context.Background()); err != nil {
			a.logger.Warn("close client", zap.Error(err))
			errs = append(errs, err)
		}
		if err := cleanup(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})
	return client, release, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}
