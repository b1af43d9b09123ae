package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/go-zscaler/internal/cmd"
)

// Set via ldflags, e.g. -X main.version=1.0.0
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
