// Command gpx-add-elevation adds terrain elevations to the track points of
// GPX files, from the swisstopo height or profile service or an offline
// elevation model.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
