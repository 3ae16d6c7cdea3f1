// cmd/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

const appName = "rpi-metar"

var rootCmd = &cobra.Command{
	Use:   "rpi-metar",
	Short: "METAR-driven LED sectional map",
	Long: `rpi-metar drives a strip of LEDs wired into a sectional chart, one
airport per LED, colored by the current flight category.`,
	SilenceUsage: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
