// Command nifty-trader is the entry point for the NIFTY intraday
// trading CLI.
package main

import (
	"fmt"
	"os"

	"nifty-trader/internal/cli"
	"nifty-trader/internal/config"
	"nifty-trader/internal/logging"
)

func main() {
	logger := logging.NewLogger()

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
