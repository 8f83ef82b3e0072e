package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tallaby/backend/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "tallaby-backend",
	Short: "Product metadata extraction service",
	Long:  "Fetches product pages and merges JSON-LD, marketplace and generic page signals into one product record.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
	// Running the binary without a subcommand starts the API server
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd, args)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
