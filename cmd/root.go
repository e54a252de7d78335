package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-booth/internal/config"
	"github.com/kozaktomas/photo-booth/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "photo-booth",
	Short: "Template reconciliation engine for an event photo booth",
	Long: `Photo Booth keeps a 3x3 print template of each event or market in sync
with the photos captured by the booth camera and uploaded by guests, and
hands finished sheets to a local print helper or a cloud print provider.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig reads the configuration and builds the logger matching it.
func loadConfig() (*config.Config, zerolog.Logger) {
	cfg := config.Load()
	return cfg, logging.New(cfg.App.Env, cfg.App.LogLevel)
}
