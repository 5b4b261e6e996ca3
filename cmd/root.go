package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kenobeee/mettta-space/internal/ui"
	"github.com/kenobeee/mettta-space/internal/version"
)

var (
	flagConfig   string
	flagEnvFile  string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:   "mira",
	Short: "Meeting coordinator and headless participant",
	Long: `mira runs the session coordinator for voice lobbies, scheduled meetings
and chat channels, and joins those lobbies as a headless WebRTC participant.

Configuration comes from flags, MIRA_* environment variables (a .env file is
read when present) and an optional config file, in that order.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "coordinator websocket URL (default ws://localhost:3001/ws)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "account token printed by mira register")
}

// Execute runs the root command. Signal handling is left to the commands
// that run until interrupted.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}
