package cmd

import (
	"github.com/spf13/cobra"

	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/ui"
)

var lobbiesCmd = &cobra.Command{
	Use:     "lobbies",
	Aliases: []string{"ls"},
	Short:   "List joinable lobbies",
	Long: `List the ad-hoc lobbies and today's meetings that can be joined.

Examples:
  mira lobbies
  mira lobbies --server wss://mira.example.com/ws`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{})
		if err != nil {
			return err
		}
		conn, err := NewConnectionContext(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		lobbies, err := Request[protocol.Lobbies](cmd.Context(), conn, protocol.ListLobbies{})
		if err != nil {
			return err
		}
		ui.RenderLobbies(lobbies.Lobbies, cfg.Location)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lobbiesCmd)
}
