package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/ui"
)

var (
	flagFirstName string
	flagLastName  string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and print its token",
	Long: `Create an account on the coordinator. Keep the printed token: pass it
with --token or MIRA_TOKEN to sign in.

Examples:
  mira register --first Ada --last Lovelace`,
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

		ok, err := Request[protocol.AuthOK](cmd.Context(), conn, protocol.Register{FirstName: flagFirstName, LastName: flagLastName})
		if err != nil {
			return err
		}
		ui.PrintSuccessf("Registered %s", ok.Profile.DisplayName)
		fmt.Fprintln(ui.Out, ui.BoxStyle.Render("MIRA_TOKEN="+ok.Token))
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&flagFirstName, "first", "", "first name")
	registerCmd.Flags().StringVar(&flagLastName, "last", "", "last name")
	registerCmd.MarkFlagRequired("first")
	registerCmd.MarkFlagRequired("last")
	rootCmd.AddCommand(registerCmd)
}
