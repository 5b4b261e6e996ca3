package cmd

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/peer"
	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/ui"
	"github.com/kenobeee/mettta-space/internal/version"
)

var (
	flagDeviceID string
	flagSTUN     string
	flagTURN     string
	flagTURNUser string
	flagTURNPass string
	flagRelay    bool
)

var joinCmd = &cobra.Command{
	Use:     "join <lobby>",
	Aliases: []string{"j"},
	Short:   "Join a lobby as a headless participant",
	Long: `Join a lobby and connect to every other member over WebRTC.

Lines typed on stdin are sent as room chat. Commands:
  /mute /unmute     toggle the mute flag
  /hand /lower      raise or lower a hand
  /share /unshare   start or stop screen sharing
  /leave            leave the lobby

Examples:
  mira join l1
  mira join l1 --device-id laptop --token $MIRA_TOKEN
  mira join l1 --turn turn.example.com --turn-user u --turn-pass p --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(config.Options{
			DeviceID:   flagDeviceID,
			STUNServer: flagSTUN,
			TURNServer: flagTURN,
			TURNUser:   flagTURNUser,
			TURNPass:   flagTURNPass,
			ForceRelay: flagRelay,
		})
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return joinLobby(ctx, cfg, args[0])
	},
}

func init() {
	joinCmd.Flags().StringVar(&flagDeviceID, "device-id", "", "device id announced to the coordinator")
	joinCmd.Flags().StringVar(&flagSTUN, "stun", "", "STUN server URL")
	joinCmd.Flags().StringVar(&flagTURN, "turn", "", "TURN server host or URL")
	joinCmd.Flags().StringVar(&flagTURNUser, "turn-user", "", "TURN username")
	joinCmd.Flags().StringVar(&flagTURNPass, "turn-pass", "", "TURN password")
	joinCmd.Flags().BoolVar(&flagRelay, "relay", false, "force traffic through the TURN relay")
	rootCmd.AddCommand(joinCmd)
}

func joinLobby(ctx context.Context, cfg *config.Config, lobbyID string) error {
	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	host, _ := os.Hostname()
	hello := peer.Hello{DeviceName: host, DeviceVersion: version.Version}

	session := peer.NewSession(peer.SessionOptions{
		Sender:   conn.Client,
		NewConn:  peer.PionFactory(peer.ICEConfiguration(cfg), hello, conn.Logger),
		DeviceID: cfg.DeviceID,
		Token:    cfg.Token,
		Logger:   conn.Logger,
		Notify:   printUpdate,
	})
	session.Handle(protocol.Welcome{ClientID: conn.Self})

	if err := session.Join(lobbyID); err != nil {
		return err
	}
	ui.PrintInfof("Joining %s as %s. Type /leave or press Ctrl+C to quit.", lobbyID, conn.Self)

	err = session.Run(ctx, conn.Client.Incoming(), readLines(ctx))
	if errors.Is(err, peer.ErrClosed) {
		return peer.WrapError("session", err, "the coordinator closed the connection")
	}
	return err
}

func printUpdate(u peer.Update) {
	switch u.Kind {
	case peer.UpdateChat:
		ui.PrintChat(u.Text)
	case peer.UpdatePresence:
		ui.PrintPresence(u.Text)
	case peer.UpdateError:
		ui.PrintWarning(u.Text)
	case peer.UpdatePeer, peer.UpdateMembers:
		ui.PrintSuccess(u.Text)
	default:
		ui.PrintInfo(u.Text)
	}
}

// readLines feeds stdin lines until EOF or ctx ends.
func readLines(ctx context.Context) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
