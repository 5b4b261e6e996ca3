package cmd

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kenobeee/mettta-space/internal/files"
	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/ui"
)

var channelCmd = &cobra.Command{
	Use:     "channel",
	Aliases: []string{"ch"},
	Short:   "Read and post to chat channels",
}

var channelListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chat channels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), true, func(ctx context.Context, conn *ConnectionContext) error {
			rooms, err := Request[protocol.ChatRooms](ctx, conn, protocol.ListChatRooms{})
			if err != nil {
				return err
			}
			for _, r := range rooms.Rooms {
				ui.PrintInfof("%s  %s (%d online)", ui.BoldStyle.Render(r.ID), r.Name, r.Count)
			}
			return nil
		})
	},
}

var channelHistoryCmd = &cobra.Command{
	Use:   "history <channel>",
	Short: "Print a channel's recent messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), true, func(ctx context.Context, conn *ConnectionContext) error {
			h, err := Request[protocol.ChatRoomHistory](ctx, conn, protocol.JoinChatRoom{RoomID: args[0]})
			if err != nil {
				return err
			}
			if len(h.Messages) == 0 {
				ui.PrintInfo("No messages yet")
			}
			for _, m := range h.Messages {
				printChatMessage(m)
			}
			return nil
		})
	},
}

var channelPostCmd = &cobra.Command{
	Use:   "post <channel> <text...>",
	Short: "Post a message to a channel",
	Long: `Post a message to a chat channel.

Examples:
  mira channel post general "standup moved to 10:30"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), true, func(ctx context.Context, conn *ConnectionContext) error {
			text := strings.Join(args[1:], " ")
			ev, err := Request[protocol.ChatRoomEvent](ctx, conn, protocol.PostChatRoom{RoomID: args[0], Text: text})
			if err != nil {
				return err
			}
			ui.PrintSuccessf("Posted to %s", ev.Message.ScopeID)
			return nil
		})
	},
}

var channelFileCmd = &cobra.Command{
	Use:   "file <channel> <path>",
	Short: "Share a file (up to 5 MiB) in a channel",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		att, err := files.LoadAttachment(args[1])
		if err != nil {
			return err
		}
		return withConnection(cmd.Context(), true, func(ctx context.Context, conn *ConnectionContext) error {
			ev, err := Request[protocol.ChatRoomEvent](ctx, conn, protocol.ChatRoomFile{
				RoomID:   args[0],
				FileName: att.Name,
				FileType: att.Type,
				FileSize: att.Size,
				DataURL:  att.DataURL,
			})
			if err != nil {
				return err
			}
			ui.PrintSuccessf("Shared %s (%d bytes) in %s", att.Name, att.Size, ev.Message.ScopeID)
			return nil
		})
	},
}

func init() {
	channelCmd.AddCommand(channelListCmd, channelHistoryCmd, channelPostCmd, channelFileCmd)
	rootCmd.AddCommand(channelCmd)
}

func printChatMessage(m protocol.ChatMessage) {
	stamp := ui.MutedStyle.Render(m.CreatedAt.Local().Format("15:04"))
	if m.File != nil {
		ui.PrintChat(stamp + " " + m.DisplayName + ": [file] " + m.File.FileName)
		return
	}
	ui.PrintChat(stamp + " " + m.DisplayName + ": " + m.Text)
}
