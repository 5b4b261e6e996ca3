package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/protocol"
	"github.com/kenobeee/mettta-space/internal/ui"
)

var (
	flagTitle    string
	flagStart    string
	flagDuration int
)

var meetingsCmd = &cobra.Command{
	Use:     "meetings",
	Aliases: []string{"m"},
	Short:   "List and manage scheduled meetings",
}

var meetingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the full schedule",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), false, func(ctx context.Context, conn *ConnectionContext) error {
			m, err := Request[protocol.Meetings](ctx, conn, protocol.ListMeetings{})
			if err != nil {
				return err
			}
			ui.RenderMeetings(m.Meetings, conn.Config.Location)
			return nil
		})
	},
}

var meetingsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Schedule a meeting",
	Long: `Schedule a meeting. The start time is RFC 3339 or HH:MM today in the
configured timezone. A zero duration means open-ended.

Examples:
  mira meetings create --title "Planning" --start 14:30 --duration 45
  mira meetings create --title "Review" --start 2026-03-02T09:00:00+03:00`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), true, func(ctx context.Context, conn *ConnectionContext) error {
			start, err := parseStart(flagStart, conn.Config.Location, time.Now())
			if err != nil {
				return err
			}
			in := protocol.MeetingInput{Title: flagTitle, StartsAt: start, DurationMin: flagDuration}
			m, err := Request[protocol.Meetings](ctx, conn, protocol.CreateMeeting{Meeting: in})
			if err != nil {
				return err
			}
			if created, ok := findMeeting(m.Meetings, "", flagTitle, start); ok {
				ui.PrintSuccess("Meeting scheduled")
				fmt.Fprintln(ui.Out, ui.MeetingCard(created, conn.Config.Location))
			}
			return nil
		})
	},
}

var meetingsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a meeting's title, start or duration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), true, func(ctx context.Context, conn *ConnectionContext) error {
			start, err := parseStart(flagStart, conn.Config.Location, time.Now())
			if err != nil {
				return err
			}
			in := protocol.MeetingInput{ID: args[0], Title: flagTitle, StartsAt: start, DurationMin: flagDuration}
			m, err := Request[protocol.Meetings](ctx, conn, protocol.UpdateMeeting{Meeting: in})
			if err != nil {
				return err
			}
			if updated, ok := findMeeting(m.Meetings, args[0], "", ""); ok {
				ui.PrintSuccess("Meeting updated")
				fmt.Fprintln(ui.Out, ui.MeetingCard(updated, conn.Config.Location))
			}
			return nil
		})
	},
}

var meetingsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Cancel a meeting and remove everyone from its room",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withConnection(cmd.Context(), true, func(ctx context.Context, conn *ConnectionContext) error {
			m, err := Request[protocol.Meetings](ctx, conn, protocol.DeleteMeeting{ID: args[0]})
			if err != nil {
				return err
			}
			ui.PrintSuccessf("Meeting %s deleted", args[0])
			ui.RenderMeetings(m.Meetings, conn.Config.Location)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{meetingsCreateCmd, meetingsUpdateCmd} {
		c.Flags().StringVar(&flagTitle, "title", "", "meeting title")
		c.Flags().StringVar(&flagStart, "start", "", "start time, RFC 3339 or HH:MM")
		c.Flags().IntVar(&flagDuration, "duration", 30, "duration in minutes, 0 for open-ended")
		c.MarkFlagRequired("title")
		c.MarkFlagRequired("start")
	}
	meetingsCmd.AddCommand(meetingsListCmd, meetingsCreateCmd, meetingsUpdateCmd, meetingsDeleteCmd)
	rootCmd.AddCommand(meetingsCmd)
}

// withConnection loads config, connects, optionally signs in and runs fn.
func withConnection(ctx context.Context, auth bool, fn func(context.Context, *ConnectionContext) error) error {
	cfg, err := LoadConfig(config.Options{})
	if err != nil {
		return err
	}
	conn, err := NewConnectionContext(ctx, cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	if auth {
		profile, err := conn.Authenticate(ctx)
		if err != nil {
			return err
		}
		conn.Logger.Debug("Signed in", "user", profile.ID)
	}
	return fn(ctx, conn)
}

// parseStart accepts RFC 3339 as is and reads HH:MM as a time today in loc.
func parseStart(s string, loc *time.Location, now time.Time) (string, error) {
	if _, err := time.Parse(time.RFC3339, s); err == nil {
		return s, nil
	}
	clock, err := time.ParseInLocation("15:04", s, loc)
	if err != nil {
		return "", fmt.Errorf("invalid start %q: use RFC 3339 or HH:MM", s)
	}
	day := now.In(loc)
	start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
	return start.Format(time.RFC3339), nil
}

// findMeeting looks a meeting up by id, or by title and start when id is empty.
func findMeeting(ms []protocol.Meeting, id, title, start string) (protocol.Meeting, bool) {
	var at time.Time
	if start != "" {
		at, _ = time.Parse(time.RFC3339, start)
	}
	for _, m := range ms {
		if id != "" && m.ID == id {
			return m, true
		}
		if id == "" && m.Title == strings.TrimSpace(title) && m.StartsAt.Equal(at) {
			return m, true
		}
	}
	return protocol.Meeting{}, false
}
