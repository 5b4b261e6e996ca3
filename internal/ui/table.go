package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/kenobeee/mettta-space/internal/protocol"
)

// LobbyTableView renders joinable lobbies with lipgloss/table.
func LobbyTableView(lobbies []protocol.LobbySummary, loc *time.Location) string {
	if len(lobbies) == 0 {
		return MutedStyle.Render("No lobbies")
	}
	if loc == nil {
		loc = time.Local
	}

	rows := make([][]string, 0, len(lobbies))
	for _, l := range lobbies {
		when := "-"
		if l.StartsAt != nil {
			when = l.StartsAt.In(loc).Format("15:04")
			if l.DurationMin != nil {
				when += fmt.Sprintf(" (%dm)", *l.DurationMin)
			}
		}
		rows = append(rows, []string{l.ID, truncate(l.DisplayName, 40), l.Kind, when, strconv.Itoa(l.Count)})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("ID", "Name", "Kind", "Starts", "In room").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// MeetingTableView renders the schedule with go-pretty, oldest first.
func MeetingTableView(meetings []protocol.Meeting, loc *time.Location) string {
	if len(meetings) == 0 {
		return MutedStyle.Render("No meetings scheduled")
	}
	if loc == nil {
		loc = time.Local
	}

	t := prettytable.NewWriter()
	t.SetStyle(prettytable.StyleRounded)
	t.Style().Color.Header = text.Colors{text.Bold, text.FgHiMagenta}
	t.AppendHeader(prettytable.Row{"ID", "Title", "Starts", "Duration"})
	for _, m := range meetings {
		t.AppendRow(prettytable.Row{
			m.ID,
			truncate(m.Title, 40),
			m.StartsAt.In(loc).Format("2006-01-02 15:04"),
			fmt.Sprintf("%d min", m.DurationMin),
		})
	}
	t.AppendFooter(prettytable.Row{"", "", "Total", len(meetings)})
	return t.Render()
}

func RenderLobbies(lobbies []protocol.LobbySummary, loc *time.Location) {
	fmt.Fprintln(Out, LobbyTableView(lobbies, loc))
}

func RenderMeetings(meetings []protocol.Meeting, loc *time.Location) {
	fmt.Fprintln(Out, MeetingTableView(meetings, loc))
}

// MeetingCard is the boxed confirmation shown after create or update.
func MeetingCard(m protocol.Meeting, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	content := fmt.Sprintf("%s\n\n%s %s\n%s %s\n%s %d min",
		TitleStyle.Render(m.Title),
		MutedStyle.Render("ID:      "), BoldStyle.Render(m.ID),
		MutedStyle.Render("Starts:  "), m.StartsAt.In(loc).Format("Mon 2006-01-02 15:04"),
		MutedStyle.Render("Duration:"), m.DurationMin,
	)
	return BoxStyle.Render(content)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
