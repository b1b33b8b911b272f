package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rpggio/inboxtriage/internal/domain/history"
	"github.com/rpggio/inboxtriage/internal/domain/run"
	"github.com/rpggio/inboxtriage/internal/domain/sender"
	"github.com/rpggio/inboxtriage/internal/domain/task"
	"github.com/rpggio/inboxtriage/internal/triage"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	urgentStyle = cellStyle.Foreground(lipgloss.Color("1"))
	mutedStyle  = cellStyle.Foreground(lipgloss.Color("8"))
	okStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	failStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
)

const maxDescriptionWidth = 60

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...)
}

func tasksTable(tasks []task.Task) string {
	if len(tasks) == 0 {
		return "No tasks.\n"
	}
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		due := t.DueDate
		if due == "" {
			due = "-"
		}
		rows = append(rows, []string{
			t.ID,
			strconv.Itoa(t.Priority),
			string(t.Status),
			due,
			string(t.Source),
			truncate(t.Description, maxDescriptionWidth),
		})
	}
	tbl := newTable("ID", "PRI", "STATUS", "DUE", "SOURCE", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			t := tasks[row]
			switch {
			case !t.IsOpen():
				return mutedStyle
			case t.Priority >= 8:
				return urgentStyle
			default:
				return cellStyle
			}
		})
	return tbl.Render() + "\n"
}

func sendersTable(profiles []sender.Profile) string {
	if len(profiles) == 0 {
		return "No known senders.\n"
	}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		pinned := ""
		if p.Pinned {
			pinned = "yes"
		}
		seen := "-"
		if p.LastSeenAt != nil {
			seen = p.LastSeenAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			p.Email,
			p.Name,
			string(p.Importance),
			string(p.Role),
			pinned,
			seen,
		})
	}
	tbl := newTable("EMAIL", "NAME", "IMPORTANCE", "ROLE", "PINNED", "LAST SEEN").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if profiles[row].Pinned || profiles[row].Importance == sender.ImportanceHigh {
				return urgentStyle
			}
			return cellStyle
		})
	return tbl.Render() + "\n"
}

func historyTable(entries []history.Entry) string {
	if len(entries) == 0 {
		return "No runs recorded.\n"
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.StartedAt.Local().Format("2006-01-02 15:04"),
			string(e.Mode),
			string(e.Outcome),
			strconv.Itoa(e.Messages),
			strconv.Itoa(e.Applied),
			strconv.Itoa(e.Skipped),
			truncate(e.Reason, maxDescriptionWidth),
		})
	}
	tbl := newTable("STARTED", "MODE", "OUTCOME", "MSGS", "APPLIED", "SKIPPED", "REASON").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if entries[row].Outcome == run.OutcomeFailed {
				return urgentStyle
			}
			return cellStyle
		})
	return tbl.Render() + "\n"
}

// runStatus is the one-line verdict printed after a run.
func runStatus(res *triage.Result) string {
	counts := fmt.Sprintf("%d messages, %d read in full, %d changes applied, %d skipped",
		res.Messages, len(res.Expanded), res.Report.Applied, len(res.Report.Skipped))
	switch res.Outcome {
	case run.OutcomeSuccess:
		return okStyle.Render("Run succeeded") + ": " + counts
	case run.OutcomePartial:
		return warnStyle.Render("Run partially applied") + ": " + counts + " (" + res.Reason + ")"
	default:
		return failStyle.Render("Run failed") + ": " + res.Reason
	}
}

func truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
