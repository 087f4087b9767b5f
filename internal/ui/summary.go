package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/tasks"
)

// Progress renders one progress update as a single line.
func Progress(u tasks.ProgressUpdate) string {
	switch u.Phase {
	case tasks.Warning, tasks.ClearRecords:
		return styles.Warn("! " + u.Message)
	case tasks.SkipGroup:
		return styles.Warn(fmt.Sprintf("[%d/%d] %s", u.Step, u.Total, u.Message))
	case tasks.ResolveContainer, tasks.Reconcile:
		if u.Total > 1 {
			return fmt.Sprintf("[%d/%d] %s", u.Step, u.Total, u.Message)
		}
	}
	return u.Message
}

// Calls renders the closing line reporting how many requests the run made.
func Calls(n int) string {
	return styles.Help(fmt.Sprintf("Syncing used %d API calls", n))
}

// FormSummary renders the outcome of a page sync. err is the error the run ended with, if any.
func FormSummary(r *tasks.FormResult, err error) string {
	var b strings.Builder
	b.WriteString(heading("Form sync", r.DryRun, err) + "\n")

	if r.Resolution != nil {
		page := r.Resolution.Container.Name
		if r.Resolution.Created {
			page += " (new)"
		}
		b.WriteString(styles.Field("Page", page) + "\n")
	}
	b.WriteString(styles.Field("Rows", strconv.Itoa(r.Rows)) + "\n")
	b.WriteString(counts(r.Counts(), r.DryRun))

	for _, w := range r.Warnings {
		b.WriteString(styles.Warn("! "+w) + "\n")
	}
	if err != nil {
		b.WriteString(styles.Err("Error: ") + err.Error() + "\n")
	}
	return b.String()
}

// ListSummary renders the outcome of an option list sync, one line per list.
func ListSummary(r *tasks.ListResult, err error) string {
	var b strings.Builder
	b.WriteString(heading("List sync", r.DryRun, err) + "\n")
	b.WriteString(styles.Field("Rows", strconv.Itoa(r.Rows)) + "\n")

	for _, g := range r.Groups {
		switch {
		case g.Skipped:
			b.WriteString(styles.Warn(fmt.Sprintf("  %s skipped: %s", g.Name, g.Reason)) + "\n")
		case g.Plan != nil:
			line := fmt.Sprintf("  %s: %d created, %d updated", g.Name, len(g.Plan.Creates), len(g.Plan.Updates))
			if !r.DryRun {
				line = fmt.Sprintf("  %s: %d created, %d updated", g.Name, g.Stats.Created, g.Stats.Updated)
			}
			if g.Resolution != nil && g.Resolution.Created {
				line += " (new list)"
			}
			b.WriteString(line + "\n")
		}
	}

	b.WriteString(counts(r.Counts(), r.DryRun))
	for _, w := range r.Warnings {
		b.WriteString(styles.Warn("! "+w) + "\n")
	}
	if err != nil {
		b.WriteString(styles.Err("Error: ") + err.Error() + "\n")
	}
	return b.String()
}

func heading(name string, dryRun bool, err error) string {
	switch {
	case err != nil:
		return styles.Err(name + " failed")
	case dryRun:
		return styles.Title(name + " (dry run)")
	default:
		return styles.OK(name + " complete")
	}
}

func counts(c models.RunCounts, dryRun bool) string {
	verb := "Applied"
	if dryRun {
		verb = "Planned"
	}
	line := fmt.Sprintf("%d creates, %d updates, %d deletes", c.Creates, c.Updates, c.Deletes)
	if c.Skipped > 0 {
		line += fmt.Sprintf(", %d skipped", c.Skipped)
	}
	return styles.Field(verb, line) + "\n"
}

// History renders journal entries as a table, newest first.
func History(runs []*models.SyncRun) string {
	if len(runs) == 0 {
		return styles.Help("No sync runs recorded") + "\n"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.help).
		Headers("#", "KIND", "TARGET", "STATUS", "C/U/D", "CALLS", "STARTED", "DURATION").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, run := range runs {
		status := string(run.Status)
		if run.DryRun {
			status += " (dry)"
		}
		t.Row(
			strconv.Itoa(run.Sequence()),
			string(run.Kind),
			run.Target,
			status,
			fmt.Sprintf("%d/%d/%d", run.Counts.Creates, run.Counts.Updates, run.Counts.Deletes),
			strconv.Itoa(run.Counts.Calls),
			run.StartedAt.Local().Format(time.DateTime),
			run.Duration().Round(time.Millisecond).String(),
		)
	}
	return t.Render() + "\n"
}

// Field renders a labelled value with the default palette.
func Field(label, value string) string {
	return styles.Field(label, value)
}
