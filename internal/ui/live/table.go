package live

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"docwatch/internal/run"
)

// defaultColumns returns the issue table layout for an unknown width.
func defaultColumns() []table.Column {
	return columnsForWidth(100)
}

// columnsForWidth sizes the message column to the terminal.
func columnsForWidth(width int) []table.Column {
	message := max(width-8-28-20-8, 20)
	return []table.Column{
		{Title: "Level", Width: 8},
		{Title: "Code", Width: 28},
		{Title: "Field", Width: 20},
		{Title: "Message", Width: message},
	}
}

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	styles := table.DefaultStyles()
	if noColor {
		styles.Selected = styles.Selected.UnsetForeground().UnsetBackground().Bold(true)
		return styles
	}
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// issueRows converts issues into table rows.
func issueRows(issues []run.Issue, width int) []table.Row {
	message := columnsForWidth(width)[3].Width
	rows := make([]table.Row, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, table.Row{
			issue.Severity,
			truncate(issue.Code, 28),
			truncate(issue.Field, 20),
			truncate(issue.Message, message),
		})
	}
	return rows
}
