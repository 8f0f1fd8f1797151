package main

import (
	"fmt"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/store"
)

var (
	bannerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	okStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func renderActionLines(actions []*action.ChatAction) []string {
	var out []string
	for _, a := range actions {
		switch a.Status {
		case action.StatusSuccess:
			out = append(out, okStyle.Render(fmt.Sprintf("✓ %s %s", a.Type, a.Result.Message)))
		case action.StatusFailed:
			out = append(out, errorStyle.Render(fmt.Sprintf("✗ %s %s", a.Type, a.Error)))
		case action.StatusPendingConfirmation:
			out = append(out, dimStyle.Render(fmt.Sprintf("? %s awaiting confirmation", a.Type)))
		case action.StatusCancelled:
			out = append(out, dimStyle.Render(fmt.Sprintf("- %s cancelled", a.Type)))
		}
	}
	return out
}

func renderSessionTable(metas []store.SessionMeta) string {
	if len(metas) == 0 {
		return dimStyle.Render("no sessions yet")
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(promptStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return bannerStyle.Padding(0, 1)
			}
			return dimStyle.Padding(0, 1)
		}).
		Headers("ID", "Last used", "Turns")

	for _, m := range metas {
		t.Row(m.ID, m.UpdatedAt.Format("2006-01-02 15:04"), fmt.Sprintf("%d", m.Turns))
	}
	return t.String()
}
