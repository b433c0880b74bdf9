package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jask/compass/internal/database/repository"
	"github.com/jask/compass/internal/layer"
)

// styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle  = lipgloss.NewStyle().Bold(true)
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	typedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("215"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	modalStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func (a *App) View() string {
	body := a.renderMain()
	if a.modal == modalNone {
		return body
	}
	return centerModal(body, modalStyle.Render(a.renderModal()), a.width, a.height)
}

func (a *App) renderMain() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Compass - ATT&CK layers"))
	b.WriteString("\n")
	if a.deps.ServerURL != "" {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Server:"), a.deps.ServerURL)
	}
	fmt.Fprintf(&b, "%s %s\n", labelStyle.Render("Layer selection:"), a.selectedLabel)
	if a.lastExport != nil {
		s := a.lastExport.Summary
		line := fmt.Sprintf("%s %s", labelStyle.Render("Last export:"), a.lastExport.Location)
		if s.Name != "" {
			line += fmt.Sprintf(" (%s, %d techniques)", s.Name, s.Techniques)
		}
		b.WriteString(line + "\n")
	}

	if len(a.activity) > 0 {
		b.WriteString("\n" + labelStyle.Render("Recent activity") + "\n")
		for _, act := range a.activity {
			b.WriteString(renderActivity(act) + "\n")
		}
	}

	b.WriteString("\n" + hintStyle.Render("[e] Export "+layer.FileName+"  [a] Choose adversary  [u] Upload adversary layer  [r] Refresh  [?] Help  [q] Quit"))
	if a.status != "" {
		b.WriteString("\n" + a.status)
	}
	return b.String()
}

func renderActivity(act repository.Activity) string {
	mark := okStyle.Render("✓")
	detail := act.Detail
	if !act.OK {
		mark = failStyle.Render("✗")
		detail = act.Error
	}
	line := fmt.Sprintf("%s %-6s %s", mark, act.Kind, act.Target)
	if detail != "" {
		line += " - " + truncate(detail, 60)
	}
	if !act.CreatedAt.IsZero() {
		line += hintStyle.Render("  " + humanize.Time(act.CreatedAt))
	}
	return line
}

func (a *App) renderModal() string {
	switch a.modal {
	case modalAdversaryPicker, modalUploadPicker:
		if a.picker == nil {
			return ""
		}
		return a.picker.View(a.modalWidth())
	case modalHelp:
		return a.renderHelp()
	case modalConfirm:
		return labelStyle.Render(a.confirmText) + "\n\n" + hintStyle.Render("[enter] OK")
	default:
		return ""
	}
}

func (a *App) modalWidth() int {
	if a.width <= 0 {
		return 0
	}
	w := a.width - 8
	if w > 72 {
		w = 72
	}
	return w
}

func (a *App) renderHelp() string {
	lines := []string{
		titleStyle.Render("Compass help"),
		"Export builds an ATT&CK Navigator layer on the server and saves it",
		"as " + layer.FileName + ". Choose an adversary first to scope the layer;",
		"otherwise every ability is included.",
		"",
		"Upload sends a layer file to the server, which turns it into a new",
		"adversary.",
		"",
	}
	for _, group := range a.keys.FullHelp() {
		var parts []string
		for _, b := range group {
			h := b.Help()
			parts = append(parts, fmt.Sprintf("[%s] %s", h.Key, h.Desc))
		}
		lines = append(lines, strings.Join(parts, "  "))
	}
	lines = append(lines, "", hintStyle.Render("[esc] Close"))
	return strings.Join(lines, "\n")
}
