package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/damoang/image-organizer/internal/client"
	"github.com/damoang/image-organizer/internal/modal"
)

// View renders the UI
func (m Model) View() string {
	if len(m.panes) == 0 {
		return "\n  " + m.t("gallery.empty") + "\n"
	}
	if m.mode == modeDialog {
		if d := m.gallery().Modal(); d != nil && d.IsOpen() {
			return m.viewDialog(d)
		}
	}

	var b strings.Builder
	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")
	b.WriteString(m.viewFilters())
	b.WriteString(m.viewSearch())
	b.WriteString(m.viewItems())
	b.WriteString(m.viewLoadMore())
	b.WriteString("\n")
	if m.mode == modeUpload {
		b.WriteString(titleStyle.Render(m.t("upload.submit")) + "\n")
		b.WriteString(m.upload.view())
		b.WriteString("\n")
	}
	b.WriteString(m.viewStatus())
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m Model) viewTabs() string {
	tabs := make([]string, len(m.panes))
	for i, p := range m.panes {
		label := p.Gallery.ID()
		if i == m.active {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	return titleStyle.Render(m.t("gallery.title")) + " " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewFilters() string {
	g := m.gallery()
	filters := g.Filters()
	if len(filters) == 0 {
		return ""
	}
	active := g.Filter().Term
	parts := make([]string, len(filters))
	for i, f := range filters {
		if f.Token == active {
			parts[i] = activeFilterStyle.Render("[" + f.Label + "]")
		} else {
			parts[i] = filterStyle.Render(" " + f.Label + " ")
		}
	}
	return strings.Join(parts, " ") + "\n\n"
}

func (m Model) viewSearch() string {
	g := m.gallery()
	if !g.Instance().ShowSearch {
		return ""
	}
	line := m.search.View()
	if g.State() == client.StateSearching {
		line += " " + m.spinner.View()
	}
	return line + "\n\n"
}

func (m Model) viewItems() string {
	g := m.gallery()
	items := g.VisibleItems()
	if len(items) == 0 {
		return captionStyle.Render(m.t("gallery.empty")) + "\n"
	}

	var b strings.Builder
	for i, it := range items {
		marker := "  "
		title := it.Title
		if title == "" {
			title = fmt.Sprintf("#%d", it.ID)
		}
		if i == m.cursor {
			marker = cursorStyle.Render("▸ ")
			title = cursorStyle.Render(title)
		}
		b.WriteString(marker + title)
		if it.Caption != "" {
			b.WriteString("  " + captionStyle.Render(it.Caption))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewLoadMore() string {
	g := m.gallery()
	if !g.LoadMoreVisible() {
		return ""
	}
	current, last := g.Page()
	if !g.LoadMoreEnabled() {
		return fmt.Sprintf("\n%s %s\n", m.spinner.View(), m.t("gallery.loading"))
	}
	return navStyle.Render(fmt.Sprintf("\n[m] %s (%d/%d)", m.t("gallery.load_more"), current, last)) + "\n"
}

func (m Model) viewStatus() string {
	var b strings.Builder
	if text := m.panes[m.active].Live.Text(); text != "" {
		b.WriteString(statusStyle.Render(text) + "\n")
	}
	if m.gallery().Uploading() {
		b.WriteString(m.spinner.View() + " " + m.t("upload.submit") + "...\n")
	}
	if m.notice != "" {
		b.WriteString(captionStyle.Render(m.notice) + "\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	return b.String()
}

func (m Model) viewHelp() string {
	switch m.mode {
	case modeSearch:
		return navStyle.Render("type to search · enter done")
	case modeUpload:
		return navStyle.Render("tab next field · enter submit · esc cancel")
	}
	help := []string{"↑/↓ move", "enter open"}
	g := m.gallery()
	if len(g.Filters()) > 0 {
		help = append(help, "f filter")
	}
	if g.Instance().ShowSearch {
		help = append(help, "/ search", "x clear")
	}
	if g.Instance().Upload != nil {
		help = append(help, "u upload")
	}
	if len(m.panes) > 1 {
		help = append(help, "tab gallery")
	}
	help = append(help, "q quit")
	return navStyle.Render(strings.Join(help, " · "))
}

func (m Model) viewDialog(d *modal.Modal) string {
	s, _ := d.Session()
	it := s.Item

	var b strings.Builder
	b.WriteString(titleStyle.Render(it.Title) + "\n")
	if it.Caption != "" {
		b.WriteString(captionStyle.Render(it.Caption) + "\n")
	}
	if it.Description != "" {
		b.WriteString("\n" + it.Description + "\n")
	}
	b.WriteString("\n" + m.t("gallery.alt_label") + " " + it.Alt + "\n")
	if it.Src != "" {
		b.WriteString(navStyle.Render(it.Src) + "\n")
	}
	b.WriteString("\n")

	focused := m.page.Focused()
	controls := []struct{ id, label string }{
		{modal.ControlClose, m.t("gallery.close")},
		{modal.ControlCopyAlt, m.t("gallery.copy_alt")},
		{modal.ControlDownload, m.t("gallery.download")},
	}
	buttons := make([]string, len(controls))
	for i, c := range controls {
		if focused == d.ControlID(c.id) {
			buttons[i] = focusedControlStyle.Render(c.label)
		} else {
			buttons[i] = controlStyle.Render(c.label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, buttons...))

	box := dialogStyle.Render(b.String())
	var out strings.Builder
	out.WriteString(box + "\n")
	out.WriteString(m.viewStatus())
	out.WriteString(navStyle.Render("tab next · enter activate · c copy alt · esc close"))
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, out.String())
	}
	return out.String()
}
