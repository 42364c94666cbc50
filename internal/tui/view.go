package tui

import (
	"fmt"
	"image/color"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/lanes/internal/domain"
)

// palette holds the colors shared by board and overlays.
type palette struct {
	accent color.Color
	drop   color.Color
	text   color.Color
	muted  color.Color
	dim    color.Color
	warn   color.Color
}

// defaultPalette returns the board colors.
func defaultPalette() palette {
	return palette{
		accent: lipgloss.Color("62"),
		drop:   lipgloss.Color("212"),
		text:   lipgloss.Color("252"),
		muted:  lipgloss.Color("241"),
		dim:    lipgloss.Color("239"),
		warn:   lipgloss.Color("203"),
	}
}

// View renders the board.
func (m Model) View() tea.View {
	return newView(m.render())
}

// render composes the full screen as text.
func (m Model) render() string {
	if !m.ready {
		return "loading..."
	}
	pal := defaultPalette()

	header := lipgloss.NewStyle().Bold(true).Foreground(pal.text).Render("lanes")
	if name := strings.TrimSpace(m.displayName); name != "" {
		header += lipgloss.NewStyle().Foreground(pal.muted).Render("  " + name)
	}
	header += lipgloss.NewStyle().Foreground(pal.dim).Render(fmt.Sprintf("  %d tasks", m.view.Board.Len()))
	if m.view.Drag.Active {
		header += lipgloss.NewStyle().Foreground(pal.drop).Render("  [dragging]")
	}

	body := m.renderBoard(pal)
	statusLine := lipgloss.NewStyle().Foreground(pal.dim).Render(truncate(m.status, max(1, m.width)))

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpLine := lipgloss.NewStyle().
		Foreground(pal.muted).
		BorderTop(true).
		BorderForeground(pal.dim).
		Padding(0, 1).
		Render(helpBubble.View(m.keys))

	content := fitLines(strings.Join([]string{header, "", body}, "\n"), max(1, m.height-footerRows))
	full := content + "\n" + statusLine + "\n" + helpLine

	if overlay := m.renderOverlay(pal); overlay != "" {
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, m.height))
	}
	return full
}

// newView wraps content in a full-screen view with mouse motion reporting.
func newView(content string) tea.View {
	v := tea.NewView(content)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// renderBoard renders every lane side by side using the shared layout.
func (m Model) renderBoard(pal palette) string {
	layout := m.layout()
	dropLane := m.dropTargetLane()
	draggedID := ""
	if m.view.Drag.Active {
		draggedID = m.view.Drag.TaskID
	}

	views := make([]string, 0, len(layout.lanes))
	for idx, box := range layout.lanes {
		border := pal.dim
		switch {
		case m.view.Drag.Active && box.lane == dropLane:
			border = pal.drop
		case idx == m.selLane:
			border = pal.accent
		}
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)
		if idx < len(layout.lanes)-1 {
			style = style.MarginRight(laneGap)
		}
		inner := box.width - laneChrome
		lines := m.laneLines(idx, box, inner, draggedID, pal)
		views = append(views, style.Render(fitLines(strings.Join(lines, "\n"), box.height-2)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, views...)
}

// laneLines renders the lane title and its visible cards, each padded to width.
func (m Model) laneLines(idx int, box laneBox, width int, draggedID string, pal palette) []string {
	tasks := m.laneTasks(idx)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(pal.accent)
	metaStyle := lipgloss.NewStyle().Foreground(pal.muted)
	selectedStyle := lipgloss.NewStyle().Bold(true).Foreground(pal.drop)
	draggedStyle := lipgloss.NewStyle().Italic(true).Foreground(pal.dim)

	name := m.lanes[idx].Name
	lines := []string{
		padRight(titleStyle.Render(truncate(fmt.Sprintf("%s (%d)", name, len(tasks)), width)), width),
		padRight("", width),
	}
	if len(tasks) == 0 {
		return append(lines, padRight(metaStyle.Render("(empty)"), width))
	}
	if box.first > 0 {
		lines[1] = padRight(metaStyle.Render(fmt.Sprintf("↑ %d more", box.first)), width)
	}

	byID := make(map[string]domain.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}
	for i, card := range box.cards {
		task := byID[card.taskID]
		selected := idx == m.selLane && task.ID == m.selectedTaskID()
		prefix := "  "
		if selected {
			prefix = "│ "
		}
		title := prefix + truncate(task.Title, width-2)
		meta := "  " + truncate(cardMeta(task), width-2)
		switch {
		case task.ID == draggedID:
			title = draggedStyle.Render(title)
			meta = draggedStyle.Render(meta)
		case selected:
			title = selectedStyle.Render(title)
			meta = metaStyle.Render(meta)
		default:
			meta = metaStyle.Render(meta)
		}
		lines = append(lines, padRight(title, width), padRight(meta, width))
		if i < len(box.cards)-1 {
			lines = append(lines, padRight("", width))
		}
	}
	if hidden := len(tasks) - box.first - len(box.cards); hidden > 0 {
		lines = append(lines, padRight(metaStyle.Render(fmt.Sprintf("↓ %d more", hidden)), width))
	}
	return lines
}

// selectedTaskID returns the id under the cursor.
func (m Model) selectedTaskID() string {
	if task, ok := m.selectedTask(); ok {
		return task.ID
	}
	return ""
}

// dropTargetLane returns the lane a drop would land in right now.
func (m Model) dropTargetLane() domain.LaneID {
	if !m.view.Drag.Active {
		return ""
	}
	if m.dragByMouse {
		return m.hoverLane
	}
	if m.dragTarget >= 0 && m.dragTarget < len(m.lanes) {
		return m.lanes[m.dragTarget].ID
	}
	return ""
}

// cardMeta summarizes a task's subtasks and description on one line.
func cardMeta(task domain.Task) string {
	parts := make([]string, 0, 2)
	if n := len(task.Subtasks); n == 1 {
		parts = append(parts, "1 subtask")
	} else if n > 1 {
		parts = append(parts, fmt.Sprintf("%d subtasks", n))
	}
	if strings.TrimSpace(task.Description) != "" {
		parts = append(parts, "notes")
	}
	return strings.Join(parts, " • ")
}

// renderOverlay renders the modal for the current mode.
func (m Model) renderOverlay(pal palette) string {
	maxWidth := m.width - 8
	switch m.mode {
	case modeForm:
		return m.renderForm(pal, maxWidth)
	case modeConfirmDelete:
		return m.renderConfirm(pal, maxWidth)
	case modeInfo:
		return m.renderInfo(pal, maxWidth)
	case modeActivity:
		return m.renderActivity(pal, maxWidth)
	}
	if m.help.ShowAll {
		full := m.help
		full.ShowAll = true
		return modalStyle(pal.accent, maxWidth, 40, 100).Render(
			lipgloss.NewStyle().Bold(true).Foreground(pal.accent).Render("Keys") + "\n" + full.View(m.keys),
		)
	}
	return ""
}

// modalStyle returns the shared bordered modal style.
func modalStyle(border color.Color, maxWidth, minW, maxW int) lipgloss.Style {
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
	if maxWidth > 0 {
		style = style.Width(clamp(maxWidth, minW, maxW))
	}
	return style
}

// renderForm renders the task form modal.
func (m Model) renderForm(pal palette, maxWidth int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(pal.accent)
	hintStyle := lipgloss.NewStyle().Foreground(pal.muted)
	focusStyle := lipgloss.NewStyle().Foreground(pal.drop)

	heading := "New task"
	if m.editor.editMode {
		heading = "Edit task"
	}
	lines := []string{
		titleStyle.Render(heading),
		"",
		m.editor.title.View(),
		m.editor.description.View(),
		"lane:  ‹ " + focusStyle.Render(m.laneName(m.editor.lane)) + " ›",
		"",
		hintStyle.Render("subtasks"),
	}
	if len(m.editor.subtasks) == 0 {
		lines = append(lines, hintStyle.Render("(none • ctrl+a to add)"))
	}
	for _, in := range m.editor.subtasks {
		lines = append(lines, in.View())
	}
	lines = append(lines, "")
	if strings.HasPrefix(m.status, "save failed") {
		lines = append(lines, lipgloss.NewStyle().Foreground(pal.warn).Render(m.status))
	}
	footer := m.help
	footer.ShowAll = false
	lines = append(lines, hintStyle.Render(footer.ShortHelpView(m.formKeys.ShortHelp())))
	return modalStyle(pal.accent, maxWidth, 40, 80).Render(strings.Join(lines, "\n"))
}

// renderConfirm renders the delete confirmation.
func (m Model) renderConfirm(pal palette, maxWidth int) string {
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(pal.warn).Render("Delete task?"),
		truncate(m.activeTitle(), 60),
		"",
		lipgloss.NewStyle().Foreground(pal.muted).Render("y/enter delete • n/esc keep"),
	}
	return modalStyle(pal.warn, maxWidth, 30, 64).Render(strings.Join(lines, "\n"))
}

// renderInfo renders the task info panel with its markdown description.
func (m Model) renderInfo(pal palette, maxWidth int) string {
	task, ok := m.view.Board.Find(m.infoTaskID)
	if !ok {
		return ""
	}
	hintStyle := lipgloss.NewStyle().Foreground(pal.muted)
	width := clamp(maxWidth, 40, 90)
	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(pal.accent).Render(task.Title),
		hintStyle.Render("lane: " + m.laneName(task.Lane) + " • id: " + task.ID),
	}
	if desc := m.md.render(task.Description, width-4); desc != "" {
		lines = append(lines, "", desc)
	}
	if len(task.Subtasks) > 0 {
		lines = append(lines, "", hintStyle.Render(fmt.Sprintf("subtasks (%d)", len(task.Subtasks))))
		for _, sub := range task.Subtasks {
			lines = append(lines, "• "+truncate(sub, width-6))
		}
	}
	lines = append(lines, "", hintStyle.Render("e edit • y copy title • esc close"))
	return modalStyle(pal.accent, maxWidth, 40, 90).Render(strings.Join(lines, "\n"))
}

// renderActivity renders recent board changes, newest first.
func (m Model) renderActivity(pal palette, maxWidth int) string {
	hintStyle := lipgloss.NewStyle().Foreground(pal.muted)
	lines := []string{lipgloss.NewStyle().Bold(true).Foreground(pal.accent).Render("Activity")}
	if len(m.activity) == 0 {
		lines = append(lines, hintStyle.Render("(no activity recorded)"))
	}
	for i, event := range m.activity {
		if i >= max(1, m.height-8) {
			break
		}
		lines = append(lines, formatActivity(event, m.laneName))
	}
	lines = append(lines, "", hintStyle.Render("esc close"))
	return modalStyle(pal.accent, maxWidth, 44, 96).Render(strings.Join(lines, "\n"))
}

// formatActivity renders one change event.
func formatActivity(event domain.ChangeEvent, laneName func(domain.LaneID) string) string {
	at := "--:--:--"
	if !event.OccurredAt.IsZero() {
		at = event.OccurredAt.Local().Format("15:04:05")
	}
	line := fmt.Sprintf("%s  %-7s %s", at, event.Operation, truncate(event.Title, 40))
	switch {
	case event.FromLane != "" && event.ToLane != "" && event.FromLane != event.ToLane:
		line += fmt.Sprintf("  %s → %s", laneName(event.FromLane), laneName(event.ToLane))
	case event.ToLane != "":
		line += "  in " + laneName(event.ToLane)
	case event.FromLane != "":
		line += "  from " + laneName(event.FromLane)
	}
	return line
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// fitLines pads or cuts content to exactly maxLines lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		lines = append(lines, make([]string, maxLines-len(lines))...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent centers overlay above base on a canvas.
func overlayOnContent(base, overlay string, width, height int) string {
	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	centered := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	canvas.Compose(lipgloss.NewLayer(base).X(0).Y(0).Z(0))
	canvas.Compose(lipgloss.NewLayer(centered).X(0).Y(0).Z(10))
	return canvas.Render()
}
