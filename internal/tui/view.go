package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"monthcal/internal/calendar"
	"monthcal/internal/form"
	"monthcal/internal/grid"
	"monthcal/internal/model"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	weekdayStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Bold(true)
	outsideStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	pastStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	todayStyle    = lipgloss.NewStyle().Underline(true).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("63")).Foreground(lipgloss.Color("0"))
	moreStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1, 2)
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("218")).Bold(true)

	colorStyles = map[model.Color]lipgloss.Style{
		model.ColorRed:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		model.ColorGreen: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		model.ColorBlue:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")),
	}
)

func (m Model) View() string {
	if m.form.IsOpen() {
		return m.formView()
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.month.Title()))
	b.WriteString("\n")

	width := max(m.cellWidth, 10)
	names := grid.WeekdayNames(m.month.WeekStart)
	header := make([]string, len(names))
	for i, n := range names {
		header[i] = weekdayStyle.Width(width).Render(n)
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, header...))
	b.WriteString("\n")

	for i := 0; i+7 <= len(m.days); i += 7 {
		row := make([]string, 7)
		for j, d := range m.days[i : i+7] {
			row[j] = m.cellView(d, width)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, row...))
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

func (m Model) cellView(d *calendar.DayCell, width int) string {
	num := strconv.Itoa(d.DayNumber())
	switch {
	case d.Date == m.selected:
		num = selectedStyle.Render(num)
	case d.Date == model.DateOf(m.month.Now()):
		num = todayStyle.Render(num)
	case !d.InMonth:
		num = outsideStyle.Render(num)
	case d.Past:
		num = pastStyle.Render(num)
	}

	lines := []string{num}
	visible := d.List.Visible()
	rendered := d.List.Render()
	for i, text := range rendered.Items {
		style, ok := colorStyles[visible[i].Color]
		if !ok {
			style = lipgloss.NewStyle()
		}
		lines = append(lines, style.MaxWidth(width-1).Render(text))
	}
	if rendered.Overflow != "" {
		lines = append(lines, moreStyle.Render(rendered.Overflow))
	}

	cell := lipgloss.NewStyle().Width(width)
	if m.height > 0 {
		cell = cell.Height(m.cellLines + 2)
	}
	return cell.Render(strings.Join(lines, "\n"))
}

func (m Model) formView() string {
	label := func(field int, name string) string {
		if m.focus == field {
			return focusStyle.Render("> " + name)
		}
		return "  " + name
	}

	allDay := "[ ]"
	if m.allDay {
		allDay = "[x]"
	}
	colors := make([]string, len(model.Colors))
	for i, c := range model.Colors {
		text := string(c)
		if i == m.colorIdx {
			text = "<" + text + ">"
		}
		colors[i] = colorStyles[c].Render(text)
	}

	heading := "New event"
	if m.form.Mode() == form.Editing {
		heading = "Edit event"
	}

	rows := []string{
		titleStyle.Render(heading + "  " + m.form.Date().Time().Format("1/2/06")),
		"",
		label(fieldTitle, "Title  ") + m.title.View(),
		label(fieldAllDay, "All day") + " " + allDay,
		label(fieldStart, "Start  ") + m.start.View(),
		label(fieldEnd, "End    ") + m.end.View(),
		label(fieldColor, "Color  ") + " " + strings.Join(colors, " "),
		"",
		statusStyle.Render("tab next field  enter save  esc cancel  ctrl+d delete"),
		statusStyle.Render(m.status),
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}
