package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matheuskafuri/stocktracker/internal/stocks"
)

const (
	fieldTicker = iota
	fieldBrokerage
	fieldCompany
	fieldCount
)

// filterBar edits a stocks.Filter with one text input per field.
type filterBar struct {
	inputs  [fieldCount]textinput.Model
	focused int
	editing bool
}

func newFilterBar() filterBar {
	var f filterBar
	for i, label := range []string{"ticker", "brokerage", "company"} {
		ti := textinput.New()
		ti.Placeholder = label
		ti.Prompt = filterPromptStyle.Render(label + ": ")
		ti.CharLimit = 64
		ti.Width = 16
		f.inputs[i] = ti
	}
	return f
}

// open starts editing, seeded from the current filter.
func (f *filterBar) open(cur stocks.Filter) tea.Cmd {
	f.inputs[fieldTicker].SetValue(cur.Ticker)
	f.inputs[fieldBrokerage].SetValue(cur.Brokerage)
	f.inputs[fieldCompany].SetValue(cur.Company)
	f.editing = true
	return f.focus(fieldTicker)
}

func (f *filterBar) close() {
	f.editing = false
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

func (f *filterBar) focus(i int) tea.Cmd {
	f.focused = (i + fieldCount) % fieldCount
	for j := range f.inputs {
		if j == f.focused {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return textinput.Blink
}

func (f *filterBar) next() tea.Cmd { return f.focus(f.focused + 1) }
func (f *filterBar) prev() tea.Cmd { return f.focus(f.focused - 1) }

func (f *filterBar) clear() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
}

func (f *filterBar) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return cmd
}

func (f *filterBar) value() stocks.Filter {
	return stocks.Filter{
		Ticker:    f.inputs[fieldTicker].Value(),
		Brokerage: f.inputs[fieldBrokerage].Value(),
		Company:   f.inputs[fieldCompany].Value(),
	}
}

func (f *filterBar) render(width int) string {
	parts := make([]string, 0, fieldCount)
	for i := range f.inputs {
		parts = append(parts, f.inputs[i].View())
	}
	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(strings.Join(parts, "  "))
}

// renderTabs draws the screen tabs followed by the active filter.
func renderTabs(active screen, filter stocks.Filter, width int) string {
	sep := tabSeparatorStyle.Render(" · ")

	var parts []string
	for _, s := range []screen{screenRatings, screenRecommendations} {
		style := tabInactiveStyle
		if s == active {
			style = tabActiveStyle
		}
		parts = append(parts, style.Render(s.title()))
	}
	if !filter.IsZero() {
		parts = append(parts, tabSeparatorStyle.Render("filter "+filter.Label()))
	}

	// Stop adding parts once the row would exceed width
	var row string
	for i, part := range parts {
		candidate := row
		if i > 0 {
			candidate += sep
		}
		candidate += part
		if lipgloss.Width(candidate) > width && row != "" {
			break
		}
		row = candidate
	}

	barStyle := lipgloss.NewStyle().
		Background(colorSurface).
		Width(width).
		PaddingLeft(1)
	return barStyle.Render(row)
}
