package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type statusInfo struct {
	shown     int
	total     int
	noun      string
	updated   string
	hints     string
	loading   bool
	spinner   string
	errorText string
}

func renderStatusBar(s statusInfo, width int) string {
	left := fmt.Sprintf(" %d %s", s.shown, s.noun)
	if s.shown != s.total {
		left = fmt.Sprintf(" %d of %d %s", s.shown, s.total, s.noun)
	}
	if s.updated != "" {
		left += " · updated " + s.updated
	}
	if s.loading {
		left = s.spinner + left + " (loading...)"
	}
	if s.errorText != "" {
		left += " " + errorStyle.Render(s.errorText)
	}

	right := " " + s.hints + " "
	if s.errorText != "" {
		right = " r reload  ? help "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(hints string, width int) string {
	right := " " + hints + " "

	gap := width - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}
