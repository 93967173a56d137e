package main

// Terminal rendering helpers.

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorSuccess = lipgloss.Color("#9ece6a")
	colorError   = lipgloss.Color("#f7768e")
	colorDim     = lipgloss.Color("#565f89")
	colorText    = lipgloss.Color("#c0caf5")
	colorBorder  = lipgloss.Color("#3b4261")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	keyStyle   = lipgloss.NewStyle().Foreground(colorDim).Width(22)
	valStyle   = lipgloss.NewStyle().Foreground(colorText)
	okStyle    = lipgloss.NewStyle().Foreground(colorSuccess)
	errStyle   = lipgloss.NewStyle().Foreground(colorError)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)
)

// renderKV renders a titled key/value box.
func renderKV(title string, pairs [][2]string) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	for _, kv := range pairs {
		b.WriteString(keyStyle.Render(kv[0]))
		b.WriteString(valStyle.Render(kv[1]))
		b.WriteString("\n")
	}
	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderOK(msg string) string  { return okStyle.Render(msg) }
func renderErr(msg string) string { return errStyle.Render(msg) }

func hexBytes(b []byte) string {
	if len(b) == 0 {
		return "(empty)"
	}
	return fmt.Sprintf("% X", b)
}
