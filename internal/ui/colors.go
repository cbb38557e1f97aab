package ui

import "github.com/charmbracelet/lipgloss"

// palette mirrors the teacher's STACKIT_COLORS truecolor ramp
// (internal/output/colors.go), reused here to color stack-depth levels in
// the `show` renderer.
var palette = []lipgloss.Color{
	lipgloss.Color("#4CCBF1"), // light blue
	lipgloss.Color("#4DCA7D"), // green
	lipgloss.Color("#6EAD26"), // dark green
	lipgloss.Color("#F5C800"), // yellow
	lipgloss.Color("#F89048"), // orange
	lipgloss.Color("#F46251"), // red
	lipgloss.Color("#EB82BC"), // pink
	lipgloss.Color("#9F83E4"), // purple
	lipgloss.Color("#5084F3"), // blue
}

func colorForDepth(depth int) lipgloss.Color {
	return palette[depth%len(palette)]
}

var (
	styleProtected = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Bold(true)
	styleWIP       = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Italic(true)
	styleReady     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	styleCurrent   = lipgloss.NewStyle().Underline(true)
)
