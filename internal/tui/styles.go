// SPDX-License-Identifier: MIT
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7A7A7A"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E4572E")).
			Bold(true)

	stateStyles = map[string]lipgloss.Style{
		"idle":      dimStyle,
		"recording": lipgloss.NewStyle().Foreground(lipgloss.Color("#E4572E")).Bold(true),
		"paused":    lipgloss.NewStyle().Foreground(lipgloss.Color("#F3A712")).Bold(true),
		"stopped":   infoStyle,
	}
)
