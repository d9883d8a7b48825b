// Package ui holds the terminal styles shared by the CLI commands.
package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	passStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// RenderAccent renders emphasized text, e.g. day keys and headings.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass renders success text, e.g. "Saved" confirmations.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn renders warning text, e.g. "Queued offline".
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderErr renders error text.
func RenderErr(s string) string { return errStyle.Render(s) }

// RenderDim renders secondary text, e.g. timestamps and hints.
func RenderDim(s string) string { return dimStyle.Render(s) }
