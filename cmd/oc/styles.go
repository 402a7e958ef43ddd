package main

import (
	"github.com/charmbracelet/lipgloss"
)

// Minimal color palette
var (
	DimColor    = lipgloss.Color("#6c6c6c")
	TextColor   = lipgloss.Color("#e0e0e0")
	AccentColor = lipgloss.Color("#7aa2f7")
	ErrorColor  = lipgloss.Color("#f7768e")
	PassColor   = lipgloss.Color("#9ece6a")
)

// Output styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true)

	TextStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	DimStyle = lipgloss.NewStyle().
			Foreground(DimColor)

	PassStyle = lipgloss.NewStyle().
			Foreground(PassColor)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	WarnStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Italic(true)
)

// Result prefixes
const (
	PassPrefix = "  ✓ "
	FailPrefix = "  ✗ "
	InfoPrefix = "  • "
)
