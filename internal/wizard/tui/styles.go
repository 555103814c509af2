package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/obsws/internal/version"
)

// Application branding constants
const (
	AppName       = "OBSWS SERVER SETUP"
	GitHubURL     = "github.com/muurk/obsws"
	GitHubFullURL = "https://github.com/muurk/obsws"
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants for responsive terminal width
const (
	MinTerminalWidth = 60 // Minimum supported terminal width
	MaxContentWidth  = 96 // Maximum content width before capping
)

// Color palette
var (
	// Primary colors
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5555") // Red

	// Neutral colors
	TextColor      = lipgloss.Color("#FFFFFF") // White
	SubtleColor    = lipgloss.Color("#626262") // Gray
	BorderColor    = lipgloss.Color("#7D56F4") // Purple (same as primary)
	HighlightColor = lipgloss.Color("#43BF6D") // Green (same as secondary)
)

// Common styles
var (
	// Title style - bold, padded
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0)

	// Subtitle style
	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	// Field label (unfocused)
	FieldLabelStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(TextColor).
			Width(24)

	// Field label (focused)
	FocusedLabelStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(HighlightColor).
				Bold(true).
				Width(24)

	// Field value shown next to an unfocused field
	FieldValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// Disabled field label and value (e.g. password while auth is off)
	DisabledStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(SubtleColor)

	// Toggle value styles
	ToggleOnStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	ToggleOffStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// Save button styles
	ButtonStyle = lipgloss.NewStyle().
			PaddingLeft(4).
			Foreground(TextColor)

	FocusedButtonStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				Foreground(HighlightColor).
				Bold(true)

	// Help text style
	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 0)

	// Validation error style
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true).
			PaddingLeft(2)

	// Success message style
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(SecondaryColor)

	// Box style for the form container
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)
)

// formatToggle renders an on/off value with the marker the form uses
func formatToggle(on bool) string {
	if on {
		return ToggleOnStyle.Render("[x] enabled")
	}
	return ToggleOffStyle.Render("[ ] disabled")
}
