package ui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm displays a warning box and prompts the user with a yes/no question.
// Returns true only if the user answers "y" or "yes" (case-insensitive).
func Confirm(title string, warnings []string, prompt string) bool {
	width := GetTerminalWidth()
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string

	titleLine := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true).
		Render(fmt.Sprintf("   ⚠  %s", title))
	lines = append(lines, "")
	lines = append(lines, titleLine)
	lines = append(lines, "")

	for _, warning := range warnings {
		bulletStyle := lipgloss.NewStyle().Foreground(TextColor)
		lines = append(lines, bulletStyle.Render("   • "+warning))
	}
	lines = append(lines, "")

	content := strings.Join(lines, "\n")
	fmt.Println(WarningBoxStyle(width).Render(content))
	fmt.Println()

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	fmt.Print(promptStyle.Render(prompt + " [y/N]: "))

	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		fmt.Println()
		return false
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		fmt.Println()
		return true
	}

	fmt.Println()
	cancelStyle := lipgloss.NewStyle().Foreground(MutedColor)
	fmt.Println(cancelStyle.Render("  Operation cancelled."))
	fmt.Println()
	return false
}

// ConfirmConfigOverwrite is a pre-configured confirmation shown before the
// setup wizard rewrites an existing configuration file.
func ConfirmConfigOverwrite(path string) bool {
	return Confirm(
		"EXISTING CONFIGURATION",
		[]string{
			"A configuration file already exists at:",
			path,
			"Completing the setup wizard will rewrite this file",
			"The current settings will be loaded as the wizard's starting values",
		},
		"Continue with setup?",
	)
}
