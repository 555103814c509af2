package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail is one aligned key/value line inside a result box. A slice keeps
// the caller's ordering, unlike a map.
type Detail struct {
	Key   string
	Value string
}

// Result describes a finished command outcome for rendering.
type Result struct {
	Success bool     // Success or failure box
	Title   string   // e.g., "Configuration saved"
	Message string   // Optional free-form line under the title
	Details []Detail // Aligned key/value lines
	Hints   []string // Follow-up suggestions rendered below the box
	Width   int      // Terminal width for responsive rendering
}

// RenderSuccessResult renders a green double-bordered success box.
func RenderSuccessResult(title string, details []Detail, hints ...string) string {
	r := &Result{
		Success: true,
		Title:   title,
		Details: details,
		Hints:   hints,
		Width:   GetTerminalWidth(),
	}
	return r.Render()
}

// RenderErrorResult renders a red double-bordered failure box.
func RenderErrorResult(title, message string, hints ...string) string {
	r := &Result{
		Success: false,
		Title:   title,
		Message: message,
		Hints:   hints,
		Width:   GetTerminalWidth(),
	}
	return r.Render()
}

// Render returns the styled result as a string
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string

	if r.Success {
		lines = append(lines, SuccessTitleStyle.Render(SuccessMarker+" "+r.Title))
	} else {
		lines = append(lines, ErrorTitleStyle.Render(FailureMarker+" "+r.Title))
	}

	if r.Message != "" {
		lines = append(lines, "")
		if r.Success {
			lines = append(lines, ResultValueStyle.Render(r.Message))
		} else {
			lines = append(lines, ErrorMessageStyle.Render(r.Message))
		}
	}

	if len(r.Details) > 0 {
		lines = append(lines, "")
		for _, d := range r.Details {
			keyStyled := ResultKeyStyle.Render(d.Key + ":")
			valueStyled := ResultValueStyle.Render(d.Value)
			lines = append(lines, keyStyled+" "+valueStyled)
		}
	}

	content := strings.Join(lines, "\n")

	var box string
	if r.Success {
		box = SuccessBoxStyle(width).Render(content)
	} else {
		box = ErrorBoxStyle(width).Render(content)
	}

	if len(r.Hints) == 0 {
		return box
	}

	var hintLines []string
	for _, hint := range r.Hints {
		hintLines = append(hintLines, HintStyle.Render("  "+hint))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		box,
		"",
		strings.Join(hintLines, "\n"),
	)
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}
