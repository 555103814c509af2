package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/obsws/internal/config"
)

// Run launches the setup wizard pre-filled from cfg and blocks until the
// user saves or quits. It reports whether a configuration file was written
// to path.
func Run(cfg *config.Config, path string) (bool, error) {
	model := NewSetupModel(cfg, path)

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("setup wizard error: %w", err)
	}

	result, ok := final.(SetupModel)
	if !ok {
		return false, fmt.Errorf("setup wizard returned unexpected model type %T", final)
	}
	return result.Saved, nil
}
