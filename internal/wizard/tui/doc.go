// Package tui implements the interactive setup wizard for obsws-server.
//
// This package provides a full-screen terminal form for writing the server's
// configuration file. Built using the Bubble Tea framework, it follows the
// Elm architecture with immutable state updates and a clean Model-Update-View
// pattern.
//
// # Architecture
//
// The wizard is a single-screen form with a saved/result state:
//   - Form: listen port, authentication toggle, password, metrics toggle,
//     and mDNS discovery toggle, edited inline with cursor navigation
//   - Saved: confirmation showing where the configuration was written
//
// Validation runs when the user selects Save; problems are shown inline and
// the form stays editable until the configuration passes.
//
// # Framework Components
//
// The wizard leverages Bubble Tea framework components throughout:
//   - bubbles/textinput: Port and password entry fields
//   - bubbles/help: Context-aware key binding help
//   - bubbles/key: Declarative key bindings
//   - lipgloss: Styling and layout
//
// # Usage Example
//
//	cfg, _ := config.LoadFrom(path)
//	saved, err := tui.Run(cfg, path)
//	if err != nil {
//	    return err
//	}
//	if saved {
//	    fmt.Println("configuration written to", path)
//	}
//
// The final configuration is written with config.SaveTo, so the wizard gets
// the same atomic write and 0600 permissions as every other config writer.
package tui
