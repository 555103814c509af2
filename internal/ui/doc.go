// Package ui provides terminal rendering helpers for the obsws-server CLI.
//
// This package uses Lipgloss to render polished terminal output for the
// non-interactive command paths. Unlike the full-screen setup wizard, these
// components follow a "render once and exit" pattern - they produce styled
// output but don't require user interaction beyond a single prompt.
//
// # Components
//
//   - Header: Command banner showing operation name and parameters,
//     used by connect-info to frame the connection details
//   - ConfirmConfigOverwrite: Warning box with a yes/no prompt shown before
//     the setup wizard rewrites an existing configuration file
//   - Result: Success/failure boxes with aligned detail lines, used to
//     report command outcomes
//
// # Terminal Handling
//
// All rendering is width-aware via GetTerminalWidth, which caps content at
// MaxContentWidth and falls back to MinTerminalWidth when the terminal size
// cannot be determined (for example, when output is piped).
//
// # Logging Integration
//
// This package expects logging to be controlled via the OBSWS_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
