package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/muurk/obsws/internal/config"
)

// Form field indices, top to bottom
const (
	fieldPort = iota
	fieldAuth
	fieldPassword
	fieldMetrics
	fieldDiscovery
	fieldSave
	fieldCount
)

// savedMsg reports the outcome of writing the configuration file
type savedMsg struct {
	err error
}

// setupKeyMap defines key bindings for the setup form
type setupKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	Save   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k setupKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Save, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k setupKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Toggle},
		{k.Save, k.Quit},
	}
}

// SetupModel is the single-screen configuration form
type SetupModel struct {
	// Where the configuration will be written
	ConfigPath string

	// Form state
	PortInput     textinput.Model
	PasswordInput textinput.Model
	AuthRequired  bool
	Metrics       bool
	Discovery     bool

	// Navigation
	Cursor int

	// Result state
	ValidationError string
	Saved           bool
	Saving          bool

	// UI state
	Width  int
	Height int

	// Help
	Help help.Model
	Keys setupKeyMap
}

// NewSetupModel creates the form pre-filled from an existing configuration
func NewSetupModel(cfg *config.Config, path string) SetupModel {
	if cfg == nil || cfg.Server == nil {
		cfg = config.New()
	}

	portInput := textinput.New()
	portInput.Placeholder = strconv.Itoa(config.DefaultPort)
	portInput.CharLimit = 5
	portInput.Width = 8
	portInput.SetValue(strconv.Itoa(cfg.Server.Port))
	portInput.Focus()

	passwordInput := textinput.New()
	passwordInput.Placeholder = "required when authentication is on"
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'
	passwordInput.CharLimit = 128
	passwordInput.Width = 36
	passwordInput.SetValue(cfg.Server.Password)

	keys := setupKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "shift+tab"),
			key.WithHelp("↑", "previous field"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "tab"),
			key.WithHelp("↓/tab", "next field"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "toggle"),
		),
		Save: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "save"),
		),
		Quit: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "quit without saving"),
		),
	}

	return SetupModel{
		ConfigPath:    path,
		PortInput:     portInput,
		PasswordInput: passwordInput,
		AuthRequired:  cfg.Server.AuthRequired,
		Metrics:       cfg.Server.Metrics,
		Discovery:     cfg.Server.Discovery,
		Cursor:        fieldPort,
		Help:          help.New(),
		Keys:          keys,
	}
}

// Init initializes the form
func (m SetupModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles all messages
func (m SetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case savedMsg:
		m.Saving = false
		if msg.err != nil {
			m.ValidationError = fmt.Sprintf("failed to save: %v", msg.err)
			return m, nil
		}
		m.Saved = true
		return m, nil

	case tea.KeyMsg:
		// Once saved, any key exits
		if m.Saved {
			return m, tea.Quit
		}

		switch {
		case key.Matches(msg, m.Keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.Keys.Up):
			m.moveCursor(-1)
			return m.refocus(), nil

		case key.Matches(msg, m.Keys.Down):
			m.moveCursor(1)
			return m.refocus(), nil

		case key.Matches(msg, m.Keys.Toggle) && m.isToggleField(m.Cursor):
			m.toggleCurrent()
			return m, nil

		case key.Matches(msg, m.Keys.Save):
			switch {
			case m.Cursor == fieldSave:
				return m.submit()
			case m.isToggleField(m.Cursor):
				m.toggleCurrent()
				return m, nil
			default:
				// Enter on a text field advances, like tab
				m.moveCursor(1)
				return m.refocus(), nil
			}
		}
	}

	// Route remaining input to the focused text field
	var cmd tea.Cmd
	switch m.Cursor {
	case fieldPort:
		m.PortInput, cmd = m.PortInput.Update(msg)
	case fieldPassword:
		m.PasswordInput, cmd = m.PasswordInput.Update(msg)
	}
	return m, cmd
}

// moveCursor advances the focused field, skipping the password field while
// authentication is off.
func (m *SetupModel) moveCursor(delta int) {
	for {
		m.Cursor = (m.Cursor + delta + fieldCount) % fieldCount
		if m.Cursor == fieldPassword && !m.AuthRequired {
			continue
		}
		return
	}
}

func (m SetupModel) isToggleField(field int) bool {
	return field == fieldAuth || field == fieldMetrics || field == fieldDiscovery
}

func (m *SetupModel) toggleCurrent() {
	switch m.Cursor {
	case fieldAuth:
		m.AuthRequired = !m.AuthRequired
	case fieldMetrics:
		m.Metrics = !m.Metrics
	case fieldDiscovery:
		m.Discovery = !m.Discovery
	}
	m.ValidationError = ""
}

// refocus moves text input focus to match the cursor
func (m SetupModel) refocus() SetupModel {
	m.PortInput.Blur()
	m.PasswordInput.Blur()
	switch m.Cursor {
	case fieldPort:
		m.PortInput.Focus()
	case fieldPassword:
		m.PasswordInput.Focus()
	}
	return m
}

// submit validates the form and, when valid, writes the configuration file
func (m SetupModel) submit() (tea.Model, tea.Cmd) {
	cfg, err := m.buildConfig()
	if err != nil {
		m.ValidationError = err.Error()
		return m, nil
	}

	m.ValidationError = ""
	m.Saving = true
	path := m.ConfigPath
	return m, func() tea.Msg {
		return savedMsg{err: cfg.SaveTo(path)}
	}
}

// buildConfig assembles a Config from the form state and validates it
func (m SetupModel) buildConfig() (*config.Config, error) {
	portText := strings.TrimSpace(m.PortInput.Value())
	if portText == "" {
		portText = strconv.Itoa(config.DefaultPort)
	}
	port, err := strconv.Atoi(portText)
	if err != nil {
		return nil, fmt.Errorf("port must be a number (got %q)", portText)
	}

	cfg := config.New()
	cfg.Server.Port = port
	cfg.Server.AuthRequired = m.AuthRequired
	cfg.Server.Metrics = m.Metrics
	cfg.Server.Discovery = m.Discovery
	if m.AuthRequired {
		cfg.Server.Password = m.PasswordInput.Value()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// View renders the form or the saved confirmation
func (m SetupModel) View() string {
	if m.Saved {
		return m.renderSaved()
	}
	return m.renderForm()
}

func (m SetupModel) renderForm() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString("\n")
	b.WriteString(SubtitleStyle.Render(fmt.Sprintf("%s · v%s", GitHubURL, AppVersion())))
	b.WriteString("\n\n")

	var form strings.Builder
	form.WriteString(m.renderTextField(fieldPort, "Listen port", m.PortInput))
	form.WriteString("\n")
	form.WriteString(m.renderToggleField(fieldAuth, "Authentication", m.AuthRequired))
	form.WriteString("\n")
	if m.AuthRequired {
		form.WriteString(m.renderTextField(fieldPassword, "Password", m.PasswordInput))
	} else {
		form.WriteString(DisabledStyle.Render("  Password              (authentication is off)"))
	}
	form.WriteString("\n")
	form.WriteString(m.renderToggleField(fieldMetrics, "Prometheus metrics", m.Metrics))
	form.WriteString("\n")
	form.WriteString(m.renderToggleField(fieldDiscovery, "mDNS discovery", m.Discovery))
	form.WriteString("\n\n")

	if m.Cursor == fieldSave {
		form.WriteString(FocusedButtonStyle.Render("> Save configuration"))
	} else {
		form.WriteString(ButtonStyle.Render("  Save configuration"))
	}

	b.WriteString(BoxStyle.Render(form.String()))
	b.WriteString("\n")

	if m.Saving {
		b.WriteString(SubtitleStyle.Render("  Saving..."))
		b.WriteString("\n")
	}
	if m.ValidationError != "" {
		b.WriteString(ErrorStyle.Render("✗ " + m.ValidationError))
		b.WriteString("\n")
	}

	b.WriteString(HelpStyle.Render(m.Help.View(m.Keys)))
	return b.String()
}

func (m SetupModel) renderTextField(field int, label string, input textinput.Model) string {
	if m.Cursor == field {
		return FocusedLabelStyle.Render("> "+label) + input.View()
	}
	return FieldLabelStyle.Render(label) + FieldValueStyle.Render(input.Value())
}

func (m SetupModel) renderToggleField(field int, label string, on bool) string {
	if m.Cursor == field {
		return FocusedLabelStyle.Render("> "+label) + formatToggle(on)
	}
	return FieldLabelStyle.Render(label) + formatToggle(on)
}

func (m SetupModel) renderSaved() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(AppName))
	b.WriteString("\n\n")
	b.WriteString(SuccessStyle.Render(fmt.Sprintf(
		"✓ Configuration saved\n\n  %s", m.ConfigPath)))
	b.WriteString("\n\n")
	b.WriteString(SubtitleStyle.Render("  Run 'obsws-server' to start, or 'obsws-server connect-info'\n" +
		"  to see the connect string. Press any key to exit."))
	b.WriteString("\n")

	return b.String()
}
