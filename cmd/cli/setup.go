package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbletea"
	"magnetar/internal/cli"
	"magnetar/internal/hub"
	"magnetar/internal/logger"
	"magnetar/internal/magnetar"
)

// Setup screen input fields
type setupField int

const (
	setupFieldHost setupField = iota
	setupFieldPort
	setupFieldBaud
	setupFieldConnect
	setupFieldSave
)

var setupFields = []setupField{setupFieldHost, setupFieldPort, setupFieldBaud, setupFieldConnect, setupFieldSave}

// textInput is a single-line editable value with a cursor
type textInput struct {
	value  string
	cursor int
}

func newTextInput(value string) textInput {
	return textInput{value: value, cursor: len(value)}
}

func (t *textInput) insert(s string) {
	t.value = insertText(t.value, t.cursor, s)
	t.cursor += len(s)
}

func (t *textInput) backspace() {
	if t.cursor > 0 {
		t.value = deleteCharAt(t.value, t.cursor-1)
		t.cursor--
	}
}

func (t *textInput) delete() {
	t.value = deleteCharAt(t.value, t.cursor)
}

func (t *textInput) left() {
	if t.cursor > 0 {
		t.cursor--
	}
}

func (t *textInput) right() {
	if t.cursor < len(t.value) {
		t.cursor++
	}
}

// pairResultMsg carries the outcome of an asynchronous pairing probe
type pairResultMsg struct {
	params magnetar.ConnectionParameters
	err    error
}

// SetupModel handles the pairing screen
type SetupModel struct {
	focusedField setupField

	host textInput
	port textInput
	baud textInput

	pairing        bool
	pairError      string
	successMessage string

	remote *magnetar.MagnetarRemote
	params magnetar.ConnectionParameters

	debugMode  bool
	testMode   bool
	configPath string
	deviceID   string
}

// NewSetupModel creates a new setup screen model
func NewSetupModel() SetupModel {
	return NewSetupModelWithFlags(false, false)
}

// NewSetupModelWithFlags creates a setup screen pre-filled with the factory defaults
func NewSetupModelWithFlags(debug, test bool) SetupModel {
	return SetupModel{
		focusedField: setupFieldHost,
		host:         newTextInput(magnetar.DefaultHost),
		port:         newTextInput(strconv.Itoa(magnetar.DefaultPort)),
		baud:         newTextInput(strconv.Itoa(magnetar.DefaultBaudRate)),
		debugMode:    debug,
		testMode:     test,
		configPath:   "hub.yml",
		deviceID:     "living_room_player",
	}
}

// NewSetupModelWithConfig creates a setup screen that saves into configPath
func NewSetupModelWithConfig(debug, test bool, configPath string) SetupModel {
	model := NewSetupModelWithFlags(debug, test)
	model.configPath = configPath
	return model
}

// Update handles setup screen messages
func (m SetupModel) Update(msg tea.Msg) (SetupModel, tea.Cmd) {
	switch msg := msg.(type) {
	case pairResultMsg:
		return m.handlePairResult(msg), nil

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "down":
			return m.moveFocus(false), nil
		case "shift+tab", "up":
			return m.moveFocus(true), nil
		case "enter":
			switch m.focusedField {
			case setupFieldConnect:
				return m.handleConnect()
			case setupFieldSave:
				return m.handleSave(), nil
			default:
				return m.moveFocus(false), nil
			}
		}

		if input := m.focusedInput(); input != nil {
			switch msg.String() {
			case "left":
				input.left()
			case "right":
				input.right()
			case "backspace":
				input.backspace()
			case "delete":
				input.delete()
			case "home":
				input.cursor = 0
			case "end":
				input.cursor = len(input.value)
			default:
				if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
					input.insert(string(msg.Runes))
				}
			}
		}
	}

	return m, nil
}

// View renders the setup screen
func (m SetupModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Magnetar CLI - Pair Player"))
	b.WriteString("\n\n")

	m.renderInput(&b, "Host:", m.host, setupFieldHost)
	m.renderInput(&b, "Port:", m.port, setupFieldPort)
	m.renderInput(&b, "Baud rate:", m.baud, setupFieldBaud)

	connectStyle := buttonStyle
	if m.focusedField == setupFieldConnect {
		connectStyle = buttonActiveStyle
	}
	connectText := "Pair"
	if m.pairing {
		connectText = "Pairing..."
	}
	b.WriteString(connectStyle.Render(connectText))

	saveStyle := buttonStyle
	if m.focusedField == setupFieldSave {
		saveStyle = buttonActiveStyle
	}
	b.WriteString(saveStyle.Render("Save to " + m.configPath))
	b.WriteString("\n\n")

	if m.pairError != "" {
		b.WriteString(errorStyle.Render("Error: " + m.pairError))
		b.WriteString("\n\n")
	}
	if m.successMessage != "" {
		b.WriteString(successStyle.Render(m.successMessage))
		b.WriteString("\n\n")
	}

	b.WriteString(helpStyle.Render("↑/↓/Tab: Navigate • Enter: Action • ←/→: Move cursor • Home/End: Start/End • q: Quit"))

	return b.String()
}

func (m SetupModel) renderInput(b *strings.Builder, label string, input textInput, field setupField) {
	b.WriteString(subtitleStyle.Render(label))
	b.WriteString("\n")
	style := inputStyle
	focused := m.focusedField == field
	if focused {
		style = inputFocusedStyle
	}
	b.WriteString(style.Render(renderTextWithCursor(input.value, input.cursor, focused)))
	b.WriteString("\n\n")
}

func (m *SetupModel) focusedInput() *textInput {
	switch m.focusedField {
	case setupFieldHost:
		return &m.host
	case setupFieldPort:
		return &m.port
	case setupFieldBaud:
		return &m.baud
	default:
		return nil
	}
}

func (m SetupModel) moveFocus(reverse bool) SetupModel {
	index := 0
	for i, field := range setupFields {
		if field == m.focusedField {
			index = i
			break
		}
	}

	if reverse {
		index = (index - 1 + len(setupFields)) % len(setupFields)
	} else {
		index = (index + 1) % len(setupFields)
	}

	m.focusedField = setupFields[index]
	return m
}

// Parameters parses the form into connection parameters
func (m SetupModel) Parameters() (magnetar.ConnectionParameters, error) {
	host := strings.TrimSpace(m.host.value)

	port, err := strconv.Atoi(strings.TrimSpace(m.port.value))
	if err != nil {
		return magnetar.ConnectionParameters{}, fmt.Errorf("port must be a number")
	}

	baud, err := strconv.Atoi(strings.TrimSpace(m.baud.value))
	if err != nil {
		return magnetar.ConnectionParameters{}, fmt.Errorf("baud rate must be a number")
	}

	params := magnetar.ConnectionParameters{Host: host, Port: port, BaudRate: baud}
	if err := params.Validate(); err != nil {
		return magnetar.ConnectionParameters{}, err
	}
	return params, nil
}

// handleConnect starts the pairing probe in the background
func (m SetupModel) handleConnect() (SetupModel, tea.Cmd) {
	if m.pairing {
		return m, nil
	}

	params, err := m.Parameters()
	if err != nil {
		m.pairError = err.Error()
		return m, nil
	}

	m.pairing = true
	m.pairError = ""
	m.successMessage = ""

	client := magnetar.NewMagnetarClient(params, m.options()...)
	return m, func() tea.Msg {
		return pairResultMsg{params: params, err: magnetar.Pair(context.Background(), client)}
	}
}

func (m SetupModel) handlePairResult(msg pairResultMsg) SetupModel {
	m.pairing = false

	log := logger.GetLogger("cli")
	if msg.err != nil {
		m.pairError = describePairError(msg.err)
		log.Warn().
			Err(msg.err).
			Str("address", msg.params.URL()).
			Msg("Pairing failed")
		return m
	}

	m.params = msg.params
	m.remote = magnetar.NewMagnetarRemote(m.deviceID, msg.params, nil, m.options()...)

	log.Info().
		Str("address", msg.params.URL()).
		Msg("Player paired successfully")
	return m
}

// handleSave writes the form to the hub config
func (m SetupModel) handleSave() SetupModel {
	params, err := m.Parameters()
	if err != nil {
		m.pairError = err.Error()
		return m
	}

	device := hub.DeviceConfig{
		ID:       m.deviceID,
		Name:     "Magnetar",
		Host:     params.Host,
		Port:     params.Port,
		BaudRate: params.BaudRate,
	}
	id, err := cli.NewConfigManager(m.configPath).SavePairedDevice(device)
	if err != nil {
		m.pairError = err.Error()
		return m
	}

	m.pairError = ""
	m.successMessage = fmt.Sprintf("Saved %s to %s", id, m.configPath)
	return m
}

func (m SetupModel) options() []magnetar.Option {
	return []magnetar.Option{
		magnetar.WithDebug(m.debugMode),
		magnetar.WithTestMode(m.testMode),
	}
}

// describePairError turns a pairing failure into a short user message
func describePairError(err error) string {
	var mismatch *magnetar.AckMismatchError
	if errors.As(err, &mismatch) {
		return fmt.Sprintf("Cannot connect: player answered %q instead of an acknowledgement", mismatch.Response)
	}
	var connErr *magnetar.ConnectionError
	if errors.As(err, &connErr) {
		return fmt.Sprintf("Cannot connect to %s", connErr.Address)
	}
	return "Cannot connect: " + err.Error()
}

// IsConnected returns true once pairing succeeded
func (m SetupModel) IsConnected() bool {
	return m.remote != nil
}

// GetRemote returns the paired remote
func (m SetupModel) GetRemote() *magnetar.MagnetarRemote {
	return m.remote
}

// GetDebugMode returns the debug mode flag
func (m SetupModel) GetDebugMode() bool {
	return m.debugMode
}

// GetTestMode returns the test mode flag
func (m SetupModel) GetTestMode() bool {
	return m.testMode
}
