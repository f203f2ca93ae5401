// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"magnetar/internal/device"
	"magnetar/internal/logger"
	"magnetar/internal/magnetar"
)

// LogEntry represents a log entry for display
type LogEntry struct {
	Timestamp time.Time
	Level     string // INF, DBG, ERR
	Message   string
	Action    string
}

// pressResultMsg carries the outcome of an asynchronous button press
type pressResultMsg struct {
	action   string
	response *device.ActionResponse
	err      error
}

// RemoteModel handles the remote control screen
type RemoteModel struct {
	remote     device.Device
	deviceInfo device.DeviceInfo

	// the player accepts one session at a time, so presses are dropped
	// while another one is in flight
	busy          string
	lastAction    string
	lastResponse  *device.ActionResponse
	actionHistory []actionHistoryEntry

	debugMode bool
	testMode  bool

	width  int
	height int

	logBuffer   []LogEntry
	maxLogLines int
}

// NewRemoteModelWithFlags creates a new remote control screen model with flags
func NewRemoteModelWithFlags(remote *magnetar.MagnetarRemote, debug, test bool) RemoteModel {
	return RemoteModel{
		remote:        remote,
		deviceInfo:    remote.GetDeviceInfo(),
		actionHistory: []actionHistoryEntry{},
		debugMode:     debug,
		testMode:      test,
		logBuffer:     []LogEntry{},
		maxLogLines:   3,
	}
}

// Update handles remote control screen messages
func (m RemoteModel) Update(msg tea.Msg) (RemoteModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case pressResultMsg:
		return m.handlePressResult(msg), nil

	case tea.KeyMsg:
		if action, ok := actionForKey(msg.String()); ok {
			return m.press(action)
		}
	}

	return m, nil
}

// View renders the remote control screen
func (m RemoteModel) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render("Magnetar CLI - Remote Control"))

	deviceInfo := successStyle.Render(m.deviceInfo.Model + " @ " + m.deviceInfo.Address)
	if m.testMode {
		deviceInfo += " " + lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C")).Render("(Test)")
	}
	sections = append(sections, deviceInfo)

	sections = append(sections, m.renderRemoteLayout())

	if status := m.renderStatusBar(); status != "" {
		sections = append(sections, status)
	}

	if m.debugMode || m.testMode {
		if logDisplay := m.renderLogDisplay(); logDisplay != "" {
			sections = append(sections, logDisplay)
		}
	}

	sections = append(sections, m.renderHelpText())

	return strings.Join(sections, "\n\n")
}

// renderRemoteLayout draws one row of buttons per key group
func (m RemoteModel) renderRemoteLayout() string {
	var rows []string
	for _, row := range remoteKeys {
		var buttons []string
		for _, binding := range row {
			style := remoteButtonStyle
			if binding.action == m.busy || (m.busy == "" && binding.action == m.lastAction) {
				style = remoteButtonActiveStyle
			}
			buttons = append(buttons, style.Render(fmt.Sprintf("%-7s", binding.label)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, buttons...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderStatusBar shows the in-flight press or the last result
func (m RemoteModel) renderStatusBar() string {
	if m.busy != "" {
		return helpStyle.Render("Sending " + m.busy + "...")
	}
	if m.lastResponse == nil {
		return ""
	}

	if !m.lastResponse.Success {
		return errorStyle.Render("✗ " + m.lastResponse.Error)
	}

	status := successStyle.Render("✓ " + m.lastAction)
	if result, ok := m.lastResponse.Data.(magnetar.PressResult); ok {
		status += fmt.Sprintf(" (%d/%d acknowledged)", result.Acks, len(result.Responses))
	}
	return status
}

// renderLogDisplay shows the most recent log lines
func (m RemoteModel) renderLogDisplay() string {
	if len(m.logBuffer) == 0 {
		return ""
	}

	start := 0
	if len(m.logBuffer) > m.maxLogLines {
		start = len(m.logBuffer) - m.maxLogLines
	}

	header := "─── LOGS ───"
	if start > 0 {
		header = "─── LOGS ↓ ───"
	}
	logLines := []string{lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Render(header)}

	for i := 0; i < m.maxLogLines; i++ {
		if start+i >= len(m.logBuffer) {
			logLines = append(logLines, "")
			continue
		}
		entry := m.logBuffer[start+i]

		levelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B"))
		switch entry.Level {
		case "ERR":
			levelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
		case "DBG":
			levelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4"))
		}

		logLine := fmt.Sprintf("%s [%s] %s",
			entry.Timestamp.Format("15:04:05"),
			levelStyle.Render(entry.Level),
			entry.Message)
		if len(logLine) > 90 {
			logLine = logLine[:87] + "..."
		}
		logLines = append(logLines, logLine)
	}

	return strings.Join(logLines, "\n")
}

func (m *RemoteModel) addLogEntry(level, message, action string) {
	m.logBuffer = append(m.logBuffer, LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Action:    action,
	})

	if len(m.logBuffer) > 20 {
		m.logBuffer = m.logBuffer[1:]
	}
}

func (m RemoteModel) renderHelpText() string {
	help := "Arrows/Enter: Navigate • P/X: Power on/off • Space/K/S: Play/Pause/Stop • R/F: Rew/Fwd"
	if m.width > 100 {
		help += " • B/N: Prev/Next • T: Subtitles • M: Mute • O: OSD • q: Disconnect"
	} else {
		help += " • q: Disconnect"
	}
	return helpStyle.Render(help)
}

// press starts an action in the background; the result arrives as a pressResultMsg
func (m RemoteModel) press(action string) (RemoteModel, tea.Cmd) {
	if m.remote == nil || m.busy != "" {
		return m, nil
	}

	actionJSON, err := device.CreateActionJSON(action)
	if err != nil {
		m.lastAction = action
		m.lastResponse = device.Failure(device.ErrorCodeInvalidRequest, "%v", err)
		return m, nil
	}

	m.busy = action
	remote := m.remote
	return m, func() tea.Msg {
		response, err := remote.Process(context.Background(), actionJSON)
		return pressResultMsg{action: action, response: response, err: err}
	}
}

func (m RemoteModel) handlePressResult(msg pressResultMsg) RemoteModel {
	response := msg.response
	if msg.err != nil {
		response = device.Failure(device.ErrorCodeTransport, "%v", msg.err)
	}

	m.busy = ""
	m.lastAction = msg.action
	m.lastResponse = response

	if m.debugMode || m.testMode {
		if response.Success {
			message := fmt.Sprintf("%s sent", msg.action)
			if m.testMode {
				message = fmt.Sprintf("Test mode: %s simulated", msg.action)
			}
			m.addLogEntry("INF", message, msg.action)
		} else {
			m.addLogEntry("ERR", fmt.Sprintf("%s failed: %s", msg.action, response.Error), msg.action)
		}
	}

	entry := actionHistoryEntry{
		Timestamp: time.Now(),
		Action:    msg.action,
		Success:   response.Success,
		Error:     response.Error,
	}
	if result, ok := response.Data.(magnetar.PressResult); ok {
		entry.Response = strings.Join(result.Responses, "|")
	}
	m.actionHistory = append([]actionHistoryEntry{entry}, m.actionHistory...)
	if len(m.actionHistory) > 50 {
		m.actionHistory = m.actionHistory[:50]
	}

	log := logger.GetLogger("cli")
	log.Info().
		Str("action", msg.action).
		Bool("success", response.Success).
		Msg("Remote button pressed")

	return m
}

// History returns the most recent presses, newest first
func (m RemoteModel) History() []actionHistoryEntry {
	return m.actionHistory
}
