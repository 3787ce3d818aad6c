package components

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jackarian/serialport/internal/tui/colors"
	"github.com/jackarian/serialport/internal/tui/styles"
)

// SendMode selects how the input line is encoded before transmission.
type SendMode int

const (
	SendModeASCII SendMode = iota
	SendModeHex
)

func (s SendMode) String() string {
	if s == SendModeHex {
		return "HEX"
	}
	return "ASCII"
}

// Input is the send line of the interactive terminal: a text field with an
// encoding mode and a small command history.
type Input struct {
	textInput    textinput.Model
	sendMode     SendMode
	history      []string
	historyIndex int
	pending      string
	width        int
}

func NewInput() *Input {
	ti := textinput.New()
	ti.Placeholder = "Type message and press Enter to send..."
	ti.CharLimit = 256
	ti.Prompt = ""
	return &Input{
		textInput:    ti,
		sendMode:     SendModeASCII,
		historyIndex: -1,
	}
}

func (i *Input) SetWidth(width int) {
	i.width = width
	usable := width - 6
	if usable < 20 {
		usable = 20
	}
	i.textInput.Width = usable
}

func (i *Input) Focus() { i.textInput.Focus() }

func (i *Input) Blur() { i.textInput.Blur() }

func (i *Input) Value() string { return i.textInput.Value() }

func (i *Input) SetValue(v string) { i.textInput.SetValue(v) }

func (i *Input) Mode() SendMode { return i.sendMode }

func (i *Input) ToggleSendMode() {
	if i.sendMode == SendModeASCII {
		i.sendMode = SendModeHex
		i.textInput.Placeholder = "Enter hex (e.g. 48656C6C6F or 48 65 6C 6C 6F)..."
	} else {
		i.sendMode = SendModeASCII
		i.textInput.Placeholder = "Type message and press Enter to send..."
	}
}

// Payload encodes the current line according to the send mode.
func (i *Input) Payload() ([]byte, error) {
	value := i.textInput.Value()
	if i.sendMode == SendModeASCII {
		return []byte(value), nil
	}
	cleaned := strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(value)
	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}

func (i *Input) Remember(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(i.history) > 0 && i.history[len(i.history)-1] == line {
		i.historyIndex = -1
		return
	}
	i.history = append(i.history, line)
	if len(i.history) > 100 {
		i.history = i.history[1:]
	}
	i.historyIndex = -1
	i.pending = ""
}

func (i *Input) HistoryBack() {
	if len(i.history) == 0 {
		return
	}
	if i.historyIndex == -1 {
		i.pending = i.textInput.Value()
		i.historyIndex = len(i.history) - 1
	} else if i.historyIndex > 0 {
		i.historyIndex--
	}
	i.textInput.SetValue(i.history[i.historyIndex])
}

func (i *Input) HistoryForward() {
	if len(i.history) == 0 || i.historyIndex == -1 {
		return
	}
	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.textInput.SetValue(i.history[i.historyIndex])
	} else {
		i.historyIndex = -1
		i.textInput.SetValue(i.pending)
		i.pending = ""
	}
}

func (i *Input) Update(msg tea.Msg) (*Input, tea.Cmd) {
	var cmd tea.Cmd
	i.textInput, cmd = i.textInput.Update(msg)
	return i, cmd
}

// View renders the send line with a mode-colored prompt; in normal mode it
// shows a hint instead of the text field.
func (i *Input) View(insertMode bool) string {
	promptSymbol := ">"
	promptColor := colors.Green
	if i.sendMode == SendModeHex {
		promptSymbol = "#"
		promptColor = colors.Yellow
	}
	prompt := lipgloss.NewStyle().Foreground(promptColor).Bold(true).Render(promptSymbol)

	var content string
	if insertMode {
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", i.textInput.View())
	} else {
		hint := lipgloss.NewStyle().
			Foreground(colors.Overlay0).
			Render("Press 'i' to enter insert mode")
		content = lipgloss.JoinHorizontal(lipgloss.Left, prompt, " ", hint)
	}

	width := i.width - 4
	if width < 10 {
		width = 10
	}
	style := styles.InputStyle.Width(width).AlignHorizontal(lipgloss.Left)
	if insertMode {
		style = style.BorderForeground(colors.Green)
	}
	return style.Render(content)
}
