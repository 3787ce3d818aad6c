/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jackarian/serialport"
	"github.com/jackarian/serialport/internal/tui/components"
	"github.com/jackarian/serialport/internal/tui/keys"
	"github.com/jackarian/serialport/internal/tui/models"
	"github.com/jackarian/serialport/internal/tui/styles"
	"github.com/spf13/cobra"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <port>",
	Short: "Interactive serial terminal",
	Long: `Open an interactive terminal session on a serial port.

Incoming data streams in the main view; press 'i' to enter insert mode and
type a message, Enter sends it. Tab toggles between ASCII and hex send
encoding, and the arrow keys browse the send history.

Example usage:
  serialport connect /dev/ttyUSB0
  serialport connect /dev/ttyUSB0 --baud 9600
  serialport connect /dev/ttyUSB0 --flow-control rtscts`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		baudRate, _ := cmd.Flags().GetInt("baud")
		flowControl, _ := cmd.Flags().GetString("flow-control")

		opts := []serialport.Option{
			serialport.WithBaudRate(baudRate),
			serialport.WithTimeouts(serialport.TimeoutSemiBlocking, 500*time.Millisecond, 0),
		}
		if fc, ok := parseFlowControl(flowControl); ok {
			opts = append(opts, serialport.WithFlowControl(fc))
		}

		if err := runConnectTUI(portPath, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	connectCmd.Flags().StringP("flow-control", "f", "none", "Flow control: none, rtscts, dtrdsr, xonxoff")
}

// connectModel is the Bubble Tea model for the connect command.
type connectModel struct {
	*models.Session
	terminal  *components.Terminal
	statusBar *components.StatusBar
	input     *components.Input
	help      help.Model
	keys      keys.ConnectKeys
}

func runConnectTUI(portPath string, opts ...serialport.Option) error {
	config := serialport.DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	session := models.NewSession(portPath)
	m := connectModel{
		Session:   session,
		terminal:  components.NewTerminal(80, 20),
		statusBar: components.NewStatusBar(portPath),
		input:     components.NewInput(),
		help:      help.New(),
		keys:      keys.NewConnectKeys(),
	}
	m.statusBar.SetConfig(&config)

	p := tea.NewProgram(&m, tea.WithAltScreen())

	go startReader(session, p, opts...)

	_, err := p.Run()
	m.Cancel()
	return err
}

func (m *connectModel) Init() tea.Cmd {
	return nil
}

// send encodes the input line and writes it to the port, echoing the
// transmitted bytes into the terminal view.
func (m *connectModel) send() {
	port := m.Port()
	if port == nil {
		return
	}
	payload, err := m.input.Payload()
	if err != nil || len(payload) == 0 {
		return
	}

	if _, err := port.Write(payload); err != nil {
		m.SetErr(err)
		m.statusBar.SetDisconnected(err)
		return
	}
	m.terminal.Append(components.DataMsg{Timestamp: time.Now(), Data: payload, IsTX: true})
	m.input.Remember(m.input.Value())
	m.input.SetValue("")
}

func (m *connectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		// One line for the status bar, three for the bordered input.
		m.terminal.SetSize(msg.Width, msg.Height-4)
		m.statusBar.SetWidth(msg.Width)
		m.input.SetWidth(msg.Width)
		m.SetReady(true)

		var cmd tea.Cmd
		_, cmd = m.terminal.Update(msg)
		cmds = append(cmds, cmd)

	case models.ConnectionStatusMsg:
		m.SetConnected(msg.Connected)
		if msg.Error != nil {
			m.SetErr(msg.Error)
			m.statusBar.SetDisconnected(msg.Error)
		} else {
			m.statusBar.SetConnected()
		}

	case components.DataMsg:
		if !m.Ready() {
			m.terminal.SetSize(80, 20)
			m.SetReady(true)
		}
		m.terminal.Append(msg)

	case tea.KeyMsg:
		if m.InputMode() == models.InputModeInsert {
			switch {
			case key.Matches(msg, m.keys.Escape):
				m.SetInputMode(models.InputModeNormal)
				m.input.Blur()
			case key.Matches(msg, m.keys.Enter):
				m.send()
			case key.Matches(msg, m.keys.ToggleSendMode):
				m.input.ToggleSendMode()
			case key.Matches(msg, m.keys.HistoryUp):
				m.input.HistoryBack()
			case key.Matches(msg, m.keys.HistoryDown):
				m.input.HistoryForward()
			default:
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
			}
			return m, tea.Batch(cmds...)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cleanup()
			return m, tea.Quit

		case key.Matches(msg, m.keys.InsertMode):
			m.SetInputMode(models.InputModeInsert)
			m.input.Focus()

		case key.Matches(msg, m.keys.Clear):
			m.terminal.Clear()

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll

		case key.Matches(msg, m.keys.ToggleHex):
			m.terminal.ToggleHex()

		case key.Matches(msg, m.keys.ToggleASCII):
			m.terminal.ToggleASCII()

		case key.Matches(msg, m.keys.ToggleTimestamps):
			m.terminal.ToggleTimestamps()
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *connectModel) View() string {
	content := "Initializing..."
	if m.Ready() {
		content = m.terminal.View()
	}

	inputMode := m.InputMode()
	statusBar := m.statusBar.View(inputMode.String(), m.Connected(), time.Now().Format("15:04:05"))
	contentWithBorder := styles.ContentBorderStyle.Render(content)
	inputView := m.input.View(inputMode == models.InputModeInsert)

	if m.help.ShowAll {
		helpStyle := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2).
			Margin(1, 0)
		return lipgloss.JoinVertical(
			lipgloss.Left,
			contentWithBorder,
			helpStyle.Render(m.help.View(m.keys)),
			inputView,
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		inputView,
		statusBar,
	)
}
