/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"errors"
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

// listenCmd represents the listen command
var listenCmd = &cobra.Command{
	Use:   "listen <port>",
	Short: "Listen for data on a serial port with real-time display",
	Long: `Listen for incoming data on a serial port with a real-time TUI display.

This command opens the specified serial port and displays incoming data in
real-time. Features include:
- Real-time data streaming with timestamps
- ASCII and hex display modes
- Connection status indicators
- Configurable baud rate and flow control

Example usage:
  serialport listen /dev/ttyUSB0
  serialport listen /dev/ttyUSB0 --baud 9600
  serialport listen /dev/ttyUSB0 --flow-control rtscts`,
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

		if err := runListenTUI(portPath, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(listenCmd)

	listenCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	listenCmd.Flags().StringP("flow-control", "f", "none", "Flow control: none, rtscts, dtrdsr, xonxoff")
}

// listenModel is the Bubble Tea model for the listen command.
type listenModel struct {
	*models.Session
	terminal  *components.Terminal
	statusBar *components.StatusBar
	help      help.Model
	keys      keys.TerminalKeys
}

// startReader opens the port and pumps received chunks into the program.
func startReader(session *models.Session, p *tea.Program, opts ...serialport.Option) {
	port, err := registry.Open(session.PortPath(), opts...)
	if err != nil {
		p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
		return
	}
	session.SetPort(port)
	p.Send(models.ConnectionStatusMsg{Connected: true})

	go func() {
		defer port.Close()

		buffer := make([]byte, 4096)
		for {
			if session.Context().Err() != nil {
				return
			}
			n, err := port.Read(buffer)
			if err != nil {
				if session.Context().Err() != nil || errors.Is(err, serialport.ErrPortClosed) {
					return
				}
				p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buffer[:n])
				p.Send(components.DataMsg{Timestamp: time.Now(), Data: data})
			}
		}
	}()
}

func runListenTUI(portPath string, opts ...serialport.Option) error {
	config := serialport.DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	session := models.NewSession(portPath)
	m := listenModel{
		Session:   session,
		terminal:  components.NewTerminal(80, 20),
		statusBar: components.NewStatusBar(portPath),
		help:      help.New(),
		keys:      keys.NewTerminalKeys(),
	}
	m.statusBar.SetConfig(&config)

	p := tea.NewProgram(&m, tea.WithAltScreen())

	go startReader(session, p, opts...)

	_, err := p.Run()
	m.Cancel()
	return err
}

func (m *listenModel) Init() tea.Cmd {
	return nil
}

func (m *listenModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.terminal.SetSize(msg.Width, msg.Height-1)
		m.statusBar.SetWidth(msg.Width)
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
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.Cleanup()
			return m, tea.Quit

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

func (m *listenModel) View() string {
	content := "Initializing..."
	if m.Ready() {
		content = m.terminal.View()
	}

	statusBar := m.statusBar.View("NORMAL", m.Connected(), time.Now().Format("15:04:05"))
	contentWithBorder := styles.ContentBorderStyle.Render(content)

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
			statusBar,
		)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		contentWithBorder,
		statusBar,
	)
}
