package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/jackarian/serialport"
	"github.com/jackarian/serialport/internal/tui/colors"
)

// StatusBar is the single-line footer showing connection state, line
// parameters and the current input mode.
type StatusBar struct {
	portPath string
	status   string
	err      error
	width    int
	config   *serialport.Config
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{portPath: portPath, status: "Connecting..."}
}

func (sb *StatusBar) SetWidth(width int) { sb.width = width }

func (sb *StatusBar) SetConfig(cfg *serialport.Config) { sb.config = cfg }

func (sb *StatusBar) SetConnected() {
	sb.status = "Connected"
	sb.err = nil
}

func (sb *StatusBar) SetDisconnected(err error) {
	sb.status = "Disconnected"
	sb.err = err
}

func parityLetter(p serialport.Parity) string {
	switch p {
	case serialport.ParityOdd:
		return "O"
	case serialport.ParityEven:
		return "E"
	case serialport.ParityMark:
		return "M"
	case serialport.ParitySpace:
		return "S"
	default:
		return "N"
	}
}

func stopBitsLabel(s serialport.StopBits) string {
	switch s {
	case serialport.StopBitsOnePointFive:
		return "1.5"
	case serialport.StopBitsTwo:
		return "2"
	default:
		return "1"
	}
}

func flowLabel(fc serialport.FlowControl) string {
	switch {
	case fc == serialport.FlowControlNone:
		return "none"
	case fc&(serialport.FlowControlCTS|serialport.FlowControlRTS) != 0:
		return "rts/cts"
	case fc&(serialport.FlowControlDSR|serialport.FlowControlDTR) != 0:
		return "dtr/dsr"
	case fc&(serialport.FlowControlXonXoffIn|serialport.FlowControlXonXoffOut) != 0:
		return "xon/xoff"
	default:
		return "none"
	}
}

// View renders the full-width bar: mode, port, connection dot, line settings
// and clock.
func (sb *StatusBar) View(inputMode string, connected bool, clock string) string {
	width := sb.width
	if width <= 0 {
		width = 80
	}

	modeStyle := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(colors.Blue).
		Bold(true).
		Padding(0, 1)
	if inputMode == "INSERT" {
		modeStyle = modeStyle.Background(colors.Green)
	}
	mode := modeStyle.Render(inputMode)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	var dot string
	switch {
	case sb.err != nil:
		dot = lipgloss.NewStyle().Foreground(colors.Red).Render("✗")
	case connected:
		dot = lipgloss.NewStyle().Foreground(colors.Green).Render("●")
	default:
		dot = lipgloss.NewStyle().Foreground(colors.Yellow).Render("○")
	}

	line := "serial"
	if sb.config != nil {
		line = fmt.Sprintf("%d baud %d%s%s flow:%s",
			sb.config.BaudRate,
			sb.config.DataBits,
			parityLetter(sb.config.Parity),
			stopBitsLabel(sb.config.StopBits),
			flowLabel(sb.config.FlowControl))
	}
	lineInfo := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(line)

	clockView := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(clock)

	left := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, dot)
	right := lipgloss.JoinHorizontal(lipgloss.Left, lineInfo, clockView)

	spacerWidth := width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	bar := lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(width)
	return bar.Render(lipgloss.JoinHorizontal(lipgloss.Left, left, spacer, right))
}
