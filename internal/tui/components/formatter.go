package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jackarian/serialport/internal/tui/colors"
)

// DataMsg carries one chunk of port traffic into the TUI.
type DataMsg struct {
	Timestamp time.Time
	Data      []byte
	IsTX      bool
}

// DisplayMode selects which renderings of a data chunk are shown.
type DisplayMode struct {
	ShowHex        bool
	ShowASCII      bool
	ShowTimestamps bool
}

// Formatter renders data chunks as styled terminal lines.
type Formatter struct {
	mode DisplayMode
}

func NewFormatter() *Formatter {
	return &Formatter{mode: DisplayMode{ShowHex: true, ShowASCII: true, ShowTimestamps: true}}
}

func (f *Formatter) Mode() DisplayMode { return f.mode }

func (f *Formatter) ToggleHex()        { f.mode.ShowHex = !f.mode.ShowHex }
func (f *Formatter) ToggleASCII()      { f.mode.ShowASCII = !f.mode.ShowASCII }
func (f *Formatter) ToggleTimestamps() { f.mode.ShowTimestamps = !f.mode.ShowTimestamps }

var (
	rxStyle        = lipgloss.NewStyle().Foreground(colors.Sky).Bold(true)
	txStyle        = lipgloss.NewStyle().Foreground(colors.Peach).Bold(true)
	timestampStyle = lipgloss.NewStyle().Foreground(colors.Subtext0)
)

// Format renders one chunk according to the current display mode.
func (f *Formatter) Format(msg DataMsg) string {
	indicator := rxStyle.Render("↙ RX")
	if msg.IsTX {
		indicator = txStyle.Render("↗ TX")
	}

	var parts []string
	if f.mode.ShowHex {
		parts = append(parts, fmt.Sprintf("HEX: % X", msg.Data))
	}
	if f.mode.ShowASCII {
		parts = append(parts, "ASCII: "+printableASCII(msg.Data))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	line := fmt.Sprintf("%s: %s", indicator, strings.Join(parts, "  "))
	if f.mode.ShowTimestamps {
		stamp := timestampStyle.Render("[" + msg.Timestamp.Format("15:04:05.000") + "]")
		line = stamp + " " + line
	}
	return line
}

// FormatAll re-renders a full history, used after a display mode toggle.
func (f *Formatter) FormatAll(msgs []DataMsg) []string {
	lines := make([]string, len(msgs))
	for i, msg := range msgs {
		lines[i] = f.Format(msg)
	}
	return lines
}

// printableASCII replaces non-printable bytes with dots so control sequences
// never leak into the terminal.
func printableASCII(data []byte) string {
	var b strings.Builder
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
