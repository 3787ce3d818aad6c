package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Terminal is a scrolling view over the formatted data history.
type Terminal struct {
	viewport  viewport.Model
	formatter *Formatter
	history   []DataMsg
}

func NewTerminal(width, height int) *Terminal {
	return &Terminal{
		viewport:  viewport.New(width, height),
		formatter: NewFormatter(),
	}
}

func (t *Terminal) SetSize(width, height int) {
	t.viewport.Width = width
	t.viewport.Height = height
}

func (t *Terminal) Width() int { return t.viewport.Width }

func (t *Terminal) Append(msg DataMsg) {
	t.history = append(t.history, msg)
	t.viewport.SetContent(strings.Join(t.formatter.FormatAll(t.history), "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) Clear() {
	t.history = nil
	t.viewport.SetContent("")
}

func (t *Terminal) refresh() {
	t.viewport.SetContent(strings.Join(t.formatter.FormatAll(t.history), "\n"))
	t.viewport.GotoBottom()
}

func (t *Terminal) ToggleHex() {
	t.formatter.ToggleHex()
	t.refresh()
}

func (t *Terminal) ToggleASCII() {
	t.formatter.ToggleASCII()
	t.refresh()
}

func (t *Terminal) ToggleTimestamps() {
	t.formatter.ToggleTimestamps()
	t.refresh()
}

func (t *Terminal) Update(msg tea.Msg) (viewport.Model, tea.Cmd) {
	// The viewport only needs resize events; key handling stays with the
	// top-level model.
	switch msg.(type) {
	case tea.WindowSizeMsg:
		return t.viewport.Update(msg)
	default:
		return t.viewport, nil
	}
}

func (t *Terminal) View() string {
	return t.viewport.View()
}
