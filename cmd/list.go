/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/jackarian/serialport"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals, pseudo-terminals and printer ports are excluded.`,
	Run: func(cmd *cobra.Command, args []string) {
		ports, err := registry.Ports()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing ports: %v\n", err)
			os.Exit(1)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")
		interactive, _ := cmd.Flags().GetBool("interactive")

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return
		}

		switch {
		case interactive:
			if err := runPortBrowser(filtered); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		case tableFormat:
			renderTable(filtered)
		default:
			for _, p := range filtered {
				fmt.Println(p.Path)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().BoolP("interactive", "i", false, "Browse ports in an interactive table")
}

// filterPorts narrows the port list to one device class.
func filterPorts(ports []serialport.PortDetails, filterType string) []serialport.PortDetails {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []serialport.PortDetails
	for _, p := range ports {
		name := strings.ToLower(filepath.Base(p.Path))
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, p)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") {
				filtered = append(filtered, p)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, p)
			}
		}
	}
	return filtered
}

// renderTable prints a static styled table of the port records.
func renderTable(ports []serialport.PortDetails) {
	fmt.Printf("Found %d serial port(s):\n\n", len(ports))

	pathWidth, nameWidth, descWidth, locWidth := 15, 24, 28, 10

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("240")).
		PaddingBottom(1)

	cellStyle := lipgloss.NewStyle().PaddingRight(2)

	header := fmt.Sprintf("%-*s %-*s %-*s %-*s",
		pathWidth, "Port",
		nameWidth, "Name",
		descWidth, "Description",
		locWidth, "Location")
	fmt.Println(headerStyle.Render(header))

	for _, p := range ports {
		row := fmt.Sprintf("%-*s %-*s %-*s %-*s",
			pathWidth, p.Path,
			nameWidth, p.FriendlyName,
			descWidth, p.Description,
			locWidth, p.Location)
		fmt.Println(cellStyle.Render(row))
	}
}

const (
	columnKeyPath     = "path"
	columnKeyName     = "name"
	columnKeyDesc     = "description"
	columnKeyLocation = "location"
)

type portBrowserModel struct {
	table table.Model
}

func (m portBrowserModel) Init() tea.Cmd { return nil }

func (m portBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m portBrowserModel) View() string {
	return m.table.View() + "\n  ↑/↓ navigate · q quit\n"
}

// runPortBrowser shows the port records in a scrollable interactive table.
func runPortBrowser(ports []serialport.PortDetails) error {
	rows := make([]table.Row, 0, len(ports))
	for _, p := range ports {
		rows = append(rows, table.NewRow(table.RowData{
			columnKeyPath:     p.Path,
			columnKeyName:     p.FriendlyName,
			columnKeyDesc:     p.Description,
			columnKeyLocation: p.Location,
		}))
	}

	t := table.New([]table.Column{
		table.NewColumn(columnKeyPath, "Port", 18),
		table.NewColumn(columnKeyName, "Name", 26),
		table.NewColumn(columnKeyDesc, "Description", 30),
		table.NewColumn(columnKeyLocation, "Location", 10),
	}).
		WithRows(rows).
		BorderRounded().
		Focused(true).
		WithPageSize(15)

	_, err := tea.NewProgram(portBrowserModel{table: t}).Run()
	return err
}
