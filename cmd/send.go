/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jackarian/serialport"
	"github.com/spf13/cobra"
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Send data to a serial port",
	Long: `Send data to a serial port with configurable options.

This command sends data to the specified serial port. Data can be provided as:
- Command line argument: send "Hello World" /dev/ttyUSB0
- From stdin (pipe): echo "test data" | serialport send /dev/ttyUSB0
- Interactive mode: serialport send /dev/ttyUSB0 (prompts for input)

Example usage:
  serialport send "Hello World" /dev/ttyUSB0
  serialport send "AT+GMR" /dev/ttyUSB0 --newline
  echo "test" | serialport send /dev/ttyUSB0
  serialport send "0206000300000099" /dev/ttyUSB0 --hex`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		var data string
		var portPath string

		if len(args) == 1 {
			portPath = args[0]
			stat, err := os.Stdin.Stat()
			if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
				data = promptForData()
			} else {
				stdinData, err := io.ReadAll(os.Stdin)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error reading from stdin: %v\n", err)
					os.Exit(1)
				}
				data = strings.TrimRight(string(stdinData), "\r\n")
			}
		} else {
			data = args[0]
			portPath = args[1]
		}

		baudRate, _ := cmd.Flags().GetInt("baud")
		flowControl, _ := cmd.Flags().GetString("flow-control")
		addNewline, _ := cmd.Flags().GetBool("newline")
		hexMode, _ := cmd.Flags().GetBool("hex")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		opts := []serialport.Option{
			serialport.WithBaudRate(baudRate),
			serialport.WithTimeouts(serialport.TimeoutSemiBlocking, 0, timeout),
		}
		if fc, ok := parseFlowControl(flowControl); ok {
			opts = append(opts, serialport.WithFlowControl(fc))
		}

		payload := []byte(data)
		if hexMode {
			decoded, err := parseHexString(data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid hex data: %v\n", err)
				os.Exit(1)
			}
			payload = decoded
		} else if addNewline {
			payload = append(payload, '\n')
		}

		if err := sendData(portPath, payload, opts...); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().IntP("baud", "b", 115200, "Baud rate")
	sendCmd.Flags().StringP("flow-control", "f", "none", "Flow control: none, rtscts, dtrdsr, xonxoff")
	sendCmd.Flags().BoolP("newline", "n", false, "Add newline character to the end of data")
	sendCmd.Flags().BoolP("hex", "x", false, "Interpret data as hexadecimal (e.g., '48656c6c6f' for 'Hello')")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "Write timeout")
}

// parseFlowControl maps a flag value to a flow-control mask.
func parseFlowControl(name string) (serialport.FlowControl, bool) {
	switch strings.ToLower(name) {
	case "rtscts":
		return serialport.FlowControlCTS | serialport.FlowControlRTS, true
	case "dtrdsr":
		return serialport.FlowControlDSR | serialport.FlowControlDTR, true
	case "xonxoff":
		return serialport.FlowControlXonXoffIn | serialport.FlowControlXonXoffOut, true
	default:
		return serialport.FlowControlNone, false
	}
}

func promptForData() string {
	promptStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99"))

	fmt.Print(promptStyle.Render("Enter data to send: "))

	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		return scanner.Text()
	}
	return ""
}

func parseHexString(hexStr string) ([]byte, error) {
	hexStr = strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(hexStr)
	if len(hexStr)%2 != 0 {
		return nil, fmt.Errorf("hex string must have even length")
	}
	return hex.DecodeString(hexStr)
}

func sendData(portPath string, payload []byte, opts ...serialport.Option) error {
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Bold(true)

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("40")).
		Bold(true)

	fmt.Printf("%s Opening %s...\n", infoStyle.Render("⚡"), portPath)

	port, err := registry.Open(portPath, opts...)
	if err != nil {
		return err
	}
	defer port.Close()

	fmt.Printf("%s Connected successfully\n", successStyle.Render("✓"))
	fmt.Printf("%s Sending %d bytes...\n", infoStyle.Render("📤"), len(payload))

	n, err := port.Write(payload)
	if err != nil {
		return fmt.Errorf("failed to send data: %w", err)
	}
	if n < len(payload) {
		return fmt.Errorf("short write: sent %d of %d bytes (flow control?)", n, len(payload))
	}

	fmt.Printf("%s Successfully sent %d bytes\n", successStyle.Render("✓"), n)

	preview := string(payload)
	if len(preview) > 50 {
		preview = preview[:50] + "..."
	}
	preview = strings.Map(func(r rune) rune {
		if r < 32 || r > 126 {
			return '·'
		}
		return r
	}, preview)
	fmt.Printf("%s Data: %s\n", infoStyle.Render("📋"), preview)

	return nil
}
