/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackarian/serialport"
	"github.com/spf13/cobra"
)

var watchEvents []string

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <port>",
	Short: "Watch typed port events",
	Long: `Watch a serial port for typed events and report them as they occur.

Arms the selected event classes and blocks on the port's event monitor.
Line errors (framing, parity, overrun, break) are always reported.
Press Ctrl+C to stop.

Examples:
  serialport watch /dev/ttyUSB0
  serialport watch /dev/ttyUSB0 --events data,cts
  serialport watch /dev/ttyUSB0 --events dsr,ring,carrier

Available events: data, written, cts, dsr, ring, carrier`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		mask, err := parseEventMask(watchEvents)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing events: %v\n", err)
			os.Exit(1)
		}

		port, err := registry.Open(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()

		if err := port.ArmEvents(mask); err != nil {
			fmt.Fprintf(os.Stderr, "Error arming events: %v\n", err)
			os.Exit(1)
		}
		port.SetListening(true)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Println("\nStopping watch...")
			port.SetListening(false)
		}()

		fmt.Printf("Watching events on %s (events: %s)\n", portPath, strings.Join(watchEvents, ", "))
		fmt.Println("Press Ctrl+C to stop")

		for port.Listening() {
			ev := port.WaitForEvent()
			if ev&serialport.EventPortDisconnected != 0 {
				fmt.Printf("[%s] Port disconnected\n", time.Now().Format("15:04:05"))
				return
			}
			if ev == serialport.EventTimedOut {
				continue
			}
			printEvents(ev)
		}
	},
}

func parseEventMask(names []string) (serialport.EventFlag, error) {
	if len(names) == 0 {
		return serialport.EventDataAvailable | serialport.EventCTS |
			serialport.EventDSR | serialport.EventRing | serialport.EventCarrierDetect, nil
	}

	var mask serialport.EventFlag
	for _, name := range names {
		switch strings.ToLower(name) {
		case "data":
			mask |= serialport.EventDataAvailable
		case "written":
			mask |= serialport.EventDataWritten
		case "cts":
			mask |= serialport.EventCTS
		case "dsr":
			mask |= serialport.EventDSR
		case "ring":
			mask |= serialport.EventRing
		case "carrier":
			mask |= serialport.EventCarrierDetect
		default:
			return 0, fmt.Errorf("unknown event: %s (valid: data, written, cts, dsr, ring, carrier)", name)
		}
	}
	return mask, nil
}

var eventLabels = []struct {
	flag  serialport.EventFlag
	label string
}{
	{serialport.EventDataAvailable, "data available"},
	{serialport.EventDataWritten, "transmit drained"},
	{serialport.EventBreak, "break"},
	{serialport.EventFramingError, "framing error"},
	{serialport.EventFirmwareOverrun, "hardware overrun"},
	{serialport.EventSoftwareOverrun, "buffer overrun"},
	{serialport.EventParityError, "parity error"},
	{serialport.EventCTS, "CTS raised"},
	{serialport.EventDSR, "DSR raised"},
	{serialport.EventRing, "ring"},
	{serialport.EventCarrierDetect, "carrier detected"},
}

func printEvents(ev serialport.EventFlag) {
	timestamp := time.Now().Format("15:04:05")
	for _, e := range eventLabels {
		if ev&e.flag != 0 {
			fmt.Printf("[%s] %s\n", timestamp, e.label)
		}
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringSliceVarP(&watchEvents, "events", "e", []string{"data", "cts", "dsr", "ring", "carrier"},
		"Events to watch (comma-separated: data,written,cts,dsr,ring,carrier)")
}
