/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display the registry record for a serial port",
	Long: `Display the registry record for a serial port.

Shows the friendly name, description and physical bus location the
registry captured for the device. Names and descriptions are fixed when a
device is first seen; only the location tracks later topology changes.

Examples:
  serialport info /dev/ttyUSB0
  serialport info /dev/ttyACM0`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		details, err := registry.Describe(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting port info: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Port Information: %s\n\n", details.Path)
		fmt.Printf("  Name:        %s\n", details.FriendlyName)
		fmt.Printf("  Description: %s\n", details.Description)
		fmt.Printf("  Location:    %s\n", details.Location)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
