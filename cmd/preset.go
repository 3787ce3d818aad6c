/*
Copyright © 2025 Jack Arian
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/jackarian/serialport"
	"github.com/spf13/cobra"
)

// presetCmd represents the preset command
var presetCmd = &cobra.Command{
	Use:   "preset <port> <assert|clear>",
	Short: "Preset DTR/RTS behavior for a closed port",
	Long: `Arrange for the DTR and RTS lines of a port to stay asserted (or drop)
while no process holds it open.

Some devices use DTR as a reset or bootloader-select line, so the level the
pins rest at between sessions matters. This shells out to stty, which opens
the device just long enough to apply the setting.

Examples:
  serialport preset /dev/ttyUSB0 assert
  serialport preset /dev/ttyUSB0 clear`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		var err error
		switch args[1] {
		case "assert":
			err = serialport.PresetPins(portPath)
		case "clear":
			err = serialport.PreclearPins(portPath)
		default:
			fmt.Fprintf(os.Stderr, "Error: invalid mode %q (valid: assert, clear)\n", args[1])
			os.Exit(1)
		}

		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Pin preset applied to %s\n", portPath)
	},
}

func init() {
	rootCmd.AddCommand(presetCmd)
}
