package serialport

import (
	"fmt"
	"os/exec"
)

// Pin presets adjust line state for a port that is not open in this process.
// The tty layer only exposes modem control through an open descriptor, so the
// presets shell out to stty, which opens the device just long enough to apply
// the setting. Asserting a pin maps to -hupcl (keep DTR/RTS raised when the
// descriptor closes); clearing maps to hupcl.

// PresetPins arranges for DTR and RTS to stay asserted on the device at path
// while it is closed.
func PresetPins(path string) error {
	return sttyPins(path, "-hupcl")
}

// PreclearPins arranges for DTR and RTS to drop on the device at path while
// it is closed.
func PreclearPins(path string) error {
	return sttyPins(path, "hupcl")
}

func sttyPins(path, flag string) error {
	stty, err := exec.LookPath("stty")
	if err != nil {
		return fmt.Errorf("stty not found in PATH: %w", err)
	}
	out, err := exec.Command(stty, "-F", path, flag).CombinedOutput()
	if err != nil {
		return fmt.Errorf("stty %s on %s: %w: %s", flag, path, err, out)
	}
	return nil
}
