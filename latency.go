package serialport

import (
	"os"
	"path/filepath"
	"strings"
)

// reduceLatency drops the FTDI latency timer to its 1ms minimum so short
// reads complete promptly instead of waiting out the adapter's 16ms default.
// Best effort: non-FTDI devices have no such attribute and unprivileged
// processes may not be allowed to write it.
func reduceLatency(path string) {
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "ttyUSB") {
		return
	}
	attr := filepath.Join("/sys/bus/usb-serial/devices", name, "latency_timer")
	os.WriteFile(attr, []byte("1"), 0o644)
}
