package serialport

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DeviceDescriptor is one raw enumeration result from the device property
// source. Every field except Path is best-effort; consumers must tolerate
// duplicates and missing metadata.
type DeviceDescriptor struct {
	Path         string
	FriendlyName string
	Description  string
	Location     string // "bus-hub.port", unresolved components default to 0
	SerialNumber string
}

// VendorDevice is one entry reported by an optional vendor chip enumerator,
// correlated to ports by serial number rather than device path.
type VendorDevice struct {
	SerialNumber string
	Description  string
	InUse        bool
}

// VendorAdvisor is a capability-gated secondary metadata source (for example
// a vendor driver's device list). Absence or failure of an advisor only
// degrades description quality; it never affects registry correctness.
type VendorAdvisor interface {
	Enumerate() ([]VendorDevice, error)
}

// Regular expressions for different types of serial devices
var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^ttyUSB\d+$`), // USB serial adapters
	regexp.MustCompile(`^ttyACM\d+$`), // USB CDC/ACM devices
	regexp.MustCompile(`^ttyS\d+$`),   // Standard serial ports
	regexp.MustCompile(`^ttyAMA\d+$`), // ARM/Raspberry Pi serial
	regexp.MustCompile(`^ttymxc\d+$`), // i.MX serial ports
	regexp.MustCompile(`^ttyO\d+$`),   // OMAP serial ports
	regexp.MustCompile(`^ttySAC\d+$`), // Samsung serial ports
	regexp.MustCompile(`^ttyTHS\d+$`), // Tegra serial ports
}

// Exclude patterns for virtual terminals, printer ports and other artifacts
// the OS reports alongside real serial devices.
var excludePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^tty\d+$`),    // Virtual terminals
	regexp.MustCompile(`^console$`),   // Console
	regexp.MustCompile(`^ptmx$`),      // Pseudo-terminal multiplexer
	regexp.MustCompile(`^pty.*$`),     // Pseudo-terminals
	regexp.MustCompile(`^lp\d+$`),     // Printer-class ports
	regexp.MustCompile(`^parport.*$`), // Parallel ports
}

// sysfsScanner queries the OS device tree for candidate serial devices.
// The roots are parameterized so tests can point it at a fixture tree.
type sysfsScanner struct {
	ttyClass string
	devDir   string
}

func newSysfsScanner() sysfsScanner {
	return sysfsScanner{ttyClass: "/sys/class/tty", devDir: "/dev"}
}

// Scan produces one descriptor per candidate serial device. Ordering is
// undefined and metadata degrades gracefully to the port name when sysfs
// attributes are unavailable.
func (s sysfsScanner) Scan() ([]DeviceDescriptor, error) {
	entries, err := os.ReadDir(s.devDir)
	if err != nil {
		return nil, err
	}

	var descs []DeviceDescriptor
	for _, entry := range entries {
		name := entry.Name()
		if matchesAny(excludePatterns, name) || !matchesAny(serialPatterns, name) {
			continue
		}

		fullPath := filepath.Join(s.devDir, name)
		if !isCharacterDevice(fullPath) {
			continue
		}

		desc := DeviceDescriptor{
			Path:         fullPath,
			FriendlyName: name,
			Description:  portDescription(name),
			Location:     "0-0.0",
		}
		s.enrichFromSysfs(&desc, name)
		descs = append(descs, desc)
	}
	return descs, nil
}

// enrichFromSysfs fills in USB metadata by walking up the sysfs device chain
// until it finds the USB device node (the directory carrying idVendor).
func (s sysfsScanner) enrichFromSysfs(desc *DeviceDescriptor, name string) {
	deviceLink := filepath.Join(s.ttyClass, name, "device")
	devicePath, err := filepath.EvalSymlinks(deviceLink)
	if err != nil {
		return
	}

	usbDir := devicePath
	for i := 0; i < 4; i++ {
		if _, err := os.Stat(filepath.Join(usbDir, "idVendor")); err == nil {
			break
		}
		usbDir = filepath.Dir(usbDir)
	}
	if _, err := os.Stat(filepath.Join(usbDir, "idVendor")); err != nil {
		return
	}

	if product := sysfsAttr(usbDir, "product"); product != "" {
		desc.FriendlyName = product
	}
	manufacturer := sysfsAttr(usbDir, "manufacturer")
	product := sysfsAttr(usbDir, "product")
	switch {
	case manufacturer != "" && product != "":
		desc.Description = manufacturer + " " + product
	case product != "":
		desc.Description = product
	}
	desc.SerialNumber = sysfsAttr(usbDir, "serial")
	desc.Location = usbLocation(sysfsAttr(usbDir, "busnum"), sysfsAttr(usbDir, "devpath"))
}

// usbLocation renders a sysfs bus number and device path as "bus-hub.port".
// Any component that cannot be resolved defaults to 0.
func usbLocation(busnum, devpath string) string {
	bus, hub, port := 0, 0, 0
	if n, err := strconv.Atoi(busnum); err == nil {
		bus = n
	}
	parts := strings.Split(devpath, ".")
	switch {
	case devpath == "":
	case len(parts) == 1:
		if n, err := strconv.Atoi(parts[0]); err == nil {
			port = n
		}
	default:
		if n, err := strconv.Atoi(parts[len(parts)-2]); err == nil {
			hub = n
		}
		if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
			port = n
		}
	}
	return strconv.Itoa(bus) + "-" + strconv.Itoa(hub) + "." + strconv.Itoa(port)
}

func sysfsAttr(dir, attr string) string {
	data, err := os.ReadFile(filepath.Join(dir, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func matchesAny(patterns []*regexp.Regexp, name string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// isCharacterDevice checks if the given path is a character device
func isCharacterDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// portDescription provides human-readable descriptions for different port types
func portDescription(name string) string {
	switch {
	case strings.HasPrefix(name, "ttyUSB"):
		return "USB Serial Port"
	case strings.HasPrefix(name, "ttyACM"):
		return "USB CDC/ACM Device"
	case strings.HasPrefix(name, "ttyAMA"):
		return "ARM Serial Port"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial Port"
	case strings.HasPrefix(name, "ttySAC"):
		return "Samsung Serial Port"
	case strings.HasPrefix(name, "ttyTHS"):
		return "Tegra Serial Port"
	case strings.HasPrefix(name, "ttyO"):
		return "OMAP Serial Port"
	case strings.HasPrefix(name, "ttyS"):
		return "Standard Serial Port"
	default:
		return "Serial Port"
	}
}
