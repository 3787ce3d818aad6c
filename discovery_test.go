package serialport

import "testing"

func TestUSBLocation(t *testing.T) {
	tests := []struct {
		name    string
		busnum  string
		devpath string
		want    string
	}{
		{"root port", "1", "4", "1-0.4"},
		{"behind hub", "3", "1.2", "3-1.2"},
		{"deep chain keeps last two hops", "2", "1.4.3", "2-4.3"},
		{"missing devpath", "1", "", "1-0.0"},
		{"missing busnum", "", "2", "0-0.2"},
		{"garbage input", "x", "y.z", "0-0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := usbLocation(tt.busnum, tt.devpath); got != tt.want {
				t.Errorf("usbLocation(%q, %q) = %q, want %q", tt.busnum, tt.devpath, got, tt.want)
			}
		})
	}
}

func TestPortDescription(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"ttyUSB0", "USB Serial Port"},
		{"ttyACM3", "USB CDC/ACM Device"},
		{"ttyAMA0", "ARM Serial Port"},
		{"ttymxc1", "i.MX Serial Port"},
		{"ttyS0", "Standard Serial Port"},
		{"ttyTHS2", "Tegra Serial Port"},
		{"rfcomm0", "Serial Port"},
	}

	for _, tt := range tests {
		if got := portDescription(tt.name); got != tt.want {
			t.Errorf("portDescription(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSerialPatternFiltering(t *testing.T) {
	serial := []string{"ttyUSB0", "ttyACM1", "ttyS4", "ttyAMA0", "ttySAC2", "ttyTHS1"}
	for _, name := range serial {
		if !matchesAny(serialPatterns, name) {
			t.Errorf("%q should match a serial pattern", name)
		}
	}

	excluded := []string{"tty1", "console", "ptmx", "pty0", "lp0", "parport0"}
	for _, name := range excluded {
		if !matchesAny(excludePatterns, name) {
			t.Errorf("%q should match an exclude pattern", name)
		}
	}
}
