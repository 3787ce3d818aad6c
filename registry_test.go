package serialport

import (
	"errors"
	"testing"

	"github.com/creack/pty"
	"github.com/google/go-cmp/cmp"
)

// scanStub is a swappable device property source for registry tests.
type scanStub struct {
	descs []DeviceDescriptor
	err   error
}

func (s *scanStub) scan() ([]DeviceDescriptor, error) {
	return s.descs, s.err
}

func testDescriptor(path, name string) DeviceDescriptor {
	return DeviceDescriptor{
		Path:         path,
		FriendlyName: name,
		Description:  "USB Serial Port",
		Location:     "1-0.2",
	}
}

func TestRefreshMergesNewDevices(t *testing.T) {
	stub := &scanStub{descs: []DeviceDescriptor{
		testDescriptor("/dev/ttyUSB1", "Adapter B"),
		testDescriptor("/dev/ttyUSB0", "Adapter A"),
	}}
	r := NewRegistry(withScanSource(stub.scan))

	ports, err := r.Ports()
	if err != nil {
		t.Fatalf("Ports failed: %v", err)
	}

	want := []PortDetails{
		{Path: "/dev/ttyUSB0", FriendlyName: "Adapter A", Description: "USB Serial Port", Location: "1-0.2"},
		{Path: "/dev/ttyUSB1", FriendlyName: "Adapter B", Description: "USB Serial Port", Location: "1-0.2"},
	}
	if diff := cmp.Diff(want, ports); diff != "" {
		t.Errorf("port list mismatch (-want +got):\n%s", diff)
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	stub := &scanStub{descs: []DeviceDescriptor{
		testDescriptor("/dev/ttyUSB0", "Adapter A"),
		testDescriptor("/dev/ttyS0", "Serial"),
	}}
	r := NewRegistry(withScanSource(stub.scan))

	first, err := r.Ports()
	if err != nil {
		t.Fatalf("first Ports failed: %v", err)
	}
	second, err := r.Ports()
	if err != nil {
		t.Fatalf("second Ports failed: %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("two passes over stable hardware differ (-first +second):\n%s", diff)
	}
}

func TestRefreshKeepsFirstSightMetadata(t *testing.T) {
	stub := &scanStub{descs: []DeviceDescriptor{
		testDescriptor("/dev/ttyUSB0", "Original Name"),
	}}
	r := NewRegistry(withScanSource(stub.scan))

	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// Same device reappears with different display text and a new location.
	stub.descs = []DeviceDescriptor{{
		Path:         "/dev/ttyUSB0",
		FriendlyName: "Renamed",
		Description:  "Different Description",
		Location:     "2-1.4",
	}}
	if err := r.Refresh(); err != nil {
		t.Fatalf("second Refresh failed: %v", err)
	}

	details, err := r.Describe("/dev/ttyUSB0")
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if details.FriendlyName != "Original Name" {
		t.Errorf("FriendlyName = %q, want first-sight value", details.FriendlyName)
	}
	if details.Description != "USB Serial Port" {
		t.Errorf("Description = %q, want first-sight value", details.Description)
	}
	if details.Location != "2-1.4" {
		t.Errorf("Location = %q, want updated value", details.Location)
	}
}

func TestRefreshEvictsMissingDevices(t *testing.T) {
	stub := &scanStub{descs: []DeviceDescriptor{
		testDescriptor("/dev/ttyUSB0", "Adapter A"),
		testDescriptor("/dev/ttyUSB1", "Adapter B"),
	}}
	r := NewRegistry(withScanSource(stub.scan))

	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	stub.descs = stub.descs[:1]
	ports, err := r.Ports()
	if err != nil {
		t.Fatalf("Ports failed: %v", err)
	}
	if len(ports) != 1 || ports[0].Path != "/dev/ttyUSB0" {
		t.Errorf("expected only /dev/ttyUSB0 to remain, got %+v", ports)
	}

	if _, err := r.Describe("/dev/ttyUSB1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Describe after eviction = %v, want ErrDeviceNotFound", err)
	}
}

func TestRefreshPreservesOpenRecords(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	stub := &scanStub{descs: []DeviceDescriptor{
		testDescriptor(tty.Name(), "Looped Adapter"),
	}}
	r := NewRegistry(withScanSource(stub.scan))

	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	port, err := r.Open(tty.Name())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	// Device vanishes from enumeration while the session is open.
	stub.descs = nil
	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh with device gone failed: %v", err)
	}

	details, err := r.Describe(tty.Name())
	if err != nil {
		t.Fatalf("open record was evicted: %v", err)
	}
	if details.FriendlyName != "Looped Adapter" {
		t.Errorf("FriendlyName = %q, want preserved value", details.FriendlyName)
	}

	// Once closed, the next pass may evict it.
	if err := port.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh after close failed: %v", err)
	}
	if _, err := r.Describe(tty.Name()); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("closed record should be evicted, Describe = %v", err)
	}
}

type advisorStub struct {
	devs []VendorDevice
	err  error
}

func (a advisorStub) Enumerate() ([]VendorDevice, error) {
	return a.devs, a.err
}

func TestVendorOverrideBySerialNumber(t *testing.T) {
	desc := testDescriptor("/dev/ttyUSB0", "Adapter A")
	desc.SerialNumber = "FT123456"
	stub := &scanStub{descs: []DeviceDescriptor{desc}}

	r := NewRegistry(
		withScanSource(stub.scan),
		WithVendorAdvisor(advisorStub{devs: []VendorDevice{
			{SerialNumber: "FT123456", Description: "FT232R USB UART"},
			{SerialNumber: "FT999999", Description: "Unmatched Device"},
		}}),
	)

	details, err := func() (PortDetails, error) {
		if err := r.Refresh(); err != nil {
			return PortDetails{}, err
		}
		return r.Describe("/dev/ttyUSB0")
	}()
	if err != nil {
		t.Fatalf("refresh/describe failed: %v", err)
	}
	if details.Description != "FT232R USB UART" {
		t.Errorf("Description = %q, want vendor override", details.Description)
	}
}

func TestVendorAdvisorFailureIsIgnored(t *testing.T) {
	stub := &scanStub{descs: []DeviceDescriptor{testDescriptor("/dev/ttyUSB0", "Adapter A")}}
	r := NewRegistry(
		withScanSource(stub.scan),
		WithVendorAdvisor(advisorStub{err: errors.New("driver not loaded")}),
	)

	if err := r.Refresh(); err != nil {
		t.Fatalf("Refresh failed despite advisor error: %v", err)
	}
	if _, err := r.Describe("/dev/ttyUSB0"); err != nil {
		t.Errorf("Describe failed: %v", err)
	}
}

func TestRefreshScanFailure(t *testing.T) {
	stub := &scanStub{err: errors.New("sysfs unavailable")}
	r := NewRegistry(withScanSource(stub.scan))

	if err := r.Refresh(); err == nil {
		t.Fatal("expected Refresh to surface the scan failure")
	}
	if status := r.LastError(); status.Origin != originDiscovery {
		t.Errorf("LastError origin = %q, want %q", status.Origin, originDiscovery)
	}
}

func TestOpenAdmitsUserSpecifiedPath(t *testing.T) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}
	defer ptmx.Close()
	defer tty.Close()

	stub := &scanStub{}
	r := NewRegistry(withScanSource(stub.scan))

	port, err := r.Open(tty.Name())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer port.Close()

	details, err := r.Describe(tty.Name())
	if err != nil {
		t.Fatalf("Describe failed: %v", err)
	}
	if details.FriendlyName != "User-Specified Port" {
		t.Errorf("FriendlyName = %q, want placeholder", details.FriendlyName)
	}
	if details.Location != "0-0.0" {
		t.Errorf("Location = %q, want placeholder", details.Location)
	}
}
