package serialport

import (
	"fmt"
	"sort"
	"sync"
)

// PortDetails is the display metadata of one known device.
type PortDetails struct {
	Path         string
	FriendlyName string
	Description  string
	Location     string
}

// Registry is the single owned collection of known serial devices, keyed by
// port path. Refresh merges fresh OS enumeration results into the existing
// records: open ports are never evicted, and the name/description captured at
// first sight are never overwritten by a later pass.
//
// A Registry is safe for concurrent use. Refresh holds the registry lock for
// the whole merge pass (single-writer discipline); open sessions are never
// touched destructively, so their I/O is unaffected by a concurrent refresh.
type Registry struct {
	mu         sync.Mutex
	ports      map[string]*Port
	scan       func() ([]DeviceDescriptor, error)
	advisor    VendorAdvisor
	enumerated bool
	lastErr    Status
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithVendorAdvisor attaches an optional vendor chip enumerator used to
// improve port descriptions. Its absence or failure never affects
// enumeration correctness.
func WithVendorAdvisor(advisor VendorAdvisor) RegistryOption {
	return func(r *Registry) {
		r.advisor = advisor
	}
}

// withScanSource overrides the device property source. Used by tests.
func withScanSource(scan func() ([]DeviceDescriptor, error)) RegistryOption {
	return func(r *Registry) {
		r.scan = scan
	}
}

// NewRegistry creates an empty port registry backed by the OS device tree.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		ports: make(map[string]*Port),
		scan:  newSysfsScanner().Scan,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh reconciles the registry with a fresh device enumeration. It is
// idempotent with respect to stable hardware: two passes with no topology
// change yield identical registry content and do not disturb open sessions.
func (r *Registry) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked()
}

func (r *Registry) refreshLocked() error {
	// Open records start the pass pre-marked as present so device removal
	// can never invalidate a live session's record.
	for _, p := range r.ports {
		p.enumerated = p.isOpen()
	}

	descs, err := r.scan()
	if err != nil {
		r.lastErr = Status{Code: errnoOf(err), Origin: originDiscovery}
		return fmt.Errorf("device enumeration failed: %w", err)
	}

	for _, d := range descs {
		if p, ok := r.ports[d.Path]; ok {
			// Existing record: only the physical location may change.
			// Display text is authoritative at first sight.
			p.enumerated = true
			if d.Location != "" && p.location != d.Location {
				p.location = d.Location
			}
			if p.serialNumber == "" {
				p.serialNumber = d.SerialNumber
			}
		} else {
			r.ports[d.Path] = newRecord(r, d)
		}
	}

	if r.advisor != nil {
		r.applyVendorOverrides()
	}

	for path, p := range r.ports {
		if !p.enumerated {
			delete(r.ports, path)
		}
	}

	r.enumerated = true
	return nil
}

// applyVendorOverrides replaces port descriptions with vendor-reported ones,
// correlated by serial number. Entries already matched to an open record are
// skipped; everything here is best-effort.
func (r *Registry) applyVendorOverrides() {
	devs, err := r.advisor.Enumerate()
	if err != nil {
		return
	}
	for _, d := range devs {
		if d.SerialNumber == "" || d.InUse {
			continue
		}
		matchedOpen := false
		for _, p := range r.ports {
			if p.serialNumber == d.SerialNumber && p.isOpen() {
				p.enumerated = true
				matchedOpen = true
				break
			}
		}
		if matchedOpen {
			continue
		}
		for _, p := range r.ports {
			if p.serialNumber == d.SerialNumber && d.Description != "" {
				p.enumerated = true
				p.description = d.Description
				break
			}
		}
	}
}

// Ports refreshes the registry and returns the known devices sorted by path.
func (r *Registry) Ports() ([]PortDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.refreshLocked(); err != nil {
		return nil, err
	}

	details := make([]PortDetails, 0, len(r.ports))
	for _, p := range r.ports {
		details = append(details, p.details())
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Path < details[j].Path })
	return details, nil
}

// Describe returns the display metadata of one port, enumerating devices
// first only if no refresh has happened yet.
func (r *Registry) Describe(path string) (PortDetails, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enumerated {
		if err := r.refreshLocked(); err != nil {
			return PortDetails{}, err
		}
	}
	p, ok := r.ports[path]
	if !ok {
		return PortDetails{}, ErrDeviceNotFound
	}
	return p.details(), nil
}

// Lookup returns the live record for a path without triggering a refresh.
func (r *Registry) Lookup(path string) (*Port, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.ports[path]
	return p, ok
}

// LastError returns the process-wide advisory status recorded by operations
// that failed before a session existed (discovery, failed opens).
func (r *Registry) LastError() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}
