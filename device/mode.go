package device

import "sync"

// Mode is the device lifecycle state. It is cyclic; the device loops
// between station and provisioning for its operational lifetime.
type Mode int

const (
	Uninitialized Mode = iota
	StationMode
	ProvisioningMode
	Reprovisioning
)

func (m Mode) String() string {
	switch m {
	case Uninitialized:
		return "UNINITIALIZED"
	case StationMode:
		return "STATION"
	case ProvisioningMode:
		return "PROVISIONING"
	case Reprovisioning:
		return "REPROVISIONING"
	default:
		return "INVALID MODE"
	}
}

// mode guards the current lifecycle state for concurrent status queries.
type mode struct {
	sync.Mutex
	current    Mode
	isDegraded bool
}

func newMode() *mode {
	return &mode{current: Uninitialized}
}

func (m *mode) get() Mode {
	m.Lock()
	defer m.Unlock()

	return m.current
}

func (m *mode) set(current Mode) {
	m.Lock()
	defer m.Unlock()

	m.current = current
}

func (m *mode) degraded() bool {
	m.Lock()
	defer m.Unlock()

	return m.isDegraded
}

func (m *mode) setDegraded(degraded bool) {
	m.Lock()
	defer m.Unlock()

	m.isDegraded = degraded
}
