package station

import (
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/picolight/provd/radio"
	"github.com/picolight/provd/wifi"
)

// DefaultTimeout bounds the wait for a connect result.
const DefaultTimeout = 30 * time.Second

var (
	ErrInvalidArgument  = errors.New("ssid must not be empty")
	ErrBusy             = errors.New("connect already in progress")
	ErrTimeout          = errors.New("connect timed out")
	ErrHardwareRejected = errors.New("connect rejected by hardware")
)

type Config struct {
	Radio radio.Radio

	// Timeout overrides DefaultTimeout, mainly for tests.
	Timeout time.Duration

	Logger Logger
}

// Manager issues station-mode connect requests and tracks the association
// state. The connected flag is only ever flipped by asynchronous connect
// and disconnect events.
type Manager struct {
	log     Logger
	radio   radio.Radio
	timeout time.Duration
	events  *radio.EventClient

	mtx        sync.Mutex
	connected  bool
	connecting bool
	generation uint64
	stale      int
	result     chan int
}

func NewManager(config *Config) *Manager {
	m := &Manager{
		radio:   config.Radio,
		timeout: config.Timeout,
	}

	if m.timeout == 0 {
		m.timeout = DefaultTimeout
	}

	if config.Logger != nil {
		m.log = config.Logger
	} else {
		m.log = noopLogger{}
	}

	return m
}

func (m *Manager) Start() error {
	events := m.radio.Subscribe()
	m.events = events

	go m.deliverEvents(events)

	return nil
}

func (m *Manager) Stop() error {
	if m.events != nil {
		m.events.Cancel()
		m.events = nil
	}

	return nil
}

// Connect issues a connect request and blocks until the result notification
// arrives or the timeout elapses. A timeout leaves the true outcome unknown;
// the attempt is marked stale so a late result only updates the tracked
// association flag and is otherwise discarded.
func (m *Manager) Connect(credentials wifi.Credentials) error {
	if credentials.SSID == "" {
		return ErrInvalidArgument
	}

	security := wifi.SecurityOpen
	if credentials.Passphrase != "" {
		security = wifi.SecurityPSK
	}

	m.mtx.Lock()

	if m.connecting {
		m.mtx.Unlock()
		return ErrBusy
	}

	m.connecting = true
	m.generation++

	generation := m.generation

	// fresh single-slot channel, reset right before the request goes out
	result := make(chan int, 1)
	m.result = result

	m.mtx.Unlock()

	m.log.Infof("Connecting to %v (%v)", credentials.SSID, security.Label())

	err := m.radio.Connect(radio.ConnectRequest{
		SSID:       credentials.SSID,
		Passphrase: credentials.Passphrase,
		Security:   security,
	})
	if err != nil {
		m.finishAttempt(generation, false)
		return errors.Errorf("could not request connect: %v", err)
	}

	select {
	case status := <-result:
		m.finishAttempt(generation, false)

		m.mtx.Lock()
		connected := m.connected
		m.mtx.Unlock()

		if status != 0 {
			m.log.Errorf("Connect failed with status %v", status)
			return ErrHardwareRejected
		}

		if !connected {
			m.log.Errorf("Connect reported success but association was lost")
			return ErrHardwareRejected
		}

		m.log.Infof("Connected to %v", credentials.SSID)

		return nil
	case <-time.After(m.timeout):
		m.finishAttempt(generation, true)

		m.log.Errorf("Connect timed out after %v, true outcome unknown", m.timeout)

		return ErrTimeout
	}
}

func (m *Manager) finishAttempt(generation uint64, timedOut bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.generation == generation {
		m.connecting = false

		if timedOut {
			select {
			case <-m.result:
				// the result raced the timeout into the slot, nothing
				// is owed anymore
			default:
				// the hardware still owes this attempt a result; the
				// event handler discards exactly that many before
				// resolving a later attempt
				m.stale++
			}
		}
	}
}

func (m *Manager) deliverEvents(events *radio.EventClient) {
	for event := range events.Events {
		switch ev := event.(type) {
		case radio.ConnectEvent:
			m.mtx.Lock()
			m.connected = ev.Status == 0

			switch {
			case m.stale > 0:
				// result owed by an attempt whose caller gave up; it
				// already updated the association flag above
				m.stale--
				m.log.Debugf("Discarding connect result %v of an abandoned attempt", ev.Status)
			case m.connecting:
				select {
				case m.result <- ev.Status:
				default:
				}
			default:
				m.log.Debugf("Draining connect result %v with no waiter", ev.Status)
			}
			m.mtx.Unlock()
		case radio.DisconnectEvent:
			m.mtx.Lock()
			m.connected = false
			m.mtx.Unlock()

			m.log.Infof("Association lost")
		}
	}
}

// Connected reports the tracked association state.
func (m *Manager) Connected() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.connected
}
