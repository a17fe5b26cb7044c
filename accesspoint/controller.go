package accesspoint

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/picolight/provd/radio"
	"github.com/picolight/provd/wifi"
)

// Default identity of the provisioning network.
const (
	DefaultSSID    = "provd-setup"
	DefaultChannel = 6
	DefaultIP      = "192.168.4.1"
)

var (
	ErrAlreadyActive = errors.New("access point already starting or active")
	ErrNotActive     = errors.New("access point not active")

	// ErrUnsupported is handed through when the radio has no AP mode.
	ErrUnsupported = radio.ErrUnsupported
)

type State int

const (
	Idle State = iota
	Starting
	Active
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Starting:
		return "STARTING"
	case Active:
		return "ACTIVE"
	case Failed:
		return "FAILED"
	default:
		return "INVALID STATE"
	}
}

// SubmitHandler receives credentials captured by a front end. It runs on
// the submitting caller's goroutine and must not block.
type SubmitHandler func(credentials wifi.Credentials)

type Config struct {
	Radio    radio.Radio
	Identity radio.APIdentity
	Subnet   Subnet
	Logger   Logger
}

// Controller owns the SoftAP lifecycle. State transitions to Active, Failed
// and back to Idle happen from asynchronous radio events, never from the
// request path that triggered them.
type Controller struct {
	log      Logger
	radio    radio.Radio
	identity radio.APIdentity
	subnet   Subnet
	events   *radio.EventClient

	mtx      sync.Mutex
	state    State
	onSubmit SubmitHandler
	pending  wifi.Credentials
	received bool
}

func NewController(config *Config) *Controller {
	c := &Controller{
		radio:    config.Radio,
		identity: config.Identity,
		subnet:   config.Subnet,
		state:    Idle,
	}

	if c.identity.SSID == "" {
		c.identity.SSID = DefaultSSID
	}

	if c.identity.Channel == 0 {
		c.identity.Channel = DefaultChannel
	}

	if c.identity.IP == "" {
		c.identity.IP = DefaultIP
	}

	if c.subnet == nil {
		c.subnet = NoopSubnet{}
	}

	if config.Logger != nil {
		c.log = config.Logger
	} else {
		c.log = noopLogger{}
	}

	return c
}

// Init registers for AP enable/disable notifications.
func (c *Controller) Init() error {
	events := c.radio.Subscribe()
	c.events = events

	go c.deliverEvents(events)

	return nil
}

func (c *Controller) Shutdown() {
	if c.events != nil {
		c.events.Cancel()
		c.events = nil
	}
}

// Start stores the submission handler and issues the AP enable request.
// Whether the AP actually came up is reported asynchronously; the address
// assignment and lease service are a best-effort convenience and never fail
// the call.
func (c *Controller) Start(onSubmit SubmitHandler) error {
	c.mtx.Lock()

	if c.state == Starting || c.state == Active {
		c.mtx.Unlock()
		return ErrAlreadyActive
	}

	c.state = Starting
	c.onSubmit = onSubmit

	c.mtx.Unlock()

	c.log.Infof("Starting access point %v on channel %v", c.identity.SSID, c.identity.Channel)

	err := c.radio.EnableAP(c.identity)
	if err != nil {
		c.mtx.Lock()
		c.state = Failed
		c.mtx.Unlock()

		if err == radio.ErrUnsupported {
			return ErrUnsupported
		}

		return errors.Errorf("could not enable access point: %v", err)
	}

	if err := c.subnet.Configure(c.identity); err != nil {
		c.log.Warnf("Could not configure subnet, clients need manual addresses: %v", err)
	}

	return nil
}

// Stop issues the AP disable request. The transition back to Idle happens
// asynchronously via the disable notification.
func (c *Controller) Stop() error {
	c.mtx.Lock()

	if c.state != Active {
		c.mtx.Unlock()
		return ErrNotActive
	}

	c.mtx.Unlock()

	c.log.Infof("Stopping access point")

	if err := c.subnet.Release(); err != nil {
		c.log.Warnf("Could not release subnet: %v", err)
	}

	err := c.radio.DisableAP()
	if err != nil {
		return errors.Errorf("could not disable access point: %v", err)
	}

	return nil
}

func (c *Controller) deliverEvents(events *radio.EventClient) {
	for event := range events.Events {
		switch ev := event.(type) {
		case radio.APEnableEvent:
			c.mtx.Lock()
			if c.state == Starting {
				if ev.Status == 0 {
					c.state = Active
					c.log.Infof("Access point active")
				} else {
					c.state = Failed
					c.log.Errorf("Access point enable failed with status %v", ev.Status)
				}
			}
			c.mtx.Unlock()
		case radio.APDisableEvent:
			c.mtx.Lock()
			c.state = Idle
			c.mtx.Unlock()

			c.log.Infof("Access point disabled")
		}
	}
}

func (c *Controller) State() State {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.state
}

func (c *Controller) Identity() radio.APIdentity {
	return c.identity
}

// SetCredentials is invoked by a front end when it captured a submission.
// The credentials land in a single pending slot, last write wins, and the
// stored handler is invoked synchronously on the caller's goroutine.
func (c *Controller) SetCredentials(credentials wifi.Credentials) {
	c.mtx.Lock()
	c.pending = credentials
	c.received = true
	onSubmit := c.onSubmit
	c.mtx.Unlock()

	c.log.Infof("Credentials received for %v", credentials.SSID)

	if onSubmit != nil {
		onSubmit(credentials)
	}
}

// TakeCredentials consumes and clears the pending slot.
func (c *Controller) TakeCredentials() (wifi.Credentials, bool) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if !c.received {
		return wifi.Credentials{}, false
	}

	credentials := c.pending
	c.pending = wifi.Credentials{}
	c.received = false

	return credentials, true
}

// HasCredentials reports whether an unconsumed submission exists.
func (c *Controller) HasCredentials() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	return c.received
}
