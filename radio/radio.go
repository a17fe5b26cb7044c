package radio

import (
	"sync"

	"github.com/go-errors/errors"
	"github.com/picolight/provd/wifi"
)

// ErrUnsupported is returned when the driver cannot provide a capability,
// such as AP mode on hardware without SoftAP support.
var ErrUnsupported = errors.New("operation not supported by this radio")

// APIdentity is the fixed network identity a SoftAP broadcasts.
type APIdentity struct {
	SSID       wifi.SSID
	Passphrase wifi.Passphrase
	Channel    uint8
	IP         string
}

// ConnectRequest asks the radio to join a network in station mode.
type ConnectRequest struct {
	SSID       wifi.SSID
	Passphrase wifi.Passphrase
	Security   wifi.Security
}

// Event is an asynchronous notification from the radio driver. All state
// that depends on request outcomes is updated from these events, never from
// the request call itself.
type Event interface{}

// ScanResultEvent carries one discovered network of an in-flight scan.
type ScanResultEvent struct {
	Result wifi.ScanResult
}

// ScanDoneEvent terminates a scan. Status 0 means success, anything else is
// the driver's error code.
type ScanDoneEvent struct {
	Status int
}

// APEnableEvent reports the outcome of an AP enable request.
type APEnableEvent struct {
	Status int
}

// APDisableEvent reports that the SoftAP has been torn down.
type APDisableEvent struct{}

// ConnectEvent reports the outcome of a station connect request.
type ConnectEvent struct {
	Status int
}

// DisconnectEvent reports that the station association was lost. It can
// arrive at any time, independent of any in-progress connect call.
type DisconnectEvent struct{}

// Radio is the asynchronous WiFi driver. Requests return quickly; outcomes
// arrive as events on subscribed clients.
type Radio interface {
	Start() error
	Stop() error
	Scan() error
	EnableAP(identity APIdentity) error
	DisableAP() error
	Connect(req ConnectRequest) error
	Disconnect() error
	Subscribe() *EventClient
}

// eventClientBuffer leaves enough room for a full scan plus lifecycle
// events so a briefly busy subscriber doesn't stall the driver.
const eventClientBuffer = 64

// EventClient delivers radio events until cancelled. Cancelling returns the
// registration, so no process-wide handler state is needed.
type EventClient struct {
	Events <-chan Event

	id     uint32
	events chan Event
	cancel func(id uint32)
	once   sync.Once
}

func (c *EventClient) Cancel() {
	c.once.Do(func() {
		c.cancel(c.id)
	})
}

// subscribers is the client registry shared by the radio implementations.
type subscribers struct {
	sync.Mutex
	clients map[uint32]*EventClient
	nextID  uint32
}

func newSubscribers() *subscribers {
	return &subscribers{
		clients: make(map[uint32]*EventClient),
	}
}

func (s *subscribers) add() *EventClient {
	s.Lock()
	defer s.Unlock()

	events := make(chan Event, eventClientBuffer)

	client := &EventClient{
		Events: events,
		events: events,
		id:     s.nextID,
		cancel: s.remove,
	}

	s.nextID++
	s.clients[client.id] = client

	return client
}

func (s *subscribers) remove(id uint32) {
	s.Lock()
	defer s.Unlock()

	client, ok := s.clients[id]
	if !ok {
		return
	}

	delete(s.clients, id)

	// publish holds the same lock and only sends to registered clients,
	// so closing here cannot race a send
	close(client.events)
}

func (s *subscribers) publish(event Event) {
	s.Lock()
	defer s.Unlock()

	for _, client := range s.clients {
		select {
		case client.events <- event:
		default:
			// client has fallen too far behind, drop the event
		}
	}
}
