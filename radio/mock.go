package radio

import (
	"time"

	"github.com/picolight/provd/wifi"
)

// Compile time check for interface compatibility
var _ Radio = (*MockRadio)(nil)

// MockRadioConfig shapes the behavior of a mock radio. The zero value is a
// radio that finds no networks, supports AP mode and accepts every request.
type MockRadioConfig struct {
	// Networks are emitted one by one for every scan.
	Networks []wifi.ScanResult

	// ScanStatus is the driver code reported by the scan done event.
	ScanStatus int

	// ScanError fails the scan request itself, before any event is
	// emitted.
	ScanError error

	// DropScanDone suppresses the scan done event so callers time out.
	DropScanDone bool

	// ScanDelay postpones the scan done event.
	ScanDelay time.Duration

	// NoAP makes EnableAP fail with ErrUnsupported.
	NoAP bool

	// APEnableStatus is the driver code reported by the AP enable event.
	APEnableStatus int

	// ConnectOutcome decides the status code of a connect request. A nil
	// function accepts everything with status 0.
	ConnectOutcome func(req ConnectRequest) int

	// DropConnectResult suppresses the connect event so callers time out.
	DropConnectResult bool

	// ConnectDelay postpones the connect event.
	ConnectDelay time.Duration

	Logger Logger
}

// MockRadio simulates the asynchronous driver: every request returns
// immediately and its outcome is delivered on a separate goroutine, the way
// hardware notifications would arrive.
type MockRadio struct {
	cfg         MockRadioConfig
	log         Logger
	subscribers *subscribers
}

func NewMockRadio(cfg *MockRadioConfig) *MockRadio {
	if cfg == nil {
		cfg = &MockRadioConfig{}
	}

	r := &MockRadio{
		cfg:         *cfg,
		subscribers: newSubscribers(),
	}

	if cfg.Logger != nil {
		r.log = cfg.Logger
	} else {
		r.log = noopLogger{}
	}

	return r
}

func (r *MockRadio) Start() error {
	return nil
}

func (r *MockRadio) Stop() error {
	return nil
}

func (r *MockRadio) Scan() error {
	if r.cfg.ScanError != nil {
		return r.cfg.ScanError
	}

	go func() {
		if r.cfg.ScanDelay > 0 {
			time.Sleep(r.cfg.ScanDelay)
		}

		for _, network := range r.cfg.Networks {
			r.subscribers.publish(ScanResultEvent{Result: network})
		}

		if r.cfg.DropScanDone {
			r.log.Debugf("Suppressing scan done event")
			return
		}

		r.subscribers.publish(ScanDoneEvent{Status: r.cfg.ScanStatus})
	}()

	return nil
}

func (r *MockRadio) EnableAP(identity APIdentity) error {
	if r.cfg.NoAP {
		return ErrUnsupported
	}

	go func() {
		r.subscribers.publish(APEnableEvent{Status: r.cfg.APEnableStatus})
	}()

	return nil
}

func (r *MockRadio) DisableAP() error {
	go func() {
		r.subscribers.publish(APDisableEvent{})
	}()

	return nil
}

func (r *MockRadio) Connect(req ConnectRequest) error {
	go func() {
		if r.cfg.ConnectDelay > 0 {
			time.Sleep(r.cfg.ConnectDelay)
		}

		if r.cfg.DropConnectResult {
			r.log.Debugf("Suppressing connect event")
			return
		}

		status := 0
		if r.cfg.ConnectOutcome != nil {
			status = r.cfg.ConnectOutcome(req)
		}

		r.subscribers.publish(ConnectEvent{Status: status})
	}()

	return nil
}

func (r *MockRadio) Disconnect() error {
	go func() {
		r.subscribers.publish(DisconnectEvent{})
	}()

	return nil
}

func (r *MockRadio) Subscribe() *EventClient {
	return r.subscribers.add()
}

// Emit injects an arbitrary event, letting tests simulate spontaneous
// hardware notifications such as late scan results or disconnects.
func (r *MockRadio) Emit(event Event) {
	r.subscribers.publish(event)
}
