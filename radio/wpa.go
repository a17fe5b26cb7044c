package radio

import (
	"strings"
	"sync"

	"github.com/go-errors/errors"
	"github.com/picolight/provd/radio/wpa"
	"github.com/picolight/provd/wifi"
)

// Compile time check for interface compatibility
var _ Radio = (*WpaRadio)(nil)

type WpaRadioConfig struct {
	Interface string
	Logger    Logger
}

// WpaRadio drives a wireless interface through wpa_supplicant's D-Bus API.
// Association state changes arrive as D-Bus signals and are translated into
// radio events for subscribers.
type WpaRadio struct {
	log         Logger
	wpa         *wpa.Wpa
	ifname      string
	iface       *wpa.Interface
	subscribers *subscribers
	states      *wpa.StateChangedClient

	mtx      sync.Mutex
	apMode   bool
	stopping bool
}

func NewWpaRadio(config *WpaRadioConfig) *WpaRadio {
	r := &WpaRadio{
		ifname:      config.Interface,
		wpa:         wpa.New(),
		subscribers: newSubscribers(),
	}

	if config.Logger != nil {
		r.log = config.Logger
	} else {
		r.log = noopLogger{}
	}

	return r
}

func (r *WpaRadio) Start() error {
	err := r.wpa.Start()
	if err != nil {
		return errors.Errorf("could not start wpa: %v", err)
	}

	iface, err := r.wpa.GetInterface(r.ifname)
	if err != nil {
		_ = r.Stop()
		return errors.Errorf("could not find interface %v: %v", r.ifname, err)
	}

	r.iface = iface

	states, err := iface.StateChanged()
	if err != nil {
		_ = r.Stop()
		return errors.Errorf("could not listen for state changes: %v", err)
	}

	r.states = states

	go r.deliverStates()

	return nil
}

func (r *WpaRadio) Stop() error {
	if r.states != nil {
		r.states.Cancel()
		r.states = nil
	}

	err := r.wpa.Stop()
	if err != nil {
		return errors.Errorf("could not stop wpa: %v", err)
	}

	return nil
}

// deliverStates maps wpa_supplicant association states onto radio events.
// Whether a completed association belongs to a SoftAP or a station connect
// depends on which request is in flight.
func (r *WpaRadio) deliverStates() {
	for state := range r.states.States {
		r.log.Debugf("Interface state changed to %v", state)

		r.mtx.Lock()
		apMode := r.apMode
		stopping := r.stopping
		r.mtx.Unlock()

		switch state {
		case "completed":
			if apMode {
				r.subscribers.publish(APEnableEvent{Status: 0})
			} else {
				r.subscribers.publish(ConnectEvent{Status: 0})
			}
		case "disconnected", "inactive":
			if apMode && stopping {
				r.mtx.Lock()
				r.apMode = false
				r.stopping = false
				r.mtx.Unlock()

				r.subscribers.publish(APDisableEvent{})
			} else if !apMode {
				r.subscribers.publish(DisconnectEvent{})
			}
		}
	}
}

func (r *WpaRadio) Scan() error {
	added, err := r.iface.BSSAdded()
	if err != nil {
		return errors.Errorf("unable to listen for added networks: %v", err)
	}

	done, err := r.iface.ScanDone()
	if err != nil {
		added.Cancel()
		return errors.Errorf("unable to listen for scan completion: %v", err)
	}

	err = r.iface.Scan()
	if err != nil {
		added.Cancel()
		done.Cancel()
		return errors.Errorf("unable to scan: %v", err)
	}

	go func() {
		// BSSs cached from earlier scans are part of the fresh view too
		bsss, err := r.iface.BSSs()
		if err != nil {
			r.log.Warnf("Could not get cached networks: %v", err)
		}

		for _, bss := range bsss {
			r.publishBss(bss)
		}

		for {
			select {
			case bss, ok := <-added.BSSAdded:
				if !ok {
					return
				}

				r.publishBss(bss)
			case success, ok := <-done.ScanDone:
				if !ok {
					return
				}

				status := 0
				if !success {
					status = 1
				}

				r.subscribers.publish(ScanDoneEvent{Status: status})

				added.Cancel()
				done.Cancel()

				return
			}
		}
	}()

	return nil
}

func (r *WpaRadio) publishBss(bss *wpa.BSS) {
	b, err := bss.GetAll()
	if err != nil {
		r.log.Debugf("Skipping network %v: %v", bss, err)
		return
	}

	ssid, err := wifi.NewSSID(b.Ssid)
	if err != nil {
		r.log.Debugf("Skipping network with oversized ssid")
		return
	}

	r.subscribers.publish(ScanResultEvent{
		Result: wifi.ScanResult{
			SSID:     ssid,
			RSSI:     clampSignal(b.Signal),
			Channel:  channelFromFrequency(b.Frequency),
			Security: securityFromKeyMgmt(b.KeyMgmt),
		},
	})
}

func (r *WpaRadio) EnableAP(identity APIdentity) error {
	err := r.iface.RemoveAllNetworks()
	if err != nil {
		r.log.Warnf("Could not remove networks before enabling AP: %v", err)
	}

	net, err := r.iface.AddNetwork(wpa.APNetwork(
		identity.SSID.String(),
		identity.Passphrase.String(),
		identity.Channel,
	))
	if err != nil {
		return errors.Errorf("could not add AP network: %v", err)
	}

	r.mtx.Lock()
	r.apMode = true
	r.stopping = false
	r.mtx.Unlock()

	err = r.iface.SelectNetwork(net)
	if err != nil {
		r.mtx.Lock()
		r.apMode = false
		r.mtx.Unlock()

		return errors.Errorf("could not select AP network: %v", err)
	}

	return nil
}

func (r *WpaRadio) DisableAP() error {
	r.mtx.Lock()
	r.stopping = true
	r.mtx.Unlock()

	err := r.iface.Disconnect()
	if err != nil {
		return errors.Errorf("could not disable AP: %v", err)
	}

	err = r.iface.RemoveAllNetworks()
	if err != nil {
		r.log.Warnf("Could not remove AP network: %v", err)
	}

	return nil
}

func (r *WpaRadio) Connect(req ConnectRequest) error {
	err := r.iface.RemoveAllNetworks()
	if err != nil {
		r.log.Warnf("Could not remove networks before connecting: %v", err)
	}

	net, err := r.iface.AddNetwork(wpa.StationNetwork(
		req.SSID.String(),
		req.Passphrase.String(),
	))
	if err != nil {
		return errors.Errorf("could not add network: %v", err)
	}

	r.mtx.Lock()
	r.apMode = false
	r.stopping = false
	r.mtx.Unlock()

	err = r.iface.SelectNetwork(net)
	if err != nil {
		return errors.Errorf("could not select network: %v", err)
	}

	return nil
}

func (r *WpaRadio) Disconnect() error {
	err := r.iface.Disconnect()
	if err != nil {
		return errors.Errorf("could not disconnect: %v", err)
	}

	return nil
}

func (r *WpaRadio) Subscribe() *EventClient {
	return r.subscribers.add()
}

func clampSignal(signal int16) int8 {
	if signal < -128 {
		return -128
	}

	if signal > 127 {
		return 127
	}

	return int8(signal)
}

func channelFromFrequency(freq uint16) uint8 {
	switch {
	case freq == 2484:
		return 14
	case freq >= 2412 && freq <= 2472:
		return uint8((freq - 2407) / 5)
	case freq >= 5000 && freq <= 5900:
		return uint8((freq - 5000) / 5)
	default:
		return 0
	}
}

func securityFromKeyMgmt(suites []string) wifi.Security {
	for _, suite := range suites {
		switch {
		case strings.Contains(suite, "sae"):
			return wifi.SecuritySAE
		case strings.Contains(suite, "wpa-psk-sha256"):
			return wifi.SecurityPSKSHA256
		case strings.Contains(suite, "wpa-psk") || strings.Contains(suite, "wpa-ft-psk"):
			return wifi.SecurityPSK
		case strings.Contains(suite, "wpa-eap"):
			return wifi.SecurityEAP
		case strings.Contains(suite, "wapi"):
			return wifi.SecurityWAPI
		}
	}

	return wifi.SecurityOpen
}
