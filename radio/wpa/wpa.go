package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

const (
	busName  = "fi.w1.wpa_supplicant1"
	busPath  = "/fi/w1/wpa_supplicant1"
	busIface = "fi.w1.wpa_supplicant1"
)

// Wpa talks to wpa_supplicant over the system D-Bus.
type Wpa struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

func New() *Wpa {
	return &Wpa{}
}

func (w *Wpa) Start() error {
	conn, err := dbus.SystemBusPrivate()
	if err != nil {
		return errors.Errorf("could not create bus connection: %v", err)
	}

	err = conn.Auth(nil)
	if err != nil {
		_ = conn.Close()
		return errors.Errorf("could not authenticate: %v", err)
	}

	err = conn.Hello()
	if err != nil {
		_ = conn.Close()
		return errors.Errorf("could not send hello: %v", err)
	}

	w.conn = conn
	w.obj = conn.Object(busName, busPath)

	return nil
}

func (w *Wpa) Stop() error {
	if w.conn == nil {
		return nil
	}

	err := w.conn.Close()
	if err != nil {
		return errors.Errorf("could not close bus connection: %v", err)
	}

	w.conn = nil

	return nil
}

// GetInterface resolves the wpa_supplicant object of a network interface
// like wlan0.
func (w *Wpa) GetInterface(name string) (*Interface, error) {
	call := w.obj.Call(busIface+".GetInterface", 0, name)
	if call.Err != nil {
		return nil, errors.Errorf("could not get interface: %v", call.Err)
	}

	var objPath dbus.ObjectPath
	err := call.Store(&objPath)
	if err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Interface{
		wpa: w,
		obj: w.conn.Object(busName, objPath),
	}, nil
}
