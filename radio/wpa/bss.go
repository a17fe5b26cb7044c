package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

type BSS struct {
	obj dbus.BusObject
}

func (b *BSS) String() string {
	return string(b.obj.Path())
}

// Bss holds the properties of a discovered basic service set.
type Bss struct {
	Ssid      string
	Signal    int16
	Frequency uint16
	KeyMgmt   []string
}

func (b *BSS) GetAll() (*Bss, error) {
	call := b.obj.Call("org.freedesktop.DBus.Properties.GetAll", 0, busIface+".BSS")
	if call.Err != nil {
		return nil, errors.Errorf("could not get all properties: %v", call.Err)
	}

	props, ok := call.Body[0].(map[string]dbus.Variant)
	if !ok {
		return nil, errors.Errorf("could not convert output")
	}

	bss := Bss{}

	if val, ok := props["SSID"]; ok {
		if ssid, ok := val.Value().([]byte); ok {
			bss.Ssid = string(ssid)
		} else {
			return nil, errors.Errorf("could not convert SSID to string: %v", val)
		}
	} else {
		return nil, errors.Errorf("mandatory property SSID was missing")
	}

	if val, ok := props["Signal"]; ok {
		if signal, ok := val.Value().(int16); ok {
			bss.Signal = signal
		}
	}

	if val, ok := props["Frequency"]; ok {
		if freq, ok := val.Value().(uint16); ok {
			bss.Frequency = freq
		}
	}

	// RSN carries the WPA2+ key management suites, WPA the legacy ones.
	for _, security := range []string{"RSN", "WPA"} {
		val, ok := props[security]
		if !ok {
			continue
		}

		dict, ok := val.Value().(map[string]dbus.Variant)
		if !ok {
			continue
		}

		if keyMgmt, ok := dict["KeyMgmt"]; ok {
			if suites, ok := keyMgmt.Value().([]string); ok {
				bss.KeyMgmt = append(bss.KeyMgmt, suites...)
			}
		}
	}

	return &bss, nil
}
