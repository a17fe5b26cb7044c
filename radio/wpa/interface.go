package wpa

import (
	"github.com/go-errors/errors"
	"github.com/godbus/dbus/v5"
)

type Interface struct {
	wpa *Wpa
	obj dbus.BusObject
}

func (i *Interface) Scan() error {
	call := i.obj.Call(busIface+".Interface.Scan", 0, map[string]interface{}{
		"Type": "active",
	})
	if call.Err != nil {
		return errors.Errorf("could not scan: %v", call.Err)
	}

	return nil
}

type BSSAddedClient struct {
	BSSAdded <-chan *BSS
	Cancel   func()
}

func (i *Interface) BSSAdded() (*BSSAddedClient, error) {
	bssChan := make(chan *BSS)
	signalChan := make(chan *dbus.Signal)

	client := &BSSAddedClient{
		BSSAdded: bssChan,
		Cancel: func() {
			i.wpa.conn.RemoveSignal(signalChan)

			_ = i.wpa.conn.BusObject().RemoveMatchSignal(busIface+".Interface", "BSSAdded", dbus.WithMatchObjectPath(i.obj.Path()))

			close(signalChan)
			close(bssChan)
		},
	}

	go func() {
		i.wpa.conn.Signal(signalChan)

		for {
			signal, ok := <-signalChan
			if !ok {
				return
			}

			if signal.Name == busIface+".Interface.BSSAdded" && signal.Path == i.obj.Path() {
				if path, ok := signal.Body[0].(dbus.ObjectPath); ok {
					bssChan <- &BSS{
						obj: i.wpa.conn.Object(busName, path),
					}
				}
			}
		}
	}()

	call := i.wpa.conn.BusObject().AddMatchSignal(busIface+".Interface", "BSSAdded", dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	return client, nil
}

type ScanDoneClient struct {
	ScanDone <-chan bool
	Cancel   func()
}

func (i *Interface) ScanDone() (*ScanDoneClient, error) {
	doneChan := make(chan bool)
	signalChan := make(chan *dbus.Signal)

	client := &ScanDoneClient{
		ScanDone: doneChan,
		Cancel: func() {
			i.wpa.conn.RemoveSignal(signalChan)

			_ = i.wpa.conn.BusObject().RemoveMatchSignal(busIface+".Interface", "ScanDone", dbus.WithMatchObjectPath(i.obj.Path()))

			close(signalChan)
			close(doneChan)
		},
	}

	go func() {
		i.wpa.conn.Signal(signalChan)

		for {
			signal, ok := <-signalChan
			if !ok {
				return
			}

			if signal.Name == busIface+".Interface.ScanDone" && signal.Path == i.obj.Path() {
				if success, ok := signal.Body[0].(bool); ok {
					doneChan <- success
				}
			}
		}
	}()

	call := i.wpa.conn.BusObject().AddMatchSignal(busIface+".Interface", "ScanDone", dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	return client, nil
}

type StateChangedClient struct {
	States <-chan string
	Cancel func()
}

// StateChanged watches the interface State property. wpa_supplicant reports
// "completed" once an association succeeds and "disconnected" when it is
// lost.
func (i *Interface) StateChanged() (*StateChangedClient, error) {
	stateChan := make(chan string)
	signalChan := make(chan *dbus.Signal)

	client := &StateChangedClient{
		States: stateChan,
		Cancel: func() {
			i.wpa.conn.RemoveSignal(signalChan)

			_ = i.wpa.conn.BusObject().RemoveMatchSignal(busIface+".Interface", "PropertiesChanged", dbus.WithMatchObjectPath(i.obj.Path()))

			close(signalChan)
			close(stateChan)
		},
	}

	go func() {
		i.wpa.conn.Signal(signalChan)

		for {
			signal, ok := <-signalChan
			if !ok {
				return
			}

			if signal.Name != busIface+".Interface.PropertiesChanged" || signal.Path != i.obj.Path() {
				continue
			}

			props, ok := signal.Body[0].(map[string]dbus.Variant)
			if !ok {
				continue
			}

			if val, ok := props["State"]; ok {
				if state, ok := val.Value().(string); ok {
					stateChan <- state
				}
			}
		}
	}()

	call := i.wpa.conn.BusObject().AddMatchSignal(busIface+".Interface", "PropertiesChanged", dbus.WithMatchObjectPath(i.obj.Path()))
	if call.Err != nil {
		return nil, errors.Errorf("could not add signal: %v", call.Err)
	}

	return client, nil
}

func (i *Interface) BSSs() ([]*BSS, error) {
	v, err := i.obj.GetProperty(busIface + ".Interface.BSSs")
	if err != nil {
		return nil, errors.Errorf("could not get bsss: %v", err)
	}

	objectPaths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, errors.Errorf("could not convert result")
	}

	var bsss []*BSS

	for _, objectPath := range objectPaths {
		bsss = append(bsss, &BSS{
			obj: i.wpa.conn.Object(busName, objectPath),
		})
	}

	return bsss, nil
}

// Network is a handle to a configured wpa_supplicant network block.
type Network struct {
	obj dbus.BusObject
}

func (n *Network) String() string {
	return string(n.obj.Path())
}

// NetworkArgs are the raw properties of a wpa_supplicant network block.
type NetworkArgs map[string]interface{}

// StationNetwork builds the arguments for joining a network as a client.
func StationNetwork(ssid string, psk string) NetworkArgs {
	args := NetworkArgs{"ssid": ssid}

	if psk != "" {
		args["psk"] = psk
	} else {
		args["key_mgmt"] = "NONE"
	}

	return args
}

// APNetwork builds the arguments for broadcasting a SoftAP on a channel of
// the 2.4 GHz band.
func APNetwork(ssid string, psk string, channel uint8) NetworkArgs {
	args := NetworkArgs{
		"ssid":      ssid,
		"mode":      2,
		"frequency": 2407 + int(channel)*5,
	}

	if psk != "" {
		args["psk"] = psk
	} else {
		args["key_mgmt"] = "NONE"
	}

	return args
}

func (i *Interface) AddNetwork(args NetworkArgs) (*Network, error) {
	call := i.obj.Call(busIface+".Interface.AddNetwork", 0, map[string]interface{}(args))
	if call.Err != nil {
		return nil, errors.Errorf("could not add network: %v", call.Err)
	}

	var objPath dbus.ObjectPath
	err := call.Store(&objPath)
	if err != nil {
		return nil, errors.Errorf("could not store value: %v", err)
	}

	return &Network{
		obj: i.wpa.conn.Object(busName, objPath),
	}, nil
}

func (i *Interface) SelectNetwork(net *Network) error {
	call := i.obj.Call(busIface+".Interface.SelectNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not select network: %v", call.Err)
	}

	return nil
}

func (i *Interface) RemoveNetwork(net *Network) error {
	call := i.obj.Call(busIface+".Interface.RemoveNetwork", 0, net.obj.Path())
	if call.Err != nil {
		return errors.Errorf("could not remove network: %v", call.Err)
	}

	return nil
}

func (i *Interface) RemoveAllNetworks() error {
	call := i.obj.Call(busIface+".Interface.RemoveAllNetworks", 0)
	if call.Err != nil {
		return errors.Errorf("could not remove all networks: %v", call.Err)
	}

	return nil
}

func (i *Interface) Disconnect() error {
	call := i.obj.Call(busIface+".Interface.Disconnect", 0)
	if call.Err != nil {
		return errors.Errorf("could not disconnect: %v", call.Err)
	}

	return nil
}
