package main

import (
	"github.com/jessevdk/go-flags"
)

type apConfig struct {
	SSID       string `long:"ssid" description:"Name of the network the device announces while provisioning"`
	Passphrase string `long:"passphrase" description:"Passphrase for the provisioning network, open when empty"`
	Channel    uint8  `long:"channel" description:"Channel the provisioning network runs on"`
	IP         string `long:"ip" description:"Address of the device on the provisioning network"`
}

type wpaConfig struct {
	Interface string `long:"interface" description:"Wireless interface managed through wpa_supplicant" default:"wlan0"`
}

type config struct {
	ShowVersion  bool       `short:"v" long:"version" description:"Display version information and exit"`
	Debug        bool       `short:"d" long:"debug" description:"Start in debug mode"`
	DataDir      string     `long:"datadir" description:"The directory to store provd's data within" default:"./data"`
	Listen       string     `long:"listen" description:"Add an interface/port to listen for API connections" default:"127.0.0.1:9000"`
	PortalListen string     `long:"portallisten" description:"Add an interface/port the captive portal listens on" default:":80"`
	Radio        string     `long:"radio" description:"The radio backend to use" choice:"wpa" choice:"mock" default:"wpa"`
	Gui          bool       `long:"gui" description:"Drive the on-device display instead of the captive portal"`
	Ap           *apConfig  `group:"AP" namespace:"ap"`
	Wpa          *wpaConfig `group:"wpa" namespace:"wpa"`
}

// loadConfig starts with a skeleton of sensible defaults and fills it in
// from the command line.
func loadConfig() (*config, error) {
	cfg := config{
		Ap:  &apConfig{},
		Wpa: &wpaConfig{},
	}

	parser := flags.NewParser(&cfg, flags.Default)

	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
