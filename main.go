package main

import (
	"net"
	"os"
	"os/signal"

	"github.com/jessevdk/go-flags"
	"github.com/picolight/provd/accesspoint"
	"github.com/picolight/provd/api"
	"github.com/picolight/provd/device"
	"github.com/picolight/provd/gui"
	"github.com/picolight/provd/portal"
	"github.com/picolight/provd/provdb"
	"github.com/picolight/provd/provdlog"
	"github.com/picolight/provd/radio"
	"github.com/picolight/provd/scanner"
	"github.com/picolight/provd/station"
	"github.com/picolight/provd/wifi"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	// Commit stores the current commit hash of this build. This should be set using -ldflags during compilation.
	Commit string
	// Version stores the version string of this build. This should be set using -ldflags during compilation.
	Version string
	// Date stores the date of this build. This should be set using -ldflags during compilation.
	Date string
)

// provdMain is the true entry point for provd. This is required since defers
// created in the top-level scope of a main method aren't executed if os.Exit() is called.
func provdMain() error {
	provdLog := provdlog.New()

	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
	log.AddHook(provdLog)

	// Load CLI configuration and defaults
	cfg, err := loadConfig()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		return nil
	} else if err != nil {
		return errors.Errorf("Failed parsing arguments: %v", err)
	}

	// Set logger into debug mode if called with --debug
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
		log.Info("Setting debug mode.")
	}

	log.Debug("Loaded config.")

	// Print version of the daemon
	log.Infof("Version %s (commit %s)", Version, Commit)
	log.Infof("Built on %s", Date)

	// Stop here if only version was requested
	if cfg.ShowVersion {
		return nil
	}

	// provd.db persistently stores credentials and settings
	db, err := provdb.Open(cfg.DataDir)
	if err != nil {
		return errors.Errorf("Could not open provd.db: %v", err)
	}

	log.Infof("Opened provd.db")

	defer func() {
		err := db.Close()
		if err != nil {
			log.Errorf("Could not close provd.db: %v", err)
		} else {
			log.Info("Closed provd.db.")
		}
	}()

	// The radio backend, which every other wireless component talks to
	var r radio.Radio
	var subnet accesspoint.Subnet

	switch cfg.Radio {
	case "wpa":
		r = radio.NewWpaRadio(&radio.WpaRadioConfig{
			Interface: cfg.Wpa.Interface,
			Logger:    log.New().WithField("system", "radio"),
		})
		subnet = newLeaseSubnet(cfg.Wpa.Interface)

		log.Infof("Created wpa_supplicant radio on %v.", cfg.Wpa.Interface)
	case "mock":
		r = radio.NewMockRadio(&radio.MockRadioConfig{
			Networks: []wifi.ScanResult{
				{SSID: "Example Cafe", RSSI: -42, Channel: 1, Security: wifi.SecurityPSK},
				{SSID: "Example Guest", RSSI: -61, Channel: 6, Security: wifi.SecurityOpen},
				{SSID: "Example 5G", RSSI: -77, Channel: 11, Security: wifi.SecuritySAE},
			},
			Logger: log.New().WithField("system", "radio"),
		})
		subnet = accesspoint.NoopSubnet{}

		log.Info("Created a mock radio.")
	default:
		return errors.Errorf("Unknown radio type %v", cfg.Radio)
	}

	err = r.Start()
	if err != nil {
		return errors.Errorf("Could not start radio: %v", err)
	}

	defer func() {
		err := r.Stop()
		if err != nil {
			log.Errorf("Could not properly shut down radio: %v", err)
		} else {
			log.Info("Stopped radio.")
		}
	}()

	// The scanner, which owns the bounded network list
	sc := scanner.New(&scanner.Config{
		Radio:  r,
		Logger: log.New().WithField("system", "scanner"),
	})

	if err := sc.Start(); err != nil {
		return errors.Errorf("Could not start scanner: %v", err)
	}

	defer func() {
		err := sc.Stop()
		if err != nil {
			log.Errorf("Could not properly stop scanner: %v", err)
		}
	}()

	log.Info("Created scanner.")

	// The identity the device announces while provisioning
	identity := radio.APIdentity{
		Channel: cfg.Ap.Channel,
		IP:      cfg.Ap.IP,
	}

	if cfg.Ap.SSID != "" {
		identity.SSID, err = wifi.NewSSID(cfg.Ap.SSID)
		if err != nil {
			return errors.Errorf("Invalid AP name: %v", err)
		}
	}

	if cfg.Ap.Passphrase != "" {
		identity.Passphrase, err = wifi.NewPassphrase(cfg.Ap.Passphrase)
		if err != nil {
			return errors.Errorf("Invalid AP passphrase: %v", err)
		}
	}

	// The SoftAP controller
	ap := accesspoint.NewController(&accesspoint.Config{
		Radio:    r,
		Identity: identity,
		Subnet:   subnet,
		Logger:   log.New().WithField("system", "accesspoint"),
	})

	if err := ap.Init(); err != nil {
		return errors.Errorf("Could not initialize access point controller: %v", err)
	}

	defer ap.Shutdown()

	log.Info("Created access point controller.")

	// The station connection manager
	st := station.NewManager(&station.Config{
		Radio:  r,
		Logger: log.New().WithField("system", "station"),
	})

	if err := st.Start(); err != nil {
		return errors.Errorf("Could not start station manager: %v", err)
	}

	defer func() {
		err := st.Stop()
		if err != nil {
			log.Errorf("Could not properly stop station manager: %v", err)
		}
	}()

	log.Info("Created station manager.")

	// The credential front end, either the captive portal or the on-device
	// display
	var frontEnd device.FrontEnd

	if cfg.Gui {
		display, err := gui.NewTermDisplay()
		if err != nil {
			return errors.Errorf("Could not initialize display: %v", err)
		}

		defer display.Close()

		g := gui.New(&gui.Config{
			Scanner: sc,
			Display: display,
			Submit:  ap.SetCredentials,
			Logger:  log.New().WithField("system", "gui"),
		})

		go display.Pump(g)

		frontEnd = g

		log.Info("Created on-device GUI.")
	} else {
		frontEnd = portal.NewPortal(&portal.Config{
			Listen:   cfg.PortalListen,
			Networks: sc.Results,
			Submit:   ap.SetCredentials,
			Status: func() portal.Status {
				s := portal.Status{
					Connected: st.Connected(),
				}

				if credentials, err := db.GetCredentials(); err == nil && credentials != nil {
					s.SSID = credentials.SSID
				}

				return s
			},
			Logger: log.New().WithField("system", "portal"),
		})

		log.Infof("Created captive portal on %v.", cfg.PortalListen)
	}

	// create subsystem responsible for the local command surface
	api := api.New(&api.Config{
		Log:      log.New().WithField("system", "api"),
		ProvdLog: provdLog,
	})

	log.Infof("Created API")

	// central orchestrator for everything the device does
	dev := device.NewDevice(&device.Config{
		DB:          db,
		Scanner:     sc,
		AccessPoint: ap,
		Station:     st,
		FrontEnd:    frontEnd,
		Logger:      log.New().WithField("system", "device"),
	})

	api.SetDevice(dev)

	log.Infof("Created device.")

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return errors.Errorf("Could not listen on %v: %v", cfg.Listen, err)
	}

	defer lis.Close()

	go func() {
		log.Infof("Serving API on %v.", cfg.Listen)

		err := api.Serve(lis)
		if err != nil {
			log.Debugf("API server finished: %v", err)
		}
	}()

	// Handle interrupt signals correctly
	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt)
		sig := <-signals
		log.Info(sig)
		log.Info("Received an interrupt, stopping device...")
		dev.Shutdown()
	}()

	// blocks until the device is shut down
	err = dev.Run()
	if err != nil {
		return errors.Errorf("Failed running device: %v", err)
	}

	// finish with no error
	return nil
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := provdMain(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		} else {
			log.WithError(err).Println("Failed running provd.")
		}
		os.Exit(1)
	}
}
