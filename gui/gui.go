package gui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/picolight/provd/scanner"
	"github.com/picolight/provd/wifi"
)

// Input is a user action coming from the device's physical controls.
type Input int

const (
	InputUp Input = iota
	InputDown
	InputSelect
	InputBack
	InputChar
)

type State int

const (
	Idle State = iota
	Scanning
	NetworkList
	EnterPassword
	Connecting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Scanning:
		return "SCANNING"
	case NetworkList:
		return "NETWORK LIST"
	case EnterPassword:
		return "ENTER PASSWORD"
	case Connecting:
		return "CONNECTING"
	case Success:
		return "SUCCESS"
	case Failed:
		return "FAILED"
	default:
		return "INVALID STATE"
	}
}

// Display renders the GUI. Implementations only draw; all state lives in
// the GUI itself.
type Display interface {
	Clear()
	ShowText(line int, text string)
	ShowNetworks(results []wifi.ScanResult, selected int)
	ShowPasswordEntry(ssid wifi.SSID, masked string)
	Update()
}

type Config struct {
	Scanner *scanner.Scanner
	Display Display

	// Submit receives the captured credentials, the same handoff the
	// HTTP portal uses.
	Submit func(credentials wifi.Credentials)

	ScanTimeout time.Duration
	Logger      Logger
}

// GUI walks the operator through picking a network and entering its
// passphrase on the device itself.
type GUI struct {
	log         Logger
	scanner     *scanner.Scanner
	display     Display
	submit      func(credentials wifi.Credentials)
	scanTimeout time.Duration

	mtx      sync.Mutex
	state    State
	selected int
	ssid     wifi.SSID
	password string
}

func New(config *Config) *GUI {
	g := &GUI{
		scanner:     config.Scanner,
		display:     config.Display,
		submit:      config.Submit,
		scanTimeout: config.ScanTimeout,
		state:       Idle,
	}

	if config.Logger != nil {
		g.log = config.Logger
	} else {
		g.log = noopLogger{}
	}

	return g
}

// Start scans and shows the network list.
func (g *GUI) Start() error {
	g.mtx.Lock()
	g.state = Scanning
	g.selected = 0
	g.ssid = ""
	g.password = ""
	g.mtx.Unlock()

	g.refresh()

	err := g.scanner.Scan(g.scanTimeout)
	if err != nil {
		g.log.Errorf("Could not scan: %v", err)

		g.mtx.Lock()
		g.state = Failed
		g.mtx.Unlock()

		g.refresh()

		return err
	}

	g.mtx.Lock()
	g.state = NetworkList
	g.mtx.Unlock()

	g.refresh()

	return nil
}

func (g *GUI) Stop() error {
	g.mtx.Lock()
	g.state = Idle
	g.mtx.Unlock()

	g.display.Clear()
	g.display.Update()

	return nil
}

func (g *GUI) State() State {
	g.mtx.Lock()
	defer g.mtx.Unlock()

	return g.state
}

// HandleInput advances the capture flow on a user action. An open network
// is submitted right away; secured networks go through password entry.
func (g *GUI) HandleInput(input Input, char byte) {
	g.mtx.Lock()

	switch g.state {
	case NetworkList:
		results := g.scanner.Results()

		switch input {
		case InputUp:
			if g.selected > 0 {
				g.selected--
			}
		case InputDown:
			if g.selected < len(results)-1 {
				g.selected++
			}
		case InputSelect:
			if g.selected < len(results) {
				result := results[g.selected]
				g.ssid = result.SSID
				g.password = ""

				if result.Security == wifi.SecurityOpen {
					g.state = Connecting
					g.mtx.Unlock()

					g.refresh()
					g.submit(wifi.Credentials{SSID: g.ssid})

					return
				}

				g.state = EnterPassword
			}
		}
	case EnterPassword:
		switch input {
		case InputChar:
			if char != 0 && len(g.password) < wifi.MaxPassphraseLen {
				g.password += string(char)
			}
		case InputBack:
			if len(g.password) > 0 {
				g.password = g.password[:len(g.password)-1]
			} else {
				g.state = NetworkList
			}
		case InputSelect:
			credentials := wifi.Credentials{
				SSID:       g.ssid,
				Passphrase: wifi.Passphrase(g.password),
			}

			g.state = Connecting
			g.mtx.Unlock()

			g.refresh()
			g.submit(credentials)

			return
		}
	case Failed:
		if input == InputBack {
			g.mtx.Unlock()

			_ = g.Start()

			return
		}
	}

	g.mtx.Unlock()

	g.refresh()
}

// SetConnected resolves the Connecting screen once the orchestrator knows
// the outcome.
func (g *GUI) SetConnected(connected bool) {
	g.mtx.Lock()

	if g.state != Connecting {
		g.mtx.Unlock()
		return
	}

	if connected {
		g.state = Success
	} else {
		g.state = Failed
	}

	g.mtx.Unlock()

	g.refresh()
}

func (g *GUI) refresh() {
	g.mtx.Lock()
	state := g.state
	selected := g.selected
	ssid := g.ssid
	masked := strings.Repeat("*", len(g.password))
	g.mtx.Unlock()

	g.display.Clear()

	switch state {
	case Scanning:
		g.display.ShowText(0, "WiFi Setup")
		g.display.ShowText(1, "Scanning...")
	case NetworkList:
		results := g.scanner.Results()
		if len(results) > 0 {
			g.display.ShowNetworks(results, selected)
		} else {
			g.display.ShowText(0, "No networks found")
			g.display.ShowText(1, "Press BACK to rescan")
		}
	case EnterPassword:
		g.display.ShowPasswordEntry(ssid, masked)
	case Connecting:
		g.display.ShowText(0, "Connecting...")
		g.display.ShowText(1, ssid.String())
	case Success:
		g.display.ShowText(0, "Connected!")
		g.display.ShowText(1, ssid.String())
	case Failed:
		g.display.ShowText(0, "Connection failed")
		g.display.ShowText(1, "Press BACK to retry")
	}

	g.display.Update()
}

// FormatNetwork is the single-line rendering displays use for list rows.
func FormatNetwork(result wifi.ScanResult) string {
	return fmt.Sprintf("%-32s %4d dBm %s", result.SSID, result.RSSI, result.Security.Label())
}

// The GUI can serve as the device's front end instead of the HTTP portal.

func (g *GUI) StartSetup() error {
	return g.Start()
}

func (g *GUI) StartStatus() error {
	g.SetConnected(true)
	return nil
}
