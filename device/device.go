package device

import (
	"time"

	"github.com/go-errors/errors"
	"github.com/picolight/provd/accesspoint"
	"github.com/picolight/provd/provdb"
	"github.com/picolight/provd/scanner"
	"github.com/picolight/provd/station"
	"github.com/picolight/provd/wifi"
)

const (
	// DefaultScanTimeout bounds the best-effort scan before the portal
	// opens.
	DefaultScanTimeout = 10 * time.Second

	// DefaultRadioGrace is how long the radio gets to fully release the
	// SoftAP before a station connect is attempted. Concurrent AP and
	// station negotiation is unreliable on the supported hardware.
	DefaultRadioGrace = 2 * time.Second
)

// FrontEnd is the companion credential-serving surface, either the HTTP
// portal or the on-device GUI. During provisioning it captures credentials;
// once connected it only shows status.
type FrontEnd interface {
	StartSetup() error
	StartStatus() error
	Stop() error
}

type Config struct {
	DB          *provdb.DB
	Scanner     *scanner.Scanner
	AccessPoint *accesspoint.Controller
	Station     *station.Manager
	FrontEnd    FrontEnd
	ScanTimeout time.Duration
	RadioGrace  time.Duration
	Logger      Logger
}

// Device is the provisioning orchestrator. A single goroutine inside Run
// makes all mode decisions; hardware notifications and front end
// submissions only ever hand it signals.
type Device struct {
	log         Logger
	db          *provdb.DB
	scanner     *scanner.Scanner
	accessPoint *accesspoint.Controller
	station     *station.Manager
	frontEnd    FrontEnd
	scanTimeout time.Duration
	radioGrace  time.Duration

	mode      *mode
	bootCount uint32

	credsReady     chan struct{}
	retryConnect   chan struct{}
	provisionStart chan struct{}
	provisionStop  chan struct{}
	done           chan struct{}
}

func NewDevice(config *Config) *Device {
	d := &Device{
		db:             config.DB,
		scanner:        config.Scanner,
		accessPoint:    config.AccessPoint,
		station:        config.Station,
		frontEnd:       config.FrontEnd,
		scanTimeout:    config.ScanTimeout,
		radioGrace:     config.RadioGrace,
		mode:           newMode(),
		credsReady:     make(chan struct{}, 1),
		retryConnect:   make(chan struct{}, 1),
		provisionStart: make(chan struct{}, 1),
		provisionStop:  make(chan struct{}, 1),
		done:           make(chan struct{}),
	}

	if d.scanTimeout == 0 {
		d.scanTimeout = DefaultScanTimeout
	}

	if d.radioGrace == 0 {
		d.radioGrace = DefaultRadioGrace
	}

	if d.frontEnd == nil {
		d.frontEnd = noopFrontEnd{}
	}

	if config.Logger != nil {
		d.log = config.Logger
	} else {
		d.log = noopLogger{}
	}

	return d
}

// Run decides the boot mode and then loops for the device's operational
// lifetime, reacting to credential submissions and operator triggers. It
// blocks until Shutdown is called.
func (d *Device) Run() error {
	count, err := d.db.IncrementBootCount()
	if err != nil {
		d.log.Warnf("Could not increment boot count: %v", err)
	} else {
		d.bootCount = count
		d.log.Infof("Boot #%v", count)
	}

	credentials, err := d.db.GetCredentials()
	if err != nil {
		d.log.Warnf("Could not read stored credentials: %v", err)
	}

	if credentials != nil {
		d.log.Infof("Found stored credentials for %v", credentials.SSID)
		d.enterStationMode(*credentials)
	} else {
		d.log.Infof("No stored credentials, provisioning needed")
		d.enterProvisioningMode()
	}

	for {
		select {
		case <-d.credsReady:
			d.handleCredentials()
		case <-d.retryConnect:
			d.handleRetry()
		case <-d.provisionStart:
			d.enterProvisioningMode()
		case <-d.provisionStop:
			d.leaveProvisioningMode()
		case <-d.done:
			return nil
		}
	}
}

func (d *Device) Shutdown() {
	if err := d.frontEnd.Stop(); err != nil {
		d.log.Warnf("Could not stop front end: %v", err)
	}

	if err := d.accessPoint.Stop(); err != nil && err != accesspoint.ErrNotActive {
		d.log.Warnf("Could not stop access point: %v", err)
	}

	close(d.done)
}

// enterStationMode attempts exactly one connect with the given credentials.
// A failure leaves the device connectable-but-unconfigured rather than
// auto-falling back to AP mode, so transient failures don't churn the
// radio; the operator retries through the command surface.
func (d *Device) enterStationMode(credentials wifi.Credentials) {
	d.mode.set(StationMode)

	err := d.station.Connect(credentials)
	if err != nil {
		d.log.Errorf("Could not connect to %v: %v", credentials.SSID, err)
		return
	}

	if err := d.frontEnd.StartStatus(); err != nil {
		d.log.Warnf("Could not start status front end: %v", err)
	}
}

// enterProvisioningMode opens the portal: best-effort scan, SoftAP, front
// end. When the hardware has no AP mode the device stays in a degraded
// provisioning mode where only the command surface feeds credentials in.
func (d *Device) enterProvisioningMode() {
	d.mode.set(ProvisioningMode)

	err := d.scanner.Scan(d.scanTimeout)
	if err != nil {
		// non-fatal, the portal just opens without a network list
		d.log.Warnf("Could not scan: %v", err)
	}

	err = d.accessPoint.Start(d.onCredentials)
	switch err {
	case nil:
		d.mode.setDegraded(false)
	case accesspoint.ErrAlreadyActive:
		d.log.Debugf("Access point still active, reusing it")
		d.mode.setDegraded(false)
	case accesspoint.ErrUnsupported:
		d.log.Warnf("Hardware has no AP mode, credentials can only arrive via the command surface")
		d.mode.setDegraded(true)
	default:
		d.log.Errorf("Could not start access point: %v", err)
		d.mode.setDegraded(true)
	}

	if !d.mode.degraded() {
		if err := d.frontEnd.StartSetup(); err != nil {
			d.log.Warnf("Could not start setup front end: %v", err)
		}
	}

	// from here on the loop blocks until onCredentials fires
}

func (d *Device) leaveProvisioningMode() {
	if err := d.frontEnd.Stop(); err != nil {
		d.log.Warnf("Could not stop front end: %v", err)
	}

	err := d.accessPoint.Stop()
	if err != nil && err != accesspoint.ErrNotActive {
		d.log.Warnf("Could not stop access point: %v", err)
	}
}

// onCredentials runs on the submitting front end's goroutine, so it only
// signals the orchestrator and returns.
func (d *Device) onCredentials(credentials wifi.Credentials) {
	select {
	case d.credsReady <- struct{}{}:
	default:
	}
}

// handleCredentials consumes the pending submission: persist first, then
// tear down the portal, give the radio its grace period and try the new
// credentials in station mode. Failure reopens the portal; the retry is
// unbounded in count but always gated by a fresh submission.
func (d *Device) handleCredentials() {
	credentials, ok := d.accessPoint.TakeCredentials()
	if !ok {
		return
	}

	d.log.Infof("Provisioning with new credentials for %v", credentials.SSID)

	err := d.db.SetCredentials(&credentials)
	if err != nil {
		d.log.Errorf("Could not persist credentials: %v", err)
	}

	d.leaveProvisioningMode()

	// let the radio fully release the AP before negotiating as a station
	time.Sleep(d.radioGrace)

	d.mode.set(Reprovisioning)

	err = d.station.Connect(credentials)
	if err != nil {
		// a timeout is treated as failure here even though the connect
		// might still complete in hardware
		d.log.Errorf("Could not connect with new credentials: %v", err)
		d.enterProvisioningMode()
		return
	}

	d.mode.set(StationMode)

	if err := d.frontEnd.StartStatus(); err != nil {
		d.log.Warnf("Could not start status front end: %v", err)
	}
}

func (d *Device) handleRetry() {
	credentials, err := d.db.GetCredentials()
	if err != nil {
		d.log.Errorf("Could not read stored credentials: %v", err)
		return
	}

	if credentials == nil {
		d.log.Warnf("No stored credentials to retry with")
		return
	}

	d.enterStationMode(*credentials)
}

// Mode returns the current orchestration mode for status queries.
func (d *Device) Mode() Mode {
	return d.mode.get()
}

// Degraded reports whether provisioning runs without a SoftAP.
func (d *Device) Degraded() bool {
	return d.mode.degraded()
}

func (d *Device) Connected() bool {
	return d.station.Connected()
}

func (d *Device) BootCount() uint32 {
	return d.bootCount
}

// Networks returns the scanner's current view for front end rendering.
func (d *Device) Networks() []wifi.ScanResult {
	return d.scanner.Results()
}

// Scan triggers a synchronous scan on behalf of the command surface.
func (d *Device) Scan(timeout time.Duration) error {
	return d.scanner.Scan(timeout)
}

// SubmitCredentials feeds credentials in through the same path the front
// ends use. This keeps working in degraded provisioning mode.
func (d *Device) SubmitCredentials(credentials wifi.Credentials) error {
	if credentials.SSID == "" {
		return station.ErrInvalidArgument
	}

	d.accessPoint.SetCredentials(credentials)

	return nil
}

// StoredCredentials exposes the persisted pair to the command surface.
func (d *Device) StoredCredentials() (*wifi.Credentials, error) {
	return d.db.GetCredentials()
}

func (d *Device) SetStoredCredentials(credentials wifi.Credentials) error {
	if credentials.SSID == "" {
		return station.ErrInvalidArgument
	}

	return d.db.SetCredentials(&credentials)
}

func (d *Device) DeleteStoredCredentials() error {
	return d.db.DeleteCredentials()
}

// RetryConnect asks the orchestrator to try the stored credentials again.
func (d *Device) RetryConnect() error {
	if d.mode.get() != StationMode {
		return errors.New("not in station mode")
	}

	select {
	case d.retryConnect <- struct{}{}:
	default:
	}

	return nil
}

// StartProvisioning asks the orchestrator to open the portal.
func (d *Device) StartProvisioning() error {
	if d.mode.get() == ProvisioningMode {
		return accesspoint.ErrAlreadyActive
	}

	select {
	case d.provisionStart <- struct{}{}:
	default:
	}

	return nil
}

// StopProvisioning asks the orchestrator to close the portal again.
func (d *Device) StopProvisioning() error {
	if d.mode.get() != ProvisioningMode {
		return accesspoint.ErrNotActive
	}

	select {
	case d.provisionStop <- struct{}{}:
	default:
	}

	return nil
}

type noopFrontEnd struct{}

func (noopFrontEnd) StartSetup() error  { return nil }
func (noopFrontEnd) StartStatus() error { return nil }
func (noopFrontEnd) Stop() error        { return nil }
