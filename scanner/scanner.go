package scanner

import (
	"sync"
	"time"

	"github.com/go-errors/errors"
	"github.com/picolight/provd/radio"
	"github.com/picolight/provd/wifi"
)

const (
	// MaxResults bounds the result buffer. Later results of a scan are
	// silently dropped once it is full.
	MaxResults = 32

	// DefaultTimeout is used when Scan is called with a zero timeout.
	DefaultTimeout = 10 * time.Second

	// statusTimeout is the session status recorded when the caller gave
	// up waiting. The underlying scan is not cancelled.
	statusTimeout = -1

	// statusRequestFailed is recorded when the scan request itself was
	// refused, so no notification is owed.
	statusRequestFailed = -2
)

var (
	ErrBusy             = errors.New("scan already in progress")
	ErrTimeout          = errors.New("scan timed out")
	ErrHardwareRejected = errors.New("scan rejected by hardware")
)

type State int

const (
	Idle State = iota
	Scanning
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Scanning:
		return "SCANNING"
	case Complete:
		return "COMPLETE"
	case Failed:
		return "FAILED"
	default:
		return "INVALID STATE"
	}
}

type Config struct {
	Radio  radio.Radio
	Logger Logger
}

// Scanner drives one hardware scan at a time to completion. It owns the
// bounded result buffer; results and completion arrive as radio events and
// are only ever mutated by the event handler.
type Scanner struct {
	log    Logger
	radio  radio.Radio
	events *radio.EventClient

	mtx        sync.Mutex
	state      State
	status     int
	results    []wifi.ScanResult
	generation uint64
	stale      int
	done       chan int
}

func New(config *Config) *Scanner {
	s := &Scanner{
		radio: config.Radio,
		state: Idle,
	}

	if config.Logger != nil {
		s.log = config.Logger
	} else {
		s.log = noopLogger{}
	}

	return s
}

// Start registers for scan notifications.
func (s *Scanner) Start() error {
	events := s.radio.Subscribe()
	s.events = events

	go s.deliverEvents(events)

	return nil
}

func (s *Scanner) Stop() error {
	if s.events != nil {
		s.events.Cancel()
		s.events = nil
	}

	return nil
}

// Scan clears prior results, issues a scan request and blocks until the
// done notification fires or timeout elapses. On timeout the session is
// forced to Failed, but the hardware scan is not cancelled; a late done
// notification is discarded by the event handler.
func (s *Scanner) Scan(timeout time.Duration) error {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	s.mtx.Lock()

	if s.state == Scanning {
		s.mtx.Unlock()
		return ErrBusy
	}

	s.results = nil
	s.state = Scanning
	s.status = 0
	s.generation++

	generation := s.generation

	// fresh single-slot channel, reset right before the request goes out
	done := make(chan int, 1)
	s.done = done

	s.mtx.Unlock()

	s.log.Infof("Starting scan...")

	err := s.radio.Scan()
	if err != nil {
		s.mtx.Lock()
		if s.generation == generation {
			s.state = Failed
			s.status = statusRequestFailed
		}
		s.mtx.Unlock()

		return errors.Errorf("could not request scan: %v", err)
	}

	select {
	case status := <-done:
		if status != 0 {
			s.log.Errorf("Scan failed with status %v", status)
			return ErrHardwareRejected
		}

		return nil
	case <-time.After(timeout):
		s.mtx.Lock()
		if s.generation == generation && s.state == Scanning {
			s.state = Failed
			s.status = statusTimeout

			// the hardware still owes this scan a done notification;
			// events arrive in request order, so the handler discards
			// exactly this many before trusting a done again
			s.stale++
		}
		s.mtx.Unlock()

		s.log.Errorf("Scan timed out after %v", timeout)

		return ErrTimeout
	}
}

func (s *Scanner) deliverEvents(events *radio.EventClient) {
	for event := range events.Events {
		switch ev := event.(type) {
		case radio.ScanResultEvent:
			s.addResult(ev.Result)
		case radio.ScanDoneEvent:
			s.finishScan(ev.Status)
		}
	}
}

func (s *Scanner) addResult(result wifi.ScanResult) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.stale > 0 || s.state != Scanning {
		// result of an abandoned scan or of one nobody waits for anymore
		return
	}

	if len(s.results) >= MaxResults {
		s.log.Debugf("Result buffer full, dropping %v", result.SSID)
		return
	}

	s.results = append(s.results, result)
}

func (s *Scanner) finishScan(status int) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.stale > 0 {
		// done notification owed by a scan whose caller already gave up
		s.stale--
		s.log.Debugf("Discarding done notification of an abandoned scan")
		return
	}

	if s.state != Scanning {
		s.log.Debugf("Ignoring scan done notification with no scan in flight")
		return
	}

	if status == 0 {
		s.state = Complete
		s.log.Infof("Scan complete, found %v networks", len(s.results))
	} else {
		s.state = Failed
		s.log.Errorf("Scan failed with status %v", status)
	}

	s.status = status

	select {
	case s.done <- status:
	default:
	}
}

// Results returns a copy of the current result buffer.
func (s *Scanner) Results() []wifi.ScanResult {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	results := make([]wifi.ScanResult, len(s.results))
	copy(results, s.results)

	return results
}

func (s *Scanner) ClearResults() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.results = nil
}

func (s *Scanner) State() State {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.state
}

// Status returns the driver code of the last finished scan.
func (s *Scanner) Status() int {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.status
}
