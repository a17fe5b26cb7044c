package scanner

import (
	"fmt"
	"testing"
	"time"

	"github.com/go-errors/errors"
	"github.com/picolight/provd/radio"
	"github.com/picolight/provd/wifi"
	"github.com/stretchr/testify/require"
)

func testNetworks(count int) []wifi.ScanResult {
	networks := make([]wifi.ScanResult, count)
	for i := range networks {
		networks[i] = wifi.ScanResult{
			SSID:     wifi.SSID(fmt.Sprintf("network-%d", i)),
			RSSI:     int8(-40 - i),
			Channel:  uint8(i%11 + 1),
			Security: wifi.SecurityPSK,
		}
	}
	return networks
}

func startScanner(t *testing.T, cfg *radio.MockRadioConfig) (*Scanner, *radio.MockRadio) {
	t.Helper()

	r := radio.NewMockRadio(cfg)
	s := New(&Config{Radio: r})

	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	return s, r
}

func TestScanCollectsResults(t *testing.T) {
	s, _ := startScanner(t, &radio.MockRadioConfig{
		Networks: testNetworks(3),
	})

	err := s.Scan(time.Second)
	require.NoError(t, err)

	require.Equal(t, Complete, s.State())
	require.Equal(t, 0, s.Status())

	results := s.Results()
	require.Len(t, results, 3)
	require.Equal(t, wifi.SSID("network-0"), results[0].SSID)
	require.Equal(t, wifi.SSID("network-2"), results[2].SSID)
}

func TestScanBusy(t *testing.T) {
	s, _ := startScanner(t, &radio.MockRadioConfig{
		Networks:  testNetworks(1),
		ScanDelay: 200 * time.Millisecond,
	})

	first := make(chan error, 1)
	go func() {
		first <- s.Scan(time.Second)
	}()

	// wait until the first scan is in flight
	require.Eventually(t, func() bool {
		return s.State() == Scanning
	}, time.Second, 5*time.Millisecond)

	err := s.Scan(time.Second)
	require.ErrorIs(t, err, ErrBusy)

	require.NoError(t, <-first)
}

func TestScanBoundsResultBuffer(t *testing.T) {
	s, _ := startScanner(t, &radio.MockRadioConfig{
		Networks: testNetworks(MaxResults + 8),
	})

	err := s.Scan(time.Second)
	require.NoError(t, err)

	results := s.Results()
	require.Len(t, results, MaxResults)

	// earliest results win, later ones are dropped
	require.Equal(t, wifi.SSID("network-0"), results[0].SSID)
	require.Equal(t, wifi.SSID(fmt.Sprintf("network-%d", MaxResults-1)), results[MaxResults-1].SSID)
}

func TestScanClearsPriorResults(t *testing.T) {
	s, _ := startScanner(t, &radio.MockRadioConfig{
		Networks: testNetworks(4),
	})

	require.NoError(t, s.Scan(time.Second))
	require.Len(t, s.Results(), 4)

	require.NoError(t, s.Scan(time.Second))
	require.Len(t, s.Results(), 4)
}

func TestScanTimeout(t *testing.T) {
	s, r := startScanner(t, &radio.MockRadioConfig{
		Networks:     testNetworks(2),
		DropScanDone: true,
	})

	err := s.Scan(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	require.Equal(t, Failed, s.State())
	require.Equal(t, -1, s.Status())

	// partial results stay readable after a timeout
	require.Len(t, s.Results(), 2)

	// a done notification arriving after the caller gave up changes nothing
	r.Emit(radio.ScanDoneEvent{Status: 0})

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, Failed, s.State())
	require.Equal(t, -1, s.Status())
}

func TestStaleScanDoneDoesNotFinishNextScan(t *testing.T) {
	s, r := startScanner(t, &radio.MockRadioConfig{
		DropScanDone: true,
	})

	// the first scan times out, its done notification is still owed
	err := s.Scan(50 * time.Millisecond)
	require.ErrorIs(t, err, ErrTimeout)

	second := make(chan error, 1)
	go func() {
		second <- s.Scan(time.Second)
	}()

	require.Eventually(t, func() bool {
		return s.State() == Scanning
	}, time.Second, 5*time.Millisecond)

	// the abandoned scan's late done must not complete the new one
	r.Emit(radio.ScanDoneEvent{Status: 0})

	select {
	case err := <-second:
		t.Fatalf("scan finished on a stale notification: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	// the next done notification is the real one
	r.Emit(radio.ScanDoneEvent{Status: 0})

	require.NoError(t, <-second)
	require.Equal(t, Complete, s.State())
}

func TestStaleResultsDiscarded(t *testing.T) {
	s, r := startScanner(t, &radio.MockRadioConfig{
		DropScanDone: true,
	})

	require.ErrorIs(t, s.Scan(50*time.Millisecond), ErrTimeout)

	second := make(chan error, 1)
	go func() {
		second <- s.Scan(time.Second)
	}()

	require.Eventually(t, func() bool {
		return s.State() == Scanning
	}, time.Second, 5*time.Millisecond)

	// stragglers of the abandoned scan arrive before its done notification
	// and must not land in the new scan's buffer
	r.Emit(radio.ScanResultEvent{Result: wifi.ScanResult{SSID: "straggler"}})
	r.Emit(radio.ScanDoneEvent{Status: 0})
	r.Emit(radio.ScanResultEvent{Result: wifi.ScanResult{SSID: "fresh"}})
	r.Emit(radio.ScanDoneEvent{Status: 0})

	require.NoError(t, <-second)

	results := s.Results()
	require.Len(t, results, 1)
	require.Equal(t, wifi.SSID("fresh"), results[0].SSID)
}

func TestScanRequestFails(t *testing.T) {
	s, _ := startScanner(t, &radio.MockRadioConfig{
		ScanError: errors.New("driver gone"),
	})

	err := s.Scan(time.Second)
	require.Error(t, err)

	require.Equal(t, Failed, s.State())

	// the request never reached the hardware, so the status must not
	// pretend a timeout happened
	require.Equal(t, statusRequestFailed, s.Status())
}

func TestScanHardwareRejected(t *testing.T) {
	s, _ := startScanner(t, &radio.MockRadioConfig{
		ScanStatus: 5,
	})

	err := s.Scan(time.Second)
	require.ErrorIs(t, err, ErrHardwareRejected)

	require.Equal(t, Failed, s.State())
	require.Equal(t, 5, s.Status())
}

func TestLateResultIgnored(t *testing.T) {
	s, r := startScanner(t, &radio.MockRadioConfig{
		Networks: testNetworks(2),
	})

	require.NoError(t, s.Scan(time.Second))
	require.Len(t, s.Results(), 2)

	r.Emit(radio.ScanResultEvent{Result: wifi.ScanResult{SSID: "straggler"}})

	time.Sleep(50 * time.Millisecond)
	require.Len(t, s.Results(), 2)
}

func TestClearResults(t *testing.T) {
	s, _ := startScanner(t, &radio.MockRadioConfig{
		Networks: testNetworks(2),
	})

	require.NoError(t, s.Scan(time.Second))
	require.Len(t, s.Results(), 2)

	s.ClearResults()
	require.Empty(t, s.Results())
}

func TestStateString(t *testing.T) {
	require.Equal(t, "IDLE", Idle.String())
	require.Equal(t, "SCANNING", Scanning.String())
	require.Equal(t, "COMPLETE", Complete.String())
	require.Equal(t, "FAILED", Failed.String())
}
