package portal

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/picolight/provd/wifi"
	"github.com/stretchr/testify/require"
)

func newTestPortal(t *testing.T, networks []wifi.ScanResult, status Status) (*Portal, *wifi.Credentials) {
	t.Helper()

	submitted := &wifi.Credentials{}

	p := NewPortal(&Config{
		Listen:   "127.0.0.1:0",
		Networks: func() []wifi.ScanResult { return networks },
		Submit:   func(credentials wifi.Credentials) { *submitted = credentials },
		Status:   func() Status { return status },
	})

	return p, submitted
}

func (p *Portal) setMode(mode pageMode) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	p.mode = mode
}

func TestSetupPageListsNetworks(t *testing.T) {
	p, _ := newTestPortal(t, []wifi.ScanResult{
		{SSID: "Example Cafe", RSSI: -42, Security: wifi.SecurityPSK},
		{SSID: "Example Guest", RSSI: -61, Security: wifi.SecurityOpen},
	}, Status{})
	p.setMode(setup)

	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	require.Contains(t, body, "Example Cafe")
	require.Contains(t, body, "WPA2-PSK")
	require.Contains(t, body, "Example Guest")
	require.Contains(t, body, "Open")
	require.Contains(t, body, "-42 dBm")
}

func TestSetupPageWithoutNetworks(t *testing.T) {
	p, _ := newTestPortal(t, nil, Status{})
	p.setMode(setup)

	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	// manual entry still works when the scan came up empty
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Enter Credentials")
	require.NotContains(t, rec.Body.String(), "Available Networks")
}

func postForm(p *Portal, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/connect", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, req)

	return rec
}

func TestConnectSubmits(t *testing.T) {
	p, submitted := newTestPortal(t, nil, Status{})
	p.setMode(setup)

	rec := postForm(p, url.Values{
		"ssid":     {"Home"},
		"password": {"secret123"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Home")

	require.Equal(t, wifi.SSID("Home"), submitted.SSID)
	require.Equal(t, wifi.Passphrase("secret123"), submitted.Passphrase)
}

func TestConnectRequiresSSID(t *testing.T) {
	p, submitted := newTestPortal(t, nil, Status{})
	p.setMode(setup)

	rec := postForm(p, url.Values{
		"password": {"secret123"},
	})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, submitted.SSID)
}

func TestConnectTruncatesOversizedInput(t *testing.T) {
	p, submitted := newTestPortal(t, nil, Status{})
	p.setMode(setup)

	rec := postForm(p, url.Values{
		"ssid":     {strings.Repeat("s", wifi.MaxSSIDLen+10)},
		"password": {strings.Repeat("p", wifi.MaxPassphraseLen+10)},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, string(submitted.SSID), wifi.MaxSSIDLen)
	require.Len(t, string(submitted.Passphrase), wifi.MaxPassphraseLen)
}

func TestStatusPage(t *testing.T) {
	p, _ := newTestPortal(t, nil, Status{Connected: true, SSID: "Home"})
	p.setMode(status)

	rec := httptest.NewRecorder()
	p.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Connected to Home")
}

func TestConnectRefusedOnStatusPage(t *testing.T) {
	p, submitted := newTestPortal(t, nil, Status{Connected: true, SSID: "Home"})
	p.setMode(status)

	rec := postForm(p, url.Values{
		"ssid": {"Other"},
	})

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Empty(t, submitted.SSID)
}

func TestStartStopLifecycle(t *testing.T) {
	p, _ := newTestPortal(t, nil, Status{})

	require.NoError(t, p.StartSetup())

	addr := p.listener.Addr().String()

	resp, err := http.Get(fmt.Sprintf("http://%v/", addr))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// switching to the status page reuses the running listener
	require.NoError(t, p.StartStatus())
	require.Equal(t, status, p.currentMode())

	require.NoError(t, p.Stop())
	require.Equal(t, stopped, p.currentMode())

	// stopping twice is fine
	require.NoError(t, p.Stop())
}
