package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/picolight/provd/accesspoint"
	"github.com/picolight/provd/device"
	"github.com/picolight/provd/provdb"
	"github.com/picolight/provd/provdlog"
	"github.com/picolight/provd/radio"
	"github.com/picolight/provd/scanner"
	"github.com/picolight/provd/station"
	"github.com/picolight/provd/wifi"
	"github.com/stretchr/testify/require"
)

type testApi struct {
	api         *Api
	device      *device.Device
	db          *provdb.DB
	accessPoint *accesspoint.Controller
}

// newTestApi wires a full device on a mock radio behind the command
// surface. With stored credentials the device boots straight into station
// mode.
func newTestApi(t *testing.T, radioCfg *radio.MockRadioConfig, stored *wifi.Credentials) *testApi {
	t.Helper()

	db, err := provdb.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	if stored != nil {
		require.NoError(t, db.SetCredentials(stored))
	}

	r := radio.NewMockRadio(radioCfg)

	sc := scanner.New(&scanner.Config{Radio: r})
	require.NoError(t, sc.Start())
	t.Cleanup(func() { _ = sc.Stop() })

	ap := accesspoint.NewController(&accesspoint.Config{Radio: r})
	require.NoError(t, ap.Init())
	t.Cleanup(ap.Shutdown)

	st := station.NewManager(&station.Config{
		Radio:   r,
		Timeout: 500 * time.Millisecond,
	})
	require.NoError(t, st.Start())
	t.Cleanup(func() { _ = st.Stop() })

	d := device.NewDevice(&device.Config{
		DB:          db,
		Scanner:     sc,
		AccessPoint: ap,
		Station:     st,
		ScanTimeout: 200 * time.Millisecond,
		RadioGrace:  time.Millisecond,
	})

	finished := make(chan error, 1)
	go func() {
		finished <- d.Run()
	}()

	t.Cleanup(func() {
		d.Shutdown()

		select {
		case <-finished:
		case <-time.After(2 * time.Second):
			t.Error("device did not shut down")
		}
	})

	a := New(&Config{ProvdLog: provdlog.New()})
	a.SetDevice(d)

	return &testApi{api: a, device: d, db: db, accessPoint: ap}
}

func waitForMode(t *testing.T, d *device.Device, want device.Mode) {
	t.Helper()

	require.Eventually(t, func() bool {
		return d.Mode() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func (ta *testApi) request(t *testing.T, method string, path string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	ta.api.Router().ServeHTTP(rec, req)

	return rec
}

func TestGetStatus(t *testing.T) {
	ta := newTestApi(t, nil, &wifi.Credentials{SSID: "Home", Passphrase: "secret123"})
	waitForMode(t, ta.device, device.StationMode)

	require.Eventually(t, func() bool {
		return ta.device.Connected()
	}, 2*time.Second, 5*time.Millisecond)

	rec := ta.request(t, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Mode      string `json:"mode"`
		Degraded  bool   `json:"degraded"`
		Connected bool   `json:"connected"`
		BootCount uint32 `json:"bootCount"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	require.Equal(t, "STATION", res.Mode)
	require.False(t, res.Degraded)
	require.True(t, res.Connected)
	require.Equal(t, uint32(1), res.BootCount)
}

func TestScanAndNetworks(t *testing.T) {
	ta := newTestApi(t, &radio.MockRadioConfig{
		Networks: []wifi.ScanResult{
			{SSID: "Example Cafe", RSSI: -42, Channel: 1, Security: wifi.SecurityPSK},
			{SSID: "Example Guest", RSSI: -61, Channel: 6, Security: wifi.SecurityOpen},
		},
	}, &wifi.Credentials{SSID: "Home"})
	waitForMode(t, ta.device, device.StationMode)

	rec := ta.request(t, http.MethodPost, "/api/v1/scan", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var networks []struct {
		SSID     string `json:"ssid"`
		RSSI     int8   `json:"rssi"`
		Security string `json:"security"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &networks))
	require.Len(t, networks, 2)
	require.Equal(t, "Example Cafe", networks[0].SSID)
	require.Equal(t, "WPA2-PSK", networks[0].Security)

	rec = ta.request(t, http.MethodGet, "/api/v1/networks", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &networks))
	require.Len(t, networks, 2)
}

func TestCredentialsEndpoints(t *testing.T) {
	ta := newTestApi(t, nil, &wifi.Credentials{SSID: "Home", Passphrase: "secret123"})
	waitForMode(t, ta.device, device.StationMode)

	// reading never leaks the passphrase
	rec := ta.request(t, http.MethodGet, "/api/v1/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Home")
	require.NotContains(t, rec.Body.String(), "secret123")

	rec = ta.request(t, http.MethodPut, "/api/v1/credentials", `{"ssid":"Other","passphrase":"hunter2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	credentials, err := ta.db.GetCredentials()
	require.NoError(t, err)
	require.Equal(t, wifi.SSID("Other"), credentials.SSID)

	rec = ta.request(t, http.MethodDelete, "/api/v1/credentials", "")
	require.Equal(t, http.StatusOK, rec.Code)

	credentials, err = ta.db.GetCredentials()
	require.NoError(t, err)
	require.Nil(t, credentials)

	// deleting again maps onto 404
	rec = ta.request(t, http.MethodDelete, "/api/v1/credentials", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutCredentialsValidation(t *testing.T) {
	ta := newTestApi(t, nil, &wifi.Credentials{SSID: "Home"})
	waitForMode(t, ta.device, device.StationMode)

	oversized := strings.Repeat("s", wifi.MaxSSIDLen+1)
	rec := ta.request(t, http.MethodPut, "/api/v1/credentials", `{"ssid":"`+oversized+`"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ta.request(t, http.MethodPut, "/api/v1/credentials", `{"ssid":""}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitCredentialsProvisions(t *testing.T) {
	ta := newTestApi(t, nil, nil)
	waitForMode(t, ta.device, device.ProvisioningMode)

	// wait for the access point before submitting
	require.Eventually(t, func() bool {
		return ta.accessPoint.State() == accesspoint.Active
	}, 2*time.Second, 5*time.Millisecond)

	rec := ta.request(t, http.MethodPost, "/api/v1/credentials", `{"ssid":"Home","passphrase":"secret123"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	waitForMode(t, ta.device, device.StationMode)

	credentials, err := ta.db.GetCredentials()
	require.NoError(t, err)
	require.NotNil(t, credentials)
	require.Equal(t, wifi.SSID("Home"), credentials.SSID)
}

func TestProvisionEndpoints(t *testing.T) {
	ta := newTestApi(t, nil, &wifi.Credentials{SSID: "Home"})
	waitForMode(t, ta.device, device.StationMode)

	// no portal to stop yet
	rec := ta.request(t, http.MethodDelete, "/api/v1/provision", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ta.request(t, http.MethodPost, "/api/v1/provision", "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	waitForMode(t, ta.device, device.ProvisioningMode)

	rec = ta.request(t, http.MethodPost, "/api/v1/provision", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ta.request(t, http.MethodDelete, "/api/v1/provision", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestGetLogs(t *testing.T) {
	provdLog := provdlog.New()

	a := New(&Config{ProvdLog: provdLog})

	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/logs", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var entries []provdlog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Empty(t, entries)
}
