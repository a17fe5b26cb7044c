package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/picolight/provd/wifi"
)

type statusResponse struct {
	Mode      string `json:"mode"`
	Degraded  bool   `json:"degraded"`
	Connected bool   `json:"connected"`
	BootCount uint32 `json:"bootCount"`
}

func (a *Api) handleGetStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := &statusResponse{
			Mode:      a.device.Mode().String(),
			Degraded:  a.device.Degraded(),
			Connected: a.device.Connected(),
			BootCount: a.device.BootCount(),
		}

		a.jsonResponse(w, res, http.StatusOK)
	}
}

type networkResponse struct {
	SSID     string `json:"ssid"`
	RSSI     int8   `json:"rssi"`
	Channel  uint8  `json:"channel"`
	Security string `json:"security"`
}

func (a *Api) networksResponse() []networkResponse {
	networks := []networkResponse{}

	for _, result := range a.device.Networks() {
		networks = append(networks, networkResponse{
			SSID:     result.SSID.String(),
			RSSI:     result.RSSI,
			Channel:  result.Channel,
			Security: result.Security.Label(),
		})
	}

	return networks
}

func (a *Api) handleGetNetworks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.jsonResponse(w, a.networksResponse(), http.StatusOK)
	}
}

type scanRequest struct {
	TimeoutSeconds int `json:"timeoutSeconds"`
}

func (a *Api) handlePostScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := scanRequest{}

		// an empty body means default timeout
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			req.TimeoutSeconds = 0
		}

		err := a.device.Scan(time.Duration(req.TimeoutSeconds) * time.Second)
		if err != nil {
			a.errResponse(w, err)
			return
		}

		a.jsonResponse(w, a.networksResponse(), http.StatusOK)
	}
}

type credentialsRequest struct {
	SSID       string `json:"ssid"`
	Passphrase string `json:"passphrase"`
}

type credentialsResponse struct {
	SSID string `json:"ssid"`
}

func (a *Api) decodeCredentials(r *http.Request) (wifi.Credentials, error) {
	req := credentialsRequest{}

	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		return wifi.Credentials{}, err
	}

	ssid, err := wifi.NewSSID(req.SSID)
	if err != nil {
		return wifi.Credentials{}, err
	}

	passphrase, err := wifi.NewPassphrase(req.Passphrase)
	if err != nil {
		return wifi.Credentials{}, err
	}

	return wifi.Credentials{SSID: ssid, Passphrase: passphrase}, nil
}

func (a *Api) handleGetCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credentials, err := a.device.StoredCredentials()
		if err != nil {
			a.errResponse(w, err)
			return
		}

		if credentials == nil {
			a.jsonResponse(w, nil, http.StatusOK)
			return
		}

		// the passphrase stays on the device
		a.jsonResponse(w, &credentialsResponse{SSID: credentials.SSID.String()}, http.StatusOK)
	}
}

func (a *Api) handlePutCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credentials, err := a.decodeCredentials(r)
		if err != nil {
			a.errResponse(w, err)
			return
		}

		err = a.device.SetStoredCredentials(credentials)
		if err != nil {
			a.errResponse(w, err)
			return
		}

		a.jsonResponse(w, &credentialsResponse{SSID: credentials.SSID.String()}, http.StatusOK)
	}
}

// handleSubmitCredentials feeds credentials through the provisioning path,
// the same handoff the portal and GUI use. It keeps working in degraded
// provisioning mode.
func (a *Api) handleSubmitCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		credentials, err := a.decodeCredentials(r)
		if err != nil {
			a.errResponse(w, err)
			return
		}

		err = a.device.SubmitCredentials(credentials)
		if err != nil {
			a.errResponse(w, err)
			return
		}

		a.jsonResponse(w, &credentialsResponse{SSID: credentials.SSID.String()}, http.StatusAccepted)
	}
}

func (a *Api) handleDeleteCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := a.device.DeleteStoredCredentials()
		if err != nil {
			a.errResponse(w, err)
			return
		}

		a.jsonResponse(w, nil, http.StatusOK)
	}
}

func (a *Api) handlePostConnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := a.device.RetryConnect()
		if err != nil {
			a.errResponse(w, err)
			return
		}

		a.jsonResponse(w, nil, http.StatusAccepted)
	}
}

func (a *Api) handlePostProvision() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := a.device.StartProvisioning()
		if err != nil {
			a.errResponse(w, err)
			return
		}

		a.jsonResponse(w, nil, http.StatusAccepted)
	}
}

func (a *Api) handleDeleteProvision() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := a.device.StopProvisioning()
		if err != nil {
			a.errResponse(w, err)
			return
		}

		a.jsonResponse(w, nil, http.StatusAccepted)
	}
}

func (a *Api) handleGetLogs() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.jsonResponse(w, a.provdLog.Entries(), http.StatusOK)
	}
}
