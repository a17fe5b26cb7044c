package api

import (
	"encoding/json"
	"net/http"

	"github.com/picolight/provd/accesspoint"
	"github.com/picolight/provd/provdb"
	"github.com/picolight/provd/scanner"
	"github.com/picolight/provd/station"
	"github.com/picolight/provd/wifi"
)

func (a *Api) jsonResponse(w http.ResponseWriter, v interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		a.log.Errorf("Could not respond with JSON: %v", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// errResponse maps the failure kinds onto status codes 1:1.
func (a *Api) errResponse(w http.ResponseWriter, err error) {
	var code int

	switch err {
	case station.ErrInvalidArgument, wifi.ErrSSIDTooLong, wifi.ErrPassphraseTooLong:
		code = http.StatusBadRequest
	case scanner.ErrBusy, station.ErrBusy, accesspoint.ErrAlreadyActive:
		code = http.StatusConflict
	case scanner.ErrTimeout, station.ErrTimeout:
		code = http.StatusGatewayTimeout
	case scanner.ErrHardwareRejected, station.ErrHardwareRejected:
		code = http.StatusBadGateway
	case accesspoint.ErrUnsupported:
		code = http.StatusNotImplemented
	case accesspoint.ErrNotActive, provdb.ErrNotFound:
		code = http.StatusNotFound
	default:
		code = http.StatusInternalServerError
	}

	a.jsonResponse(w, &errorResponse{Error: err.Error()}, code)
}
