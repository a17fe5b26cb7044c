package api

import (
	"net"
	"net/http"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/picolight/provd/device"
	"github.com/picolight/provd/provdlog"
)

type Config struct {
	Log      Logger
	ProvdLog *provdlog.ProvdLog
}

// Api is the command surface: synchronous HTTP wrappers over the
// orchestrator, scanner and AP controller calls.
type Api struct {
	device   *device.Device
	router   *mux.Router
	log      Logger
	provdLog *provdlog.ProvdLog
}

func New(config *Config) *Api {
	api := &Api{
		router:   mux.NewRouter(),
		provdLog: config.ProvdLog,
	}

	if config.Log != nil {
		api.log = config.Log
	} else {
		api.log = noopLogger{}
	}

	api.router.Handle("/api/v1/status", api.handleGetStatus()).Methods(http.MethodGet)

	api.router.Handle("/api/v1/networks", api.handleGetNetworks()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/scan", api.handlePostScan()).Methods(http.MethodPost)

	api.router.Handle("/api/v1/credentials", api.handleGetCredentials()).Methods(http.MethodGet)
	api.router.Handle("/api/v1/credentials", api.handlePutCredentials()).Methods(http.MethodPut)
	api.router.Handle("/api/v1/credentials", api.handleSubmitCredentials()).Methods(http.MethodPost)
	api.router.Handle("/api/v1/credentials", api.handleDeleteCredentials()).Methods(http.MethodDelete)

	api.router.Handle("/api/v1/connect", api.handlePostConnect()).Methods(http.MethodPost)

	api.router.Handle("/api/v1/provision", api.handlePostProvision()).Methods(http.MethodPost)
	api.router.Handle("/api/v1/provision", api.handleDeleteProvision()).Methods(http.MethodDelete)

	api.router.Handle("/api/v1/logs", api.handleGetLogs()).Methods(http.MethodGet)

	return api
}

func (a *Api) SetDevice(device *device.Device) {
	a.device = device
}

func (a *Api) Serve(l net.Listener) error {
	err := http.Serve(l, a.router)
	if err != nil {
		return errors.Errorf("unable to serve api: %v", err)
	}

	return nil
}

// Router exposes the handler for tests.
func (a *Api) Router() http.Handler {
	return a.router
}
