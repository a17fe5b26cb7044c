package portal

import (
	"html/template"
	"net"
	"net/http"
	"sync"

	"github.com/go-errors/errors"
	"github.com/gorilla/mux"
	"github.com/picolight/provd/wifi"
	"golang.org/x/net/netutil"
)

// maxConnections caps concurrent portal clients. The handlers run to
// completion per request and are served one at a time.
const maxConnections = 2

type pageMode int

const (
	stopped pageMode = iota
	setup
	status
)

// Status is what the read-only page shows once the device is connected.
type Status struct {
	Connected bool
	SSID      wifi.SSID
}

type Config struct {
	// Listen is the address the portal binds to, typically :80 on the
	// AP subnet.
	Listen string

	// Networks supplies the scan view for rendering.
	Networks func() []wifi.ScanResult

	// Submit receives a parsed credential submission.
	Submit func(credentials wifi.Credentials)

	// Status supplies the connection view for the read-only page.
	Status func() Status

	Logger Logger
}

// Portal serves the credential capture page while provisioning and a
// read-only status page afterwards. It stays decoupled from the
// orchestrator: everything it needs comes in as capabilities.
type Portal struct {
	log      Logger
	listen   string
	networks func() []wifi.ScanResult
	submit   func(credentials wifi.Credentials)
	status   func() Status
	router   *mux.Router

	mtx      sync.Mutex
	mode     pageMode
	listener net.Listener
}

func NewPortal(config *Config) *Portal {
	p := &Portal{
		listen:   config.Listen,
		networks: config.Networks,
		submit:   config.Submit,
		status:   config.Status,
		mode:     stopped,
	}

	if config.Logger != nil {
		p.log = config.Logger
	} else {
		p.log = noopLogger{}
	}

	p.router = mux.NewRouter()
	p.router.Handle("/", p.handleIndex()).Methods(http.MethodGet)
	p.router.Handle("/connect", p.handleConnect()).Methods(http.MethodPost)

	return p
}

// StartSetup serves the interactive credential capture page.
func (p *Portal) StartSetup() error {
	return p.start(setup)
}

// StartStatus serves the read-only status page.
func (p *Portal) StartStatus() error {
	return p.start(status)
}

func (p *Portal) start(mode pageMode) error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.listener != nil {
		p.mode = mode
		return nil
	}

	lis, err := net.Listen("tcp", p.listen)
	if err != nil {
		return errors.Errorf("could not listen on %v: %v", p.listen, err)
	}

	lis = netutil.LimitListener(lis, maxConnections)

	p.listener = lis
	p.mode = mode

	go func() {
		err := http.Serve(lis, p.router)
		if err != nil {
			p.log.Debugf("Portal server finished: %v", err)
		}
	}()

	p.log.Infof("Portal listening on %v", p.listen)

	return nil
}

func (p *Portal) Stop() error {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.listener == nil {
		return nil
	}

	err := p.listener.Close()
	p.listener = nil
	p.mode = stopped

	if err != nil {
		return errors.Errorf("could not close listener: %v", err)
	}

	return nil
}

func (p *Portal) currentMode() pageMode {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.mode
}

type networkView struct {
	SSID     string
	RSSI     int8
	Security string
}

func (p *Portal) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.currentMode() == status {
			st := p.status()

			err := statusTemplate.Execute(w, st)
			if err != nil {
				p.log.Errorf("Could not render status page: %v", err)
			}

			return
		}

		var networks []networkView
		for _, result := range p.networks() {
			networks = append(networks, networkView{
				SSID:     result.SSID.String(),
				RSSI:     result.RSSI,
				Security: result.Security.Label(),
			})
		}

		err := setupTemplate.Execute(w, networks)
		if err != nil {
			p.log.Errorf("Could not render setup page: %v", err)
		}
	}
}

func (p *Portal) handleConnect() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.currentMode() == status {
			http.Error(w, "device is already configured", http.StatusConflict)
			return
		}

		err := r.ParseForm()
		if err != nil {
			http.Error(w, "could not parse form", http.StatusBadRequest)
			return
		}

		ssid := r.PostFormValue("ssid")
		if ssid == "" {
			http.Error(w, "ssid is required", http.StatusBadRequest)
			return
		}

		// oversized input is cut to its bounds rather than rejected
		credentials := wifi.TruncatedCredentials(ssid, r.PostFormValue("password"))

		p.log.Infof("Submission received for %v", credentials.SSID)

		err = successTemplate.Execute(w, credentials.SSID.String())
		if err != nil {
			p.log.Errorf("Could not render success page: %v", err)
		}

		p.submit(credentials)
	}
}

var setupTemplate = template.Must(template.New("setup").Parse(`<!DOCTYPE html>
<html><head>
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>WiFi Setup</title>
<style>
body{font-family:Arial,sans-serif;margin:20px;background:#f0f0f0;}
h1{color:#333;}
.container{background:white;padding:20px;border-radius:8px;max-width:600px;margin:0 auto;}
.network{padding:10px;margin:5px 0;border:1px solid #ddd;border-radius:4px;cursor:pointer;}
.network:hover{background:#e8f4f8;}
.signal{float:right;color:#666;}
.security{color:#666;font-size:0.9em;}
input[type=text],input[type=password]{width:100%;padding:10px;margin:8px 0;border:1px solid #ddd;border-radius:4px;box-sizing:border-box;}
button{background:#4CAF50;color:white;padding:12px 20px;border:none;border-radius:4px;cursor:pointer;width:100%;font-size:16px;}
button:hover{background:#45a049;}
</style></head><body>
<div class="container">
<h1>WiFi Configuration</h1>
<p>Select a network or enter credentials manually:</p>
{{if .}}<h2>Available Networks:</h2>
{{range .}}<div class="network" onclick="selectNetwork({{.SSID}})">
{{.SSID}} <span class="signal">Signal: {{.RSSI}} dBm</span><br>
<span class="security">{{.Security}}</span></div>
{{end}}{{end}}
<h2>Enter Credentials:</h2>
<form method="POST" action="/connect">
<label>SSID:</label><input type="text" id="ssid" name="ssid" required>
<label>Password:</label><input type="password" name="password">
<button type="submit">Connect</button>
</form>
</div>
<script>
function selectNetwork(ssid){document.getElementById('ssid').value=ssid;}
</script>
</body></html>`))

var successTemplate = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html><head><title>Success</title></head><body>
<h1>WiFi Configuration Saved</h1>
<p>The device will now attempt to connect to {{.}}.</p>
<p>This setup page will close shortly.</p>
</body></html>`))

var statusTemplate = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html><head><title>Device Status</title></head><body>
<h1>Device Status</h1>
{{if .Connected}}<p>Connected to {{.SSID}}.</p>
{{else}}<p>Not connected.</p>{{end}}
</body></html>`))
