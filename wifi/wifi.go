package wifi

import (
	"github.com/go-errors/errors"
)

const (
	// MaxSSIDLen is the longest SSID the 802.11 spec allows.
	MaxSSIDLen = 32

	// MaxPassphraseLen is the longest WPA passphrase we accept.
	MaxPassphraseLen = 64
)

var (
	ErrSSIDTooLong       = errors.New("ssid exceeds 32 bytes")
	ErrPassphraseTooLong = errors.New("passphrase exceeds 64 bytes")
)

// SSID is a network name bounded to 32 bytes.
type SSID string

// NewSSID rejects oversized names instead of silently truncating them.
func NewSSID(s string) (SSID, error) {
	if len(s) > MaxSSIDLen {
		return "", ErrSSIDTooLong
	}

	return SSID(s), nil
}

func (s SSID) String() string {
	return string(s)
}

// Passphrase is a pre-shared key bounded to 64 bytes. An empty passphrase
// selects an open network.
type Passphrase string

func NewPassphrase(s string) (Passphrase, error) {
	if len(s) > MaxPassphraseLen {
		return "", ErrPassphraseTooLong
	}

	return Passphrase(s), nil
}

func (p Passphrase) String() string {
	return string(p)
}

// Credentials is a whole ssid/passphrase pair as it is persisted and handed
// between the intake front ends and the orchestrator.
type Credentials struct {
	SSID       SSID       `json:"ssid"`
	Passphrase Passphrase `json:"passphrase"`
}

// TruncatedCredentials builds credentials from untrusted front end input,
// cutting oversized values down to their bounds rather than rejecting them.
func TruncatedCredentials(ssid string, passphrase string) Credentials {
	if len(ssid) > MaxSSIDLen {
		ssid = ssid[:MaxSSIDLen]
	}

	if len(passphrase) > MaxPassphraseLen {
		passphrase = passphrase[:MaxPassphraseLen]
	}

	return Credentials{
		SSID:       SSID(ssid),
		Passphrase: Passphrase(passphrase),
	}
}

// Security identifies the key management a network advertises.
type Security int

const (
	SecurityOpen Security = iota
	SecurityPSK
	SecurityPSKSHA256
	SecuritySAE
	SecurityWAPI
	SecurityEAP
)

// Label returns a display string for the security type. It is total and
// yields "Unknown" for values it has no mapping for.
func (s Security) Label() string {
	switch s {
	case SecurityOpen:
		return "Open"
	case SecurityPSK:
		return "WPA2-PSK"
	case SecurityPSKSHA256:
		return "WPA2-PSK-SHA256"
	case SecuritySAE:
		return "WPA3-SAE"
	case SecurityWAPI:
		return "WAPI"
	case SecurityEAP:
		return "WPA2-EAP"
	default:
		return "Unknown"
	}
}

// ScanResult is a single discovered network. Results are immutable once
// produced by the scanner.
type ScanResult struct {
	SSID     SSID     `json:"ssid"`
	RSSI     int8     `json:"rssi"`
	Channel  uint8    `json:"channel"`
	Security Security `json:"security"`
}
