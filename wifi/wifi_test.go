package wifi

import (
	"strings"
	"testing"
)

func TestNewSSID(t *testing.T) {
	ssid, err := NewSSID("Example Cafe")
	if err != nil {
		t.Fatalf("NewSSID() error = %v", err)
	}
	if ssid.String() != "Example Cafe" {
		t.Errorf("String() = %q, want %q", ssid.String(), "Example Cafe")
	}

	if _, err := NewSSID(strings.Repeat("a", MaxSSIDLen)); err != nil {
		t.Errorf("NewSSID() at bound errored: %v", err)
	}

	if _, err := NewSSID(strings.Repeat("a", MaxSSIDLen+1)); err != ErrSSIDTooLong {
		t.Errorf("NewSSID() error = %v, want ErrSSIDTooLong", err)
	}
}

func TestNewPassphrase(t *testing.T) {
	if _, err := NewPassphrase(""); err != nil {
		t.Errorf("NewPassphrase(\"\") error = %v, empty selects an open network", err)
	}

	if _, err := NewPassphrase(strings.Repeat("x", MaxPassphraseLen)); err != nil {
		t.Errorf("NewPassphrase() at bound errored: %v", err)
	}

	if _, err := NewPassphrase(strings.Repeat("x", MaxPassphraseLen+1)); err != ErrPassphraseTooLong {
		t.Errorf("NewPassphrase() error = %v, want ErrPassphraseTooLong", err)
	}
}

func TestTruncatedCredentials(t *testing.T) {
	credentials := TruncatedCredentials(
		strings.Repeat("s", MaxSSIDLen+10),
		strings.Repeat("p", MaxPassphraseLen+10),
	)

	if len(credentials.SSID) != MaxSSIDLen {
		t.Errorf("SSID length = %d, want %d", len(credentials.SSID), MaxSSIDLen)
	}
	if len(credentials.Passphrase) != MaxPassphraseLen {
		t.Errorf("Passphrase length = %d, want %d", len(credentials.Passphrase), MaxPassphraseLen)
	}

	credentials = TruncatedCredentials("Home", "secret123")
	if credentials.SSID != "Home" || credentials.Passphrase != "secret123" {
		t.Errorf("TruncatedCredentials() mangled in-bound values: %+v", credentials)
	}
}

func TestSecurityLabel(t *testing.T) {
	tests := []struct {
		security Security
		want     string
	}{
		{SecurityOpen, "Open"},
		{SecurityPSK, "WPA2-PSK"},
		{SecurityPSKSHA256, "WPA2-PSK-SHA256"},
		{SecuritySAE, "WPA3-SAE"},
		{SecurityWAPI, "WAPI"},
		{SecurityEAP, "WPA2-EAP"},
		{Security(42), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.security.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}
