package provdb

import (
	"github.com/go-errors/errors"
	"github.com/picolight/provd/wifi"
)

// GetCredentials returns the stored WiFi credentials, or nil when none have
// been saved yet.
func (db *DB) GetCredentials() (*wifi.Credentials, error) {
	credentials := &wifi.Credentials{}

	found, err := db.getJSON(settingsBucket, credentialsKey, credentials)
	if err != nil {
		return nil, errors.Errorf("could not get credentials: %v", err)
	}

	if !found {
		return nil, nil
	}

	return credentials, nil
}

func (db *DB) SetCredentials(credentials *wifi.Credentials) error {
	err := db.setJSON(settingsBucket, credentialsKey, credentials)
	if err != nil {
		return errors.Errorf("could not set credentials: %v", err)
	}

	return nil
}

// DeleteCredentials removes the stored pair, failing with ErrNotFound when
// none were set.
func (db *DB) DeleteCredentials() error {
	return db.deleteKey(settingsBucket, credentialsKey)
}
