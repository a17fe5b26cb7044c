package provdb

import (
	"github.com/go-errors/errors"
)

// GetBootCount returns how often the device has booted so far.
func (db *DB) GetBootCount() (uint32, error) {
	var count uint32

	_, err := db.getJSON(settingsBucket, bootCountKey, &count)
	if err != nil {
		return 0, errors.Errorf("could not get boot count: %v", err)
	}

	return count, nil
}

// IncrementBootCount bumps the boot counter and returns the new value.
func (db *DB) IncrementBootCount() (uint32, error) {
	count, err := db.GetBootCount()
	if err != nil {
		return 0, err
	}

	count++

	err = db.setJSON(settingsBucket, bootCountKey, count)
	if err != nil {
		return 0, errors.Errorf("could not set boot count: %v", err)
	}

	return count, nil
}
