package provdb

import (
	"os"
	"path/filepath"

	"github.com/go-errors/errors"
	"go.etcd.io/bbolt"
)

const dbFilename = "provd.db"

var (
	settingsBucket = []byte("settings")

	credentialsKey = []byte("credentials")
	bootCountKey   = []byte("bootCount")
)

// ErrNotFound is returned when deleting a key that was never set. It is not
// escalated as a user-facing error by the orchestrator.
var ErrNotFound = errors.New("key not found")

// DB persistently stores the device's provisioning settings.
type DB struct {
	*bbolt.DB
}

func Open(dataDir string) (*DB, error) {
	err := os.MkdirAll(dataDir, 0700)
	if err != nil {
		return nil, errors.Errorf("could not create data dir: %v", err)
	}

	db, err := bbolt.Open(filepath.Join(dataDir, dbFilename), 0600, nil)
	if err != nil {
		return nil, errors.Errorf("could not open database: %v", err)
	}

	return &DB{DB: db}, nil
}
