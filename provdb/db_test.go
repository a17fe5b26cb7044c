package provdb

import (
	"testing"

	"github.com/picolight/provd/wifi"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestCredentialsRoundTrip(t *testing.T) {
	db := openTestDB(t)

	credentials, err := db.GetCredentials()
	require.NoError(t, err)
	require.Nil(t, credentials)

	err = db.SetCredentials(&wifi.Credentials{SSID: "Home", Passphrase: "secret123"})
	require.NoError(t, err)

	credentials, err = db.GetCredentials()
	require.NoError(t, err)
	require.NotNil(t, credentials)
	require.Equal(t, wifi.SSID("Home"), credentials.SSID)
	require.Equal(t, wifi.Passphrase("secret123"), credentials.Passphrase)
}

func TestSetCredentialsOverwrites(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.SetCredentials(&wifi.Credentials{SSID: "first"}))
	require.NoError(t, db.SetCredentials(&wifi.Credentials{SSID: "second"}))

	credentials, err := db.GetCredentials()
	require.NoError(t, err)
	require.Equal(t, wifi.SSID("second"), credentials.SSID)
}

func TestDeleteCredentials(t *testing.T) {
	db := openTestDB(t)

	err := db.DeleteCredentials()
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.SetCredentials(&wifi.Credentials{SSID: "Home"}))
	require.NoError(t, db.DeleteCredentials())

	credentials, err := db.GetCredentials()
	require.NoError(t, err)
	require.Nil(t, credentials)
}

func TestBootCount(t *testing.T) {
	db := openTestDB(t)

	count, err := db.GetBootCount()
	require.NoError(t, err)
	require.Equal(t, uint32(0), count)

	count, err = db.IncrementBootCount()
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)

	count, err = db.IncrementBootCount()
	require.NoError(t, err)
	require.Equal(t, uint32(2), count)

	count, err = db.GetBootCount()
	require.NoError(t, err)
	require.Equal(t, uint32(2), count)
}
