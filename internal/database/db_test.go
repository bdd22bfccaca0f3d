package database

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/geo-reservation/internal/config"
)

func TestOpen_SQLiteFileAndSchemaIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservation.db")
	db, err := Open(config.Config{DBDriver: config.DriverSQLite, DBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, EnsureSchema(ctx, db))
	_, err = db.ExecContext(ctx, `INSERT INTO reservation (user_id, longitude, latitude, state) VALUES ('u1', 1, 2, 'wait')`)
	require.NoError(t, err)

	// a second bootstrap must keep existing rows
	require.NoError(t, EnsureSchema(ctx, db))
	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM reservation`))
	assert.Equal(t, 1, n)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestCATLSConfig_RejectsBadInput(t *testing.T) {
	_, err := caTLSConfig("%%%not-base64", "db")
	assert.ErrorContains(t, err, "decode DB_CA_CERT_BASE64")

	_, err = caTLSConfig(base64.StdEncoding.EncodeToString([]byte("hello")), "db")
	assert.ErrorContains(t, err, "no PEM certificate")
}
