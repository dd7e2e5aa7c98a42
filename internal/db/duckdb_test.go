package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenCreatesSchema(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")

	conn, err := OpenDir(dir)
	require.NoError(t, err)

	_, err = conn.Exec(`INSERT INTO generations VALUES ('g1', 1, 'q', now())`)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// reopening keeps rows and tolerates the existing schema
	conn, err = OpenDir(dir)
	require.NoError(t, err)
	defer conn.Close()

	var n int
	require.NoError(t, conn.QueryRow(`SELECT count(*) FROM generations`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestOpenInMemory(t *testing.T) {
	conn, err := Open("")
	require.NoError(t, err)
	defer conn.Close()

	var n int
	require.NoError(t, conn.QueryRow(`SELECT count(*) FROM answers`).Scan(&n))
	require.Zero(t, n)
}
