package database

import (
	"context"
	"database/sql/driver"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "test.db")
	cfg.DatabaseConnectRetryCount = 1
	return cfg
}

func TestNew_EnablesWAL(t *testing.T) {
	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

// A conditional UPDATE is how a copy gets claimed for a loan. When many
// callers race for the same row, exactly one of them may see a changed row.
func TestNew_ConditionalClaimHasSingleWinner(t *testing.T) {
	db, err := New(newTestConfig(t))
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE claims (id INTEGER PRIMARY KEY, status TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO claims (id, status) VALUES (1, 'available')`)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	var winners, failures atomic.Int32
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := db.ExecContext(context.Background(),
				`UPDATE claims SET status = 'loaned' WHERE id = 1 AND status = 'available'`)
			if err != nil {
				failures.Add(1)
				return
			}
			if n, _ := res.RowsAffected(); n == 1 {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load())
	assert.Equal(t, int32(1), winners.Load())
}

type plainDriver struct {
	opened []string
}

func (d *plainDriver) Open(dsn string) (driver.Conn, error) {
	d.opened = append(d.opened, dsn)
	return nil, nil
}

func TestOpenConnector_FallsBackToDriverOpen(t *testing.T) {
	t.Parallel()
	drv := &plainDriver{}

	connector, err := openConnector(drv, "library.db")
	require.NoError(t, err)
	assert.Same(t, drv, connector.Driver())

	_, err = connector.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"library.db"}, drv.opened)
}

func TestOpenConnector_SQLiteShim(t *testing.T) {
	t.Parallel()
	dsn := filepath.Join(t.TempDir(), "shim.db")

	connector, err := openConnector(sqliteshim.Driver(), dsn)
	require.NoError(t, err)

	conn, err := newRetryConnector(connector, 1).Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())
}
