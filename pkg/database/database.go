package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"time"

	"github.com/bibliotech/bibliotech/pkg/config"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type logQueryHook struct {
	log logger.Logger
}

func (*logQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (qh *logQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	data := logger.Data{"duration_ms": time.Since(event.StartTime).Milliseconds()}
	if event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows) {
		data["error"] = event.Err.Error()
	}
	qh.log.Debug(event.Query, data)
}

func New(cfg *config.Config) (*bun.DB, error) {
	connector, err := openConnector(sqliteshim.Driver(), cfg.DatabaseFilePath)
	if err != nil {
		return nil, err
	}

	sqldb := sql.OpenDB(newRetryConnector(connector, cfg.DatabaseMaxRetries))
	// SQLite allows a single writer. Funnelling everything through one
	// connection turns lock contention into queueing inside database/sql, and
	// it keeps :memory: databases from splitting across connections.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if cfg.DatabaseDebug {
		db.AddQueryHook(&logQueryHook{logger.NewWithLevel("debug")})
	}

	for i := 0; i < cfg.DatabaseConnectRetryCount; i++ {
		_, err = db.Exec("SELECT 1")
		if err == nil {
			break
		}
		time.Sleep(cfg.DatabaseConnectRetryDelay)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := configure(db, cfg.DatabaseBusyTimeout); err != nil {
		return nil, err
	}

	return db, nil
}

// openConnector uses the driver's own connector when it has one and falls
// back to opening dsn on every Connect otherwise.
func openConnector(drv driver.Driver, dsn string) (driver.Connector, error) {
	dc, ok := drv.(driver.DriverContext)
	if !ok {
		return newDriverConnector(drv, dsn), nil
	}
	connector, err := dc.OpenConnector(dsn)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return connector, nil
}

// configure applies the pragmas every connection relies on. WAL lets readers
// proceed while a loan or import transaction holds the write lock, and
// busy_timeout makes writers queue instead of failing immediately.
func configure(db *bun.DB, busyTimeout time.Duration) error {
	pragmas := []struct {
		stmt string
		args []interface{}
	}{
		{"PRAGMA journal_mode=WAL", nil},
		{"PRAGMA busy_timeout=?", []interface{}{busyTimeout.Milliseconds()}},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt, p.args...); err != nil {
			return errors.Wrapf(err, "failed to run %q", p.stmt)
		}
	}
	return nil
}
