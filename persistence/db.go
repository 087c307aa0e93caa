package persistence

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// Driver identifies the storage backend selected by a DSN
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMongo    Driver = "mongo"
)

// DriverFromDSN picks the backend from the DSN scheme. Plain paths are sqlite.
func DriverFromDSN(dsn string) (Driver, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return "", errors.New("empty database dsn", errors.CategoryBadInput)
	}

	if !strings.Contains(dsn, "://") {
		return DriverSQLite, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryBadInput, "invalid database dsn")
	}

	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "mongodb", "mongodb+srv":
		return DriverMongo, nil
	case "sqlite", "sqlite3", "file":
		return DriverSQLite, nil
	default:
		return "", errors.New(fmt.Sprintf("unsupported database scheme %q", u.Scheme), errors.CategoryBadInput)
	}
}

// Options configures Open
type Options struct {
	DSN   string
	Debug bool
}

// Open returns a bun DB for sqlite or postgres DSNs
func Open(opts Options) (*bun.DB, Driver, error) {
	driver, err := DriverFromDSN(opts.DSN)
	if err != nil {
		return nil, "", err
	}

	var db *bun.DB
	switch driver {
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(opts.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case DriverSQLite:
		dsn := sqliteDSN(opts.DSN)
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, "", errors.Wrap(err, errors.CategoryInternal, "open sqlite")
		}
		if strings.Contains(dsn, ":memory:") {
			// every connection would otherwise get its own empty database
			sqldb.SetMaxOpenConns(1)
		}
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, driver, errors.New(fmt.Sprintf("driver %s is not served by bun", driver), errors.CategoryBadInput)
	}

	if opts.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return db, driver, nil
}

func sqliteDSN(dsn string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}
