package internal

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBConfig configuración de conexiones de base de datos
type DBConfig struct {
	MaxOpenConns    int
	MinConn         int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// InitDB opens the journal database for driver and creates its table.
func InitDB(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		return InitDBWithConfig(driver, dsn, DBConfig{
			MaxOpenConns: 1,
			MinConn:      1,
		})
	case DriverPostgres:
		return InitDBWithConfig(driver, dsn, DBConfig{
			MaxOpenConns:    10,
			MinConn:         2,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		})
	default:
		return nil, fmt.Errorf("unknown journal driver: %s", driver)
	}
}

func InitDBWithConfig(driver, dsn string, config DBConfig) (*sql.DB, error) {
	sqlDriver := driver
	if driver == DriverPostgres {
		sqlDriver = "pgx"
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if driver == DriverSQLite {
		// WAL so admin reads do not block batch writes
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("error setting WAL mode: %w", err)
		}

		if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("error setting synchronous mode: %w", err)
		}
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MinConn)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	createTable := `
	CREATE TABLE IF NOT EXISTS ves_events (
		uuid TEXT PRIMARY KEY,
		trace_id TEXT,
		received_at BIGINT NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		remote_addr TEXT,
		authenticated BOOLEAN NOT NULL,
		validation TEXT,
		validation_reason TEXT,
		request_body TEXT,
		response_status INTEGER,
		response_body TEXT
	)`

	createIndexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_ves_events_received_at ON ves_events(received_at)`,
		`CREATE INDEX IF NOT EXISTS idx_ves_events_path ON ves_events(path)`,
	}

	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating events table: %w", err)
	}

	for _, stmt := range createIndexes {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("error creating indexes: %w", err)
		}
	}

	return db, nil
}

// Rebind rewrites "?" placeholders into the driver's bind syntax.
func Rebind(driver, query string) string {
	if driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
