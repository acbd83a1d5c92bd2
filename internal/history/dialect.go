package history

import (
	"fmt"
	"os"
	"path/filepath"
)

type dialect struct {
	name   string
	driver string
	insert string
	list   string
	clear  string
	// singleConn limits the pool to one connection; sqlite allows a single writer.
	singleConn bool
}

const (
	listQuery  = `SELECT id, image_path, prediction, confidence, timestamp FROM scan_history ORDER BY timestamp DESC, id DESC`
	clearQuery = `DELETE FROM scan_history`
)

var (
	sqliteDialect = dialect{
		name:       "sqlite",
		driver:     "sqlite",
		insert:     `INSERT INTO scan_history (image_path, prediction, confidence, timestamp) VALUES (?, ?, ?, ?) RETURNING id`,
		list:       listQuery,
		clear:      clearQuery,
		singleConn: true,
	}

	postgresDialect = dialect{
		name:   "postgres",
		driver: "postgres",
		insert: `INSERT INTO scan_history (image_path, prediction, confidence, timestamp) VALUES ($1, $2, $3, $4) RETURNING id`,
		list:   listQuery,
		clear:  clearQuery,
	}
)

func resolve(cfg Config) (dialect, string, error) {
	switch cfg.Driver {
	case "", "sqlite":
		if cfg.DSN == "" {
			return dialect{}, "", fmt.Errorf("sqlite path is empty")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return dialect{}, "", fmt.Errorf("create database directory: %w", err)
		}
		return sqliteDialect, sqliteDSN(cfg.DSN), nil
	case "postgres":
		if cfg.DSN == "" {
			return dialect{}, "", fmt.Errorf("postgres dsn is empty")
		}
		return postgresDialect, cfg.DSN, nil
	default:
		return dialect{}, "", fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}

// sqliteDSN enables WAL with full fsync so a committed insert survives a crash.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"
}
