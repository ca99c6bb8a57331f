package configutil

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Database selects where observations are kept: a local sqlite file, or a remote
// libsql server when Url is set.
type Database struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

// OpenDB opens the database and applies schema, which must be idempotent.
func (config Database) OpenDB(ctx context.Context, schema string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if config.Url != "" {
		db, err = openRemote(config)
	} else {
		db, err = openFile(config.File)
	}
	if err != nil {
		return nil, err
	}

	if schema != "" {
		_, err = db.ExecContext(ctx, schema)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}
	return db, nil
}

func openRemote(config Database) (*sql.DB, error) {
	target := config.Url
	if config.AuthToken != "" {
		parsed, err := url.Parse(config.Url)
		if err != nil {
			return nil, fmt.Errorf("parse database url: %w", err)
		}
		values := parsed.Query()
		values.Set("authToken", config.AuthToken)
		parsed.RawQuery = values.Encode()
		target = parsed.String()
	}
	return sql.Open("libsql", target)
}

func openFile(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer, and an in-memory database only exists
	// for the connection that created it
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	_, err = db.Exec("PRAGMA busy_timeout=5000")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
