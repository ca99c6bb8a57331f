package testutil

import (
	"context"
	"database/sql"
	"testing"

	"courtwatch/pkg/configutil"
)

// OpenDB opens a fresh in-memory database with schema applied, it is closed when
// the test ends.
func OpenDB(t testing.TB, schema string) *sql.DB {
	t.Helper()

	db, err := configutil.Database{File: ":memory:"}.OpenDB(context.Background(), schema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
