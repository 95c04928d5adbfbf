package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/klauspost/compress/zstd"

	_ "modernc.org/sqlite"
)

// AccountsSchema matches the table the exporter reads.
const AccountsSchema = `
CREATE TABLE accounts (
    name TEXT,
    username TEXT,
    oath_secret_key TEXT
);
`

// Account is one row of the accounts table.
type Account struct {
	Name     string
	Username string
	Secret   string
}

// CreateDB creates a SQLite database at path and runs schema against it.
func CreateDB(t testing.TB, path, schema string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if schema != "" {
		if _, err := db.Exec(schema); err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}

	return db
}

// CreateAccountsDB creates a database at path holding accounts in order.
func CreateAccountsDB(t testing.TB, path string, accounts ...Account) {
	t.Helper()

	db := CreateDB(t, path, AccountsSchema)
	for _, a := range accounts {
		_, err := db.Exec(`INSERT INTO accounts (name, username, oath_secret_key) VALUES (?, ?, ?)`,
			a.Name, a.Username, a.Secret)
		if err != nil {
			t.Fatalf("failed to insert account %q: %v", a.Name, err)
		}
	}

	// release the file so the code under test sees a settled database
	if err := db.Close(); err != nil {
		t.Fatalf("failed to close %s: %v", path, err)
	}
}

// CompressFile writes a zstd-compressed copy of src to dst.
func CompressFile(t testing.TB, src, dst string) {
	t.Helper()

	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("failed to read %s: %v", src, err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("failed to create zstd encoder: %v", err)
	}
	defer enc.Close()

	if err := os.WriteFile(dst, enc.EncodeAll(data, nil), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", dst, err)
	}
}
