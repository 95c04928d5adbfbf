// Package account reads two-factor accounts out of a SQLite database.
package account

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/bashhack/otpqr/internal/secure"

	_ "modernc.org/sqlite"
)

// ErrDatabaseNotFound is returned by Open when the database file is missing.
var ErrDatabaseNotFound = errors.New("database not found")

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

const listAccounts = `SELECT name, username, oath_secret_key FROM accounts`

// Record is one row of the accounts table.
type Record struct {
	Name     string
	Username string
	Secret   string
}

// Store is a read-only handle on an accounts database.
type Store struct {
	db      *sql.DB
	cleanup func() error
}

// Open opens the database at path. A zstd-compressed database is inflated to
// a temporary file first, which Close removes.
func Open(ctx context.Context, path string) (*Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat database: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("database path %s is a directory", path)
	}

	dbPath, cleanup, err := inflate(path)
	if err != nil {
		return nil, err
	}

	dsn, err := dataSourceName(dbPath)
	if err != nil {
		_ = cleanup()
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = cleanup()
		return nil, fmt.Errorf("open database: %w", err)
	}

	// A single connection so the query_only pragma covers every statement.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		_ = cleanup()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		db.Close()
		_ = cleanup()
		return nil, fmt.Errorf("set database read-only: %w", err)
	}

	return &Store{db: db, cleanup: cleanup}, nil
}

// List returns every account in storage order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, listAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to select accounts: %w", err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		var name, username, secret sql.NullString
		if err := rows.Scan(&name, &username, &secret); err != nil {
			return nil, fmt.Errorf("failed to read account row: %w", err)
		}
		result = append(result, Record{
			Name:     name.String,
			Username: username.String,
			Secret:   secret.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	return result, nil
}

// Close releases the database and removes any inflated copy.
func (s *Store) Close() error {
	err := s.db.Close()
	if cerr := s.cleanup(); err == nil {
		err = cerr
	}
	return err
}

// inflate returns a path to an uncompressed copy of the database. Plain
// databases are used in place.
// dataSourceName turns a file path into a read-only SQLite URI. The path is
// escaped so characters like '?' and '#' stay part of the file name.
func dataSourceName(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve database path: %w", err)
	}

	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		// drive letter paths
		p = "/" + p
	}

	u := &url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String(), nil
}

func inflate(path string) (string, func() error, error) {
	noop := func() error { return nil }

	f, err := os.Open(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(zstdMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("failed to read database header: %w", err)
	}
	if !bytes.Equal(head[:n], zstdMagic) {
		return path, noop, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", nil, fmt.Errorf("failed to rewind database: %w", err)
	}

	dec, err := zstd.NewReader(f)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	tmp, err := os.CreateTemp("", "otpqr-*.db")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temporary database: %w", err)
	}
	remove := func() error {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}

	buf, wipe := secure.NewBuffer()
	defer wipe()

	// plain writer and reader types keep io.CopyBuffer from bypassing buf
	if _, err := io.CopyBuffer(struct{ io.Writer }{tmp}, struct{ io.Reader }{dec}, buf); err != nil {
		tmp.Close()
		_ = remove()
		return "", nil, fmt.Errorf("failed to decompress database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = remove()
		return "", nil, fmt.Errorf("failed to write temporary database: %w", err)
	}

	return tmp.Name(), remove, nil
}
