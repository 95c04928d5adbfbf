package export

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bashhack/otpqr/internal/account"
	"github.com/bashhack/otpqr/internal/filename"
	"github.com/bashhack/otpqr/internal/label"
	"github.com/bashhack/otpqr/internal/qrcode"
	"github.com/bashhack/otpqr/internal/testutil"
)

type fakeSource struct {
	records []account.Record
	listErr  error
	closeErr error
	closed   bool
}

func (f *fakeSource) List(ctx context.Context) ([]account.Record, error) {
	return f.records, f.listErr
}

func (f *fakeSource) Close() error {
	f.closed = true
	return f.closeErr
}

func newExporter(t *testing.T, dbPath string, stdout *bytes.Buffer) *Exporter {
	t.Helper()
	return &Exporter{
		DBPath:    dbPath,
		OutputDir: filepath.Join(t.TempDir(), "out"),
		Face:      label.Fallback,
		Namer:     filename.NewNamer(filename.Overwrite),
		Stdout:    stdout,
		Log:       zerolog.Nop(),
	}
}

func withAccounts(t *testing.T, accounts ...testutil.Account) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.db")
	testutil.CreateAccountsDB(t, path, accounts...)
	return path
}

// decodeExport checks the image layout and returns the text of its QR code.
func decodeExport(t *testing.T, path string) string {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)

	b := img.Bounds()
	qrSide := b.Dx()
	assert.Equal(t, qrSide+label.BandHeight, b.Dy(), "height must be QR height plus the label band")
	assert.Zero(t, qrSide%qrcode.ModuleSize)

	text, err := qrcode.DecodeImage(label.QRRegion(img))
	require.NoError(t, err)
	return text
}

func listPNGs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_EmptyTable(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t), &stdout)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Accounts)
	assert.Empty(t, summary.Files)
	assert.Equal(t, "No accounts found in the database.\n", stdout.String())
	assert.Empty(t, listPNGs(t, e.OutputDir))
}

func TestRun_SingleAccount(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t, testutil.Account{
		Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP",
	}), &stdout)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	want := filepath.Join(e.OutputDir, "GitHub_alice.png")
	assert.Equal(t, 1, summary.Accounts)
	assert.Equal(t, []string{want}, summary.Files)
	assert.Equal(t, "otpauth://totp/alice?secret=JBSWY3DPEHPK3PXP&issuer=GitHub", decodeExport(t, want))

	assert.Equal(t,
		"Found 1 accounts. Generating QR codes...\n"+
			"Created QR code: "+want+"\n"+
			"QR code generation complete. Images saved to "+e.OutputDir+"\n",
		stdout.String())
}

func TestRun_CollisionLastWriteWins(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t,
		testutil.Account{Name: "A/B", Username: "x", Secret: "FIRSTFIRSTFIRST2"},
		testutil.Account{Name: "A:B", Username: "x", Secret: "SECONDSECONDSEC2"},
	), &stdout)

	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(e.OutputDir, "A_B_x.png")
	assert.Equal(t, 2, summary.Accounts)
	assert.Equal(t, []string{path, path}, summary.Files)
	assert.Equal(t, []string{"A_B_x.png"}, listPNGs(t, e.OutputDir))
	assert.Equal(t, "otpauth://totp/x?secret=SECONDSECONDSEC2&issuer=A:B", decodeExport(t, path))
}

func TestRun_CollisionSuffix(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t,
		testutil.Account{Name: "A/B", Username: "x", Secret: "FIRSTFIRSTFIRST2"},
		testutil.Account{Name: "A:B", Username: "x", Secret: "SECONDSECONDSEC2"},
	), &stdout)
	e.Namer = filename.NewNamer(filename.Suffix)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"A_B_x.png", "A_B_x_2.png"}, listPNGs(t, e.OutputDir))
	assert.Equal(t, "otpauth://totp/x?secret=FIRSTFIRSTFIRST2&issuer=A/B", decodeExport(t, filepath.Join(e.OutputDir, "A_B_x.png")))
	assert.Equal(t, "otpauth://totp/x?secret=SECONDSECONDSEC2&issuer=A:B", decodeExport(t, filepath.Join(e.OutputDir, "A_B_x_2.png")))
}

func TestRun_CreatesNestedOutputDir(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t, testutil.Account{
		Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP",
	}), &stdout)
	e.OutputDir = filepath.Join(t.TempDir(), "a", "b", "c")

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(e.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, []string{"GitHub_alice.png"}, listPNGs(t, e.OutputDir))
}

func TestRun_OversizePayloadAborts(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t,
		testutil.Account{Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP"},
		testutil.Account{Name: "Huge", Username: "bob", Secret: strings.Repeat("A", 5000)},
		testutil.Account{Name: "Never", Username: "reached", Secret: "JBSWY3DPEHPK3PXP"},
	), &stdout)

	summary, err := e.Run(context.Background())
	require.Error(t, err)

	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr), "want EncodingError, got %T: %v", err, err)
	assert.Equal(t, "Huge", encErr.Name)
	assert.Equal(t, "bob", encErr.Username)

	// the earlier file stays, nothing for the failing or later rows
	assert.Equal(t, []string{"GitHub_alice.png"}, listPNGs(t, e.OutputDir))
	assert.Len(t, summary.Files, 1)
	assert.NotContains(t, stdout.String(), "generation complete")
}

func TestRun_DataAccessErrors(t *testing.T) {
	dir := t.TempDir()

	wrongSchema := filepath.Join(dir, "wrong.db")
	testutil.CreateDB(t, wrongSchema, `CREATE TABLE accounts (id INTEGER, label TEXT);`).Close()

	tests := map[string]struct {
		dbPath string
		open   OpenFunc
	}{
		"missing database": {
			dbPath: filepath.Join(dir, "missing.db"),
		},
		"schema mismatch": {
			dbPath: wrongSchema,
		},
		"list failure": {
			dbPath: "fake",
			open: func(ctx context.Context, path string) (Source, error) {
				return &fakeSource{listErr: errors.New("disk I/O error")}, nil
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var stdout bytes.Buffer
			e := newExporter(t, tt.dbPath, &stdout)
			e.Open = tt.open

			_, err := e.Run(context.Background())
			require.Error(t, err)

			var daErr *DataAccessError
			require.True(t, errors.As(err, &daErr), "want DataAccessError, got %T: %v", err, err)
			assert.Equal(t, tt.dbPath, daErr.Path)
			assert.Empty(t, stdout.String())
		})
	}
}

func TestRun_MissingDatabaseWrapsNotFound(t *testing.T) {
	e := newExporter(t, filepath.Join(t.TempDir(), "missing.db"), &bytes.Buffer{})

	_, err := e.Run(context.Background())
	assert.ErrorIs(t, err, account.ErrDatabaseNotFound)
}

func TestRun_IOErrors(t *testing.T) {
	t.Run("output path is a file", func(t *testing.T) {
		e := newExporter(t, withAccounts(t), &bytes.Buffer{})
		file := filepath.Join(t.TempDir(), "not-a-dir")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
		e.OutputDir = file

		_, err := e.Run(context.Background())
		var ioErr *IOError
		require.True(t, errors.As(err, &ioErr), "want IOError, got %T: %v", err, err)
		assert.Equal(t, file, ioErr.Path)
	})

	t.Run("image cannot be written", func(t *testing.T) {
		e := newExporter(t, withAccounts(t, testutil.Account{
			Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP",
		}), &bytes.Buffer{})
		// a directory where the image should go
		blocked := filepath.Join(e.OutputDir, "GitHub_alice.png")
		require.NoError(t, os.MkdirAll(blocked, 0o755))

		_, err := e.Run(context.Background())
		var ioErr *IOError
		require.True(t, errors.As(err, &ioErr), "want IOError, got %T: %v", err, err)
		assert.Equal(t, blocked, ioErr.Path)
	})
}

func TestRun_StorageOrderAndClose(t *testing.T) {
	src := &fakeSource{records: []account.Record{
		{Name: "Zeta", Username: "z", Secret: "JBSWY3DPEHPK3PXP"},
		{Name: "Alpha", Username: "a", Secret: "JBSWY3DPEHPK3PXP"},
		{Name: "Mid", Username: "m", Secret: "JBSWY3DPEHPK3PXP"},
	}}

	var stdout bytes.Buffer
	e := newExporter(t, "fake", &stdout)
	e.Open = func(ctx context.Context, path string) (Source, error) { return src, nil }

	summary, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(e.OutputDir, "Zeta_z.png"),
		filepath.Join(e.OutputDir, "Alpha_a.png"),
		filepath.Join(e.OutputDir, "Mid_m.png"),
	}, summary.Files)
	assert.True(t, src.closed)
}

func TestRun_CloseErrorIsLogged(t *testing.T) {
	src := &fakeSource{
		records:  []account.Record{{Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP"}},
		closeErr: errors.New("remove /tmp/otpqr-1.db: permission denied"),
	}

	var stdout, logs bytes.Buffer
	e := newExporter(t, "fake", &stdout)
	e.Log = zerolog.New(&logs)
	e.Open = func(ctx context.Context, path string) (Source, error) { return src, nil }

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, src.closed)
	assert.Contains(t, logs.String(), `"level":"warn"`)
	assert.Contains(t, logs.String(), "failed to close account database")
	assert.Contains(t, logs.String(), "permission denied")
}

func TestRun_CompressedDatabase(t *testing.T) {
	plain := withAccounts(t, testutil.Account{Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP"})
	compressed := plain + ".zst"
	testutil.CompressFile(t, plain, compressed)

	e := newExporter(t, compressed, &bytes.Buffer{})
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "otpauth://totp/alice?secret=JBSWY3DPEHPK3PXP&issuer=GitHub",
		decodeExport(t, filepath.Join(e.OutputDir, "GitHub_alice.png")))
}

func TestRun_Verify(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t,
		testutil.Account{Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP"},
		testutil.Account{Name: "My Bank", Username: "john doe", Secret: "KRSXG5CTMVRXEZLU"},
		testutil.Account{Name: "Q&A", Username: "a?b", Secret: "GEZDGNBVGY3TQOJQ"},
	), &stdout)
	e.Verify = true

	summary, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary.Files, 3)
}

func TestVerify_Mismatch(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t, testutil.Account{
		Name: "GitHub", Username: "alice", Secret: "JBSWY3DPEHPK3PXP",
	}), &stdout)

	_, err := e.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(e.OutputDir, "GitHub_alice.png")
	err = e.verify(path, "otpauth://totp/alice?secret=OTHER&issuer=GitHub")

	var vErr *VerifyError
	require.True(t, errors.As(err, &vErr), "want VerifyError, got %T: %v", err, err)
	assert.Equal(t, "otpauth://totp/alice?secret=JBSWY3DPEHPK3PXP&issuer=GitHub", vErr.Got)
	assert.NotContains(t, err.Error(), "JBSWY3DPEHPK3PXP")

	err = e.verify(filepath.Join(e.OutputDir, "missing.png"), "x")
	require.True(t, errors.As(err, &vErr))
	assert.Error(t, errors.Unwrap(err))
}

func TestRun_Decorate(t *testing.T) {
	var stdout bytes.Buffer
	e := newExporter(t, withAccounts(t), &stdout)
	e.Decorate = true

	_, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "📭 No accounts found in the database.\n", stdout.String())
}
