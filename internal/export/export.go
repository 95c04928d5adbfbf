// Package export runs the batch that turns every account in the database into
// a labeled QR code image.
package export

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/image/font"

	"github.com/bashhack/otpqr/internal/account"
	"github.com/bashhack/otpqr/internal/filename"
	"github.com/bashhack/otpqr/internal/label"
	"github.com/bashhack/otpqr/internal/otpauth"
	"github.com/bashhack/otpqr/internal/qrcode"
)

// Source yields the accounts to export.
type Source interface {
	List(ctx context.Context) ([]account.Record, error)
	Close() error
}

// OpenFunc opens the account source at path.
type OpenFunc func(ctx context.Context, path string) (Source, error)

// OpenStore opens a SQLite accounts database.
func OpenStore(ctx context.Context, path string) (Source, error) {
	s, err := account.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Exporter writes one PNG per account into OutputDir. The run stops at the
// first failure; images already written stay on disk.
type Exporter struct {
	DBPath    string
	OutputDir string
	Open      OpenFunc
	Face      font.Face
	Namer     *filename.Namer
	Verify    bool

	// Stdout receives the progress lines; Decorate prefixes them with icons.
	Stdout   io.Writer
	Decorate bool
	Log      zerolog.Logger
}

// Summary describes a finished run.
type Summary struct {
	Accounts int
	Files    []string
}

// Run exports every account.
func (e *Exporter) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	if err := os.MkdirAll(e.OutputDir, 0o755); err != nil {
		return summary, &IOError{Path: e.OutputDir, Err: err}
	}

	open := e.Open
	if open == nil {
		open = OpenStore
	}

	src, err := open(ctx, e.DBPath)
	if err != nil {
		return summary, &DataAccessError{Path: e.DBPath, Err: err}
	}
	defer func() {
		if err := src.Close(); err != nil {
			e.Log.Warn().Err(err).Str("db", e.DBPath).Msg("failed to close account database")
		}
	}()

	records, err := src.List(ctx)
	if err != nil {
		return summary, &DataAccessError{Path: e.DBPath, Err: err}
	}
	e.Log.Debug().Str("db", e.DBPath).Int("accounts", len(records)).Msg("loaded accounts")

	if len(records) == 0 {
		e.status("📭 ", "No accounts found in the database.\n")
		return summary, nil
	}

	summary.Accounts = len(records)
	e.status("🔍 ", "Found %d accounts. Generating QR codes...\n", len(records))

	face := e.Face
	if face == nil {
		face = label.Fallback
	}
	namer := e.Namer
	if namer == nil {
		namer = filename.NewNamer(filename.Overwrite)
	}

	for _, rec := range records {
		path, err := e.exportOne(rec, face, namer)
		if err != nil {
			return summary, err
		}
		summary.Files = append(summary.Files, path)
	}

	e.status("✅ ", "QR code generation complete. Images saved to %s\n", e.OutputDir)
	return summary, nil
}

func (e *Exporter) exportOne(rec account.Record, face font.Face, namer *filename.Namer) (string, error) {
	uri := otpauth.FormatURI(rec.Name, rec.Username, rec.Secret)

	m, err := qrcode.Encode(uri)
	if err != nil {
		return "", &EncodingError{Name: rec.Name, Username: rec.Username, Err: err}
	}
	e.Log.Debug().Str("uri", uri).Int("version", m.Version()).Msg("encoded account")

	img := label.Compose(m.Image(), label.SiteText(rec.Name), label.UserText(rec.Username), face)

	path := filepath.Join(e.OutputDir, namer.Next(rec.Name, rec.Username))
	if err := writePNG(path, img); err != nil {
		return "", &IOError{Path: path, Err: err}
	}
	e.status("", "Created QR code: %s\n", path)

	if e.Verify {
		if err := e.verify(path, uri); err != nil {
			return "", err
		}
	}

	return path, nil
}

// verify reads path back and checks its QR code decodes to uri.
func (e *Exporter) verify(path, uri string) error {
	f, err := os.Open(path)
	if err != nil {
		return &VerifyError{Path: path, Err: err}
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return &VerifyError{Path: path, Err: err}
	}

	got, err := qrcode.DecodeImage(label.QRRegion(img))
	if err != nil {
		return &VerifyError{Path: path, Err: err}
	}
	if got != uri {
		return &VerifyError{Path: path, Want: uri, Got: got}
	}

	// informational only, unescaped values are allowed to confuse a strict parser
	if info, err := otpauth.ParseURI(got); err != nil {
		e.Log.Debug().Str("file", path).Err(err).Msg("verified; URI is not strictly parseable")
	} else {
		e.Log.Debug().Str("file", path).Str("issuer", info.Issuer).Str("account", info.Account).Msg("verified")
	}

	return nil
}

func (e *Exporter) status(icon, format string, args ...interface{}) {
	if e.Stdout == nil {
		return
	}
	if !e.Decorate {
		icon = ""
	}
	fmt.Fprintf(e.Stdout, icon+format, args...)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
