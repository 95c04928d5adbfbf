package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bashhack/otpqr/internal/config"
	"github.com/bashhack/otpqr/internal/export"
	"github.com/bashhack/otpqr/internal/filename"
	"github.com/bashhack/otpqr/internal/label"
	"github.com/bashhack/otpqr/internal/logging"
)

// ExitFunc is a function type for exiting the program
type ExitFunc func(code int)

// App represents the main application
type App struct {
	Open        export.OpenFunc
	Exit        ExitFunc
	Stdout      io.Writer
	Stderr      io.Writer
	VersionInfo VersionInfo
}

// VersionInfo contains version information
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// NewDefaultApp creates a new App with default dependencies
func NewDefaultApp() *App {
	return &App{
		Open:   export.OpenStore,
		Exit:   os.Exit,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		VersionInfo: VersionInfo{
			Version: version,
			Commit:  commit,
			Date:    date,
		},
	}
}

// VersionString describes the build
func (a *App) VersionString() string {
	return fmt.Sprintf("otpqr version %s (%s) built on %s",
		a.VersionInfo.Version, a.VersionInfo.Commit, a.VersionInfo.Date)
}

// resolveConfig layers the flags that were actually given over the config file.
func resolveConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, wrapUsage("%v", err)
	}

	flags := cmd.Flags()
	if flags.Changed("font") {
		cfg.Font = opts.font
	}
	if flags.Changed("font-size") {
		cfg.FontSize = opts.fontSize
	}
	if flags.Changed("on-collision") {
		cfg.OnCollision = opts.onCollision
	}
	if flags.Changed("verify") {
		cfg.Verify = opts.verify
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, wrapUsage("invalid configuration: %v", err)
	}

	return cfg, nil
}

// Export runs the batch export with cfg
func (a *App) Export(ctx context.Context, dbPath, outputPath string, cfg *config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return wrapUsage("invalid log level %q: %v", cfg.LogLevel, err)
	}
	log := logging.New(a.Stderr, level)

	policy, err := filename.ParsePolicy(cfg.OnCollision)
	if err != nil {
		return wrapUsage("%v", err)
	}

	face, ok := label.LoadFace(cfg.Font, cfg.FontSize)
	if !ok {
		log.Debug().Str("font", cfg.Font).Msg("font unavailable, using built-in bitmap font")
	}

	exporter := &export.Exporter{
		DBPath:    dbPath,
		OutputDir: outputPath,
		Open:      a.Open,
		Face:      face,
		Namer:     filename.NewNamer(policy),
		Verify:    cfg.Verify,
		Stdout:    a.Stdout,
		Decorate:  logging.IsTerminal(a.Stdout),
		Log:       log,
	}

	summary, err := exporter.Run(ctx)
	if err != nil {
		return err
	}

	log.Debug().Int("accounts", summary.Accounts).Int("files", len(summary.Files)).Msg("export finished")
	return nil
}

// PrintError prints err with suggestions for resolving it
func (a *App) PrintError(err error) {
	fmt.Fprintf(a.Stderr, "❌ %v\n", err)

	var (
		usageErr  *usageError
		dataErr   *export.DataAccessError
		encErr    *export.EncodingError
		ioErr     *export.IOError
		verifyErr *export.VerifyError
	)

	switch {
	case errors.As(err, &usageErr):
		fmt.Fprintln(a.Stderr, "\nRun 'otpqr --help' for usage.")
	case errors.As(err, &dataErr):
		fmt.Fprintln(a.Stderr, "\nTo fix this:")
		fmt.Fprintln(a.Stderr, "  1. Check the database path: "+dataErr.Path)
		fmt.Fprintln(a.Stderr, "  2. Make sure it is a SQLite database (optionally zstd-compressed)")
		fmt.Fprintln(a.Stderr, "  3. Make sure it has an 'accounts' table with the columns:")
		fmt.Fprintln(a.Stderr, "     name, username, oath_secret_key")
	case errors.As(err, &encErr):
		fmt.Fprintln(a.Stderr, "\nThe account's name, username and secret together are too long for a QR code.")
		fmt.Fprintln(a.Stderr, "Images written before this account were kept.")
	case errors.As(err, &ioErr):
		fmt.Fprintln(a.Stderr, "\nCheck that the output directory is writable and the disk is not full.")
		fmt.Fprintln(a.Stderr, "Images written before the failure were kept.")
	case errors.As(err, &verifyErr):
		fmt.Fprintln(a.Stderr, "\nA written image did not read back as its account's URI.")
		fmt.Fprintln(a.Stderr, "Do not import it; re-run the export or report the issue.")
	default:
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(a.Stderr, "\nRun 'otpqr --help' for usage.")
		}
	}
}
