package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set by ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := NewDefaultApp()
	run(app, os.Args)
}

// run is the testable entrypoint for the application
func run(app *App, args []string) {
	cmd := newRootCmd(app)
	cmd.SetArgs(args[1:])

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		app.PrintError(err)
		app.Exit(1)
	}
}

// options are the command-line flags. Flags that were set override the
// config file.
type options struct {
	configPath  string
	font        string
	fontSize    float64
	onCollision string
	verify      bool
	verbose     bool
}

func newRootCmd(app *App) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "otpqr <db_path> <output_path>",
		Short: "Export 2FA accounts to QR code images",
		Long: `otpqr reads the accounts table (name, username, oath_secret_key) of a SQLite
database and writes one labeled QR code PNG per account into output_path.
Each QR code holds an otpauth://totp provisioning URI an authenticator app
can scan. A zstd-compressed database is accepted as well.`,
		Args:          cobra.ExactArgs(2),
		Version:       app.VersionInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return app.Export(cmd.Context(), args[0], args[1], cfg)
		},
	}

	cmd.SetOut(app.Stdout)
	cmd.SetErr(app.Stderr)
	cmd.SetVersionTemplate(app.VersionString() + "\n")

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Path to an optional YAML config file")
	f.StringVar(&opts.font, "font", "", "TrueType font file or name for the labels (default \"arial.ttf\")")
	f.Float64Var(&opts.fontSize, "font-size", 0, "Label font size in points (default 18)")
	f.StringVar(&opts.onCollision, "on-collision", "", "What to do when two accounts map to one file name: overwrite or suffix (default \"overwrite\")")
	f.BoolVar(&opts.verify, "verify", false, "Decode every written image and check it matches its account")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug details to stderr")

	return cmd
}

// usageError marks errors caused by how the command was invoked.
type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

// wrapUsage is used for flag and config errors so PrintError can point at --help.
func wrapUsage(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}
