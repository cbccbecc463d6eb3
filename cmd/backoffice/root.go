package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spdeepak/backoffice"
	"github.com/spdeepak/backoffice/api"
	"github.com/spdeepak/backoffice/money"
	"github.com/spf13/cobra"
	"golang.org/x/text/message"
)

// app carries what every command needs once the root has run.
type app struct {
	configPath string
	logLevel   string
	jsonOut    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *backoffice.Config
	admin   *backoffice.Admin
	logger  *slog.Logger
	printer *message.Printer
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{in: in, out: out, errOut: errOut, printer: money.DefaultPrinter()}

	rootCmd := &cobra.Command{
		Use:   "backoffice",
		Short: "Store admin back-office",
		Long: `Store admin back-office.

Browse and manage customers, products, categories, filters and inquiries
through the admin REST API. Settings come from --config and BACKOFFICE_*
environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.admin != nil {
				return a.admin.Close()
			}
			return nil
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "backoffice.yaml", "config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(
		newDashboardCmd(a),
		newCustomersCmd(a),
		newProductsCmd(a),
		newCategoriesCmd(a),
		newFiltersCmd(a),
		newInquiriesCmd(a),
		newFilesCmd(a),
	)
	return rootCmd
}

func (a *app) setup() error {
	cfg, err := backoffice.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := backoffice.ParseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.logger = newLogger(a.errOut, cfg.Log.Format, level)

	admin, err := backoffice.New(*cfg, backoffice.WithLogger(a.logger))
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.admin = admin
	return nil
}

// newLogger picks a text handler for terminals and JSON otherwise.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "" || format == "auto" {
		format = "json"
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			format = "text"
		}
	}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// render prints v as JSON with --json, otherwise through table.
func (a *app) render(v any, table func(w io.Writer)) error {
	if a.jsonOut {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

// failed turns err into what the operator should read. Server internals stay in
// the debug log.
func (a *app) failed(err error, action string) error {
	if err == nil {
		return nil
	}
	a.logger.Debug(action, slog.Any("error", err.Error()))

	var verr *backoffice.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr
	case errors.Is(err, backoffice.ErrMissingID):
		return err
	case api.IsNotFound(err):
		return fmt.Errorf("%s: not found", action)
	case api.IsKind(err, api.KindUnauthorized):
		return fmt.Errorf("%s: not authorized, check BACKOFFICE_API_TOKEN", action)
	}
	return errors.New(api.UserMessage(err, "Failed to "+action))
}

func orDash(s string) string {
	if s == "" {
		return backoffice.NoContact
	}
	return s
}
