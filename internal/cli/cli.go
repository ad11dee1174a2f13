package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ms-csevents/internal/app"
	"ms-csevents/internal/config"
	"ms-csevents/internal/database"
	"ms-csevents/internal/logger"
	"ms-csevents/internal/models"
	"ms-csevents/internal/scraper"
)

// ExitError is the process status when a command fails.
const ExitError = 1

type options struct {
	format  string
	verbose bool
	dryRun  bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "cs-events",
		Short: "Scrape and store the CS department event calendar",
		Long: `A CLI for the CS events cache.
Runs one scrape against the configured database, or applies the schema.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(newScrapeCmd(opts), newMigrateCmd(opts))
	return cmd
}

func newScrapeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape and reconcile it into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Fetch and parse the calendar only, without detail pages or writes")
	return cmd
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd, opts)
		},
	}
}

func runScrape(cmd *cobra.Command, opts *options) error {
	format, err := parseFormat(opts.format)
	if err != nil {
		return err
	}
	cfg, log, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer log.Close()
	ctx := cmd.Context()

	if opts.dryRun {
		s, err := scraper.New(scraper.OptionsFrom(cfg.Scraper), log)
		if err != nil {
			return fmt.Errorf("initializing scraper: %w", err)
		}
		stubs, err := s.Stubs(ctx)
		if err != nil {
			return fmt.Errorf("fetching calendar: %w", err)
		}
		return WriteEvents(cmd.OutOrStdout(), stubs, format)
	}

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Pipeline.Run(ctx, models.TriggerCLI)
	if err != nil {
		return err
	}
	stored, err := a.Store.CountEvents(ctx)
	if err != nil {
		return fmt.Errorf("counting events: %w", err)
	}
	return WriteReport(cmd.OutOrStdout(), report, stored, format)
}

func runMigrate(cmd *cobra.Command, opts *options) error {
	if _, err := parseFormat(opts.format); err != nil {
		return err
	}
	cfg, log, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	defer log.Close()
	ctx := cmd.Context()

	bunDB, err := database.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if err := database.Migrate(ctx, bunDB, cfg.Database.URL, log); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
	return nil
}

// setup loads .env and the configuration and builds a logger on stderr, so
// stdout carries only command output.
func setup(cmd *cobra.Command, opts *options) (*config.Config, *logger.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	level := logger.WARN
	if opts.verbose {
		level = logger.ParseLevel(cfg.Log.Level)
	}
	log, err := logger.New(logger.Options{
		Service:  "cs-events-cli",
		Output:   cmd.ErrOrStderr(),
		MinLevel: level,
		NoColor:  !opts.verbose,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(strings.TrimSpace(s)))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// Execute runs the CLI
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(ExitError)
	}
}
