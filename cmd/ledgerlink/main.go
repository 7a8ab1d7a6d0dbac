// Package main implements the ledgerlink binary which links clients to
// companies of the local ledger application.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/cybertec-postgresql/ledgerlink/internal/api"
	"github.com/cybertec-postgresql/ledgerlink/internal/clients"
	"github.com/cybertec-postgresql/ledgerlink/internal/collection"
	"github.com/cybertec-postgresql/ledgerlink/internal/ledger"
	"github.com/cybertec-postgresql/ledgerlink/internal/log"
	"github.com/cybertec-postgresql/ledgerlink/internal/retry"
	"github.com/cybertec-postgresql/ledgerlink/internal/sync"
)

// Config holds the application configuration
type Config struct {
	Listen        string `long:"listen" env:"LEDGERLINK_LISTEN" description:"HTTP listen address" default:":3000"`
	LedgerURL     string `long:"ledger-url" env:"LEDGERLINK_LEDGER_URL" description:"Ledger application XML endpoint" default:"http://localhost:9000"`
	LedgerTimeout string `long:"ledger-timeout" env:"LEDGERLINK_LEDGER_TIMEOUT" description:"Timeout of a single ledger request" default:"5s"`
	LedgerRetries uint64 `long:"ledger-retries" env:"LEDGERLINK_LEDGER_RETRIES" description:"Additional attempts for failed company listings" default:"0"`
	DemoFallback  bool   `long:"demo-fallback" env:"LEDGERLINK_DEMO_FALLBACK" description:"Return demo companies when the ledger reply lists none"`
	DataDir       string `short:"d" long:"data-dir" env:"LEDGERLINK_DATA_DIR" description:"Directory of the JSON collections" default:"./data"`
	Store         string `short:"s" long:"store" env:"LEDGERLINK_STORE" description:"Sync record backend" choice:"file" choice:"postgres" choice:"etcd" default:"file"`
	PostgresDSN   string `short:"p" long:"postgres-dsn" env:"LEDGERLINK_POSTGRES_DSN" description:"PostgreSQL connection string (--store=postgres)"`
	EtcdDSN       string `short:"e" long:"etcd-dsn" env:"LEDGERLINK_ETCD_DSN" description:"etcd connection string (--store=etcd)"`
	LogLevel      string `short:"l" long:"log-level" env:"LEDGERLINK_LOG_LEVEL" description:"Log level: debug|info|warn|error" default:"info"`
	LogFormat     string `long:"log-format" env:"LEDGERLINK_LOG_FORMAT" description:"Log format" choice:"text" choice:"json" default:"text"`
	Version       bool   `short:"v" long:"version" description:"Show version information"`
	Help          bool
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ParseCLI parses command-line arguments and returns the configuration
func ParseCLI(args []string) (cmdOpts *Config, err error) {
	cmdOpts = new(Config)
	parser := flags.NewParser(cmdOpts, flags.HelpFlag)
	nonParsedArgs, err := parser.ParseArgs(args)
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			cmdOpts.Help = true
		}
		if !flags.WroteHelp(err) {
			parser.WriteHelp(os.Stdout)
		}
		return cmdOpts, err
	}
	if len(nonParsedArgs) > 0 {
		return cmdOpts, fmt.Errorf("unknown argument(s): %v", nonParsedArgs)
	}
	return
}

// Validate checks the options that depend on each other
func (c *Config) Validate() error {
	if _, err := time.ParseDuration(c.LedgerTimeout); err != nil {
		return fmt.Errorf("invalid ledger timeout: %w", err)
	}
	switch {
	case c.Store == "postgres" && c.PostgresDSN == "":
		return errors.New("--postgres-dsn is required for the postgres store")
	case c.Store == "etcd" && c.EtcdDSN == "":
		return errors.New("--etcd-dsn is required for the etcd store")
	}
	return nil
}

// LedgerConfig returns the transport settings
func (c *Config) LedgerConfig() ledger.Config {
	cfg := ledger.DefaultConfig()
	if c.LedgerURL != "" {
		cfg.URL = c.LedgerURL
	}
	if timeout, err := time.ParseDuration(c.LedgerTimeout); err == nil && timeout > 0 {
		cfg.Timeout = timeout
	}
	return cfg
}

// ShowVersion prints version information and exits
func ShowVersion() {
	fmt.Printf("ledgerlink version %s\n", version)
	if commit != "none" && commit != "" {
		fmt.Printf("commit: %s\n", commit)
	}
	if date != "unknown" && date != "" {
		fmt.Printf("built: %s\n", date)
	}
}

// SetupLogging configures the logging system with structured output
func SetupLogging(logLevel, logFormat string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(log.NewFormatter(logFormat == "json"))
	logrus.SetReportCaller(false)

	logrus.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"pid":     os.Getpid(),
	}).Info("ledgerlink logging initialized")

	return nil
}

// SetupCloseHandler creates a 'listener' on a new goroutine which will notify the
// program if it receives an interrupt from the OS. We then handle this by calling
// our clean up procedure and exiting the program.
func SetupCloseHandler(cancel context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logrus.Debug("SetupCloseHandler received an interrupt from OS. Shutting down...")
		cancel()
	}()
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-v" {
			ShowVersion()
			os.Exit(0)
		}
	}

	config, err := ParseCLI(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Printf("Error: %s\n", err)
		os.Exit(1)
	}

	if err := SetupLogging(config.LogLevel, config.LogFormat); err != nil {
		logrus.WithError(err).Fatal("Failed to setup logging")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetupCloseHandler(cancel)

	files, err := collection.NewDirStore(config.DataDir)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open data directory")
	}

	store, closeStore, err := openStore(ctx, config, files)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open sync store")
	}
	defer closeStore()

	ledgerRetry := retry.LedgerDefaults()
	ledgerRetry.MaxAttempts = config.LedgerRetries
	resolver := ledger.NewResolver(
		ledger.NewClient(config.LedgerConfig()),
		ledger.WithDemoFallback(config.DemoFallback),
		ledger.WithRetry(ledgerRetry),
	)
	if config.DemoFallback {
		logrus.Warn("Demo company fallback enabled, empty ledger replies will list demo companies")
	}

	handler := api.NewRouter(sync.NewService(resolver, store), clients.NewRepository(files))
	if err := serve(ctx, config.Listen, handler); err != nil {
		logrus.WithError(err).Fatal("HTTP server failed")
	}

	logrus.Info("Graceful shutdown completed")
}

// serve runs the HTTP server until ctx is canceled
func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
