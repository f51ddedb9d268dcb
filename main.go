package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"flightfwd/archive"
	"flightfwd/classify"
	"flightfwd/config"
	"flightfwd/decode"
	"flightfwd/forward"
	"flightfwd/ledger"
	"flightfwd/mailbox"
	"flightfwd/progress"
	"flightfwd/runner"
	"flightfwd/setup"
	"flightfwd/stats"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "flightfwd",
		Short: "Forward airline confirmation emails from your mailbox to a flight tracking service",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			if runSetup, err := cmd.Flags().GetBool("setup"); err != nil {
				return err
			} else if runSetup {
				return setup.NewWizard().Run(configPath)
			}

			cfg, err := config.Load(cmd)
			if errors.Is(err, config.ErrNoConfig) {
				pterm.Error.Println("No configuration found!")
				pterm.Info.Println("Run 'flightfwd --setup' to set up your email.")
				return err
			}
			if err != nil {
				return err
			}

			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting flightfwd", "account", cfg.Email,
				"destination", cfg.Destination, "daysBack", cfg.DaysBack, "dryRun", cfg.DryRun)

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	printer := progress.NewPrinter(cfg.LogLevel, cfg.DryRun)
	printer.Banner(cfg.Email, cfg.Destination, cfg.DaysBack)

	led, err := ledger.Load(cfg.LedgerPath())
	if err != nil {
		printer.Fatal(err)
		return err
	}

	classifier, err := classify.New()
	if err != nil {
		return fmt.Errorf("classifier: %w", err)
	}

	box, err := mailbox.Connect(mailbox.Options{
		Host:     cfg.IMAPServer,
		Port:     cfg.IMAPPort,
		Username: cfg.Email,
		Password: cfg.Password,
	}, logger)
	if err != nil {
		printer.Fatal(err)
		return err
	}
	defer func() {
		if err := box.Close(); err != nil {
			logger.Debug("mailbox close failed", "err", err)
		}
	}()

	smtpUser, smtpPass := cfg.SMTPCredentials()
	dispatcher := forward.New(forward.NewSMTPTransport(forward.SMTPOptions{
		Host:              cfg.SMTPServer,
		Port:              cfg.SMTPPort,
		Username:          smtpUser,
		Password:          smtpPass,
		CommandTimeout:    60 * time.Second,
		SubmissionTimeout: 60 * time.Second,
	}), logger)
	dispatcher.OnRetry(printer.Retry)

	deps := runner.Deps{
		Mailbox:    box,
		Forwarder:  dispatcher,
		Ledger:     led,
		Decoder:    decode.New(logger),
		Classifier: classifier,
		Collector:  stats.NewCollector(),
		Printer:    printer,
	}

	if path := cfg.ArchivePath(); path != "" && !cfg.DryRun {
		arc, err := archive.Open(path)
		if err != nil {
			logger.Warn("archive disabled", "path", path, "err", err)
		} else {
			defer func() {
				_ = arc.Close()
			}()
			deps.Archive = arc
		}
	}

	r, err := runner.New(cfg, deps, logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}

	if _, err := r.Run(); err != nil {
		printer.Fatal(err)
		return err
	}
	return nil
}

func setupLogger(cfg config.Config) (*slog.Logger, func() error, error) {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	}

	opts := &slog.HandlerOptions{Level: level}
	cleanup := func() error { return nil }

	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, cleanup, err
		}

		logFilePath := filepath.Join(cfg.LogDir, fmt.Sprintf("flightfwd-%s.log", time.Now().Format("20060102T150405")))
		file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cleanup, err
		}

		handler := slog.NewTextHandler(io.MultiWriter(os.Stdout, file), opts)
		cleanup = func() error {
			return file.Close()
		}
		return slog.New(handler), cleanup, nil
	}

	handler := slog.NewTextHandler(os.Stdout, opts)
	return slog.New(handler), cleanup, nil
}
