package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// ErrNoConfig is returned when no configuration record exists yet. The
// operator is pointed at the setup wizard instead of a raw error.
var ErrNoConfig = errors.New("no configuration found")

// Config is the persisted configuration record plus per-run flags. The JSON
// field names match the config.json written by the setup wizard; the record
// is loaded once per run and never mutated afterwards.
type Config struct {
	IMAPServer   string   `json:"imap_server"`
	IMAPPort     int      `json:"imap_port"`
	SMTPServer   string   `json:"smtp_server"`
	SMTPPort     int      `json:"smtp_port"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	SMTPEmail    string   `json:"smtp_email,omitempty"`
	SMTPPassword string   `json:"smtp_password,omitempty"`
	Destination  string   `json:"flighty_email"`
	CheckFolders []string `json:"check_folders"`
	DaysBack     int      `json:"days_back"`
	MarkAsRead   bool     `json:"mark_as_read"`
	LedgerFile   string   `json:"processed_file"`
	ArchiveFile  string   `json:"archive_file,omitempty"`

	// Per-run flags, not persisted.
	DryRun   bool   `json:"-"`
	LogLevel string `json:"-"`
	LogDir   string `json:"-"`
	Path     string `json:"-"`
}

// RegisterFlags attaches all CLI flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultPath, err := DefaultPath()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	flags.String("config", defaultPath, "Path to the configuration file")
	flags.Bool("dry-run", false, "Report matches without forwarding or saving state")
	flags.Bool("setup", false, "Run the interactive setup wizard")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Directory for log files (stdout only if empty)")
	return nil
}

// Load reads the flags and the configuration record they point at.
func Load(cmd *cobra.Command) (Config, error) {
	flags := cmd.Flags()

	path, err := flags.GetString("config")
	if err != nil {
		return Config{}, err
	}
	dryRun, err := flags.GetBool("dry-run")
	if err != nil {
		return Config{}, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return Config{}, err
	}
	logDir, err := flags.GetString("log-dir")
	if err != nil {
		return Config{}, err
	}

	cfg, err := LoadFile(path)
	if err != nil {
		return Config{}, err
	}

	logLevel = strings.ToLower(logLevel)
	if logLevel == "warning" {
		logLevel = "warn"
	}

	cfg.DryRun = dryRun
	cfg.LogLevel = logLevel
	cfg.LogDir = logDir

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads and parses the configuration record at path, applying
// defaults for optional fields.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}, ErrNoConfig
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Path = filepath.Clean(path)

	if len(cfg.CheckFolders) == 0 {
		cfg.CheckFolders = []string{"INBOX"}
	}
	if cfg.LedgerFile == "" {
		cfg.LedgerFile = "processed_flights.json"
	}
	return cfg, nil
}

// Save writes the configuration record to path, creating the directory as
// needed. Used by the setup wizard.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SMTPCredentials returns the transport credentials, falling back to the
// mailbox credentials when no separate ones are configured.
func (c Config) SMTPCredentials() (username, password string) {
	username, password = c.SMTPEmail, c.SMTPPassword
	if username == "" {
		username = c.Email
	}
	if password == "" {
		password = c.Password
	}
	return username, password
}

// LedgerPath resolves the ledger file location relative to the config file.
func (c Config) LedgerPath() string {
	return c.resolve(c.LedgerFile)
}

// ArchivePath resolves the optional forwarded-message archive location.
// Empty means no archive is written.
func (c Config) ArchivePath() string {
	if c.ArchiveFile == "" {
		return ""
	}
	return c.resolve(c.ArchiveFile)
}

func (c Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(filepath.Dir(c.Path), name)
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".flightfwd", "config.json"), nil
}

func validate(cfg Config) error {
	if cfg.Email == "" || cfg.Password == "" {
		return fmt.Errorf("email or password not configured; run with --setup")
	}
	if cfg.IMAPServer == "" {
		return fmt.Errorf("imap_server is not configured; run with --setup")
	}
	if cfg.SMTPServer == "" {
		return fmt.Errorf("smtp_server is not configured; run with --setup")
	}
	if cfg.Destination == "" {
		return fmt.Errorf("destination address is not configured; run with --setup")
	}
	if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
		return fmt.Errorf("imap_port must be between 1 and 65535")
	}
	if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
		return fmt.Errorf("smtp_port must be between 1 and 65535")
	}
	if cfg.DaysBack < 1 {
		return fmt.Errorf("days_back must be at least 1")
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}
	return nil
}
