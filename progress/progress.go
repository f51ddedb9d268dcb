// Package progress renders operator-facing output for a run: the banner,
// per-folder and per-match lines, retry notices, the final summary, and the
// diagnosis of fatal connection errors.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/pterm/pterm"

	"flightfwd/mailbox"
	"flightfwd/model"
)

// Printer writes human-oriented progress to the terminal. It is enabled only
// at the default info log level; at other levels the structured log carries
// the same information.
type Printer struct {
	enabled bool
	dryRun  bool
}

func NewPrinter(logLevel string, dryRun bool) *Printer {
	return &Printer{enabled: logLevel == "info", dryRun: dryRun}
}

// Banner prints the run header: account, destination and lookback window.
func (p *Printer) Banner(account, destination string, daysBack int) {
	if !p.enabled {
		return
	}
	pterm.DefaultSection.Println("Flight Email Forwarder")
	pterm.Info.Printf("Account:     %s\n", account)
	pterm.Info.Printf("Forward to:  %s\n", destination)
	pterm.Info.Printf("Days back:   %d\n", daysBack)
	if p.dryRun {
		pterm.Warning.Println("Mode:        DRY RUN (no emails will be sent)")
	}
	pterm.Println()
}

func (p *Printer) Folder(name string) {
	if !p.enabled {
		return
	}
	pterm.Info.Printf("Searching: %s\n", name)
}

func (p *Printer) FolderSkipped(name string, err error) {
	if !p.enabled {
		return
	}
	pterm.Warning.Printf("Could not open folder %s, skipping: %v\n", name, err)
}

// Match reports one classified flight email.
func (p *Printer) Match(carrier, from, subject string) {
	if !p.enabled {
		return
	}
	prefix := ""
	if p.dryRun {
		prefix = "[DRY RUN] "
	}
	pterm.Success.Printf("%sFound: %s\n", prefix, carrier)
	pterm.Info.Printf("  From:    %s\n", truncate(from, 60))
	pterm.Info.Printf("  Subject: %s\n", truncate(subject, 60))
}

func (p *Printer) Forwarded(destination string) {
	if !p.enabled {
		return
	}
	pterm.Success.Printf("  -> Forwarded to %s\n", destination)
}

// Retry tells the operator why the dispatcher is waiting.
func (p *Printer) Retry(nextAttempt int, wait time.Duration, transient bool, err error) {
	if !p.enabled {
		return
	}
	if transient {
		pterm.Warning.Println("  Blocked by the email provider (sending speed limit)")
	} else {
		pterm.Warning.Printf("  Connection error: %s\n", truncate(err.Error(), 100))
	}
	pterm.Info.Printf("  Waiting %s then retrying (attempt %d)...\n", wait, nextAttempt)
}

func (p *Printer) ForwardFailed(attempts int) {
	if !p.enabled {
		return
	}
	pterm.Error.Printf("  Failed after %d attempts; this email is skipped and will be retried next run\n", attempts)
}

// LedgerWarning surfaces a ledger persistence failure: silent loss here would
// cause duplicate forwarding on the next run.
func (p *Printer) LedgerWarning(err error) {
	if !p.enabled {
		return
	}
	pterm.Warning.Printf("Could not save the processed-message ledger: %v\n", err)
	pterm.Warning.Println("Already-forwarded emails may be forwarded again on the next run.")
}

// Summary prints the run totals.
func (p *Printer) Summary(outcome model.RunOutcome) {
	if !p.enabled {
		return
	}
	pterm.Println()
	pterm.DefaultSection.Println("Summary")
	pterm.Info.Printf("Flight emails found:    %d\n", outcome.TotalFound)
	if p.dryRun {
		pterm.Info.Printf("Would be forwarded:     %d\n", outcome.TotalForwarded)
	} else {
		pterm.Info.Printf("Successfully forwarded: %d\n", outcome.TotalForwarded)
	}
}

// Fatal renders a fatal error with a remediation hint instead of a stack
// trace. Mailbox connection failures get a per-kind diagnosis.
func (p *Printer) Fatal(err error) {
	var connErr *mailbox.ConnectError
	if errors.As(err, &connErr) {
		p.fatalConnect(connErr)
		return
	}
	box("ERROR", fmt.Sprintf("%v", err),
		"Try running with --setup to reconfigure, or try again in a few minutes.")
}

func (p *Printer) fatalConnect(err *mailbox.ConnectError) {
	switch err.Kind {
	case mailbox.ConnectAuth:
		box("LOGIN FAILED", err.Err.Error(),
			"This usually means you're using your regular password instead of an App Password,",
			"or the App Password was entered incorrectly.",
			"To fix: run with --setup and enter a new App Password.")
	case mailbox.ConnectDisabled:
		box("LOGIN FAILED", err.Err.Error(),
			"This usually means IMAP access is disabled in your email settings.",
			"Enable IMAP access in your email provider's settings.")
	case mailbox.ConnectTimeout:
		box("CONNECTION TIMED OUT", err.Err.Error(),
			"Could not reach the email server in time. This could mean a slow or",
			"unstable internet connection, a temporarily unavailable server, or a",
			"firewall blocking the connection. Try again in a few minutes.")
	case mailbox.ConnectNoSuchHost:
		box("SERVER NOT FOUND", fmt.Sprintf("Could not find server: %s", err.Host),
			"This could mean no internet connection, or the server address is",
			"incorrect. Run with --setup to check your settings.")
	case mailbox.ConnectRefused:
		box("CONNECTION REFUSED", fmt.Sprintf("The server %s refused the connection.", err.Host),
			"This could mean the port number is incorrect (993 is usual for IMAP",
			"over TLS), or the server doesn't allow IMAP connections.",
			"Run with --setup to check your settings.")
	default:
		box("CONNECTION ERROR", err.Err.Error(),
			"Make sure you're using an App Password, not your regular password.",
			"Run with --setup to reconfigure, or try again in a few minutes.")
	}
}

func box(title, detail string, hints ...string) {
	body := detail
	for _, hint := range hints {
		body += "\n" + hint
	}
	pterm.DefaultBox.WithTitle(title).Println(body)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
