// Package setup is the interactive configuration wizard. It produces the
// configuration record the core consumes; nothing here runs during a
// forwarding run.
package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"golang.org/x/term"

	"flightfwd/config"
)

type provider struct {
	Name       string
	IMAPServer string
	IMAPPort   int
	SMTPServer string
	SMTPPort   int
	Help       string
}

var providers = []provider{
	{"AOL", "imap.aol.com", 993, "smtp.aol.com", 587,
		"Create an App Password at: https://login.aol.com/account/security"},
	{"Gmail", "imap.gmail.com", 993, "smtp.gmail.com", 587,
		"Create an App Password at: https://myaccount.google.com/apppasswords"},
	{"Yahoo", "imap.mail.yahoo.com", 993, "smtp.mail.yahoo.com", 587,
		"Create an App Password at: https://login.yahoo.com/account/security"},
	{"Outlook/Hotmail", "outlook.office365.com", 993, "smtp.office365.com", 587,
		"You may need to enable IMAP in Outlook settings"},
	{"iCloud", "imap.mail.me.com", 993, "smtp.mail.me.com", 587,
		"Create an App Password at: https://appleid.apple.com/account/manage"},
	{"Custom (enter your own servers)", "", 993, "", 587,
		"Contact your email provider for IMAP/SMTP settings"},
}

// DefaultDestination is the import address forwarded mail goes to unless the
// operator overrides it.
const DefaultDestination = "track@my.flightyapp.com"

// Wizard prompts on in and writes the configuration record.
type Wizard struct {
	in  *bufio.Reader
	out io.Writer
}

func NewWizard() *Wizard {
	return &Wizard{in: bufio.NewReader(os.Stdin), out: os.Stdout}
}

// Run walks the operator through creating the configuration record at path.
func (w *Wizard) Run(path string) error {
	pterm.DefaultSection.Println("Flight Email Forwarder Setup")
	pterm.Info.Println("Flight confirmation emails found in your mailbox will be")
	pterm.Info.Println("forwarded to a tracking service import address.")
	pterm.Println()

	var cfg config.Config

	// Step 1: provider
	pterm.DefaultSection.WithLevel(2).Println("Step 1/6: Select your email provider")
	for i, p := range providers {
		fmt.Fprintf(w.out, "  %d. %s\n", i+1, p.Name)
	}
	choice := w.promptInt("Enter your choice", 1, len(providers), 0)
	p := providers[choice-1]
	if p.Help != "" {
		pterm.Info.Println(p.Help)
	}

	if p.IMAPServer == "" {
		cfg.IMAPServer = w.prompt("IMAP server (e.g., imap.example.com)", "")
		cfg.IMAPPort = w.promptInt("IMAP port", 1, 65535, 993)
		cfg.SMTPServer = w.prompt("SMTP server (e.g., smtp.example.com)", "")
		cfg.SMTPPort = w.promptInt("SMTP port", 1, 65535, 587)
	} else {
		cfg.IMAPServer = p.IMAPServer
		cfg.IMAPPort = p.IMAPPort
		cfg.SMTPServer = p.SMTPServer
		cfg.SMTPPort = p.SMTPPort
	}

	// Step 2: credentials
	pterm.DefaultSection.WithLevel(2).Println("Step 2/6: Email credentials")
	cfg.Email = w.prompt("Your email address", "")
	pterm.Info.Println("You typically need an App Password here, not your regular password.")
	cfg.Password = w.promptPassword("App Password (input hidden)")

	// Step 3: destination
	pterm.DefaultSection.WithLevel(2).Println("Step 3/6: Destination address")
	pterm.Info.Println("The default import address works for most users.")
	cfg.Destination = w.prompt("Destination email address", DefaultDestination)

	// Step 4: folders
	pterm.DefaultSection.WithLevel(2).Println("Step 4/6: Folders to search")
	pterm.Info.Println("Multiple folders can be separated by commas (e.g. INBOX, Travel).")
	folders := w.prompt("Folders to search", "INBOX")
	for _, f := range strings.Split(folders, ",") {
		if f = strings.TrimSpace(f); f != "" {
			cfg.CheckFolders = append(cfg.CheckFolders, f)
		}
	}

	// Step 5: lookback window
	pterm.DefaultSection.WithLevel(2).Println("Step 5/6: How far back to search")
	pterm.Info.Println("Already-forwarded emails won't be sent again.")
	cfg.DaysBack = w.promptInt("Number of days to look back", 1, 3650, 30)

	// Step 6: options
	pterm.DefaultSection.WithLevel(2).Println("Step 6/6: Additional options")
	cfg.MarkAsRead = w.promptYesNo("Mark emails as read after forwarding?", false)
	cfg.LedgerFile = "processed_flights.json"

	if err := config.Save(cfg, path); err != nil {
		return err
	}

	pterm.Println()
	pterm.DefaultSection.Println("Configuration summary")
	pterm.Info.Printf("Email:        %s\n", cfg.Email)
	pterm.Info.Printf("IMAP server:  %s:%d\n", cfg.IMAPServer, cfg.IMAPPort)
	pterm.Info.Printf("SMTP server:  %s:%d\n", cfg.SMTPServer, cfg.SMTPPort)
	pterm.Info.Printf("Forward to:   %s\n", cfg.Destination)
	pterm.Info.Printf("Folders:      %s\n", strings.Join(cfg.CheckFolders, ", "))
	pterm.Info.Printf("Days back:    %d\n", cfg.DaysBack)
	pterm.Info.Printf("Mark as read: %v\n", cfg.MarkAsRead)
	pterm.Success.Printf("Saved to %s\n", path)
	return nil
}

func (w *Wizard) prompt(label, defaultValue string) string {
	for {
		if defaultValue != "" {
			fmt.Fprintf(w.out, "%s [%s]: ", label, defaultValue)
		} else {
			fmt.Fprintf(w.out, "%s: ", label)
		}
		line, err := w.in.ReadString('\n')
		if err != nil {
			return defaultValue
		}
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
		if defaultValue != "" {
			return defaultValue
		}
		fmt.Fprintln(w.out, "  This field is required. Please enter a value.")
	}
}

func (w *Wizard) promptInt(label string, min, max, defaultValue int) int {
	for {
		def := ""
		if defaultValue > 0 {
			def = strconv.Itoa(defaultValue)
		}
		value := w.prompt(label, def)
		n, err := strconv.Atoi(value)
		if err != nil {
			fmt.Fprintln(w.out, "  Please enter a valid number.")
			continue
		}
		if n < min || n > max {
			fmt.Fprintf(w.out, "  Please enter a number between %d and %d.\n", min, max)
			continue
		}
		return n
	}
}

func (w *Wizard) promptPassword(label string) string {
	for {
		fmt.Fprintf(w.out, "%s: ", label)
		data, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(w.out)
		if err != nil {
			// Not a terminal; fall back to a plain read.
			return w.prompt(label, "")
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			return value
		}
		fmt.Fprintln(w.out, "  This field is required. Please enter a value.")
	}
}

func (w *Wizard) promptYesNo(label string, defaultYes bool) bool {
	hint, def := "y/N", "n"
	if defaultYes {
		hint, def = "Y/n", "y"
	}
	for {
		value := strings.ToLower(w.prompt(fmt.Sprintf("%s [%s]", label, hint), def))
		switch value {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Fprintln(w.out, "  Please enter 'y' or 'n'.")
	}
}
