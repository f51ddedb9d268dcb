package forward

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

type SMTPOptions struct {
	Host     string
	Port     int
	Username string
	Password string

	// Per-operation timeouts on the submission connection. Zero keeps the
	// go-smtp defaults.
	CommandTimeout    time.Duration
	SubmissionTimeout time.Duration
}

// SMTPTransport submits messages over a STARTTLS-negotiated connection. Each
// Send opens a fresh connection and closes it before returning, so a stale
// session can never poison later attempts.
type SMTPTransport struct {
	opts SMTPOptions
}

func NewSMTPTransport(opts SMTPOptions) *SMTPTransport {
	return &SMTPTransport{opts: opts}
}

// Send relays raw unmodified to a single recipient. Only the envelope
// changes: sender is the configured account, recipient is to.
func (t *SMTPTransport) Send(to string, raw []byte) error {
	address := net.JoinHostPort(t.opts.Host, strconv.Itoa(t.opts.Port))

	client, err := smtp.DialStartTLS(address, &tls.Config{ServerName: t.opts.Host})
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", address, err)
	}
	defer client.Close()

	if t.opts.CommandTimeout > 0 {
		client.CommandTimeout = t.opts.CommandTimeout
	}
	if t.opts.SubmissionTimeout > 0 {
		client.SubmissionTimeout = t.opts.SubmissionTimeout
	}

	auth := sasl.NewPlainClient("", t.opts.Username, t.opts.Password)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp login: %w", err)
	}

	if err := client.SendMail(t.opts.Username, []string{to}, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}

	return client.Quit()
}
