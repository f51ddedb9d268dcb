package mailbox

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// ConnectKind classifies why a mailbox session could not be established.
// Every kind aborts the run; the distinction only drives the operator-facing
// diagnosis.
type ConnectKind int

const (
	ConnectUnknown ConnectKind = iota
	ConnectAuth
	ConnectDisabled
	ConnectTimeout
	ConnectNoSuchHost
	ConnectRefused
)

// ConnectError is a structured mailbox connection failure: a kind plus the
// underlying cause, rendered by the presentation layer.
type ConnectError struct {
	Kind ConnectKind
	Host string
	Err  error
}

func (e *ConnectError) Error() string {
	switch e.Kind {
	case ConnectAuth:
		return "mailbox login failed: " + e.Err.Error()
	case ConnectDisabled:
		return "mailbox access disabled: " + e.Err.Error()
	case ConnectTimeout:
		return "mailbox connection timed out: " + e.Err.Error()
	case ConnectNoSuchHost:
		return "mailbox server not found: " + e.Err.Error()
	case ConnectRefused:
		return "mailbox connection refused: " + e.Err.Error()
	default:
		return "mailbox connection failed: " + e.Err.Error()
	}
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

func classifyDialError(err error) ConnectKind {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ConnectNoSuchHost
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ConnectTimeout
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectRefused
	}
	return ConnectUnknown
}

// classifyLoginError keys off the server's error text, the only signal IMAP
// gives for a rejected login.
func classifyLoginError(err error) ConnectKind {
	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "invalid"),
		strings.Contains(text, "authentication"),
		strings.Contains(text, "credential"):
		return ConnectAuth
	case strings.Contains(text, "disabled"),
		strings.Contains(text, "imap"):
		return ConnectDisabled
	default:
		return ConnectUnknown
	}
}
