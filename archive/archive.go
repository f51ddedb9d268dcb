// Package archive appends forwarded messages to a local mbox file, keeping a
// byte-for-byte audit trail of everything relayed downstream.
package archive

import (
	"fmt"
	"net/mail"
	"os"
	"time"

	"github.com/emersion/go-mbox"
)

// Writer appends messages to an mbox file. Not safe for concurrent use; the
// run owns it exclusively.
type Writer struct {
	file *os.File
	mbox *mbox.Writer
}

// Open opens (or creates) the mbox file at path for appending.
func Open(path string) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	return &Writer{file: file, mbox: mbox.NewWriter(file)}, nil
}

// Append writes one message. The sender header may carry a display name; only
// the bare address ends up in the mbox separator line.
func (w *Writer) Append(from string, date time.Time, raw []byte) error {
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}
	if from == "" {
		from = "unknown@unknown"
	}
	if date.IsZero() {
		date = time.Now()
	}

	mw, err := w.mbox.CreateMessage(from, date)
	if err != nil {
		return fmt.Errorf("archive message: %w", err)
	}
	if _, err := mw.Write(raw); err != nil {
		return fmt.Errorf("archive write: %w", err)
	}
	return nil
}

// Close flushes the mbox writer and closes the file.
func (w *Writer) Close() error {
	var firstErr error
	if err := w.mbox.Close(); err != nil {
		firstErr = fmt.Errorf("close archive writer: %w", err)
	}
	if err := w.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close archive file: %w", err)
	}
	return firstErr
}
