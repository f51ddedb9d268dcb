// Package forward relays messages byte-for-byte to the destination address
// over SMTP, with a bounded retry schedule for transient delivery failures.
package forward

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
)

// RetrySchedule lists the waits applied between delivery attempts, in order.
// The escalation is purely sequential, no jitter: each wait doubles as a
// throttle against provider rate limits.
var RetrySchedule = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	120 * time.Second,
	180 * time.Second,
	300 * time.Second,
}

// MaxAttempts caps total delivery attempts per message.
const MaxAttempts = 6

// Transport submits one message to one recipient. A fresh connection is
// opened and closed per call.
type Transport interface {
	Send(to string, raw []byte) error
}

// RetryFunc is notified before each inter-attempt wait, so the presentation
// layer can tell the operator what is happening.
type RetryFunc func(nextAttempt int, wait time.Duration, transient bool, err error)

// Dispatcher drives delivery attempts against a Transport. Each message moves
// through attempting -> delivered, or attempting -> retrying -> ... -> failed
// once the attempt budget is exhausted.
type Dispatcher struct {
	transport Transport
	logger    *slog.Logger
	sleep     func(time.Duration)
	onRetry   RetryFunc
}

func New(transport Transport, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: transport,
		logger:    logger,
		sleep:     time.Sleep,
	}
}

// OnRetry registers a callback invoked before each wait.
func (d *Dispatcher) OnRetry(fn RetryFunc) {
	d.onRetry = fn
}

// Forward relays raw to the destination. It returns nil as soon as one
// attempt succeeds. Every failure is treated as retryable; the transient
// classification only changes what the operator is told. Between attempts the
// call blocks for the scheduled wait. After MaxAttempts failures the message
// is given up for this run and the error returned; the caller must not record
// it as processed, so the next run picks it up again.
func (d *Dispatcher) Forward(to string, raw []byte) error {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		err := d.transport.Send(to, raw)
		if err == nil {
			if attempt > 1 && d.logger != nil {
				d.logger.Info("forwarded after retries", "to", to, "attempts", attempt)
			}
			return nil
		}
		lastErr = err

		if attempt == MaxAttempts {
			break
		}

		wait := RetrySchedule[attempt-1]
		transient := IsTransient(err)
		if d.logger != nil {
			if transient {
				d.logger.Warn("delivery throttled by provider, backing off",
					"wait", wait, "nextAttempt", attempt+1, "maxAttempts", MaxAttempts, "err", err)
			} else {
				d.logger.Warn("delivery error, backing off",
					"wait", wait, "nextAttempt", attempt+1, "maxAttempts", MaxAttempts, "err", err)
			}
		}
		if d.onRetry != nil {
			d.onRetry(attempt+1, wait, transient, err)
		}
		d.sleep(wait)
	}

	if d.logger != nil {
		d.logger.Error("forwarding failed, message skipped for this run",
			"to", to, "attempts", MaxAttempts, "err", lastErr)
	}
	return fmt.Errorf("forward to %s: %d attempts exhausted: %w", to, MaxAttempts, lastErr)
}

// transientMarkers are substrings of provider errors that indicate rate
// limiting or a temporary connection problem.
var transientMarkers = []string{
	"rate", "limit", "too many", "try again", "temporarily",
	"421", "450", "451", "452", "454", "554",
	"connection", "closed", "reset", "refused", "timeout",
}

// IsTransient reports whether err looks like a rate limit or temporary
// connection failure. Non-transient errors are still retried; the result
// only affects operator messaging.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		switch smtpErr.Code {
		case 421, 450, 451, 452, 454, 554:
			return true
		}
	}

	text := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
