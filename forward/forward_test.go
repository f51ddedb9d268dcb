package forward

import (
	"errors"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport fails a fixed number of times before succeeding.
type fakeTransport struct {
	failures int
	err      error
	calls    int
	lastTo   string
	lastRaw  []byte
}

func (f *fakeTransport) Send(to string, raw []byte) error {
	f.calls++
	f.lastTo = to
	f.lastRaw = raw
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

func newTestDispatcher(transport Transport) (*Dispatcher, *[]time.Duration) {
	var waits []time.Duration
	d := New(transport, nil)
	d.sleep = func(wait time.Duration) {
		waits = append(waits, wait)
	}
	return d, &waits
}

func TestForwardFirstAttemptSucceeds(t *testing.T) {
	transport := &fakeTransport{}
	d, waits := newTestDispatcher(transport)

	err := d.Forward("track@example.com", []byte("raw message"))
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)
	assert.Empty(t, *waits)
	assert.Equal(t, "track@example.com", transport.lastTo)
	assert.Equal(t, []byte("raw message"), transport.lastRaw)
}

func TestForwardRetriesThenSucceeds(t *testing.T) {
	// Three transient failures, then success: exactly four attempts with
	// waits of 10s, 30s and 60s between them.
	transport := &fakeTransport{failures: 3, err: errors.New("450 try again later")}
	d, waits := newTestDispatcher(transport)

	err := d.Forward("track@example.com", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 4, transport.calls)
	assert.Equal(t, []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second}, *waits)
}

func TestForwardExhaustsRetryBudget(t *testing.T) {
	transport := &fakeTransport{failures: MaxAttempts + 1, err: errors.New("connection reset by peer")}
	d, waits := newTestDispatcher(transport)

	err := d.Forward("track@example.com", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, MaxAttempts, transport.calls)
	assert.Equal(t, []time.Duration{
		10 * time.Second, 30 * time.Second, 60 * time.Second,
		120 * time.Second, 180 * time.Second,
	}, *waits)
	assert.ErrorContains(t, err, "attempts exhausted")
}

func TestForwardNonTransientErrorsStillRetry(t *testing.T) {
	// No error short-circuits the budget; the classification only changes
	// the operator messaging.
	transport := &fakeTransport{failures: 1, err: errors.New("550 5.1.1 no such user")}
	d, _ := newTestDispatcher(transport)

	var sawTransient *bool
	d.OnRetry(func(next int, wait time.Duration, transient bool, err error) {
		sawTransient = &transient
	})

	err := d.Forward("track@example.com", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, 2, transport.calls)
	require.NotNil(t, sawTransient)
	assert.False(t, *sawTransient)
}

func TestOnRetryCallback(t *testing.T) {
	transport := &fakeTransport{failures: 2, err: errors.New("rate limit exceeded")}
	d, _ := newTestDispatcher(transport)

	var attempts []int
	d.OnRetry(func(next int, wait time.Duration, transient bool, err error) {
		attempts = append(attempts, next)
		assert.True(t, transient)
	})

	require.NoError(t, d.Forward("track@example.com", []byte("x")))
	assert.Equal(t, []int{2, 3}, attempts)
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"smtp 421", &smtp.SMTPError{Code: 421, Message: "service not available"}, true},
		{"smtp 450", &smtp.SMTPError{Code: 450, Message: "mailbox busy"}, true},
		{"smtp 554 wrapped", &smtp.SMTPError{Code: 554, Message: "transaction failed"}, true},
		{"rate limit text", errors.New("Rate limit exceeded, Try Again"), true},
		{"too many", errors.New("too many messages sent"), true},
		{"timeout", errors.New("i/o timeout"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"permanent rejection", errors.New("550 5.1.1 no such user"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}

func TestRetryScheduleShape(t *testing.T) {
	require.Len(t, RetrySchedule, MaxAttempts)
	for i := 1; i < len(RetrySchedule); i++ {
		assert.Greater(t, RetrySchedule[i], RetrySchedule[i-1])
	}
}
