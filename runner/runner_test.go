package runner

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flightfwd/classify"
	"flightfwd/config"
	"flightfwd/decode"
	"flightfwd/ledger"
	"flightfwd/model"
	"flightfwd/stats"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMailbox struct {
	uids       map[string][]uint32
	messages   map[string][]byte
	failList   map[string]error
	failFetch  map[string]error
	seen       []string
	fetchCalls int
}

func (f *fakeMailbox) ListCandidates(folder string, since time.Time) ([]uint32, error) {
	if err := f.failList[folder]; err != nil {
		return nil, err
	}
	return f.uids[folder], nil
}

func (f *fakeMailbox) Fetch(folder string, uid uint32) (model.RawMessage, error) {
	f.fetchCalls++
	key := fmt.Sprintf("%s:%d", folder, uid)
	if err := f.failFetch[key]; err != nil {
		return model.RawMessage{}, err
	}
	raw, ok := f.messages[key]
	if !ok {
		return model.RawMessage{}, errors.New("no such message")
	}
	return model.RawMessage{Folder: folder, UID: uid, Raw: raw}, nil
}

func (f *fakeMailbox) MarkSeen(folder string, uid uint32) error {
	f.seen = append(f.seen, fmt.Sprintf("%s:%d", folder, uid))
	return nil
}

type fakeForwarder struct {
	forwarded []string
	fail      map[string]error
}

func (f *fakeForwarder) Forward(to string, raw []byte) error {
	if err := f.fail[string(raw)]; err != nil {
		return err
	}
	f.forwarded = append(f.forwarded, string(raw))
	return nil
}

func flightEmail(from, subject string) []byte {
	msg := fmt.Sprintf("From: %s\nSubject: %s\nContent-Type: text/plain; charset=\"utf-8\"\n\nbody\n", from, subject)
	return []byte(strings.ReplaceAll(msg, "\n", "\r\n"))
}

func testConfig(t *testing.T, dryRun bool) config.Config {
	t.Helper()
	return config.Config{
		CheckFolders: []string{"INBOX"},
		DaysBack:     30,
		Destination:  "track@example.com",
		LedgerFile:   filepath.Join(t.TempDir(), "ledger.json"),
		DryRun:       dryRun,
	}
}

func newTestRunner(t *testing.T, cfg config.Config, box Mailbox, fwd Forwarder, led *ledger.Ledger) *Runner {
	t.Helper()
	classifier, err := classify.New()
	require.NoError(t, err)

	r, err := New(cfg, Deps{
		Mailbox:    box,
		Forwarder:  fwd,
		Ledger:     led,
		Decoder:    decode.New(discardLogger()),
		Classifier: classifier,
		Collector:  stats.NewCollector(),
	}, discardLogger())
	require.NoError(t, err)
	return r
}

func TestRunForwardsMatchesOnly(t *testing.T) {
	cfg := testConfig(t, false)
	box := &fakeMailbox{
		uids: map[string][]uint32{"INBOX": {1, 2}},
		messages: map[string][]byte{
			"INBOX:1": flightEmail("no-reply@delta.com", "Your Trip Confirmation"),
			"INBOX:2": flightEmail("deals@shoestore.example.com", "50% off shoes"),
		},
	}
	fwd := &fakeForwarder{}
	led, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)

	outcome, err := newTestRunner(t, cfg, box, fwd, led).Run()
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.TotalScanned)
	assert.Equal(t, 1, outcome.TotalFound)
	assert.Equal(t, 1, outcome.TotalForwarded)
	assert.Len(t, fwd.forwarded, 1)
	assert.True(t, led.Contains("INBOX:1"))
	assert.False(t, led.Contains("INBOX:2"))
}

func TestRunIsIdempotent(t *testing.T) {
	cfg := testConfig(t, false)
	box := &fakeMailbox{
		uids: map[string][]uint32{"INBOX": {1}},
		messages: map[string][]byte{
			"INBOX:1": flightEmail("no-reply@delta.com", "Your Trip Confirmation"),
		},
	}

	// First run forwards and persists.
	fwd := &fakeForwarder{}
	led, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)
	_, err = newTestRunner(t, cfg, box, fwd, led).Run()
	require.NoError(t, err)
	require.Len(t, fwd.forwarded, 1)

	// Second run against the same mailbox and a freshly loaded ledger must
	// not fetch or forward the message again.
	fwd2 := &fakeForwarder{}
	led2, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)
	box.fetchCalls = 0
	outcome, err := newTestRunner(t, cfg, box, fwd2, led2).Run()
	require.NoError(t, err)

	assert.Empty(t, fwd2.forwarded)
	assert.Equal(t, 0, box.fetchCalls)
	assert.Equal(t, 0, outcome.TotalForwarded)
}

func TestRunDryRunNeverPersists(t *testing.T) {
	cfg := testConfig(t, true)
	box := &fakeMailbox{
		uids: map[string][]uint32{"INBOX": {1}},
		messages: map[string][]byte{
			"INBOX:1": flightEmail("no-reply@delta.com", "Your Trip Confirmation"),
		},
	}
	fwd := &fakeForwarder{}
	led, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)

	outcome, err := newTestRunner(t, cfg, box, fwd, led).Run()
	require.NoError(t, err)

	// The match is counted as would-be-forwarded, but nothing was sent,
	// nothing was marked read and no ledger file appeared.
	assert.Equal(t, 1, outcome.TotalFound)
	assert.Equal(t, 1, outcome.TotalForwarded)
	assert.Empty(t, fwd.forwarded)
	assert.Empty(t, box.seen)
	_, statErr := os.Stat(cfg.LedgerPath())
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunFailedForwardIsNotLedgered(t *testing.T) {
	cfg := testConfig(t, false)
	raw := flightEmail("no-reply@delta.com", "Your Trip Confirmation")
	box := &fakeMailbox{
		uids:     map[string][]uint32{"INBOX": {1}},
		messages: map[string][]byte{"INBOX:1": raw},
	}
	fwd := &fakeForwarder{fail: map[string]error{string(raw): errors.New("attempts exhausted")}}
	led, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)

	outcome, err := newTestRunner(t, cfg, box, fwd, led).Run()
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.TotalFound)
	assert.Equal(t, 0, outcome.TotalForwarded)
	assert.False(t, led.Contains("INBOX:1"))

	// The persisted ledger must not contain the failed key either, so the
	// next run retries it.
	reloaded, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)
	assert.False(t, reloaded.Contains("INBOX:1"))
}

func TestRunSkipsUnopenableFolder(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.CheckFolders = []string{"Nope", "INBOX"}
	box := &fakeMailbox{
		uids: map[string][]uint32{"INBOX": {1}},
		messages: map[string][]byte{
			"INBOX:1": flightEmail("no-reply@delta.com", "Your Trip Confirmation"),
		},
		failList: map[string]error{"Nope": errors.New("select Nope: no such mailbox")},
	}
	fwd := &fakeForwarder{}
	led, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)

	outcome, err := newTestRunner(t, cfg, box, fwd, led).Run()
	require.NoError(t, err)

	require.Len(t, outcome.Folders, 2)
	assert.Equal(t, 0, outcome.Folders[0].Scanned)
	assert.Equal(t, 1, outcome.Folders[1].Forwarded)
}

func TestRunSkipsFailedFetch(t *testing.T) {
	cfg := testConfig(t, false)
	box := &fakeMailbox{
		uids: map[string][]uint32{"INBOX": {1, 2}},
		messages: map[string][]byte{
			"INBOX:2": flightEmail("no-reply@delta.com", "Your Trip Confirmation"),
		},
		failFetch: map[string]error{"INBOX:1": errors.New("fetch failed")},
	}
	fwd := &fakeForwarder{}
	led, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)

	outcome, err := newTestRunner(t, cfg, box, fwd, led).Run()
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.TotalForwarded)
	assert.True(t, led.Contains("INBOX:2"))
	assert.False(t, led.Contains("INBOX:1"))
}

func TestRunMarksSeenWhenConfigured(t *testing.T) {
	cfg := testConfig(t, false)
	cfg.MarkAsRead = true
	box := &fakeMailbox{
		uids: map[string][]uint32{"INBOX": {1}},
		messages: map[string][]byte{
			"INBOX:1": flightEmail("no-reply@delta.com", "Your Trip Confirmation"),
		},
	}
	fwd := &fakeForwarder{}
	led, err := ledger.Load(cfg.LedgerPath())
	require.NoError(t, err)

	_, err = newTestRunner(t, cfg, box, fwd, led).Run()
	require.NoError(t, err)

	assert.Equal(t, []string{"INBOX:1"}, box.seen)
}
