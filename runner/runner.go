// Package runner orchestrates a single forwarding run: list candidates per
// folder, filter already-processed ones, decode and classify, forward the
// matches and record the outcomes.
package runner

import (
	"fmt"
	"log/slog"
	"time"

	"flightfwd/classify"
	"flightfwd/config"
	"flightfwd/decode"
	"flightfwd/forward"
	"flightfwd/ledger"
	"flightfwd/model"
	"flightfwd/progress"
	"flightfwd/stats"
)

// Mailbox lists and fetches candidate messages from the remote mailbox.
type Mailbox interface {
	ListCandidates(folder string, since time.Time) ([]uint32, error)
	Fetch(folder string, uid uint32) (model.RawMessage, error)
	MarkSeen(folder string, uid uint32) error
}

// Forwarder relays one raw message to the destination address.
type Forwarder interface {
	Forward(to string, raw []byte) error
}

// Archiver records successfully forwarded messages.
type Archiver interface {
	Append(from string, date time.Time, raw []byte) error
}

// Deps carries the collaborators a run needs. Archive may be nil.
type Deps struct {
	Mailbox    Mailbox
	Forwarder  Forwarder
	Ledger     *ledger.Ledger
	Decoder    *decode.Decoder
	Classifier *classify.Classifier
	Collector  *stats.Collector
	Printer    *progress.Printer
	Archive    Archiver
}

// Runner executes one run. Execution is fully sequential: one folder at a
// time, one message at a time, with the ledger exclusively owned by the run.
type Runner struct {
	cfg    config.Config
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

func New(cfg config.Config, deps Deps, logger *slog.Logger) (*Runner, error) {
	if deps.Mailbox == nil {
		return nil, fmt.Errorf("mailbox must not be nil")
	}
	if deps.Forwarder == nil {
		return nil, fmt.Errorf("forwarder must not be nil")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger must not be nil")
	}
	if deps.Decoder == nil {
		return nil, fmt.Errorf("decoder must not be nil")
	}
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier must not be nil")
	}
	if deps.Collector == nil {
		deps.Collector = stats.NewCollector()
	}
	if deps.Printer == nil {
		deps.Printer = progress.NewPrinter("", cfg.DryRun)
	}
	return &Runner{cfg: cfg, deps: deps, logger: logger, now: time.Now}, nil
}

// Run scans the configured folders in order and returns the run outcome.
// A dry run goes through the same motions but never forwards, never marks
// messages read, and never persists the ledger.
func (r *Runner) Run() (model.RunOutcome, error) {
	since := r.now().AddDate(0, 0, -r.cfg.DaysBack)
	started := r.now()

	var outcome model.RunOutcome
	for _, folder := range r.cfg.CheckFolders {
		r.deps.Printer.Folder(folder)
		outcome.Append(r.scanFolder(folder, since))
	}

	if !r.cfg.DryRun {
		if err := r.deps.Ledger.Persist(); err != nil {
			r.logger.Warn("ledger persist failed, duplicates possible next run", "err", err)
			r.deps.Printer.LedgerWarning(err)
			r.deps.Collector.Record(stats.Event{Type: stats.EventTypeError, Err: err})
		}
	}

	r.deps.Printer.Summary(outcome)
	r.deps.Collector.Report(r.logger)
	r.logger.Info("run completed", "duration", r.now().Sub(started),
		"found", outcome.TotalFound, "forwarded", outcome.TotalForwarded)
	return outcome, nil
}

func (r *Runner) scanFolder(folder string, since time.Time) model.FolderOutcome {
	fo := model.FolderOutcome{Folder: folder}

	uids, err := r.deps.Mailbox.ListCandidates(folder, since)
	if err != nil {
		r.logger.Warn("folder skipped", "folder", folder, "err", err)
		r.deps.Printer.FolderSkipped(folder, err)
		r.deps.Collector.Record(stats.Event{Type: stats.EventTypeFolderSkipped, Folder: folder, Err: err})
		return fo
	}
	fo.Scanned = len(uids)

	for _, uid := range uids {
		key := ledger.Key(folder, uid)
		if r.deps.Ledger.Contains(key) {
			r.deps.Collector.Record(stats.Event{Type: stats.EventTypeDuplicate, Folder: folder, UID: uid})
			continue
		}
		r.deps.Collector.Record(stats.Event{Type: stats.EventTypeScanned, Folder: folder, UID: uid})

		raw, err := r.deps.Mailbox.Fetch(folder, uid)
		if err != nil {
			r.logger.Warn("fetch failed, message skipped", "folder", folder, "uid", uid, "err", err)
			r.deps.Collector.Record(stats.Event{Type: stats.EventTypeError, Folder: folder, UID: uid, Err: err})
			continue
		}

		norm := r.deps.Decoder.Decode(raw)
		result := r.deps.Classifier.Classify(&norm)
		if !result.Match {
			continue
		}

		fo.Found++
		r.deps.Collector.Record(stats.Event{Type: stats.EventTypeMatched, Folder: folder, UID: uid, Carrier: result.Carrier})
		r.deps.Printer.Match(result.Carrier, norm.From, norm.Subject)
		r.logger.Info("flight email found", "folder", folder, "uid", uid,
			"carrier", result.Carrier, "from", norm.From, "subject", norm.Subject)

		if r.cfg.DryRun {
			// A simulated attempt still counts as processed, so the next
			// dry run reports fresh messages only.
			r.deps.Ledger.Add(key)
			fo.Forwarded++
			r.deps.Collector.Record(stats.Event{Type: stats.EventTypeDryRunForwarded, Folder: folder, UID: uid})
			continue
		}

		if err := r.deps.Forwarder.Forward(r.cfg.Destination, raw.Raw); err != nil {
			// Deliberately not ledgered: the next run retries it.
			r.logger.Error("forwarding failed, will retry next run", "folder", folder, "uid", uid, "err", err)
			r.deps.Printer.ForwardFailed(forward.MaxAttempts)
			r.deps.Collector.Record(stats.Event{Type: stats.EventTypeError, Folder: folder, UID: uid, Err: err})
			continue
		}

		fo.Forwarded++
		r.deps.Ledger.Add(key)
		r.deps.Printer.Forwarded(r.cfg.Destination)
		r.deps.Collector.Record(stats.Event{Type: stats.EventTypeForwarded, Folder: folder, UID: uid, Carrier: result.Carrier})

		if r.cfg.MarkAsRead {
			if err := r.deps.Mailbox.MarkSeen(folder, uid); err != nil {
				r.logger.Warn("mark seen failed", "folder", folder, "uid", uid, "err", err)
			}
		}
		if r.deps.Archive != nil {
			if err := r.deps.Archive.Append(norm.From, norm.Date, raw.Raw); err != nil {
				r.logger.Warn("archive append failed", "folder", folder, "uid", uid, "err", err)
			}
		}
	}

	return fo
}
