package stats

import "log/slog"

type EventType string

const (
	EventTypeScanned         EventType = "scanned"
	EventTypeDuplicate       EventType = "duplicate"
	EventTypeMatched         EventType = "matched"
	EventTypeForwarded       EventType = "forwarded"
	EventTypeDryRunForwarded EventType = "dry_run_forwarded"
	EventTypeFolderSkipped   EventType = "folder_skipped"
	EventTypeError           EventType = "error"
)

type Event struct {
	Type    EventType
	Folder  string
	UID     uint32
	Carrier string
	Err     error
}

type Summary struct {
	Scanned         int
	Duplicates      int
	Matched         int
	Forwarded       int
	DryRunForwarded int
	FoldersSkipped  int
	Errors          int
	LastError       error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"duplicates", s.Duplicates,
		"matched", s.Matched,
		"forwarded", s.Forwarded,
		"dryRunForwarded", s.DryRunForwarded,
		"foldersSkipped", s.FoldersSkipped,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

// Collector aggregates run events into a Summary and fans them out to
// subscribers. The run is single-threaded, so no locking is needed.
type Collector struct {
	summary Summary
	subs    []func(Event)
}

func NewCollector() *Collector {
	return &Collector{}
}

// Subscribe registers a callback invoked for every recorded event.
func (c *Collector) Subscribe(fn func(Event)) {
	c.subs = append(c.subs, fn)
}

func (c *Collector) Record(evt Event) {
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeMatched:
		c.summary.Matched++
	case EventTypeForwarded:
		c.summary.Forwarded++
	case EventTypeDryRunForwarded:
		c.summary.DryRunForwarded++
	case EventTypeFolderSkipped:
		c.summary.FoldersSkipped++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
	for _, fn := range c.subs {
		fn(evt)
	}
}

func (c *Collector) Snapshot() Summary {
	return c.summary
}

// Report logs the final summary at info level.
func (c *Collector) Report(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Info("run summary", c.summary.LogAttrs()...)
}
