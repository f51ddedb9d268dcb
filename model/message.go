package model

import "time"

// RawMessage is a message exactly as fetched from the mailbox, identified by
// the folder it came from and its mailbox-assigned UID.
type RawMessage struct {
	Folder string
	UID    uint32
	Raw    []byte
}

// Attachment is a non-inline message part carried through unmodified.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NormalizedMessage is the decoded, in-memory form of a RawMessage. Fields
// that could not be decoded are left empty rather than failing the message;
// Date is the zero time when the Date header is missing or unparseable.
type NormalizedMessage struct {
	From        string
	Subject     string
	Date        time.Time
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// ClassificationResult records whether a message looks like a flight
// confirmation and which carrier it was attributed to.
type ClassificationResult struct {
	Match   bool
	Carrier string // "Unknown" when Match is false
	Message *NormalizedMessage
}

// FolderOutcome holds the per-folder counters reported at the end of a run.
type FolderOutcome struct {
	Folder    string
	Scanned   int
	Found     int
	Forwarded int
}

// RunOutcome aggregates folder outcomes into a run-level summary.
type RunOutcome struct {
	Folders        []FolderOutcome
	TotalScanned   int
	TotalFound     int
	TotalForwarded int
}

// Append records a folder outcome and updates the run totals.
func (o *RunOutcome) Append(f FolderOutcome) {
	o.Folders = append(o.Folders, f)
	o.TotalScanned += f.Scanned
	o.TotalFound += f.Found
	o.TotalForwarded += f.Forwarded
}
