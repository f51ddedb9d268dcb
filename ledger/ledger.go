// Package ledger persists the set of message keys that have already been
// processed, so repeated runs never forward the same message twice.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Key builds the composite dedup key for a message. The format matches the
// entries persisted by earlier versions of the forwarder, so existing ledger
// files stay valid.
func Key(folder string, uid uint32) string {
	return fmt.Sprintf("%s:%d", folder, uid)
}

// Ledger is an in-memory set of processed keys backed by a JSON file. It is
// owned by a single run; no locking is needed.
type Ledger struct {
	path string
	keys map[string]struct{}
}

// Load reads the ledger file at path. A missing file yields an empty ledger;
// a corrupt file is an error so a truncated state is never silently adopted.
func Load(path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is empty")
	}

	l := &Ledger{path: path, keys: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		l.keys[key] = struct{}{}
	}
	return l, nil
}

// Contains reports whether key has already been processed.
func (l *Ledger) Contains(key string) bool {
	_, ok := l.keys[key]
	return ok
}

// Add marks key as processed. Adding an existing key is a no-op.
func (l *Ledger) Add(key string) {
	if key == "" {
		return
	}
	l.keys[key] = struct{}{}
}

// Len returns the number of processed keys.
func (l *Ledger) Len() int {
	return len(l.keys)
}

// Persist rewrites the ledger file with the full key set. The write goes to a
// temporary file in the same directory which is then renamed over the target,
// so the prior file survives a crash mid-write intact.
func (l *Ledger) Persist() error {
	keys := make([]string, 0, len(l.keys))
	for key := range l.keys {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close ledger: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod ledger: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
