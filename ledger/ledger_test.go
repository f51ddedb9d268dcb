package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFormat(t *testing.T) {
	assert.Equal(t, "INBOX:42", Key("INBOX", 42))
	assert.Equal(t, "Travel/2026:7", Key("Travel/2026", 7))
}

func TestLoadMissingFileYieldsEmptyLedger(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Contains("INBOX:1"))
}

func TestLoadRejectsEmptyPath(t *testing.T) {
	_, err := Load("  ")
	assert.Error(t, err)
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"a list"`), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestAddContainsPersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")

	l, err := Load(path)
	require.NoError(t, err)
	l.Add(Key("INBOX", 1))
	l.Add(Key("INBOX", 2))
	l.Add(Key("Travel", 1))
	l.Add(Key("INBOX", 1)) // duplicate add is a no-op
	require.NoError(t, l.Persist())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, reloaded.Len())
	assert.True(t, reloaded.Contains("INBOX:1"))
	assert.True(t, reloaded.Contains("INBOX:2"))
	assert.True(t, reloaded.Contains("Travel:1"))
	assert.False(t, reloaded.Contains("INBOX:3"))
}

func TestPersistRewritesWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte(`["INBOX:1"]`), 0o600))

	l, err := Load(path)
	require.NoError(t, err)
	l.Add("INBOX:2")
	require.NoError(t, l.Persist())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["INBOX:1","INBOX:2"]`, string(data))

	// The atomic rename must not leave temp files behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger.json", entries[0].Name())
}

func TestPersistCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "ledger.json")

	l, err := Load(path)
	require.NoError(t, err)
	l.Add("INBOX:9")
	require.NoError(t, l.Persist())

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Contains("INBOX:9"))
}

func TestAddIgnoresEmptyKey(t *testing.T) {
	l, err := Load(filepath.Join(t.TempDir(), "ledger.json"))
	require.NoError(t, err)
	l.Add("")
	assert.Equal(t, 0, l.Len())
}
