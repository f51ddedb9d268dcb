package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendWritesMboxSeparatorAndBody(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forwarded.mbox")

	w, err := Open(path)
	require.NoError(t, err)
	date := time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)
	raw := []byte("Subject: Your Trip Confirmation\r\n\r\nbody\r\n")
	require.NoError(t, w.Append(`"Delta" <no-reply@delta.com>`, date, raw))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.True(t, strings.HasPrefix(content, "From no-reply@delta.com "))
	assert.Contains(t, content, "Subject: Your Trip Confirmation")
	assert.Contains(t, content, "body")
}

func TestAppendAccumulatesAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forwarded.mbox")

	for i := 0; i < 2; i++ {
		w, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, w.Append("a@example.com", time.Now(), []byte("Subject: x\r\n\r\n.\r\n")))
		require.NoError(t, w.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "From a@example.com"))
}

func TestAppendHandlesMissingSenderAndDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forwarded.mbox")

	w, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, w.Append("", time.Time{}, []byte("Subject: x\r\n\r\n.\r\n")))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "From unknown@unknown "))
}
