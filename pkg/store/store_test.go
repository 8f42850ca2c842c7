package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collabtext/pkg/errors"
)

func openTemp(t *testing.T) (*Store, string) {
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestLastDocument(t *testing.T) {
	s, path := openTemp(t)

	_, found, err := s.LastDocument()
	require.NoError(t, err)
	assert.False(t, found)

	opened := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := Entry{DocID: "doc-1", Server: "http://localhost:8000", OpenedAt: opened}
	require.NoError(t, s.SetLastDocument(entry))
	require.NoError(t, s.Close())

	// Survives a reopen.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	last, found, err := s.LastDocument()
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "doc-1", last.DocID)
	assert.Equal(t, "http://localhost:8000", last.Server)
	assert.True(t, opened.Equal(last.OpenedAt))
}

func TestSetLastDocumentRequiresID(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	assert.Equal(t, errors.MissingFieldError{Field: "docId"}, s.SetLastDocument(Entry{}))
}

func TestRecent(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < MaxRecent+5; i++ {
		require.NoError(t, s.SetLastDocument(Entry{
			DocID:    fmt.Sprintf("doc-%02d", i),
			OpenedAt: start.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Reopening an old document moves it to the front.
	require.NoError(t, s.SetLastDocument(Entry{DocID: "doc-10", OpenedAt: start.Add(time.Hour)}))

	all, err := s.Recent(-1)
	require.NoError(t, err)
	assert.Len(t, all, MaxRecent)

	top, err := s.Recent(3)
	require.NoError(t, err)
	var ids []string
	for _, entry := range top {
		ids = append(ids, entry.DocID)
	}
	assert.Equal(t, []string{"doc-10", "doc-24", "doc-23"}, ids)

	last, _, err := s.LastDocument()
	require.NoError(t, err)
	assert.Equal(t, "doc-10", last.DocID)
}
