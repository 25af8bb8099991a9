package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("DA-2024-118"))
	b := HashContent([]byte("DA-2024-118"))
	c := HashContent([]byte("DA-2024-119"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestStore_PutGet(t *testing.T) {
	s := newMemStore(t)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(Entry{
		Hash:       "abc",
		Filename:   "demande.pdf",
		OutputPath: "/out/demande.pdf.json",
		Method:     "pdf_text",
		Items:      3,
	}))

	entry, ok, err := s.Get("abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "demande.pdf", entry.Filename)
	assert.Equal(t, 3, entry.Items)
	assert.False(t, entry.ProcessedAt.IsZero())
}

func TestStore_PutRequiresHash(t *testing.T) {
	s := newMemStore(t)
	assert.Error(t, s.Put(Entry{Filename: "x.pdf"}))
}

func TestStore_Delete(t *testing.T) {
	s := newMemStore(t)
	require.NoError(t, s.Put(Entry{Hash: "abc"}))
	require.NoError(t, s.Delete("abc"))

	_, ok, err := s.Get("abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_List(t *testing.T) {
	s := newMemStore(t)
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.pdf", "b.xlsx", "c.docx"} {
		require.NoError(t, s.Put(Entry{
			Hash:        HashContent([]byte(name)),
			Filename:    name,
			ProcessedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "c.docx", all[0].Filename)
	assert.Equal(t, "a.pdf", all[2].Filename)

	recent, err := s.List(2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestStore_Persistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")

	s, err := New(Options{Path: dir, TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, s.Put(Entry{Hash: "abc", Filename: "a.pdf"}))
	require.NoError(t, s.Close())

	s, err = New(Options{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	entry, ok, err := s.Get("abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a.pdf", entry.Filename)
}
