package importer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/session"
	"github.com/conorfennell/flashdeck/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newSession(t *testing.T) *session.Session {
	t.Helper()
	db, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := session.New(db, session.Options{Logger: discard})
	_, err = s.AddDeck(context.Background(), "go", "")
	require.NoError(t, err)
	return s
}

func writeNotes(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

type fakeGit struct {
	dir  string
	err  error
	urls []string
}

func (f *fakeGit) Checkout(_ context.Context, repoURL string) (string, error) {
	f.urls = append(f.urls, repoURL)
	return f.dir, f.err
}

func TestImportDirectory(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	dir := t.TempDir()
	writeNotes(t, dir, map[string]string{
		"basics.md":          "Q: What is a slice?\nA: A view into an array\nT: go\n",
		"nested/channels.MD": "Q: Unbuffered send blocks?\nA: Until received\n---\nQ: No answer\n",
		"readme.txt":         "Q: ignored\nA: not markdown\n",
		".git/notes.md":      "Q: hidden\nA: skipped\n",
	})

	res, err := New(s, nil, discard).Import(ctx, dir, "go")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files)
	assert.Equal(t, 3, res.Parsed)
	assert.Len(t, res.Added, 2)
	assert.Len(t, res.Errors, 1)
	assert.Zero(t, res.Duplicates)

	cards, err := s.DeckCards(ctx, "go")
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	// Every imported card is its own undoable add.
	msg, err := s.Undo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Undid add-card.", msg)
	cards, err = s.DeckCards(ctx, "go")
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestImportSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	_, err := s.AddCard(ctx, domain.NewCard{Deck: "go", Front: "What is a slice?", Back: "A view into an array"})
	require.NoError(t, err)

	dir := t.TempDir()
	writeNotes(t, dir, map[string]string{
		"a.md": "Q:   what is a SLICE?\nA: A view into an array\n\nQ: What is a map?\nA: A hash table\n",
		"b.md": "Q: What is a map?\nA: A hash table\n",
	})

	im := New(s, nil, discard)
	res, err := im.Import(ctx, dir, "go")
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Equal(t, 2, res.Duplicates)

	res, err = im.Import(ctx, dir, "go")
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Equal(t, 3, res.Duplicates)
}

func TestImportSingleFile(t *testing.T) {
	s := newSession(t)
	dir := t.TempDir()
	writeNotes(t, dir, map[string]string{"one.md": "Q: ping\nA: pong\n"})

	res, err := New(s, nil, discard).Import(context.Background(), filepath.Join(dir, "one.md"), "go")
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "ping", res.Added[0].Front)
}

func TestImportGitSource(t *testing.T) {
	s := newSession(t)
	dir := t.TempDir()
	writeNotes(t, dir, map[string]string{"cards.md": "Q: ping\nA: pong\n"})
	git := &fakeGit{dir: dir}

	res, err := New(s, git, discard).Import(context.Background(), "https://example.com/team/notes.git", "go")
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Equal(t, []string{"https://example.com/team/notes.git"}, git.urls)
}

func TestImportErrors(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)

	t.Run("unknown deck", func(t *testing.T) {
		_, err := New(s, nil, discard).Import(ctx, t.TempDir(), "missing")
		assert.ErrorIs(t, err, domain.ErrDeckNotFound)
	})

	t.Run("missing source", func(t *testing.T) {
		_, err := New(s, nil, discard).Import(ctx, filepath.Join(t.TempDir(), "nope"), "go")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not exist")
	})

	t.Run("git without checkouter", func(t *testing.T) {
		_, err := New(s, nil, discard).Import(ctx, "git@github.com:user/notes.git", "go")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "git sources are not configured")
	})

	t.Run("checkout failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := New(s, &fakeGit{err: boom}, discard).Import(ctx, "https://example.com/notes.git", "go")
		assert.ErrorIs(t, err, boom)
	})
}
