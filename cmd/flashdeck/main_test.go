package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		debugMode bool
		wantLevel slog.Level
	}{
		{
			name:      "debug mode enabled",
			debugMode: true,
			wantLevel: slog.LevelDebug,
		},
		{
			name:      "debug mode disabled",
			debugMode: false,
			wantLevel: slog.LevelInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupLogger(io.Discard, tt.debugMode)
			logger := slog.Default()
			assert.NotNil(t, logger)
			assert.Equal(t, tt.wantLevel <= slog.LevelDebug, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}
}

// execute runs one CLI invocation against dbPath and returns its output.
func execute(t *testing.T, dbPath, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCommand(io.Discard)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--db", dbPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := execute(t, dbPath, "", args...)
	require.NoError(t, err, out)
	return out
}

func TestCommands(t *testing.T) {
	t.Setenv("FLASHCARDS_DB", "")
	db := filepath.Join(t.TempDir(), "cards.db")

	assert.Contains(t, mustExecute(t, db, "init"), "Initialised "+db)
	assert.Contains(t, mustExecute(t, db, "add-deck", "go"), "Added deck go")
	assert.Contains(t, mustExecute(t, db, "add-card", "--deck", "go", "--front", "What is a slice?", "--back", "A view", "--topics", "go,arrays"),
		"Added card 1 to go.")
	assert.Contains(t, mustExecute(t, db, "edit-card", "1", "--back", "A view into an array"), "Updated card 1.")

	out := mustExecute(t, db, "list", "--deck", "go")
	assert.Contains(t, out, "What is a slice?")
	assert.Contains(t, out, "A view into an array")

	out = mustExecute(t, db, "due")
	assert.Contains(t, out, "What is a slice?")

	out = mustExecute(t, db, "stats")
	assert.Regexp(t, `go\s+1\s+1`, out)

	mustExecute(t, db, "link-topics", "arrays", "go", "--weight", "0.5")
	out = mustExecute(t, db, "graph")
	assert.Contains(t, out, "arrays -> go (0.5)")

	_, err := execute(t, db, "", "delete-deck", "root")
	assert.Error(t, err)

	assert.Contains(t, mustExecute(t, db, "delete-card", "1"), "Deleted card 1.")
	assert.Contains(t, mustExecute(t, db, "delete-deck", "go"), "Deleted deck go.")

	_, err = execute(t, db, "", "edit-card", "1")
	assert.Error(t, err)
}

func TestDeckHierarchyCommands(t *testing.T) {
	t.Setenv("FLASHCARDS_DB", "")
	db := filepath.Join(t.TempDir(), "cards.db")

	mustExecute(t, db, "add-deck", "go")
	mustExecute(t, db, "add-deck", "generics", "--parent", "go")
	mustExecute(t, db, "add-deck", "langs")
	mustExecute(t, db, "add-card", "--deck", "go", "--front", "top", "--back", "1")
	mustExecute(t, db, "add-card", "--deck", "generics", "--front", "nested", "--back", "2")

	out := mustExecute(t, db, "due", "--deck", "go")
	assert.Contains(t, out, "top")
	assert.NotContains(t, out, "nested")

	out = mustExecute(t, db, "due", "--deck", "go", "--subdecks")
	assert.Contains(t, out, "top")
	assert.Contains(t, out, "nested")

	out = mustExecute(t, db, "list", "--deck", "go", "--subdecks")
	assert.Contains(t, out, "nested")

	assert.Contains(t, mustExecute(t, db, "rename-deck", "go", "golang", "--parent", "langs"), "Deck go is now golang.")
	out = mustExecute(t, db, "tree")
	assert.Contains(t, out, "root (2 cards, 2 due)")
	assert.Contains(t, out, "└── langs (2 cards, 2 due)")
	assert.Contains(t, out, "    └── golang (2 cards, 2 due)")
	assert.Contains(t, out, "        └── generics (1 cards, 1 due)")

	_, err := execute(t, db, "", "rename-deck", "langs", "--parent", "generics")
	assert.Error(t, err)
}

func TestStudyCommand(t *testing.T) {
	t.Setenv("FLASHCARDS_DB", "")
	db := filepath.Join(t.TempDir(), "cards.db")
	mustExecute(t, db, "add-card", "--front", "2+2", "--back", "4")

	out, err := execute(t, db, "quiz\nanswer 4\nundo\nquit\n", "study")
	require.NoError(t, err)
	assert.Contains(t, out, "Q: 2+2")
	assert.Contains(t, out, "Undid answer-card.")
	assert.Contains(t, out, "Bye.")
}

func TestImportCommand(t *testing.T) {
	t.Setenv("FLASHCARDS_DB", "")
	db := filepath.Join(t.TempDir(), "cards.db")
	notes := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(notes, "go.md"), []byte("Q: ping\nA: pong\n\nQ: orphan\n"), 0o644))

	out := mustExecute(t, db, "import", notes)
	assert.Contains(t, out, "Found 2 cards in 1 files: 1 added, 0 already present, 1 errors.")

	out = mustExecute(t, db, "import", notes)
	assert.Contains(t, out, "0 added, 1 already present")
}

func TestInvalidConfiguration(t *testing.T) {
	t.Setenv("FLASHCARDS_DB", "")
	_, err := execute(t, filepath.Join(t.TempDir(), "cards.db"), "", "--limit", "5000", "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
