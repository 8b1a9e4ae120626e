package parser

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/conorfennell/flashdeck/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []domain.NewCard
	}{
		{
			name:     "front and back",
			input:    "Q: What is the capital of France?\nA: Paris",
			expected: []domain.NewCard{{Front: "What is the capital of France?", Back: "Paris"}},
		},
		{
			name:     "tags",
			input:    "Q: What is 1+1?\nA: 2\nC: arithmetic",
			expected: []domain.NewCard{{Front: "What is 1+1?", Back: "2", Tags: "arithmetic"}},
		},
		{
			name:  "topics",
			input: "Q: What is a goroutine?\nA: A lightweight thread\nT: go, concurrency, ",
			expected: []domain.NewCard{{
				Front:  "What is a goroutine?",
				Back:   "A lightweight thread",
				Topics: []string{"go", "concurrency"},
			}},
		},
		{
			name: "multiline back",
			input: `
Q: What are the primary colors?
A: Red
Blue
Yellow
`,
			expected: []domain.NewCard{{Front: "What are the primary colors?", Back: "Red\nBlue\nYellow"}},
		},
		{
			name: "two cards separated by a blank line",
			input: `
Q: First question
A: First answer

Q: Second question
A: Second answer
`,
			expected: []domain.NewCard{
				{Front: "First question", Back: "First answer"},
				{Front: "Second question", Back: "Second answer"},
			},
		},
		{
			name: "separator ends a card",
			input: `Q: One
A: 1
---
stray text
Q: Two
A: 2`,
			expected: []domain.NewCard{
				{Front: "One", Back: "1"},
				{Front: "Two", Back: "2"},
			},
		},
		{
			name:     "card without back is still returned",
			input:    "Q: Unanswered",
			expected: []domain.NewCard{{Front: "Unanswered"}},
		},
		{
			name:     "no cards",
			input:    "This is a file with no questions.",
			expected: nil,
		},
		{
			name:     "prefixes with no space",
			input:    "Q:Question\nA:Answer",
			expected: []domain.NewCard{{Front: "Question", Back: "Answer"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cards, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}
			if !reflect.DeepEqual(cards, tc.expected) {
				t.Errorf("Parse() = %#v, want %#v", cards, tc.expected)
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	if err := os.WriteFile(path, []byte("# Notes\n\nQ: ping\nA: pong\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cards, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile() returned an unexpected error: %v", err)
	}
	if len(cards) != 1 || cards[0].Front != "ping" || cards[0].Back != "pong" {
		t.Errorf("ParseFile() = %#v", cards)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
